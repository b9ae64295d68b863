// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package hostinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "os-release")
	content := `ID=lmp
VERSION_ID="4.0.20"
PRETTY_NAME="Linux-microPlatform 4.0.20"
LMP_MACHINE=intel-corei7-64
`
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))

	h := Read(path)
	assert.Equal(t, "lmp", h.OSID)
	assert.Equal(t, "4.0.20", h.OSVersion)
	assert.Equal(t, "Linux-microPlatform 4.0.20", h.Pretty)
	assert.Equal(t, "intel-corei7-64", h.Machine)
	assert.Contains(t, h.String(), "Linux-microPlatform 4.0.20/intel-corei7-64")
}

func TestRead_Missing(t *testing.T) {
	h := Read(filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, h.OSID)
	assert.Equal(t, h.Hostname, h.String())
}
