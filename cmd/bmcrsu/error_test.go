// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	wrap := func(kind error) error {
		return fmt.Errorf("failed at state Staging: %w", &rsu.Error{Op: "write", Kind: kind})
	}
	assert.Equal(t, exitCanceled, exitCode(wrap(rsu.ErrCanceled)))
	assert.Equal(t, exitBusy, exitCode(wrap(rsu.ErrBusy)))
	assert.Equal(t, exitTimeout, exitCode(wrap(rsu.ErrTimeout)))
	assert.Equal(t, exitFailure, exitCode(wrap(rsu.ErrHardware)))
	assert.Equal(t, exitFailure, exitCode(errors.New("no such file")))
}

func TestCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"update", "cancel", "images", "load", "status", "history", "version", "config-extract"} {
		assert.Contains(t, names, want)
	}
}
