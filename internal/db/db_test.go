// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package db

import (
	"path/filepath"
	"testing"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "sql.db")
	require.Nil(t, InitializeDatabase(dbPath))
	// Idempotent
	require.Nil(t, InitializeDatabase(dbPath))

	require.Nil(t, events.SaveEvent(dbPath, events.NewEvent(events.UpdateStarted, events.BmcEvent{CorrelationId: "x"})))
	evts, _, err := events.GetEvents(dbPath, "x")
	require.Nil(t, err)
	require.Len(t, evts, 1)
}
