// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/foundriesio/bmcrsu/pkg/regport"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchSignals_QueuedSignalCancels(t *testing.T) {
	csr, err := doorbell.LookupCSRMap(doorbell.BoardN3000)
	require.Nil(t, err)
	session := rsu.NewController(regport.NewSim(csr), csr).Session()

	// The signal is already queued when the watcher starts.
	sigs := make(chan os.Signal, 1)
	sigs <- syscall.SIGINT

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchSignals(ctx, sigs, session)
		close(done)
	}()

	assert.Eventually(t, session.CancelRequested, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
