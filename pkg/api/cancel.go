// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/pkg/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrNoUpdateRunning = errors.New("no update is running")

// CancelSignal is the signal a running update treats as a cancel request.
const CancelSignal = syscall.SIGUSR1

// WritePidFile records the running update so that another process can cancel it.
func WritePidFile(cfg *config.Config) error {
	path := cfg.GetPidPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if pid, err := readPid(path); err == nil && processAlive(pid) {
		return fmt.Errorf("another update is running with pid %d", pid)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func RemovePidFile(cfg *config.Config) {
	if err := os.Remove(cfg.GetPidPath()); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to remove pid file")
	}
}

// Cancel asks the running update to cancel and returns its pid. The update
// decides how to stop; a device already authenticating the image cannot be aborted.
func Cancel(cfg *config.Config) (int, error) {
	pid, err := readPid(cfg.GetPidPath())
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return 0, ErrNoUpdateRunning
		}
		return 0, err
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return pid, err
	}
	if err := p.Signal(CancelSignal); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return pid, ErrNoUpdateRunning
		}
		return pid, fmt.Errorf("failed to signal update process %d: %w", pid, err)
	}
	if j, err := events.NewJournal(cfg.GetDBPath()); err == nil {
		if err := j.Record(events.CancelRequested, events.BmcEvent{
			Board:   string(cfg.GetBoard()),
			Details: fmt.Sprintf("pid %d", pid),
		}); err != nil {
			log.Debug().Err(err).Msg("failed to record cancel request")
		}
	}
	return pid, nil
}

func readPid(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid pid file %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
