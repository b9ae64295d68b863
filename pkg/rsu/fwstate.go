// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package rsu

import (
	"fmt"
	"sync"
)

type (
	// FwStateKind names the firmware maintenance operation holding the controller.
	FwStateKind string

	// FwState is the controller-wide section that keeps firmware maintenance
	// operations (secure update, retimer reload, board recovery) from interleaving.
	// Enter must not block; it fails when another operation holds the section.
	FwState interface {
		Enter(kind FwStateKind) error
		Exit()
	}

	// FwStateLock is the in-process FwState.
	FwStateLock struct {
		mu    sync.Mutex
		state FwStateKind
	}
)

const (
	FwStateNormal    FwStateKind = "normal"
	FwStateSecUpdate FwStateKind = "sec-update"
	FwStateRecovery  FwStateKind = "recovery"
)

func NewFwStateLock() *FwStateLock {
	return &FwStateLock{state: FwStateNormal}
}

func (l *FwStateLock) Enter(kind FwStateKind) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != FwStateNormal {
		return fmt.Errorf("%w: firmware state is %s", ErrBusy, l.state)
	}
	l.state = kind
	return nil
}

func (l *FwStateLock) Exit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = FwStateNormal
}

func (l *FwStateLock) Current() FwStateKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
