// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import (
	"context"
	"fmt"
	"time"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/rs/zerolog/log"
)

type (
	// UpdateRunner runs the RSU update states
	UpdateRunner struct {
		opts   *UpdateRunnerOpts
		states []ActionState
	}
	UpdateRunnerOpts struct {
		PreStateHandler  StateHandler
		PostStateHandler StateHandler
	}
	UpdateRunnerOpt func(*UpdateRunnerOpts)

	StateHandler func(state ActionName, updateCtx *UpdateContext)
)

func WithPreStateHandler(h StateHandler) UpdateRunnerOpt {
	return func(o *UpdateRunnerOpts) {
		o.PreStateHandler = h
	}
}

func WithPostStateHandler(h StateHandler) UpdateRunnerOpt {
	return func(o *UpdateRunnerOpts) {
		o.PostStateHandler = h
	}
}

func NewUpdateRunner(states []ActionState, options ...UpdateRunnerOpt) *UpdateRunner {
	opts := &UpdateRunnerOpts{}
	for _, o := range options {
		o(opts)
	}
	return &UpdateRunner{
		opts:   opts,
		states: states,
	}
}

// Run executes the states in order. A failure after the device accepted the
// update request returns the device to idle before the error is reported.
func (sm *UpdateRunner) Run(ctx context.Context, updateCtx *UpdateContext) (err error) {
	updateCtx.TotalStates = len(sm.states)
	updateCtx.StartedAt = time.Now()
	defer func() {
		updateCtx.SendEvent(events.UpdateCompleted, err)
		if updateCtx.Metrics != nil {
			board := string(updateCtx.Controller.CSRMap().Board)
			updateCtx.Metrics.ObserveUpdate(board, string(rsu.CodeOf(err)), updateCtx.StartedAt, updateCtx.Staged)
			if snap, rerr := updateCtx.Controller.ReadDoorbell(); rerr == nil {
				updateCtx.Metrics.SetDoorbell(board, snap.Raw)
			}
		}
	}()

	for i, s := range sm.states {
		updateCtx.CurrentState = s.Name()
		updateCtx.CurrentStateNum = i + 1
		if sm.opts.PreStateHandler != nil {
			sm.opts.PreStateHandler(s.Name(), updateCtx)
		}
		if err := s.Execute(ctx, updateCtx); err != nil {
			if updateCtx.Prepared && updateCtx.Controller.Session().State() != rsu.StateCanceled {
				log.Debug().Str("state", string(s.Name())).Msg("returning device to idle")
				updateCtx.Controller.Session().Cleanup(ctx)
			}
			return fmt.Errorf("failed at state %s: %w", s.Name(), err)
		}
		if sm.opts.PostStateHandler != nil {
			sm.opts.PostStateHandler(s.Name(), updateCtx)
		}
	}
	return nil
}
