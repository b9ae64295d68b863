// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package poll waits for a hardware register to reach a condition.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var ErrTimeout = errors.New("poll timed out")

type (
	// Interval is one polling class: how often to read and for how long to keep trying.
	Interval struct {
		Every   time.Duration
		Timeout time.Duration
	}

	// Sleeper suspends the caller between two reads.
	Sleeper func(ctx context.Context, d time.Duration) error

	Opts struct {
		Sleep Sleeper
		Now   func() time.Time
	}
	Opt func(*Opts)
)

func WithSleeper(s Sleeper) Opt {
	return func(o *Opts) {
		o.Sleep = s
	}
}

func WithClock(now func() time.Time) Opt {
	return func(o *Opts) {
		o.Now = now
	}
}

// Until calls read until cond holds for the value read, or until iv.Timeout has elapsed.
//
// read is called once before the first sleep, so a condition that already holds
// returns without sleeping. On timeout the last value read is returned together
// with an error wrapping ErrTimeout. A read error is returned immediately.
func Until[T any](ctx context.Context, read func() (T, error), cond func(T) bool, iv Interval, options ...Opt) (T, error) {
	opts := &Opts{
		Sleep: sleepCtx,
		Now:   time.Now,
	}
	for _, o := range options {
		o(opts)
	}

	deadline := opts.Now().Add(iv.Timeout)
	for {
		v, err := read()
		if err != nil {
			return v, err
		}
		if cond(v) {
			return v, nil
		}
		if opts.Now().After(deadline) {
			return v, fmt.Errorf("%w after %s", ErrTimeout, iv.Timeout)
		}
		if err := opts.Sleep(ctx, iv.Every); err != nil {
			return v, err
		}
	}
}

func (iv Interval) String() string {
	return fmt.Sprintf("every %s for %s", iv.Every, iv.Timeout)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
