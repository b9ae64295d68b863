// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package rsu drives the Remote System Update state machine of a MAX10 BMC.
//
// A Controller owns the register port of one BMC and the single update Session
// that may run on it. The session streams an image into the staging area
// (Prepare, Write, PollComplete); Cancel may be called from any goroutine and
// only raises a flag that the driving goroutine acts upon at its next phase
// boundary.
package rsu

import (
	"context"
	"time"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/foundriesio/bmcrsu/pkg/poll"
	"github.com/foundriesio/bmcrsu/pkg/regport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	// Timeouts groups the polling classes used by the update flows.
	Timeouts struct {
		Handshake      poll.Interval
		Prepare        poll.Interval
		Complete       poll.Interval
		RetimerTrigger poll.Interval
		RetimerPreload poll.Interval
	}

	Controller struct {
		port     regport.Port
		csr      doorbell.CSRMap
		fw       FwState
		timeouts Timeouts
		logger   zerolog.Logger
		pollOpts []poll.Opt

		session *Session
		loads   *ImageLoadTable
	}

	ControllerOpt func(*Controller)
)

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Handshake:      poll.Interval{Every: 100 * time.Millisecond, Timeout: 5 * time.Second},
		Prepare:        poll.Interval{Every: 100 * time.Millisecond, Timeout: 2 * time.Minute},
		Complete:       poll.Interval{Every: time.Second, Timeout: 40 * time.Minute},
		RetimerTrigger: poll.Interval{Every: 200 * time.Millisecond, Timeout: 2 * time.Second},
		RetimerPreload: poll.Interval{Every: 200 * time.Millisecond, Timeout: 30 * time.Second},
	}
}

func WithFwState(fw FwState) ControllerOpt {
	return func(c *Controller) {
		c.fw = fw
	}
}

func WithTimeouts(t Timeouts) ControllerOpt {
	return func(c *Controller) {
		c.timeouts = t
	}
}

func WithLogger(l zerolog.Logger) ControllerOpt {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithPollOpts passes clock and sleeper overrides to every poll the controller runs.
func WithPollOpts(opts ...poll.Opt) ControllerOpt {
	return func(c *Controller) {
		c.pollOpts = append(c.pollOpts, opts...)
	}
}

// WithStagingGeometry overrides the staging capacity and write-block size of the CSR map.
func WithStagingGeometry(stagingSize, writeBlockSize uint32) ControllerOpt {
	return func(c *Controller) {
		if stagingSize > 0 {
			c.csr.StagingSize = stagingSize
		}
		if writeBlockSize > 0 {
			c.csr.WriteBlockSize = writeBlockSize
		}
	}
}

// NewController attaches to the BMC behind port. The returned controller owns
// one Session for its whole lifetime.
func NewController(port regport.Port, csr doorbell.CSRMap, options ...ControllerOpt) *Controller {
	c := &Controller{
		port:     port,
		csr:      csr,
		timeouts: DefaultTimeouts(),
		logger:   log.Logger,
	}
	for _, o := range options {
		o(c)
	}
	if c.fw == nil {
		c.fw = NewFwStateLock()
	}
	c.logger = c.logger.With().Str("board", string(csr.Board)).Logger()
	c.session = newSession(c)
	c.loads = defaultImageLoads(c)
	return c
}

func (c *Controller) Session() *Session {
	return c.session
}

func (c *Controller) ImageLoads() *ImageLoadTable {
	return c.loads
}

func (c *Controller) CSRMap() doorbell.CSRMap {
	return c.csr
}

func (c *Controller) Timeouts() Timeouts {
	return c.timeouts
}

// ReadDoorbell reads and decodes the doorbell register.
func (c *Controller) ReadDoorbell() (doorbell.Snapshot, error) {
	raw, err := c.port.Read(c.csr.DoorbellReg())
	if err != nil {
		return doorbell.Snapshot{}, newError("read doorbell", ErrRW, nil, err)
	}
	return doorbell.Decode(raw), nil
}

// ReadAuthResult reads the authentication result register.
func (c *Controller) ReadAuthResult() (uint32, error) {
	v, err := c.port.Read(c.csr.AuthResultReg())
	if err != nil {
		return 0, newError("read auth result", ErrRW, nil, err)
	}
	return v, nil
}

func (c *Controller) updateDoorbell(op string, f doorbell.Field) error {
	if err := c.port.UpdateBits(c.csr.DoorbellReg(), f.Mask, f.Value); err != nil {
		return newError(op, ErrRW, nil, err)
	}
	return nil
}

func (c *Controller) pollDoorbell(ctx context.Context, cond func(doorbell.Snapshot) bool, iv poll.Interval) (doorbell.Snapshot, error) {
	return poll.Until(ctx, c.ReadDoorbell, cond, iv, c.pollOpts...)
}

// logErrorRegs records the registers that explain a failed update.
func (c *Controller) logErrorRegs(snap doorbell.Snapshot) {
	c.logger.Error().Str("doorbell", snap.String()).Msg("RSU error status")
	if auth, err := c.ReadAuthResult(); err == nil {
		c.logger.Error().Msgf("RSU auth result: 0x%08x", auth)
	}
}
