// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package rsu

import (
	"context"
	"errors"
	"testing"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/foundriesio/bmcrsu/pkg/regport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageLoads_Names(t *testing.T) {
	tests := map[doorbell.Board][]string{
		doorbell.BoardN3000: {ImageBMCFactory, ImageBMCUser, ImageRetimerFW},
		doorbell.BoardD5005: {ImageBMCFactory, ImageBMCUser},
		doorbell.BoardN5010: {ImageBMCFactory, ImageBMCUser},
		doorbell.BoardN6000: {ImageBMCFactory, ImageBMCUser},
	}
	for board, names := range tests {
		csr, err := doorbell.LookupCSRMap(board)
		require.Nil(t, err)
		c := newTestController(regport.NewSim(csr), csr)
		assert.Equal(t, names, c.ImageLoads().Names(), board)
	}
	assert.Empty(t, NewImageLoadTable().Names())
}

func TestImageLoads_RebootConfig(t *testing.T) {
	tests := []struct {
		board doorbell.Board
		image string
		sel   uint8
	}{
		{doorbell.BoardN3000, ImageBMCFactory, 1},
		{doorbell.BoardN3000, ImageBMCUser, 0},
		{doorbell.BoardD5005, ImageBMCFactory, 0},
		{doorbell.BoardD5005, ImageBMCUser, 1},
		{doorbell.BoardN6000, ImageBMCUser, 1},
	}
	for _, tc := range tests {
		t.Run(string(tc.board)+"/"+tc.image, func(t *testing.T) {
			csr, err := doorbell.LookupCSRMap(tc.board)
			require.Nil(t, err)
			sim := regport.NewSim(csr)
			c := newTestController(sim, csr)

			require.Nil(t, c.ImageLoads().Load(context.Background(), tc.image))
			assert.Equal(t, []uint8{tc.sel}, sim.Reboots())
			assert.Equal(t, tc.image, c.Session().ActiveFlow())
		})
	}
}

func TestImageLoads_Unknown(t *testing.T) {
	csr := n3000(t)
	c := newTestController(regport.NewSim(csr), csr)
	err := c.ImageLoads().Load(context.Background(), "fpga_user")
	require.True(t, errors.Is(err, ErrUnknownImage), err)
	assert.Equal(t, CodeUnknownImage, CodeOf(err))
}

func TestLoadBMCImage_RebootDisabled(t *testing.T) {
	csr := n3000(t)
	sim := regport.NewSimWithBehavior(csr, regport.SimBehavior{AckReads: 1, RebootDisabled: true})
	c := newTestController(sim, csr)

	err := c.LoadBMCImage(0)
	require.True(t, errors.Is(err, ErrBusy), err)
	assert.Empty(t, sim.Reboots())
}

func TestLoadBMCImage_InvalidConfig(t *testing.T) {
	csr := n3000(t)
	port := &scriptPort{csr: csr, doorbell: []uint32{0}}
	c := newTestController(port, csr)

	err := c.LoadBMCImage(2)
	require.True(t, errors.Is(err, ErrInvalidArgument), err)
	assert.Equal(t, 0, port.reads)
}

func TestReloadRetimer(t *testing.T) {
	type testCase struct {
		name     string
		behavior regport.SimBehavior
		want     error
	}
	tests := []testCase{
		{"loaded", regport.SimBehavior{AckReads: 1, CopyReads: 2}, nil},
		{"duplicate image", regport.SimBehavior{AckReads: 1, CopyReads: 2, RetimerDuplicate: true}, ErrCanceled},
		{"bad upgrade status", regport.SimBehavior{AckReads: 1, CopyReads: 2, RetimerBadStatus: true}, ErrHardware},
		{"no firmware support", regport.SimBehavior{RetimerUnsupported: true}, ErrNoFirmwareSupport},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			csr := n3000(t)
			sim := regport.NewSimWithBehavior(csr, tc.behavior)
			c := newTestController(sim, csr)

			err := c.ImageLoads().Load(context.Background(), ImageRetimerFW)
			if tc.want == nil {
				require.Nil(t, err)
				assert.Equal(t, doorbell.ProgressPkvlPromDone, sim.Doorbell().Progress)
			} else {
				require.True(t, errors.Is(err, tc.want), err)
			}
			assert.False(t, sim.Doorbell().RetimerLoad)
			assert.Equal(t, FwStateNormal, c.fw.(*FwStateLock).Current())
		})
	}
}

func TestReloadRetimer_NoSupportIsTimeout(t *testing.T) {
	csr := n3000(t)
	sim := regport.NewSimWithBehavior(csr, regport.SimBehavior{RetimerUnsupported: true})
	c := newTestController(sim, csr)

	err := c.ReloadRetimer(context.Background())
	require.True(t, errors.Is(err, ErrTimeout), err)
	assert.Equal(t, CodeTimeout, CodeOf(err))
}

func TestReloadRetimer_Busy(t *testing.T) {
	csr := n3000(t)
	sim := regport.NewSim(csr)
	sim.SetDoorbell(raw(doorbell.ProgressReady, doorbell.StatusNormal))
	c := newTestController(sim, csr)

	err := c.ReloadRetimer(context.Background())
	require.True(t, errors.Is(err, ErrBusy), err)
	assert.False(t, sim.Doorbell().RetimerLoad)
}

func TestReloadRetimer_AfterUpdate(t *testing.T) {
	csr := n3000(t)
	sim := regport.NewSim(csr)
	c := newTestController(sim, csr)
	s := c.Session()
	require.Nil(t, s.Prepare(context.Background(), 16))
	writeAll(t, s, image(16))
	require.Nil(t, s.PollComplete(context.Background()))

	require.Nil(t, c.ReloadRetimer(context.Background()))
}
