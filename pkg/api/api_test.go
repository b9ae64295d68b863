// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"testing"
	"time"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/pkg/config"
	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/foundriesio/bmcrsu/pkg/poll"
	"github.com/foundriesio/bmcrsu/pkg/regport"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/foundriesio/bmcrsu/pkg/state"
	"github.com/pelletier/go-toml"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return nil
}

func testOpts() []rsu.ControllerOpt {
	clk := &fakeClock{now: time.Unix(0, 0)}
	return []rsu.ControllerOpt{
		rsu.WithLogger(zerolog.Nop()),
		rsu.WithPollOpts(poll.WithClock(clk.Now), poll.WithSleeper(clk.Sleep)),
	}
}

func newTestConfig(t *testing.T, board string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	tree, err := toml.TreeFromMap(nil)
	require.Nil(t, err)
	tree.Set(config.BoardKey, board)
	tree.Set(config.WriteBlockSizeKey, "16")
	tree.Set(config.StorageDirKey, filepath.Join(dir, "storage"))
	tree.Set(config.MetricsTextfile, filepath.Join(dir, "bmcrsu.prom"))
	b, err := tree.Marshal()
	require.Nil(t, err)
	require.Nil(t, os.WriteFile(filepath.Join(dir, "bmcrsu.toml"), b, 0o644))
	cfg, err := config.NewConfig([]string{dir})
	require.Nil(t, err)
	return cfg
}

func writeImage(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 7)
	}
	path := filepath.Join(t.TempDir(), "max10_bmc.bin")
	require.Nil(t, os.WriteFile(path, data, 0o644))
	return path
}

func eventTypes(evts []events.BmcUpdateEvent) []events.EventTypeValue {
	var ids []events.EventTypeValue
	for _, e := range evts {
		ids = append(ids, e.EventType.Id)
	}
	return ids
}

func TestUpdate_Success(t *testing.T) {
	cfg := newTestConfig(t, "n3000")
	ctrl, err := NewController(cfg, testOpts()...)
	require.Nil(t, err)
	image := writeImage(t, 40)

	var progress []int
	var states []StateName
	err = Update(context.Background(), cfg, ctrl, image,
		WithProgressHandler(func(staged, total int) {
			assert.Equal(t, 40, total)
			progress = append(progress, staged)
		}),
		WithPreStateHandler(func(name state.ActionName, _ *state.UpdateContext) {
			states = append(states, name)
		}),
		WithOSRelease(filepath.Join(t.TempDir(), "missing")))
	require.Nil(t, err)
	assert.Equal(t, []int{16, 32, 40}, progress)
	assert.Equal(t, []StateName{"Preparing", "Staging", "Programming"}, states)
	assert.Equal(t, rsu.StateDone, ctrl.Session().State())

	evts, err := History(cfg, "")
	require.Nil(t, err)
	assert.Equal(t, []events.EventTypeValue{events.UpdateStarted, events.StagingStarted, events.UpdateCompleted}, eventTypes(evts))
	last := evts[len(evts)-1].Event
	require.NotNil(t, last.Success)
	assert.True(t, *last.Success)
	assert.Equal(t, "max10_bmc.bin", last.Image)
	assert.Equal(t, 40, last.Size)

	prom, err := os.ReadFile(cfg.GetMetricsTextfile())
	require.Nil(t, err)
	assert.Contains(t, string(prom), `bmcrsu_updates_total{board="n3000",code="ok"} 1`)
	assert.Contains(t, string(prom), `bmcrsu_staged_bytes_total{board="n3000"} 40`)
}

func TestUpdate_InvalidSize(t *testing.T) {
	cfg := newTestConfig(t, "d5005")
	ctrl, err := NewController(cfg, testOpts()...)
	require.Nil(t, err)

	err = Update(context.Background(), cfg, ctrl, writeImage(t, 30))
	require.True(t, errors.Is(err, rsu.ErrInvalidSize), err)

	evts, err := History(cfg, "")
	require.Nil(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "invalid-size", evts[1].Event.Code)
}

func TestUpdate_CancelDuringStaging(t *testing.T) {
	cfg := newTestConfig(t, "n3000")
	ctrl, err := NewController(cfg, testOpts()...)
	require.Nil(t, err)

	err = Update(context.Background(), cfg, ctrl, writeImage(t, 64),
		WithProgressHandler(func(staged, _ int) {
			if staged == 16 {
				ctrl.Session().Cancel()
			}
		}))
	require.True(t, errors.Is(err, rsu.ErrCanceled), err)
	assert.Equal(t, rsu.CodeCanceled, rsu.CodeOf(err))
	assert.Equal(t, rsu.StateCanceled, ctrl.Session().State())

	snap, err := Status(ctrl)
	require.Nil(t, err)
	assert.Equal(t, doorbell.ProgressIdle, snap.Progress)

	evts, err := History(cfg, "")
	require.Nil(t, err)
	assert.Equal(t, "canceled", evts[len(evts)-1].Event.Code)
}

func TestUpdate_HardwareFailureReturnsDeviceToIdle(t *testing.T) {
	cfg := newTestConfig(t, "n3000")
	csr := cfg.GetCSRMap()
	sim := regport.NewSimWithBehavior(csr, regport.SimBehavior{AckReads: 1, PrepareReads: 1, BadPhaseAfterAuth: true})
	ctrl := rsu.NewController(sim, csr, testOpts()...)

	j := &memJournal{}
	err := Update(context.Background(), cfg, ctrl, writeImage(t, 32), WithEventJournal(j))
	require.True(t, errors.Is(err, rsu.ErrHardware), err)
	assert.Contains(t, err.Error(), "failed at state Programming")
	assert.Equal(t, rsu.StateIdle, ctrl.Session().State())

	require.NotEmpty(t, j.evts)
	last := j.evts[len(j.evts)-1]
	assert.Equal(t, "hw-error", last.Code)
	assert.NotEmpty(t, last.Doorbell)
}

func TestUpdate_Wearout(t *testing.T) {
	cfg := newTestConfig(t, "n5010")
	csr := cfg.GetCSRMap()
	sim := regport.NewSimWithBehavior(csr, regport.SimBehavior{AckReads: 1, PrepareReads: 1, AuthReads: 1, CopyReads: 1, Wearout: true})
	ctrl := rsu.NewController(sim, csr, testOpts()...)

	j := &memJournal{}
	require.Nil(t, Update(context.Background(), cfg, ctrl, writeImage(t, 32), WithEventJournal(j)))
	assert.Contains(t, j.evts[len(j.evts)-1].Details, `"wearout":true`)
}

type memJournal struct {
	evts []events.BmcEvent
}

func (m *memJournal) Record(_ events.EventTypeValue, evt events.BmcEvent) error {
	m.evts = append(m.evts, evt)
	return nil
}

func TestLoad(t *testing.T) {
	cfg := newTestConfig(t, "n3000")
	ctrl, err := NewController(cfg, testOpts()...)
	require.Nil(t, err)

	assert.Equal(t, []string{"bmc_factory", "bmc_user", "retimer_fw"}, Images(ctrl))
	require.Nil(t, Load(context.Background(), cfg, ctrl, "bmc_user"))

	err = Load(context.Background(), cfg, ctrl, "fpga_user")
	require.True(t, errors.Is(err, rsu.ErrUnknownImage), err)

	evts, err := History(cfg, "")
	require.Nil(t, err)
	require.Len(t, evts, 2)
	assert.True(t, *evts[0].Event.Success)
	assert.False(t, *evts[1].Event.Success)
	assert.Equal(t, "unknown-image", evts[1].Event.Code)

	require.Nil(t, PruneHistory(cfg, 1))
	evts, err = History(cfg, "")
	require.Nil(t, err)
	assert.Len(t, evts, 1)
}

func TestCancel(t *testing.T) {
	cfg := newTestConfig(t, "n6000")

	_, err := Cancel(cfg)
	require.True(t, errors.Is(err, ErrNoUpdateRunning), err)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, CancelSignal)
	defer signal.Stop(sig)

	require.Nil(t, WritePidFile(cfg))
	defer RemovePidFile(cfg)
	assert.NotNil(t, WritePidFile(cfg))

	pid, err := Cancel(cfg)
	require.Nil(t, err)
	assert.Equal(t, os.Getpid(), pid)
	select {
	case s := <-sig:
		assert.Equal(t, CancelSignal, s)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel signal not delivered")
	}
}
