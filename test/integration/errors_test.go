package integration_tests

import (
	"testing"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/pkg/api"
	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/foundriesio/bmcrsu/pkg/regport"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/stretchr/testify/assert"
)

// Verify that the right error is returned and journaled in specific situations
func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		behavior regport.SimBehavior
		size     int
		want     error
		code     rsu.Code
	}{
		{"invalid size", regport.SimBehavior{}, 4097, rsu.ErrInvalidSize, rsu.CodeInvalidSize},
		{"erase failure", regport.SimBehavior{AckReads: 1, EraseFail: true}, 4096, rsu.ErrHardware, rsu.CodeHardware},
		{"stuck in prepare", regport.SimBehavior{AckReads: 1, StuckPrepare: true}, 4096, rsu.ErrTimeout, rsu.CodeTimeout},
		{"authentication failure", regport.SimBehavior{AckReads: 1, PrepareReads: 1, AuthFail: true}, 4096, rsu.ErrHardware, rsu.CodeHardware},
		{"undefined phase", regport.SimBehavior{AckReads: 1, PrepareReads: 1, AuthReads: 1, BadPhaseAfterAuth: true}, 4096, rsu.ErrHardware, rsu.CodeHardware},
		{"register fault", regport.SimBehavior{ReadErr: regport.ErrSimFault}, 4096, rsu.ErrRW, rsu.CodeRW},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it := newIntegrationTest(t, string(doorbell.BoardN3000))
			ctrl, _ := it.faultyController(tc.behavior)

			err := api.Update(it.ctx, it.config, ctrl, it.writeImage(tc.size), it.apiOpts...)
			expectErr(t, err, tc.want)
			assert.Equal(t, tc.code, rsu.CodeOf(err))
			it.checkLastEvent(events.UpdateCompleted, false, tc.code)
		})
	}
}

// A failure after the device accepted the request leaves it idle for the next attempt.
func TestErrors_DeviceReturnsToIdle(t *testing.T) {
	it := newIntegrationTest(t, string(doorbell.BoardD5005))
	ctrl, _ := it.faultyController(regport.SimBehavior{AckReads: 1, PrepareReads: 1, AuthFail: true})

	err := api.Update(it.ctx, it.config, ctrl, it.writeImage(2048), it.apiOpts...)
	expectErr(t, err, rsu.ErrHardware)
	evt := it.checkLastEvent(events.UpdateCompleted, false, rsu.CodeHardware)
	assert.Contains(t, evt.Doorbell, "status=auth-fail")

	snap, err := api.Status(ctrl)
	checkErr(t, err)
	assert.True(t, snap.Progress.Quiescent())
	assert.Equal(t, rsu.StateIdle, ctrl.Session().State())

	ctrl = it.controller()
	checkErr(t, api.Update(it.ctx, it.config, ctrl, it.writeImage(2048), it.apiOpts...))
	it.checkLastEvent(events.UpdateCompleted, true, rsu.CodeNone)
}

func TestErrors_ImageLoads(t *testing.T) {
	it := newIntegrationTest(t, string(doorbell.BoardN3000))

	err := api.Load(it.ctx, it.config, it.controller(), "fpga_user", it.apiOpts...)
	expectErr(t, err, rsu.ErrUnknownImage)
	it.checkLastEvent(events.ImageLoaded, false, rsu.CodeUnknownImage)

	ctrl, sim := it.faultyController(regport.SimBehavior{AckReads: 1, RebootDisabled: true})
	err = api.Load(it.ctx, it.config, ctrl, rsu.ImageBMCFactory, it.apiOpts...)
	expectErr(t, err, rsu.ErrBusy)
	assert.Empty(t, sim.Reboots())
	it.checkLastEvent(events.ImageLoaded, false, rsu.CodeBusy)

	ctrl, _ = it.faultyController(regport.SimBehavior{RetimerUnsupported: true})
	err = api.Load(it.ctx, it.config, ctrl, rsu.ImageRetimerFW, it.apiOpts...)
	expectErr(t, err, rsu.ErrTimeout)
	assert.ErrorIs(t, err, rsu.ErrNoFirmwareSupport)
	it.checkLastEvent(events.ImageLoaded, false, rsu.CodeTimeout)
}
