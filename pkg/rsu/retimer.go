// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package rsu

import (
	"context"
	"fmt"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/foundriesio/bmcrsu/pkg/poll"
	"github.com/pkg/errors"
)

// ReloadRetimer asks the BMC to program the PKVL retimers from the image held in
// their EEPROM and waits until both retimers report the new firmware.
func (c *Controller) ReloadRetimer(ctx context.Context) error {
	const op = "retimer reload"
	if !c.csr.HasRetimer() {
		return newError(op, ErrInvalidArgument, nil, fmt.Errorf("board %s has no retimers", c.csr.Board))
	}

	if err := c.fw.Enter(FwStateSecUpdate); err != nil {
		return newError(op, ErrBusy, nil, err)
	}
	defer c.fw.Exit()

	snap, err := c.ReadDoorbell()
	if err != nil {
		return err
	}
	if !snap.Progress.IsOneOf(doorbell.ProgressIdle, doorbell.ProgressRsuDone, doorbell.ProgressPkvlPromDone) {
		return newError(op, ErrBusy, &snap, nil)
	}

	if err := c.updateDoorbell(op, doorbell.TriggerRetimerLoad()); err != nil {
		return err
	}
	snap, err = c.pollDoorbell(ctx, func(snap doorbell.Snapshot) bool {
		return !snap.RetimerLoad
	}, c.timeouts.RetimerTrigger)
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			if cerr := c.updateDoorbell(op, doorbell.ClearRetimerLoad()); cerr != nil {
				c.logger.Warn().Err(cerr).Msg("unable to clear retimer load request")
			}
			return newError(op, ErrTimeout, &snap, ErrNoFirmwareSupport)
		}
		return pollError(op, err, snap)
	}

	snap, err = c.pollDoorbell(ctx, func(snap doorbell.Snapshot) bool {
		return snap.Progress == doorbell.ProgressPkvlPromDone || snap.Status == doorbell.StatusPkvlReject
	}, c.timeouts.RetimerPreload)
	if err != nil {
		c.logErrorRegs(snap)
		return pollError(op, err, snap)
	}
	if snap.Status == doorbell.StatusPkvlReject {
		return newError(op, ErrCanceled, &snap, fmt.Errorf("duplicate image rejected"))
	}

	ctrl, err := poll.Until(ctx, func() (uint32, error) {
		v, err := c.port.Read(c.csr.RetimerPollCtrlReg())
		if err != nil {
			return 0, newError(op, ErrRW, nil, err)
		}
		return v, nil
	}, doorbell.RetimerPreloadDone, c.timeouts.RetimerPreload, c.pollOpts...)
	if err != nil {
		return pollError(op, err, snap)
	}
	if st := doorbell.RetimerUpgradeStatus(ctrl); st != doorbell.RetimerUpgStatusGoodVal {
		return newError(op, ErrHardware, nil, fmt.Errorf("retimer upgrade status 0x%04x", st))
	}
	c.logger.Info().Msg("retimer firmware loaded")
	return nil
}
