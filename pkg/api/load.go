// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"context"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/internal/hostinfo"
	"github.com/foundriesio/bmcrsu/pkg/config"
	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Load makes the named image active, e.g. reboots the BMC into its user image.
func Load(ctx context.Context, cfg *config.Config, ctrl *rsu.Controller, name string, options ...UpdateOpt) error {
	opts := getUpdateOpts(options...)
	m, flush := opts.metrics(cfg)
	defer flush()

	err := ctrl.ImageLoads().Load(ctx, name)

	board := string(ctrl.CSRMap().Board)
	if m != nil {
		m.ObserveImageLoad(board, name, string(rsu.CodeOf(err)))
	}
	if j := opts.journal(cfg); j != nil {
		evt := events.BmcEvent{
			CorrelationId: uuid.New().String(),
			Success:       events.BoolPointer(err == nil),
			Board:         board,
			Image:         name,
			Code:          string(rsu.CodeOf(err)),
			Host:          hostinfo.Read(opts.OSRelease).String(),
		}
		if err != nil {
			evt.Details = err.Error()
		}
		if snap, ok := rsu.DoorbellOf(err); ok {
			evt.Doorbell = snap.String()
		}
		if jerr := j.Record(events.ImageLoaded, evt); jerr != nil {
			log.Err(jerr).Msg("failed to record event")
		}
	}
	return err
}

// Images lists the image loads available on the board.
func Images(ctrl *rsu.Controller) []string {
	return ctrl.ImageLoads().Names()
}

// Status reads the current doorbell register.
func Status(ctrl *rsu.Controller) (doorbell.Snapshot, error) {
	return ctrl.ReadDoorbell()
}

// History returns the journaled events, restricted to one update when correlationId is set.
func History(cfg *config.Config, correlationId string) ([]events.BmcUpdateEvent, error) {
	evts, _, err := events.GetEvents(cfg.GetDBPath(), correlationId)
	return evts, err
}

// PruneHistory drops journaled events up to and including maxId.
func PruneHistory(cfg *config.Config, maxId int) error {
	return events.DeleteEvents(cfg.GetDBPath(), maxId)
}
