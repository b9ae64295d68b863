// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import (
	"context"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/rs/zerolog/log"
)

type Stage struct {
	ProgressHandler ProgressHandler
}

func (s *Stage) Name() ActionName { return "Staging" }
func (s *Stage) Execute(ctx context.Context, updateCtx *UpdateContext) error {
	updateCtx.SendEvent(events.StagingStarted)
	session := updateCtx.Controller.Session()
	for updateCtx.Staged < len(updateCtx.Image) {
		n, err := session.Write(ctx, updateCtx.Image, updateCtx.Staged)
		if err != nil {
			return err
		}
		updateCtx.Staged += n
		if s.ProgressHandler != nil {
			s.ProgressHandler(updateCtx.Staged, len(updateCtx.Image))
		}
	}
	log.Debug().Int("bytes", updateCtx.Staged).Msg("image staged")
	return nil
}
