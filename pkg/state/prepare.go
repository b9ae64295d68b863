// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import (
	"context"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/rs/zerolog/log"
)

type Prepare struct{}

func (s *Prepare) Name() ActionName { return "Preparing" }
func (s *Prepare) Execute(ctx context.Context, updateCtx *UpdateContext) error {
	updateCtx.SendEvent(events.UpdateStarted)
	err := updateCtx.Controller.Session().Prepare(ctx, updateCtx.Size)
	if rsu.IsAdvisory(err) {
		// The staging area is ready; the flash is only getting old
		log.Warn().Err(err).Msg("continuing update despite flash wear-out")
		updateCtx.Wearout = true
		err = nil
	}
	if err == nil {
		updateCtx.Prepared = true
	}
	return err
}
