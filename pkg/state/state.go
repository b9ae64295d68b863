// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/internal/metrics"
	"github.com/foundriesio/bmcrsu/pkg/config"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/rs/zerolog/log"
)

type (
	// ActionName Name of the state action
	ActionName string
	// ActionState interface for all states
	ActionState interface {
		Name() ActionName
		Execute(ctx context.Context, updateCtx *UpdateContext) error
	}

	// EventJournal stores update events
	EventJournal interface {
		Record(eventType events.EventTypeValue, evt events.BmcEvent) error
	}

	// ProgressHandler is called after every block written into the staging area
	ProgressHandler func(staged, total int)

	UpdateInfo struct {
		TotalStates     int
		CurrentStateNum int
		CurrentState    ActionName
		ImageName       string
		Size            int
		Staged          int
		Wearout         bool
		Prepared        bool
		StartedAt       time.Time
		CompletedAt     time.Time
	}

	// UpdateContext holds the state machine context
	UpdateContext struct {
		UpdateInfo

		Config        *config.Config
		Controller    *rsu.Controller
		Journal       EventJournal
		Metrics       *metrics.Metrics
		Host          string
		CorrelationId string
		Image         []byte
	}
)

// SendEvent journals event. Journal failures are logged and never fail the update.
func (u *UpdateContext) SendEvent(event events.EventTypeValue, eventErr ...error) {
	if u.Journal == nil {
		return
	}
	evt := events.BmcEvent{
		CorrelationId: u.CorrelationId,
		Board:         string(u.Controller.CSRMap().Board),
		Image:         u.ImageName,
		Size:          u.Size,
		Host:          u.Host,
	}
	if len(eventErr) > 0 {
		err := eventErr[0]
		evt.Success = events.BoolPointer(err == nil)
		evt.Code = string(rsu.CodeOf(err))
		if snap, ok := rsu.DoorbellOf(err); ok {
			evt.Doorbell = snap.String()
		}
		evt.Details = u.getEventDetails(err)
	}
	if err := u.Journal.Record(event, evt); err != nil {
		log.Err(err).Str("event", string(event)).Msg("failed to record event")
	}
}

func (u *UpdateContext) getEventDetails(eventError error) string {
	type updateDetails struct {
		State   ActionName `json:"state"`
		Staged  int        `json:"staged"`
		Wearout bool       `json:"wearout,omitempty"`
		Error   string     `json:"error,omitempty"`
	}
	details := updateDetails{
		State:   u.CurrentState,
		Staged:  u.Staged,
		Wearout: u.Wearout,
	}
	if eventError != nil {
		details.Error = eventError.Error()
	}
	detailsByte, _ := json.Marshal(details)
	return string(detailsByte)
}
