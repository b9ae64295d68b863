// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventTypeValue string

const (
	UpdateStarted   EventTypeValue = "BmcUpdateStarted"
	StagingStarted  EventTypeValue = "BmcStagingStarted"
	UpdateCompleted EventTypeValue = "BmcUpdateCompleted"
	ImageLoaded     EventTypeValue = "BmcImageLoaded"
	CancelRequested EventTypeValue = "BmcCancelRequested"
)

type BmcEvent struct {
	CorrelationId string `json:"correlationId"`
	Success       *bool  `json:"success"`
	Board         string `json:"board"`
	Image         string `json:"image"`
	Size          int    `json:"size,omitempty"`
	Code          string `json:"code,omitempty"`
	Doorbell      string `json:"doorbell,omitempty"`
	Host          string `json:"host,omitempty"`
	Details       string `json:"details,omitempty"`
}
type BmcEventType struct {
	Id      EventTypeValue `json:"id"`
	Version int            `json:"version"`
}
type BmcUpdateEvent struct {
	Id         string       `json:"id"`
	DeviceTime string       `json:"deviceTime"`
	Event      BmcEvent     `json:"event"`
	EventType  BmcEventType `json:"eventType"`
}

// NewEvent stamps evt with a time-ordered id and the current device time.
func NewEvent(eventType EventTypeValue, evt BmcEvent) *BmcUpdateEvent {
	now := time.Now()
	return &BmcUpdateEvent{
		Id:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		DeviceTime: now.Format(time.RFC3339),
		Event:      evt,
		EventType: BmcEventType{
			Id:      eventType,
			Version: 0,
		},
	}
}

func BoolPointer(b bool) *bool {
	return &b
}
