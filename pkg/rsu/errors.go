// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package rsu

import (
	"context"
	"fmt"
	"strings"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/pkg/errors"
)

// Every error returned by this package wraps exactly one of these.
var (
	ErrRW          = errors.New("register access failed")
	ErrBusy        = errors.New("device busy")
	ErrTimeout     = errors.New("timed out")
	ErrInvalidSize = errors.New("invalid image size")
	ErrHardware    = errors.New("hardware error")
	ErrWearout     = errors.New("excessive flash update count")
	ErrCanceled    = errors.New("update canceled")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownImage    = errors.New("unknown image")
)

// ErrNoFirmwareSupport is the cause attached to a timeout when the BMC firmware
// never acknowledges a request it does not implement.
var ErrNoFirmwareSupport = errors.New("not supported by the BMC firmware")

type (
	// Code is the stable name of an error class, used in journals and exit codes.
	Code string

	// Error is a failed RSU operation.
	Error struct {
		Op       string
		Kind     error
		Doorbell *doorbell.Snapshot
		Err      error
	}
)

const (
	CodeNone            Code = ""
	CodeRW              Code = "rw-error"
	CodeBusy            Code = "busy"
	CodeTimeout         Code = "timeout"
	CodeInvalidSize     Code = "invalid-size"
	CodeHardware        Code = "hw-error"
	CodeWearout         Code = "wearout"
	CodeCanceled        Code = "canceled"
	CodeInvalidArgument Code = "invalid-argument"
	CodeUnknownImage    Code = "unknown-image"
)

var codes = []struct {
	kind error
	code Code
}{
	{ErrCanceled, CodeCanceled},
	{ErrRW, CodeRW},
	{ErrBusy, CodeBusy},
	{ErrTimeout, CodeTimeout},
	{ErrInvalidSize, CodeInvalidSize},
	{ErrHardware, CodeHardware},
	{ErrWearout, CodeWearout},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrUnknownImage, CodeUnknownImage},
}

func newError(op string, kind error, snap *doorbell.Snapshot, cause error) error {
	return &Error{Op: op, Kind: kind, Doorbell: snap, Err: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	if e.Doorbell != nil {
		fmt.Fprintf(&b, " (doorbell %s)", e.Doorbell)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// CodeOf returns the class of err, or CodeNone for nil and foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return CodeNone
}

// DoorbellOf returns the doorbell snapshot attached to err, if any.
func DoorbellOf(err error) (doorbell.Snapshot, bool) {
	var e *Error
	if errors.As(err, &e) && e.Doorbell != nil {
		return *e.Doorbell, true
	}
	return doorbell.Snapshot{}, false
}

// IsAdvisory reports whether err leaves the session usable. Only wear-out is advisory.
func IsAdvisory(err error) bool {
	return errors.Is(err, ErrWearout)
}

func snapshotPtr(s doorbell.Snapshot) *doorbell.Snapshot {
	return &s
}

// pollError maps a failed poll onto the taxonomy. Register read errors already
// carry ErrRW; a done context means the caller is shutting down.
func pollError(op string, err error, snap doorbell.Snapshot) error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(op, ErrCanceled, snapshotPtr(snap), err)
	default:
		return newError(op, ErrTimeout, snapshotPtr(snap), err)
	}
}
