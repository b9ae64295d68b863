// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package doorbell decodes and encodes the RSU doorbell register of a MAX10 BMC.
//
// The doorbell is shared by host and device: the host requests an update and
// reports its own progress through the host status field, the device reports
// the update phase and the outcome of the last operation. All functions in this
// package are pure; register access belongs to the caller.
package doorbell

import "fmt"

const (
	RSURequestBit     uint32 = 1 << 0
	ProgressMask      uint32 = 0xf << progressShift
	HostStatusMask    uint32 = 0xf << hostStatusShift
	StatusMask        uint32 = 0xff << statusShift
	RetimerLoadBit    uint32 = 1 << 24
	ConfigSelBit      uint32 = 1 << 28
	RebootReqBit      uint32 = 1 << 29
	RebootDisabledBit uint32 = 1 << 30

	progressShift   = 4
	hostStatusShift = 8
	statusShift     = 16
)

type (
	// Progress is the update phase reported by the device.
	Progress uint8
	// Status is the outcome class reported by the device.
	Status uint8
	// HostStatus is the host side of the handshake.
	HostStatus uint8

	// Snapshot is one decoded read of the doorbell register.
	Snapshot struct {
		Raw            uint32
		Progress       Progress
		Status         Status
		HostStatus     HostStatus
		RSURequest     bool
		RetimerLoad    bool
		ConfigSel      uint8
		RebootRequest  bool
		RebootDisabled bool
	}
)

const (
	ProgressIdle           Progress = 0x0
	ProgressPrepare        Progress = 0x1
	ProgressReady          Progress = 0x3
	ProgressAuthenticating Progress = 0x4
	ProgressCopying        Progress = 0x5
	ProgressUpdateCancel   Progress = 0x6
	ProgressProgramKeyHash Progress = 0x7
	ProgressRsuDone        Progress = 0x8
	ProgressPkvlPromDone   Progress = 0x9
	ProgressUnknown        Progress = 0xff
)

const (
	StatusNormal         Status = 0x00
	StatusTimeout        Status = 0x01
	StatusAuthFail       Status = 0x02
	StatusCopyFail       Status = 0x03
	StatusFatal          Status = 0x04
	StatusPkvlReject     Status = 0x05
	StatusNonIncremental Status = 0x06
	StatusEraseFail      Status = 0x07
	StatusWearout        Status = 0x08
	StatusNiosOk         Status = 0x80
	StatusUserOk         Status = 0x81
	StatusFactoryOk      Status = 0x82
	StatusUserFail       Status = 0x83
	StatusFactoryFail    Status = 0x84
	StatusNiosFlashErr   Status = 0x85
	StatusFpgaFlashErr   Status = 0x86
	StatusUnknown        Status = 0xff
)

const (
	HostStatusIdle      HostStatus = 0x0
	HostStatusWriteDone HostStatus = 0x1
	HostStatusAbortRSU  HostStatus = 0x2
	HostStatusUnknown   HostStatus = 0xff
)

var (
	progressNames = map[Progress]string{
		ProgressIdle:           "idle",
		ProgressPrepare:        "preparing",
		ProgressReady:          "ready",
		ProgressAuthenticating: "authenticating",
		ProgressCopying:        "copying",
		ProgressUpdateCancel:   "update-cancel",
		ProgressProgramKeyHash: "programming-key-hash",
		ProgressRsuDone:        "rsu-done",
		ProgressPkvlPromDone:   "pkvl-prom-done",
	}
	statusNames = map[Status]string{
		StatusNormal:         "normal",
		StatusTimeout:        "timeout",
		StatusAuthFail:       "auth-fail",
		StatusCopyFail:       "copy-fail",
		StatusFatal:          "fatal",
		StatusPkvlReject:     "pkvl-reject",
		StatusNonIncremental: "non-incremental",
		StatusEraseFail:      "erase-fail",
		StatusWearout:        "wearout",
		StatusNiosOk:         "nios-ok",
		StatusUserOk:         "user-ok",
		StatusFactoryOk:      "factory-ok",
		StatusUserFail:       "user-fail",
		StatusFactoryFail:    "factory-fail",
		StatusNiosFlashErr:   "nios-flash-error",
		StatusFpgaFlashErr:   "fpga-flash-error",
	}
	hostStatusNames = map[HostStatus]string{
		HostStatusIdle:      "idle",
		HostStatusWriteDone: "write-done",
		HostStatusAbortRSU:  "abort-rsu",
	}
)

// Decode splits a raw doorbell value into its fields. Field values the
// protocol does not define decode to the corresponding Unknown variant.
func Decode(raw uint32) Snapshot {
	return Snapshot{
		Raw:            raw,
		Progress:       ProgressOf(raw),
		Status:         StatusOf(raw),
		HostStatus:     HostStatusOf(raw),
		RSURequest:     raw&RSURequestBit != 0,
		RetimerLoad:    raw&RetimerLoadBit != 0,
		ConfigSel:      uint8((raw & ConfigSelBit) >> 28),
		RebootRequest:  raw&RebootReqBit != 0,
		RebootDisabled: raw&RebootDisabledBit != 0,
	}
}

func ProgressOf(raw uint32) Progress {
	p := Progress((raw & ProgressMask) >> progressShift)
	if _, ok := progressNames[p]; !ok {
		return ProgressUnknown
	}
	return p
}

func StatusOf(raw uint32) Status {
	s := Status((raw & StatusMask) >> statusShift)
	if _, ok := statusNames[s]; !ok {
		return StatusUnknown
	}
	return s
}

func HostStatusOf(raw uint32) HostStatus {
	h := HostStatus((raw & HostStatusMask) >> hostStatusShift)
	if _, ok := hostStatusNames[h]; !ok {
		return HostStatusUnknown
	}
	return h
}

func (p Progress) String() string {
	if n, ok := progressNames[p]; ok {
		return n
	}
	return "unknown"
}

// IsOneOf reports whether p equals any of the given phases.
func (p Progress) IsOneOf(phases ...Progress) bool {
	for _, ph := range phases {
		if p == ph {
			return true
		}
	}
	return false
}

// Quiescent reports whether no update is running on the device.
func (p Progress) Quiescent() bool {
	return p == ProgressIdle || p == ProgressRsuDone
}

// InProgress reports whether the device is still working on a staged image.
func (p Progress) InProgress() bool {
	return p.IsOneOf(ProgressAuthenticating, ProgressCopying, ProgressUpdateCancel, ProgressProgramKeyHash)
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// IsOK reports whether s is one of the statuses the device uses for a healthy update.
func (s Status) IsOK() bool {
	switch s {
	case StatusNormal, StatusNiosOk, StatusUserOk, StatusFactoryOk:
		return true
	}
	return false
}

func (h HostStatus) String() string {
	if n, ok := hostStatusNames[h]; ok {
		return n
	}
	return "unknown"
}

func (s Snapshot) String() string {
	return fmt.Sprintf("0x%08x (progress=%s status=%s host=%s request=%t)",
		s.Raw, s.Progress, s.Status, s.HostStatus, s.RSURequest)
}
