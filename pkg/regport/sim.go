// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package regport

import (
	"sync"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/pkg/errors"
)

type (
	// SimBehavior shapes how the simulated controller answers the host.
	// Delays are counted in doorbell reads.
	SimBehavior struct {
		AckReads     int
		PrepareReads int
		AuthReads    int
		CopyReads    int

		Wearout      bool
		EraseFail    bool
		StuckPrepare bool
		AuthFail     bool
		// BadPhaseAfterAuth makes the device report an undefined phase once
		// authentication finishes.
		BadPhaseAfterAuth bool

		RetimerUnsupported bool
		RetimerDuplicate   bool
		RetimerBadStatus   bool
		RebootDisabled     bool

		ReadErr  error
		WriteErr error
	}

	// Sim is a software model of the controller's RSU state machine.
	Sim struct {
		mu       sync.Mutex
		csr      doorbell.CSRMap
		behavior SimBehavior
		regs     map[uint32]uint32
		pending  []simStep
		staging  []byte
		fifoPos  int

		doorbellReads int
		bulkWrites    []Write
		reboots       []uint8
	}

	// Write records one staging transfer.
	Write struct {
		Offset uint32
		Len    int
	}

	simStep struct {
		reads int
		apply func()
	}
)

var ErrSimFault = errors.New("simulated register access fault")

func NewSim(csr doorbell.CSRMap) *Sim {
	return NewSimWithBehavior(csr, SimBehavior{AckReads: 1, PrepareReads: 2, AuthReads: 2, CopyReads: 2})
}

func NewSimWithBehavior(csr doorbell.CSRMap, b SimBehavior) *Sim {
	s := &Sim{
		csr:      csr,
		behavior: b,
		regs:     map[uint32]uint32{},
	}
	if b.RebootDisabled {
		s.regs[csr.DoorbellReg()] |= doorbell.RebootDisabledBit
	}
	return s
}

func (s *Sim) Read(reg uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.behavior.ReadErr != nil {
		return 0, s.behavior.ReadErr
	}
	if reg == s.csr.DoorbellReg() {
		s.doorbellReads++
		s.advance()
	}
	return s.regs[reg], nil
}

func (s *Sim) UpdateBits(reg, mask, val uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.behavior.WriteErr != nil {
		return s.behavior.WriteErr
	}
	before := s.regs[reg]
	after := doorbell.Field{Mask: mask, Value: val}.Apply(before)
	s.regs[reg] = after
	if reg == s.csr.DoorbellReg() {
		s.react(doorbell.Decode(before), doorbell.Decode(after), mask)
	}
	return nil
}

func (s *Sim) BulkWrite(offset uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.behavior.WriteErr != nil {
		return s.behavior.WriteErr
	}
	s.store(int(offset), data)
	s.bulkWrites = append(s.bulkWrites, Write{Offset: offset, Len: len(data)})
	return nil
}

// WriteFIFOWord appends one word to the staging area the way a flash FIFO does.
func (s *Sim) WriteFIFOWord(w uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.behavior.WriteErr != nil {
		return s.behavior.WriteErr
	}
	s.store(s.fifoPos, []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)})
	s.fifoPos += 4
	return nil
}

// SetDoorbell forces the raw doorbell value, e.g. to model a controller left busy.
func (s *Sim) SetDoorbell(raw uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[s.csr.DoorbellReg()] = raw
	s.pending = nil
}

func (s *Sim) SetReg(reg, val uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[reg] = val
}

func (s *Sim) Doorbell() doorbell.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return doorbell.Decode(s.regs[s.csr.DoorbellReg()])
}

func (s *Sim) Staging() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.staging...)
}

func (s *Sim) BulkWrites() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.bulkWrites...)
}

// Reboots returns the flash configurations the BMC was asked to reboot into.
func (s *Sim) Reboots() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint8(nil), s.reboots...)
}

func (s *Sim) DoorbellReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doorbellReads
}

func (s *Sim) store(offset int, data []byte) {
	if end := offset + len(data); end > len(s.staging) {
		s.staging = append(s.staging, make([]byte, end-len(s.staging))...)
	}
	copy(s.staging[offset:], data)
}

func (s *Sim) advance() {
	if len(s.pending) == 0 {
		return
	}
	head := &s.pending[0]
	if head.reads > 0 {
		head.reads--
	}
	if head.reads == 0 {
		s.pending = s.pending[1:]
		head.apply()
	}
}

func (s *Sim) schedule(reads int, apply func()) {
	s.pending = append(s.pending, simStep{reads: reads, apply: apply})
}

func (s *Sim) set(f doorbell.Field) {
	reg := s.csr.DoorbellReg()
	s.regs[reg] = f.Apply(s.regs[reg])
}

func progress(p doorbell.Progress) doorbell.Field {
	return doorbell.Field{Mask: doorbell.ProgressMask, Value: uint32(p) << 4}
}

func status(st doorbell.Status) doorbell.Field {
	return doorbell.Field{Mask: doorbell.StatusMask, Value: uint32(st) << 16}
}

func (s *Sim) react(before, after doorbell.Snapshot, mask uint32) {
	b := s.behavior
	switch {
	case !before.RSURequest && after.RSURequest:
		s.schedule(b.AckReads, func() {
			s.set(doorbell.Field{Mask: doorbell.RSURequestBit})
			switch {
			case b.EraseFail:
				s.set(status(doorbell.StatusEraseFail))
				return
			case b.Wearout:
				s.set(status(doorbell.StatusWearout))
			default:
				s.set(status(doorbell.StatusNormal))
			}
			s.set(progress(doorbell.ProgressPrepare))
			if b.StuckPrepare {
				return
			}
			s.schedule(b.PrepareReads, func() { s.set(progress(doorbell.ProgressReady)) })
		})
	case mask&doorbell.HostStatusMask != 0 && after.HostStatus == doorbell.HostStatusWriteDone &&
		before.Progress == doorbell.ProgressReady:
		s.schedule(b.AckReads, func() {
			if b.AuthFail {
				s.set(status(doorbell.StatusAuthFail))
				s.set(progress(doorbell.ProgressIdle))
				return
			}
			s.set(status(doorbell.StatusNormal))
			s.set(progress(doorbell.ProgressAuthenticating))
			s.schedule(b.AuthReads, func() {
				if b.BadPhaseAfterAuth {
					s.set(doorbell.Field{Mask: doorbell.ProgressMask, Value: 0xa << 4})
					return
				}
				s.set(progress(doorbell.ProgressCopying))
				s.schedule(b.CopyReads, func() {
					s.set(progress(doorbell.ProgressRsuDone))
					s.set(doorbell.SetHostStatus(doorbell.HostStatusIdle))
				})
			})
		})
	case mask&doorbell.HostStatusMask != 0 && after.HostStatus == doorbell.HostStatusAbortRSU &&
		before.Progress == doorbell.ProgressReady:
		s.schedule(b.AckReads, func() {
			s.set(progress(doorbell.ProgressIdle))
			s.set(doorbell.SetHostStatus(doorbell.HostStatusIdle))
		})
	case !before.RetimerLoad && after.RetimerLoad:
		if b.RetimerUnsupported {
			return
		}
		s.schedule(b.AckReads, func() {
			s.set(doorbell.ClearRetimerLoad())
			s.schedule(b.CopyReads, func() {
				if b.RetimerDuplicate {
					s.set(status(doorbell.StatusPkvlReject))
					return
				}
				s.set(progress(doorbell.ProgressPkvlPromDone))
				ctrl := doorbell.RetimerPreloadBit | doorbell.RetimerUpgStatusGood
				if b.RetimerBadStatus {
					ctrl = doorbell.RetimerPreloadBit | 0x00030000
				}
				s.regs[s.csr.RetimerPollCtrlReg()] = ctrl
			})
		})
	case !before.RebootRequest && after.RebootRequest:
		s.reboots = append(s.reboots, after.ConfigSel)
		s.schedule(b.AckReads, func() {
			s.set(doorbell.Field{Mask: doorbell.RebootReqBit})
		})
	}
}
