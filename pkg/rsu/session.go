// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package rsu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/pkg/errors"
)

// State is the host-side view of an update session.
type State string

const (
	StateIdle       State = "idle"
	StatePreparing  State = "preparing"
	StateReady      State = "ready"
	StateWriting    State = "writing"
	StateCompleting State = "completing"
	StateDone       State = "done"
	StateFailed     State = "failed"
	StateCanceled   State = "canceled"
)

// Session is the single update session of a Controller.
//
// Prepare, Write, PollComplete and Cleanup are called sequentially by one
// driving goroutine. Cancel may be called concurrently from anywhere; it never
// touches the registers. The driving goroutine observes the request at the
// start of its next operation, so at most one register operation already in
// flight completes after Cancel returns.
type Session struct {
	c *Controller

	cancelRequested atomic.Bool

	mu         sync.Mutex
	state      State
	result     error
	activeFlow string
}

func newSession(c *Controller) *Session {
	return &Session{c: c, state: StateIdle}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the error the session terminated with, nil while it is running
// or after it succeeded.
func (s *Session) Result() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SetActiveFlow records the device flow the caller is about to run.
func (s *Session) SetActiveFlow(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeFlow = name
}

func (s *Session) ActiveFlow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeFlow
}

func (s *Session) CancelRequested() bool {
	return s.cancelRequested.Load()
}

func (s *Session) setState(st State, result error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.result = result
}

// active reports whether a Prepare/Write/PollComplete sequence owns the session.
func (st State) active() bool {
	switch st {
	case StatePreparing, StateReady, StateWriting, StateCompleting:
		return true
	}
	return false
}

// claim moves an inactive session to Preparing.
func (s *Session) claim() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.active() {
		return s.state, false
	}
	s.state = StatePreparing
	s.result = nil
	return s.state, true
}

func (s *Session) finish(err error) error {
	switch {
	case err == nil:
		s.setState(StateDone, nil)
	case errors.Is(err, ErrCanceled):
		s.setState(StateCanceled, err)
	default:
		s.setState(StateFailed, err)
	}
	return err
}

// Prepare checks that the device is idle, requests an update and waits until
// the staging area is erased and the device is ready to receive size bytes.
//
// A nil error or ErrWearout leaves the session Ready; ErrWearout only reports
// that the flash has seen an excessive number of update cycles. A call turned
// away with ErrInvalidSize or ErrBusy leaves the session as it was.
func (s *Session) Prepare(ctx context.Context, size int) error {
	csr := s.c.csr
	if size <= 0 || size%int(csr.Stride) != 0 || size > int(csr.StagingSize) {
		return newError("prepare", ErrInvalidSize, nil,
			fmt.Errorf("%d bytes; must be a non-zero multiple of %d up to %d", size, csr.Stride, csr.StagingSize))
	}
	if st := s.State(); st.active() {
		return newError("prepare", ErrBusy, nil, fmt.Errorf("session is %s", st))
	}

	snap, err := s.c.ReadDoorbell()
	if err != nil {
		return err
	}
	if !snap.Progress.Quiescent() {
		s.c.logErrorRegs(snap)
		return newError("prepare", ErrBusy, &snap, nil)
	}

	if err := s.c.fw.Enter(FwStateSecUpdate); err != nil {
		return newError("prepare", ErrBusy, nil, err)
	}
	defer s.c.fw.Exit()

	// Rejections above leave a session owned by another caller untouched.
	if st, ok := s.claim(); !ok {
		return newError("prepare", ErrBusy, nil, fmt.Errorf("session is %s", st))
	}
	s.cancelRequested.Store(false)

	wearout, err := s.updateInit(ctx)
	if err != nil {
		return s.finish(err)
	}
	if err := s.progReady(ctx); err != nil {
		return s.finish(err)
	}

	s.setState(StateReady, nil)
	if wearout {
		return newError("prepare", ErrWearout, nil, nil)
	}
	return nil
}

func rsuStartDone(snap doorbell.Snapshot) bool {
	if snap.RSURequest {
		return false
	}
	if snap.Status == doorbell.StatusEraseFail || snap.Status == doorbell.StatusWearout {
		return true
	}
	return !snap.Progress.Quiescent()
}

func (s *Session) updateInit(ctx context.Context) (wearout bool, err error) {
	if err := s.c.updateDoorbell("prepare", doorbell.RequestRSU()); err != nil {
		return false, err
	}
	snap, err := s.c.pollDoorbell(ctx, rsuStartDone, s.c.timeouts.Handshake)
	if err != nil {
		s.c.logErrorRegs(snap)
		return false, pollError("prepare", err, snap)
	}

	switch snap.Status {
	case doorbell.StatusWearout:
		s.c.logger.Warn().Msg("Excessive flash update count detected")
		return true, nil
	case doorbell.StatusEraseFail:
		s.c.logErrorRegs(snap)
		return false, newError("prepare", ErrHardware, &snap, nil)
	}
	return false, nil
}

func (s *Session) progReady(ctx context.Context) error {
	snap, err := s.c.pollDoorbell(ctx, func(snap doorbell.Snapshot) bool {
		return snap.Progress != doorbell.ProgressPrepare
	}, s.c.timeouts.Prepare)
	if err != nil {
		s.c.logErrorRegs(snap)
		return pollError("prepare", err, snap)
	}
	if snap.Progress != doorbell.ProgressReady {
		s.c.logErrorRegs(snap)
		return newError("prepare", ErrHardware, &snap, nil)
	}
	s.c.logger.Debug().Str("doorbell", snap.String()).Msg("staging area ready")
	return nil
}

// Write transfers the next block of data, starting at offset, into the staging
// area and returns the number of bytes written. At most one write block is
// transferred per call; the caller loops until the whole image is staged.
func (s *Session) Write(ctx context.Context, data []byte, offset int) (int, error) {
	if s.cancelRequested.Load() {
		return 0, s.finish(s.cancel("write"))
	}
	if st := s.State(); st != StateReady && st != StateWriting {
		return 0, newError("write", ErrBusy, nil, fmt.Errorf("session is %s", st))
	}
	if offset < 0 || offset >= len(data) {
		return 0, newError("write", ErrInvalidSize, nil, fmt.Errorf("offset %d outside of %d byte image", offset, len(data)))
	}

	snap, err := s.c.ReadDoorbell()
	if err != nil {
		return 0, s.finish(err)
	}
	if snap.Progress != doorbell.ProgressReady {
		s.c.logErrorRegs(snap)
		return 0, s.finish(s.resolve("write", newError("write", ErrHardware, &snap, nil)))
	}

	blk := min(int(s.c.csr.WriteBlockSize), len(data)-offset)
	if offset+blk > int(s.c.csr.StagingSize) {
		return 0, s.finish(newError("write", ErrInvalidSize, nil,
			fmt.Errorf("block at %d exceeds staging capacity %d", offset, s.c.csr.StagingSize)))
	}
	if err := s.c.port.BulkWrite(uint32(offset), data[offset:offset+blk]); err != nil {
		return 0, s.finish(newError("write", ErrRW, nil, err))
	}
	s.setState(StateWriting, nil)
	return blk, nil
}

// PollComplete tells the device that the image is staged and waits for it to
// authenticate and program the image.
func (s *Session) PollComplete(ctx context.Context) error {
	if s.cancelRequested.Load() {
		return s.finish(s.cancel("poll complete"))
	}
	if st := s.State(); st != StateReady && st != StateWriting {
		return newError("poll complete", ErrBusy, nil, fmt.Errorf("session is %s", st))
	}

	if err := s.c.fw.Enter(FwStateSecUpdate); err != nil {
		return newError("poll complete", ErrBusy, nil, err)
	}
	defer s.c.fw.Exit()

	s.setState(StateCompleting, nil)
	err := s.sendData(ctx)
	if err == nil {
		err = s.waitComplete(ctx)
	}
	if err != nil {
		return s.finish(s.resolve("poll complete", err))
	}
	return s.finish(nil)
}

func (s *Session) sendData(ctx context.Context) error {
	if err := s.c.updateDoorbell("poll complete", doorbell.SetHostStatus(doorbell.HostStatusWriteDone)); err != nil {
		return err
	}
	snap, err := s.c.pollDoorbell(ctx, func(snap doorbell.Snapshot) bool {
		return snap.Progress != doorbell.ProgressReady
	}, s.c.timeouts.Handshake)
	if err != nil {
		s.c.logErrorRegs(snap)
		return pollError("poll complete", err, snap)
	}
	if !snap.Status.IsOK() {
		s.c.logErrorRegs(snap)
		return newError("poll complete", ErrHardware, &snap, nil)
	}
	return nil
}

func (s *Session) waitComplete(ctx context.Context) error {
	last := doorbell.ProgressUnknown
	snap, err := s.c.pollDoorbell(ctx, func(snap doorbell.Snapshot) bool {
		if snap.Progress != last {
			s.c.logger.Debug().Str("doorbell", snap.String()).Msg("update phase")
			last = snap.Progress
		}
		return !snap.Status.IsOK() || !snap.Progress.InProgress()
	}, s.c.timeouts.Complete)
	if err != nil {
		if errors.Is(err, ErrRW) {
			return err
		}
		s.c.logErrorRegs(snap)
		return pollError("poll complete", err, snap)
	}
	if !snap.Status.IsOK() || !snap.Progress.Quiescent() {
		s.c.logErrorRegs(snap)
		return newError("poll complete", ErrHardware, &snap, nil)
	}
	return nil
}

// Cancel requests cancellation of the update. It performs no register access
// and may be called from any goroutine.
func (s *Session) Cancel() {
	s.cancelRequested.Store(true)
}

// Cleanup returns a device left in the Ready phase to idle. It is best effort
// and always leaves the session Idle.
func (s *Session) Cleanup(_ context.Context) {
	if err := s.cancel("cleanup"); err != nil && !errors.Is(err, ErrCanceled) {
		s.c.logger.Debug().Err(err).Msg("cleanup did not abort the device")
	}
	s.setState(StateIdle, nil)
}

// cancel aborts an update parked in the Ready phase. The device cannot be
// preempted once authentication or copying started.
func (s *Session) cancel(op string) error {
	snap, err := s.c.ReadDoorbell()
	if err != nil {
		return err
	}
	if snap.Progress != doorbell.ProgressReady {
		return newError(op, ErrBusy, &snap, fmt.Errorf("device cannot abort while %s", snap.Progress))
	}
	if err := s.c.updateDoorbell(op, doorbell.SetHostStatus(doorbell.HostStatusAbortRSU)); err != nil {
		return err
	}
	s.c.logger.Info().Str("op", op).Msg("update aborted")
	return newError(op, ErrCanceled, nil, nil)
}

// resolve reports a hardware failure observed after a cancel request as a cancellation.
func (s *Session) resolve(op string, err error) error {
	if s.cancelRequested.Load() && errors.Is(err, ErrHardware) {
		return newError(op, ErrCanceled, nil, fmt.Errorf("device failure after cancel request: %s", err))
	}
	return err
}
