// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package doorbell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	s := Decode(0x00800231)
	assert.Equal(t, ProgressReady, s.Progress)
	assert.Equal(t, StatusNiosOk, s.Status)
	assert.Equal(t, HostStatusAbortRSU, s.HostStatus)
	assert.True(t, s.RSURequest)
	assert.False(t, s.RebootDisabled)

	s = Decode(RebootDisabledBit | ConfigSelBit | RetimerLoadBit)
	assert.True(t, s.RebootDisabled)
	assert.True(t, s.RetimerLoad)
	assert.Equal(t, uint8(1), s.ConfigSel)
	assert.Equal(t, ProgressIdle, s.Progress)
}

func TestDecode_Unknown(t *testing.T) {
	// phase 0x2 and 0xa-0xf are not defined by the protocol
	for _, p := range []uint32{0x2, 0xa, 0xf} {
		assert.Equal(t, ProgressUnknown, ProgressOf(p<<4), "progress 0x%x", p)
	}
	assert.Equal(t, StatusUnknown, StatusOf(0x42<<16))
	assert.Equal(t, HostStatusUnknown, HostStatusOf(0x7<<8))
	assert.Equal(t, "unknown", ProgressUnknown.String())
	assert.False(t, StatusUnknown.IsOK())
}

func TestProgressClasses(t *testing.T) {
	assert.True(t, ProgressIdle.Quiescent())
	assert.True(t, ProgressRsuDone.Quiescent())
	assert.False(t, ProgressReady.Quiescent())
	for _, p := range []Progress{ProgressAuthenticating, ProgressCopying, ProgressUpdateCancel, ProgressProgramKeyHash} {
		assert.True(t, p.InProgress(), p.String())
	}
	assert.False(t, ProgressPkvlPromDone.InProgress())
	assert.False(t, ProgressUnknown.InProgress())
}

func TestStatusIsOK(t *testing.T) {
	for _, s := range []Status{StatusNormal, StatusNiosOk, StatusUserOk, StatusFactoryOk} {
		assert.True(t, s.IsOK(), s.String())
	}
	for _, s := range []Status{StatusEraseFail, StatusWearout, StatusPkvlReject, StatusAuthFail, StatusFatal} {
		assert.False(t, s.IsOK(), s.String())
	}
}

func TestFieldEncoders(t *testing.T) {
	// an update must only touch the bits of its own field
	raw := uint32(0x00800231) | RebootDisabledBit
	got := RequestRSU().Apply(raw)
	assert.Equal(t, HostStatusIdle, HostStatusOf(got))
	assert.True(t, Decode(got).RSURequest)
	assert.Equal(t, raw&^(RSURequestBit|HostStatusMask), got&^(RSURequestBit|HostStatusMask))

	got = SetHostStatus(HostStatusWriteDone).Apply(raw)
	assert.Equal(t, HostStatusWriteDone, HostStatusOf(got))
	assert.Equal(t, raw&^HostStatusMask, got&^HostStatusMask)

	assert.True(t, Decode(TriggerRetimerLoad().Apply(0)).RetimerLoad)
	assert.False(t, Decode(ClearRetimerLoad().Apply(RetimerLoadBit)).RetimerLoad)

	f := RequestReboot(1)
	assert.Equal(t, ConfigSelBit|RebootReqBit, f.Value)
	f = RequestReboot(0)
	assert.Equal(t, RebootReqBit, f.Value)
	assert.Equal(t, ConfigSelBit|RebootReqBit, f.Mask)
}

func TestRetimerFields(t *testing.T) {
	assert.True(t, RetimerPreloadDone(RetimerPreloadBit|RetimerUpgStatusGood))
	assert.False(t, RetimerPreloadDone(RetimerUpgStatusGood))
	assert.Equal(t, RetimerUpgStatusGoodVal, RetimerUpgradeStatus(RetimerUpgStatusGood|RetimerPreloadBit))
}

func TestLookupCSRMap(t *testing.T) {
	m, err := LookupCSRMap("N3000")
	require.Nil(t, err)
	assert.Equal(t, uint32(0x300c00), m.DoorbellReg())
	assert.Equal(t, uint32(0x300c04), m.AuthResultReg())
	assert.True(t, m.HasRetimer())

	m, err = LookupCSRMap(BoardN6000)
	require.Nil(t, err)
	assert.True(t, m.FIFO)
	assert.False(t, m.HasRetimer())
	assert.Equal(t, uint32(0x1c0), m.DoorbellReg())

	_, err = LookupCSRMap("n9999")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "n3000")
}
