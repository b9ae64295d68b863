// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package doorbell

// Field is a mask/value pair selecting exactly the bits an update touches.
// Bits outside Mask are left to the register port's read-modify-write.
type Field struct {
	Mask  uint32
	Value uint32
}

// Retimer poll-control register fields.
const (
	RetimerPreloadBit       uint32 = 1 << 9
	RetimerUpgStatusMask    uint32 = 0xffff0000
	RetimerUpgStatusGood    uint32 = 0x01010000
	retimerUpgStatusShift          = 16
	RetimerUpgStatusGoodVal uint16 = uint16(RetimerUpgStatusGood >> retimerUpgStatusShift)
)

// RequestRSU asks the device to start an update and resets the host status.
func RequestRSU() Field {
	return Field{
		Mask:  RSURequestBit | HostStatusMask,
		Value: RSURequestBit | uint32(HostStatusIdle)<<hostStatusShift,
	}
}

func SetHostStatus(h HostStatus) Field {
	return Field{
		Mask:  HostStatusMask,
		Value: (uint32(h) << hostStatusShift) & HostStatusMask,
	}
}

func TriggerRetimerLoad() Field {
	return Field{Mask: RetimerLoadBit, Value: RetimerLoadBit}
}

func ClearRetimerLoad() Field {
	return Field{Mask: RetimerLoadBit, Value: 0}
}

// RequestReboot selects the flash configuration the BMC boots from and requests the reboot.
func RequestReboot(configSel uint8) Field {
	f := Field{
		Mask:  ConfigSelBit | RebootReqBit,
		Value: RebootReqBit,
	}
	if configSel&1 != 0 {
		f.Value |= ConfigSelBit
	}
	return f
}

// Apply returns raw with the field written into it.
func (f Field) Apply(raw uint32) uint32 {
	return raw&^f.Mask | f.Value&f.Mask
}

// RetimerPreloadDone reports whether the retimers finished loading their firmware.
func RetimerPreloadDone(raw uint32) bool {
	return raw&RetimerPreloadBit == RetimerPreloadBit
}

// RetimerUpgradeStatus extracts the per-retimer upgrade status field.
func RetimerUpgradeStatus(raw uint32) uint16 {
	return uint16((raw & RetimerUpgStatusMask) >> retimerUpgStatusShift)
}
