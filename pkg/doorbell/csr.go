// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package doorbell

import (
	"fmt"
	"sort"
	"strings"
)

type (
	// Board identifies a controller family.
	Board string

	// CSRMap locates the RSU registers and the staging area of one board family.
	CSRMap struct {
		Board           Board
		Base            uint32
		Doorbell        uint32
		AuthResult      uint32
		RetimerPollCtrl uint32
		StagingBase     uint32
		StagingSize     uint32
		WriteBlockSize  uint32
		// Stride is the transfer granularity of the staging bus in bytes.
		Stride uint32
		// FIFO is set for boards that stream staging data through a flash FIFO
		// instead of addressing the staging area directly.
		FIFO bool
	}
)

const (
	BoardN3000 Board = "n3000"
	BoardD5005 Board = "d5005"
	BoardN5010 Board = "n5010"
	BoardN6000 Board = "n6000"

	DefaultStagingBase    uint32 = 0x18000000
	DefaultStagingSize    uint32 = 0x3800000
	DefaultWriteBlockSize uint32 = 0x4000
	DefaultStride         uint32 = 4
)

var csrMaps = map[Board]CSRMap{
	BoardN3000: spiCSRMap(BoardN3000),
	BoardD5005: spiCSRMap(BoardD5005),
	BoardN5010: spiCSRMap(BoardN5010),
	BoardN6000: {
		Board:          BoardN6000,
		Base:           0x0,
		Doorbell:       0x1c0,
		AuthResult:     0x1c4,
		StagingBase:    DefaultStagingBase,
		StagingSize:    DefaultStagingSize,
		WriteBlockSize: DefaultWriteBlockSize,
		Stride:         DefaultStride,
		FIFO:           true,
	},
}

func spiCSRMap(b Board) CSRMap {
	return CSRMap{
		Board:           b,
		Base:            0x300800,
		Doorbell:        0x400,
		AuthResult:      0x404,
		RetimerPollCtrl: 0x80,
		StagingBase:     DefaultStagingBase,
		StagingSize:     DefaultStagingSize,
		WriteBlockSize:  DefaultWriteBlockSize,
		Stride:          DefaultStride,
	}
}

// LookupCSRMap returns the register map of a board family.
func LookupCSRMap(b Board) (CSRMap, error) {
	m, ok := csrMaps[Board(strings.ToLower(string(b)))]
	if !ok {
		return CSRMap{}, fmt.Errorf("unsupported board %q; supported boards: %s", b, strings.Join(Boards(), ", "))
	}
	return m, nil
}

// Boards lists the supported board families.
func Boards() []string {
	var names []string
	for b := range csrMaps {
		names = append(names, string(b))
	}
	sort.Strings(names)
	return names
}

func (m CSRMap) DoorbellReg() uint32 {
	return m.Base + m.Doorbell
}

func (m CSRMap) AuthResultReg() uint32 {
	return m.Base + m.AuthResult
}

func (m CSRMap) RetimerPollCtrlReg() uint32 {
	return m.Base + m.RetimerPollCtrl
}

// HasRetimer reports whether the board carries PKVL retimers managed by the BMC.
func (m CSRMap) HasRetimer() bool {
	return m.RetimerPollCtrl != 0
}
