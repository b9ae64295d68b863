// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

// Package regport defines how the update code reaches the controller's registers.
//
// The real transport (SPI regmap, PMCI indirect registers, ...) is provided by the
// platform; this package only carries the interface, a software model of the
// controller and small adapters.
package regport

import (
	"encoding/binary"
	"fmt"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
)

type (
	// Port is synchronous register access to one controller. Calls may be slow and
	// must not be issued concurrently for the same controller.
	Port interface {
		Read(reg uint32) (uint32, error)
		UpdateBits(reg, mask, val uint32) error
		BulkWrite(offset uint32, data []byte) error
	}

	// WordFIFO streams staging data into a flash FIFO one 32-bit word at a time.
	// Register access is delegated to the embedded Port.
	WordFIFO struct {
		Port
		WriteWord func(w uint32) error
	}
)

const (
	TransportSim = "sim"

	fifoWordSize = 4
)

// BulkWrite pushes data through the FIFO. The FIFO is sequential so offset is
// ignored. A trailing partial word is zero padded and written as one extra word.
func (f *WordFIFO) BulkWrite(_ uint32, data []byte) error {
	full := len(data) / fifoWordSize
	for i := 0; i < full; i++ {
		if err := f.WriteWord(binary.LittleEndian.Uint32(data[i*fifoWordSize:])); err != nil {
			return err
		}
	}
	if rem := len(data) % fifoWordSize; rem != 0 {
		var tmp [fifoWordSize]byte
		copy(tmp[:], data[full*fifoWordSize:])
		return f.WriteWord(binary.LittleEndian.Uint32(tmp[:]))
	}
	return nil
}

// Open returns the register port for the configured transport.
func Open(transport string, csr doorbell.CSRMap) (Port, error) {
	switch transport {
	case TransportSim, "":
		sim := NewSim(csr)
		if csr.FIFO {
			return &WordFIFO{Port: sim, WriteWord: sim.WriteFIFOWord}, nil
		}
		return sim, nil
	default:
		return nil, fmt.Errorf("unsupported register transport %q; only %q is built in", transport, TransportSim)
	}
}
