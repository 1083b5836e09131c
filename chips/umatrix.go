// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package chips

import "github.com/anabrid/lucidac-firmware/bus"

// UMatrix drives the U-Block's crossbar chips: a 5 x N_outputs bit stream,
// one 5-bit group per output ({enable, 4-bit input index}), sent as 8-bit
// bytes, MSB first. The chip pair splits the 32 outputs into two halves of
// 16 and expects the second half (outputs 16-31) shifted in first (§4.2).
type UMatrix struct {
	bus.DataFunction
	numOutputs int
}

func NewUMatrix(addr bus.Address, b *bus.LocalBus, numOutputs int) UMatrix {
	return UMatrix{
		DataFunction: bus.DataFunction{
			Addr: addr,
			Bus:  b,
			Settings: bus.Settings{
				ClockHz:  4_000_000,
				Mode:     bus.Mode2,
				MSBFirst: true,
			},
		},
		numOutputs: numOutputs,
	}
}

// Transfer shifts out the given output->input map. inputs[output] is the
// 1-based selected input (0 = disconnected), matching the firmware's
// in-memory convention of reserving 0 for "no connection".
func (u UMatrix) Transfer(inputs []uint8) {
	buf := buildMatrixStream(inputs, u.numOutputs)
	u.TransferBytes(buf)
}

// buildMatrixStream packs output assignments into the bit-swapped byte
// stream the crossbar chips expect: outputs 16-31 first, then 0-15, each
// encoded as a 5-bit {enable, input[3:0]} group, MSB-first across the byte
// boundary.
func buildMatrixStream(inputs []uint8, numOutputs int) []byte {
	totalBits := numOutputs * 5
	buf := make([]byte, (totalBits+7)/8)

	// Process the second half (higher indices) first, per the chip's
	// documented swap, writing groups in order into a bit cursor.
	order := make([]int, 0, numOutputs)
	half := numOutputs / 2

	for i := half; i < numOutputs; i++ {
		order = append(order, i)
	}
	for i := 0; i < half; i++ {
		order = append(order, i)
	}

	bitPos := 0

	for _, out := range order {
		selected := uint8(0)

		if out < len(inputs) {
			selected = inputs[out]
		}

		group := byte(0)

		if selected > 0 {
			group = 0b10000 | ((selected - 1) & 0x0F)
		}

		writeBits(buf, bitPos, group, 5)
		bitPos += 5
	}

	return buf
}

// writeBits writes the low nbits of v into buf starting at bit offset pos,
// MSB-first.
func writeBits(buf []byte, pos int, v byte, nbits int) {
	for i := 0; i < nbits; i++ {
		bit := (v >> uint(nbits-1-i)) & 1
		idx := pos + i
		byteIdx := idx / 8
		bitIdx := 7 - (idx % 8)

		if bit == 1 {
			buf[byteIdx] |= 1 << uint(bitIdx)
		}
	}
}
