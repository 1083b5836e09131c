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

// CrossbarCmdWord builds the one-byte command an MT8816-style analog
// crossbar switch expects: {enable, 3-bit output select, 4-bit input
// select} (§4.2). The chip addresses up to 8 outputs and 16 inputs per
// command; wider matrices are built from several chips addressed by the
// same command stream.
func CrossbarCmdWord(inputIdx, outputIdx uint8, connect bool) uint8 {
	var enable uint8
	if connect {
		enable = 0b1000_0000
	}

	return enable | (outputIdx&0x7)<<4 | (inputIdx & 0xF)
}

// Crossbar drives an MT8816-style matrix switch: one command word per
// connection, a reset line that clears every crosspoint, and a strobe
// that latches the just-shifted word into the chip's crosspoint memory
// (§4.2).
type Crossbar struct {
	Data   bus.DataFunction
	Reset  bus.TriggerFunction
	Strobe bus.TriggerFunction
}

// NewCrossbar wires a Crossbar to its program/strobe/reset functions.
// The chip expects SPI mode 0 but the board inverts CLK on the way, so
// callers address it with mode 2 (§4.2, grounded on the original's
// F_ADC_SWITCHER_PRG_SPI_SETTINGS).
func NewCrossbar(dataAddr, strobeAddr, resetAddr bus.Address, b *bus.LocalBus) Crossbar {
	return Crossbar{
		Data: bus.DataFunction{
			Addr: dataAddr,
			Bus:  b,
			Settings: bus.Settings{
				ClockHz:  4_000_000,
				Mode:     bus.Mode2,
				MSBFirst: true,
			},
		},
		Strobe: bus.TriggerFunction{Addr: strobeAddr, Bus: b},
		Reset:  bus.TriggerFunction{Addr: resetAddr, Bus: b},
	}
}

// ResetAll clears every crosspoint; it's cheaper to reset and
// reprogram than to track which crosspoints were previously set.
func (c Crossbar) ResetAll() { c.Reset.Trigger() }

// Connect ties inputIdx to outputIdx, shifting the command word in and
// then strobing it into the chip's crosspoint memory.
func (c Crossbar) Connect(inputIdx, outputIdx uint8) {
	c.Data.TransferBytes([]byte{CrossbarCmdWord(inputIdx, outputIdx, true)})
	c.Strobe.Trigger()
}
