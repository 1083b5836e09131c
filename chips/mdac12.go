// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package chips implements the local bus's per-chip register protocols:
// the 12-bit multiplying DAC used by each C-Block lane, the 8-channel IC
// DAC and shift register used by the M-Int block, the U-Block crossbar
// shift stream, the identity EEPROM, the temperature sensor, and the
// oneshot ADC sampler.
package chips

import (
	"time"

	"github.com/anabrid/lucidac-firmware/bus"
)

// MDAC12 drives a 12-bit multiplying DAC (one per C-Block lane), scaling an
// input signal by a coefficient in roughly [-2, +2].
type MDAC12 struct {
	bus.DataFunction
}

// MDAC12RawZero is the DAC code corresponding to a scale factor of 0.
const MDAC12RawZero = 2047

// interChipSelectDelay is the minimum delay the chip needs between chip
// select and the start of data clocking (§4.2: "inter-CS-to-data delay ≥ 13 ns").
const interChipSelectDelay = 15 * time.Nanosecond

func NewMDAC12(addr bus.Address, b *bus.LocalBus) MDAC12 {
	return MDAC12{bus.DataFunction{
		Addr: addr,
		Bus:  b,
		Settings: bus.Settings{
			ClockHz:  4_000_000,
			Mode:     bus.Mode1,
			MSBFirst: true,
		},
	}}
}

// FloatToRaw converts a scale factor to the chip's raw 12-bit-in-16-bit
// code: clamp(f*1024+2047, 0, 4095) << 2 (§4.2).
func FloatToRaw(f float64) uint16 {
	v := f*1024 + MDAC12RawZero

	if v < 0 {
		v = 0
	}
	if v > 4095 {
		v = 4095
	}

	return uint16(v) << 2
}

// RawToFloat is the inverse of FloatToRaw.
func RawToFloat(raw uint16) float64 {
	code := float64(raw >> 2)
	return (code - MDAC12RawZero) / 1024
}

// SetScaleRaw writes a pre-converted raw code.
func (m MDAC12) SetScaleRaw(raw uint16) {
	m.BeginCommunication()
	time.Sleep(interChipSelectDelay)
	bus.Transfer16(m.Bus.SPI, raw)
	m.EndCommunication()
}

// SetScale converts and writes a scale factor.
func (m MDAC12) SetScale(f float64) {
	m.SetScaleRaw(FloatToRaw(f))
}
