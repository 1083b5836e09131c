// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hwgpio provides a minimal GPIO pin abstraction, following the
// shape of the NXP GPIO driver this firmware's runtime is built on
// (controller + independently addressable Pin, Out/In/High/Low/Value).
//
// Unlike a memory-mapped SoC GPIO block, the local bus's control lines
// (address latch, chip select, reset) and the bit-banged SPI/ADC paths do
// not all live on the same physical controller, so Pin here is an
// interface rather than a concrete register-backed struct: board bring-up
// wires in whatever concrete pin implementation the target has.
package hwgpio

// Pin is a single digital output/input line.
type Pin interface {
	// Out configures the pin as an output.
	Out()
	// In configures the pin as an input.
	In()
	// High drives the pin high.
	High()
	// Low drives the pin low.
	Low()
	// Value returns the current signal level.
	Value() bool
}

// Const is a fixed-value pin, useful for tying an unused control line to a
// known level in tests and in minimal board variants.
type Const bool

func (c Const) Out()         {}
func (c Const) In()          {}
func (c Const) High()        {}
func (c Const) Low()         {}
func (c Const) Value() bool  { return bool(c) }

// Memory is an in-memory Pin, used by the local-bus bit-bang backend in
// tests and by host-side development builds that have no real hardware
// attached.
type Memory struct {
	dir  bool // true = output
	high bool
}

func (p *Memory) Out()  { p.dir = true }
func (p *Memory) In()   { p.dir = false }
func (p *Memory) High() { p.high = true }
func (p *Memory) Low()  { p.high = false }
func (p *Memory) Value() bool {
	return p.high
}
