// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bus

import (
	"time"

	"github.com/anabrid/lucidac-firmware/hwgpio"
)

// LocalBus addresses one (module, function) pair at a time over a shared
// SPI bus. Addressing uses a dedicated chip-select, latch and asynchronous
// reset line; SPI transactions issued between Address and the next Address
// or Deactivate apply to the latched pair.
//
// LocalBus has no notion of ownership: callers arrange their own mutual
// exclusion (§5). The firmware's scheduling model is single-threaded and
// cooperative, and DMA/interrupt paths never touch the bus, so no internal
// lock is taken here — adding one would only hide a caller bug.
type LocalBus struct {
	CS, Latch, Reset hwgpio.Pin
	SPI              SPI
}

// Init drives the control lines to their idle states and puts the bus in
// the deactivated state.
func (b *LocalBus) Init() {
	b.CS.Out()
	b.CS.High()
	b.Latch.Out()
	b.Latch.Low()
	b.Reset.Out()
	b.Reset.High()

	b.Deactivate()
}

// Address latches the given (module, function) pair so that the following
// SPI transactions target it. The latch is edge-triggered, so no chip ever
// observes a stale address mid-transition.
func (b *LocalBus) Address(addr Address) {
	b.SPI.BeginTransaction(Settings{ClockHz: 4_000_000, Mode: Mode2, MSBFirst: true})
	settle()
	b.CS.Low()
	settle()
	Transfer16(b.SPI, uint16(addr))
	settle()
	b.CS.High()
	settle()
	b.SPI.EndTransaction()
}

// Deactivate pulses the asynchronous reset and returns the bus to idle
// (NullAddress latched on all modules).
func (b *LocalBus) Deactivate() {
	b.Reset.Low()
	settle()
	b.activate()
	settle()
	b.Reset.High()
}

func (b *LocalBus) activate() {
	b.Latch.High()
	settle()
	b.Latch.Low()
}

func settle() {
	time.Sleep(SettleDelay)
}
