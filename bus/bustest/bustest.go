// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bustest provides fakes for bus.SPI and a ready-to-use *bus.LocalBus
// for exercising chip and block drivers without real hardware.
package bustest

import (
	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/hwgpio"
)

// addrLatchSettings mirrors bus.LocalBus.Address's hardcoded latch settings,
// which is how FakeSPI tells an address-latch transfer apart from a chip
// data transfer on the same wire.
var addrLatchSettings = bus.Settings{ClockHz: 4_000_000, Mode: bus.Mode2, MSBFirst: true}

// Transaction is one recorded data-phase transfer, attributed to whichever
// address was last latched.
type Transaction struct {
	Addr bus.Address
	Out  []byte
	In   []byte
}

// FakeSPI is an in-memory bus.SPI. Responses for a given address can be
// queued with Respond; unconfigured reads return zero bytes.
type FakeSPI struct {
	cur      bus.Settings
	lastAddr bus.Address

	Transactions []Transaction

	responses map[bus.Address][][]byte
}

func NewFakeSPI() *FakeSPI {
	return &FakeSPI{responses: make(map[bus.Address][][]byte)}
}

func (s *FakeSPI) BeginTransaction(settings bus.Settings) {
	s.cur = settings
}

func (s *FakeSPI) EndTransaction() {}

// Respond queues a response to be returned the next time the given address
// is the target of a data-phase Transfer, of any length: the response is
// copied into that transfer's input, truncated or zero-padded to fit.
func (s *FakeSPI) Respond(addr bus.Address, data []byte) {
	s.responses[addr] = append(s.responses[addr], data)
}

func (s *FakeSPI) Transfer(out []byte) []byte {
	if len(out) == 2 && s.cur == addrLatchSettings {
		s.lastAddr = bus.Address(uint16(out[0])<<8 | uint16(out[1]))
		return make([]byte, 2)
	}

	in := make([]byte, len(out))

	if queue := s.responses[s.lastAddr]; len(queue) > 0 {
		copy(in, queue[0])
		s.responses[s.lastAddr] = queue[1:]
	}

	s.Transactions = append(s.Transactions, Transaction{
		Addr: s.lastAddr,
		Out:  append([]byte(nil), out...),
		In:   append([]byte(nil), in...),
	})

	return in
}

// Last returns the most recent data-phase transaction addressed to addr,
// and whether one was found.
func (s *FakeSPI) Last(addr bus.Address) (Transaction, bool) {
	for i := len(s.Transactions) - 1; i >= 0; i-- {
		if s.Transactions[i].Addr == addr {
			return s.Transactions[i], true
		}
	}

	return Transaction{}, false
}

// NewLocalBus returns a *bus.LocalBus wired to in-memory GPIO pins and the
// given (or a fresh) FakeSPI, ready for driving chip/block code under test.
func NewLocalBus(spi *FakeSPI) (*bus.LocalBus, *FakeSPI) {
	if spi == nil {
		spi = NewFakeSPI()
	}

	b := &bus.LocalBus{
		CS:    &hwgpio.Memory{},
		Latch: &hwgpio.Memory{},
		Reset: &hwgpio.Memory{},
		SPI:   spi,
	}
	b.Init()

	return b, spi
}
