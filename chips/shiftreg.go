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

// ShiftRegister drives an SR74HCT595-style serial-in/parallel-out shift
// register: an arbitrary-width SPI transfer followed by a separate latch
// trigger to move the shifted bits onto the parallel outputs.
type ShiftRegister struct {
	data  bus.DataFunction
	latch bus.TriggerFunction
}

func NewShiftRegister(dataAddr, latchAddr bus.Address, b *bus.LocalBus) ShiftRegister {
	return ShiftRegister{
		data: bus.DataFunction{
			Addr: dataAddr,
			Bus:  b,
			Settings: bus.Settings{
				ClockHz:  4_000_000,
				Mode:     bus.Mode1,
				MSBFirst: true,
			},
		},
		latch: bus.TriggerFunction{Addr: latchAddr, Bus: b},
	}
}

// Write shifts out buf and latches it onto the parallel outputs.
func (r ShiftRegister) Write(buf []byte) {
	r.data.TransferBytes(buf)
	r.latch.Trigger()
}
