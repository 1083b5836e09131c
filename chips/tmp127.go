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

// TMP127 drives the board temperature sensor: a 16-bit SPI read whose top
// 14 bits are a signed two's-complement reading in 1/32 deg C steps, with
// the two low bits always set (§4.2).
type TMP127 struct {
	bus.DataFunction
}

func NewTMP127(addr bus.Address, b *bus.LocalBus) TMP127 {
	return TMP127{bus.DataFunction{
		Addr: addr,
		Bus:  b,
		Settings: bus.Settings{
			ClockHz:  1_000_000,
			Mode:     bus.Mode1,
			MSBFirst: true,
		},
	}}
}

// ReadCelsius samples the sensor and returns the temperature in deg C.
func (t TMP127) ReadCelsius() float64 {
	t.BeginCommunication()
	raw := bus.Transfer16(t.Bus.SPI, 0x0000)
	t.EndCommunication()

	signed := int16(raw) >> 2

	return float64(signed) * 0.03125
}
