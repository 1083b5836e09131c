// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hwgpio

import "periph.io/x/conn/v3/gpio"

// PeriphPin adapts a periph.io gpio.PinIO to Pin, the Linux host-side
// counterpart to the teacher's memory-mapped NXP GPIO driver: board
// bring-up on a development host (Raspberry Pi, USB Armory running Linux
// rather than bare tamago) drives the local bus's control lines and
// bit-banged SPI/ADC paths through the kernel gpiochip character device
// via periph.io/host instead of touching registers directly.
type PeriphPin struct {
	P gpio.PinIO
}

func (p PeriphPin) Out() { _ = p.P.Out(gpio.Low) }
func (p PeriphPin) In()  { _ = p.P.In(gpio.PullNoChange, gpio.NoEdge) }

func (p PeriphPin) High() { _ = p.P.Out(gpio.High) }
func (p PeriphPin) Low()  { _ = p.P.Out(gpio.Low) }

func (p PeriphPin) Value() bool { return p.P.Read() == gpio.High }
