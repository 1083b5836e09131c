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

// DAC60508 registers (§4.2).
const (
	dacRegNoop      = 0x0
	dacRegDeviceID  = 0x1
	dacRegSync      = 0x2
	dacRegConfig    = 0x3
	dacRegGain      = 0x4
	dacRegTrigger   = 0x5
	dacRegBroadcast = 0x6
	dacRegStatus    = 0x7
)

func dacRegChannel(i uint8) uint8 { return 8 + i }

const (
	// dacGainBufGain2x is the gain register value Init writes to enable
	// gain-x2. dacConfigIntRef is not written by Init, which writes 0x0000
	// to the config register (external reference).
	dacGainBufGain2x = 0x0100 // per-channel gain-x2 enable, all 8 channels
	dacConfigIntRef  = 0x0001
)

// DAC60508 drives the 8-channel DAC used by the M-Int block to write
// integrator initial conditions.
type DAC60508 struct {
	bus.DataFunction
}

func NewDAC60508(addr bus.Address, b *bus.LocalBus) DAC60508 {
	return DAC60508{bus.DataFunction{
		Addr: addr,
		Bus:  b,
		Settings: bus.Settings{
			ClockHz:  4_000_000,
			Mode:     bus.Mode1,
			MSBFirst: true,
		},
	}}
}

// Init configures the external 2V reference with gain x2, as required
// before the DAC is used (§4.2: "Initialise to external-ref + gain-×2
// before use").
func (d DAC60508) Init() {
	d.writeRegister(dacRegConfig, 0x0000) // external reference, no internal ref divider
	d.writeRegister(dacRegGain, dacGainBufGain2x)
}

// SetChannelRaw writes a 16-bit code to one of the 8 output channels.
func (d DAC60508) SetChannelRaw(idx uint8, value uint16) {
	d.writeRegister(dacRegChannel(idx), value)
}

// DAC60508RawZero and DAC60508RawTwoFive are the raw codes for 0 V and
// 2.5 V, the two ends of the range the M-Int block maps initial conditions
// onto.
const (
	DAC60508RawZero    = 0x0000
	DAC60508RawTwoFive = 0xFFF0
)

// writeRegister issues the chip's 24-bit write frame: [addr:8][data:16].
func (d DAC60508) writeRegister(addr uint8, data uint16) {
	d.BeginCommunication()
	d.TransferBytes([]byte{addr & 0x1F, byte(data >> 8), byte(data)})
	d.EndCommunication()
}

// ReadRegister issues a register read (readback supported per §4.2): a
// write of the register address with the read bit set, followed by a noop
// frame to clock out the reply.
func (d DAC60508) ReadRegister(addr uint8) uint16 {
	d.BeginCommunication()
	d.TransferBytes([]byte{addr | 0x80, 0, 0})
	d.EndCommunication()

	d.BeginCommunication()
	in := d.TransferBytes([]byte{dacRegNoop, 0, 0})
	d.EndCommunication()

	return uint16(in[1])<<8 | uint16(in[2])
}
