// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package chips

import (
	"fmt"
	"time"

	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/internal/poll"
)

// 25AA02-family command bytes (§4.2).
const (
	eepromCmdRead       = 0x03
	eepromCmdWrite      = 0x02
	eepromCmdWriteEnable = 0x06
	eepromCmdWriteDisable = 0x04
	eepromCmdReadStatus  = 0x05
	eepromCmdWriteStatus = 0x01
)

const (
	eepromPageSize  = 16
	eepromWIPPollMax = 20 * time.Millisecond
)

// Status is the EEPROM's status register, carried as named bit accessors
// rather than inline masks so the WIP-poll contract reads as intent.
type Status uint8

func (s Status) WriteInProgress() bool     { return s&0b0001 != 0 }
func (s Status) WriteEnabled() bool        { return s&0b0010 != 0 }
func (s Status) BlockZeroProtected() bool  { return s&0b0100 != 0 }
func (s Status) BlockOneProtected() bool   { return s&0b1000 != 0 }
func (s Status) AnyBlockProtected() bool   { return s.BlockZeroProtected() || s.BlockOneProtected() }

// EEPROM drives the 256-byte identity memory present at FADDR=0 of every
// detectable module.
type EEPROM struct {
	bus.DataFunction
}

func NewEEPROM(addr bus.Address, b *bus.LocalBus) EEPROM {
	return EEPROM{bus.DataFunction{
		Addr: addr,
		Bus:  b,
		Settings: bus.Settings{
			ClockHz:  4_000_000,
			Mode:     bus.Mode0,
			MSBFirst: true,
		},
	}}
}

// ReadStatus reads the status register.
func (e EEPROM) ReadStatus() Status {
	e.BeginCommunication()
	in := e.TransferBytes([]byte{eepromCmdReadStatus, 0})
	e.EndCommunication()

	return Status(in[1])
}

// WriteStatus writes the status register (protection bits).
func (e EEPROM) WriteStatus(s Status) {
	e.setWriteEnable()
	e.BeginCommunication()
	e.TransferBytes([]byte{eepromCmdWriteStatus, byte(s)})
	e.EndCommunication()
	e.awaitWriteComplete()
}

// Read reads length bytes starting at byteOffset.
func (e EEPROM) Read(byteOffset int, length int) []byte {
	e.BeginCommunication()
	out := make([]byte, 2+length)
	out[0] = eepromCmdRead
	out[1] = byte(byteOffset)
	in := e.TransferBytes(out)
	e.EndCommunication()

	return in[2:]
}

// Write writes buf starting at byteOffset, splitting across the chip's
// 16-byte page boundaries and polling WIP after each page write (§4.2:
// "Writes are page-oriented (16 B pages) and must poll the WIP status bit
// (≤ 20 ms) after each transaction").
func (e EEPROM) Write(byteOffset int, buf []byte) error {
	for len(buf) > 0 {
		pageRemaining := eepromPageSize - (byteOffset % eepromPageSize)
		n := pageRemaining
		if n > len(buf) {
			n = len(buf)
		}

		if err := e.writePage(byteOffset, buf[:n]); err != nil {
			return err
		}

		buf = buf[n:]
		byteOffset += n
	}

	return nil
}

func (e EEPROM) writePage(byteOffset int, buf []byte) error {
	e.setWriteEnable()

	e.BeginCommunication()
	out := make([]byte, 2+len(buf))
	out[0] = eepromCmdWrite
	out[1] = byte(byteOffset)
	copy(out[2:], buf)
	e.TransferBytes(out)
	e.EndCommunication()

	if !e.awaitWriteComplete() {
		return fmt.Errorf("chips: eeprom write timed out waiting for WIP to clear")
	}

	return nil
}

func (e EEPROM) setWriteEnable() {
	e.BeginCommunication()
	e.TransferBytes([]byte{eepromCmdWriteEnable})
	e.EndCommunication()
}

func (e EEPROM) awaitWriteComplete() bool {
	return poll.WaitFor(eepromWIPPollMax, func() bool {
		return !e.ReadStatus().WriteInProgress()
	})
}
