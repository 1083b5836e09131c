// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build linux

package bus

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// spidev ioctl constants (Linux spi/spidev.h), used to program mode and
// clock speed and to run a half-duplex-looking full-duplex transfer in one
// syscall via SPI_IOC_MESSAGE(1).
const (
	iocWrMode        = 0x40016b01
	iocWrMaxSpeedHz  = 0x40046b04
	iocMessage1Base  = 0x40206b00 // SPI_IOC_MESSAGE(1), size of one spi_ioc_transfer
)

type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNBits     uint8
	rxNBits     uint8
	pad         uint16
}

// LinuxSPI drives a real SPI controller through the kernel spidev
// character device, for running and testing the local bus protocol on a
// development board before flashing bare-metal. This is the alternate
// backend the teacher's per-platform board packages (board/qemu vs
// board/usbarmory) modeled: same bus.SPI contract, different guts.
type LinuxSPI struct {
	f *os.File
}

// OpenLinuxSPI opens a spidev device node, e.g. "/dev/spidev0.0".
func OpenLinuxSPI(path string) (*LinuxSPI, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("bus: open %s: %w", path, err)
	}

	return &LinuxSPI{f: f}, nil
}

func (s *LinuxSPI) Close() error {
	return s.f.Close()
}

func (s *LinuxSPI) BeginTransaction(settings Settings) {
	mode := uint8(settings.Mode)

	_ = ioctl(s.f.Fd(), iocWrMode, uintptr(unsafe.Pointer(&mode)))

	speed := settings.ClockHz
	_ = ioctl(s.f.Fd(), iocWrMaxSpeedHz, uintptr(unsafe.Pointer(&speed)))
}

func (s *LinuxSPI) EndTransaction() {}

func (s *LinuxSPI) Transfer(out []byte) []byte {
	in := make([]byte, len(out))

	xfer := spiIOCTransfer{
		txBuf:  uint64(uintptr(unsafe.Pointer(&out[0]))),
		rxBuf:  uint64(uintptr(unsafe.Pointer(&in[0]))),
		length: uint32(len(out)),
	}

	size := unsafe.Sizeof(xfer)
	_ = ioctl(s.f.Fd(), iocMessage1Base|(uintptr(size)<<16), uintptr(unsafe.Pointer(&xfer)))

	return in
}

func ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}

	return nil
}
