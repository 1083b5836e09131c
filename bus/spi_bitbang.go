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

// BitBangSPI implements SPI by toggling GPIO pins directly. It is the
// fallback (and, on boards with no dedicated SPI controller wired to the
// local bus, the primary) backend, grounded in the same pin-toggling idiom
// the firmware's runtime uses elsewhere (clock high, delay, sample, delay,
// clock low).
type BitBangSPI struct {
	SCLK, MOSI, MISO hwgpio.Pin

	// HalfPeriod is the delay held after each clock edge. Chip drivers
	// that need a specific minimum period should request it via Settings
	// and this backend honors the larger of the two.
	HalfPeriod time.Duration

	settings Settings
}

func (s *BitBangSPI) BeginTransaction(settings Settings) {
	s.settings = settings
	s.SCLK.Out()
	s.MOSI.Out()
	s.MISO.In()

	if idleHigh(settings.Mode) {
		s.SCLK.High()
	} else {
		s.SCLK.Low()
	}
}

func (s *BitBangSPI) EndTransaction() {}

func (s *BitBangSPI) Transfer(out []byte) []byte {
	in := make([]byte, len(out))

	for i, b := range out {
		in[i] = s.transferByte(b)
	}

	return in
}

func (s *BitBangSPI) transferByte(out byte) byte {
	var in byte

	for bit := 7; bit >= 0; bit-- {
		if out&(1<<uint(bit)) != 0 {
			s.MOSI.High()
		} else {
			s.MOSI.Low()
		}

		s.clockPulse()

		if s.MISO.Value() {
			in |= 1 << uint(bit)
		}
	}

	return in
}

func (s *BitBangSPI) clockPulse() {
	s.delay()

	if idleHigh(s.settings.Mode) {
		s.SCLK.Low()
	} else {
		s.SCLK.High()
	}

	s.delay()

	if idleHigh(s.settings.Mode) {
		s.SCLK.High()
	} else {
		s.SCLK.Low()
	}
}

func (s *BitBangSPI) delay() {
	d := s.HalfPeriod
	if s.settings.ClockHz > 0 {
		if p := time.Second / time.Duration(2*uint64(s.settings.ClockHz)); p > d {
			d = p
		}
	}

	if d > 0 {
		time.Sleep(d)
	}
}

func idleHigh(m Mode) bool {
	return m == Mode2 || m == Mode3
}
