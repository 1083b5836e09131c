// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package daq

import (
	"testing"
	"time"

	"github.com/anabrid/lucidac-firmware/hwgpio"
)

// fakeConverter plays back a fixed 14-bit code on Value() once clocked,
// independent of the shared CNVST/CLK pins.
type fakeConverter struct {
	hwgpio.Memory
	code uint16
	bit  int
}

func (f *fakeConverter) Value() bool {
	v := (f.code>>(13-f.bit%14))&1 == 1
	f.bit++

	return v
}

func newTestOneshot(codes [NumChannels]uint16) (*OneshotDAQ, *[NumChannels]*fakeConverter) {
	var miso [NumChannels]hwgpio.Pin
	var conv [NumChannels]*fakeConverter

	for i := range codes {
		conv[i] = &fakeConverter{code: codes[i]}
		miso[i] = conv[i]
	}

	return New(&hwgpio.Memory{}, &hwgpio.Memory{}, miso), &conv
}

func TestOneshotDAQSampleReadsAllChannelsIndependently(t *testing.T) {
	var codes [NumChannels]uint16
	for i := range codes {
		codes[i] = uint16(1024 + i*100)
	}

	d, _ := newTestOneshot(codes)

	raw := d.Sample()
	for i, want := range codes {
		if raw[i] != want {
			t.Errorf("channel %d = %d, want %d", i, raw[i], want)
		}
	}
}

func TestOneshotDAQSampleVoltsZeroRail(t *testing.T) {
	var codes [NumChannels]uint16
	for i := range codes {
		codes[i] = oneshotCodeMinus1V25
	}

	d, _ := newTestOneshot(codes)

	volts := d.SampleVolts()
	for i, v := range volts {
		if v < 1.24 || v > 1.26 {
			t.Errorf("channel %d volts = %v, want ~1.25", i, v)
		}
	}
}

func TestOneshotDAQSampleChannel(t *testing.T) {
	var codes [NumChannels]uint16
	codes[3] = oneshotCodePlus1V25

	d, _ := newTestOneshot(codes)

	if got := d.SampleChannel(3); got < -1.26 || got > -1.24 {
		t.Errorf("channel 3 volts = %v, want ~-1.25", got)
	}
}

func TestOneshotDAQSampleAvg(t *testing.T) {
	var codes [NumChannels]uint16
	codes[0] = oneshotCodeMinus1V25

	d, _ := newTestOneshot(codes)

	got := d.SampleAvg(0, 3, time.Microsecond)
	if got < 1.24 || got > 1.26 {
		t.Errorf("SampleAvg = %v, want ~1.25", got)
	}
}
