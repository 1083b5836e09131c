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
	"time"

	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/hwgpio"
)

// ADS7883 codes corresponding to the oneshot ADC's +/-1.25V reference
// rails, used to convert a raw 14-bit code to a voltage: the first maps to
// +1.25 V and the second to -1.25 V (the scale is inverted), matching the
// range the CTRL-Block ADC mux presents (§4.2).
const (
	ads7883CodeMinus1V25 = 1024
	ads7883CodePlus1V25  = 15360
)

// convstPulse is the minimum CNVST-high pulse width the converter needs to
// start a conversion (§4.2: "CNVST pulse >= 1.5 us").
const convstPulse = 2 * time.Microsecond

// ADS7883 drives the oneshot ADC used to sample the CTRL-Block's ADC bus
// mux: a CNVST pulse starts a conversion, followed by 14 clocked bits read
// back on MISO with no chip-select framing (the part free-runs off its own
// internal clock once converting).
type ADS7883 struct {
	CNVST hwgpio.Pin
	CLK   hwgpio.Pin
	MISO  hwgpio.Pin
}

func NewADS7883(cnvst, clk, miso hwgpio.Pin) ADS7883 {
	return ADS7883{CNVST: cnvst, CLK: clk, MISO: miso}
}

// Sample starts a conversion and clocks out the 14-bit result, returning it
// right-aligned in the low 14 bits of the return value.
func (a ADS7883) Sample() uint16 {
	a.CNVST.High()
	time.Sleep(convstPulse)
	a.CNVST.Low()

	var raw uint16

	for i := 0; i < 14; i++ {
		a.CLK.High()

		raw <<= 1
		if a.MISO.Value() {
			raw |= 1
		}

		a.CLK.Low()
	}

	return raw
}

// SampleVolts samples the ADC and converts the raw code to volts.
func (a ADS7883) SampleVolts() float64 {
	raw := a.Sample()

	span := float64(ads7883CodePlus1V25 - ads7883CodeMinus1V25)

	return (float64(raw)-ads7883CodeMinus1V25)/span*-2.5 + 1.25
}
