// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package daq implements the two data-acquisition paths: a software-timed
// oneshot ADC sweep used for calibration and status, and a DMA-backed
// continuous streamer used for runs (§4.8).
package daq

import (
	"time"

	"github.com/anabrid/lucidac-firmware/hwgpio"
)

// NumChannels is the width of the oneshot ADC array: one ADS7883 per
// cluster-gain bus slot plus the direct ADC bus (§4.2, §4.8).
const NumChannels = 8

// oneshotCodeMinus1V25 / oneshotCodePlus1V25 mirror chips.ADS7883's
// reference-rail codes; duplicated here rather than imported so that
// OneshotDAQ's channel array can share one CNVST/CLK pair across eight
// independent MISO lines instead of eight independent ADS7883 values.
const (
	oneshotCodeMinus1V25 = 1024
	oneshotCodePlus1V25  = 15360
)

const convstPulse = 2 * time.Microsecond

// OneshotDAQ bit-bangs all eight ADS7883 converters in lockstep: one shared
// CNVST/CLK pair starts and clocks every channel at once, each channel's
// MISO line read back independently (§4.8).
type OneshotDAQ struct {
	CNVST hwgpio.Pin
	CLK   hwgpio.Pin
	MISO  [NumChannels]hwgpio.Pin
}

func New(cnvst, clk hwgpio.Pin, miso [NumChannels]hwgpio.Pin) *OneshotDAQ {
	return &OneshotDAQ{CNVST: cnvst, CLK: clk, MISO: miso}
}

// Sample pulses CNVST once and clocks out 14 bits from all eight channels
// in parallel, returning the raw codes.
func (d *OneshotDAQ) Sample() [NumChannels]uint16 {
	d.CNVST.High()
	time.Sleep(convstPulse)
	d.CNVST.Low()

	var raw [NumChannels]uint16

	for i := 0; i < 14; i++ {
		d.CLK.High()

		for ch := 0; ch < NumChannels; ch++ {
			raw[ch] <<= 1
			if d.MISO[ch].Value() {
				raw[ch] |= 1
			}
		}

		d.CLK.Low()
	}

	return raw
}

// SampleVolts samples all channels and converts each raw code to volts.
func (d *OneshotDAQ) SampleVolts() [NumChannels]float64 {
	raw := d.Sample()

	var out [NumChannels]float64

	span := float64(oneshotCodePlus1V25 - oneshotCodeMinus1V25)
	for ch := 0; ch < NumChannels; ch++ {
		out[ch] = (float64(raw[ch])-oneshotCodeMinus1V25)/span*-2.5 + 1.25
	}

	return out
}

// SampleChannel samples all channels but returns only the requested one,
// matching the one_shot_daq wire message's optional single-channel form
// (§6.1).
func (d *OneshotDAQ) SampleChannel(channel int) float64 {
	return d.SampleVolts()[channel]
}

// SampleAvg samples a channel repeatedly with a fixed inter-sample delay
// and returns the mean, the shape calibration's offset search uses to
// reject switching noise (§4.6).
func (d *OneshotDAQ) SampleAvg(channel, sizeSamples int, avgDelay time.Duration) float64 {
	var sum float64

	for i := 0; i < sizeSamples; i++ {
		sum += d.SampleChannel(channel)

		if i < sizeSamples-1 {
			time.Sleep(avgDelay)
		}
	}

	return sum / float64(sizeSamples)
}
