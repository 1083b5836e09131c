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
	"fmt"
	"sync/atomic"
)

// RingBufferSize is the word count of the DMA ring buffer, chosen so it is
// a power of two: the original hardware enforces wrap-around by aligning
// the buffer's base address and letting the DMA controller's MOD field
// mask the destination pointer; this software model gets the same
// wrap-around from plain modular index arithmetic (§4.8).
const RingBufferSize = 256

// ContinuousHAL hands the streamer the samples one DMA major loop would
// transfer from a block's shift-buffer registers. ok is false when no new
// major loop has completed yet (non-blocking poll); err signals a DMA or
// shifter fault.
type ContinuousHAL interface {
	ReadMajorLoop() (samples []uint16, ok bool, err error)
}

// RunDataHandler receives a just-completed half (or, at OP end, partial)
// buffer of interleaved channel samples (§4.8, §4.9).
type RunDataHandler interface {
	HandleData(samples []uint16, channels int) error
}

// ContinuousDAQ streams ADC samples through a size-aligned ring buffer,
// publishing each half to a RunDataHandler as it fills and detecting
// overflow if a half is clobbered before the handler drains it.
//
// No lock guards buf/writeIdx: the firmware's scheduling model is
// single-threaded and cooperative, and the DMA interrupt this package
// stands in for only ever runs between Stream calls, never concurrently
// with one (§5).
type ContinuousDAQ struct {
	hal      ContinuousHAL
	channels int
	handler  RunDataHandler

	sampleRate int

	buf      [RingBufferSize]uint16
	writeIdx int

	firstData atomic.Bool
	lastData  atomic.Bool
	overflow  atomic.Bool
}

func New(hal ContinuousHAL, channels int, handler RunDataHandler) *ContinuousDAQ {
	return &ContinuousDAQ{hal: hal, channels: channels, handler: handler}
}

// Init validates the requested sample rate and channel count (the channel
// count must evenly divide RingBufferSize) and stores the sample rate
// (§4.8).
func (d *ContinuousDAQ) Init(sampleRate int) error {
	if d.channels <= 0 || RingBufferSize%d.channels != 0 {
		return fmt.Errorf("daq: %d channels does not evenly divide ring buffer of %d words", d.channels, RingBufferSize)
	}

	if sampleRate <= 0 || 1_000_000%sampleRate != 0 {
		return fmt.Errorf("daq: sample rate %d is not an integer divisor of 1 MHz", sampleRate)
	}

	d.sampleRate = sampleRate

	return nil
}

// Enable resets the streamer's flags and write cursor ahead of a run.
func (d *ContinuousDAQ) Enable() {
	d.writeIdx = 0
	d.firstData.Store(false)
	d.lastData.Store(false)
	d.overflow.Store(false)
}

// Stream drains every major loop the HAL currently has ready, publishing
// whichever half completes. When drain is true it additionally flushes
// whatever partial, unaligned half has accumulated since the last publish
// (§4.9 step 5: the post-OP partial flush).
func (d *ContinuousDAQ) Stream(drain bool) error {
	for {
		samples, ok, err := d.hal.ReadMajorLoop()
		if err != nil {
			return fmt.Errorf("daq: major loop read: %w", err)
		}

		if !ok {
			break
		}

		if err := d.absorb(samples); err != nil {
			return err
		}
	}

	if drain {
		return d.flushPartial()
	}

	return nil
}

func (d *ContinuousDAQ) absorb(samples []uint16) error {
	if len(samples) != d.channels {
		return fmt.Errorf("daq: major loop delivered %d samples, want %d", len(samples), d.channels)
	}

	copy(d.buf[d.writeIdx:d.writeIdx+d.channels], samples)
	d.writeIdx += d.channels

	half := RingBufferSize / 2

	switch d.writeIdx {
	case half:
		return d.publishHalf(0)
	case RingBufferSize:
		d.writeIdx = 0
		return d.publishHalf(1)
	default:
		return nil
	}
}

// publishHalf hands ring index `which` (0 = first, 1 = last) to the
// handler. Setting an already-set flag means the previous half was never
// drained before this one completed: overflow (§4.8, §4.10).
func (d *ContinuousDAQ) publishHalf(which int) error {
	flag := &d.firstData
	if which == 1 {
		flag = &d.lastData
	}

	if !flag.CompareAndSwap(false, true) {
		d.overflow.Store(true)
		return fmt.Errorf("daq: ring buffer overflow: half %d not drained before re-filled", which)
	}
	defer flag.Store(false)

	half := RingBufferSize / 2
	start := which * half
	data := append([]uint16(nil), d.buf[start:start+half]...)

	if d.handler == nil {
		return nil
	}

	return d.handler.HandleData(data, d.channels)
}

func (d *ContinuousDAQ) flushPartial() error {
	if d.writeIdx == 0 {
		return nil
	}

	data := append([]uint16(nil), d.buf[:d.writeIdx]...)
	d.writeIdx = 0

	if d.handler == nil {
		return nil
	}

	return d.handler.HandleData(data, d.channels)
}

// Finalize asserts no overflow was recorded during the run, matching
// RunManager's post-run assertion (§4.9 step 6, §4.10).
func (d *ContinuousDAQ) Finalize() error {
	if d.overflow.Load() {
		return fmt.Errorf("daq: finalize: ring buffer overflow occurred during run")
	}

	return nil
}
