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
	"errors"
	"testing"
)

// queueHAL replays a fixed queue of major loops, then reports none ready.
type queueHAL struct {
	loops [][]uint16
	err   error
}

func (q *queueHAL) ReadMajorLoop() ([]uint16, bool, error) {
	if q.err != nil {
		err := q.err
		q.err = nil

		return nil, false, err
	}

	if len(q.loops) == 0 {
		return nil, false, nil
	}

	next := q.loops[0]
	q.loops = q.loops[1:]

	return next, true, nil
}

type collectingHandler struct {
	halves [][]uint16
}

func (h *collectingHandler) HandleData(samples []uint16, channels int) error {
	cp := append([]uint16(nil), samples...)
	h.halves = append(h.halves, cp)

	return nil
}

func makeLoops(n, channels int) [][]uint16 {
	loops := make([][]uint16, n)
	for i := range loops {
		loop := make([]uint16, channels)
		for ch := range loop {
			loop[ch] = uint16(i*channels + ch)
		}
		loops[i] = loop
	}

	return loops
}

func TestContinuousDAQInitRejectsNonDivisorChannelCount(t *testing.T) {
	d := New(&queueHAL{}, 3, nil)
	if err := d.Init(1000); err == nil {
		t.Fatal("expected error for channel count not dividing ring buffer")
	}
}

func TestContinuousDAQInitRejectsNonDivisorSampleRate(t *testing.T) {
	d := New(&queueHAL{}, 8, nil)
	if err := d.Init(300_000); err == nil {
		t.Fatal("expected error for sample rate not dividing 1 MHz")
	}
}

func TestContinuousDAQPublishesBothHalves(t *testing.T) {
	channels := 8
	loopsPerHalf := (RingBufferSize / 2) / channels

	hal := &queueHAL{loops: makeLoops(loopsPerHalf*2, channels)}
	handler := &collectingHandler{}

	d := New(hal, channels, handler)
	if err := d.Init(100_000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d.Enable()

	if err := d.Stream(false); err != nil {
		t.Fatalf("Stream: %v", err)
	}

	if len(handler.halves) != 2 {
		t.Fatalf("got %d published halves, want 2", len(handler.halves))
	}

	if len(handler.halves[0]) != RingBufferSize/2 {
		t.Errorf("half size = %d, want %d", len(handler.halves[0]), RingBufferSize/2)
	}
}

func TestContinuousDAQDetectsOverflow(t *testing.T) {
	channels := 8
	loopsPerHalf := (RingBufferSize / 2) / channels

	// HandleData always returns at once in this fake, so a half is never
	// left undrained on its own. Simulate an undrained first half by
	// priming firstData by hand, then stream one half's worth of loops so
	// that the first half completes again.
	hal := &queueHAL{loops: makeLoops(loopsPerHalf, channels)}
	d := New(hal, channels, &collectingHandler{})
	if err := d.Init(100_000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d.Enable()
	d.firstData.Store(true)

	if err := d.Stream(false); err == nil {
		t.Fatal("expected overflow error when half is re-filled before draining")
	}
}

func TestContinuousDAQStreamPropagatesHALError(t *testing.T) {
	hal := &queueHAL{err: errors.New("shifter fault")}
	d := New(hal, 8, nil)
	if err := d.Init(100_000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d.Enable()

	if err := d.Stream(false); err == nil {
		t.Fatal("expected Stream to propagate HAL error")
	}
}

func TestContinuousDAQDrainFlushesPartialBuffer(t *testing.T) {
	channels := 8

	hal := &queueHAL{loops: makeLoops(1, channels)}
	handler := &collectingHandler{}

	d := New(hal, channels, handler)
	if err := d.Init(100_000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d.Enable()

	if err := d.Stream(true); err != nil {
		t.Fatalf("Stream: %v", err)
	}

	if len(handler.halves) != 1 {
		t.Fatalf("got %d published halves, want 1 partial flush", len(handler.halves))
	}

	if len(handler.halves[0]) != channels {
		t.Errorf("partial flush size = %d, want %d", len(handler.halves[0]), channels)
	}
}

func TestContinuousDAQFinalizeFailsAfterOverflow(t *testing.T) {
	d := New(&queueHAL{}, 8, nil)
	if err := d.Init(100_000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d.Enable()
	d.overflow.Store(true)

	if err := d.Finalize(); err == nil {
		t.Fatal("expected Finalize to fail after overflow was recorded")
	}
}
