// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package block

import (
	"testing"

	"github.com/anabrid/lucidac-firmware/entity"
)

type fakeMMulHAL struct {
	inputOffsets  [MMulNumMultipliers][2]float64
	outputOffsets [MMulNumMultipliers]float64
}

func (f *fakeMMulHAL) WriteInputOffsets(idx int, x, y float64) {
	f.inputOffsets[idx] = [2]float64{x, y}
}

func (f *fakeMMulHAL) WriteOutputOffset(idx int, z float64) { f.outputOffsets[idx] = z }

func newTestMMulBlock() (*MMulBlock, *fakeMMulHAL) {
	hal := &fakeMMulHAL{}
	return NewMMulBlock("M1", entity.Classifier{Class: entity.ClassMBlock, Type: 2}, hal), hal
}

func TestMMulBlockSetCalibrationClampsToLimit(t *testing.T) {
	mm, _ := newTestMMulBlock()

	mm.SetCalibration(0, MMulOffsets{X: 0.5, Y: -0.5, Z: 0.05})

	got := mm.Calibration(0)
	if got.X != MMulOffsetLimit {
		t.Errorf("X = %v, want clamped to %v", got.X, MMulOffsetLimit)
	}

	if got.Y != -MMulOffsetLimit {
		t.Errorf("Y = %v, want clamped to %v", got.Y, -MMulOffsetLimit)
	}

	if got.Z != 0.05 {
		t.Errorf("Z = %v, want unchanged 0.05", got.Z)
	}
}

func TestMMulBlockWriteToHardwareFlushesAllMultipliers(t *testing.T) {
	mm, hal := newTestMMulBlock()

	mm.SetCalibration(2, MMulOffsets{X: 0.02, Y: -0.03, Z: 0.01})

	if err := mm.WriteToHardware(); err != nil {
		t.Fatalf("WriteToHardware: %v", err)
	}

	if hal.inputOffsets[2] != [2]float64{0.02, -0.03} {
		t.Errorf("inputOffsets[2] = %v, want {0.02, -0.03}", hal.inputOffsets[2])
	}

	if hal.outputOffsets[2] != 0.01 {
		t.Errorf("outputOffsets[2] = %v, want 0.01", hal.outputOffsets[2])
	}
}

func TestMMulBlockResetKeepsCalibrationWhenRequested(t *testing.T) {
	mm, _ := newTestMMulBlock()

	mm.SetCalibration(0, MMulOffsets{X: 0.05, Y: 0.05, Z: 0.05})

	if err := mm.Reset(true); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if mm.Calibration(0).X != 0.05 {
		t.Error("expected calibration preserved when keepCalibration=true")
	}

	if err := mm.Reset(false); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if mm.Calibration(0).X != 0 {
		t.Error("expected calibration cleared when keepCalibration=false")
	}
}
