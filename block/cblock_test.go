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

	"github.com/anabrid/lucidac-firmware/chips"
	"github.com/anabrid/lucidac-firmware/entity"
)

type fakeCBlockHAL struct {
	raw [CBlockNumCoeff]uint16
}

func (f *fakeCBlockHAL) SetLaneRaw(lane int, raw uint16) { f.raw[lane] = raw }

func newTestCBlock() (*CBlock, *fakeCBlockHAL) {
	hal := &fakeCBlockHAL{}
	return NewCBlock("C", entity.Classifier{Class: entity.ClassCBlock}, hal), hal
}

func TestCBlockSetFactorWithinRange(t *testing.T) {
	c, _ := newTestCBlock()

	if !c.SetFactor(0, 1.5) {
		t.Fatal("expected SetFactor(1.5) to succeed")
	}

	if c.Upscale(0) {
		t.Error("expected no upscale for |f| <= 2")
	}
}

func TestCBlockSetFactorEngagesUpscale(t *testing.T) {
	c, _ := newTestCBlock()

	if !c.SetFactor(3, 15) {
		t.Fatal("expected SetFactor(15) to succeed")
	}

	if !c.Upscale(3) {
		t.Error("expected upscale engaged for |f| > 2")
	}

	stored := c.Factor(3)
	if stored <= 1.4 || stored >= 1.6 {
		t.Errorf("stored factor = %v, want ~1.49 (15/10.055)", stored)
	}
}

func TestCBlockSetFactorRejectsOutOfRange(t *testing.T) {
	c, _ := newTestCBlock()

	if c.SetFactor(0, 21) {
		t.Fatal("expected |f| > 20 to be rejected")
	}
}

func TestCBlockGainCorrectionAppliedOnFlush(t *testing.T) {
	c, hal := newTestCBlock()

	c.SetFactor(0, 0.5)
	c.SetGainCorrection(0, 0.8)

	if err := c.WriteToHardware(); err != nil {
		t.Fatalf("WriteToHardware: %v", err)
	}

	// factor 0.5 with gain correction 0.8 is written as the code for 0.4.
	if want := chips.FloatToRaw(0.4); hal.raw[0] != want {
		t.Errorf("raw[0] = %d, want %d", hal.raw[0], want)
	}
}

func TestCBlockResetKeepsCalibrationWhenRequested(t *testing.T) {
	c, _ := newTestCBlock()

	c.SetGainCorrection(5, 0.9)
	c.SetFactor(5, 1.0)

	if err := c.Reset(true); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if c.Factor(5) != 0 {
		t.Errorf("factor after reset = %v, want 0", c.Factor(5))
	}

	if c.GainCorrection(5) != 0.9 {
		t.Errorf("gain correction after keep-calibration reset = %v, want 0.9", c.GainCorrection(5))
	}
}

func TestCBlockResetClearsCalibrationWhenNotKept(t *testing.T) {
	c, _ := newTestCBlock()

	c.SetGainCorrection(5, 0.9)

	if err := c.Reset(false); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if c.GainCorrection(5) != 1.0 {
		t.Errorf("gain correction after reset = %v, want 1.0", c.GainCorrection(5))
	}
}
