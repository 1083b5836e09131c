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

type fakeUBlockHAL struct {
	outputs      [UBlockNumOutputs]int8
	aSide, bSide TransmissionMode
	ref          ReferenceMagnitude
	resetCalled  bool
	trim         [UBlockNumLanes]float64
}

func (f *fakeUBlockHAL) WriteOutputs(m [UBlockNumOutputs]int8) error {
	f.outputs = m
	return nil
}

func (f *fakeUBlockHAL) WriteTransmissionModesAndRef(a, b TransmissionMode, ref ReferenceMagnitude) error {
	f.aSide, f.bSide, f.ref = a, b, ref
	return nil
}

func (f *fakeUBlockHAL) ResetTransmissionModesAndRef() error {
	f.resetCalled = true
	return nil
}

func (f *fakeUBlockHAL) WriteOffsetTrim(trim [UBlockNumLanes]float64) error {
	f.trim = trim
	return nil
}

func newTestUBlock() (*UBlock, *fakeUBlockHAL) {
	hal := &fakeUBlockHAL{}
	return NewUBlock("U", entity.Classifier{Class: entity.ClassUBlock}, hal), hal
}

func TestUBlockConnectBasic(t *testing.T) {
	u, _ := newTestUBlock()

	if !u.Connect(3, 5, false) {
		t.Fatal("expected connect to succeed")
	}

	if u.outputInputMap[5] != 3 {
		t.Errorf("output 5 = %d, want 3", u.outputInputMap[5])
	}
}

func TestUBlockConnectRefusesOverwriteWithoutForce(t *testing.T) {
	u, _ := newTestUBlock()

	u.Connect(1, 0, false)

	if u.Connect(2, 0, false) {
		t.Fatal("expected second connect without force to fail")
	}

	if u.Connect(2, 0, true) && u.outputInputMap[0] != 2 {
		t.Fatal("expected forced connect to overwrite")
	}
}

func TestUBlockConnectRangeChecks(t *testing.T) {
	u, _ := newTestUBlock()

	if u.Connect(16, 0, false) {
		t.Fatal("expected out-of-range input to fail")
	}

	if u.Connect(0, 32, false) {
		t.Fatal("expected out-of-range output to fail")
	}
}

func TestUBlockConnectAlternativeForcesMode(t *testing.T) {
	u, _ := newTestUBlock()

	if !u.ConnectAlternative(ModePosRef, 20, true, false) {
		t.Fatal("expected connect_alternative to succeed with force")
	}

	if u.bSideMode != ModePosRef {
		t.Errorf("bSideMode = %v, want ModePosRef", u.bSideMode)
	}

	if u.outputInputMap[20] != 14 {
		t.Errorf("output 20 input = %d, want 14 (B-side reference slot)", u.outputInputMap[20])
	}
}

func TestUBlockConnectAlternativeRejectsAnalogInput(t *testing.T) {
	u, _ := newTestUBlock()

	if u.ConnectAlternative(ModeAnalogInput, 0, true, false) {
		t.Fatal("expected ModeAnalogInput to be rejected")
	}
}

func TestUBlockWriteToHardwareFlushesBoth(t *testing.T) {
	u, hal := newTestUBlock()

	u.Connect(2, 4, false)
	u.ConnectAlternative(ModeGround, 20, true, false)

	if err := u.WriteToHardware(); err != nil {
		t.Fatalf("WriteToHardware: %v", err)
	}

	if hal.outputs[4] != 2 {
		t.Errorf("hal.outputs[4] = %d, want 2", hal.outputs[4])
	}

	if hal.bSide != ModeGround {
		t.Errorf("hal.bSide = %v, want ModeGround", hal.bSide)
	}
}

func TestUBlockSetOffsetTrimRangeAndFlush(t *testing.T) {
	u, hal := newTestUBlock()

	if u.SetOffsetTrim(8, 0.1) {
		t.Fatal("expected out-of-range lane to be rejected")
	}

	if !u.SetOffsetTrim(3, -0.02) {
		t.Fatal("expected in-range lane to be accepted")
	}

	if err := u.WriteToHardware(); err != nil {
		t.Fatalf("WriteToHardware: %v", err)
	}

	if hal.trim[3] != -0.02 {
		t.Errorf("hal.trim[3] = %v, want -0.02", hal.trim[3])
	}
}

func TestUBlockResetClearsOffsetTrimUnlessKept(t *testing.T) {
	u, _ := newTestUBlock()

	u.SetOffsetTrim(0, 0.05)

	if err := u.Reset(true); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if u.OffsetTrim(0) != 0.05 {
		t.Errorf("OffsetTrim(0) after keep-calibration reset = %v, want 0.05", u.OffsetTrim(0))
	}

	if err := u.Reset(false); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if u.OffsetTrim(0) != 0 {
		t.Errorf("OffsetTrim(0) after full reset = %v, want 0", u.OffsetTrim(0))
	}
}

func TestUBlockResetClearsState(t *testing.T) {
	u, _ := newTestUBlock()

	u.Connect(1, 0, false)
	u.ConnectAlternative(ModeGround, 31, true, false)

	if err := u.Reset(false); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if u.isOutputConnected(0) || u.isOutputConnected(31) {
		t.Fatal("expected all outputs disconnected after reset")
	}

	if u.bSideMode != ModeAnalogInput {
		t.Errorf("bSideMode after reset = %v, want ModeAnalogInput", u.bSideMode)
	}
}
