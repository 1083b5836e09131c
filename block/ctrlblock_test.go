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

type fakeCTRLHAL struct {
	adcBus ADCBus
	syncID uint8
}

func (f *fakeCTRLHAL) WriteADCBusMuxers(b ADCBus) { f.adcBus = b }
func (f *fakeCTRLHAL) WriteSyncID(id uint8)       { f.syncID = id }

func newTestCTRLBlock() (*CTRLBlock, *fakeCTRLHAL) {
	hal := &fakeCTRLHAL{}
	return NewCTRLBlock("CTRL", entity.Classifier{Class: entity.ClassCTRLBlock}, hal), hal
}

func TestCTRLBlockDefaultADCBusIsADC(t *testing.T) {
	cb, _ := newTestCTRLBlock()

	if cb.ADCBus() != ADCBusADC {
		t.Errorf("default ADCBus = %v, want ADCBusADC", cb.ADCBus())
	}
}

func TestCTRLBlockSetADCBusToClusterGain(t *testing.T) {
	cb, _ := newTestCTRLBlock()

	if !cb.SetADCBusToClusterGain(1) {
		t.Fatal("expected cluster index 1 to be accepted")
	}

	if cb.ADCBus() != ADCBusCluster1Gain {
		t.Errorf("ADCBus = %v, want ADCBusCluster1Gain", cb.ADCBus())
	}

	if cb.SetADCBusToClusterGain(3) {
		t.Fatal("expected cluster index 3 to be rejected")
	}
}

func TestCTRLBlockSetSyncIDRange(t *testing.T) {
	cb, _ := newTestCTRLBlock()

	if !cb.SetSyncID(63) {
		t.Fatal("expected sync id 63 to be accepted")
	}

	if cb.SetSyncID(64) {
		t.Fatal("expected sync id 64 to be rejected")
	}
}

func TestCTRLBlockWriteToHardware(t *testing.T) {
	cb, hal := newTestCTRLBlock()

	cb.SetADCBus(ADCBusCluster2Gain)
	cb.SetSyncID(5)

	if err := cb.WriteToHardware(); err != nil {
		t.Fatalf("WriteToHardware: %v", err)
	}

	if hal.adcBus != ADCBusCluster2Gain {
		t.Errorf("hal.adcBus = %v, want ADCBusCluster2Gain", hal.adcBus)
	}

	if hal.syncID != 5 {
		t.Errorf("hal.syncID = %d, want 5", hal.syncID)
	}
}
