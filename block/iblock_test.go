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

type fakeIBlockHAL struct {
	masks   [IBlockNumOutputs]uint32
	upscale uint32
}

func (f *fakeIBlockHAL) WriteOutputMask(output int, mask uint32) { f.masks[output] = mask }
func (f *fakeIBlockHAL) WriteUpscale(mask uint32)                { f.upscale = mask }

func newTestIBlock() (*IBlock, *fakeIBlockHAL) {
	hal := &fakeIBlockHAL{}
	return NewIBlock("I", entity.Classifier{Class: entity.ClassIBlock}, hal), hal
}

func TestIBlockConnectManyToMany(t *testing.T) {
	ib, _ := newTestIBlock()

	if !ib.Connect(3, 0, false, true) {
		t.Fatal("expected connect to succeed")
	}

	if !ib.Connect(5, 0, false, true) {
		t.Fatal("expected second connect on same output to succeed (many-to-many)")
	}

	mask := ib.OutputMask(0)
	if mask != (1<<3)|(1<<5) {
		t.Errorf("mask = %b, want bits 3 and 5 set", mask)
	}
}

func TestIBlockConnectExclusiveClearsFirst(t *testing.T) {
	ib, _ := newTestIBlock()

	ib.Connect(1, 2, false, true)
	ib.Connect(3, 2, true, true)

	if ib.OutputMask(2) != 1<<3 {
		t.Errorf("mask = %b, want only bit 3 set", ib.OutputMask(2))
	}
}

func TestIBlockConnectRejectsSplittingWhenDisallowed(t *testing.T) {
	ib, _ := newTestIBlock()

	ib.Connect(4, 0, false, false)

	if ib.Connect(4, 1, false, false) {
		t.Fatal("expected splitting input across outputs to fail when disallowed")
	}
}

func TestIBlockWriteToHardwareFlushesAllRows(t *testing.T) {
	ib, hal := newTestIBlock()

	ib.Connect(0, 0, false, true)
	ib.SetUpscale(0, true)

	if err := ib.WriteToHardware(); err != nil {
		t.Fatalf("WriteToHardware: %v", err)
	}

	if hal.masks[0] != 1 {
		t.Errorf("hal.masks[0] = %d, want 1", hal.masks[0])
	}

	if hal.upscale != 1 {
		t.Errorf("hal.upscale = %d, want 1", hal.upscale)
	}
}
