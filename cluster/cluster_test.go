// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cluster

import (
	"testing"

	"github.com/anabrid/lucidac-firmware/block"
	"github.com/anabrid/lucidac-firmware/entity"
)

type nopUHAL struct{}

func (nopUHAL) WriteOutputs([block.UBlockNumOutputs]int8) error                     { return nil }
func (nopUHAL) WriteTransmissionModesAndRef(block.TransmissionMode, block.TransmissionMode, block.ReferenceMagnitude) error {
	return nil
}
func (nopUHAL) ResetTransmissionModesAndRef() error                   { return nil }
func (nopUHAL) WriteOffsetTrim([block.UBlockNumLanes]float64) error { return nil }

type nopCHAL struct{}

func (nopCHAL) SetLaneRaw(int, uint16) {}

type nopIHAL struct{}

func (nopIHAL) WriteOutputMask(int, uint32) {}
func (nopIHAL) WriteUpscale(uint32)         {}

func newTestCluster() *Cluster {
	return &Cluster{
		idx:    0,
		ublock: block.NewUBlock("U", entity.Classifier{Class: entity.ClassUBlock}, nopUHAL{}),
		cblock: block.NewCBlock("C", entity.Classifier{Class: entity.ClassCBlock}, nopCHAL{}),
		iblock: block.NewIBlock("I", entity.Classifier{Class: entity.ClassIBlock}, nopIHAL{}),
	}
}

func TestClusterRouteComposesAllThreeBlocks(t *testing.T) {
	c := newTestCluster()

	if !c.Route(3, 5, 1.5, 2) {
		t.Fatal("expected route to succeed")
	}

	if c.iblock.OutputMask(2)&(1<<5) == 0 {
		t.Error("expected iblock output 2 to include bit for u_out 5")
	}
}

func TestClusterRouteFailsOnInvalidFactor(t *testing.T) {
	c := newTestCluster()

	if c.Route(0, 0, 21, 0) {
		t.Fatal("expected route with |c_factor| > 20 to fail")
	}
}

func TestClusterRouteOutExternalDefaultsFactor(t *testing.T) {
	c := newTestCluster()

	if !c.RouteOutExternal(2, 0, routeOutConstantFactor) {
		t.Fatal("expected route_out_external to succeed")
	}

	if got := c.cblock.Factor(externalOutputBase); got != routeOutConstantFactor {
		t.Errorf("factor = %v, want %v", got, routeOutConstantFactor)
	}
}

func TestClusterRouteOutExternalRejectsOutOfRangeOutput(t *testing.T) {
	c := newTestCluster()

	if c.RouteOutExternal(0, 8, 0.5) {
		t.Fatal("expected output > 7 to be rejected")
	}
}

func TestClusterResetReturnsBlocksToDefaults(t *testing.T) {
	c := newTestCluster()

	c.Route(1, 1, 0.5, 1)

	if err := c.Reset(false); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if c.cblock.Factor(1) != 0 {
		t.Errorf("expected cblock factor reset to 0, got %v", c.cblock.Factor(1))
	}
}
