// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cluster composes a U/C/I/M/SH block quintet into a single
// routable entity: route(), constant injection, front-panel external
// routing, reset, and dynamic detection of the blocks present at init
// (§4.5).
package cluster

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/anabrid/lucidac-firmware/block"
	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/entity"
)

// routeOutConstantFactor is the default coefficient used when routing a
// signal to the front-panel external outputs, chosen to keep signals
// within the +-1V lane range (§4.5).
const routeOutConstantFactor = 0.5

// externalInputBase / externalOutputBase are the dedicated front-panel
// lane indices route_in_external / route_out_external wire through.
const (
	externalInputBase  = 8
	externalOutputBase = 24
)

// Cluster composes one each of U, C, I, SH and up to two M blocks (§3.5,
// §4.5).
type Cluster struct {
	idx int

	ublock  *block.UBlock
	cblock  *block.CBlock
	iblock  *block.IBlock
	shblock *block.SHBlock
	m0, m1  entity.Entity
}

// New constructs a Cluster with no blocks detected yet; call Init to probe
// the local bus.
func New(idx int) *Cluster {
	return &Cluster{idx: idx}
}

// Init dynamically detects each block slot by reading its identity EEPROM
// and matching the registered block factory table (§4.5). U, C, and I are
// mandatory; the second M-slot is optional. Failure of a mandatory slot
// fails Init.
func (c *Cluster) Init(b *bus.LocalBus) error {
	uEntity, err := c.detectMandatory(b, bus.SlotU, "U")
	if err != nil {
		return err
	}

	u, ok := uEntity.(*block.UBlock)
	if !ok {
		return fmt.Errorf("cluster: slot U detected non-UBlock entity %T", uEntity)
	}

	cEntity, err := c.detectMandatory(b, bus.SlotC, "C")
	if err != nil {
		return err
	}

	cb, ok := cEntity.(*block.CBlock)
	if !ok {
		return fmt.Errorf("cluster: slot C detected non-CBlock entity %T", cEntity)
	}

	iEntity, err := c.detectMandatory(b, bus.SlotI, "I")
	if err != nil {
		return err
	}

	ib, ok := iEntity.(*block.IBlock)
	if !ok {
		return fmt.Errorf("cluster: slot I detected non-IBlock entity %T", iEntity)
	}

	shEntity, err := entity.Detect("SH", b, bus.BlockBADDR(c.idx, bus.SlotSH))
	if err != nil {
		return fmt.Errorf("cluster %d: SH slot: %w", c.idx, err)
	}

	var sh *block.SHBlock
	if shEntity != nil {
		sh, ok = shEntity.(*block.SHBlock)
		if !ok {
			return fmt.Errorf("cluster: slot SH detected non-SHBlock entity %T", shEntity)
		}
	}

	m0, err := entity.Detect("0", b, bus.BlockBADDR(c.idx, bus.SlotM0))
	if err != nil {
		return fmt.Errorf("cluster %d: M0 slot: %w", c.idx, err)
	}

	m1, err := entity.Detect("1", b, bus.BlockBADDR(c.idx, bus.SlotM1))
	if err != nil {
		return fmt.Errorf("cluster %d: M1 slot: %w", c.idx, err)
	}

	c.ublock, c.cblock, c.iblock, c.shblock = u, cb, ib, sh
	c.m0, c.m1 = m0, m1

	return nil
}

func (c *Cluster) detectMandatory(b *bus.LocalBus, slot uint8, id string) (entity.Entity, error) {
	e, err := entity.Detect(id, b, bus.BlockBADDR(c.idx, slot))
	if err != nil {
		return nil, fmt.Errorf("cluster %d: mandatory slot %s: %w", c.idx, id, err)
	}

	if e == nil {
		return nil, fmt.Errorf("cluster %d: mandatory slot %s not populated", c.idx, id)
	}

	return e, nil
}

// Route composes ublock.connect, cblock.set_factor and iblock.connect for
// one signal path (§4.5).
func (c *Cluster) Route(uIn, uOut uint8, cFactor float64, iOut uint8) bool {
	if !c.ublock.Connect(uIn, uOut, false) {
		return false
	}

	if !c.cblock.SetFactor(uOut, cFactor) {
		return false
	}

	return c.iblock.Connect(uOut, iOut, false, true)
}

// AddConstant wires a reference signal (instead of a regular U-Block
// input) into the given output lane (§4.5).
func (c *Cluster) AddConstant(refMode block.TransmissionMode, uOut uint8, cFactor float64, iOut uint8) bool {
	if !c.ublock.ConnectAlternative(refMode, uOut, false, false) {
		return false
	}

	if !c.cblock.SetFactor(uOut, cFactor) {
		return false
	}

	return c.iblock.Connect(uOut, iOut, false, true)
}

// RouteInExternal wires one of the front-panel input lanes (0-7) into the
// I-Block output iOut (§4.5).
func (c *Cluster) RouteInExternal(input, iOut uint8) bool {
	if input > 7 {
		return false
	}

	return c.iblock.Connect(externalInputBase+input, iOut, false, true)
}

// RouteOutExternal wires U-Block input uIn to the front-panel output lane
// (0-7), defaulting cFactor to 0.5 to keep the output within +-1V (§4.5).
func (c *Cluster) RouteOutExternal(uIn, output uint8, cFactor float64) bool {
	if output > 7 {
		return false
	}

	uOut := externalOutputBase + output

	if !c.ublock.Connect(uIn, uOut, false) {
		return false
	}

	return c.cblock.SetFactor(uOut, cFactor)
}

// Reset returns every block the cluster holds to its defaults (§4.5).
func (c *Cluster) Reset(keepCalibration bool) error {
	for _, e := range c.blockEntities() {
		if resettable, ok := e.(interface{ Reset(bool) error }); ok {
			if err := resettable.Reset(keepCalibration); err != nil {
				return err
			}
		}
	}

	return nil
}

// blockEntities lists the cluster's blocks in fixed write order: U, C, I,
// M0, M1, SH (§5 ordering guarantee — SH must flush last since it freezes
// whatever the other blocks just settled).
func (c *Cluster) blockEntities() []entity.Entity {
	out := []entity.Entity{c.ublock, c.cblock, c.iblock}

	if c.m0 != nil {
		out = append(out, c.m0)
	}
	if c.m1 != nil {
		out = append(out, c.m1)
	}
	if c.shblock != nil {
		out = append(out, c.shblock)
	}

	return out
}

func (c *Cluster) ID() string { return strconv.Itoa(c.idx) }

func (c *Cluster) Classifier() entity.Classifier { return entity.Classifier{Class: entity.ClassCluster} }

func (c *Cluster) Children() []entity.Entity { return c.blockEntities() }

func (c *Cluster) ConfigSelfFromJSON(obj map[string]json.RawMessage) error { return nil }

func (c *Cluster) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	return map[string]json.RawMessage{}, nil
}

func (c *Cluster) WriteToHardware() error { return nil }
