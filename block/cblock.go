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
	"encoding/json"
	"fmt"
	"math"

	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/chips"
	"github.com/anabrid/lucidac-firmware/entity"
)

const CBlockNumCoeff = 32

// cUpscaleGain is the hardware gain a CBlock lane's upstream I-Block
// upscale bit applies, so a requested |f| > 2 can still be represented by
// dividing the coefficient by this factor before conversion (§4.4).
const cUpscaleGain = 10.055

// CBlockHAL is the hardware-facing half of a CBlock: one MDAC per lane.
type CBlockHAL interface {
	SetLaneRaw(lane int, raw uint16)
}

type cBlockHALHardware struct {
	lanes [CBlockNumCoeff]chips.MDAC12
}

func newCBlockHALHardware(blockAddr bus.Address, b *bus.LocalBus) *cBlockHALHardware {
	baddr := blockAddr.BADDR()

	var h cBlockHALHardware
	for i := range h.lanes {
		h.lanes[i] = chips.NewMDAC12(bus.NewAddress(baddr, uint8(1+i)), b)
	}

	return &h
}

func (h *cBlockHALHardware) SetLaneRaw(lane int, raw uint16) { h.lanes[lane].SetScaleRaw(raw) }

// CBlock is the 32-lane coefficient block: a float factor in [-20, +20] per
// lane, converted to a 12-bit DAC code with a per-lane gain correction
// applied last (§3.3, §4.4).
type CBlock struct {
	Base

	hal CBlockHAL

	factors        [CBlockNumCoeff]float64
	gainCorrection [CBlockNumCoeff]float64

	// upscale[i] reports whether lane i currently needs the I-Block's
	// upscale bit set. It is only recorded here; neither CBlock nor Cluster
	// writes it to the I-Block.
	upscale [CBlockNumCoeff]bool
}

func NewCBlock(id string, c entity.Classifier, hal CBlockHAL) *CBlock {
	cb := &CBlock{Base: NewBase(id, c), hal: hal}
	cb.ResetGainCorrections()

	return cb
}

func (c *CBlock) ResetGainCorrections() {
	for i := range c.gainCorrection {
		c.gainCorrection[i] = 1.0
	}
}

// SetFactor accepts any |f| <= 20, engaging the lane's upscale bit and
// dividing by the hardware upscale gain when |f| > 2 (§4.4).
func (c *CBlock) SetFactor(lane uint8, f float64) bool {
	if int(lane) >= CBlockNumCoeff || math.Abs(f) > 20 {
		return false
	}

	if math.Abs(f) > 2 {
		c.upscale[lane] = true
		f /= cUpscaleGain
	} else {
		c.upscale[lane] = false
	}

	c.factors[lane] = f

	return true
}

func (c *CBlock) Factor(lane uint8) float64 { return c.factors[lane] }

// Upscale reports whether lane currently needs its I-Block upscale bit
// set. Cluster routing does not read it; the I-Block's upscale register
// is set only through IBlock.SetUpscale.
func (c *CBlock) Upscale(lane uint8) bool { return c.upscale[lane] }

func (c *CBlock) SetGainCorrection(lane uint8, correction float64) bool {
	if int(lane) >= CBlockNumCoeff {
		return false
	}

	c.gainCorrection[lane] = correction

	return true
}

func (c *CBlock) GainCorrection(lane uint8) float64 { return c.gainCorrection[lane] }

func (c *CBlock) WriteToHardware() error {
	for lane := 0; lane < CBlockNumCoeff; lane++ {
		corrected := c.factors[lane] * c.gainCorrection[lane]
		c.hal.SetLaneRaw(lane, chips.FloatToRaw(corrected))
	}

	return nil
}

func (c *CBlock) Reset(keepCalibration bool) error {
	for i := range c.factors {
		c.factors[i] = 0
		c.upscale[i] = false
	}

	if !keepCalibration {
		c.ResetGainCorrections()
	}

	return nil
}

func (c *CBlock) ConfigSelfFromJSON(obj map[string]json.RawMessage) error {
	raw, ok := obj["elements"]
	if !ok {
		return nil
	}

	var elements [CBlockNumCoeff]*float64
	if err := json.Unmarshal(raw, &elements); err != nil {
		return fmt.Errorf("block: cblock elements: %w", err)
	}

	for lane, f := range elements {
		if f == nil {
			continue
		}

		if !c.SetFactor(uint8(lane), *f) {
			return fmt.Errorf("block: cblock: invalid factor %v for lane %d", *f, lane)
		}
	}

	return nil
}

func (c *CBlock) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(c.factors)
	if err != nil {
		return nil, err
	}

	return map[string]json.RawMessage{"elements": raw}, nil
}

func init() {
	entity.RegisterBlockFactory(entity.ClassCBlock, 1, func(id string, addr bus.Address, b *bus.LocalBus, c entity.Classifier) (entity.Entity, error) {
		return NewCBlock(id, c, newCBlockHALHardware(addr, b)), nil
	})
}
