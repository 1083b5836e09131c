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

	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/chips"
	"github.com/anabrid/lucidac-firmware/entity"
)

const MMulNumMultipliers = 4

// MMulOffsetLimit bounds each calibration trim to [-0.1, +0.1] (§3.3).
const MMulOffsetLimit = 0.1

// MMulOffsets is one multiplier's input/output offset trim.
type MMulOffsets struct {
	X, Y, Z float64
}

// MMulHAL is the hardware-facing half of an MMulBlock: three trim DACs per
// multiplier (x input, y input, z output offset). The multiplier signal
// path itself carries no configuration (§3.3: "configuration-less for
// signal").
type MMulHAL interface {
	WriteInputOffsets(idx int, offsetX, offsetY float64)
	WriteOutputOffset(idx int, offsetZ float64)
}

type mMulHALHardware struct {
	trimX, trimY, trimZ [MMulNumMultipliers]chips.MDAC12
}

func newMMulHALHardware(blockAddr bus.Address, b *bus.LocalBus) *mMulHALHardware {
	baddr := blockAddr.BADDR()

	var h mMulHALHardware
	for i := 0; i < MMulNumMultipliers; i++ {
		h.trimX[i] = chips.NewMDAC12(bus.NewAddress(baddr, uint8(1+3*i)), b)
		h.trimY[i] = chips.NewMDAC12(bus.NewAddress(baddr, uint8(2+3*i)), b)
		h.trimZ[i] = chips.NewMDAC12(bus.NewAddress(baddr, uint8(3+3*i)), b)
	}

	return &h
}

// offsetToScale maps an offset trim in [-0.1, +0.1] onto the MDAC12's
// [-1, +1] scale input, at the trim pot's reduced range.
func offsetToScale(offset float64) float64 { return offset / MMulOffsetLimit }

func (h *mMulHALHardware) WriteInputOffsets(idx int, offsetX, offsetY float64) {
	h.trimX[idx].SetScale(offsetToScale(offsetX))
	h.trimY[idx].SetScale(offsetToScale(offsetY))
}

func (h *mMulHALHardware) WriteOutputOffset(idx int, offsetZ float64) {
	h.trimZ[idx].SetScale(offsetToScale(offsetZ))
}

// MMulBlock is the M-Mul math block: 4 analog multipliers with per-channel
// calibration offsets but no signal-path configuration (§3.3, §4.4).
type MMulBlock struct {
	Base

	hal MMulHAL

	calibration [MMulNumMultipliers]MMulOffsets
}

func NewMMulBlock(id string, c entity.Classifier, hal MMulHAL) *MMulBlock {
	return &MMulBlock{Base: NewBase(id, c), hal: hal}
}

// SetCalibration clamps each of x, y, z to [-0.1, +0.1] without error (the
// calibration search routine steps to the boundary and keeps going; §8
// notes this is a warning condition, not a hard failure) and stores it.
func (mm *MMulBlock) SetCalibration(idx uint8, o MMulOffsets) bool {
	if int(idx) >= MMulNumMultipliers {
		return false
	}

	mm.calibration[idx] = MMulOffsets{
		X: clampOffset(o.X),
		Y: clampOffset(o.Y),
		Z: clampOffset(o.Z),
	}

	return true
}

func clampOffset(v float64) float64 {
	if v > MMulOffsetLimit {
		return MMulOffsetLimit
	}
	if v < -MMulOffsetLimit {
		return -MMulOffsetLimit
	}

	return v
}

func (mm *MMulBlock) Calibration(idx uint8) MMulOffsets { return mm.calibration[idx] }

func (mm *MMulBlock) WriteToHardware() error {
	for i, o := range mm.calibration {
		mm.hal.WriteInputOffsets(i, o.X, o.Y)
		mm.hal.WriteOutputOffset(i, o.Z)
	}

	return nil
}

func (mm *MMulBlock) Reset(keepCalibration bool) error {
	if !keepCalibration {
		for i := range mm.calibration {
			mm.calibration[i] = MMulOffsets{}
		}
	}

	return nil
}

type mMulConfigJSON struct {
	OffsetX *[MMulNumMultipliers]float64 `json:"offset_x,omitempty"`
	OffsetY *[MMulNumMultipliers]float64 `json:"offset_y,omitempty"`
	OffsetZ *[MMulNumMultipliers]float64 `json:"offset_z,omitempty"`
}

func (mm *MMulBlock) ConfigSelfFromJSON(obj map[string]json.RawMessage) error {
	merged, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	var cfg mMulConfigJSON
	if err := json.Unmarshal(merged, &cfg); err != nil {
		return fmt.Errorf("block: mmulblock: %w", err)
	}

	if cfg.OffsetX == nil && cfg.OffsetY == nil && cfg.OffsetZ == nil {
		return nil
	}

	if cfg.OffsetX == nil || cfg.OffsetY == nil || cfg.OffsetZ == nil {
		return fmt.Errorf("block: mmulblock: offset_x, offset_y, offset_z must all be given together")
	}

	for i := 0; i < MMulNumMultipliers; i++ {
		mm.SetCalibration(uint8(i), MMulOffsets{X: cfg.OffsetX[i], Y: cfg.OffsetY[i], Z: cfg.OffsetZ[i]})
	}

	return nil
}

func (mm *MMulBlock) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	var x, y, z [MMulNumMultipliers]float64

	for i, o := range mm.calibration {
		x[i], y[i], z[i] = o.X, o.Y, o.Z
	}

	xRaw, _ := json.Marshal(x)
	yRaw, _ := json.Marshal(y)
	zRaw, _ := json.Marshal(z)

	return map[string]json.RawMessage{"offset_x": xRaw, "offset_y": yRaw, "offset_z": zRaw}, nil
}

func init() {
	entity.RegisterBlockFactory(entity.ClassMBlock, 2, func(id string, addr bus.Address, b *bus.LocalBus, c entity.Classifier) (entity.Entity, error) {
		return NewMMulBlock(id, c, newMMulHALHardware(addr, b)), nil
	})
}
