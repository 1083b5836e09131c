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

const (
	IBlockNumInputs  = 32
	IBlockNumOutputs = 16
)

// IBlockHAL is the hardware-facing half of an IBlock: a shift register per
// output row holding a 32-bit connection bitmask, plus an upscale register.
type IBlockHAL interface {
	WriteOutputMask(output int, mask uint32)
	WriteUpscale(mask uint32)
}

type iBlockHALHardware struct {
	rows      [IBlockNumOutputs]chips.ShiftRegister
	upscale   chips.ShiftRegister
	upscaleSync bus.TriggerFunction
}

func newIBlockHALHardware(blockAddr bus.Address, b *bus.LocalBus) *iBlockHALHardware {
	baddr := blockAddr.BADDR()

	var h iBlockHALHardware
	for i := range h.rows {
		dataAddr := bus.NewAddress(baddr, uint8(1+2*i))
		latchAddr := bus.NewAddress(baddr, uint8(2+2*i))
		h.rows[i] = chips.NewShiftRegister(dataAddr, latchAddr, b)
	}

	h.upscale = chips.NewShiftRegister(bus.NewAddress(baddr, 62), bus.NewAddress(baddr, 63), b)
	h.upscaleSync = bus.TriggerFunction{Addr: bus.NewAddress(baddr, 63), Bus: b}

	return &h
}

func (h *iBlockHALHardware) WriteOutputMask(output int, mask uint32) {
	h.rows[output].Write([]byte{byte(mask), byte(mask >> 8), byte(mask >> 16), byte(mask >> 24)})
}

func (h *iBlockHALHardware) WriteUpscale(mask uint32) {
	h.upscale.Write([]byte{byte(mask), byte(mask >> 8), byte(mask >> 16), byte(mask >> 24)})
}

// IBlock is the 32x16 implicit summation crossbar: many-to-many, each
// output a 32-bit bitmask of the inputs feeding it (§3.3, §4.4).
type IBlock struct {
	Base

	hal IBlockHAL

	outputMasks [IBlockNumOutputs]uint32
	upscale     uint32
}

func NewIBlock(id string, c entity.Classifier, hal IBlockHAL) *IBlock {
	return &IBlock{Base: NewBase(id, c), hal: hal}
}

// Connect ORs input into output's mask. If exclusive, output's mask is
// cleared first. Unless allowInputSplitting, fails if input is already
// driving any other output (§4.4).
func (ib *IBlock) Connect(input, output uint8, exclusive, allowInputSplitting bool) bool {
	if int(input) >= IBlockNumInputs || int(output) >= IBlockNumOutputs {
		return false
	}

	if !allowInputSplitting && ib.isInputConnectedElsewhere(input, output) {
		return false
	}

	if exclusive {
		ib.outputMasks[output] = 0
	}

	ib.outputMasks[output] |= 1 << input

	return true
}

func (ib *IBlock) isInputConnectedElsewhere(input, skipOutput uint8) bool {
	for output, mask := range ib.outputMasks {
		if uint8(output) == skipOutput {
			continue
		}

		if mask&(1<<input) != 0 {
			return true
		}
	}

	return false
}

func (ib *IBlock) SetUpscale(input uint8, enabled bool) bool {
	if int(input) >= IBlockNumInputs {
		return false
	}

	if enabled {
		ib.upscale |= 1 << input
	} else {
		ib.upscale &^= 1 << input
	}

	return true
}

func (ib *IBlock) OutputMask(output uint8) uint32 { return ib.outputMasks[output] }

func (ib *IBlock) WriteToHardware() error {
	for output, mask := range ib.outputMasks {
		ib.hal.WriteOutputMask(output, mask)
	}

	ib.hal.WriteUpscale(ib.upscale)

	return nil
}

func (ib *IBlock) Reset(keepCalibration bool) error {
	for i := range ib.outputMasks {
		ib.outputMasks[i] = 0
	}

	ib.upscale = 0

	return nil
}

func (ib *IBlock) ConfigSelfFromJSON(obj map[string]json.RawMessage) error {
	raw, ok := obj["outputs"]
	if !ok {
		return nil
	}

	var outputs [IBlockNumOutputs][]uint8
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return fmt.Errorf("block: iblock outputs: %w", err)
	}

	for output, inputs := range outputs {
		ib.outputMasks[output] = 0

		for _, input := range inputs {
			if !ib.Connect(input, uint8(output), false, true) {
				return fmt.Errorf("block: iblock: invalid connection input %d -> output %d", input, output)
			}
		}
	}

	return nil
}

func (ib *IBlock) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	var outputs [IBlockNumOutputs][]uint8

	for output, mask := range ib.outputMasks {
		for input := 0; input < IBlockNumInputs; input++ {
			if mask&(1<<uint(input)) != 0 {
				outputs[output] = append(outputs[output], uint8(input))
			}
		}
	}

	raw, err := json.Marshal(outputs)
	if err != nil {
		return nil, err
	}

	return map[string]json.RawMessage{"outputs": raw}, nil
}

func init() {
	entity.RegisterBlockFactory(entity.ClassIBlock, 1, func(id string, addr bus.Address, b *bus.LocalBus, c entity.Classifier) (entity.Entity, error) {
		return NewIBlock(id, c, newIBlockHALHardware(addr, b)), nil
	})
}
