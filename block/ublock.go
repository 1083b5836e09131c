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
	UBlockNumInputs  = 16
	UBlockNumOutputs = 32
)

// TransmissionMode selects what a U-Block crossbar side (A: outputs 0-15,
// B: outputs 16-31) presents to its two reference input slots when it is
// not plainly passing analog inputs through (§3.3).
type TransmissionMode uint8

const (
	ModeAnalogInput TransmissionMode = 0b00
	ModePosRef      TransmissionMode = 0b01
	ModeNegRef      TransmissionMode = 0b10
	ModeGround      TransmissionMode = 0b11
)

// ReferenceMagnitude is the block-wide scale a reference transmission mode
// presents: the full reference or a tenth of it.
type ReferenceMagnitude uint8

const (
	RefOne      ReferenceMagnitude = 0
	RefOneTenth ReferenceMagnitude = 1
)

// UBlockNumLanes is the width of the offset trim array: one trim DAC per
// cluster-gain lane that calibration's offset-zeroing pass adjusts (§4.6a).
const UBlockNumLanes = 8

// UBlockHAL is the hardware-facing half of a UBlock: the crossbar
// bitstream and the transmission-mode shift register, abstracted so tests
// can substitute a fake without any SPI traffic.
type UBlockHAL interface {
	WriteOutputs(outputInputMap [UBlockNumOutputs]int8) error
	WriteTransmissionModesAndRef(aSide, bSide TransmissionMode, ref ReferenceMagnitude) error
	ResetTransmissionModesAndRef() error
	WriteOffsetTrim(trim [UBlockNumLanes]float64) error
}

// uBlockHALHardware is the real SPI-backed implementation, grounded on the
// chip drivers in chips/umatrix.go and chips/shiftreg.go.
type uBlockHALHardware struct {
	matrix     chips.UMatrix
	matrixSync bus.TriggerFunction

	modeReg  chips.ShiftRegister
	modeSync bus.TriggerFunction

	modeReset bus.TriggerFunction

	trim [UBlockNumLanes]chips.MDAC12
}

// newUBlockHALHardware wires a UBlockHAL to real local-bus functions, one
// FADDR per sub-function, mirroring the V1.2.x hardware revision's fixed
// chip-select assignment. The eight offset-trim DACs take FADDR 7-14,
// immediately after the crossbar and mode sub-functions.
func newUBlockHALHardware(blockAddr bus.Address, b *bus.LocalBus) *uBlockHALHardware {
	baddr := blockAddr.BADDR()

	h := &uBlockHALHardware{
		matrix:     chips.NewUMatrix(bus.NewAddress(baddr, 5), b, UBlockNumOutputs),
		matrixSync: bus.TriggerFunction{Addr: bus.NewAddress(baddr, 6), Bus: b},
		modeReg:    chips.NewShiftRegister(bus.NewAddress(baddr, 2), bus.NewAddress(baddr, 3), b),
		modeSync:   bus.TriggerFunction{Addr: bus.NewAddress(baddr, 3), Bus: b},
		modeReset:  bus.TriggerFunction{Addr: bus.NewAddress(baddr, 4), Bus: b},
	}

	for i := range h.trim {
		h.trim[i] = chips.NewMDAC12(bus.NewAddress(baddr, uint8(7+i)), b)
	}

	return h
}

func (h *uBlockHALHardware) WriteOutputs(outputInputMap [UBlockNumOutputs]int8) error {
	var inputs [UBlockNumOutputs]uint8

	for i, in := range outputInputMap {
		if in >= 0 {
			inputs[i] = uint8(in) + 1
		}
	}

	h.matrix.Transfer(inputs[:])
	h.matrixSync.Trigger()

	return nil
}

func (h *uBlockHALHardware) WriteTransmissionModesAndRef(aSide, bSide TransmissionMode, ref ReferenceMagnitude) error {
	data := byte(ref) | byte(aSide)<<1 | byte(bSide)<<3
	h.modeReg.Write([]byte{data})
	h.modeSync.Trigger()

	return nil
}

func (h *uBlockHALHardware) ResetTransmissionModesAndRef() error {
	h.modeReset.Trigger()
	return nil
}

func (h *uBlockHALHardware) WriteOffsetTrim(trim [UBlockNumLanes]float64) error {
	for i, f := range trim {
		h.trim[i].SetScale(f)
	}

	return nil
}

// UBlock is the 16x32 voltage crossbar (§3.3, §4.4).
type UBlock struct {
	Base

	hal UBlockHAL

	outputInputMap [UBlockNumOutputs]int8
	refMagnitude   ReferenceMagnitude
	aSideMode      TransmissionMode
	bSideMode      TransmissionMode
	offsetTrim     [UBlockNumLanes]float64
}

func NewUBlock(id string, c entity.Classifier, hal UBlockHAL) *UBlock {
	u := &UBlock{Base: NewBase(id, c), hal: hal}
	u.ResetConnections()

	return u
}

// ResetConnections disconnects every output.
func (u *UBlock) ResetConnections() {
	for i := range u.outputInputMap {
		u.outputInputMap[i] = -1
	}
}

func sideForOutput(output uint8) (isASide bool) { return output < 16 }

// refInputFor returns the canonical reference input slot (14 or 15) for
// the given output's side.
func refInputFor(output uint8) uint8 {
	if output < 16 {
		return 15
	}

	return 14
}

// Connect wires input to output, adjusting the side's transmission mode
// back to AnalogInput when needed, or failing unless force is set (§4.4).
func (u *UBlock) Connect(input, output uint8, force bool) bool {
	if input >= UBlockNumInputs || output >= UBlockNumOutputs {
		return false
	}

	if !force && u.isOutputConnected(output) {
		return false
	}

	side := sideForOutput(output)
	ref := refInputFor(output)

	if side {
		if u.aSideMode != ModeAnalogInput && input != ref {
			if !force && u.isInputConnected(input) {
				return false
			}

			u.aSideMode = ModeAnalogInput
		}
	} else {
		if u.bSideMode != ModeAnalogInput && input != ref {
			if !force && u.isInputConnected(input) {
				return false
			}

			u.bSideMode = ModeAnalogInput
		}
	}

	u.outputInputMap[output] = int8(input)

	return true
}

// ConnectAlternative forces output's side into mode and wires its
// canonical reference input (§4.4).
func (u *UBlock) ConnectAlternative(mode TransmissionMode, output uint8, force bool, useASide bool) bool {
	if output >= UBlockNumOutputs || mode == ModeAnalogInput {
		return false
	}

	if (mode == ModePosRef || mode == ModeNegRef) && u.refMagnitude != RefOne && !force {
		return false
	}

	if !force && u.isOutputConnected(output) {
		return false
	}

	if useASide {
		if u.aSideMode != mode {
			if !force {
				return false
			}

			u.aSideMode = mode
		}
	} else {
		if u.bSideMode != mode {
			if !force && (u.isInputConnected(14) || u.isInputConnected(15)) {
				return false
			}

			u.bSideMode = mode
		}
	}

	input := refInputFor(output)

	u.outputInputMap[output] = int8(input)

	return true
}

// Disconnect clears a single output, if it currently carries input.
func (u *UBlock) Disconnect(input, output uint8) bool {
	if input >= UBlockNumInputs || output >= UBlockNumOutputs {
		return false
	}

	if u.outputInputMap[output] != int8(input) {
		return false
	}

	u.outputInputMap[output] = -1

	return true
}

// SetOffsetTrim adjusts one lane's offset trim DAC, the per-lane correction
// calibration's offset-zeroing pass iterates toward zero (§4.6a).
func (u *UBlock) SetOffsetTrim(lane int, v float64) bool {
	if lane < 0 || lane >= UBlockNumLanes {
		return false
	}

	u.offsetTrim[lane] = v

	return true
}

func (u *UBlock) OffsetTrim(lane int) float64 { return u.offsetTrim[lane] }

func (u *UBlock) isOutputConnected(output uint8) bool { return u.outputInputMap[output] >= 0 }

func (u *UBlock) isInputConnected(input uint8) bool {
	for _, in := range u.outputInputMap {
		if in == int8(input) {
			return true
		}
	}

	return false
}

func (u *UBlock) WriteToHardware() error {
	if err := u.hal.WriteOutputs(u.outputInputMap); err != nil {
		return err
	}

	if err := u.hal.WriteTransmissionModesAndRef(u.aSideMode, u.bSideMode, u.refMagnitude); err != nil {
		return err
	}

	return u.hal.WriteOffsetTrim(u.offsetTrim)
}

func (u *UBlock) Reset(keepCalibration bool) error {
	u.aSideMode = ModeAnalogInput
	u.bSideMode = ModeAnalogInput
	u.refMagnitude = RefOne
	u.ResetConnections()

	if !keepCalibration {
		u.offsetTrim = [UBlockNumLanes]float64{}
	}

	return nil
}

type uBlockOutputsJSON struct {
	Outputs [UBlockNumOutputs]*uint8 `json:"outputs"`
}

func (u *UBlock) ConfigSelfFromJSON(obj map[string]json.RawMessage) error {
	if raw, ok := obj["outputs"]; ok {
		var outputs [UBlockNumOutputs]*uint8
		if err := json.Unmarshal(raw, &outputs); err != nil {
			return fmt.Errorf("block: ublock outputs: %w", err)
		}

		u.ResetConnections()

		for output, input := range outputs {
			if input == nil {
				continue
			}

			if !u.Connect(*input, uint8(output), true) {
				return fmt.Errorf("block: ublock: cannot connect input %d to output %d", *input, output)
			}
		}
	}

	return nil
}

func (u *UBlock) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	var outputs [UBlockNumOutputs]*uint8

	for output, input := range u.outputInputMap {
		if input >= 0 {
			v := uint8(input)
			outputs[output] = &v
		}
	}

	raw, err := json.Marshal(outputs)
	if err != nil {
		return nil, err
	}

	return map[string]json.RawMessage{"outputs": raw}, nil
}

func init() {
	entity.RegisterBlockFactory(entity.ClassUBlock, 1, func(id string, addr bus.Address, b *bus.LocalBus, c entity.Classifier) (entity.Entity, error) {
		return NewUBlock(id, c, newUBlockHALHardware(addr, b)), nil
	})
}
