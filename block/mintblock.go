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

const MIntNumIntegrators = 8

// Allowed integrator time factors: slow (100) or fast (10000) (§3.3).
const (
	TimeFactorSlow = 100
	TimeFactorFast = 10000
)

// MIntHAL is the hardware-facing half of an MIntBlock: an 8-channel IC DAC
// and a time-factor shift register.
type MIntHAL interface {
	Init()
	WriteIC(idx int, raw uint16)
	WriteTimeFactors(fastMask uint8)
}

type mIntHALHardware struct {
	ic               chips.DAC60508
	timeFactor       chips.ShiftRegister
	timeFactorSync   bus.TriggerFunction
}

func newMIntHALHardware(blockAddr bus.Address, b *bus.LocalBus) *mIntHALHardware {
	baddr := blockAddr.BADDR()

	return &mIntHALHardware{
		ic:             chips.NewDAC60508(bus.NewAddress(baddr, 1), b),
		timeFactor:     chips.NewShiftRegister(bus.NewAddress(baddr, 3), bus.NewAddress(baddr, 4), b),
		timeFactorSync: bus.TriggerFunction{Addr: bus.NewAddress(baddr, 4), Bus: b},
	}
}

func (h *mIntHALHardware) Init() { h.ic.Init() }

func (h *mIntHALHardware) WriteIC(idx int, raw uint16) { h.ic.SetChannelRaw(uint8(idx), raw) }

func (h *mIntHALHardware) WriteTimeFactors(fastMask uint8) {
	h.timeFactor.Write([]byte{fastMask})
}

// MIntBlock is the M-Int math block: 8 integrators, each with an initial
// condition and a slow/fast time factor (§3.3, §4.4).
type MIntBlock struct {
	Base

	hal MIntHAL

	ic          [MIntNumIntegrators]float64
	timeFactors [MIntNumIntegrators]int
}

func NewMIntBlock(id string, c entity.Classifier, hal MIntHAL) *MIntBlock {
	m := &MIntBlock{Base: NewBase(id, c), hal: hal}

	for i := range m.timeFactors {
		m.timeFactors[i] = TimeFactorFast
	}

	return m
}

func (m *MIntBlock) Init() error {
	m.hal.Init()
	return nil
}

func (m *MIntBlock) SetIC(idx uint8, v float64) bool {
	if int(idx) >= MIntNumIntegrators || v < -1 || v > 1 {
		return false
	}

	m.ic[idx] = v

	return true
}

func (m *MIntBlock) SetTimeFactor(idx uint8, k int) bool {
	if int(idx) >= MIntNumIntegrators || (k != TimeFactorSlow && k != TimeFactorFast) {
		return false
	}

	m.timeFactors[idx] = k

	return true
}

// icRaw converts an initial condition to the DAC code the hardware
// expects: (ic+1)*1.25 V, so ic=-1 maps to 0 V (DAC60508RawZero) and
// ic=+1 to 2.5 V (DAC60508RawTwoFive), linearly in between (§4.4).
func icRaw(ic float64) uint16 {
	volts := (ic + 1) * 1.25
	span := float64(chips.DAC60508RawTwoFive - chips.DAC60508RawZero)
	code := chips.DAC60508RawZero + volts/2.5*span

	if code < chips.DAC60508RawZero {
		code = chips.DAC60508RawZero
	}
	if code > chips.DAC60508RawTwoFive {
		code = chips.DAC60508RawTwoFive
	}

	return uint16(code)
}

func (m *MIntBlock) WriteToHardware() error {
	for i, v := range m.ic {
		m.hal.WriteIC(i, icRaw(v))
	}

	var fastMask uint8
	for i, k := range m.timeFactors {
		if k == TimeFactorFast {
			fastMask |= 1 << uint(i)
		}
	}

	m.hal.WriteTimeFactors(fastMask)

	return nil
}

func (m *MIntBlock) Reset(keepCalibration bool) error {
	for i := range m.ic {
		m.ic[i] = 0
		m.timeFactors[i] = TimeFactorFast
	}

	return nil
}

type mIntConfigJSON struct {
	IC          *[MIntNumIntegrators]*float64 `json:"ic,omitempty"`
	TimeFactors *[MIntNumIntegrators]*int     `json:"k,omitempty"`
}

func (m *MIntBlock) ConfigSelfFromJSON(obj map[string]json.RawMessage) error {
	var cfg mIntConfigJSON

	merged, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(merged, &cfg); err != nil {
		return fmt.Errorf("block: mintblock: %w", err)
	}

	if cfg.IC != nil {
		for i, v := range cfg.IC {
			if v == nil {
				continue
			}

			if !m.SetIC(uint8(i), *v) {
				return fmt.Errorf("block: mintblock: invalid ic %v at %d", *v, i)
			}
		}
	}

	if cfg.TimeFactors != nil {
		for i, k := range cfg.TimeFactors {
			if k == nil {
				continue
			}

			if !m.SetTimeFactor(uint8(i), *k) {
				return fmt.Errorf("block: mintblock: invalid time factor %v at %d", *k, i)
			}
		}
	}

	return nil
}

func (m *MIntBlock) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	icRaw, err := json.Marshal(m.ic)
	if err != nil {
		return nil, err
	}

	kRaw, err := json.Marshal(m.timeFactors)
	if err != nil {
		return nil, err
	}

	return map[string]json.RawMessage{"ic": icRaw, "k": kRaw}, nil
}

func init() {
	entity.RegisterBlockFactory(entity.ClassMBlock, 1, func(id string, addr bus.Address, b *bus.LocalBus, c entity.Classifier) (entity.Entity, error) {
		return NewMIntBlock(id, c, newMIntHALHardware(addr, b)), nil
	})
}
