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
	"github.com/anabrid/lucidac-firmware/entity"
)

// SHState is the sample-and-hold block's state. Transitions are
// trigger-driven only: writing to hardware re-fires the trigger for the
// current state (§3.3).
type SHState int

const (
	SHTrack SHState = iota
	SHTrackAtIC
	SHGain
	SHInject
	SHGainChannels0to7
	SHGainChannels8to15
)

// SHHAL is the hardware-facing half of an SHBlock: one trigger line per
// state.
type SHHAL interface {
	Trigger(state SHState)
}

type shHALHardware struct {
	triggers map[SHState]bus.TriggerFunction
}

func newSHHALHardware(blockAddr bus.Address, b *bus.LocalBus) *shHALHardware {
	baddr := blockAddr.BADDR()

	return &shHALHardware{triggers: map[SHState]bus.TriggerFunction{
		SHTrack:             {Addr: bus.NewAddress(baddr, 2), Bus: b},
		SHTrackAtIC:         {Addr: bus.NewAddress(baddr, 3), Bus: b},
		SHGain:              {Addr: bus.NewAddress(baddr, 4), Bus: b},
		SHGainChannels0to7:  {Addr: bus.NewAddress(baddr, 5), Bus: b},
		SHGainChannels8to15: {Addr: bus.NewAddress(baddr, 6), Bus: b},
		SHInject:            {Addr: bus.NewAddress(baddr, 7), Bus: b},
	}}
}

func (h *shHALHardware) Trigger(state SHState) {
	if t, ok := h.triggers[state]; ok {
		t.Trigger()
	}
}

// SHBlock is the sample-and-hold block: a single trigger-driven state
// shared by all lanes (§3.3).
type SHBlock struct {
	Base

	hal SHHAL

	state SHState
}

// NewSHBlock constructs an SHBlock. The default state after reset is
// Inject, matching the hardware's power-on behaviour.
func NewSHBlock(id string, c entity.Classifier, hal SHHAL) *SHBlock {
	return &SHBlock{Base: NewBase(id, c), hal: hal, state: SHInject}
}

func (sh *SHBlock) SetState(state SHState) { sh.state = state }

func (sh *SHBlock) State() SHState { return sh.state }

func (sh *SHBlock) WriteToHardware() error {
	sh.hal.Trigger(sh.state)
	return nil
}

func (sh *SHBlock) Reset(keepCalibration bool) error {
	sh.state = SHInject
	return nil
}

var shStateNames = map[string]SHState{
	"track":        SHTrack,
	"track_at_ic":  SHTrackAtIC,
	"gain":         SHGain,
	"inject":       SHInject,
	"gain_0_7":     SHGainChannels0to7,
	"gain_8_15":    SHGainChannels8to15,
}

func (sh *SHBlock) ConfigSelfFromJSON(obj map[string]json.RawMessage) error {
	raw, ok := obj["state"]
	if !ok {
		return nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return fmt.Errorf("block: shblock state: %w", err)
	}

	state, ok := shStateNames[name]
	if !ok {
		return fmt.Errorf("block: shblock: unknown state %q", name)
	}

	sh.state = state

	return nil
}

func (sh *SHBlock) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	name := ""

	for n, s := range shStateNames {
		if s == sh.state {
			name = n
			break
		}
	}

	raw, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}

	return map[string]json.RawMessage{"state": raw}, nil
}

func init() {
	entity.RegisterBlockFactory(entity.ClassSHBlock, 1, func(id string, addr bus.Address, b *bus.LocalBus, c entity.Classifier) (entity.Entity, error) {
		return NewSHBlock(id, c, newSHHALHardware(addr, b)), nil
	})
}
