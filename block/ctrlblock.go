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

// ADCBus selects which 8-wide analog bus feeds the 8 ADC channels (§3.3).
type ADCBus uint8

const (
	ADCBusCluster0Gain ADCBus = 0
	ADCBusCluster1Gain ADCBus = 1
	ADCBusCluster2Gain ADCBus = 2
	ADCBusADC          ADCBus = 3
)

const syncIDMax = 63

// CTRLBlockHAL is the hardware-facing half of a CTRLBlock: an ADC bus
// muxer shift register and a sync-id word function.
type CTRLBlockHAL interface {
	WriteADCBusMuxers(bus ADCBus)
	WriteSyncID(id uint8)
}

type ctrlBlockHALHardware struct {
	adcMux      chips.ShiftRegister
	adcMuxLatch bus.TriggerFunction
	sync        bus.DataFunction
}

func newCTRLBlockHALHardware(blockAddr bus.Address, b *bus.LocalBus) *ctrlBlockHALHardware {
	baddr := blockAddr.BADDR()

	return &ctrlBlockHALHardware{
		adcMux:      chips.NewShiftRegister(bus.NewAddress(baddr, 1), bus.NewAddress(baddr, 2), b),
		adcMuxLatch: bus.TriggerFunction{Addr: bus.NewAddress(baddr, 2), Bus: b},
		sync: bus.DataFunction{
			Addr: bus.NewAddress(baddr, 3),
			Bus:  b,
			Settings: bus.Settings{
				ClockHz:  4_000_000,
				Mode:     bus.Mode1,
				MSBFirst: true,
			},
		},
	}
}

func (h *ctrlBlockHALHardware) WriteADCBusMuxers(adcBus ADCBus) {
	h.adcMux.Write([]byte{byte(adcBus)})
}

// WriteSyncID encodes the sync ID as a single 16-bit word
// (id << 1) | 0b10000001 (§4.4).
func (h *ctrlBlockHALHardware) WriteSyncID(id uint8) {
	word := uint16(id)<<1 | 0b10000001

	h.sync.BeginCommunication()
	bus.Transfer16(h.sync.Bus.SPI, word)
	h.sync.EndCommunication()
}

// CTRLBlock chooses the ADC bus source and issues the multi-unit sync ID
// (§3.3, §4.4).
type CTRLBlock struct {
	Base

	hal CTRLBlockHAL

	adcBus ADCBus
	syncID uint8
}

func NewCTRLBlock(id string, c entity.Classifier, hal CTRLBlockHAL) *CTRLBlock {
	return &CTRLBlock{Base: NewBase(id, c), hal: hal, adcBus: ADCBusADC}
}

func (cb *CTRLBlock) SetADCBus(b ADCBus) { cb.adcBus = b }

func (cb *CTRLBlock) ADCBus() ADCBus { return cb.adcBus }

func (cb *CTRLBlock) SetADCBusToClusterGain(clusterIdx uint8) bool {
	if clusterIdx > 2 {
		return false
	}

	cb.adcBus = ADCBus(clusterIdx)

	return true
}

func (cb *CTRLBlock) ResetADCBus() { cb.adcBus = ADCBusADC }

func (cb *CTRLBlock) SetSyncID(id uint8) bool {
	if id > syncIDMax {
		return false
	}

	cb.syncID = id

	return true
}

func (cb *CTRLBlock) WriteToHardware() error {
	cb.hal.WriteADCBusMuxers(cb.adcBus)
	cb.hal.WriteSyncID(cb.syncID)

	return nil
}

func (cb *CTRLBlock) Reset(keepCalibration bool) error {
	cb.ResetADCBus()
	cb.syncID = 0

	return nil
}

type ctrlConfigJSON struct {
	ADCBus *uint8 `json:"adc_bus,omitempty"`
	SyncID *uint8 `json:"sync_id,omitempty"`
}

func (cb *CTRLBlock) ConfigSelfFromJSON(obj map[string]json.RawMessage) error {
	merged, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	var cfg ctrlConfigJSON
	if err := json.Unmarshal(merged, &cfg); err != nil {
		return fmt.Errorf("block: ctrlblock: %w", err)
	}

	if cfg.ADCBus != nil {
		if *cfg.ADCBus > uint8(ADCBusADC) {
			return fmt.Errorf("block: ctrlblock: invalid adc_bus %d", *cfg.ADCBus)
		}

		cb.adcBus = ADCBus(*cfg.ADCBus)
	}

	if cfg.SyncID != nil {
		if !cb.SetSyncID(*cfg.SyncID) {
			return fmt.Errorf("block: ctrlblock: invalid sync_id %d", *cfg.SyncID)
		}
	}

	return nil
}

func (cb *CTRLBlock) ConfigSelfToJSON() (map[string]json.RawMessage, error) {
	adcRaw, _ := json.Marshal(uint8(cb.adcBus))
	syncRaw, _ := json.Marshal(cb.syncID)

	return map[string]json.RawMessage{"adc_bus": adcRaw, "sync_id": syncRaw}, nil
}

func init() {
	entity.RegisterBlockFactory(entity.ClassCTRLBlock, 1, func(id string, addr bus.Address, b *bus.LocalBus, c entity.Classifier) (entity.Entity, error) {
		return NewCTRLBlock(id, c, newCTRLBlockHALHardware(addr, b)), nil
	})
}
