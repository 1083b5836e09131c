// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package carrier

import (
	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/chips"
)

// Function indices of the carrier module's ADC switcher functions, fixed
// per module address 5 (§3.1, grounded on the original's ADC_PRG_FADDR/
// ADC_STROBE_FADDR/ADC_RESET_8816_FADDR).
const (
	adcSwitcherPrgFunc    = 1
	adcSwitcherStrobeFunc = 2
	adcSwitcherResetFunc  = 3
)

type hardwareHAL struct {
	crossbar chips.Crossbar
}

// NewHardwareHAL wires the carrier's ADC channel crossbar to the local
// bus's metadata module (BADDR=5), grounded on the original's
// LUCIDAC_HAL construction in lucidac.cpp.
func NewHardwareHAL(b *bus.LocalBus) HAL {
	return &hardwareHAL{
		crossbar: chips.NewCrossbar(
			bus.NewAddress(bus.CarrierBADDR, adcSwitcherPrgFunc),
			bus.NewAddress(bus.CarrierBADDR, adcSwitcherStrobeFunc),
			bus.NewAddress(bus.CarrierBADDR, adcSwitcherResetFunc),
			b,
		),
	}
}

// WriteADCChannels resets every crosspoint and reprograms the ones
// named by channels, cheaper than tracking which crosspoints were
// previously set (§4.2, original's write_adc_bus_mux).
func (h *hardwareHAL) WriteADCChannels(channels [NumADCChannels]int8) {
	h.crossbar.ResetAll()

	for outputIdx, lane := range channels {
		if lane < 0 {
			continue
		}

		h.crossbar.Connect(uint8(lane), uint8(outputIdx))
	}
}
