// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package lucidac performs one-time hardware bring-up: it wires concrete
// GPIO/SPI backends into a bus.LocalBus, probes the carrier's identity
// memory and clusters, and assembles the resulting entity tree into a
// carrier.Carrier. It is the only package that constructs hardware
// singletons, mirroring the teacher's board/<vendor>/<model> convention of
// a single bring-up entry point per board.
package lucidac

import (
	"fmt"

	"github.com/anabrid/lucidac-firmware/block"
	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/carrier"
	"github.com/anabrid/lucidac-firmware/cluster"
	"github.com/anabrid/lucidac-firmware/entity"
	"github.com/anabrid/lucidac-firmware/hwgpio"
)

// NumClusters is the number of cluster slots a LUCIDAC carrier backplane
// exposes (§3.1).
const NumClusters = 3

// Pins names the local bus's three dedicated control lines, each wired to a
// concrete hwgpio.Pin by the caller (real periph.io-backed GPIO on a Linux
// host bring-up, hwgpio.Memory for an in-process development build).
type Pins struct {
	CS    hwgpio.Pin
	Latch hwgpio.Pin
	Reset hwgpio.Pin
}

// Config names everything one LUCIDAC bring-up needs: the SPI backend
// shared by the local bus and the dedicated control pins.
type Config struct {
	SPI  bus.SPI
	Pins Pins
}

// New brings up the local bus, probes every cluster and the CTRL-Block for
// presence, reads the carrier's own identity EUI, and returns the
// assembled Carrier ready for config/reset/run traffic (§4.5).
func New(cfg Config) (*carrier.Carrier, error) {
	b := &bus.LocalBus{CS: cfg.Pins.CS, Latch: cfg.Pins.Latch, Reset: cfg.Pins.Reset, SPI: cfg.SPI}
	b.Init()

	mem, err := entity.ReadIdentity(b, bus.CarrierBADDR)
	if err != nil {
		return nil, fmt.Errorf("lucidac: reading carrier identity: %w", err)
	}

	ctrlEntity, err := entity.Detect("CTRL", b, bus.CtrlBlockBADDR)
	if err != nil {
		return nil, fmt.Errorf("lucidac: detecting CTRL-Block: %w", err)
	}

	ctrl, ok := ctrlEntity.(*block.CTRLBlock)
	if !ok || ctrl == nil {
		return nil, fmt.Errorf("lucidac: CTRL-Block missing or misclassified at BADDR=%d", bus.CtrlBlockBADDR)
	}

	clusters := make([]*cluster.Cluster, 0, NumClusters)

	for i := 0; i < NumClusters; i++ {
		cl := cluster.New(i)
		if err := cl.Init(b); err != nil {
			return nil, fmt.Errorf("lucidac: cluster %d: %w", i, err)
		}

		clusters = append(clusters, cl)
	}

	return carrier.New(mem.EUI, clusters, ctrl, carrier.NewHardwareHAL(b)), nil
}
