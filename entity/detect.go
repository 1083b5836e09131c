// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package entity

import (
	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/chips"
)

// ReadIdentity reads and parses the 256-byte identity memory at FADDR=0 of
// the module at addr's BADDR.
func ReadIdentity(b *bus.LocalBus, baddr uint8) (Memory, error) {
	eeprom := chips.NewEEPROM(bus.NewAddress(baddr, bus.IdentityFunc), b)

	var raw [MemorySize]byte
	copy(raw[:], eeprom.Read(0, MemorySize))

	return ParseMemory(raw)
}

// Factory builds a concrete entity from a classifier and block address
// once it has matched a compile-time table entry. id is the entity's
// address within its parent (e.g. "U", "0").
type Factory func(id string, addr bus.Address, b *bus.LocalBus, c Classifier) (Entity, error)

// blockEntry pairs a (class, type) match against the factory that builds
// the corresponding driver; version/variant are passed through to the
// factory so it can pick HAL variants itself (§8: "Represent the
// classifier match table as a const list").
type blockEntry struct {
	class   EntityClass
	typ     uint8
	factory Factory
}

var blockTable []blockEntry

// RegisterBlockFactory adds a (class, type) -> Factory mapping to the
// compile-time detection table. Block packages call this from an init()
// function so the entity package itself has no dependency on concrete
// block types (avoiding an import cycle between entity and block).
func RegisterBlockFactory(class EntityClass, typ uint8, f Factory) {
	blockTable = append(blockTable, blockEntry{class: class, typ: typ, factory: f})
}

// Detect reads the identity memory at addr's module, matches its
// classifier against the registered block table, and constructs the
// corresponding entity. It returns (nil, nil) if a unit is simply absent
// (no classifier class matches a detectable block, e.g. the slot reads as
// the carrier/cluster's own reserved addresses) and a non-nil error only
// for communication or genuinely unsupported-classifier failures (§4.5).
func Detect(id string, b *bus.LocalBus, baddr uint8) (Entity, error) {
	mem, err := ReadIdentity(b, baddr)
	if err != nil {
		return nil, err
	}

	switch mem.Classifier.Class {
	case ClassUnknown, ClassCarrier, ClassCluster:
		return nil, nil
	}

	for _, entry := range blockTable {
		if entry.class == mem.Classifier.Class && entry.typ == mem.Classifier.Type {
			return entry.factory(id, bus.NewAddress(baddr, bus.IdentityFunc), b, mem.Classifier)
		}
	}

	return nil, NewStatus(CodeDelegateRejected, "entity: no factory for classifier class=%s type=%d at BADDR=%d",
		mem.Classifier.Class, mem.Classifier.Type, baddr)
}
