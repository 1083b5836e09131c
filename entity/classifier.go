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
	"encoding/binary"
	"fmt"
	"strings"
)

// EntityClass enumerates the kinds of hardware unit a classifier can
// identify (§3.2).
type EntityClass uint8

const (
	ClassUnknown EntityClass = iota
	ClassCarrier
	ClassCluster
	ClassFrontPanel
	ClassMBlock
	ClassUBlock
	ClassCBlock
	ClassIBlock
	ClassSHBlock
	ClassCTRLBlock
)

func (c EntityClass) String() string {
	switch c {
	case ClassCarrier:
		return "Carrier"
	case ClassCluster:
		return "Cluster"
	case ClassFrontPanel:
		return "FrontPanel"
	case ClassMBlock:
		return "MBlock"
	case ClassUBlock:
		return "UBlock"
	case ClassCBlock:
		return "CBlock"
	case ClassIBlock:
		return "IBlock"
	case ClassSHBlock:
		return "SHBlock"
	case ClassCTRLBlock:
		return "CTRLBlock"
	default:
		return "Unknown"
	}
}

// Version is a {major, minor, patch} semantic version tag.
type Version struct {
	Major, Minor, Patch uint8
}

// Classifier identifies a hardware unit's class, sub-type, version, and
// variant — the tuple a block factory matches against a compile-time table
// to pick a concrete driver (§3.2).
type Classifier struct {
	Class   EntityClass
	Type    uint8
	Version Version
	Variant uint8
}

// classifierSize is the on-wire/on-EEPROM byte size of a Classifier:
// class(1) + type(1) + version(3) + variant(1).
const classifierSize = 6

// Bytes serialises the classifier to its fixed 6-byte wire form.
func (c Classifier) Bytes() [classifierSize]byte {
	return [classifierSize]byte{
		byte(c.Class),
		c.Type,
		c.Version.Major,
		c.Version.Minor,
		c.Version.Patch,
		c.Variant,
	}
}

// ClassifierFromBytes is the inverse of Bytes.
func ClassifierFromBytes(b [classifierSize]byte) Classifier {
	return Classifier{
		Class: EntityClass(b[0]),
		Type:  b[1],
		Version: Version{
			Major: b[2],
			Minor: b[3],
			Patch: b[4],
		},
		Variant: b[5],
	}
}

// EUI64 is the 8-byte extended unique identifier every entity's identity
// memory carries; no two entities on a bus may share one (§3.2).
type EUI64 [8]byte

// String formats the EUI as lowercase hyphen-separated hex octets.
func (e EUI64) String() string {
	parts := make([]string, len(e))
	for i, b := range e {
		parts[i] = fmt.Sprintf("%02x", b)
	}

	return strings.Join(parts, "-")
}

// MemoryLayoutVersion tags the on-EEPROM layout revision (§3.2).
type MemoryLayoutVersion uint8

const MemoryLayoutV1 MemoryLayoutVersion = 1

// MemorySize is the total size of an entity's identity memory.
const MemorySize = 256

// payloadSize is the free-form region between the classifier and the
// trailing EUI, reserved for entity-specific calibration/metadata.
const payloadSize = MemorySize - 3 - classifierSize - 8

// Memory is the decoded form of the 256-byte identity memory every
// detectable hardware unit carries at FADDR=0 of its module (§3.2):
//
//	{ version_tag:u8, size:u16, classifier:{...}, payload:[u8;239], eui64:[u8;8] }
type Memory struct {
	Version    MemoryLayoutVersion
	Size       uint16
	Classifier Classifier
	Payload    [payloadSize]byte
	EUI        EUI64
}

// ParseMemory decodes a raw 256-byte identity memory image.
func ParseMemory(raw [MemorySize]byte) (Memory, error) {
	var m Memory

	m.Version = MemoryLayoutVersion(raw[0])
	if m.Version != MemoryLayoutV1 {
		return m, NewStatus(CodeDelegateRejected, "entity: unsupported identity memory layout version %d", raw[0])
	}

	m.Size = binary.LittleEndian.Uint16(raw[1:3])

	var cb [classifierSize]byte
	copy(cb[:], raw[3:3+classifierSize])
	m.Classifier = ClassifierFromBytes(cb)

	copy(m.Payload[:], raw[3+classifierSize:3+classifierSize+payloadSize])
	copy(m.EUI[:], raw[MemorySize-8:])

	return m, nil
}

// Bytes re-encodes the memory image, e.g. to provision a new identity
// EEPROM during manufacturing tooling.
func (m Memory) Bytes() [MemorySize]byte {
	var raw [MemorySize]byte

	raw[0] = byte(m.Version)
	binary.LittleEndian.PutUint16(raw[1:3], m.Size)

	cb := m.Classifier.Bytes()
	copy(raw[3:3+classifierSize], cb[:])
	copy(raw[3+classifierSize:3+classifierSize+payloadSize], m.Payload[:])
	copy(raw[MemorySize-8:], m.EUI[:])

	return raw
}

// ClassifierJSON is the wire form of a Classifier plus its owning entity's
// EUI, used by get_entities responses (§6.2).
type ClassifierJSON struct {
	Class   uint8  `json:"class"`
	Type    uint8  `json:"type"`
	Variant uint8  `json:"variant"`
	Version [3]int `json:"version"`
	EUI     string `json:"eui"`
}

// ToJSON converts a Classifier and its owning EUI to wire form.
func ToJSON(c Classifier, eui EUI64) ClassifierJSON {
	return ClassifierJSON{
		Class:   uint8(c.Class),
		Type:    c.Type,
		Variant: c.Variant,
		Version: [3]int{int(c.Version.Major), int(c.Version.Minor), int(c.Version.Patch)},
		EUI:     eui.String(),
	}
}

// FromJSON is the inverse of ToJSON, ignoring the EUI field (callers that
// need the EUI read cj.EUI directly; entities don't reconstruct their own
// identity from wire JSON).
func FromJSON(cj ClassifierJSON) Classifier {
	return Classifier{
		Class: EntityClass(cj.Class),
		Type:  cj.Type,
		Version: Version{
			Major: uint8(cj.Version[0]),
			Minor: uint8(cj.Version[1]),
			Patch: uint8(cj.Version[2]),
		},
		Variant: cj.Variant,
	}
}
