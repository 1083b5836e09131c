// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package block implements the HAL-backed function block drivers (U, C, I,
// M-Int, M-Mul, SH, CTRL): each owns its in-memory configuration state,
// validates inputs against the block's invariants, and flushes to hardware
// atomically through its own driver (§4.4).
package block

import "github.com/anabrid/lucidac-firmware/entity"

// Base carries the bookkeeping every leaf block entity needs: a tree id
// and the classifier its identity EEPROM reported. Blocks embed Base and
// implement the remaining entity.Entity methods themselves.
type Base struct {
	id         string
	classifier entity.Classifier
}

func NewBase(id string, c entity.Classifier) Base {
	return Base{id: id, classifier: c}
}

func (b Base) ID() string                    { return b.id }
func (b Base) Classifier() entity.Classifier { return b.classifier }

// Children returns nil: every block type in this package is a tree leaf.
func (b Base) Children() []entity.Entity { return nil }
