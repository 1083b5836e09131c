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
	"encoding/json"
	"strings"
)

// Entity is one node in the carrier -> cluster -> block -> element tree
// (§4.3). Implementations own their in-memory configuration state; the
// tree only handles addressing and recursion.
type Entity interface {
	// ID is this entity's identifier, unique among its siblings.
	ID() string

	// Classifier identifies this entity's class/type/version/variant.
	Classifier() Classifier

	// Children returns the entity's direct children. The tree does not
	// cache this list; implementations are free to compute it lazily
	// (e.g. a Cluster that detects its blocks at init time).
	Children() []Entity

	// ConfigSelfFromJSON applies obj to this entity's own configuration,
	// ignoring any keys that start with "/". Implementations validate
	// before mutating and leave state unchanged on error (§7).
	ConfigSelfFromJSON(obj map[string]json.RawMessage) error

	// ConfigSelfToJSON serialises this entity's own configuration,
	// excluding children.
	ConfigSelfToJSON() (map[string]json.RawMessage, error)

	// WriteToHardware flushes this entity's in-memory state to its
	// backing registers. It does not flush children; WriteTreeToHardware
	// recurses into them after calling it.
	WriteToHardware() error
}

// ResolveChildEntity walks path under root, returning the descendant or
// (nil, false) if any segment fails to resolve. An empty path returns root
// itself (§4.3: "an empty array targets the carrier itself").
func ResolveChildEntity(root Entity, path []string) (Entity, bool) {
	current := root

	for _, id := range path {
		next, ok := findChild(current, id)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func findChild(e Entity, id string) (Entity, bool) {
	for _, child := range e.Children() {
		if child.ID() == id {
			return child, true
		}
	}

	return nil, false
}

// ConfigFromJSON applies obj to e and, recursively, to the children named
// by any "/"-prefixed keys (§4.3):
//
//  1. Delegates ConfigSelfFromJSON(obj) with obj itself, ignoring any keys
//     starting with "/".
//  2. For every key starting with "/", treats the suffix as a child id and
//     recurses.
func ConfigFromJSON(e Entity, obj map[string]json.RawMessage) Status {
	if err := e.ConfigSelfFromJSON(obj); err != nil {
		return NewStatus(CodeDelegateRejected, "entity %q rejected config: %v", e.ID(), err)
	}

	for key, raw := range obj {
		if !strings.HasPrefix(key, "/") {
			continue
		}

		childID := strings.TrimPrefix(key, "/")

		child, ok := findChild(e, childID)
		if !ok {
			return NewStatus(CodeUnresolvedChild, "entity %q has no child %q", e.ID(), childID)
		}

		var childObj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &childObj); err != nil {
			return NewStatus(CodeMalformedEnvelope, "entity %q: child %q config is not an object: %v", e.ID(), childID, err)
		}

		if status := ConfigFromJSON(child, childObj); !status.OK() {
			return status
		}
	}

	return Status{Code: CodeOK}
}

// ConfigToJSON serialises e and, when recursive is true, every child under
// its "/"-prefixed id, as the inverse of ConfigFromJSON.
func ConfigToJSON(e Entity, recursive bool) (map[string]json.RawMessage, error) {
	out, err := e.ConfigSelfToJSON()
	if err != nil {
		return nil, err
	}

	if out == nil {
		out = map[string]json.RawMessage{}
	}

	if !recursive {
		return out, nil
	}

	for _, child := range e.Children() {
		childObj, err := ConfigToJSON(child, true)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(childObj)
		if err != nil {
			return nil, err
		}

		out["/"+child.ID()] = raw
	}

	return out, nil
}

// WriteTreeToHardware flushes e and every descendant to hardware,
// depth-first, stopping at the first failure (§7: hardware-flush failure
// is code 6).
func WriteTreeToHardware(e Entity) Status {
	if err := e.WriteToHardware(); err != nil {
		return NewStatus(CodeHardwareFlush, "entity %q: %v", e.ID(), err)
	}

	for _, child := range e.Children() {
		if status := WriteTreeToHardware(child); !status.OK() {
			return status
		}
	}

	return Status{Code: CodeOK}
}
