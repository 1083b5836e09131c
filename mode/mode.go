// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mode implements the analog-core state machine over the physical
// IC/OP/HALT pins plus EXT_HALT and OVERLOAD inputs, and the timed
// IC-duration/OP-duration sequence a run drives it through (§4.7).
package mode

import (
	"time"

	"github.com/anabrid/lucidac-firmware/hwgpio"
	"github.com/anabrid/lucidac-firmware/internal/poll"
)

// State names the analog core's three physical states (§4.7).
type State int

const (
	Halt State = iota
	IC
	OP
)

func (s State) String() string {
	switch s {
	case Halt:
		return "HALT"
	case IC:
		return "IC"
	case OP:
		return "OP"
	default:
		return "UNKNOWN"
	}
}

// OverloadPolicy governs what a detected analog overload does to an
// in-flight timed sequence (§4.7, §4.10).
type OverloadPolicy int

const (
	OverloadIgnore OverloadPolicy = iota
	OverloadHaltImmediately
)

// ExtHaltPolicy governs what an asserted EXT_HALT input does (§4.7, §4.10).
type ExtHaltPolicy int

const (
	ExtHaltIgnore ExtHaltPolicy = iota
	ExtHaltHalt
)

// HAL drives the physical mode pins and reads the two fault inputs. A real
// board wires IC/OP/HALT to the three mode-select lines and Overload/ExtHalt
// to status GPIOs; tests substitute in-memory pins.
type HAL interface {
	SetState(State)
	Overload() bool
	ExtHalt() bool
}

// pinHAL drives IC/OP/HALT as three discrete output pins, mirroring the
// teacher's soc/nxp/gpio controller+Pin shape: exactly one pin is ever
// driven high at a time.
type pinHAL struct {
	IC, OP, Halt hwgpio.Pin
	OverloadPin  hwgpio.Pin
	ExtHaltPin   hwgpio.Pin
}

func NewPinHAL(ic, op, halt, overload, extHalt hwgpio.Pin) HAL {
	return &pinHAL{IC: ic, OP: op, Halt: halt, OverloadPin: overload, ExtHaltPin: extHalt}
}

func (h *pinHAL) SetState(s State) {
	h.IC.Low()
	h.OP.Low()
	h.Halt.Low()

	switch s {
	case IC:
		h.IC.High()
	case OP:
		h.OP.High()
	default:
		h.Halt.High()
	}
}

func (h *pinHAL) Overload() bool { return h.OverloadPin.Value() }
func (h *pinHAL) ExtHalt() bool  { return h.ExtHaltPin.Value() }

// Controller is the mode state machine: imperative ToIC/ToOP/ToHalt
// transitions plus a timed IC-duration/OP-duration sequence driven by
// ForceStart/IsDone (§4.7).
type Controller struct {
	hal   HAL
	state State

	icDuration time.Duration
	opDuration time.Duration

	onOverload OverloadPolicy
	onExtHalt  ExtHaltPolicy

	running  bool
	deadline time.Time
	onTransition func(old, new State)
}

func NewController(hal HAL) *Controller {
	return &Controller{hal: hal, state: Halt}
}

func (c *Controller) State() State { return c.state }

// OnTransition registers a callback invoked on every state change, letting
// the run manager time-stamp DAQ samples against mode transitions (§4.7).
func (c *Controller) OnTransition(fn func(old, new State)) {
	c.onTransition = fn
}

func (c *Controller) transition(to State) {
	old := c.state
	c.state = to
	c.hal.SetState(to)

	if c.onTransition != nil && old != to {
		c.onTransition(old, to)
	}
}

func (c *Controller) ToIC()   { c.transition(IC) }
func (c *Controller) ToOP()   { c.transition(OP) }
func (c *Controller) ToHalt() { c.running = false; c.transition(Halt) }

// Configure sets the timed sequence's durations and fault policies ahead of
// ForceStart (§4.7).
func (c *Controller) Configure(icTime, opTime time.Duration, onOverload OverloadPolicy, onExtHalt ExtHaltPolicy) {
	c.icDuration = icTime
	c.opDuration = opTime
	c.onOverload = onOverload
	c.onExtHalt = onExtHalt
}

// ForceStart begins the IC -> OP timed sequence (§4.7, §4.9 step 3).
func (c *Controller) ForceStart() {
	c.running = true
	c.transition(IC)
	c.deadline = time.Now().Add(c.icDuration)
}

// IsDone polls the timed sequence, advancing IC -> OP and eventually
// signalling completion, applying the overload/ext-halt policies along the
// way (§4.7, §4.10).
func (c *Controller) IsDone() bool {
	if !c.running {
		return true
	}

	if c.onOverload == OverloadHaltImmediately && c.hal.Overload() {
		c.ToHalt()
		return true
	}

	if c.onExtHalt == ExtHaltHalt && c.hal.ExtHalt() {
		c.ToHalt()
		return true
	}

	if time.Now().Before(c.deadline) {
		return false
	}

	switch c.state {
	case IC:
		c.transition(OP)
		c.deadline = time.Now().Add(c.opDuration)

		return false
	case OP:
		c.running = false
		return true
	default:
		return true
	}
}

// WaitUntilDone busy-polls IsDone in the teacher's cooperative-yield style
// rather than blocking on a timer interrupt (§4.7, §5).
func (c *Controller) WaitUntilDone(timeout time.Duration) bool {
	return poll.WaitFor(timeout, c.IsDone)
}
