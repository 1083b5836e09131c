// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package run owns the in-flight Run: its configuration, its state and
// bounded transition history, and the manager that drives one run through
// IC/OP under a FlexIO-timed mode sequence while streaming DAQ data
// (§3.4, §4.9).
package run

import (
	"container/ring"
	"fmt"
	"time"

	"github.com/anabrid/lucidac-firmware/daq"
	"github.com/anabrid/lucidac-firmware/mode"
)

// State is one stage of a run's lifecycle (§3.4).
type State int

const (
	New State = iota
	Error
	Done
	Queued
	TakeOff
	IC
	OP
	OpEnd
	TmpHalt
)

func (s State) String() string {
	switch s {
	case New:
		return "NEW"
	case Error:
		return "ERROR"
	case Done:
		return "DONE"
	case Queued:
		return "QUEUED"
	case TakeOff:
		return "TAKE_OFF"
	case IC:
		return "IC"
	case OP:
		return "OP"
	case OpEnd:
		return "OP_END"
	case TmpHalt:
		return "TMP_HALT"
	default:
		return "UNKNOWN"
	}
}

// StateChange records one transition with its timestamp (§3.4).
type StateChange struct {
	T   time.Duration
	Old State
	New State
}

// historyCapacity bounds a Run's transition history to 7 entries, the
// original's fixed-capacity queue size (§3.4, EXP-3).
const historyCapacity = 7

// Config is a run's requested timing and overload policy (§4.9: "New ->
// Queued -> TakeOff -> IC -> OP").
type Config struct {
	ICTime         time.Duration
	OPTime         time.Duration
	HaltOnOverload bool
}

// DAQConfig names the acquisition parameters a run's DAQConfig carries
// alongside its timing (§6.1: "daq_config:{num_channels,sample_rate}").
type DAQConfig struct {
	NumChannels int
	SampleRate  int
}

// Run is one requested acquisition cycle: an id, its configuration, its
// current state, and a bounded ring of its own transition history (§3.4).
type Run struct {
	ID        string
	Config    Config
	DAQConfig DAQConfig
	State     State

	history *ring.Ring // of StateChange
}

// NewRun constructs a Run in the New state with an empty history ring.
func NewRun(id string, cfg Config, daqCfg DAQConfig) *Run {
	return &Run{ID: id, Config: cfg, DAQConfig: daqCfg, State: New, history: ring.New(historyCapacity)}
}

// To transitions the run to newState, timestamps the change, and pushes it
// onto the bounded history ring, overwriting the oldest entry once full
// (§3.4, EXP-3).
func (r *Run) To(newState State, t time.Duration) StateChange {
	change := StateChange{T: t, Old: r.State, New: newState}

	r.State = newState
	r.history.Value = change
	r.history = r.history.Next()

	return change
}

// History returns the run's transition history, oldest first, at most 7
// entries (§3.4).
func (r *Run) History() []StateChange {
	out := make([]StateChange, 0, historyCapacity)

	r.history.Do(func(v any) {
		if v == nil {
			return
		}

		out = append(out, v.(StateChange))
	})

	return out
}

// StateChangeHandler is notified of every run transition, letting a
// wire-protocol layer emit run_state_change notifications (§4.9, §6.1).
type StateChangeHandler interface {
	Handle(change StateChange, run *Run)
}

// DataHandler prepares buffers ahead of a run and then receives streamed
// sample halves through the embedded daq.RunDataHandler contract (§4.9
// step 1, §4.8).
type DataHandler interface {
	daq.RunDataHandler
	Prepare(run *Run) error
}

// Manager owns the single in-flight Run, refusing a new one while any
// tracked run is in a non-terminal state (§5: "at most one in-flight run").
type Manager struct {
	current *Run
}

func NewManager() *Manager { return &Manager{} }

func isTerminal(s State) bool { return s == Done || s == Error }

// StartRun validates that no run is in flight and enqueues the given run,
// transitioning it to Queued (§4.9 step 3's first hop).
func (m *Manager) StartRun(r *Run, t time.Duration) error {
	if m.current != nil && !isTerminal(m.current.State) {
		return fmt.Errorf("run: a run is already in flight (state %v)", m.current.State)
	}

	m.current = r
	r.To(Queued, t)

	return nil
}

// partialFlushSettle is the minimum wait after OP ends before draining the
// partial buffer, so the last major loop's DMA transfer has landed (§4.9
// step 5: "wait >= 5 us").
const partialFlushSettle = 5 * time.Microsecond

// RunNextFlexio drives r through TakeOff -> IC -> OP -> OpEnd -> Done
// (the Queued step is taken by Manager.StartRun) under modeCtrl's timed
// sequence, streaming dq and notifying stateCB/dataCB at every step (§4.9).
func RunNextFlexio(r *Run, dq *daq.ContinuousDAQ, modeCtrl *mode.Controller, stateCB StateChangeHandler, dataCB DataHandler) error {
	notify := func(s State, t time.Duration) {
		change := r.To(s, t)
		if stateCB != nil {
			stateCB.Handle(change, r)
		}
	}

	if err := dataCB.Prepare(r); err != nil {
		return fmt.Errorf("run: prepare: %w", err)
	}

	if err := dq.Init(r.DAQConfig.SampleRate); err != nil {
		return fmt.Errorf("run: daq init: %w", err)
	}
	dq.Enable()

	overloadPolicy := mode.OverloadIgnore
	if r.Config.HaltOnOverload {
		overloadPolicy = mode.OverloadHaltImmediately
	}
	modeCtrl.Configure(r.Config.ICTime, r.Config.OPTime, overloadPolicy, mode.ExtHaltIgnore)

	notify(TakeOff, 0)
	modeCtrl.ForceStart()
	notify(IC, 0)

	enteredOP := false

	for !modeCtrl.IsDone() {
		if !enteredOP && modeCtrl.State() == mode.OP {
			notify(OP, 0)
			enteredOP = true
		}

		if err := dq.Stream(false); err != nil {
			notify(Error, 0)
			return fmt.Errorf("run: streaming: %w", err)
		}
	}

	if modeCtrl.State() == mode.Halt {
		notify(TmpHalt, 0)
		return fmt.Errorf("run: halted before completion (overload or external halt policy)")
	}

	if !enteredOP {
		notify(OP, 0)
	}

	time.Sleep(partialFlushSettle)

	if err := dq.Stream(true); err != nil {
		notify(Error, 0)
		return fmt.Errorf("run: partial flush: %w", err)
	}

	notify(OpEnd, 0)

	if err := dq.Finalize(); err != nil {
		notify(Error, 0)
		return fmt.Errorf("run: finalize: %w", err)
	}

	notify(Done, 0)

	return nil
}
