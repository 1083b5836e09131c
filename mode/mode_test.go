// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mode

import (
	"testing"
	"time"
)

type fakeHAL struct {
	state         State
	overload      bool
	extHalt       bool
	setStateCalls []State
}

func (f *fakeHAL) SetState(s State) {
	f.state = s
	f.setStateCalls = append(f.setStateCalls, s)
}

func (f *fakeHAL) Overload() bool { return f.overload }
func (f *fakeHAL) ExtHalt() bool  { return f.extHalt }

func TestControllerImperativeTransitions(t *testing.T) {
	hal := &fakeHAL{}
	c := NewController(hal)

	c.ToIC()
	if c.State() != IC || hal.state != IC {
		t.Fatalf("after ToIC: state = %v, hal = %v", c.State(), hal.state)
	}

	c.ToOP()
	if c.State() != OP {
		t.Fatalf("after ToOP: state = %v", c.State())
	}

	c.ToHalt()
	if c.State() != Halt {
		t.Fatalf("after ToHalt: state = %v", c.State())
	}
}

func TestControllerForceStartAdvancesICThenOP(t *testing.T) {
	hal := &fakeHAL{}
	c := NewController(hal)
	c.Configure(1*time.Millisecond, 1*time.Millisecond, OverloadIgnore, ExtHaltIgnore)

	c.ForceStart()
	if c.State() != IC {
		t.Fatalf("state after ForceStart = %v, want IC", c.State())
	}

	if !c.WaitUntilDone(100 * time.Millisecond) {
		t.Fatal("expected sequence to complete within timeout")
	}

	if len(hal.setStateCalls) < 2 || hal.setStateCalls[len(hal.setStateCalls)-1] != OP {
		t.Fatalf("expected last driven state to be OP, got %v", hal.setStateCalls)
	}
}

func TestControllerOverloadHaltImmediatelyPolicy(t *testing.T) {
	hal := &fakeHAL{overload: true}
	c := NewController(hal)
	c.Configure(time.Hour, time.Hour, OverloadHaltImmediately, ExtHaltIgnore)

	c.ForceStart()
	if !c.IsDone() {
		t.Fatal("expected IsDone to report completion on overload")
	}

	if c.State() != Halt {
		t.Fatalf("state = %v, want Halt", c.State())
	}
}

func TestControllerOverloadIgnorePolicyKeepsRunning(t *testing.T) {
	hal := &fakeHAL{overload: true}
	c := NewController(hal)
	c.Configure(time.Hour, time.Hour, OverloadIgnore, ExtHaltIgnore)

	c.ForceStart()
	if c.IsDone() {
		t.Fatal("expected IsDone to keep running when overload policy is Ignore")
	}
}

func TestControllerExtHaltPolicy(t *testing.T) {
	hal := &fakeHAL{extHalt: true}
	c := NewController(hal)
	c.Configure(time.Hour, time.Hour, OverloadIgnore, ExtHaltHalt)

	c.ForceStart()
	if !c.IsDone() {
		t.Fatal("expected IsDone to halt on asserted EXT_HALT")
	}

	if c.State() != Halt {
		t.Fatalf("state = %v, want Halt", c.State())
	}
}

func TestControllerOnTransitionFires(t *testing.T) {
	hal := &fakeHAL{}
	c := NewController(hal)

	var transitions [][2]State
	c.OnTransition(func(old, new State) {
		transitions = append(transitions, [2]State{old, new})
	})

	c.ToIC()
	c.ToOP()

	if len(transitions) != 2 {
		t.Fatalf("got %d transitions, want 2", len(transitions))
	}

	if transitions[0] != [2]State{Halt, IC} {
		t.Errorf("transitions[0] = %v, want Halt->IC", transitions[0])
	}
}
