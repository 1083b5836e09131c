// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package diag

import (
	"context"
	"testing"

	"github.com/anabrid/lucidac-firmware/bus"
	"github.com/anabrid/lucidac-firmware/chips"
	"github.com/anabrid/lucidac-firmware/hwgpio"
)

// fixedCodeSPI replies with a constant 16-bit word on every transfer,
// letting tests drive TMP127.ReadCelsius to a known temperature without a
// real sensor.
type fixedCodeSPI struct {
	word uint16
}

func (f *fixedCodeSPI) BeginTransaction(bus.Settings) {}
func (f *fixedCodeSPI) EndTransaction()               {}

func (f *fixedCodeSPI) Transfer(out []byte) []byte {
	return []byte{byte(f.word >> 8), byte(f.word)}
}

func newTestSensor(t *testing.T, celsius float64) chips.TMP127 {
	t.Helper()

	raw := int16(celsius/0.03125) << 2

	spi := &fixedCodeSPI{word: uint16(raw)}
	b := &bus.LocalBus{CS: &hwgpio.Memory{}, Latch: &hwgpio.Memory{}, Reset: &hwgpio.Memory{}, SPI: spi}
	b.Init()

	return chips.NewTMP127(bus.NewAddress(1, 4), b)
}

func TestThermalMonitorPollClassifiesNormal(t *testing.T) {
	m := NewThermalMonitor(newTestSensor(t, 42.0))

	r, err := m.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if r.Level != ThermalNormal {
		t.Errorf("level = %v, want normal", r.Level)
	}

	if r.Celsius < 41.9 || r.Celsius > 42.1 {
		t.Errorf("celsius = %v, want ~42", r.Celsius)
	}
}

func TestThermalMonitorPollClassifiesWarnAndCritical(t *testing.T) {
	warnMon := NewThermalMonitor(newTestSensor(t, 75.0))

	r, err := warnMon.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if r.Level != ThermalWarn {
		t.Errorf("level = %v, want warn", r.Level)
	}

	critMon := NewThermalMonitor(newTestSensor(t, 90.0))

	r, err = critMon.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if r.Level != ThermalCritical {
		t.Errorf("level = %v, want critical", r.Level)
	}
}

func TestThermalMonitorLastReflectsMostRecentPoll(t *testing.T) {
	m := NewThermalMonitor(newTestSensor(t, 30.0))

	if _, err := m.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if m.Last().Celsius < 29.9 || m.Last().Celsius > 30.1 {
		t.Errorf("Last().Celsius = %v, want ~30", m.Last().Celsius)
	}
}

func TestThermalMonitorPollRespectsCanceledContext(t *testing.T) {
	m := NewThermalMonitor(newTestSensor(t, 30.0))

	// Exhaust the single burst token so the next Wait call would block,
	// then cancel immediately to force the context-done branch.
	if _, err := m.Poll(context.Background()); err != nil {
		t.Fatalf("first Poll: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Poll(ctx); err == nil {
		t.Fatal("expected Poll to fail on a canceled context")
	}
}
