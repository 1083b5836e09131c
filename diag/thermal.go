// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package diag collects informational hardware diagnostics that sit
// outside the core's failure-handling paths (§4.10: "Temperature out of
// range... not in core, reported via status, informational").
package diag

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/anabrid/lucidac-firmware/chips"
)

// defaultPollRate paces TMP127 reads well below the bus traffic the main
// loop's protocol/DAQ work generates, since a temperature reading changes
// on the order of seconds, not microseconds.
const defaultPollRate = 2 // Hz

// Thermal ranges bound the board temperature sensor without implying any
// automatic core action: crossing them only changes what Status reports.
const (
	ThermalWarnCelsius = 70.0
	ThermalCritCelsius = 85.0
)

// ThermalLevel classifies a reading against the warn/critical bounds.
type ThermalLevel int

const (
	ThermalNormal ThermalLevel = iota
	ThermalWarn
	ThermalCritical
)

func (l ThermalLevel) String() string {
	switch l {
	case ThermalWarn:
		return "warn"
	case ThermalCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Reading is one paced TMP127 sample.
type Reading struct {
	Celsius float64
	Level   ThermalLevel
}

func classify(celsius float64) ThermalLevel {
	switch {
	case celsius >= ThermalCritCelsius:
		return ThermalCritical
	case celsius >= ThermalWarnCelsius:
		return ThermalWarn
	default:
		return ThermalNormal
	}
}

// ThermalMonitor polls a TMP127 at a bounded rate and reports the last
// reading, informational only: nothing here drives a run or config
// decision.
type ThermalMonitor struct {
	sensor  chips.TMP127
	limiter *rate.Limiter
	last    Reading
}

// NewThermalMonitor builds a monitor that never samples sensor faster
// than defaultPollRate.
func NewThermalMonitor(sensor chips.TMP127) *ThermalMonitor {
	return &ThermalMonitor{sensor: sensor, limiter: rate.NewLimiter(rate.Limit(defaultPollRate), 1)}
}

// Poll blocks until the limiter admits a sample, reads the sensor, and
// returns the classified reading. Callers run it from their own
// goroutine or idle-loop tick; it never contends with local-bus traffic
// beyond the single SPI transfer TMP127.ReadCelsius issues.
func (m *ThermalMonitor) Poll(ctx context.Context) (Reading, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return Reading{}, fmt.Errorf("diag: thermal poll: %w", err)
	}

	r := Reading{Celsius: m.sensor.ReadCelsius()}
	r.Level = classify(r.Celsius)
	m.last = r

	return r, nil
}

// Last returns the most recent reading without sampling, for status
// snapshots that shouldn't block on the rate limiter.
func (m *ThermalMonitor) Last() Reading { return m.last }
