// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package calib implements the three interlocking calibration procedures
// run against an in-IC analog core: per-cluster offset zeroing through the
// SH block, per-lane gain correction, and per-M-Mul multiplier trim
// (§4.6). Every entry point takes its collaborators as explicit arguments
// rather than holding a back-pointer to a Cluster or Carrier, matching the
// ownership model's no-cyclic-references rule (§3.5).
package calib

import (
	"fmt"
	"time"

	"github.com/anabrid/lucidac-firmware/block"
	"github.com/anabrid/lucidac-firmware/entity"
)

// CodeMultiplierTrimBoundary is the non-fatal warning code CalibrateMultiplier
// reports when a trim sweep reaches its boundary without crossing zero
// (§4.6c, §9 open question — decided: report, don't clamp silently).
const CodeMultiplierTrimBoundary = 100

// Sampler is the subset of daq.OneshotDAQ calibration needs: averaged
// single-channel sampling, grounded on the original's
// `daq->sample_avg(size, avg_us)` (§4.6a).
type Sampler interface {
	SampleAvg(channel, sizeSamples int, avgDelay time.Duration) float64
}

// OffsetZeroingConfig tunes the offset-zeroing pass's sampling and
// settling parameters (§4.6a).
type OffsetZeroingConfig struct {
	SampleSize   int
	AvgDelay     time.Duration
	SettleDelay  time.Duration
	Epsilon      float64
	MaxIteration int
}

// DefaultOffsetZeroingConfig mirrors the original's hand-tuned constants
// (10 samples, 10ms average delay, 250us settle) (§4.6a).
var DefaultOffsetZeroingConfig = OffsetZeroingConfig{
	SampleSize:   10,
	AvgDelay:     10 * time.Millisecond,
	SettleDelay:  250 * time.Microsecond,
	Epsilon:      0.01,
	MaxIteration: 10,
}

// ZeroOffsets performs per-cluster offset zeroing (§4.6a): for each of the
// eight cluster-gain lanes, it steps the SH block through Track, Inject and
// Gain, samples the residual on daq channel = lane, and nudges the
// U-Block's offset trim until the residual is within epsilon of zero.
//
// ZeroOffsets does not change the U-Block's transmission modes or the
// CTRL-Block's ADC bus selection, and restores no routing afterward: it
// samples whatever the current routing presents on each lane.
func ZeroOffsets(u *block.UBlock, sh *block.SHBlock, daq Sampler, cfg OffsetZeroingConfig) error {
	for lane := 0; lane < block.UBlockNumLanes; lane++ {
		if err := settleAndSampleLane(u, sh, daq, cfg, lane); err != nil {
			return fmt.Errorf("calib: zero offsets: lane %d: %w", lane, err)
		}
	}

	return nil
}

func settleAndSampleLane(u *block.UBlock, sh *block.SHBlock, daq Sampler, cfg OffsetZeroingConfig, lane int) error {
	for iter := 0; iter < cfg.MaxIteration; iter++ {
		sh.SetState(block.SHTrack)
		if err := sh.WriteToHardware(); err != nil {
			return err
		}

		time.Sleep(cfg.SettleDelay)

		sh.SetState(block.SHInject)
		if err := sh.WriteToHardware(); err != nil {
			return err
		}

		sh.SetState(block.SHGain)
		if err := sh.WriteToHardware(); err != nil {
			return err
		}

		residual := daq.SampleAvg(lane, cfg.SampleSize, cfg.AvgDelay)
		if residual < cfg.Epsilon && residual > -cfg.Epsilon {
			return nil
		}

		if !u.SetOffsetTrim(lane, u.OffsetTrim(lane)-residual) {
			return fmt.Errorf("invalid lane index %d", lane)
		}

		if err := u.WriteToHardware(); err != nil {
			return err
		}
	}

	return fmt.Errorf("offset did not converge within %d iterations", cfg.MaxIteration)
}

// CalibrateGain performs per-lane gain correction (§4.6b): with a
// known-unit reference already routed onto the U-Block output named by
// uOut, it measures the lane's effective transfer on channel and sets
// gainCorrection[uOut] = 1/measured so subsequent SetFactor calls read
// true.
func CalibrateGain(c *block.CBlock, uOut uint8, daq Sampler, channel int, cfg OffsetZeroingConfig) error {
	measured := daq.SampleAvg(channel, cfg.SampleSize, cfg.AvgDelay)
	if measured == 0 {
		return fmt.Errorf("calib: gain correction: lane %d measured zero transfer", uOut)
	}

	if !c.SetGainCorrection(uOut, 1/measured) {
		return fmt.Errorf("calib: gain correction: invalid lane %d", uOut)
	}

	return nil
}

// multiplierTrimStep / multiplierTrimMax bound the offset_x/offset_y sweep
// to the original's search: -0.1 to +0.1 in 0.01 steps (§4.6c).
const (
	multiplierTrimStep = 0.01
	multiplierTrimMax  = block.MMulOffsetLimit
)

// CalibrateMultiplier performs the trim search for one M-Mul multiplier
// (§4.6c): with both inputs zeroed it measures offset_z directly, then
// sweeps offset_x (x=1, y=0) and offset_y (x=0, y=1) until each crosses
// zero. measureZ samples the output with both inputs zeroed; measureX and
// measureY each receive a candidate trim value, apply it (typically via
// SetCalibration + WriteToHardware) and return the sampled output — the
// caller is responsible for driving x=1/y=0 (resp. x=0/y=1) through
// whatever routes the cluster already has into this multiplier, since the
// multiplier block itself carries no signal-path configuration (§3.3).
//
// A sweep that reaches its boundary without crossing zero is not a hard
// failure: the original continues with the boundary value and logs a
// warning rather than aborting (§9). CalibrateMultiplier always calls
// mm.SetCalibration with whatever offsets it found — including
// boundary-clamped ones — and returns a non-fatal warning Status
// alongside success when that happened. err is non-nil only for a
// genuinely invalid multiplier index.
func CalibrateMultiplier(mm *block.MMulBlock, idx uint8, measureZ func() float64, measureX, measureY func(trial float64) float64) (warning *entity.Status, err error) {
	offsetZ := -measureZ()

	offsetX, warnX := sweepToZeroCrossing(measureX)
	offsetY, warnY := sweepToZeroCrossing(measureY)

	if !mm.SetCalibration(idx, block.MMulOffsets{X: offsetX, Y: offsetY, Z: offsetZ}) {
		return nil, fmt.Errorf("calib: multiplier %d: invalid index", idx)
	}

	switch {
	case warnX != nil && warnY != nil:
		w := entity.NewStatus(CodeMultiplierTrimBoundary, "calib: multiplier %d: offset_x: %s; offset_y: %s", idx, warnX.Message, warnY.Message)
		return &w, nil
	case warnX != nil:
		w := entity.NewStatus(CodeMultiplierTrimBoundary, "calib: multiplier %d: offset_x: %s", idx, warnX.Message)
		return &w, nil
	case warnY != nil:
		w := entity.NewStatus(CodeMultiplierTrimBoundary, "calib: multiplier %d: offset_y: %s", idx, warnY.Message)
		return &w, nil
	default:
		return nil, nil
	}
}

// sweepToZeroCrossing steps a trim from -0.1 to +0.1 in 0.01 increments,
// calling measure(trim) and returning the first trim value at which the
// measured sign flips, with a nil warning. If the sweep never crosses, it
// returns the boundary value plus a non-fatal warning Status rather than
// an error, so the caller still applies the boundary-clamped trim (§4.6c,
// §9: boundary hits are reported, not silently clamped, and do not abort
// the calibration in progress).
func sweepToZeroCrossing(measure func(trial float64) float64) (float64, *entity.Status) {
	var prev float64
	haveSample := false

	for trim := -multiplierTrimMax; trim <= multiplierTrimMax+1e-9; trim += multiplierTrimStep {
		v := measure(trim)

		if haveSample && ((prev <= 0 && v > 0) || (prev >= 0 && v < 0)) {
			return trim, nil
		}

		prev = v
		haveSample = true
	}

	warning := entity.NewStatus(CodeMultiplierTrimBoundary, "trim search reached boundary %.2f without a zero crossing", multiplierTrimMax)

	return multiplierTrimMax, &warning
}
