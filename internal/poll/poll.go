// LUCIDAC firmware core
// https://github.com/anabrid/lucidac-firmware
//
// Copyright (c) anabrid GmbH
// https://www.anabrid.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package poll provides cooperative busy-wait primitives for conditions that
// can only be observed by repeated sampling (a chip status bit, a hardware
// timer's completion flag). There are no interrupts for these events, and
// the firmware's scheduling model is single-threaded and cooperative, so
// waiting means yielding and re-checking rather than blocking.
package poll

import (
	"runtime"
	"time"
)

// Wait blocks until pred returns true, yielding the scheduler between checks.
func Wait(pred func() bool) {
	for !pred() {
		runtime.Gosched()
	}
}

// WaitFor blocks until pred returns true or timeout elapses. The return value
// reports whether pred was observed true (false means timed out).
func WaitFor(timeout time.Duration, pred func() bool) bool {
	start := time.Now()

	for !pred() {
		runtime.Gosched()

		if time.Since(start) >= timeout {
			return pred()
		}
	}

	return true
}
