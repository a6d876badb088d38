/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package transport

import (
	"context"
	"time"

	libpid "github.com/sabouaram/d2dcn/pidcontroller"
)

// retryRateP/I/D are the same PID gains the duration package documents as its
// defaults (DefaultRateProportional/Integral/Derivative). They are reapplied
// here directly against nanosecond-scale values rather than through
// duration.Duration.RangeDefTo, which truncates its walk to whole seconds and
// would collapse a sub-second RetryInterval to a single zero-length step.
const (
	retryRateP = 0.1
	retryRateI = 0.01
	retryRateD = 0.05
)

// newRetrySchedule derives the per-attempt backoff for a retrying send: a PID
// walk from cfg.RetryInterval up to ten times that floor, so a run of
// transient failures spaces out instead of hammering the peer at a fixed
// cadence. A zero RetryInterval or RetryAttempts disables backoff.
func newRetrySchedule(cfg Config) []time.Duration {
	if cfg.RetryAttempts <= 0 || cfg.RetryInterval <= 0 {
		return nil
	}

	p := libpid.New(retryRateP, retryRateI, retryRateD)
	floor := float64(cfg.RetryInterval)
	ceil := floor * 10

	steps := p.RangeCtx(context.Background(), floor, ceil)

	out := make([]time.Duration, len(steps))
	for i, s := range steps {
		out[i] = time.Duration(s)
	}
	return out
}

// waitForAttempt returns how long to sleep before retry attempt, holding at
// the schedule's last step once attempt runs past its length.
func waitForAttempt(schedule []time.Duration, attempt int) time.Duration {
	if len(schedule) == 0 {
		return 0
	}
	if attempt >= len(schedule) {
		return schedule[len(schedule)-1]
	}
	return schedule[attempt]
}
