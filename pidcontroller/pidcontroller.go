/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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
 */

// Package pidcontroller implements a small discrete PID controller used to derive
// an adaptive, monotonic step sequence between two float64 bounds. It backs the
// duration package's RangeTo/RangeFrom family, which callers use to build retry
// and backoff schedules between a minimum and a maximum duration.
package pidcontroller

import "context"

// maxSteps bounds the loop so a degenerate gain combination cannot spin forever.
const maxSteps = 256

// PID holds the proportional, integral and derivative gains applied while walking
// from a start value toward an end value.
type PID struct {
	rateP float64
	rateI float64
	rateD float64
}

// New returns a PID controller configured with the given proportional, integral
// and derivative rates.
func New(rateP, rateI, rateD float64) *PID {
	return &PID{
		rateP: rateP,
		rateI: rateI,
		rateD: rateD,
	}
}

// RangeCtx walks from start to end (in either direction) and returns the sequence
// of intermediate values visited along the way. Each step size is derived from the
// remaining distance to end, corrected by the controller's integral and derivative
// terms, so the sequence naturally slows down or speeds up depending on the given
// rates.
//
// If start equals end, a single-element slice is returned. If the gains produce a
// non-positive step (zero or negative rates), the controller falls back to a
// single jump to end. If ctx is cancelled before the walk reaches end, the values
// computed so far are returned.
func (p *PID) RangeCtx(ctx context.Context, start, end float64) []float64 {
	out := make([]float64, 0, 8)
	out = append(out, start)

	if start == end {
		return out
	}

	dir := 1.0
	if end < start {
		dir = -1.0
	}

	var (
		integral float64
		prevErr  float64
		value    = start
	)

	for i := 0; i < maxSteps; i++ {
		select {
		case <-ctx.Done():
			return out
		default:
		}

		remaining := (end - value) * dir
		if remaining <= 0 {
			break
		}

		integral += remaining
		derivative := remaining - prevErr
		prevErr = remaining

		step := p.rateP*remaining + p.rateI*integral + p.rateD*derivative
		if step <= 0 {
			step = remaining
		}

		value += step * dir

		if (dir > 0 && value >= end) || (dir < 0 && value <= end) {
			value = end
			out = append(out, value)
			break
		}

		out = append(out, value)
	}

	if out[len(out)-1] != end {
		out = append(out, end)
	}

	return out
}
