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

// Package transport implements the UDP, TCP and multicast primitives shared
// by the command and info planes: MTU-bounded segmentation, bounded-retry
// sends, and source-filtered multicast group membership.
package transport

import (
	"net"
	"time"

	"github.com/go-playground/validator/v10"

	liberr "github.com/sabouaram/d2dcn/errors"
)

// MulticastGroup is the fixed multicast address info writers publish on and
// readers join.
const MulticastGroup = "232.10.10.10"

// Config tunes the segmentation and retry policy shared by every primitive
// in this package. The zero value is invalid; use DefaultConfig.
type Config struct {
	MTU           int           `json:"mtu" yaml:"mtu" toml:"mtu" validate:"min=64"`
	ReadTimeout   time.Duration `json:"read_timeout" yaml:"read_timeout" toml:"read_timeout" validate:"min=1ms"`
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval" toml:"retry_interval" validate:"min=1ms"`
	RetryAttempts int           `json:"retry_attempts" yaml:"retry_attempts" toml:"retry_attempts" validate:"min=0"`
}

// DefaultConfig returns the documented defaults: 500-byte MTU, 100ms read
// timeout, and up to 50 retries, the first 100ms after a failure and the
// later ones spaced by the backoff schedule of newRetrySchedule.
func DefaultConfig() Config {
	return Config{
		MTU:           500,
		ReadTimeout:   100 * time.Millisecond,
		RetryInterval: 100 * time.Millisecond,
		RetryAttempts: 50,
	}
}

// Validate checks the configuration via struct tags.
func (c Config) Validate() liberr.Error {
	if err := validator.New().Struct(c); err != nil {
		return ErrorListenFailed.Error(err)
	}
	return nil
}

// LocalIP returns the address of the outbound interface this host would use
// to reach the LAN, for advertising in published descriptors. It never
// actually sends a packet: UDP dial just resolves the local route.
func LocalIP() (string, liberr.Error) {
	conn, err := net.Dial("udp4", "255.255.255.255:1")
	if err != nil {
		return "", ErrorDialFailed.Error(err)
	}
	defer conn.Close()

	addr := conn.LocalAddr().(*net.UDPAddr)
	return addr.IP.String(), nil
}
