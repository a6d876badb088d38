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

// Package directory adapts the shared-table broker's add/update/remove
// callbacks into typed command/info descriptor events, and holds the
// expiring proxy cache consumers use as a substitute for weak references.
package directory

import (
	"github.com/sabouaram/d2dcn/codec"
)

// CommandDescriptor is the directory value published behind a command UID.
type CommandDescriptor struct {
	Protocol string       `json:"protocol"`
	IP       string       `json:"ip"`
	Port     int          `json:"port"`
	Input    codec.Schema `json:"input"`
	Output   codec.Schema `json:"output"`
	Enable   bool         `json:"enable"`
	Timeout  int          `json:"timeout"`
}

// InfoDescriptor is the directory value published behind an info UID.
type InfoDescriptor struct {
	Protocol   string          `json:"protocol"`
	IP         string          `json:"ip"`
	ReqPort    int             `json:"req_port"`
	UpdatePort int             `json:"update_port"`
	Type       codec.ValueType `json:"type"`
}

// Broker is the minimal shared-table collaborator contract this package
// consumes. It is implemented by an external component out of this
// library's scope: membership, gossip and master election are not modeled
// here.
type Broker interface {
	// UpdateTableEntry publishes or replaces the value behind key.
	UpdateTableEntry(key string, payload []byte) bool
	// RemoveTableEntry withdraws the value behind key.
	RemoveTableEntry(key string) bool
	// MasterIP returns the address of the current master peer.
	MasterIP() string
	// Start begins broker operation.
	Start() error
	// Stop ends broker operation.
	Stop() error
}
