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

package command

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/sabouaram/d2dcn/codec"
	"github.com/sabouaram/d2dcn/directory"
	"github.com/sabouaram/d2dcn/transport"
)

// Response is the decoded outcome of one Call.
type Response struct {
	Success bool
	Error   string
	Fields  map[string]interface{}
}

// Interface is a remote caller-side handle bound to one command UID. It is
// mutable in place as directory updates arrive (enable flips, endpoint
// moves), matching the proxy semantics of the directory's weak cache.
type Interface struct {
	mu sync.RWMutex

	uid      string
	enable   bool
	input    codec.Schema
	output   codec.Schema
	protocol Protocol
	ip       string
	port     int
	timeout  time.Duration

	cfg transport.Config
}

// NewInterface creates a disabled, unconfigured proxy for uid. It must be
// Configure'd before Call will do anything but report "not enabled".
func NewInterface(uid string, cfg transport.Config) *Interface {
	return &Interface{uid: uid, cfg: cfg}
}

// Configure reconfigures the proxy in place from a directory descriptor.
// Passing a nil desc disables the proxy (directory removal).
func (c *Interface) Configure(desc *directory.CommandDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if desc == nil {
		c.enable = false
		c.ip = ""
		c.port = 0
		return
	}

	c.enable = desc.Enable
	c.input = desc.Input
	c.output = desc.Output
	c.protocol = Protocol(desc.Protocol)
	c.ip = desc.IP
	c.port = desc.Port
	c.timeout = time.Duration(desc.Timeout) * time.Second
}

// Call invokes the remote command with args, using timeout if positive or
// the descriptor's configured timeout otherwise.
func (c *Interface) Call(args map[string]interface{}, timeout time.Duration) Response {
	c.mu.RLock()
	enable := c.enable
	protocol := c.protocol
	ip := c.ip
	port := c.port
	defTimeout := c.timeout
	cfg := c.cfg
	c.mu.RUnlock()

	if !enable || ip == "" {
		return Response{Success: false, Error: WireCommandNotEnable}
	}

	if timeout <= 0 {
		timeout = defTimeout
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cfg.ReadTimeout = timeout

	body, merr := json.MarshalIndent(args, "", " ")
	if merr != nil {
		return Response{Success: false, Error: WireExceptionRaised}
	}

	var raw []byte
	var callErr error

	if protocol == ProtocolJSONTCP {
		raw, callErr = callTCP(cfg, ip, port, body)
	} else {
		raw, callErr = callUDP(cfg, ip, port, body)
	}

	if callErr != nil {
		return Response{Success: false, Error: callErr.Error()}
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		var s string
		if serr := json.Unmarshal(raw, &s); serr == nil {
			return Response{Success: false, Error: s}
		}
		return Response{Success: false, Error: WireExceptionRaised}
	}

	return Response{Success: true, Fields: fields}
}

func callUDP(cfg transport.Config, ip string, port int, body []byte) ([]byte, error) {
	conn, err := transport.DialUDP(cfg, ip, port)
	if err != nil {
		return nil, errString(WireConnectionError)
	}
	defer conn.Close()

	if serr := conn.Send(body); serr != nil {
		return nil, errString(WireConnectionError)
	}

	resp, _, rerr := conn.Read()
	if rerr != nil {
		return nil, errString(WireInvalidResponse)
	}
	if resp == nil {
		return nil, errString(WireTimeoutError)
	}

	return resp, nil
}

func callTCP(cfg transport.Config, ip string, port int, body []byte) ([]byte, error) {
	conn, err := transport.DialTCP(cfg, ip, port)
	if err != nil {
		return nil, errString(WireConnectionError)
	}
	defer conn.Close()

	if serr := conn.Send(body); serr != nil {
		return nil, errString(WireConnectionError)
	}

	var buf bytes.Buffer
	first := true

	for {
		chunk, rerr := conn.Read()
		if rerr != nil {
			return nil, errString(WireInvalidResponse)
		}

		if chunk == nil {
			if first {
				return nil, errString(WireTimeoutError)
			}
			return nil, errString(WireIncompleteResp)
		}

		buf.Write(chunk)
		first = false

		trimmed := bytes.TrimSpace(buf.Bytes())
		if len(trimmed) > 0 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
			return trimmed, nil
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
