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

package info

import (
	"context"
	"sync"
	"time"

	"github.com/sabouaram/d2dcn/codec"
	"github.com/sabouaram/d2dcn/directory"
	"github.com/sabouaram/d2dcn/transport"
)

// primingTimeout bounds the one-shot request a reader sends on attach to get
// the writer's current value before the multicast feed catches up.
const primingTimeout = 5 * time.Second

// UpdateFunc is invoked with the new value each time it changes.
type UpdateFunc func(value interface{}, online bool)

// subscription is one registered UpdateFunc, removable by its token.
type subscription struct {
	token uint64
	fn    UpdateFunc
}

// Reader is a caller-side proxy for one info UID: it primes itself with a
// one-shot request on configure, then tracks the writer's multicast feed.
type Reader struct {
	uid string
	cfg transport.Config

	mu        sync.RWMutex
	enable    bool
	ip        string
	reqPort   int
	vtype     codec.ValueType
	value     interface{}
	nextToken uint64
	subs      []subscription

	cancel func()
}

// NewReader creates a disabled, unconfigured reader for uid.
func NewReader(uid string, cfg transport.Config) *Reader {
	return &Reader{uid: uid, cfg: cfg}
}

// Configure reconfigures the reader in place from a directory descriptor,
// tearing down the previous multicast worker (if any) and starting a new
// one joined source-specific to the writer's address. A nil desc disables
// the reader (directory removal).
func (r *Reader) Configure(ctx context.Context, desc *directory.InfoDescriptor) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	if desc == nil {
		r.enable = false
		r.ip = ""
		r.reqPort = 0
		r.value = nil
		r.mu.Unlock()
		r.notify(false)
		return
	}

	r.enable = true
	r.ip = desc.IP
	r.reqPort = desc.ReqPort
	r.vtype = desc.Type
	r.mu.Unlock()

	r.prime()

	wctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	mc, err := transport.JoinMulticast(r.cfg, desc.UpdatePort, desc.IP)
	if err != nil {
		return
	}

	go r.listen(wctx, mc)
}

// prime sends the one-shot request datagram and applies the reply, if any,
// before the multicast worker takes over.
func (r *Reader) prime() {
	r.mu.RLock()
	ip, port, vtype := r.ip, r.reqPort, r.vtype
	cfg := r.cfg
	r.mu.RUnlock()

	cfg.ReadTimeout = primingTimeout

	conn, err := transport.DialUDP(cfg, ip, port)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.Send([]byte(requestToken)); err != nil {
		return
	}

	payload, _, rerr := conn.Read()
	if rerr != nil || payload == nil {
		return
	}

	v, derr := codec.DecodeASCII(string(payload), vtype)
	if derr != nil {
		return
	}

	r.apply(v)
}

func (r *Reader) listen(ctx context.Context, mc *transport.Multicast) {
	defer mc.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, err := mc.Read()
		if err != nil || payload == nil {
			continue
		}

		r.mu.RLock()
		vtype := r.vtype
		r.mu.RUnlock()

		v, derr := codec.DecodeASCII(string(payload), vtype)
		if derr != nil {
			continue
		}

		r.apply(v)
	}
}

func (r *Reader) apply(v interface{}) {
	r.mu.Lock()
	r.value = v
	subs := append([]subscription(nil), r.subs...)
	r.mu.Unlock()

	for _, s := range subs {
		s.fn(v, true)
	}
}

func (r *Reader) notify(online bool) {
	r.mu.RLock()
	v := r.value
	subs := append([]subscription(nil), r.subs...)
	r.mu.RUnlock()

	for _, s := range subs {
		s.fn(v, online)
	}
}

// OnUpdate registers fn to be called on every future value change, and
// returns a token usable with RemoveUpdate.
func (r *Reader) OnUpdate(fn UpdateFunc) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextToken++
	token := r.nextToken
	r.subs = append(r.subs, subscription{token: token, fn: fn})
	return token
}

// RemoveUpdate unregisters a callback previously added with OnUpdate.
func (r *Reader) RemoveUpdate(token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s.token == token {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

// Value returns the last known value and whether the reader has ever
// received one (online is false until the first priming reply or multicast
// update arrives, and after a directory removal resets it).
func (r *Reader) Value() (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.value != nil
}

// Close tears down the reader's multicast worker.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
