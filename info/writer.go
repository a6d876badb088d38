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

// Package info implements the writer (publisher) and reader (subscriber)
// halves of the info plane: a request-response socket answering the current
// value plus a multicast feed of updates.
package info

import (
	"context"
	"reflect"
	"sync"

	"github.com/sabouaram/d2dcn/codec"
	"github.com/sabouaram/d2dcn/directory"
	liberr "github.com/sabouaram/d2dcn/errors"
	"github.com/sabouaram/d2dcn/transport"
)

// requestToken is the literal datagram a reader sends to ask for the
// writer's current value.
const requestToken = "req"

// Writer owns one named info value: it answers request datagrams with the
// current value and publishes each change on the multicast group.
type Writer struct {
	dir *directory.Directory
	cfg transport.Config

	mu    sync.RWMutex
	value interface{}
	vtype codec.ValueType

	req *transport.UDP
	mc  *transport.Multicast

	cancel func()
}

// NewWriter creates and starts a writer for uid: the value starts at the
// zero of vtype, a request socket and a multicast sender are opened, and the
// descriptor is published into dir.
func NewWriter(ctx context.Context, dir *directory.Directory, cfg transport.Config, uid string, vtype codec.ValueType) (*Writer, liberr.Error) {
	req, err := transport.ListenUDP(cfg)
	if err != nil {
		return nil, ErrorListenFailed.Error(err)
	}

	mc, err := transport.JoinMulticast(cfg, 0, "")
	if err != nil {
		_ = req.Close()
		return nil, ErrorListenFailed.Error(err)
	}

	wctx, cancel := context.WithCancel(ctx)

	w := &Writer{
		dir: dir, cfg: cfg,
		value: codec.Zero(vtype), vtype: vtype,
		req: req, mc: mc, cancel: cancel,
	}

	go w.serve(wctx)

	ip, ierr := transport.LocalIP()
	if ierr != nil {
		cancel()
		return nil, ierr
	}

	desc := directory.InfoDescriptor{
		Protocol:   "ASCII",
		IP:         ip,
		ReqPort:    req.LocalPort(),
		UpdatePort: mc.LocalPort(),
		Type:       vtype,
	}

	if perr := dir.Publish(uid, desc); perr != nil {
		cancel()
		return nil, perr
	}

	return w, nil
}

// Set updates the current value, publishing it on the multicast group if it
// differs from the previous value. v must satisfy the writer's declared
// type.
func (w *Writer) Set(v interface{}) liberr.Error {
	if !codec.CheckFieldType(v, w.vtype) {
		return ErrorTypeMismatch.Error(nil)
	}

	w.mu.Lock()
	changed := !equalValue(w.value, v)
	w.value = v
	w.mu.Unlock()

	if !changed {
		return nil
	}

	enc, eerr := codec.EncodeASCII(v, w.vtype)
	if eerr != nil {
		return eerr
	}

	return w.mc.Send([]byte(enc))
}

// Value returns the current value.
func (w *Writer) Value() interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.value
}

// RequestPort returns the local port the request-answering socket is bound
// to, as advertised in the published descriptor's req_port field.
func (w *Writer) RequestPort() int {
	return w.req.LocalPort()
}

// Close stops the writer's request-answering worker and releases its
// sockets.
func (w *Writer) Close() {
	w.cancel()
}

func (w *Writer) serve(ctx context.Context) {
	defer w.req.Close()
	defer w.mc.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, addr, err := w.req.Read()
		if err != nil || payload == nil {
			continue
		}

		if string(payload) != requestToken {
			continue
		}

		w.mu.RLock()
		v := w.value
		vt := w.vtype
		w.mu.RUnlock()

		enc, eerr := codec.EncodeASCII(v, vt)
		if eerr != nil {
			continue
		}

		if addr != nil {
			_ = w.req.SendTo(addr.IP.String(), addr.Port, []byte(enc))
		}
	}
}

func equalValue(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
