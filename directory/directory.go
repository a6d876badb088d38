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

package directory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	libcache "github.com/sabouaram/d2dcn/cache"
	liberr "github.com/sabouaram/d2dcn/errors"
	liblog "github.com/sabouaram/d2dcn/logger"
	loglvl "github.com/sabouaram/d2dcn/logger/level"
)

// ProxyExpiration bounds how long an unreferenced live proxy is kept warm in
// the directory's cache before it is evicted and has to be rebuilt lazily
// from the next directory scan.
const ProxyExpiration = 5 * time.Minute

// Kind distinguishes the two descriptor families carried by the directory.
type Kind uint8

const (
	KindCommand Kind = iota
	KindInfo
)

// Event describes one add/update/remove transition observed for a UID.
type Event struct {
	Kind    Kind
	UID     string
	Command *CommandDescriptor
	Info    *InfoDescriptor
	Removed bool
}

// Listener receives directory events dispatched as new/update/remove
// notifications. It is typically implemented by the coordinator (§4.G).
type Listener interface {
	OnEvent(Event)
}

// Directory adapts a Broker's raw callbacks into typed events and caches the
// live proxy object (command or info reader) associated with each UID it
// has seen, standing in for weak references (see design notes).
type Directory struct {
	log liblog.Logger

	broker Broker

	mu      sync.RWMutex
	known   map[string]bool // uid -> true once at least one add/update seen

	proxies libcache.Cache[string, interface{}]

	listener Listener
}

// New creates a Directory bound to broker and logging through log. ctx
// bounds the lifetime of the background proxy-expiration reaper.
func New(ctx context.Context, log liblog.Logger, broker Broker) *Directory {
	return NewWithProxyExpiration(ctx, log, broker, ProxyExpiration)
}

// NewWithProxyExpiration is New with an explicit proxy-cache expiration in
// place of ProxyExpiration, mainly so a caller can observe eviction and
// lazy rebuild without waiting out the default 5 minutes.
func NewWithProxyExpiration(ctx context.Context, log liblog.Logger, broker Broker, exp time.Duration) *Directory {
	return &Directory{
		log:     log,
		broker:  broker,
		known:   make(map[string]bool),
		proxies: libcache.New[string, interface{}](ctx, exp),
	}
}

// SetListener installs the receiver of directory events. Only one listener
// is supported at a time, matching the coordinator's single set of
// directory-event callbacks.
func (d *Directory) SetListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listener = l
}

// Proxy returns the cached live proxy for uid, if any is still warm.
func (d *Directory) Proxy(uid string) (interface{}, bool) {
	v, _, ok := d.proxies.Load(uid)
	return v, ok
}

// StoreProxy registers (or refreshes) the live proxy object for uid.
func (d *Directory) StoreProxy(uid string, proxy interface{}) {
	d.proxies.Store(uid, proxy)
}

// OnNewTableEntry handles the broker's new-entry callback for a command or
// info descriptor payload.
func (d *Directory) OnNewTableEntry(uid string, payload []byte) {
	d.onEntry(uid, payload)
}

// OnUpdateTableEntry handles the broker's update-entry callback.
func (d *Directory) OnUpdateTableEntry(uid string, payload []byte) {
	d.onEntry(uid, payload)
}

// OnRemoveTableEntry handles the broker's remove-entry callback.
func (d *Directory) OnRemoveTableEntry(uid string) {
	d.mu.Lock()
	_, wasKnown := d.known[uid]
	delete(d.known, uid)
	d.mu.Unlock()

	if !wasKnown {
		return
	}

	ev := Event{UID: uid, Removed: true}

	if v, ok := d.Proxy(uid); ok {
		if _, isCmd := v.(*CommandDescriptor); isCmd {
			ev.Kind = KindCommand
		} else {
			ev.Kind = KindInfo
		}
	}

	d.dispatch(ev)
}

func (d *Directory) onEntry(uid string, payload []byte) {
	var cmd CommandDescriptor
	if err := json.Unmarshal(payload, &cmd); err == nil && cmd.Protocol != "" && (cmd.Protocol == "json-udp" || cmd.Protocol == "json-tcp") {
		d.handle(uid, Event{Kind: KindCommand, UID: uid, Command: &cmd})
		return
	}

	var info InfoDescriptor
	if err := json.Unmarshal(payload, &info); err == nil {
		d.handle(uid, Event{Kind: KindInfo, UID: uid, Info: &info})
		return
	}

	if d.log != nil {
		d.log.Entry(loglvl.WarnLevel, "directory: invalid descriptor payload").FieldAdd("uid", uid).Log()
	}
}

func (d *Directory) handle(uid string, ev Event) {
	d.mu.Lock()
	d.known[uid] = true
	d.mu.Unlock()

	d.dispatch(ev)
}

func (d *Directory) dispatch(ev Event) {
	d.mu.RLock()
	l := d.listener
	d.mu.RUnlock()

	if l != nil {
		l.OnEvent(ev)
	}
}

// Publish sends a descriptor upstream via the broker.
func (d *Directory) Publish(uid string, v interface{}) liberr.Error {
	b, err := json.Marshal(v)
	if err != nil {
		return ErrorInvalidDescriptor.Error(err)
	}

	if !d.broker.UpdateTableEntry(uid, b) {
		return ErrorBrokerUpdateFailed.Error(nil)
	}

	return nil
}

// Withdraw removes a previously published descriptor.
func (d *Directory) Withdraw(uid string) liberr.Error {
	if !d.broker.RemoveTableEntry(uid) {
		return ErrorBrokerUpdateFailed.Error(nil)
	}
	return nil
}
