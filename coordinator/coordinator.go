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

// Package coordinator is the top-level entry point of the library: it owns
// this peer's identity, wires the directory to an external shared-table
// broker, hosts locally published commands and info variables, and resolves
// remote ones into caller-side proxies.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/sabouaram/d2dcn/codec"
	"github.com/sabouaram/d2dcn/command"
	"github.com/sabouaram/d2dcn/directory"
	liberr "github.com/sabouaram/d2dcn/errors"
	"github.com/sabouaram/d2dcn/info"
	"github.com/sabouaram/d2dcn/ioutils/mapCloser"
	liblog "github.com/sabouaram/d2dcn/logger"
	"github.com/sabouaram/d2dcn/transport"
	"github.com/sabouaram/d2dcn/uid"
)

// closerFunc adapts a no-error Close method (info.Writer/info.Reader) to
// io.Closer so it can be registered with a mapCloser.Closer.
type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// pollInterval is how often a waiting lookup re-scans the directory's
// latest snapshot for a newly appeared match.
const pollInterval = 100 * time.Millisecond

// Option customizes a Coordinator at construction time.
type Option func(*Coordinator)

// WithMac overrides the identity's mac component (default: the host's node
// id, see defaultMac).
func WithMac(mac string) Option {
	return func(c *Coordinator) { c.mac = mac }
}

// WithService overrides the identity's service component (default: the
// running process's image name, see defaultService).
func WithService(service string) Option {
	return func(c *Coordinator) { c.service = service }
}

// WithProxyExpiration overrides how long the directory keeps a resolved
// remote proxy (command.Interface / info.Reader) warm before evicting it
// and lazily rebuilding it on next lookup (default: directory.ProxyExpiration).
func WithProxyExpiration(exp time.Duration) Option {
	return func(c *Coordinator) { c.proxyExpiration = exp }
}

// Coordinator is one peer on the control network: it owns a directory bound
// to an external broker, a command server for locally hosted commands, and
// the set of info writers this peer publishes.
type Coordinator struct {
	log liblog.Logger
	dir *directory.Directory
	brk directory.Broker
	cfg transport.Config

	mac             string
	service         string
	proxyExpiration time.Duration

	cbMu            sync.RWMutex
	onCommandAdd    func(uid string, desc directory.CommandDescriptor)
	onCommandUpdate func(uid string, desc directory.CommandDescriptor)
	onCommandRemove func(uid string)
	onInfoAdd       func(uid string, desc directory.InfoDescriptor)
	onInfoUpdate    func(uid string, desc directory.InfoDescriptor)
	onInfoRemove    func(uid string)

	proxyMu       sync.Mutex
	knownCommands map[string]directory.CommandDescriptor
	knownInfo     map[string]directory.InfoDescriptor

	srv     *command.Server
	writers map[string]*info.Writer
	closer  mapCloser.Closer

	ctx    context.Context
	cancel func()
}

// New creates a Coordinator bound to broker, deriving its identity from the
// host (see defaultMac/defaultService) unless overridden by opts. It starts
// dispatching directory events immediately; call Start to bring the broker
// itself up.
func New(ctx context.Context, log liblog.Logger, broker directory.Broker, cfg transport.Config, opts ...Option) *Coordinator {
	cctx, cancel := context.WithCancel(ctx)

	c := &Coordinator{
		log: log, brk: broker, cfg: cfg,
		mac: defaultMac(), service: defaultService(),
		knownCommands: make(map[string]directory.CommandDescriptor),
		knownInfo:     make(map[string]directory.InfoDescriptor),
		writers:       make(map[string]*info.Writer),
		ctx:           cctx, cancel: cancel,
	}

	for _, o := range opts {
		o(c)
	}

	c.closer = mapCloser.New(cctx)

	proxyExpiration := c.proxyExpiration
	if proxyExpiration <= 0 {
		proxyExpiration = directory.ProxyExpiration
	}
	c.dir = directory.NewWithProxyExpiration(cctx, log, broker, proxyExpiration)
	c.dir.SetListener(c)
	c.srv = command.NewServer(log, c.dir, cfg)

	return c
}

// Directory returns the directory this coordinator dispatches events
// through. An external broker implementation routes incoming shared-table
// updates into OnNewTableEntry / OnUpdateTableEntry / OnRemoveTableEntry on
// the returned value.
func (c *Coordinator) Directory() *directory.Directory {
	return c.dir
}

// Mac returns the identity mac component this coordinator publishes under.
func (c *Coordinator) Mac() string { return c.mac }

// Service returns the identity service component this coordinator publishes
// under.
func (c *Coordinator) Service() string { return c.service }

// Start brings the underlying broker up.
func (c *Coordinator) Start() liberr.Error {
	if err := c.brk.Start(); err != nil {
		return ErrorBrokerStartFailed.Error(err)
	}
	return nil
}

// Stop brings the underlying broker down without tearing down this
// coordinator's own hosted endpoints.
func (c *Coordinator) Stop() liberr.Error {
	if err := c.brk.Stop(); err != nil {
		return ErrorBrokerStopFailed.Error(err)
	}
	return nil
}

// Destroy stops every locally hosted command and info writer, closes every
// resolved remote info reader, and cancels every worker started under this
// coordinator's context. It does not stop the broker; call Stop first if
// required.
func (c *Coordinator) Destroy() {
	c.srv.Stop()
	c.closer.Close()
	c.cancel()
}

// OnCommandAdd registers the callback invoked when a new command appears in
// the directory.
func (c *Coordinator) OnCommandAdd(fn func(uid string, desc directory.CommandDescriptor)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onCommandAdd = fn
}

// OnCommandUpdate registers the callback invoked when a known command's
// descriptor changes.
func (c *Coordinator) OnCommandUpdate(fn func(uid string, desc directory.CommandDescriptor)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onCommandUpdate = fn
}

// OnCommandRemove registers the callback invoked when a known command
// disappears from the directory.
func (c *Coordinator) OnCommandRemove(fn func(uid string)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onCommandRemove = fn
}

// OnInfoAdd registers the callback invoked when a new info variable appears
// in the directory.
func (c *Coordinator) OnInfoAdd(fn func(uid string, desc directory.InfoDescriptor)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onInfoAdd = fn
}

// OnInfoUpdate registers the callback invoked when a known info variable's
// descriptor changes.
func (c *Coordinator) OnInfoUpdate(fn func(uid string, desc directory.InfoDescriptor)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onInfoUpdate = fn
}

// OnInfoRemove registers the callback invoked when a known info variable
// disappears from the directory.
func (c *Coordinator) OnInfoRemove(fn func(uid string)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onInfoRemove = fn
}

// OnEvent implements directory.Listener: it keeps this coordinator's
// directory snapshot current, reconfigures any live proxy still warm in the
// directory's expiring proxy cache for the uid, and dispatches to the
// matching registered callback.
func (c *Coordinator) OnEvent(ev directory.Event) {
	if ev.Removed {
		c.proxyMu.Lock()
		_, hadCommand := c.knownCommands[ev.UID]
		_, hadInfo := c.knownInfo[ev.UID]
		delete(c.knownCommands, ev.UID)
		delete(c.knownInfo, ev.UID)
		c.proxyMu.Unlock()

		if p, ok := c.dir.Proxy(ev.UID); ok {
			if cmd, isCmd := p.(*command.Interface); isCmd {
				cmd.Configure(nil)
			}
			if rdr, isInfo := p.(*info.Reader); isInfo {
				rdr.Configure(c.ctx, nil)
			}
		}

		c.cbMu.RLock()
		onCmdRemove, onInfoRemove := c.onCommandRemove, c.onInfoRemove
		c.cbMu.RUnlock()

		if hadCommand && onCmdRemove != nil {
			onCmdRemove(ev.UID)
		}
		if hadInfo && onInfoRemove != nil {
			onInfoRemove(ev.UID)
		}
		return
	}

	switch ev.Kind {
	case directory.KindCommand:
		if ev.Command == nil {
			return
		}

		c.proxyMu.Lock()
		_, existed := c.knownCommands[ev.UID]
		c.knownCommands[ev.UID] = *ev.Command
		c.proxyMu.Unlock()

		if p, ok := c.dir.Proxy(ev.UID); ok {
			if cmd, isCmd := p.(*command.Interface); isCmd {
				cmd.Configure(ev.Command)
			}
		}

		c.cbMu.RLock()
		onAdd, onUpdate := c.onCommandAdd, c.onCommandUpdate
		c.cbMu.RUnlock()

		if existed && onUpdate != nil {
			onUpdate(ev.UID, *ev.Command)
		} else if !existed && onAdd != nil {
			onAdd(ev.UID, *ev.Command)
		}

	case directory.KindInfo:
		if ev.Info == nil {
			return
		}

		c.proxyMu.Lock()
		_, existed := c.knownInfo[ev.UID]
		c.knownInfo[ev.UID] = *ev.Info
		c.proxyMu.Unlock()

		if p, ok := c.dir.Proxy(ev.UID); ok {
			if rdr, isInfo := p.(*info.Reader); isInfo {
				rdr.Configure(c.ctx, ev.Info)
			}
		}

		c.cbMu.RLock()
		onAdd, onUpdate := c.onInfoAdd, c.onInfoUpdate
		c.cbMu.RUnlock()

		if existed && onUpdate != nil {
			onUpdate(ev.UID, *ev.Info)
		} else if !existed && onAdd != nil {
			onAdd(ev.UID, *ev.Info)
		}
	}
}

// AddCommand hosts a new command locally under this coordinator's own
// identity: category/name, matched against input/output schemas, answered
// via protocol, and dispatched to cb.
func (c *Coordinator) AddCommand(category, name string, input, output codec.Schema, protocol command.Protocol, timeout int, cb command.Callback) liberr.Error {
	path, uerr := uid.Create(c.mac, c.service, category, uid.ModeCommand, name)
	if uerr != nil {
		return ErrorInvalidUID.Error(uerr)
	}

	reg := command.Registration{
		Name: name, Category: category, Input: input, Output: output,
		Protocol: protocol, Timeout: timeout,
	}

	return c.srv.AddServiceCommand(c.ctx, path, reg, cb)
}

// AddInfo hosts a new info variable locally under this coordinator's own
// identity: category/name, typed vtype, starting at its zero value.
func (c *Coordinator) AddInfo(category, name string, vtype codec.ValueType) (*info.Writer, liberr.Error) {
	path, uerr := uid.Create(c.mac, c.service, category, uid.ModeInfo, name)
	if uerr != nil {
		return nil, ErrorInvalidUID.Error(uerr)
	}

	w, err := info.NewWriter(c.ctx, c.dir, c.cfg, path, vtype)
	if err != nil {
		return nil, err
	}

	c.proxyMu.Lock()
	c.writers[path] = w
	c.proxyMu.Unlock()
	c.closer.Add(closerFunc(w.Close))

	return w, nil
}

// Commands resolves every currently known command matching the given
// identity components (an empty component matches any value in that
// segment) into caller-side proxies. A positive wait keeps re-scanning the
// directory's snapshot at pollInterval until at least one match appears or
// wait elapses; a zero or negative wait scans once and returns immediately.
func (c *Coordinator) Commands(mac, service, category, name string, wait time.Duration) ([]*command.Interface, liberr.Error) {
	re, err := uid.CreateRegexPath(mac, service, category, uid.ModeCommand, name)
	if err != nil {
		return nil, ErrorInvalidUID.Error(err)
	}

	scan := func() []*command.Interface {
		c.proxyMu.Lock()
		matched := make(map[string]directory.CommandDescriptor)
		for u, desc := range c.knownCommands {
			if re.MatchString(u) {
				matched[u] = desc
			}
		}
		c.proxyMu.Unlock()

		out := make([]*command.Interface, 0, len(matched))
		for u, desc := range matched {
			desc := desc

			p, ok := c.dir.Proxy(u)
			cmd, isCmd := p.(*command.Interface)
			if !ok || !isCmd {
				cmd = command.NewInterface(u, c.cfg)
				c.dir.StoreProxy(u, cmd)
			}
			cmd.Configure(&desc)
			out = append(out, cmd)
		}
		return out
	}

	if wait <= 0 {
		return scan(), nil
	}

	return c.pollCommands(scan, wait), nil
}

func (c *Coordinator) pollCommands(scan func() []*command.Interface, wait time.Duration) []*command.Interface {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if out := scan(); len(out) > 0 {
		return out
	}

	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-deadline.C:
			return scan()
		case <-ticker.C:
			if out := scan(); len(out) > 0 {
				return out
			}
		}
	}
}

// InfoReaders resolves every currently known info variable matching the
// given identity components into caller-side proxies, with the same wait
// semantics as Commands.
func (c *Coordinator) InfoReaders(mac, service, category, name string, wait time.Duration) ([]*info.Reader, liberr.Error) {
	re, err := uid.CreateRegexPath(mac, service, category, uid.ModeInfo, name)
	if err != nil {
		return nil, ErrorInvalidUID.Error(err)
	}

	scan := func() []*info.Reader {
		c.proxyMu.Lock()
		matched := make(map[string]directory.InfoDescriptor)
		for u, desc := range c.knownInfo {
			if re.MatchString(u) {
				matched[u] = desc
			}
		}
		c.proxyMu.Unlock()

		out := make([]*info.Reader, 0, len(matched))
		for u, desc := range matched {
			desc := desc

			p, ok := c.dir.Proxy(u)
			rdr, isInfo := p.(*info.Reader)
			if !ok || !isInfo {
				rdr = info.NewReader(u, c.cfg)
				c.dir.StoreProxy(u, rdr)
				c.closer.Add(closerFunc(rdr.Close))
			}
			rdr.Configure(c.ctx, &desc)
			out = append(out, rdr)
		}
		return out
	}

	if wait <= 0 {
		return scan(), nil
	}

	return c.pollInfoReaders(scan, wait), nil
}

func (c *Coordinator) pollInfoReaders(scan func() []*info.Reader, wait time.Duration) []*info.Reader {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if out := scan(); len(out) > 0 {
		return out
	}

	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-deadline.C:
			return scan()
		case <-ticker.C:
			if out := scan(); len(out) > 0 {
				return out
			}
		}
	}
}
