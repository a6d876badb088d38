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
	"context"
	"encoding/json"
	"sync"

	"github.com/sabouaram/d2dcn/codec"
	libctx "github.com/sabouaram/d2dcn/context"
	"github.com/sabouaram/d2dcn/directory"
	liberr "github.com/sabouaram/d2dcn/errors"
	liblog "github.com/sabouaram/d2dcn/logger"
	loglvl "github.com/sabouaram/d2dcn/logger/level"
	"github.com/sabouaram/d2dcn/transport"
)

// Registration holds everything a server-side command needs to answer
// incoming requests and to publish/update its directory descriptor.
type Registration struct {
	Name     string
	Category string
	Input    codec.Schema
	Output   codec.Schema
	Protocol Protocol
	Timeout  int

	mu      sync.RWMutex
	enable  bool
	cb      Callback
	udp     *transport.UDP
	tcpLn   *transport.TCPListener
	cancel  func()
}

// Server manages the set of commands a single coordinator instance has
// registered locally. Registrations are kept in a libctx.Config, the same
// shared worker container the logger and ioutils/mapCloser packages use to
// hold per-key state alongside a cancellable context.
type Server struct {
	log liblog.Logger
	dir *directory.Directory
	cfg transport.Config

	cmd libctx.Config[string]
}

// NewServer creates a Server publishing descriptors into dir and logging
// through log, using cfg for transport tuning.
func NewServer(log liblog.Logger, dir *directory.Directory, cfg transport.Config) *Server {
	return &Server{log: log, dir: dir, cfg: cfg, cmd: libctx.New[string](context.Background())}
}

// AddServiceCommand registers a new local command: validates the schemas,
// opens the listening socket for protocol, spawns its worker, and publishes
// the descriptor.
func (s *Server) AddServiceCommand(ctx context.Context, uid string, r Registration, cb Callback) liberr.Error {
	if err := r.Input.Validate(); err != nil {
		return ErrorInvalidSchema.Error(err)
	}
	if err := r.Output.Validate(); err != nil {
		return ErrorInvalidSchema.Error(err)
	}

	if _, exists := s.cmd.Load(r.Name); exists {
		return ErrorAlreadyRegistered.Error(nil)
	}

	reg := &Registration{
		Name: r.Name, Category: r.Category, Input: r.Input, Output: r.Output,
		Protocol: r.Protocol, Timeout: r.Timeout, enable: true, cb: cb,
	}

	wctx, cancel := context.WithCancel(ctx)
	reg.cancel = cancel

	var (
		port int
		err  liberr.Error
	)

	switch r.Protocol {
	case ProtocolJSONTCP:
		ln, lerr := transport.ListenTCP(s.cfg)
		if lerr != nil {
			cancel()
			return ErrorListenFailed.Error(lerr)
		}
		reg.tcpLn = ln
		port = ln.LocalPort()
		go s.serveTCP(wctx, reg)
	default:
		u, uerr := transport.ListenUDP(s.cfg)
		if uerr != nil {
			cancel()
			return ErrorListenFailed.Error(uerr)
		}
		reg.udp = u
		port = u.LocalPort()
		go s.serveUDP(wctx, reg)
	}

	s.cmd.Store(r.Name, reg)

	ip, ierr := transport.LocalIP()
	if ierr != nil {
		cancel()
		return ierr
	}

	desc := directory.CommandDescriptor{
		Protocol: string(r.Protocol),
		IP:       ip,
		Port:     port,
		Input:    r.Input,
		Output:   r.Output,
		Enable:   true,
		Timeout:  r.Timeout,
	}

	return s.dir.Publish(uid, desc)
}

// Stop cancels every registered command's worker and closes its listener.
func (s *Server) Stop() {
	s.cmd.Walk(func(_ string, val interface{}) bool {
		if reg, ok := val.(*Registration); ok && reg.cancel != nil {
			reg.cancel()
		}
		return true
	})
}

// EnableCommand flips the enable flag on a locally registered command.
func (s *Server) EnableCommand(name string, enable bool) liberr.Error {
	val, ok := s.cmd.Load(name)
	if !ok {
		return ErrorNotRegistered.Error(nil)
	}

	reg, ok := val.(*Registration)
	if !ok {
		return ErrorNotRegistered.Error(nil)
	}

	reg.mu.Lock()
	reg.enable = enable
	reg.mu.Unlock()

	return nil
}

func (s *Server) serveUDP(ctx context.Context, reg *Registration) {
	for {
		select {
		case <-ctx.Done():
			_ = reg.udp.Close()
			return
		default:
		}

		payload, addr, err := reg.udp.Read()
		if err != nil || payload == nil {
			continue
		}

		resp := s.process(reg, payload)
		if addr != nil {
			_ = reg.udp.SendTo(addr.IP.String(), addr.Port, resp)
		}
	}
}

func (s *Server) serveTCP(ctx context.Context, reg *Registration) {
	for {
		select {
		case <-ctx.Done():
			_ = reg.tcpLn.Close()
			return
		default:
		}

		conn, err := reg.tcpLn.WaitConnection()
		if err != nil || conn == nil {
			continue
		}

		go s.serveTCPConn(ctx, reg, conn)
	}
}

func (s *Server) serveTCPConn(ctx context.Context, reg *Registration, conn *transport.TCPConn) {
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, err := conn.Read()
		if err != nil {
			return
		}
		if payload == nil {
			continue
		}

		resp := s.process(reg, payload)
		if sendErr := conn.Send(resp); sendErr != nil {
			return
		}
	}
}

// process runs the request pipeline for one payload and returns the JSON
// response bytes to send back.
func (s *Server) process(reg *Registration, payload []byte) []byte {
	var args map[string]interface{}
	if err := json.Unmarshal(payload, &args); err != nil {
		return quoted(WireInvalidInput)
	}

	reg.mu.RLock()
	enable := reg.enable
	cb := reg.cb
	input := reg.Input
	output := reg.Output
	reg.mu.RUnlock()

	if !enable {
		return quoted(WireCommandNotEnable)
	}

	if err := codec.CheckFields(args, input); err != nil {
		return quoted(WireInvalidInput)
	}

	out, err := cb(args)
	if err != nil || out == nil {
		if s.log != nil {
			s.log.Entry(loglvl.WarnLevel, "command callback failed").FieldAdd("command", reg.Name).Log()
		}
		return quoted(WireCommandError)
	}

	if verr := codec.CheckFields(out, output); verr != nil {
		return quoted(WireInvalidOutput)
	}

	b, merr := json.MarshalIndent(out, "", " ")
	if merr != nil {
		return quoted(WireCommandError)
	}

	return b
}

func quoted(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}
