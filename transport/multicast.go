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
	"net"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"

	liberr "github.com/sabouaram/d2dcn/errors"
)

// Multicast wraps a UDP socket joined to MulticastGroup, optionally filtered
// to datagrams originating from one source IP (used by info readers to pin
// to a single writer). An empty source means plain (non-source-specific) group
// membership, used on the writer/sender side.
type Multicast struct {
	cfg   Config
	conn  *net.UDPConn
	pc    *ipv4.PacketConn
	addr  *net.UDPAddr
	retry []time.Duration
}

// JoinMulticast opens a UDP socket on the given port (0 for an ephemeral
// sender port, or an explicit port to rejoin a known writer's update feed)
// and joins MulticastGroup, optionally restricted to the given source IP via
// source-specific multicast. SO_REUSEADDR is set so a writer's own send
// socket and every reader attaching to it can share the same port on one
// host.
func JoinMulticast(cfg Config, port int, source string) (*Multicast, liberr.Error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}

	pconn, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(port)))
	if err != nil {
		return nil, ErrorListenFailed.Error(err)
	}

	conn := pconn.(*net.UDPConn)
	boundPort := conn.LocalAddr().(*net.UDPAddr).Port
	addr := &net.UDPAddr{IP: net.ParseIP(MulticastGroup), Port: boundPort}

	pc := ipv4.NewPacketConn(conn)

	group := &net.UDPAddr{IP: net.ParseIP(MulticastGroup)}

	if source == "" {
		if err = pc.JoinGroup(nil, group); err != nil {
			_ = conn.Close()
			return nil, ErrorMulticastJoinFailed.Error(err)
		}
	} else {
		src := &net.UDPAddr{IP: net.ParseIP(source)}
		if err = pc.JoinSourceSpecificGroup(nil, group, src); err != nil {
			_ = conn.Close()
			return nil, ErrorMulticastJoinFailed.Error(err)
		}
	}

	return &Multicast{cfg: cfg, conn: conn, pc: pc, addr: addr, retry: newRetrySchedule(cfg)}, nil
}

// LocalPort returns the bound port this socket sends to and receives on,
// advertised as the update_port in a published info descriptor.
func (m *Multicast) LocalPort() int {
	return m.conn.LocalAddr().(*net.UDPAddr).Port
}

// Close leaves the multicast group and releases the socket.
func (m *Multicast) Close() error {
	return m.conn.Close()
}

// Send publishes payload to the group, segmented into MTU-sized datagrams
// with the shared retry policy.
func (m *Multicast) Send(payload []byte) liberr.Error {
	for off := 0; off < len(payload); {
		end := off + m.cfg.MTU
		if end > len(payload) {
			end = len(payload)
		}

		if err := m.sendChunk(payload[off:end]); err != nil {
			return err
		}

		off = end
	}

	return nil
}

func (m *Multicast) sendChunk(chunk []byte) liberr.Error {
	for attempt := 0; ; attempt++ {
		_, err := m.conn.WriteToUDP(chunk, m.addr)
		if err == nil {
			return nil
		}

		ne, ok := err.(net.Error)
		if !ok || !ne.Temporary() || attempt >= m.cfg.RetryAttempts {
			return ErrorSendFailed.Error(err)
		}

		time.Sleep(waitForAttempt(m.retry, attempt))
	}
}

// Read blocks for up to cfg.ReadTimeout waiting for one datagram from the
// joined group. It returns a nil payload (not an error) on timeout.
func (m *Multicast) Read() ([]byte, liberr.Error) {
	buf := make([]byte, m.cfg.MTU)

	if err := m.conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout)); err != nil {
		return nil, ErrorReadTimeout.Error(err)
	}

	n, _, _, err := m.pc.ReadFrom(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, ErrorClosed.Error(err)
	}

	return buf[:n], nil
}
