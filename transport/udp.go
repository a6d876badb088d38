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
	"net"
	"time"

	liberr "github.com/sabouaram/d2dcn/errors"
)

// UDP wraps a bound *net.UDPConn with MTU segmentation and bounded retry on
// the send path, and a bounded-timeout read on the receive path. It serves
// both the listener role (bound to an ephemeral local port, receiving from
// any peer) and the client role (bound locally, always sending to one fixed
// remote peer) depending on how it is constructed.
type UDP struct {
	cfg   Config
	conn  *net.UDPConn
	peer  *net.UDPAddr
	retry []time.Duration
}

// ListenUDP opens an ephemeral UDP port for use as a listener or as an
// info writer's request-answering socket.
func ListenUDP(cfg Config) (*UDP, liberr.Error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, ErrorListenFailed.Error(err)
	}

	return &UDP{cfg: cfg, conn: conn, retry: newRetrySchedule(cfg)}, nil
}

// DialUDP opens a UDP socket pinned to a fixed remote peer, for use as a
// command or info-reader client.
func DialUDP(cfg Config, ip string, port int) (*UDP, liberr.Error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, ErrorListenFailed.Error(err)
	}

	return &UDP{
		cfg:   cfg,
		conn:  conn,
		peer:  &net.UDPAddr{IP: net.ParseIP(ip), Port: port},
		retry: newRetrySchedule(cfg),
	}, nil
}

// LocalPort returns the ephemeral port this socket was bound to.
func (u *UDP) LocalPort() int {
	return u.conn.LocalAddr().(*net.UDPAddr).Port
}

// Close releases the underlying socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}

// Send transmits payload to the configured peer, segmenting it into
// MTU-sized datagrams and retrying on transient would-block errors up to
// cfg.RetryAttempts times; the first wait is cfg.RetryInterval and later
// waits climb toward ten times that (see newRetrySchedule).
func (u *UDP) Send(payload []byte) liberr.Error {
	if u.peer == nil {
		return ErrorSendFailed.Error(nil)
	}
	return u.sendTo(u.peer, payload)
}

// SendTo transmits payload to an explicit (ip, port), for use by listeners
// replying to whichever peer last contacted them.
func (u *UDP) SendTo(ip string, port int, payload []byte) liberr.Error {
	return u.sendTo(&net.UDPAddr{IP: net.ParseIP(ip), Port: port}, payload)
}

func (u *UDP) sendTo(addr *net.UDPAddr, payload []byte) liberr.Error {
	for off := 0; off < len(payload); {
		end := off + u.cfg.MTU
		if end > len(payload) {
			end = len(payload)
		}

		if err := u.sendChunk(addr, payload[off:end]); err != nil {
			return err
		}

		off = end
	}

	if len(payload) == 0 {
		return u.sendChunk(addr, nil)
	}

	return nil
}

func (u *UDP) sendChunk(addr *net.UDPAddr, chunk []byte) liberr.Error {
	for attempt := 0; ; attempt++ {
		_, err := u.conn.WriteToUDP(chunk, addr)
		if err == nil {
			return nil
		}

		ne, ok := err.(net.Error)
		if !ok || !ne.Temporary() || attempt >= u.cfg.RetryAttempts {
			return ErrorSendFailed.Error(err)
		}

		time.Sleep(waitForAttempt(u.retry, attempt))
	}
}

// Read blocks for up to cfg.ReadTimeout waiting for one datagram. It returns
// the payload and sender address, or a nil payload on timeout.
func (u *UDP) Read() ([]byte, *net.UDPAddr, liberr.Error) {
	buf := make([]byte, u.cfg.MTU)

	if err := u.conn.SetReadDeadline(time.Now().Add(u.cfg.ReadTimeout)); err != nil {
		return nil, nil, ErrorReadTimeout.Error(err)
	}

	n, addr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil, nil
		}
		return nil, nil, ErrorClosed.Error(err)
	}

	return buf[:n], addr, nil
}
