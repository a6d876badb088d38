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
	"strconv"
	"time"

	liberr "github.com/sabouaram/d2dcn/errors"
)

// TCPListener accepts connections on an ephemeral port. Each accepted
// connection is returned to the caller as a *TCPConn to be handed off to its
// own worker goroutine.
type TCPListener struct {
	cfg Config
	ln  *net.TCPListener
}

// ListenTCP opens an ephemeral TCP port.
func ListenTCP(cfg Config) (*TCPListener, liberr.Error) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, ErrorListenFailed.Error(err)
	}

	return &TCPListener{cfg: cfg, ln: ln}, nil
}

// LocalPort returns the ephemeral port this listener is bound to.
func (l *TCPListener) LocalPort() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// Close unblocks any pending WaitConnection call and releases the socket.
func (l *TCPListener) Close() error {
	return l.ln.Close()
}

// WaitConnection blocks for up to cfg.ReadTimeout waiting for one inbound
// connection. It returns a nil *TCPConn on timeout so callers can poll a
// cancellation flag between calls.
func (l *TCPListener) WaitConnection() (*TCPConn, liberr.Error) {
	if err := l.ln.SetDeadline(time.Now().Add(l.cfg.ReadTimeout)); err != nil {
		return nil, ErrorListenFailed.Error(err)
	}

	c, err := l.ln.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, ErrorClosed.Error(err)
	}

	return &TCPConn{cfg: l.cfg, conn: c, retry: newRetrySchedule(l.cfg)}, nil
}

// TCPConn wraps one accepted or dialed TCP connection with MTU-segmented,
// retrying sends and timeout-bounded reads.
type TCPConn struct {
	cfg   Config
	conn  net.Conn
	retry []time.Duration
}

// DialTCP connects to a fixed remote peer, for use by command/info clients.
func DialTCP(cfg Config, ip string, port int) (*TCPConn, liberr.Error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(ip, strconv.Itoa(port)), cfg.ReadTimeout*10)
	if err != nil {
		return nil, ErrorDialFailed.Error(err)
	}

	return &TCPConn{cfg: cfg, conn: conn, retry: newRetrySchedule(cfg)}, nil
}

// Close releases the underlying connection.
func (c *TCPConn) Close() error {
	return c.conn.Close()
}

// Send writes payload to the peer, segmenting into MTU-sized writes with
// the shared retry policy.
func (c *TCPConn) Send(payload []byte) liberr.Error {
	for off := 0; off < len(payload); {
		end := off + c.cfg.MTU
		if end > len(payload) {
			end = len(payload)
		}

		if err := c.sendChunk(payload[off:end]); err != nil {
			return err
		}

		off = end
	}

	return nil
}

func (c *TCPConn) sendChunk(chunk []byte) liberr.Error {
	for attempt := 0; ; attempt++ {
		_, err := c.conn.Write(chunk)
		if err == nil {
			return nil
		}

		ne, ok := err.(net.Error)
		if !ok || !ne.Temporary() || attempt >= c.cfg.RetryAttempts {
			return ErrorSendFailed.Error(err)
		}

		time.Sleep(waitForAttempt(c.retry, attempt))
	}
}

// Read blocks for up to cfg.ReadTimeout waiting for available bytes. It
// returns a nil slice (not an error) on timeout.
func (c *TCPConn) Read() ([]byte, liberr.Error) {
	buf := make([]byte, c.cfg.MTU)

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		return nil, ErrorReadTimeout.Error(err)
	}

	n, err := c.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, ErrorClosed.Error(err)
	}

	return buf[:n], nil
}
