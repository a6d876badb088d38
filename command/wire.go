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

// Package command implements the server-side command listener and the
// client-side command proxy: JSON request/response framing over UDP or TCP,
// schema validation, and the enable/disable lifecycle.
package command

// Protocol names the transport a command descriptor advertises.
type Protocol string

const (
	ProtocolJSONUDP Protocol = "json-udp"
	ProtocolJSONTCP Protocol = "json-tcp"
)

// Wire error strings, the closed vocabulary a call response carries. These
// never change shape and are distinct from the package's own CodeError
// taxonomy, which never reaches the wire.
const (
	WireInvalidInput     = "Invalid input"
	WireInvalidOutput    = "Invalid output"
	WireCommandError     = "Command error"
	WireConnectionError  = "Connection error"
	WireTimeoutError     = "Timeout error"
	WireExceptionRaised  = "Exception raised"
	WireCommandNotEnable = "Command not enable"
	WireIncompleteResp   = "Incomplete response"
	WireInvalidResponse  = "Invalid response"
)

// Callback is the user-supplied handler invoked for a validated request. It
// must return a map matching the command's output schema.
type Callback func(args map[string]interface{}) (map[string]interface{}, error)
