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

// Package uid builds and parses the endpoint identity paths used to publish
// and look up commands and info variables in the directory:
//
//	d2dcn/<mac>/<service>/<mode>/<category>/<name>
package uid

import (
	"fmt"
	"regexp"
	"strings"

	liberr "github.com/sabouaram/d2dcn/errors"
)

// Prefix is the fixed literal leading every identity path.
const Prefix = "d2dcn"

// Mode distinguishes a command endpoint from an info endpoint.
type Mode string

const (
	ModeCommand Mode = "command"
	ModeInfo    Mode = "info"
)

func (m Mode) valid() bool {
	return m == ModeCommand || m == ModeInfo
}

// Info is the set of fields extracted from a parsed identity path.
type Info struct {
	Mac      string
	Service  string
	Mode     Mode
	Category string
	Name     string
}

// sanitize replaces any path separator embedded in a component so the
// resulting path always has the expected segment count.
func sanitize(s string) string {
	return strings.ReplaceAll(s, "/", "-")
}

// Create builds the strict identity path for a fully specified endpoint.
// Every component must be non-empty and mode must be one of ModeCommand
// or ModeInfo.
func Create(mac, service, category string, mode Mode, name string) (string, liberr.Error) {
	if mac == "" || service == "" || category == "" || name == "" {
		return "", ErrorEmptyComponent.Error(nil)
	}

	if !mode.valid() {
		return "", ErrorInvalidMode.Error(nil)
	}

	return fmt.Sprintf("%s/%s/%s/%s/%s/%s",
		Prefix,
		sanitize(mac),
		sanitize(service),
		string(mode),
		sanitize(category),
		sanitize(name),
	), nil
}

// CreateRegexPath builds a query pattern over the directory: any empty
// component becomes a wildcard that matches any value in that segment.
func CreateRegexPath(mac, service, category string, mode Mode, name string) (*regexp.Regexp, liberr.Error) {
	segment := func(s string) string {
		if s == "" {
			return `[^/]*`
		}
		return regexp.QuoteMeta(sanitize(s))
	}

	modeSegment := `(?:command|info)`
	if mode.valid() {
		modeSegment = string(mode)
	}

	pattern := fmt.Sprintf("^%s/%s/%s/%s/%s/%s$",
		regexp.QuoteMeta(Prefix),
		segment(mac),
		segment(service),
		modeSegment,
		segment(category),
		segment(name),
	)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ErrorInvalidPrefix.Error(err)
	}

	return re, nil
}

// Extract splits a path into its structured fields, validating the fixed
// prefix and the segment count.
func Extract(path string) (Info, liberr.Error) {
	parts := strings.Split(path, "/")

	if len(parts) != 6 {
		return Info{}, ErrorInvalidSegmentCount.Error(nil)
	}

	if parts[0] != Prefix {
		return Info{}, ErrorInvalidPrefix.Error(nil)
	}

	mode := Mode(parts[3])
	if !mode.valid() {
		return Info{}, ErrorInvalidMode.Error(nil)
	}

	return Info{
		Mac:      parts[1],
		Service:  parts[2],
		Mode:     mode,
		Category: parts[4],
		Name:     parts[5],
	}, nil
}
