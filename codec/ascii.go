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

package codec

import (
	"encoding/json"
	"strconv"

	liberr "github.com/sabouaram/d2dcn/errors"
)

// EncodeASCII renders v (expected to satisfy t) as the wire form used by the
// info plane: a plain token for scalars, a JSON array for arrays.
func EncodeASCII(v interface{}, t ValueType) (string, liberr.Error) {
	if t.isArray() {
		b, err := json.Marshal(v)
		if err != nil {
			return "", ErrorTypeMismatch.Error(err)
		}
		return string(b), nil
	}

	switch t {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return "", ErrorTypeMismatch.Error(nil)
		}
		if b {
			return "1", nil
		}
		return "0", nil
	case TypeInt:
		switch n := v.(type) {
		case int64:
			return strconv.FormatInt(n, 10), nil
		case int:
			return strconv.FormatInt(int64(n), 10), nil
		case int32:
			return strconv.FormatInt(int64(n), 10), nil
		default:
			return "", ErrorTypeMismatch.Error(nil)
		}
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'g', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(n), 'g', -1, 64), nil
		default:
			return "", ErrorTypeMismatch.Error(nil)
		}
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return "", ErrorTypeMismatch.Error(nil)
		}
		return s, nil
	default:
		return "", ErrorUnknownType.Error(nil)
	}
}

// DecodeASCII parses s as a value of type t, reversing EncodeASCII.
func DecodeASCII(s string, t ValueType) (interface{}, liberr.Error) {
	switch t {
	case TypeBool:
		return s == "1", nil
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, ErrorDecodeFailed.Error(err)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, ErrorDecodeFailed.Error(err)
		}
		return f, nil
	case TypeString:
		return s, nil
	case TypeBoolArray:
		var out []bool
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, ErrorDecodeFailed.Error(err)
		}
		return out, nil
	case TypeIntArray:
		var out []int64
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, ErrorDecodeFailed.Error(err)
		}
		return out, nil
	case TypeFloatArray:
		var out []float64
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, ErrorDecodeFailed.Error(err)
		}
		return out, nil
	case TypeStringArray:
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, ErrorDecodeFailed.Error(err)
		}
		return out, nil
	default:
		return nil, ErrorUnknownType.Error(nil)
	}
}
