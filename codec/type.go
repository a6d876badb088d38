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

// Package codec implements the closed value-type system shared by the command
// and info planes, along with the ASCII wire encoding used for info values
// and the schema validation used for command arguments and return values.
package codec

import "math"

// ValueType is the closed set of types a command field or info value can have.
type ValueType string

const (
	TypeBool        ValueType = "bool"
	TypeInt         ValueType = "int"
	TypeFloat       ValueType = "float"
	TypeString      ValueType = "string"
	TypeBoolArray   ValueType = "bool_array"
	TypeIntArray    ValueType = "int_array"
	TypeFloatArray  ValueType = "float_array"
	TypeStringArray ValueType = "string_array"

	// TypeArray is encode-only: it is produced by DetectType for an empty
	// slice whose element type cannot be determined, and is never a valid
	// schema declaration.
	TypeArray ValueType = "array"
)

// isArray reports whether t names one of the four array types (including the
// encode-only bare array).
func (t ValueType) isArray() bool {
	switch t {
	case TypeBoolArray, TypeIntArray, TypeFloatArray, TypeStringArray, TypeArray:
		return true
	default:
		return false
	}
}

// Zero returns the zero value for the given type, as used to initialize a
// fresh info writer.
func Zero(t ValueType) interface{} {
	switch t {
	case TypeBool:
		return false
	case TypeInt:
		return int64(0)
	case TypeFloat:
		return float64(0)
	case TypeString:
		return ""
	case TypeBoolArray:
		return []bool{}
	case TypeIntArray:
		return []int64{}
	case TypeFloatArray:
		return []float64{}
	case TypeStringArray:
		return []string{}
	default:
		return []interface{}{}
	}
}

// DetectType returns the ValueType matching the concrete Go type of v. It
// returns TypeArray for an empty slice of interface{} / unknown element type.
func DetectType(v interface{}) (ValueType, bool) {
	switch val := v.(type) {
	case bool:
		return TypeBool, true
	case int, int32, int64:
		return TypeInt, true
	case float32, float64:
		return TypeFloat, true
	case string:
		return TypeString, true
	case []bool:
		return TypeBoolArray, true
	case []int64:
		return TypeIntArray, true
	case []float64:
		return TypeFloatArray, true
	case []string:
		return TypeStringArray, true
	case []interface{}:
		if len(val) == 0 {
			return TypeArray, true
		}
		return detectHeterogeneous(val)
	default:
		return "", false
	}
}

// detectHeterogeneous infers an array type from a []interface{} whose
// elements all share the same underlying scalar type.
func detectHeterogeneous(vals []interface{}) (ValueType, bool) {
	first, ok := DetectType(vals[0])
	if !ok || first.isArray() {
		return "", false
	}

	for _, v := range vals[1:] {
		t, ok := DetectType(v)
		if !ok || t != first {
			return "", false
		}
	}

	switch first {
	case TypeBool:
		return TypeBoolArray, true
	case TypeInt:
		return TypeIntArray, true
	case TypeFloat:
		return TypeFloatArray, true
	case TypeString:
		return TypeStringArray, true
	default:
		return "", false
	}
}

// CheckFieldType reports whether value's detected type satisfies declared.
// An empty array (TypeArray) matches any declared array type. A whole-valued
// float also satisfies a TypeInt/TypeIntArray declaration: encoding/json
// decodes every JSON number into a float64 (map[string]interface{} has no
// other numeric representation), so an int-schema argument or return value
// arriving over the wire is never anything but a float64 in practice.
func CheckFieldType(value interface{}, declared ValueType) bool {
	actual, ok := DetectType(value)
	if !ok {
		return false
	}

	if actual == declared {
		return true
	}

	if actual == TypeArray && declared.isArray() {
		return true
	}

	if declared == TypeInt && actual == TypeFloat {
		f, ok := scalarFloat(value)
		return ok && isWholeFloat(f)
	}

	if declared == TypeIntArray && actual == TypeFloatArray {
		return isWholeFloatSlice(value)
	}

	return false
}

// scalarFloat extracts a float64 from a float32 or float64 value.
func scalarFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

func isWholeFloat(f float64) bool {
	return f == math.Trunc(f)
}

// isWholeFloatSlice reports whether every element of a []float64 or
// []interface{} of float64s is whole-valued.
func isWholeFloatSlice(value interface{}) bool {
	switch vals := value.(type) {
	case []float64:
		for _, f := range vals {
			if !isWholeFloat(f) {
				return false
			}
		}
		return true
	case []interface{}:
		for _, v := range vals {
			f, ok := scalarFloat(v)
			if !ok || !isWholeFloat(f) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
