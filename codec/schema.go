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

import liberr "github.com/sabouaram/d2dcn/errors"

// Field declares one argument or return field of a command: its value type
// and whether it may be absent from a given call.
type Field struct {
	Type     ValueType `json:"type"`
	Optional bool      `json:"optional"`
}

// Schema maps a field name to its declaration.
type Schema map[string]Field

// Validate reports whether every declared field names a known, non-array-only
// bare type; TypeArray itself is never a legal declaration.
func (s Schema) Validate() liberr.Error {
	for name, f := range s {
		if f.Type == TypeArray {
			return ErrorSchemaInvalid.Errorf(name)
		}

		switch f.Type {
		case TypeBool, TypeInt, TypeFloat, TypeString,
			TypeBoolArray, TypeIntArray, TypeFloatArray, TypeStringArray:
		default:
			return ErrorSchemaInvalid.Errorf(name)
		}
	}

	return nil
}

// CheckFields validates actual against schema: every actual field must exist
// in schema and typecheck, and every non-optional schema field must be
// present in actual.
func CheckFields(actual map[string]interface{}, schema Schema) liberr.Error {
	for name, value := range actual {
		f, ok := schema[name]
		if !ok {
			return ErrorSchemaUnexpectedField.Errorf(name)
		}

		if !CheckFieldType(value, f.Type) {
			return ErrorTypeMismatch.Errorf(name)
		}
	}

	for name, f := range schema {
		if f.Optional {
			continue
		}
		if _, ok := actual[name]; !ok {
			return ErrorSchemaMissingField.Errorf(name)
		}
	}

	return nil
}
