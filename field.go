// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package moleculer

import (
	"bytes"
	"fmt"
	"reflect"
)

type fieldState uint8

const (
	fieldAbsent fieldState = iota
	fieldValue
	fieldBytes
	fieldText
)

// A Field holds one normalized packet field. At any moment it's in exactly one
// state: absent (the zero Field), a native structured value, a raw binary
// payload, or structured wire text. Values and bytes are native forms; text
// and bytes are wire forms. The Normalizer performs the transitions between
// them.
//
// Native structured values use the structured-text data model:
// map[string]any, []any, string, float64, bool, and nil. Values built from
// other Go types are encoded faithfully, but decode back into that model.
type Field struct {
	state fieldState
	value any
	raw   []byte
	text  string
}

// Value constructs a Field holding a native structured value. Value(nil) is a
// present field holding null, not an absent one.
func Value(v any) Field {
	return Field{state: fieldValue, value: v}
}

// Bytes constructs a Field holding a raw binary payload. The slice isn't
// copied.
func Bytes(b []byte) Field {
	if b == nil {
		b = []byte{}
	}
	return Field{state: fieldBytes, raw: b}
}

// Text constructs a Field holding structured wire text.
func Text(s string) Field {
	return Field{state: fieldText, text: s}
}

// IsAbsent reports whether the field is absent.
func (f Field) IsAbsent() bool { return f.state == fieldAbsent }

// IsValue reports whether the field holds a native structured value.
func (f Field) IsValue() bool { return f.state == fieldValue }

// IsBytes reports whether the field holds a raw binary payload.
func (f Field) IsBytes() bool { return f.state == fieldBytes }

// IsText reports whether the field holds structured wire text.
func (f Field) IsText() bool { return f.state == fieldText }

// Value returns the native structured value, or nil if the field isn't in the
// value state.
func (f Field) Value() any {
	return f.value
}

// Bytes returns the raw binary payload, or nil if the field isn't in the
// bytes state.
func (f Field) Bytes() []byte {
	return f.raw
}

// Text returns the wire text, or "" if the field isn't in the text state.
func (f Field) Text() string {
	return f.text
}

// Equal reports whether two fields are in the same state with equal contents.
// Structured values are compared with reflect.DeepEqual.
func (f Field) Equal(other Field) bool {
	if f.state != other.state {
		return false
	}
	switch f.state {
	case fieldValue:
		return reflect.DeepEqual(f.value, other.value)
	case fieldBytes:
		return bytes.Equal(f.raw, other.raw)
	case fieldText:
		return f.text == other.text
	}
	return true
}

func (f Field) String() string {
	switch f.state {
	case fieldValue:
		return fmt.Sprintf("Value(%v)", f.value)
	case fieldBytes:
		return fmt.Sprintf("Bytes(%x)", f.raw)
	case fieldText:
		return fmt.Sprintf("Text(%q)", f.text)
	}
	return "Absent"
}

// wire returns the field as a self-describing record value: string for text,
// []byte for bytes, the value itself otherwise. The bool is false when the
// field is absent.
func (f Field) wire() (any, bool) {
	switch f.state {
	case fieldValue:
		return f.value, true
	case fieldBytes:
		return f.raw, true
	case fieldText:
		return f.text, true
	}
	return nil, false
}

func fieldFromWire(v any) Field {
	switch v := v.(type) {
	case string:
		return Text(v)
	case []byte:
		return Bytes(v)
	}
	return Value(v)
}
