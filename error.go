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
	"errors"
	"fmt"
)

// A MalformedFieldError reports a packet field that couldn't be converted
// between its native and wire forms: on the receive path, text that isn't
// valid structured text, and on the send path, a value the structured-text
// encoder rejects. It carries the packet type and the wire name of the field.
//
// Normalization stops at the failing field. Fields visited earlier keep their
// new form, and the failing field and every field after it are untouched.
type MalformedFieldError struct {
	packetType PacketType
	field      string
	err        error
}

func newMalformedFieldError(t PacketType, field string, underlying error) *MalformedFieldError {
	return &MalformedFieldError{packetType: t, field: field, err: underlying}
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("moleculer: malformed %s.%s: %v", e.packetType, e.field, e.err)
}

// Unwrap implements errors.Wrapper, which allows errors.Is and errors.As
// access to the underlying error.
func (e *MalformedFieldError) Unwrap() error {
	return e.err
}

// PacketType returns the type of the packet holding the malformed field.
func (e *MalformedFieldError) PacketType() PacketType {
	return e.packetType
}

// Field returns the wire name of the malformed field, such as "params".
func (e *MalformedFieldError) Field() string {
	return e.field
}

// An UnknownPacketTypeError reports a packet tag outside the declared set of
// packet types. Unknown tags are always rejected, never passed through.
type UnknownPacketTypeError struct {
	name string
}

func (e *UnknownPacketTypeError) Error() string {
	return fmt.Sprintf("moleculer: unknown packet type %q", e.name)
}

// Type returns the rejected tag.
func (e *UnknownPacketTypeError) Type() string {
	return e.name
}

// IsMalformedField reports whether err is or wraps a *MalformedFieldError.
func IsMalformedField(err error) bool {
	_, ok := asMalformedFieldError(err)
	return ok
}

func asMalformedFieldError(err error) (*MalformedFieldError, bool) {
	var fieldErr *MalformedFieldError
	ok := errors.As(err, &fieldErr)
	return fieldErr, ok
}
