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

// Package cbor provides a CBOR (RFC 8949) backend for moleculer packets. It
// carries raw byte fields natively as CBOR byte strings.
package cbor

import (
	"fmt"
	"reflect"

	fxcbor "github.com/fxamacker/cbor/v2"
	"github.com/hansi90/moleculer"
)

// Name is the codec name used in configuration.
const Name = "cbor"

// Codec marshals packets to and from CBOR maps keyed by wire name, using Core
// Deterministic Encoding so equal packets encode to equal bytes.
type Codec struct {
	encMode fxcbor.EncMode
	decMode fxcbor.DecMode
}

var _ moleculer.BinaryCodec = (*Codec)(nil)

// New constructs a CBOR codec.
func New() *Codec {
	encMode, err := fxcbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}
	decMode, err := fxcbor.DecOptions{
		// Structured values decode into the same map type as JSON text, so
		// they compare equal however they traveled.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cbor: decoder initialization failed: " + err.Error())
	}
	return &Codec{encMode: encMode, decMode: decMode}
}

// Name implements moleculer.Codec.
func (c *Codec) Name() string { return Name }

// SupportsBinary implements moleculer.BinaryCodec.
func (c *Codec) SupportsBinary() bool { return true }

// Marshal implements moleculer.Codec.
func (c *Codec) Marshal(p moleculer.Packet) ([]byte, error) {
	rec, err := moleculer.ToRecord(p)
	if err != nil {
		return nil, err
	}
	data, err := c.encMode.Marshal(map[string]any(rec))
	if err != nil {
		return nil, fmt.Errorf("marshal %s as CBOR: %w", p.Type(), err)
	}
	return data, nil
}

// Unmarshal implements moleculer.Codec.
func (c *Codec) Unmarshal(data []byte, p moleculer.Packet) error {
	var rec map[string]any
	if err := c.decMode.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("unmarshal CBOR into %T: %w", p, err)
	}
	return moleculer.FromRecord(rec, p)
}
