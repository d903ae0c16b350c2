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

// Package msgpack provides a MessagePack backend for moleculer packets. It
// carries raw byte fields natively as MessagePack bin values.
package msgpack

import (
	"bytes"
	"fmt"

	"github.com/hansi90/moleculer"
	msgpackv5 "github.com/vmihailenco/msgpack/v5"
)

// Name is the codec name used in configuration.
const Name = "msgpack"

// Codec marshals packets to and from MessagePack maps keyed by wire name.
type Codec struct{}

var _ moleculer.BinaryCodec = (*Codec)(nil)

// New constructs a MessagePack codec.
func New() *Codec {
	return &Codec{}
}

// Name implements moleculer.Codec.
func (c *Codec) Name() string { return Name }

// SupportsBinary implements moleculer.BinaryCodec.
func (c *Codec) SupportsBinary() bool { return true }

// Marshal implements moleculer.Codec. Map keys are sorted, so equal packets
// encode to equal bytes.
func (c *Codec) Marshal(p moleculer.Packet) ([]byte, error) {
	rec, err := moleculer.ToRecord(p)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	encoder := msgpackv5.NewEncoder(buf)
	encoder.SetSortMapKeys(true)
	if err := encoder.Encode(map[string]any(rec)); err != nil {
		return nil, fmt.Errorf("marshal %s as msgpack: %w", p.Type(), err)
	}
	return buf.Bytes(), nil
}

// Unmarshal implements moleculer.Codec.
func (c *Codec) Unmarshal(data []byte, p moleculer.Packet) error {
	var rec map[string]any
	if err := msgpackv5.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("unmarshal msgpack into %T: %w", p, err)
	}
	return moleculer.FromRecord(rec, p)
}
