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
	"encoding/json"
	"fmt"
)

// CodecNameJSON is the name of the text JSON codec.
const CodecNameJSON = "json"

// A Codec is a backend wire format. It encodes packets whose structured fields
// have already been normalized, so it only needs to carry strings, raw bytes,
// and plain scalars. Most codecs work through ToRecord and FromRecord.
//
// Implementations must be safe for concurrent use.
type Codec interface {
	Name() string
	Marshal(Packet) ([]byte, error)
	Unmarshal([]byte, Packet) error
}

// A BinaryCodec is a Codec that may carry raw byte fields natively.
// Serializers query SupportsBinary once, when they're constructed. Codecs that
// don't implement BinaryCodec are treated as text-only.
type BinaryCodec interface {
	Codec

	SupportsBinary() bool
}

// JSONCodec encodes packets as text JSON objects. It can't carry raw bytes
// natively: a raw payload it's handed anyway is written in its buffer shape
// (see BufferValue), which the Normalizer promotes back to bytes on receive.
type JSONCodec struct{}

var _ Codec = (*JSONCodec)(nil)

// NewJSONCodec constructs a JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Name implements Codec.
func (c *JSONCodec) Name() string { return CodecNameJSON }

// Marshal implements Codec.
func (c *JSONCodec) Marshal(p Packet) ([]byte, error) {
	rec, err := ToRecord(p)
	if err != nil {
		return nil, err
	}
	for key, value := range rec {
		if raw, ok := value.([]byte); ok {
			rec[key] = newJSONBuffer(raw)
		}
	}
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(rec); err != nil {
		return nil, fmt.Errorf("marshal %s as JSON: %w", p.Type(), err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Unmarshal implements Codec.
func (c *JSONCodec) Unmarshal(data []byte, p Packet) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("unmarshal JSON into %T: %w", p, err)
	}
	return FromRecord(rec, p)
}
