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

// Package protobuf provides a schema-based protocol buffer backend for
// moleculer packets.
//
// Every packet type has a fixed message schema of scalar, string, and bytes
// fields; nothing in it can hold a nested structure. This is the kind of
// backend the moleculer.Normalizer exists for: services, meta, and the other
// structured fields travel as strings of structured text. Raw params and
// response data travel in dedicated bytes fields.
package protobuf

import (
	"errors"
	"fmt"
	"math"

	"github.com/hansi90/moleculer"
	"google.golang.org/protobuf/encoding/protowire"
)

// Name is the codec name used in configuration.
const Name = "protobuf"

var errNotNormalized = errors.New("structured value isn't normalized")

// Codec marshals packets to and from the protocol buffer binary encoding.
type Codec struct{}

var _ moleculer.BinaryCodec = (*Codec)(nil)

// New constructs a protobuf codec.
func New() *Codec {
	return &Codec{}
}

// Name implements moleculer.Codec.
func (c *Codec) Name() string { return Name }

// SupportsBinary implements moleculer.BinaryCodec.
func (c *Codec) SupportsBinary() bool { return true }

// Marshal implements moleculer.Codec. Fields are written in schema order, so
// equal packets encode to equal bytes.
func (c *Codec) Marshal(p moleculer.Packet) ([]byte, error) {
	rec, err := moleculer.ToRecord(p)
	if err != nil {
		return nil, err
	}
	s, ok := schemas[p.Type()]
	if !ok {
		return nil, fmt.Errorf("no protobuf schema for %s", p.Type())
	}
	var b []byte
	for _, def := range s.fields {
		value, ok := rec[def.name]
		if !ok || value == nil {
			continue
		}
		b, err = appendField(b, def, value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s.%s as protobuf: %w", p.Type(), def.name, err)
		}
	}
	return b, nil
}

// Unmarshal implements moleculer.Codec. Unknown field numbers are skipped.
func (c *Codec) Unmarshal(data []byte, p moleculer.Packet) error {
	if p == nil {
		return errors.New("unmarshal protobuf into nil packet")
	}
	s, ok := schemas[p.Type()]
	if !ok {
		return fmt.Errorf("no protobuf schema for %s", p.Type())
	}
	rec, err := s.decode(data)
	if err != nil {
		return fmt.Errorf("unmarshal protobuf into %T: %w", p, err)
	}
	return moleculer.FromRecord(rec, p)
}

func appendField(b []byte, def fieldDef, value any) ([]byte, error) {
	switch def.kind {
	case kindString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		if s == "" {
			return b, nil
		}
		b = protowire.AppendTag(b, def.num, protowire.BytesType)
		return protowire.AppendString(b, s), nil
	case kindBool:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", value)
		}
		if !v {
			return b, nil
		}
		b = protowire.AppendTag(b, def.num, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeBool(v)), nil
	case kindDouble:
		v, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("expected float64, got %T", value)
		}
		if v == 0 {
			return b, nil
		}
		b = protowire.AppendTag(b, def.num, protowire.Fixed64Type)
		return protowire.AppendFixed64(b, math.Float64bits(v)), nil
	case kindInt64:
		v, ok := value.(int64)
		if !ok {
			return nil, fmt.Errorf("expected int64, got %T", value)
		}
		if v == 0 {
			return b, nil
		}
		b = protowire.AppendTag(b, def.num, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(v)), nil
	case kindInt32:
		v, ok := value.(int32)
		if !ok {
			return nil, fmt.Errorf("expected int32, got %T", value)
		}
		if v == 0 {
			return b, nil
		}
		b = protowire.AppendTag(b, def.num, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(int64(v))), nil
	case kindStrings:
		values, ok := value.([]string)
		if !ok {
			return nil, fmt.Errorf("expected []string, got %T", value)
		}
		for _, s := range values {
			b = protowire.AppendTag(b, def.num, protowire.BytesType)
			b = protowire.AppendString(b, s)
		}
		return b, nil
	case kindText, kindDual:
		switch v := value.(type) {
		case string:
			// Present text fields are written even when empty; presence
			// is meaningful for them.
			b = protowire.AppendTag(b, def.num, protowire.BytesType)
			return protowire.AppendString(b, v), nil
		case []byte:
			if def.kind != kindDual {
				return nil, errors.New("field can't carry raw bytes")
			}
			b = protowire.AppendTag(b, def.bin, protowire.BytesType)
			return protowire.AppendBytes(b, v), nil
		}
		return nil, errNotNormalized
	}
	return nil, fmt.Errorf("unsupported field kind %d", def.kind)
}

func (s *schema) decode(b []byte) (moleculer.Record, error) {
	rec := moleculer.Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		def, isBin, ok := s.lookup(num)
		if !ok {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		if want := def.wireType(); typ != want {
			return nil, fmt.Errorf("field %q: wire type %d, expected %d", def.name, typ, want)
		}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			switch def.kind {
			case kindBool:
				rec[def.name] = protowire.DecodeBool(v)
			case kindInt32:
				rec[def.name] = int32(v)
			default:
				rec[def.name] = int64(v)
			}
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			rec[def.name] = math.Float64frombits(v)
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			switch {
			case isBin:
				raw := make([]byte, len(v))
				copy(raw, v)
				rec[def.name] = raw
			case def.kind == kindStrings:
				values, _ := rec[def.name].([]string)
				rec[def.name] = append(values, string(v))
			default:
				rec[def.name] = string(v)
			}
		}
	}
	return rec, nil
}
