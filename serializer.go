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
	"fmt"

	"github.com/rs/zerolog"
)

// A Serializer converts packets to wire bytes and back by composing a
// Normalizer with a backend Codec. On send it normalizes the packet's
// structured fields and then encodes; on receive it decodes and then restores
// the structured fields.
//
// Serializers are immutable after construction and safe for concurrent use.
type Serializer struct {
	codec      Codec
	normalizer Normalizer
	logger     zerolog.Logger
}

// NewSerializer constructs a Serializer for a codec. Whether raw bytes travel
// natively is decided here, from the codec's BinaryCodec implementation or a
// WithBinaryFields option, and never changes afterwards. The codec must not be
// nil.
func NewSerializer(codec Codec, options ...SerializerOption) *Serializer {
	if codec == nil {
		panic("moleculer: NewSerializer called with a nil codec")
	}
	cfg := serializerConfig{Logger: zerolog.Nop()}
	for _, opt := range options {
		opt.applyToSerializer(&cfg)
	}
	binary := cfg.Binary
	if !cfg.OverrideBinary {
		if binaryCodec, ok := codec.(BinaryCodec); ok {
			binary = binaryCodec.SupportsBinary()
		}
	}
	return &Serializer{
		codec:      codec,
		normalizer: NewNormalizer(binary),
		logger:     cfg.Logger.With().Str("codec", codec.Name()).Logger(),
	}
}

// Codec returns the backend codec.
func (s *Serializer) Codec() Codec {
	return s.codec
}

// Binary reports whether raw byte payloads are carried natively.
func (s *Serializer) Binary() bool {
	return s.normalizer.SupportsBinary()
}

// Serialize normalizes p and encodes it. The packet is consumed: its
// structured fields are left in their wire forms.
func (s *Serializer) Serialize(p Packet) ([]byte, error) {
	if _, err := s.normalizer.SerializeCustomFields(p); err != nil {
		s.logFailure("serialize", p, err)
		return nil, err
	}
	data, err := s.codec.Marshal(p)
	if err != nil {
		s.logFailure("marshal", p, err)
		return nil, fmt.Errorf("moleculer: %s codec: %w", s.codec.Name(), err)
	}
	return data, nil
}

// Deserialize decodes data as a packet of type t and restores its structured
// fields.
func (s *Serializer) Deserialize(t PacketType, data []byte) (Packet, error) {
	p, err := NewPacket(t)
	if err != nil {
		return nil, err
	}
	if err := s.codec.Unmarshal(data, p); err != nil {
		s.logFailure("unmarshal", p, err)
		return nil, fmt.Errorf("moleculer: %s codec: %w", s.codec.Name(), err)
	}
	if _, err := s.normalizer.DeserializeCustomFields(p); err != nil {
		s.logFailure("deserialize", p, err)
		return nil, err
	}
	return p, nil
}

func (s *Serializer) logFailure(op string, p Packet, err error) {
	event := s.logger.Debug().Err(err).Str("op", op)
	if !isNilPacket(p) {
		event = event.Stringer("packet", p.Type())
	}
	if fieldErr, ok := asMalformedFieldError(err); ok {
		event = event.Str("field", fieldErr.Field())
	}
	event.Msg("packet serialization failed")
}
