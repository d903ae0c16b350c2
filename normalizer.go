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
	"errors"
	"fmt"
	"reflect"
)

var errNilPacket = errors.New("moleculer: nil packet")

// fieldRule describes how one structured packet field is normalized.
type fieldRule struct {
	name     string // wire name
	required bool   // materialized as an empty map when absent
	binary   bool   // raw bytes travel natively on binary-capable codecs
	buffer   bool   // buffer-shaped values are promoted to bytes on receive
}

var (
	ruleServices = fieldRule{name: "services"}
	ruleConfig   = fieldRule{name: "config"}
	ruleEvent    = fieldRule{name: "data", buffer: true}
	ruleParams   = fieldRule{name: "params", binary: true, buffer: true}
	ruleMeta     = fieldRule{name: "meta", required: true}
	ruleData     = fieldRule{name: "data", binary: true, buffer: true}
	ruleError    = fieldRule{name: "error"}
	ruleOnline   = fieldRule{name: "online"}
	ruleOffline  = fieldRule{name: "offline"}
)

type fieldSlot struct {
	field *Field
	rule  fieldRule
}

// customFields returns the structured fields of a packet in the fixed order
// they're normalized in.
func customFields(p Packet) ([]fieldSlot, error) {
	if isNilPacket(p) {
		return nil, errNilPacket
	}
	switch p := p.(type) {
	case *Info:
		return []fieldSlot{{&p.Services, ruleServices}, {&p.Config, ruleConfig}}, nil
	case *Event:
		return []fieldSlot{{&p.Data, ruleEvent}}, nil
	case *Request:
		return []fieldSlot{{&p.Params, ruleParams}, {&p.Meta, ruleMeta}}, nil
	case *Response:
		return []fieldSlot{{&p.Meta, ruleMeta}, {&p.Data, ruleData}, {&p.Error, ruleError}}, nil
	case *GossipRequest:
		return []fieldSlot{{&p.Online, ruleOnline}, {&p.Offline, ruleOffline}}, nil
	case *GossipResponse:
		return []fieldSlot{{&p.Online, ruleOnline}, {&p.Offline, ruleOffline}}, nil
	case *Discover, *Disconnect, *Heartbeat, *Ping, *Pong, *GossipHello:
		return nil, nil
	}
	return nil, unknownPacket(p)
}

// StructuredFields returns the wire names of the structured fields of packets
// of type t, in the order they're normalized. Types without structured fields,
// and unknown types, return nil.
func StructuredFields(t PacketType) []string {
	p, err := NewPacket(t)
	if err != nil {
		return nil
	}
	slots, _ := customFields(p)
	if len(slots) == 0 {
		return nil
	}
	names := make([]string, len(slots))
	for i, slot := range slots {
		names[i] = slot.rule.name
	}
	return names
}

// A Normalizer converts the structured fields of packets to the wire-safe
// forms a backend Codec can carry, and back. It's a small immutable value
// with no other state, so it's safe to use concurrently on independent
// packets.
//
// The per-type rules are:
//
//	INFO        services, config
//	EVENT       data
//	REQ         params (may be raw bytes), meta (always present)
//	RES         meta (always present), data (may be raw bytes), error
//	GOSSIP_REQ  online, offline
//	GOSSIP_RES  online, offline
//
// Other packet types have no structured fields and pass through unchanged.
type Normalizer struct {
	binary bool
}

// NewNormalizer constructs a Normalizer. Set binary if the backend codec
// carries raw byte fields natively; raw params and response data then bypass
// structured text entirely.
func NewNormalizer(binary bool) Normalizer {
	return Normalizer{binary: binary}
}

// SupportsBinary reports whether raw byte payloads are left for the codec to
// carry natively.
func (n Normalizer) SupportsBinary() bool {
	return n.binary
}

// SerializeCustomFields converts the structured fields of p to their wire
// forms in place and returns p. Absent optional fields stay absent, and an
// absent meta becomes an empty map. Raw bytes are left alone when both the
// field and the codec allow it, and otherwise encode as a buffer-shaped
// object (see IsJSONBuffer). Fields already holding wire text are left alone.
//
// If a value can't be encoded, SerializeCustomFields returns a
// *MalformedFieldError and leaves that field and all later ones untouched.
func (n Normalizer) SerializeCustomFields(p Packet) (Packet, error) {
	slots, err := customFields(p)
	if err != nil {
		return p, err
	}
	for _, slot := range slots {
		if err := n.serializeField(p.Type(), slot); err != nil {
			return p, err
		}
	}
	return p, nil
}

// DeserializeCustomFields converts the structured fields of p from their wire
// forms back to native values in place and returns p. Raw bytes are left
// alone, buffer-shaped params and data are promoted back to raw bytes, and an
// absent meta becomes an empty map. Empty text counts as absent.
//
// If a field holds text that isn't valid structured text,
// DeserializeCustomFields returns a *MalformedFieldError naming the packet
// type and field, and leaves that field and all later ones untouched.
func (n Normalizer) DeserializeCustomFields(p Packet) (Packet, error) {
	slots, err := customFields(p)
	if err != nil {
		return p, err
	}
	for _, slot := range slots {
		if err := n.deserializeField(p.Type(), slot); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (n Normalizer) serializeField(t PacketType, slot fieldSlot) error {
	field := *slot.field
	switch field.state {
	case fieldAbsent:
		if slot.rule.required {
			*slot.field = Text("{}")
		}
		return nil
	case fieldText:
		return nil
	case fieldBytes:
		if slot.rule.binary && n.binary {
			return nil
		}
		text, err := encodeText(newJSONBuffer(field.raw))
		if err != nil {
			return newMalformedFieldError(t, slot.rule.name, err)
		}
		*slot.field = Text(text)
		return nil
	}
	text, err := encodeText(field.value)
	if err != nil {
		return newMalformedFieldError(t, slot.rule.name, err)
	}
	*slot.field = Text(text)
	return nil
}

func (n Normalizer) deserializeField(t PacketType, slot fieldSlot) error {
	field := *slot.field
	// Peers using schema-based codecs send empty strings for unset fields.
	if field.state == fieldAbsent || (field.state == fieldText && field.text == "") {
		if slot.rule.required {
			*slot.field = Value(map[string]any{})
		} else {
			*slot.field = Field{}
		}
		return nil
	}
	switch field.state {
	case fieldBytes:
		return nil
	case fieldValue:
		// The codec delivered a structured value directly.
		*slot.field = promote(slot.rule, field.value)
		return nil
	}
	value, err := decodeText(field.text)
	if err != nil {
		return newMalformedFieldError(t, slot.rule.name, err)
	}
	*slot.field = promote(slot.rule, value)
	return nil
}

func promote(rule fieldRule, value any) Field {
	if rule.buffer {
		if raw, ok := ParseBuffer(value); ok {
			return Bytes(raw)
		}
	}
	return Value(value)
}

// encodeText writes v as compact JSON without HTML escaping, matching what
// other runtimes in the cluster produce.
func encodeText(v any) (string, error) {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

func decodeText(text string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, err
	}
	return value, nil
}

// isNilPacket reports whether p is nil or a typed nil pointer.
func isNilPacket(p Packet) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// unknownPacket reports a Packet implementation from outside this package.
func unknownPacket(p Packet) *UnknownPacketTypeError {
	return &UnknownPacketTypeError{name: fmt.Sprintf("%T", p)}
}
