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

package protobuf

import (
	"github.com/hansi90/moleculer"
	"google.golang.org/protobuf/encoding/protowire"
)

type kind uint8

const (
	kindString  kind = iota + 1 // string
	kindBool                    // bool
	kindDouble                  // double
	kindInt64                   // int64
	kindInt32                   // int32
	kindStrings                 // repeated string
	kindText                    // normalized field, string
	kindDual                    // normalized field, string or bytes
)

// fieldDef maps a record key to a message field. Dual fields carry text in
// num and raw bytes in bin.
type fieldDef struct {
	name string
	num  protowire.Number
	kind kind
	bin  protowire.Number
}

func (d fieldDef) wireType() protowire.Type {
	switch d.kind {
	case kindBool, kindInt64, kindInt32:
		return protowire.VarintType
	case kindDouble:
		return protowire.Fixed64Type
	}
	return protowire.BytesType
}

type schema struct {
	fields []fieldDef
}

func (s *schema) lookup(num protowire.Number) (def fieldDef, isBin bool, ok bool) {
	for _, d := range s.fields {
		if d.num == num {
			return d, false, true
		}
		if d.kind == kindDual && d.bin == num {
			return d, true, true
		}
	}
	return fieldDef{}, false, false
}

func newSchema(fields ...fieldDef) *schema {
	header := []fieldDef{
		{name: "ver", num: 1, kind: kindString},
		{name: "sender", num: 2, kind: kindString},
	}
	return &schema{fields: append(header, fields...)}
}

// Field numbers 1 and 2 are the header in every message.
var schemas = map[moleculer.PacketType]*schema{
	moleculer.PacketInfo: newSchema(
		fieldDef{name: "services", num: 3, kind: kindText},
		fieldDef{name: "config", num: 4, kind: kindText},
		fieldDef{name: "ipList", num: 5, kind: kindStrings},
		fieldDef{name: "hostname", num: 6, kind: kindString},
		fieldDef{name: "instanceID", num: 7, kind: kindString},
		fieldDef{name: "seq", num: 8, kind: kindInt64},
	),
	moleculer.PacketEvent: newSchema(
		fieldDef{name: "id", num: 3, kind: kindString},
		fieldDef{name: "event", num: 4, kind: kindString},
		fieldDef{name: "data", num: 5, kind: kindText},
		fieldDef{name: "groups", num: 6, kind: kindStrings},
		fieldDef{name: "broadcast", num: 7, kind: kindBool},
	),
	moleculer.PacketRequest: newSchema(
		fieldDef{name: "id", num: 3, kind: kindString},
		fieldDef{name: "action", num: 4, kind: kindString},
		fieldDef{name: "params", num: 5, kind: kindDual, bin: 15},
		fieldDef{name: "meta", num: 6, kind: kindText},
		fieldDef{name: "timeout", num: 7, kind: kindDouble},
		fieldDef{name: "level", num: 8, kind: kindInt32},
		fieldDef{name: "tracing", num: 9, kind: kindBool},
		fieldDef{name: "parentID", num: 10, kind: kindString},
		fieldDef{name: "requestID", num: 11, kind: kindString},
		fieldDef{name: "caller", num: 12, kind: kindString},
		fieldDef{name: "stream", num: 13, kind: kindBool},
		fieldDef{name: "seq", num: 14, kind: kindInt64},
	),
	moleculer.PacketResponse: newSchema(
		fieldDef{name: "id", num: 3, kind: kindString},
		fieldDef{name: "success", num: 4, kind: kindBool},
		fieldDef{name: "data", num: 5, kind: kindDual, bin: 9},
		fieldDef{name: "error", num: 6, kind: kindText},
		fieldDef{name: "meta", num: 7, kind: kindText},
		fieldDef{name: "stream", num: 8, kind: kindBool},
		fieldDef{name: "seq", num: 10, kind: kindInt64},
	),
	moleculer.PacketGossipRequest: newSchema(
		fieldDef{name: "online", num: 3, kind: kindText},
		fieldDef{name: "offline", num: 4, kind: kindText},
	),
	moleculer.PacketGossipResponse: newSchema(
		fieldDef{name: "online", num: 3, kind: kindText},
		fieldDef{name: "offline", num: 4, kind: kindText},
	),
	moleculer.PacketDiscover:   newSchema(),
	moleculer.PacketDisconnect: newSchema(),
	moleculer.PacketHeartbeat: newSchema(
		fieldDef{name: "cpu", num: 3, kind: kindDouble},
	),
	moleculer.PacketPing: newSchema(
		fieldDef{name: "time", num: 3, kind: kindInt64},
		fieldDef{name: "id", num: 4, kind: kindString},
	),
	moleculer.PacketPong: newSchema(
		fieldDef{name: "time", num: 3, kind: kindInt64},
		fieldDef{name: "arrived", num: 4, kind: kindInt64},
		fieldDef{name: "id", num: 5, kind: kindString},
	),
	moleculer.PacketGossipHello: newSchema(
		fieldDef{name: "host", num: 3, kind: kindString},
		fieldDef{name: "port", num: 4, kind: kindInt32},
	),
}
