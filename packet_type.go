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

import "fmt"

// A PacketType identifies the kind of packet exchanged between nodes. The set
// of packet types is closed: tags outside it are rejected with an
// *UnknownPacketTypeError.
type PacketType uint8

const (
	PacketUnknown        PacketType = 0  // zero value, never valid on the wire
	PacketInfo           PacketType = 1  // node and service discovery info
	PacketEvent          PacketType = 2  // emitted or broadcast event
	PacketRequest        PacketType = 3  // action call
	PacketResponse       PacketType = 4  // action result or error
	PacketGossipRequest  PacketType = 5  // gossip digest request
	PacketGossipResponse PacketType = 6  // gossip digest response
	PacketDiscover       PacketType = 7  // ask peers for INFO
	PacketDisconnect     PacketType = 8  // node is leaving
	PacketHeartbeat      PacketType = 9  // liveness and load
	PacketPing           PacketType = 10 // latency probe
	PacketPong           PacketType = 11 // latency probe reply
	PacketGossipHello    PacketType = 12 // gossip bootstrap

	minPacketType PacketType = PacketInfo
	maxPacketType PacketType = PacketGossipHello
)

var strToPacketType = map[string]PacketType{
	"INFO":         PacketInfo,
	"EVENT":        PacketEvent,
	"REQ":          PacketRequest,
	"RES":          PacketResponse,
	"GOSSIP_REQ":   PacketGossipRequest,
	"GOSSIP_RES":   PacketGossipResponse,
	"DISCOVER":     PacketDiscover,
	"DISCONNECT":   PacketDisconnect,
	"HEARTBEAT":    PacketHeartbeat,
	"PING":         PacketPing,
	"PONG":         PacketPong,
	"GOSSIP_HELLO": PacketGossipHello,
}

// ParsePacketType returns the PacketType for a wire name such as "REQ" or
// "GOSSIP_RES".
func ParsePacketType(name string) (PacketType, error) {
	if t, ok := strToPacketType[name]; ok {
		return t, nil
	}
	return PacketUnknown, &UnknownPacketTypeError{name: name}
}

// MarshalText implements encoding.TextMarshaler. Packet types are marshaled
// as their wire names.
func (t PacketType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("invalid packet type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PacketType) UnmarshalText(b []byte) error {
	parsed, err := ParsePacketType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t PacketType) valid() bool {
	return t >= minPacketType && t <= maxPacketType
}

func (t PacketType) String() string {
	switch t {
	case PacketInfo:
		return "INFO"
	case PacketEvent:
		return "EVENT"
	case PacketRequest:
		return "REQ"
	case PacketResponse:
		return "RES"
	case PacketGossipRequest:
		return "GOSSIP_REQ"
	case PacketGossipResponse:
		return "GOSSIP_RES"
	case PacketDiscover:
		return "DISCOVER"
	case PacketDisconnect:
		return "DISCONNECT"
	case PacketHeartbeat:
		return "HEARTBEAT"
	case PacketPing:
		return "PING"
	case PacketPong:
		return "PONG"
	case PacketGossipHello:
		return "GOSSIP_HELLO"
	}
	return fmt.Sprintf("PacketType(%d)", uint8(t))
}
