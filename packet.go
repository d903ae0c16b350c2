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

// A Packet is a typed message exchanged between runtime nodes. The concrete
// packet types in this package are its only supported implementations; a
// foreign type that embeds Header to satisfy the interface is rejected by the
// Normalizer with an *UnknownPacketTypeError.
type Packet interface {
	Type() PacketType
	PacketHeader() *Header

	isPacket()
}

// Header carries the fields every packet has.
type Header struct {
	Ver    string // protocol version
	Sender string // node ID of the sender
}

// PacketHeader returns the header for in-place modification.
func (h *Header) PacketHeader() *Header { return h }

func (*Header) isPacket() {}

// Info announces a node and the services it hosts.
type Info struct {
	Header

	Services   Field // list of service descriptors
	Config     Field // optional broker configuration map
	IPList     []string
	Hostname   string
	InstanceID string
	Seq        int64
}

// Event carries an emitted or broadcast event.
type Event struct {
	Header

	ID        string
	Event     string
	Data      Field // optional payload
	Groups    []string
	Broadcast bool
}

// Request calls an action on a remote node.
type Request struct {
	Header

	ID        string
	Action    string
	Params    Field // value or raw bytes
	Meta      Field // map, always present on the wire
	Timeout   float64
	Level     int32
	Tracing   bool
	ParentID  string
	RequestID string
	Caller    string
	Stream    bool
	Seq       int64
}

// Response answers a Request.
type Response struct {
	Header

	ID      string
	Success bool
	Data    Field // optional value or raw bytes
	Error   Field // optional error descriptor
	Meta    Field // map, always present on the wire
	Stream  bool
	Seq     int64
}

// GossipRequest carries a gossip digest of known nodes.
type GossipRequest struct {
	Header

	Online  Field
	Offline Field
}

// GossipResponse answers a GossipRequest with the nodes the sender knows
// better.
type GossipResponse struct {
	Header

	Online  Field
	Offline Field
}

// Discover asks peers to send their Info.
type Discover struct {
	Header
}

// Disconnect announces that the sender is leaving.
type Disconnect struct {
	Header
}

// Heartbeat reports liveness and CPU load.
type Heartbeat struct {
	Header

	CPU float64
}

// Ping probes the latency to a peer.
type Ping struct {
	Header

	Time int64
	ID   string
}

// Pong answers a Ping.
type Pong struct {
	Header

	Time    int64
	Arrived int64
	ID      string
}

// GossipHello bootstraps gossip with a peer.
type GossipHello struct {
	Header

	Host string
	Port int32
}

func (*Info) Type() PacketType           { return PacketInfo }
func (*Event) Type() PacketType          { return PacketEvent }
func (*Request) Type() PacketType        { return PacketRequest }
func (*Response) Type() PacketType       { return PacketResponse }
func (*GossipRequest) Type() PacketType  { return PacketGossipRequest }
func (*GossipResponse) Type() PacketType { return PacketGossipResponse }
func (*Discover) Type() PacketType       { return PacketDiscover }
func (*Disconnect) Type() PacketType     { return PacketDisconnect }
func (*Heartbeat) Type() PacketType      { return PacketHeartbeat }
func (*Ping) Type() PacketType           { return PacketPing }
func (*Pong) Type() PacketType           { return PacketPong }
func (*GossipHello) Type() PacketType    { return PacketGossipHello }

// NewPacket returns an empty packet of the given type, ready to be filled by a
// Codec.
func NewPacket(t PacketType) (Packet, error) {
	switch t {
	case PacketInfo:
		return &Info{}, nil
	case PacketEvent:
		return &Event{}, nil
	case PacketRequest:
		return &Request{}, nil
	case PacketResponse:
		return &Response{}, nil
	case PacketGossipRequest:
		return &GossipRequest{}, nil
	case PacketGossipResponse:
		return &GossipResponse{}, nil
	case PacketDiscover:
		return &Discover{}, nil
	case PacketDisconnect:
		return &Disconnect{}, nil
	case PacketHeartbeat:
		return &Heartbeat{}, nil
	case PacketPing:
		return &Ping{}, nil
	case PacketPong:
		return &Pong{}, nil
	case PacketGossipHello:
		return &GossipHello{}, nil
	}
	return nil, &UnknownPacketTypeError{name: t.String()}
}
