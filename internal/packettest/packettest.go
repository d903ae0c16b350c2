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

// Package packettest provides sample packets for codec tests.
package packettest

import "github.com/hansi90/moleculer"

// A Case pairs a packet in its native form with the packet a receiver should
// end up with after a full serialize and deserialize cycle.
type Case struct {
	Name string
	// Native returns a fresh packet to send. Sending consumes it.
	Native func() moleculer.Packet
	// Want is the packet the receiver reconstructs.
	Want moleculer.Packet
}

var header = moleculer.Header{Ver: "4", Sender: "node-1"}

// Cases returns one case per packet type, plus the interesting field
// combinations for requests and responses.
func Cases() []Case {
	return []Case{
		{
			Name: "info",
			Native: func() moleculer.Packet {
				return &moleculer.Info{
					Header:     header,
					Services:   moleculer.Value([]any{map[string]any{"name": "math", "actions": map[string]any{"math.add": map[string]any{}}}}),
					Config:     moleculer.Value(map[string]any{"timeout": float64(5)}),
					IPList:     []string{"10.0.0.1"},
					Hostname:   "host-1",
					InstanceID: "abc",
					Seq:        2,
				}
			},
			Want: &moleculer.Info{
				Header:     header,
				Services:   moleculer.Value([]any{map[string]any{"name": "math", "actions": map[string]any{"math.add": map[string]any{}}}}),
				Config:     moleculer.Value(map[string]any{"timeout": float64(5)}),
				IPList:     []string{"10.0.0.1"},
				Hostname:   "host-1",
				InstanceID: "abc",
				Seq:        2,
			},
		},
		{
			Name: "event",
			Native: func() moleculer.Packet {
				return &moleculer.Event{Header: header, ID: "e1", Event: "user.created", Data: moleculer.Value(map[string]any{"id": float64(1)}), Groups: []string{"mail", "audit"}, Broadcast: true}
			},
			Want: &moleculer.Event{Header: header, ID: "e1", Event: "user.created", Data: moleculer.Value(map[string]any{"id": float64(1)}), Groups: []string{"mail", "audit"}, Broadcast: true},
		},
		{
			Name: "event without data",
			Native: func() moleculer.Packet {
				return &moleculer.Event{Header: header, Event: "tick"}
			},
			Want: &moleculer.Event{Header: header, Event: "tick"},
		},
		{
			Name: "request with bytes",
			Native: func() moleculer.Packet {
				return &moleculer.Request{Header: header, ID: "r1", Action: "file.save", Params: moleculer.Bytes([]byte{1, 2, 3, 4}), Timeout: 1000, Level: 1}
			},
			Want: &moleculer.Request{Header: header, ID: "r1", Action: "file.save", Params: moleculer.Bytes([]byte{1, 2, 3, 4}), Meta: moleculer.Value(map[string]any{}), Timeout: 1000, Level: 1},
		},
		{
			Name: "request with value",
			Native: func() moleculer.Packet {
				return &moleculer.Request{
					Header:    header,
					ID:        "r2",
					Action:    "math.add",
					Params:    moleculer.Value(map[string]any{"a": float64(5), "b": float64(3)}),
					Meta:      moleculer.Value(map[string]any{"user": "john"}),
					Timeout:   2500.5,
					Level:     2,
					Tracing:   true,
					ParentID:  "p1",
					RequestID: "q1",
					Caller:    "greeter",
					Seq:       4,
				}
			},
			Want: &moleculer.Request{
				Header:    header,
				ID:        "r2",
				Action:    "math.add",
				Params:    moleculer.Value(map[string]any{"a": float64(5), "b": float64(3)}),
				Meta:      moleculer.Value(map[string]any{"user": "john"}),
				Timeout:   2500.5,
				Level:     2,
				Tracing:   true,
				ParentID:  "p1",
				RequestID: "q1",
				Caller:    "greeter",
				Seq:       4,
			},
		},
		{
			Name: "response with bytes",
			Native: func() moleculer.Packet {
				return &moleculer.Response{Header: header, ID: "r1", Success: true, Data: moleculer.Bytes([]byte("chunk")), Stream: true, Seq: 1}
			},
			Want: &moleculer.Response{Header: header, ID: "r1", Success: true, Data: moleculer.Bytes([]byte("chunk")), Meta: moleculer.Value(map[string]any{}), Stream: true, Seq: 1},
		},
		{
			Name: "response with error",
			Native: func() moleculer.Packet {
				return &moleculer.Response{Header: header, ID: "r2", Error: moleculer.Value(map[string]any{"name": "ValidationError", "code": float64(422)}), Meta: moleculer.Value(map[string]any{"trace": []any{"a", "b"}})}
			},
			Want: &moleculer.Response{Header: header, ID: "r2", Error: moleculer.Value(map[string]any{"name": "ValidationError", "code": float64(422)}), Meta: moleculer.Value(map[string]any{"trace": []any{"a", "b"}})},
		},
		{
			Name: "gossip request",
			Native: func() moleculer.Packet {
				return &moleculer.GossipRequest{Header: header, Online: moleculer.Value(map[string]any{"node-2": []any{float64(1), float64(2), float64(3)}})}
			},
			Want: &moleculer.GossipRequest{Header: header, Online: moleculer.Value(map[string]any{"node-2": []any{float64(1), float64(2), float64(3)}})},
		},
		{
			Name: "gossip response",
			Native: func() moleculer.Packet {
				return &moleculer.GossipResponse{Header: header, Online: moleculer.Value(map[string]any{}), Offline: moleculer.Value(map[string]any{"node-3": float64(7)})}
			},
			Want: &moleculer.GossipResponse{Header: header, Online: moleculer.Value(map[string]any{}), Offline: moleculer.Value(map[string]any{"node-3": float64(7)})},
		},
		{
			Name:   "discover",
			Native: func() moleculer.Packet { return &moleculer.Discover{Header: header} },
			Want:   &moleculer.Discover{Header: header},
		},
		{
			Name:   "disconnect",
			Native: func() moleculer.Packet { return &moleculer.Disconnect{Header: header} },
			Want:   &moleculer.Disconnect{Header: header},
		},
		{
			Name:   "heartbeat",
			Native: func() moleculer.Packet { return &moleculer.Heartbeat{Header: header, CPU: 37.25} },
			Want:   &moleculer.Heartbeat{Header: header, CPU: 37.25},
		},
		{
			Name:   "ping",
			Native: func() moleculer.Packet { return &moleculer.Ping{Header: header, Time: 1700000000000, ID: "x"} },
			Want:   &moleculer.Ping{Header: header, Time: 1700000000000, ID: "x"},
		},
		{
			Name:   "pong",
			Native: func() moleculer.Packet { return &moleculer.Pong{Header: header, Time: 1700000000000, Arrived: 1700000000009, ID: "x"} },
			Want:   &moleculer.Pong{Header: header, Time: 1700000000000, Arrived: 1700000000009, ID: "x"},
		},
		{
			Name:   "gossip hello",
			Native: func() moleculer.Packet { return &moleculer.GossipHello{Header: header, Host: "localhost", Port: 4001} },
			Want:   &moleculer.GossipHello{Header: header, Host: "localhost", Port: 4001},
		},
	}
}

// Wire returns the case's packet with its structured fields normalized, the
// form a backend codec receives on send.
func (c Case) Wire(binary bool) (moleculer.Packet, error) {
	return moleculer.NewNormalizer(binary).SerializeCustomFields(c.Native())
}
