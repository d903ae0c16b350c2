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
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"testing/quick"

	"github.com/hansi90/moleculer/internal/assert"
)

type foreignPacket struct {
	Header
}

func (*foreignPacket) Type() PacketType { return PacketRequest }

func TestNormalizerInfo(t *testing.T) {
	t.Parallel()
	services := []any{map[string]any{"name": "math"}}
	config := map[string]any{"timeout": float64(5)}
	for _, binary := range []bool{true, false} {
		normalizer := NewNormalizer(binary)
		info := &Info{Services: Value(services), Config: Value(config)}
		_, err := normalizer.SerializeCustomFields(info)
		assert.Nil(t, err)
		assert.Equal(t, info.Services, Text(`[{"name":"math"}]`))
		assert.Equal(t, info.Config, Text(`{"timeout":5}`))

		_, err = normalizer.DeserializeCustomFields(info)
		assert.Nil(t, err)
		assert.Equal(t, info.Services, Value(services))
		assert.Equal(t, info.Config, Value(config))
	}
}

func TestNormalizerRequestParams(t *testing.T) {
	t.Parallel()
	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	t.Run("binary", func(t *testing.T) {
		t.Parallel()
		normalizer := NewNormalizer(true)
		req := &Request{Action: "math.add", Params: Bytes(payload)}
		_, err := normalizer.SerializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Params, Bytes(payload))
		assert.Equal(t, req.Meta, Text("{}"))

		_, err = normalizer.DeserializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Params, Bytes(payload))
		assert.Equal(t, req.Meta, Value(map[string]any{}))
	})

	t.Run("text only", func(t *testing.T) {
		t.Parallel()
		normalizer := NewNormalizer(false)
		req := &Request{Action: "math.add", Params: Bytes(payload)}
		_, err := normalizer.SerializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Params, Text(`{"type":"Buffer","data":[222,173,190,239]}`))

		_, err = normalizer.DeserializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Params, Bytes(payload))
	})

	t.Run("structured", func(t *testing.T) {
		t.Parallel()
		normalizer := NewNormalizer(true)
		params := map[string]any{"a": float64(5), "b": float64(3)}
		meta := map[string]any{"user": "john"}
		req := &Request{Params: Value(params), Meta: Value(meta)}
		_, err := normalizer.SerializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Params, Text(`{"a":5,"b":3}`))
		assert.Equal(t, req.Meta, Text(`{"user":"john"}`))

		_, err = normalizer.DeserializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Params, Value(params))
		assert.Equal(t, req.Meta, Value(meta))
	})
}

func TestNormalizerResponseData(t *testing.T) {
	t.Parallel()
	payload := []byte("chunk")
	binary := NewNormalizer(true)
	res := &Response{Success: true, Data: Bytes(payload)}
	_, err := binary.SerializeCustomFields(res)
	assert.Nil(t, err)
	assert.Equal(t, res.Data, Bytes(payload))
	assert.Equal(t, res.Meta, Text("{}"))
	assert.True(t, res.Error.IsAbsent())
	_, err = binary.DeserializeCustomFields(res)
	assert.Nil(t, err)
	assert.Equal(t, res.Data, Bytes(payload))

	descriptor := map[string]any{"name": "MoleculerError", "code": float64(500)}
	failed := &Response{Error: Value(descriptor)}
	_, err = binary.SerializeCustomFields(failed)
	assert.Nil(t, err)
	assert.Equal(t, failed.Error, Text(`{"code":500,"name":"MoleculerError"}`))
	assert.True(t, failed.Data.IsAbsent())
	_, err = binary.DeserializeCustomFields(failed)
	assert.Nil(t, err)
	assert.Equal(t, failed.Error, Value(descriptor))
}

func TestNormalizerEventData(t *testing.T) {
	t.Parallel()
	// Event payloads have no bytes field on the wire, even on binary codecs.
	normalizer := NewNormalizer(true)
	event := &Event{Event: "user.created", Data: Bytes([]byte{1, 2})}
	_, err := normalizer.SerializeCustomFields(event)
	assert.Nil(t, err)
	assert.Equal(t, event.Data, Text(`{"type":"Buffer","data":[1,2]}`))
	_, err = normalizer.DeserializeCustomFields(event)
	assert.Nil(t, err)
	assert.Equal(t, event.Data, Bytes([]byte{1, 2}))
}

func TestNormalizerGossip(t *testing.T) {
	t.Parallel()
	online := map[string]any{"node-1": []any{float64(3), float64(1), float64(0)}}
	offline := map[string]any{"node-2": float64(2)}
	for _, p := range []Packet{
		&GossipRequest{Online: Value(online), Offline: Value(offline)},
		&GossipResponse{Online: Value(online), Offline: Value(offline)},
	} {
		normalizer := NewNormalizer(false)
		_, err := normalizer.SerializeCustomFields(p)
		assert.Nil(t, err)
		_, err = normalizer.DeserializeCustomFields(p)
		assert.Nil(t, err)
	}
	req := &GossipRequest{Online: Value(online)}
	normalizer := NewNormalizer(false)
	_, err := normalizer.SerializeCustomFields(req)
	assert.Nil(t, err)
	assert.Equal(t, req.Online, Text(`{"node-1":[3,1,0]}`))
	assert.True(t, req.Offline.IsAbsent())
	_, err = normalizer.DeserializeCustomFields(req)
	assert.Nil(t, err)
	assert.Equal(t, req.Online, Value(online))
	assert.True(t, req.Offline.IsAbsent())
}

func TestNormalizerAbsence(t *testing.T) {
	t.Parallel()
	normalizer := NewNormalizer(false)
	packets := []Packet{
		&Info{},
		&Event{},
		&Request{},
		&Response{},
		&GossipRequest{},
		&GossipResponse{},
	}
	for _, p := range packets {
		_, err := normalizer.SerializeCustomFields(p)
		assert.Nil(t, err)
		assert.Nil(t, eachField(p, func(name string, f Field) error {
			if name == "meta" {
				assert.Equal(t, f, Text("{}"), assert.Sprintf("%s.meta", p.Type()))
				return nil
			}
			assert.True(t, f.IsAbsent(), assert.Sprintf("%s.%s should stay absent", p.Type(), name))
			return nil
		}))
		_, err = normalizer.DeserializeCustomFields(p)
		assert.Nil(t, err)
		assert.Nil(t, eachField(p, func(name string, f Field) error {
			if name == "meta" {
				assert.Equal(t, f, Value(map[string]any{}), assert.Sprintf("%s.meta", p.Type()))
				return nil
			}
			assert.True(t, f.IsAbsent(), assert.Sprintf("%s.%s should stay absent", p.Type(), name))
			return nil
		}))
	}

	t.Run("missing meta on receive", func(t *testing.T) {
		t.Parallel()
		req := &Request{}
		_, err := NewNormalizer(true).DeserializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Meta, Value(map[string]any{}))
	})

	t.Run("null is present", func(t *testing.T) {
		t.Parallel()
		event := &Event{Data: Value(nil)}
		_, err := NewNormalizer(false).SerializeCustomFields(event)
		assert.Nil(t, err)
		assert.Equal(t, event.Data, Text("null"))
		_, err = NewNormalizer(false).DeserializeCustomFields(event)
		assert.Nil(t, err)
		assert.Equal(t, event.Data, Value(nil))
	})
}

func TestNormalizerBufferHeuristic(t *testing.T) {
	t.Parallel()
	lookalike := map[string]any{"type": "Buffer", "data": []any{float64(104), float64(105)}}

	t.Run("decoded value", func(t *testing.T) {
		t.Parallel()
		// A codec that decodes whole objects delivers the buffer shape as a
		// value rather than text.
		req := &Request{Params: Value(lookalike), Meta: Value(map[string]any{})}
		_, err := NewNormalizer(false).DeserializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Params, Bytes([]byte("hi")))
	})

	t.Run("application value is promoted", func(t *testing.T) {
		t.Parallel()
		// Known limitation: a structured value that merely looks like a
		// buffer can't be told apart from one.
		normalizer := NewNormalizer(false)
		res := &Response{Data: Value(lookalike)}
		_, err := normalizer.SerializeCustomFields(res)
		assert.Nil(t, err)
		_, err = normalizer.DeserializeCustomFields(res)
		assert.Nil(t, err)
		assert.Equal(t, res.Data, Bytes([]byte("hi")))
	})

	t.Run("only on payload fields", func(t *testing.T) {
		t.Parallel()
		normalizer := NewNormalizer(false)
		info := &Info{Config: Value(lookalike)}
		_, err := normalizer.SerializeCustomFields(info)
		assert.Nil(t, err)
		_, err = normalizer.DeserializeCustomFields(info)
		assert.Nil(t, err)
		assert.Equal(t, info.Config, Value(lookalike))
	})
}

func TestNormalizerMalformed(t *testing.T) {
	t.Parallel()
	const bad = `{"unterminated":`
	testCases := []struct {
		packet Packet
		field  string
	}{
		{&Info{Services: Text(bad)}, "services"},
		{&Info{Services: Text("[]"), Config: Text(bad)}, "config"},
		{&Event{Data: Text(bad)}, "data"},
		{&Request{Params: Text(bad)}, "params"},
		{&Request{Params: Text("1"), Meta: Text(bad)}, "meta"},
		{&Response{Meta: Text(bad)}, "meta"},
		{&Response{Meta: Text("{}"), Data: Text(bad)}, "data"},
		{&Response{Meta: Text("{}"), Error: Text(bad)}, "error"},
		{&GossipRequest{Online: Text(bad)}, "online"},
		{&GossipRequest{Offline: Text(bad)}, "offline"},
		{&GossipResponse{Online: Text(bad)}, "online"},
		{&GossipResponse{Offline: Text(bad)}, "offline"},
	}
	for _, testCase := range testCases {
		_, err := NewNormalizer(false).DeserializeCustomFields(testCase.packet)
		fieldErr := assert.ErrorAs[*MalformedFieldError](t, err)
		assert.Equal(t, fieldErr.PacketType(), testCase.packet.Type())
		assert.Equal(t, fieldErr.Field(), testCase.field)
		assert.True(t, IsMalformedField(err))
		var syntaxErr *json.SyntaxError
		assert.True(t, errors.As(err, &syntaxErr))
	}

	t.Run("partial", func(t *testing.T) {
		t.Parallel()
		res := &Response{Meta: Text(`{"a":1}`), Data: Text(bad), Error: Text(`{"name":"E"}`)}
		_, err := NewNormalizer(false).DeserializeCustomFields(res)
		assert.NotNil(t, err)
		assert.Equal(t, res.Meta, Value(map[string]any{"a": float64(1)}))
		assert.Equal(t, res.Data, Text(bad))
		assert.Equal(t, res.Error, Text(`{"name":"E"}`))
	})

	t.Run("unencodable", func(t *testing.T) {
		t.Parallel()
		req := &Request{Params: Value(math.Inf(1))}
		_, err := NewNormalizer(false).SerializeCustomFields(req)
		fieldErr := assert.ErrorAs[*MalformedFieldError](t, err)
		assert.Equal(t, fieldErr.Field(), "params")
		assert.Equal(t, fieldErr.PacketType(), PacketRequest)
		assert.True(t, req.Meta.IsAbsent())
		var unsupported *json.UnsupportedValueError
		assert.True(t, errors.As(err, &unsupported))
	})
}

func TestNormalizerPassThrough(t *testing.T) {
	t.Parallel()
	normalizer := NewNormalizer(false)
	packets := []Packet{
		&Discover{},
		&Disconnect{},
		&Heartbeat{CPU: 12.5},
		&Ping{Time: 1, ID: "p"},
		&Pong{Time: 1, Arrived: 2, ID: "p"},
		&GossipHello{Host: "localhost", Port: 4000},
	}
	for _, p := range packets {
		got, err := normalizer.SerializeCustomFields(p)
		assert.Nil(t, err)
		assert.Equal(t, got, p)
		got, err = normalizer.DeserializeCustomFields(p)
		assert.Nil(t, err)
		assert.Equal(t, got, p)
	}

	t.Run("wire text stays", func(t *testing.T) {
		t.Parallel()
		req := &Request{Params: Text(`[1]`), Meta: Text(`{}`)}
		_, err := NewNormalizer(false).SerializeCustomFields(req)
		assert.Nil(t, err)
		assert.Equal(t, req.Params, Text(`[1]`))
	})
}

func TestNormalizerRejectsUnknownPackets(t *testing.T) {
	t.Parallel()
	normalizer := NewNormalizer(false)
	_, err := normalizer.SerializeCustomFields(&foreignPacket{})
	unknown := assert.ErrorAs[*UnknownPacketTypeError](t, err)
	assert.Match(t, unknown.Type(), `foreignPacket`)
	_, err = normalizer.DeserializeCustomFields(&foreignPacket{})
	assert.ErrorAs[*UnknownPacketTypeError](t, err)

	_, err = normalizer.SerializeCustomFields(nil)
	assert.ErrorIs(t, err, errNilPacket)
	_, err = normalizer.DeserializeCustomFields((*Request)(nil))
	assert.ErrorIs(t, err, errNilPacket)
}

func TestNormalizerRoundTrips(t *testing.T) {
	t.Parallel()
	makeRoundTrip := func(normalizer Normalizer) func(map[string]string, []byte, string, bool) bool {
		return func(meta map[string]string, params []byte, text string, flag bool) bool {
			metaValue := convertMapToInterface(meta)
			req := &Request{Params: Bytes(params), Meta: Value(metaValue)}
			res := &Response{
				Meta:  Value(metaValue),
				Data:  Value([]any{text, flag, nil}),
				Error: Value(map[string]any{"message": text}),
			}
			for _, p := range []Packet{req, res} {
				if _, err := normalizer.SerializeCustomFields(p); err != nil {
					t.Fatal(err)
				}
				if _, err := normalizer.DeserializeCustomFields(p); err != nil {
					t.Fatal(err)
				}
			}
			return req.Params.Equal(Bytes(params)) &&
				req.Meta.Equal(Value(metaValue)) &&
				res.Meta.Equal(Value(metaValue)) &&
				res.Data.Equal(Value([]any{text, flag, nil})) &&
				res.Error.Equal(Value(map[string]any{"message": text}))
		}
	}
	if err := quick.Check(makeRoundTrip(NewNormalizer(true)), nil /* config */); err != nil {
		t.Error(err)
	}
	if err := quick.Check(makeRoundTrip(NewNormalizer(false)), nil /* config */); err != nil {
		t.Error(err)
	}
}

func TestNormalizerConcurrentUse(t *testing.T) {
	t.Parallel()
	normalizer := NewNormalizer(false)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := &Request{Params: Value(float64(i))}
			if _, err := normalizer.SerializeCustomFields(req); err != nil {
				t.Error(err)
				return
			}
			if _, err := normalizer.DeserializeCustomFields(req); err != nil {
				t.Error(err)
				return
			}
			if !req.Params.Equal(Value(float64(i))) {
				t.Errorf("params %v, want %d", req.Params, i)
			}
		}(i)
	}
	wg.Wait()
}

func convertMapToInterface(stringMap map[string]string) map[string]any {
	interfaceMap := make(map[string]any)
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

// eachField calls fn with every normalized field of p.
func eachField(p Packet, fn func(string, Field) error) error {
	slots, err := customFields(p)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if err := fn(slot.rule.name, *slot.field); err != nil {
			return err
		}
	}
	return nil
}

func TestNormalizerEmptyText(t *testing.T) {
	t.Parallel()
	packets := []Packet{
		&Info{Services: Text(""), Config: Text("")},
		&Event{Data: Text("")},
		&Request{Params: Text(""), Meta: Text("")},
		&Response{Meta: Text(""), Data: Text(""), Error: Text("")},
		&GossipRequest{Online: Text(""), Offline: Text("")},
		&GossipResponse{Online: Text(""), Offline: Text("")},
	}
	for _, p := range packets {
		_, err := NewNormalizer(true).DeserializeCustomFields(p)
		assert.Nil(t, err, assert.Sprintf("%s", p.Type()))
		assert.Nil(t, eachField(p, func(name string, f Field) error {
			if name == "meta" {
				assert.Equal(t, f, Value(map[string]any{}), assert.Sprintf("%s.meta", p.Type()))
				return nil
			}
			assert.True(t, f.IsAbsent(), assert.Sprintf("%s.%s should be absent", p.Type(), name))
			return nil
		}))
	}

	t.Run("whitespace is malformed", func(t *testing.T) {
		t.Parallel()
		event := &Event{Data: Text(" ")}
		_, err := NewNormalizer(false).DeserializeCustomFields(event)
		assert.True(t, IsMalformedField(err))
		assert.Equal(t, event.Data, Text(" "))
	})
}

func TestStructuredFields(t *testing.T) {
	t.Parallel()
	assert.Equal(t, StructuredFields(PacketInfo), []string{"services", "config"})
	assert.Equal(t, StructuredFields(PacketEvent), []string{"data"})
	assert.Equal(t, StructuredFields(PacketRequest), []string{"params", "meta"})
	assert.Equal(t, StructuredFields(PacketResponse), []string{"meta", "data", "error"})
	assert.Equal(t, StructuredFields(PacketGossipRequest), []string{"online", "offline"})
	assert.Equal(t, StructuredFields(PacketGossipResponse), []string{"online", "offline"})
	assert.Nil(t, StructuredFields(PacketPing))
	assert.Nil(t, StructuredFields(PacketUnknown))
	assert.Nil(t, StructuredFields(PacketType(99)))
}
