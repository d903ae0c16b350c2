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
	"errors"
	"testing"

	"github.com/hansi90/moleculer"
	"github.com/hansi90/moleculer/internal/assert"
	"github.com/hansi90/moleculer/internal/packettest"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodecRoundTrips(t *testing.T) {
	t.Parallel()
	codec := New()
	assert.Equal(t, codec.Name(), Name)
	assert.True(t, codec.SupportsBinary())
	for _, binary := range []bool{true, false} {
		for _, testCase := range packettest.Cases() {
			want, err := testCase.Wire(binary)
			assert.Nil(t, err)
			data, err := codec.Marshal(want)
			assert.Nil(t, err, assert.Sprintf("marshal %s", testCase.Name))
			again, err := codec.Marshal(want)
			assert.Nil(t, err)
			assert.Equal(t, again, data, assert.Sprintf("%s isn't deterministic", testCase.Name))

			got, err := moleculer.NewPacket(want.Type())
			assert.Nil(t, err)
			assert.Nil(t, codec.Unmarshal(data, got), assert.Sprintf("unmarshal %s", testCase.Name))
			assert.Equal(t, got, want, assert.Sprintf("%s", testCase.Name))
		}
	}
}

func TestCodecSchemas(t *testing.T) {
	t.Parallel()
	for packetType := moleculer.PacketInfo; packetType <= moleculer.PacketGossipHello; packetType++ {
		s, ok := schemas[packetType]
		assert.True(t, ok, assert.Sprintf("no schema for %s", packetType))
		seen := make(map[protowire.Number]string)
		for _, def := range s.fields {
			numbers := []protowire.Number{def.num}
			if def.kind == kindDual {
				numbers = append(numbers, def.bin)
			}
			for _, num := range numbers {
				other, dup := seen[num]
				assert.False(t, dup, assert.Sprintf("%s: %s and %s share field %d", packetType, other, def.name, num))
				seen[num] = def.name
			}
		}
	}
}

func TestCodecWireFormat(t *testing.T) {
	t.Parallel()
	codec := New()
	data, err := codec.Marshal(&moleculer.Ping{Time: 5, ID: "x"})
	assert.Nil(t, err)
	var want []byte
	want = protowire.AppendTag(want, 3, protowire.VarintType)
	want = protowire.AppendVarint(want, 5)
	want = protowire.AppendTag(want, 4, protowire.BytesType)
	want = protowire.AppendString(want, "x")
	assert.Equal(t, data, want)

	t.Run("raw bytes use their own field", func(t *testing.T) {
		t.Parallel()
		data, err := codec.Marshal(&moleculer.Response{Data: moleculer.Bytes([]byte{7}), Meta: moleculer.Text("{}")})
		assert.Nil(t, err)
		var want []byte
		want = protowire.AppendTag(want, 9, protowire.BytesType)
		want = protowire.AppendBytes(want, []byte{7})
		want = protowire.AppendTag(want, 7, protowire.BytesType)
		want = protowire.AppendString(want, "{}")
		assert.Equal(t, data, want)
	})
	t.Run("empty text is present", func(t *testing.T) {
		t.Parallel()
		data, err := codec.Marshal(&moleculer.Event{Event: "e", Data: moleculer.Text("")})
		assert.Nil(t, err)
		var event moleculer.Event
		assert.Nil(t, codec.Unmarshal(data, &event))
		assert.Equal(t, event.Data, moleculer.Text(""))
	})
}

func TestCodecSkipsUnknownFields(t *testing.T) {
	t.Parallel()
	codec := New()
	data, err := codec.Marshal(&moleculer.GossipHello{Host: "localhost", Port: 4001})
	assert.Nil(t, err)
	data = protowire.AppendTag(data, 99, protowire.VarintType)
	data = protowire.AppendVarint(data, 1)
	data = protowire.AppendTag(data, 100, protowire.BytesType)
	data = protowire.AppendString(data, "future")

	var hello moleculer.GossipHello
	assert.Nil(t, codec.Unmarshal(data, &hello))
	assert.Equal(t, hello, moleculer.GossipHello{Host: "localhost", Port: 4001})
}

func TestCodecErrors(t *testing.T) {
	t.Parallel()
	codec := New()

	t.Run("not normalized", func(t *testing.T) {
		t.Parallel()
		_, err := codec.Marshal(&moleculer.Info{Services: moleculer.Value([]any{})})
		assert.True(t, errors.Is(err, errNotNormalized))
		assert.Match(t, err.Error(), `INFO\.services`)
	})
	t.Run("bytes on a text field", func(t *testing.T) {
		t.Parallel()
		_, err := codec.Marshal(&moleculer.Event{Event: "e", Data: moleculer.Bytes([]byte{1})})
		assert.Match(t, err.Error(), `raw bytes`)
	})
	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		data, err := codec.Marshal(&moleculer.Ping{ID: "abcdef"})
		assert.Nil(t, err)
		assert.NotNil(t, codec.Unmarshal(data[:len(data)-2], &moleculer.Ping{}))
	})
	t.Run("wire type mismatch", func(t *testing.T) {
		t.Parallel()
		data := protowire.AppendTag(nil, 3, protowire.BytesType)
		data = protowire.AppendString(data, "soon")
		err := codec.Unmarshal(data, &moleculer.Ping{})
		assert.Match(t, err.Error(), `field "time": wire type`)
	})
	t.Run("nil packet", func(t *testing.T) {
		t.Parallel()
		assert.NotNil(t, codec.Unmarshal(nil, nil))
		_, err := codec.Marshal(nil)
		assert.NotNil(t, err)
	})
}
