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

import "math"

// bufferTag is the discriminator a raw binary payload carries once it has
// been through structured text.
const bufferTag = "Buffer"

// jsonBuffer is the structured-text shape of a raw binary payload. Data is
// []uint16 rather than []byte so that it encodes as an array of numbers
// instead of base64.
type jsonBuffer struct {
	Type string   `json:"type"`
	Data []uint16 `json:"data"`
}

func newJSONBuffer(b []byte) jsonBuffer {
	data := make([]uint16, len(b))
	for i, c := range b {
		data[i] = uint16(c)
	}
	return jsonBuffer{Type: bufferTag, Data: data}
}

// BufferValue returns the structured value a raw binary payload decodes to
// after a round trip through structured text: a map with "type" set to
// "Buffer" and "data" holding the byte values.
func BufferValue(b []byte) map[string]any {
	data := make([]any, len(b))
	for i, c := range b {
		data[i] = float64(c)
	}
	return map[string]any{"type": bufferTag, "data": data}
}

// IsJSONBuffer reports whether a decoded structured value has the shape of a
// raw binary payload that was carried as structured text: a map whose "type"
// is "Buffer" and whose "data" is an array of integers between 0 and 255.
//
// The match is purely structural. A value built by the application that
// happens to have this shape is indistinguishable from a real payload and is
// promoted to bytes just the same.
func IsJSONBuffer(v any) bool {
	_, ok := ParseBuffer(v)
	return ok
}

// ParseBuffer converts a buffer-shaped structured value (see IsJSONBuffer)
// back to its bytes. The bool is false if v doesn't have the buffer shape.
func ParseBuffer(v any) ([]byte, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if tag, ok := obj["type"].(string); !ok || tag != bufferTag {
		return nil, false
	}
	data, ok := obj["data"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	for i, elem := range data {
		c, ok := byteValue(elem)
		if !ok {
			return nil, false
		}
		out[i] = c
	}
	return out, true
}

func byteValue(v any) (byte, bool) {
	n, ok := integerValue(v)
	if !ok || n < 0 || n > math.MaxUint8 {
		return 0, false
	}
	return byte(n), true
}
