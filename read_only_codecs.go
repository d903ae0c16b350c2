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

import "sort"

// Codecs is a read-only set of named codecs, used by tools that pick a backend
// by name.
type Codecs struct {
	codecs map[string]Codec
}

// NewCodecs indexes codecs by name. Later codecs replace earlier ones with the
// same name. The JSON codec is always present unless replaced.
func NewCodecs(codecs ...Codec) *Codecs {
	m := map[string]Codec{CodecNameJSON: NewJSONCodec()}
	for _, codec := range codecs {
		if codec != nil {
			m[codec.Name()] = codec
		}
	}
	return &Codecs{codecs: m}
}

// Get the named codec, or nil if none is registered.
func (c *Codecs) Get(name string) Codec {
	return c.codecs[name]
}

// Names returns a sorted copy of the registered codec names. The returned
// slice is safe for the caller to mutate.
func (c *Codecs) Names() []string {
	names := make([]string, 0, len(c.codecs))
	for name := range c.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
