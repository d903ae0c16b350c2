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

// Package moleculer converts the structured fields of moleculer protocol
// packets to and from the forms a wire codec can carry.
//
// Packets such as [Request] and [Response] hold application data in [Field]
// values: a structured value, raw bytes, structured text already in wire
// form, or nothing at all. A [Normalizer] rewrites those fields before
// encoding and restores them after decoding, so schema-based codecs that only
// know strings and bytes can carry arbitrary service metadata, parameters,
// and results. Raw byte payloads travel natively when the codec supports
// them and as {"type":"Buffer","data":[...]} text otherwise.
//
// A [Serializer] composes a Normalizer with a [Codec]. This package includes
// a JSON codec; the codec subpackages add MessagePack, CBOR, and protocol
// buffer backends.
//
// This documentation is intended to explain each type and function in
// isolation. The wire keys and packet type names follow the moleculer
// protocol.
package moleculer
