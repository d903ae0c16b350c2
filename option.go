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

import "github.com/rs/zerolog"

// A SerializerOption configures a Serializer.
type SerializerOption interface {
	applyToSerializer(*serializerConfig)
}

type serializerConfig struct {
	Logger         zerolog.Logger
	Binary         bool
	OverrideBinary bool
}

type loggerOption struct {
	logger zerolog.Logger
}

// WithLogger sets the logger a Serializer reports encoding and decoding
// failures to, at debug level. By default nothing is logged; errors are
// always returned to the caller either way.
func WithLogger(logger zerolog.Logger) SerializerOption {
	return &loggerOption{logger}
}

func (o *loggerOption) applyToSerializer(cfg *serializerConfig) {
	cfg.Logger = o.logger
}

type binaryFieldsOption struct {
	binary bool
}

// WithBinaryFields overrides the binary capability the codec reports.
// Disabling it on a binary codec forces raw params and response data through
// structured text, which is useful when peers run a codec version that can't
// carry bytes. Enabling it on a codec that can't carry bytes breaks encoding.
func WithBinaryFields(enabled bool) SerializerOption {
	return &binaryFieldsOption{enabled}
}

func (o *binaryFieldsOption) applyToSerializer(cfg *serializerConfig) {
	cfg.Binary = o.binary
	cfg.OverrideBinary = true
}
