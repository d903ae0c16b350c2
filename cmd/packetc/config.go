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

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	formatHex    = "hex"
	formatBase64 = "base64"
	formatRaw    = "raw"
)

// config holds settings shared by every subcommand. Binary is nil unless set,
// in which case the codec's own capability applies.
type config struct {
	Codec    string `toml:"codec" yaml:"codec"`
	Binary   *bool  `toml:"binary" yaml:"binary"`
	Format   string `toml:"format" yaml:"format"`
	LogLevel string `toml:"log_level" yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		Codec:    "json",
		Format:   formatHex,
		LogLevel: "info",
	}
}

// loadConfig overlays the file at path on the defaults. The file format
// follows the extension: .toml, or .yaml and .yml.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	var raw config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return config{}, fmt.Errorf("load config: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return config{}, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return config{}, fmt.Errorf("load config: %w", err)
		}
	default:
		return config{}, fmt.Errorf("load config: unsupported file extension %q", ext)
	}
	cfg.merge(raw)
	return cfg, cfg.validate()
}

func (c *config) merge(other config) {
	if v := strings.TrimSpace(other.Codec); v != "" {
		c.Codec = v
	}
	if other.Binary != nil {
		binary := *other.Binary
		c.Binary = &binary
	}
	if v := strings.TrimSpace(other.Format); v != "" {
		c.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(other.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}

func (c *config) validate() error {
	switch c.Format {
	case formatHex, formatBase64, formatRaw:
	default:
		return fmt.Errorf("unknown format %q (want hex, base64, or raw)", c.Format)
	}
	if c.Codec == "" {
		return errors.New("codec name is empty")
	}
	return nil
}
