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

// Packetc encodes and decodes moleculer packets from the command line.
//
//	packetc encode --type REQ --codec msgpack request.jsonc
//	packetc decode --type REQ --codec msgpack --format hex < request.hex
//	packetc codecs
//
// Encode reads one packet as JSON, comments and trailing commas allowed, and
// writes the encoded bytes. Structured fields such as params and meta hold
// native values; a string there is a string value, not pre-encoded text.
// Params and data become raw bytes when they have the Buffer shape
// {"type":"Buffer","data":[...]}. Decode reverses this and prints the packet
// as indented JSON, raw bytes in the same shape.
//
// Settings come from an optional TOML or YAML file (--config) with the keys
// codec, binary, format, and log_level. Flags override the file.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hansi90/moleculer"
	"github.com/hansi90/moleculer/codec/cbor"
	"github.com/hansi90/moleculer/codec/msgpack"
	"github.com/hansi90/moleculer/codec/protobuf"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
)

const usage = `usage: packetc <command> [flags] [FILE]

Commands:
  encode   encode a JSON packet, read from FILE or stdin
  decode   decode an encoded packet, read from FILE or stdin
  codecs   list available codecs

Flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "packetc: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	cfg        config
	packetType moleculer.PacketType
	input      []byte
	serializer *moleculer.Serializer
	logger     zerolog.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("no command given")
	}
	name, args := args[0], args[1:]

	flagSet := pflag.NewFlagSet("packetc "+name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	configPath := flagSet.String("config", "", "read settings from a TOML or YAML file")
	typeName := flagSet.StringP("type", "t", "", "packet type, such as REQ or INFO")
	codecName := flagSet.StringP("codec", "c", "", "codec name (default json)")
	format := flagSet.StringP("format", "f", "", "encoded form: hex, base64, or raw (default hex)")
	binary := flagSet.Bool("binary", false, "carry raw params and data natively (default: codec decides)")
	logLevel := flagSet.String("log-level", "", "log level written to stderr (default info)")
	flagSet.Usage = func() {
		fmt.Fprint(stderr, usage)
		flagSet.PrintDefaults()
	}

	switch name {
	case "encode", "decode", "codecs":
	case "-h", "--help", "help":
		flagSet.Usage()
		return nil
	default:
		flagSet.Usage()
		return fmt.Errorf("unknown command %q", name)
	}
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	overrides := config{Codec: *codecName, Format: *format, LogLevel: *logLevel}
	if flagSet.Changed("binary") {
		overrides.Binary = binary
	}
	cfg.merge(overrides)
	if err := cfg.validate(); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        stderr,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()

	codecs := moleculer.NewCodecs(msgpack.New(), cbor.New(), protobuf.New())
	if name == "codecs" {
		for _, registered := range codecs.Names() {
			fmt.Fprintln(stdout, registered)
		}
		return nil
	}

	codec := codecs.Get(cfg.Codec)
	if codec == nil {
		return fmt.Errorf("unknown codec %q (have %s)", cfg.Codec, strings.Join(codecs.Names(), ", "))
	}
	if *typeName == "" {
		return errors.New("--type is required")
	}
	packetType, err := moleculer.ParsePacketType(strings.ToUpper(*typeName))
	if err != nil {
		return err
	}
	input, err := readInput(flagSet.Args(), stdin)
	if err != nil {
		return err
	}
	options := []moleculer.SerializerOption{moleculer.WithLogger(logger)}
	if cfg.Binary != nil {
		options = append(options, moleculer.WithBinaryFields(*cfg.Binary))
	}
	cmd := &command{
		cfg:        cfg,
		packetType: packetType,
		input:      input,
		serializer: moleculer.NewSerializer(codec, options...),
		logger:     logger.With().Str("codec", codec.Name()).Stringer("packet", packetType).Logger(),
	}
	if name == "encode" {
		return cmd.encode(stdout)
	}
	return cmd.decode(stdout)
}

func readInput(args []string, stdin io.Reader) ([]byte, error) {
	switch len(args) {
	case 0:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	case 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("expected at most one input file, got %d", len(args))
}

func (c *command) encode(stdout io.Writer) error {
	var rec moleculer.Record
	if err := json.Unmarshal(jsonc.ToJSON(c.input), &rec); err != nil {
		return fmt.Errorf("parse %s packet: %w", c.packetType, err)
	}
	// Input holds native values, never wire text, so strings in structured
	// fields stay values.
	for _, key := range moleculer.StructuredFields(c.packetType) {
		value, ok := rec[key]
		if !ok || value == nil {
			continue
		}
		if raw, ok := moleculer.ParseBuffer(value); ok && (key == "params" || key == "data") {
			rec[key] = moleculer.Bytes(raw)
			continue
		}
		rec[key] = moleculer.Value(value)
	}
	packet, err := moleculer.NewPacket(c.packetType)
	if err != nil {
		return err
	}
	if err := moleculer.FromRecord(rec, packet); err != nil {
		return err
	}
	data, err := c.serializer.Serialize(packet)
	if err != nil {
		return err
	}
	c.logger.Debug().Int("bytes", len(data)).Bool("binary", c.serializer.Binary()).Msg("encoded packet")

	switch c.cfg.Format {
	case formatHex:
		_, err = fmt.Fprintln(stdout, hex.EncodeToString(data))
	case formatBase64:
		_, err = fmt.Fprintln(stdout, base64.StdEncoding.EncodeToString(data))
	default:
		_, err = stdout.Write(data)
	}
	return err
}

func (c *command) decode(stdout io.Writer) error {
	data := c.input
	var err error
	switch c.cfg.Format {
	case formatHex:
		data, err = hex.DecodeString(string(bytes.TrimSpace(data)))
	case formatBase64:
		data, err = base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
	}
	if err != nil {
		return fmt.Errorf("decode %s input: %w", c.cfg.Format, err)
	}
	packet, err := c.serializer.Deserialize(c.packetType, data)
	if err != nil {
		return err
	}
	c.logger.Debug().Int("bytes", len(data)).Msg("decoded packet")

	rec, err := moleculer.ToRecord(packet)
	if err != nil {
		return err
	}
	for key, value := range rec {
		if raw, ok := value.([]byte); ok {
			rec[key] = moleculer.BufferValue(raw)
		}
	}
	encoder := json.NewEncoder(stdout)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rec)
}
