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
	"fmt"
	"math"
)

// A Record is the flat, self-describing view of a packet that codecs encode.
// Keys are the wire names of the moleculer protocol (ver, sender, id, action,
// params, meta, and so on). A packet Field appears as a string when it holds
// text, as a []byte when it holds raw bytes, as the value itself when it holds
// a structured value, and is missing when absent. FromRecord also accepts a
// Field itself, taken as is, for callers building packets from native values.
//
// Codecs for self-describing formats can marshal a Record directly. Decoders
// may produce any of the usual numeric types (int8 through uint64, float32,
// float64) for numeric keys; FromRecord accepts all of them.
type Record map[string]any

// ToRecord flattens a packet into a Record.
func ToRecord(p Packet) (Record, error) {
	if isNilPacket(p) {
		return nil, errNilPacket
	}
	rec := Record{}
	switch p := p.(type) {
	case *Info:
		rec.header(&p.Header)
		rec.field("services", p.Services)
		rec.field("config", p.Config)
		rec.strings("ipList", p.IPList)
		rec["hostname"] = p.Hostname
		rec["instanceID"] = p.InstanceID
		rec["seq"] = p.Seq
	case *Event:
		rec.header(&p.Header)
		rec["id"] = p.ID
		rec["event"] = p.Event
		rec.field("data", p.Data)
		rec.strings("groups", p.Groups)
		rec["broadcast"] = p.Broadcast
	case *Request:
		rec.header(&p.Header)
		rec["id"] = p.ID
		rec["action"] = p.Action
		rec.field("params", p.Params)
		rec.field("meta", p.Meta)
		rec["timeout"] = p.Timeout
		rec["level"] = p.Level
		rec["tracing"] = p.Tracing
		rec["parentID"] = p.ParentID
		rec["requestID"] = p.RequestID
		rec["caller"] = p.Caller
		rec["stream"] = p.Stream
		rec["seq"] = p.Seq
	case *Response:
		rec.header(&p.Header)
		rec["id"] = p.ID
		rec["success"] = p.Success
		rec.field("data", p.Data)
		rec.field("error", p.Error)
		rec.field("meta", p.Meta)
		rec["stream"] = p.Stream
		rec["seq"] = p.Seq
	case *GossipRequest:
		rec.header(&p.Header)
		rec.field("online", p.Online)
		rec.field("offline", p.Offline)
	case *GossipResponse:
		rec.header(&p.Header)
		rec.field("online", p.Online)
		rec.field("offline", p.Offline)
	case *Discover:
		rec.header(&p.Header)
	case *Disconnect:
		rec.header(&p.Header)
	case *Heartbeat:
		rec.header(&p.Header)
		rec["cpu"] = p.CPU
	case *Ping:
		rec.header(&p.Header)
		rec["time"] = p.Time
		rec["id"] = p.ID
	case *Pong:
		rec.header(&p.Header)
		rec["time"] = p.Time
		rec["arrived"] = p.Arrived
		rec["id"] = p.ID
	case *GossipHello:
		rec.header(&p.Header)
		rec["host"] = p.Host
		rec["port"] = p.Port
	default:
		return nil, unknownPacket(p)
	}
	return rec, nil
}

// FromRecord fills p from a Record. Missing keys leave the zero value, and
// keys that p doesn't declare are ignored. A key holding a value of the wrong
// kind, such as a number for "action", is an error.
func FromRecord(rec Record, p Packet) error {
	if isNilPacket(p) {
		return errNilPacket
	}
	r := &recordReader{rec: rec}
	switch p := p.(type) {
	case *Info:
		r.header(&p.Header)
		p.Services = r.getField("services")
		p.Config = r.getField("config")
		p.IPList = r.getStrings("ipList")
		p.Hostname = r.getString("hostname")
		p.InstanceID = r.getString("instanceID")
		p.Seq = r.getInt64("seq")
	case *Event:
		r.header(&p.Header)
		p.ID = r.getString("id")
		p.Event = r.getString("event")
		p.Data = r.getField("data")
		p.Groups = r.getStrings("groups")
		p.Broadcast = r.getBool("broadcast")
	case *Request:
		r.header(&p.Header)
		p.ID = r.getString("id")
		p.Action = r.getString("action")
		p.Params = r.getField("params")
		p.Meta = r.getField("meta")
		p.Timeout = r.getFloat64("timeout")
		p.Level = r.getInt32("level")
		p.Tracing = r.getBool("tracing")
		p.ParentID = r.getString("parentID")
		p.RequestID = r.getString("requestID")
		p.Caller = r.getString("caller")
		p.Stream = r.getBool("stream")
		p.Seq = r.getInt64("seq")
	case *Response:
		r.header(&p.Header)
		p.ID = r.getString("id")
		p.Success = r.getBool("success")
		p.Data = r.getField("data")
		p.Error = r.getField("error")
		p.Meta = r.getField("meta")
		p.Stream = r.getBool("stream")
		p.Seq = r.getInt64("seq")
	case *GossipRequest:
		r.header(&p.Header)
		p.Online = r.getField("online")
		p.Offline = r.getField("offline")
	case *GossipResponse:
		r.header(&p.Header)
		p.Online = r.getField("online")
		p.Offline = r.getField("offline")
	case *Discover:
		r.header(&p.Header)
	case *Disconnect:
		r.header(&p.Header)
	case *Heartbeat:
		r.header(&p.Header)
		p.CPU = r.getFloat64("cpu")
	case *Ping:
		r.header(&p.Header)
		p.Time = r.getInt64("time")
		p.ID = r.getString("id")
	case *Pong:
		r.header(&p.Header)
		p.Time = r.getInt64("time")
		p.Arrived = r.getInt64("arrived")
		p.ID = r.getString("id")
	case *GossipHello:
		r.header(&p.Header)
		p.Host = r.getString("host")
		p.Port = r.getInt32("port")
	default:
		return unknownPacket(p)
	}
	if r.err != nil {
		return fmt.Errorf("moleculer: decode %s: %w", p.Type(), r.err)
	}
	return nil
}

func (r Record) header(h *Header) {
	r["ver"] = h.Ver
	r["sender"] = h.Sender
}

func (r Record) field(key string, f Field) {
	if v, ok := f.wire(); ok {
		r[key] = v
	}
}

func (r Record) strings(key string, values []string) {
	if len(values) > 0 {
		r[key] = values
	}
}

// recordReader reads typed values from a Record, keeping the first error.
type recordReader struct {
	rec Record
	err error
}

func (r *recordReader) fail(key string, want string, got any) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: expected %s, got %T", key, want, got)
	}
}

func (r *recordReader) header(h *Header) {
	h.Ver = r.getString("ver")
	h.Sender = r.getString("sender")
}

func (r *recordReader) getField(key string) Field {
	v, ok := r.rec[key]
	if !ok || v == nil {
		return Field{}
	}
	if f, ok := v.(Field); ok {
		return f
	}
	return fieldFromWire(v)
}

func (r *recordReader) getString(key string) string {
	v, ok := r.rec[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "string", v)
	}
	return s
}

func (r *recordReader) getBool(key string) bool {
	v, ok := r.rec[key]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(key, "bool", v)
	}
	return b
}

func (r *recordReader) getFloat64(key string) float64 {
	v, ok := r.rec[key]
	if !ok || v == nil {
		return 0
	}
	f, ok := numberValue(v)
	if !ok {
		r.fail(key, "number", v)
	}
	return f
}

func (r *recordReader) getInt64(key string) int64 {
	v, ok := r.rec[key]
	if !ok || v == nil {
		return 0
	}
	n, ok := integerValue(v)
	if !ok {
		r.fail(key, "integer", v)
	}
	return n
}

func (r *recordReader) getInt32(key string) int32 {
	n := r.getInt64(key)
	if n < math.MinInt32 || n > math.MaxInt32 {
		r.fail(key, "int32", n)
		return 0
	}
	return int32(n)
}

func (r *recordReader) getStrings(key string) []string {
	v, ok := r.rec[key]
	if !ok || v == nil {
		return nil
	}
	switch values := v.(type) {
	case []string:
		if len(values) == 0 {
			return nil
		}
		return values
	case []any:
		if len(values) == 0 {
			return nil
		}
		out := make([]string, len(values))
		for i, elem := range values {
			s, ok := elem.(string)
			if !ok {
				r.fail(key, "string list", elem)
				return nil
			}
			out[i] = s
		}
		return out
	}
	r.fail(key, "string list", v)
	return nil
}

// numberValue converts any decoded numeric type to float64.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := signedValue(v); ok {
		return float64(i), true
	}
	if u, ok := unsignedValue(v); ok {
		return float64(u), true
	}
	return 0, false
}

// integerValue converts any decoded numeric type holding a whole number that
// fits in an int64.
func integerValue(v any) (int64, bool) {
	if i, ok := signedValue(v); ok {
		return i, true
	}
	if u, ok := unsignedValue(v); ok {
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func signedValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func unsignedValue(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}
