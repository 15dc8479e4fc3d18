// Package event defines the canonical value exchanged through the buffer:
// a discriminated union over Log, Metric, and Trace events, plus the scalar
// Value type used by Log and Trace field maps.
//
// Reference: vector's event model (lib/value, src/event/util/log).
package event

import (
	"fmt"
	"time"
)

// Kind identifies which of the three Event variants a value holds.
type Kind uint8

const (
	KindLog Kind = iota
	KindMetric
	KindTrace
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindMetric:
		return "metric"
	case KindTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ValueKind identifies the concrete type held by a Value.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt64
	ValueFloat64
	ValueBytes
	ValueTimestamp
	ValueArray
	ValueMap
)

// Value is a single scalar or container held at a path within a Log or
// Trace event's field map. The zero Value is Null.
type Value struct {
	kind  ValueKind
	b     bool
	i     int64
	f     float64
	bytes []byte
	t     time.Time
	arr   []Value
	m     map[string]Value
}

func Null() Value                { return Value{kind: ValueNull} }
func Bool(b bool) Value          { return Value{kind: ValueBool, b: b} }
func Int64(i int64) Value        { return Value{kind: ValueInt64, i: i} }
func Float64(f float64) Value    { return Value{kind: ValueFloat64, f: f} }
func Bytes(b []byte) Value       { return Value{kind: ValueBytes, bytes: append([]byte(nil), b...)} }
func String(s string) Value      { return Bytes([]byte(s)) }
func Timestamp(t time.Time) Value { return Value{kind: ValueTimestamp, t: t} }

// Array constructs an array Value from the given elements, copying them.
func Array(vs ...Value) Value {
	a := make([]Value, len(vs))
	copy(a, vs)
	return Value{kind: ValueArray, arr: a}
}

// Map constructs a map Value, deep-copying the supplied entries.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v.Clone()
	}
	return Value{kind: ValueMap, m: cp}
}

// Kind reports the concrete type held by v.
func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsBool() (bool, bool)             { return v.b, v.kind == ValueBool }
func (v Value) AsInt64() (int64, bool)           { return v.i, v.kind == ValueInt64 }
func (v Value) AsFloat64() (float64, bool)        { return v.f, v.kind == ValueFloat64 }
func (v Value) AsBytes() ([]byte, bool)          { return v.bytes, v.kind == ValueBytes }
func (v Value) AsTimestamp() (time.Time, bool)    { return v.t, v.kind == ValueTimestamp }
func (v Value) AsArray() ([]Value, bool)         { return v.arr, v.kind == ValueArray }
func (v Value) AsMap() (map[string]Value, bool)  { return v.m, v.kind == ValueMap }

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case ValueBytes:
		return Bytes(v.bytes)
	case ValueArray:
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Clone()
		}
		return Value{kind: ValueArray, arr: out}
	case ValueMap:
		return Map(v.m)
	default:
		return v
	}
}

// Equal reports whether v and other are structurally and value-equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueNull:
		return true
	case ValueBool:
		return v.b == other.b
	case ValueInt64:
		return v.i == other.i
	case ValueFloat64:
		return v.f == other.f
	case ValueBytes:
		return string(v.bytes) == string(other.bytes)
	case ValueTimestamp:
		return v.t.Equal(other.t)
	case ValueArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case ValueMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := other.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case ValueNull:
		return "null"
	case ValueBool:
		return fmt.Sprintf("%t", v.b)
	case ValueInt64:
		return fmt.Sprintf("%d", v.i)
	case ValueFloat64:
		return fmt.Sprintf("%g", v.f)
	case ValueBytes:
		return string(v.bytes)
	case ValueTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case ValueArray:
		return fmt.Sprintf("%v", v.arr)
	case ValueMap:
		return fmt.Sprintf("%v", v.m)
	default:
		return "<invalid>"
	}
}
