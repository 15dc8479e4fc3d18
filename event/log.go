package event

import (
	"sort"
	"strconv"
)

// LogEvent is an ordered mapping from dotted path to Value. It backs both
// the Log and Trace event variants (spec: "Trace: same shape as Log but
// tagged for downstream routing").
//
// Grounded on vector's BTreeMap<Atom, Value> field map plus
// src/event/util/log/{get,all_fields}.rs for path semantics.
type LogEvent struct {
	fields map[string]Value
}

// newLogFields returns an empty LogEvent field map.
func newLogFields() LogEvent {
	return LogEvent{fields: make(map[string]Value)}
}

// Insert sets the value at path, creating intermediate maps and extending
// arrays with Null as needed. Intermediate maps are auto-created on insert;
// arrays are extended with Nulls to reach an index (spec §4.1).
func (l *LogEvent) Insert(path string, v Value) {
	if l.fields == nil {
		l.fields = make(map[string]Value)
	}
	nodes := parsePath(path)
	if len(nodes) == 0 {
		return
	}
	if len(nodes) == 1 && !nodes[0].isIndex {
		l.fields[nodes[0].key] = v
		return
	}
	if nodes[0].isIndex {
		// A bare top-level index has no array to live in; ignore.
		return
	}
	root, ok := l.fields[nodes[0].key]
	if !ok {
		root = containerFor(nodes[1])
	}
	l.fields[nodes[0].key] = insertInto(root, nodes[1:], v)
}

func containerFor(n pathNode) Value {
	if n.isIndex {
		return Value{kind: ValueArray}
	}
	return Value{kind: ValueMap, m: map[string]Value{}}
}

func insertInto(container Value, nodes []pathNode, v Value) Value {
	if len(nodes) == 0 {
		return v
	}
	n := nodes[0]
	if n.isIndex {
		if container.kind != ValueArray {
			container = Value{kind: ValueArray}
		}
		for len(container.arr) <= n.index {
			container.arr = append(container.arr, Null())
		}
		child := container.arr[n.index]
		if len(nodes) == 1 {
			container.arr[n.index] = v
		} else {
			if child.kind != ValueMap && child.kind != ValueArray {
				child = containerFor(nodes[1])
			}
			container.arr[n.index] = insertInto(child, nodes[1:], v)
		}
		return container
	}

	if container.kind != ValueMap {
		container = Value{kind: ValueMap, m: map[string]Value{}}
	}
	if container.m == nil {
		container.m = map[string]Value{}
	}
	if len(nodes) == 1 {
		container.m[n.key] = v
		return container
	}
	child, ok := container.m[n.key]
	if !ok {
		child = containerFor(nodes[1])
	}
	container.m[n.key] = insertInto(child, nodes[1:], v)
	return container
}

// Get returns the value at path, or (Value{}, false) on any mismatch along
// the path. Get never fails — a missing component is simply "absent".
func (l LogEvent) Get(path string) (Value, bool) {
	nodes := parsePath(path)
	if len(nodes) == 0 {
		return Value{}, false
	}
	if nodes[0].isIndex {
		return Value{}, false
	}
	v, ok := l.fields[nodes[0].key]
	if !ok {
		return Value{}, false
	}
	return getValue(v, nodes[1:])
}

func getValue(v Value, nodes []pathNode) (Value, bool) {
	if len(nodes) == 0 {
		return v, true
	}
	n := nodes[0]
	if n.isIndex {
		if v.kind != ValueArray || n.index < 0 || n.index >= len(v.arr) {
			return Value{}, false
		}
		return getValue(v.arr[n.index], nodes[1:])
	}
	if v.kind != ValueMap {
		return Value{}, false
	}
	child, ok := v.m[n.key]
	if !ok {
		return Value{}, false
	}
	return getValue(child, nodes[1:])
}

// Remove deletes the value at path, if present. It is a no-op if any
// intermediate component does not exist.
func (l *LogEvent) Remove(path string) {
	nodes := parsePath(path)
	if len(nodes) == 0 || nodes[0].isIndex {
		return
	}
	if len(nodes) == 1 {
		delete(l.fields, nodes[0].key)
		return
	}
	root, ok := l.fields[nodes[0].key]
	if !ok {
		return
	}
	removeFrom(&root, nodes[1:])
	l.fields[nodes[0].key] = root
}

func removeFrom(container *Value, nodes []pathNode) {
	if len(nodes) == 0 {
		return
	}
	n := nodes[0]
	if n.isIndex {
		if container.kind != ValueArray || n.index < 0 || n.index >= len(container.arr) {
			return
		}
		if len(nodes) == 1 {
			container.arr[n.index] = Null()
			return
		}
		child := container.arr[n.index]
		removeFrom(&child, nodes[1:])
		container.arr[n.index] = child
		return
	}
	if container.kind != ValueMap {
		return
	}
	if len(nodes) == 1 {
		delete(container.m, n.key)
		return
	}
	child, ok := container.m[n.key]
	if !ok {
		return
	}
	removeFrom(&child, nodes[1:])
	container.m[n.key] = child
}

// FieldPair is one (path, value) entry yielded by AllFields.
type FieldPair struct {
	Path  string
	Value Value
}

// AllFields returns every (path, value) leaf pair in the event, ordered
// lexicographically over map keys and ascending for array indices,
// depth-first. The returned sequence is finite and may be iterated
// repeatedly (restartable), since it is materialized eagerly.
//
// Grounded on vector's FieldsIter (src/event/util/log/all_fields.rs).
func (l LogEvent) AllFields() []FieldPair {
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []FieldPair
	for _, k := range keys {
		collectFields(k, l.fields[k], &out)
	}
	return out
}

func collectFields(prefix string, v Value, out *[]FieldPair) {
	switch v.kind {
	case ValueMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectFields(prefix+"."+k, v.m[k], out)
		}
	case ValueArray:
		for i, e := range v.arr {
			collectFields(prefix+indexSuffix(i), e, out)
		}
	default:
		*out = append(*out, FieldPair{Path: prefix, Value: v})
	}
}

func indexSuffix(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// Clone returns a deep copy of l.
func (l LogEvent) Clone() LogEvent {
	cp := make(map[string]Value, len(l.fields))
	for k, v := range l.fields {
		cp[k] = v.Clone()
	}
	return LogEvent{fields: cp}
}

// Equal reports whether l and other hold the same fields by value-equality.
func (l LogEvent) Equal(other LogEvent) bool {
	if len(l.fields) != len(other.fields) {
		return false
	}
	for k, v := range l.fields {
		ov, ok := other.fields[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
