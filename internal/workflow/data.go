// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the per-node configuration payload and its copy rules.
package workflow

import "maps"

// Data is a node's type-specific configuration payload.
type Data map[string]any

// Clone deep-copies nested maps and slices so the result shares no mutable
// state with d.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a copy of d with the top-level keys of partial applied.
func (d Data) Merge(partial Data) Data {
	out := d.Clone()
	if out == nil {
		out = Data{}
	}
	for k, v := range partial {
		out[k] = cloneValue(v)
	}
	return out
}

// Without returns a copy of d with the given keys removed.
func (d Data) Without(keys ...string) Data {
	out := d.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// String returns the string stored at key, or "".
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Data:
		return t.Clone()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case map[string]string:
		return maps.Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e).(map[string]any)
		}
		return out
	default:
		return v
	}
}
