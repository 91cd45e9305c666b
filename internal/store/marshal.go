package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
)

// handleBytes is the stored form of a handle.
func handleBytes(h graph.Handle) []byte {
	b := make([]byte, len(h))
	copy(b, h[:])
	return b
}

func scanHandle(b []byte) (graph.Handle, error) {
	var h graph.Handle
	if len(b) != len(h) {
		return h, fmt.Errorf("stored handle has %d bytes", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// marshalValue converts a value to canonical JSON TEXT for storage.
func marshalValue(v ir.Value) (string, error) {
	if v == nil {
		v = ir.Null{}
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

func unmarshalValue(data string) (ir.Value, error) {
	v, err := ir.UnmarshalJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// marshalPath stores a record path as a JSON array. The empty path is "[]"
// so it takes part in the index_defs uniqueness constraint.
func marshalPath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	data, err := json.Marshal(path)
	if err != nil {
		return "", fmt.Errorf("marshal path: %w", err)
	}
	return string(data), nil
}

func unmarshalPath(data string) ([]string, error) {
	var path []string
	if err := json.Unmarshal([]byte(data), &path); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	if len(path) == 0 {
		return nil, nil
	}
	return path, nil
}

// marshalParts stores part types as {slot: handle} with sorted keys.
func marshalParts(parts map[string]graph.Handle) (string, error) {
	m := make(map[string]string, len(parts))
	for k, h := range parts {
		m[k] = h.String()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal parts: %w", err)
	}
	return string(data), nil
}

func unmarshalParts(data string) (map[string]graph.Handle, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal parts: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	parts := make(map[string]graph.Handle, len(m))
	for k, s := range m {
		h, err := graph.ParseHandle(s)
		if err != nil {
			return nil, fmt.Errorf("unmarshal parts: slot %q: %w", k, err)
		}
		parts[k] = h
	}
	return parts, nil
}
