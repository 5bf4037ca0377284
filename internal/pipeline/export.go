package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Exporter serializes output series to JSON files under a results directory,
// optionally mirrored into a public data directory for the static site.
// Writes are atomic: the payload is fully encoded in memory, written to a
// temp file next to the destination and renamed into place, so a failed run
// never leaves a truncated output behind.
type Exporter struct {
	ResultsDir string
	PublicDir  string // empty disables the mirror
}

// WriteJSON writes v as indented UTF-8 JSON. name may contain
// subdirectories; missing directories are created.
func (e *Exporter) WriteJSON(name string, v interface{}) error {
	return e.write(name, v, true)
}

// WriteJSONCompact writes v without indentation, for the large series files
// fetched by the frontend
func (e *Exporter) WriteJSONCompact(name string, v interface{}) error {
	return e.write(name, v, false)
}

func (e *Exporter) write(name string, v interface{}, indent bool) error {
	payload, err := MarshalJSON(v, indent)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	if err := writeAtomic(filepath.Join(e.ResultsDir, name), payload); err != nil {
		return err
	}
	if e.PublicDir != "" {
		if err := writeAtomic(filepath.Join(e.PublicDir, name), payload); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON encodes v as UTF-8 JSON without escaping non-ASCII or HTML
// characters
func MarshalJSON(v interface{}, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// OrderedMap is a JSON object that preserves key insertion order, for the
// named-series outputs where the frontend relies on key order
type OrderedMap struct {
	keys   []string
	values map[string]interface{}
}

// NewOrderedMap returns an empty ordered map
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]interface{})}
}

// Set inserts or replaces a key, keeping first-insertion order
func (m *OrderedMap) Set(key string, value interface{}) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key
func (m *OrderedMap) Get(key string) (interface{}, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (m *OrderedMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// MarshalJSON serializes the map with keys in insertion order
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := marshalNoEscape(m.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
