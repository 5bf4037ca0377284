package pipeline

import (
	"strconv"
	"strings"
)

// Record is a schema-agnostic map for a single source row
type Record map[string]interface{}

// Stats collects per-run data-quality counters for an analysis
type Stats struct {
	RowsRead       int `json:"rows_read"`
	RowsSkipped    int `json:"rows_skipped"`
	CellsDropped   int `json:"cells_dropped"`
	OutputsWritten int `json:"outputs_written"`
}

// Add merges counters from another stage into s
func (s *Stats) Add(other Stats) {
	s.RowsRead += other.RowsRead
	s.RowsSkipped += other.RowsSkipped
	s.CellsDropped += other.CellsDropped
	s.OutputsWritten += other.OutputsWritten
}

// String returns the field as a trimmed string ("" when absent or nil)
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

// Float returns the field as float64 and whether it held a numeric value
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// Int returns the field as int and whether it held a numeric value
func (r Record) Int(key string) (int, bool) {
	f, ok := r.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// IsNull reports whether the field is absent or nil
func (r Record) IsNull(key string) bool {
	v, ok := r[key]
	return !ok || v == nil
}

// Format describes the dialect of a delimited source file
type Format struct {
	Comma          rune     // field separator; ',' when zero
	Decimal        byte     // decimal separator; '.' when zero
	Thousands      byte     // thousands separator; none when zero
	Renames        []string // positional column renames applied to the header
	NumericColumns []string // columns parsed as numbers; parse failures are counted and stored as nil
	RawColumns     []string // columns kept as raw strings, bypassing value parsing
	Latin1Fallback bool     // retry as ISO 8859-1 when the file is not valid UTF-8
}

func (f Format) comma() rune {
	if f.Comma == 0 {
		return ','
	}
	return f.Comma
}

// ParseValue converts a raw cell to int, float64 or string, honouring the
// format's decimal and thousands separators. Empty cells become nil.
func (f Format) ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// try int
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	// try float, after normalizing locale separators
	n := s
	if f.Thousands != 0 {
		n = strings.ReplaceAll(n, string(f.Thousands), "")
	}
	if f.Decimal != 0 && f.Decimal != '.' {
		n = strings.ReplaceAll(n, string(f.Decimal), ".")
	}
	if i, err := strconv.Atoi(n); err == nil {
		return i
	}
	if v, err := strconv.ParseFloat(n, 64); err == nil {
		return v
	}
	return s
}

// ParseNumber is ParseValue restricted to numeric results
func (f Format) ParseNumber(s string) (float64, bool) {
	switch v := f.ParseValue(s).(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
