package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Aggregate is one grouped row: the distinct grouping-key tuple, the summed
// measures and the number of contributing records
type Aggregate struct {
	Key  []interface{}
	Sums map[string]float64
	Rows int
}

// KeyString returns the key component at position i as a string
func (a Aggregate) KeyString(i int) string {
	if i >= len(a.Key) || a.Key[i] == nil {
		return ""
	}
	if s, ok := a.Key[i].(string); ok {
		return s
	}
	return fmt.Sprintf("%v", a.Key[i])
}

// KeyInt returns the key component at position i as an int
func (a Aggregate) KeyInt(i int) int {
	if i >= len(a.Key) {
		return 0
	}
	switch v := a.Key[i].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// GroupSum groups records by the key columns and sums the measure columns.
// Sums run at full float64 precision; records with a missing or non-numeric
// measure simply contribute nothing to that sum. The result is sorted
// ascending by the key tuple, numbers numerically and strings
// lexicographically, so output is deterministic for any input order.
func GroupSum(records []Record, keyCols, sumCols []string) []Aggregate {
	groups := make(map[string]*Aggregate)

	for _, rec := range records {
		key := make([]interface{}, len(keyCols))
		parts := make([]string, len(keyCols))
		for i, col := range keyCols {
			key[i] = rec[col]
			parts[i] = fmt.Sprintf("%v", rec[col])
		}
		groupKey := strings.Join(parts, "\x1f")

		agg, ok := groups[groupKey]
		if !ok {
			agg = &Aggregate{Key: key, Sums: make(map[string]float64, len(sumCols))}
			groups[groupKey] = agg
		}
		for _, col := range sumCols {
			if v, ok := rec.Float(col); ok {
				agg.Sums[col] += v
			}
		}
		agg.Rows++
	}

	out := make([]Aggregate, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	SortAggregates(out)
	return out
}

// SortAggregates orders aggregates ascending by key tuple. Sorting an
// already-sorted slice is a no-op.
func SortAggregates(aggs []Aggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		return compareKeys(aggs[i].Key, aggs[j].Key) < 0
	})
}

func compareKeys(a, b []interface{}) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func compareValues(a, b interface{}) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	return strings.Compare(as, bs)
}

func asFloat(v interface{}) (float64, bool) {
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

// Round2 rounds to 2 decimal places, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round0 rounds to the nearest whole number
func Round0(v float64) float64 {
	return math.Round(v)
}

// ExportNumber applies the export numeric policy: sums are rounded to 2
// decimals, and integer-valued results serialize as integers rather than
// floats
func ExportNumber(v float64) interface{} {
	r := Round2(v)
	if r == math.Trunc(r) {
		return int64(r)
	}
	return r
}
