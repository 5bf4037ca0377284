package pipeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSum(t *testing.T) {
	records := []Record{
		{"year": 2020, "cat": "A", "v": 10.0},
		{"year": 2020, "cat": "A", "v": 5.0},
		{"year": 2021, "cat": "B", "v": 7.0},
	}
	got := GroupSum(records, []string{"year", "cat"}, []string{"v"})

	require.Len(t, got, 2)
	assert.Equal(t, 2020, got[0].KeyInt(0))
	assert.Equal(t, "A", got[0].KeyString(1))
	assert.Equal(t, 15.0, got[0].Sums["v"])
	assert.Equal(t, 2, got[0].Rows)
	assert.Equal(t, 2021, got[1].KeyInt(0))
	assert.Equal(t, "B", got[1].KeyString(1))
	assert.Equal(t, 7.0, got[1].Sums["v"])
}

func TestGroupSumConservationOfMass(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var records []Record
	input := 0.0
	for i := 0; i < 500; i++ {
		v := float64(rng.Intn(1000))
		input += v
		records = append(records, Record{
			"year": 2015 + rng.Intn(10),
			"cat":  string(rune('A' + rng.Intn(5))),
			"v":    v,
		})
	}

	output := 0.0
	for _, agg := range GroupSum(records, []string{"year", "cat"}, []string{"v"}) {
		output += agg.Sums["v"]
	}
	assert.InDelta(t, input, output, 1e-6, "grouping must not lose or invent mass")
}

func TestGroupSumIgnoresMissingMeasures(t *testing.T) {
	records := []Record{
		{"year": 2020, "v": 3.0},
		{"year": 2020, "v": nil},
		{"year": 2020},
	}
	got := GroupSum(records, []string{"year"}, []string{"v"})
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].Sums["v"])
	assert.Equal(t, 3, got[0].Rows)
}

func TestGroupSumDeterministicOrder(t *testing.T) {
	records := []Record{
		{"year": 2021, "cat": "B", "v": 1.0},
		{"year": 2020, "cat": "B", "v": 1.0},
		{"year": 2020, "cat": "A", "v": 1.0},
		{"year": 2019, "cat": "Z", "v": 1.0},
	}
	got := GroupSum(records, []string{"year", "cat"}, []string{"v"})

	require.Len(t, got, 4)
	assert.Equal(t, 2019, got[0].KeyInt(0))
	assert.Equal(t, 2020, got[1].KeyInt(0))
	assert.Equal(t, "A", got[1].KeyString(1))
	assert.Equal(t, 2020, got[2].KeyInt(0))
	assert.Equal(t, "B", got[2].KeyString(1))
	assert.Equal(t, 2021, got[3].KeyInt(0))

	// shuffled input yields the same output order
	shuffled := []Record{records[2], records[0], records[3], records[1]}
	again := GroupSum(shuffled, []string{"year", "cat"}, []string{"v"})
	assert.Equal(t, got, again)
}

func TestSortAggregatesIdempotent(t *testing.T) {
	aggs := []Aggregate{
		{Key: []interface{}{2021, "B"}},
		{Key: []interface{}{2020, "A"}},
		{Key: []interface{}{2020, "B"}},
	}
	SortAggregates(aggs)
	once := append([]Aggregate(nil), aggs...)
	SortAggregates(aggs)
	assert.Equal(t, once, aggs)
}

func TestSortAggregatesNumericBeforeLexicographic(t *testing.T) {
	// 9 < 10 numerically even though "10" < "9" as strings
	aggs := []Aggregate{
		{Key: []interface{}{10}},
		{Key: []interface{}{9}},
	}
	SortAggregates(aggs)
	assert.Equal(t, 9, aggs[0].KeyInt(0))
	assert.Equal(t, 10, aggs[1].KeyInt(0))
}

func TestExportNumber(t *testing.T) {
	assert.Equal(t, int64(15), ExportNumber(15.0))
	assert.Equal(t, int64(15), ExportNumber(15.000001))
	assert.Equal(t, 15.25, ExportNumber(15.25))
	assert.Equal(t, 15.26, ExportNumber(15.256))
	assert.Equal(t, int64(0), ExportNumber(0))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.239))
	assert.Equal(t, -1.24, Round2(-1.239))
}
