package analysis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

const approvalsFixture = `CD_YEAR|CD_PERIOD|CD_REFNIS_LEVEL|CD_REFNIS_MUNICIPALITY|REFNIS_NL|MS_BUILDING_RES_RENOVATION|MS_DWELLING_RES_NEW|MS_APARTMENT_RES_NEW|MS_SINGLE_HOUSE_RES_NEW
2023|1|5|44021|Gent|3|10|6|4
2023|2|5|44021|Gent|2|5|3|2
2023|0|5|44021|Gent|99|99|99|99
2023|1|4|40000|Arr. Gent|1|1|1|1
2017|1|5|44021|Gent|1|2|1|1
`

func writeApprovalsFixture(t *testing.T) Env {
	t.Helper()
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "vergunningen-goedkeuringen")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "BV_opendata_260120_102955.txt"),
		[]byte(approvalsFixture), 0644))
	return Env{DataDir: dataDir, ResultsDir: t.TempDir()}
}

func TestApprovalsRun(t *testing.T) {
	env := writeApprovalsFixture(t)
	stats, err := Approvals{}.Run(context.Background(), env)
	require.NoError(t, err)

	// yearly totals row and district-level row are skipped
	assert.Equal(t, 5, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsSkipped)

	// periods 1 and 2 are both months of quarter 1
	var quarterly []approvalQuarterPoint
	readOutput(t, env, "vergunningen-goedkeuringen", "data_quarterly.json", &quarterly)
	require.Len(t, quarterly, 2)
	assert.Equal(t, approvalQuarterPoint{Year: 2017, Quarter: 1, Municipality: 44021,
		Renovations: 1, Dwellings: 2, Apartments: 1, Houses: 1}, quarterly[0])
	assert.Equal(t, approvalQuarterPoint{Year: 2023, Quarter: 1, Municipality: 44021,
		Renovations: 5, Dwellings: 15, Apartments: 9, Houses: 6}, quarterly[1])

	var municipalities []municipalityEntry
	readOutput(t, env, "vergunningen-goedkeuringen", "municipalities.json", &municipalities)
	require.Len(t, municipalities, 1)
	assert.Equal(t, municipalityEntry{Code: 44021, Name: "Gent"}, municipalities[0])

	// monthly series only covers recent years
	var monthly []approvalMonthPoint
	readOutput(t, env, "vergunningen-goedkeuringen", "data_monthly.json", &monthly)
	require.Len(t, monthly, 2)
	assert.Equal(t, 1, monthly[0].Month)
	assert.Equal(t, 2, monthly[1].Month)
	for _, p := range monthly {
		assert.Greater(t, p.Year, 2018)
	}
}

func TestApprovalsYearlyAndMunicipalityFiles(t *testing.T) {
	env := writeApprovalsFixture(t)
	_, err := Approvals{}.Run(context.Background(), env)
	require.NoError(t, err)
	base := filepath.Join(env.ResultsDir, "vergunningen-goedkeuringen")

	var index []yearIndexEntry
	readOutput(t, env, "vergunningen-goedkeuringen", "yearly_index.json", &index)
	require.Len(t, index, 2)
	assert.Equal(t, 2017, index[0].Year)
	assert.Equal(t, 2023, index[1].Year)

	var year2023 []approvalYearPoint
	data, err := os.ReadFile(filepath.Join(base, index[1].File))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &year2023))
	require.Len(t, year2023, 1)
	assert.Equal(t, approvalYearPoint{Year: 2023, Municipality: 44021,
		Renovations: 5, Dwellings: 15, Apartments: 9, Houses: 6}, year2023[0])

	var munIndex []municipalityIndexEntry
	readOutput(t, env, "vergunningen-goedkeuringen", "municipality_index.json", &munIndex)
	require.Len(t, munIndex, 1)
	assert.Equal(t, "44021", munIndex[0].Code)
	assert.Equal(t, [2]int{2023, 2023}, munIndex[0].Years)

	var series []municipalitySeriesPoint
	data, err = os.ReadFile(filepath.Join(base, munIndex[0].File))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &series))
	require.Len(t, series, 2)
	assert.Equal(t, 1, series[0].Month)
}

func TestResolveApprovalsInputPicksNewest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "BV_opendata_250101_000000.txt")
	newer := filepath.Join(dir, "BV_opendata_260120_102955.txt")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0644))
	require.NoError(t, os.WriteFile(newer, []byte("new"), 0644))
	// make mtimes unambiguous
	past := mustParseTime(t, "2025-01-01T00:00:00Z")
	require.NoError(t, os.Chtimes(old, past, past))

	got, err := resolveApprovalsInput(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func TestResolveApprovalsInputMissing(t *testing.T) {
	_, err := resolveApprovalsInput(context.Background(), t.TempDir())
	assert.Error(t, err)
}
