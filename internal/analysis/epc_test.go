package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

func epcRecord(year int, bestemming, label string, count int) pipeline.Record {
	return pipeline.Record{"Jaar": year, "Bestemming": bestemming, "Energielabel": label, "Aantal": count}
}

func TestEPCShares(t *testing.T) {
	records := []pipeline.Record{
		epcRecord(2023, "Eengezinswoning", "A+", 10),
		epcRecord(2023, "Eengezinswoning", "A", 15),
		epcRecord(2023, "Eengezinswoning", "C", 75),
		epcRecord(2022, "Eengezinswoning", "A", 20),
		epcRecord(2022, "Eengezinswoning", "F", 80),
		epcRecord(2023, "Appartement", "A", 3),
	}

	points := epcShares(records, []string{"Appartement", "Eengezinswoning"},
		map[string]bool{"A+": true, "A": true})

	// newest year first, destinations in list order, absent groups skipped
	require.Len(t, points, 3)
	assert.Equal(t, 2023, points[0].Year)
	assert.Equal(t, "Appartement", points[0].BuildingType)
	assert.Equal(t, 100.0, points[0].Share)

	assert.Equal(t, "Eengezinswoning", points[1].BuildingType)
	assert.Equal(t, 25.0, points[1].Share)
	assert.Equal(t, 25, points[1].LabelCount)
	assert.Equal(t, 100, points[1].Total)

	assert.Equal(t, 2022, points[2].Year)
	assert.Equal(t, 20.0, points[2].Share)
}

func TestEPCSharesRounding(t *testing.T) {
	records := []pipeline.Record{
		epcRecord(2023, "Kantoor", "A", 1),
		epcRecord(2023, "Kantoor", "D", 2),
	}
	points := epcShares(records, []string{"Kantoor"}, map[string]bool{"A+": true, "A": true})
	require.Len(t, points, 1)
	assert.Equal(t, 33.33, points[0].Share)
}

func TestEPCSharesZeroTotal(t *testing.T) {
	// a group with rows but a zero count sum still appears, with share 0
	records := []pipeline.Record{
		epcRecord(2023, "Horeca", "A", 0),
		epcRecord(2023, "Horeca", "F", 0),
	}
	points := epcShares(records, []string{"Horeca"}, map[string]bool{"A+": true, "A": true})
	require.Len(t, points, 1)
	assert.Equal(t, 0.0, points[0].Share)
	assert.Equal(t, 0, points[0].Total)
}

const epcFixture = `Jaar;Bestemming;Energielabel;Aantal
2023;Eengezinswoning;A+;10
2023;Eengezinswoning;A;15
2023;Eengezinswoning;C;75
2023;Eengezinswoning;F;50
2023;Appartement;A;30
2023;Appartement;E;70
2023;Kantoor;A;40
2023;Kantoor;E;60
2022;Eengezinswoning;A;20
2022;Eengezinswoning;F;80
`

func writeEPCFixture(t *testing.T) Env {
	t.Helper()
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "epc-labelverdeling")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "epc_labelverdeling.csv"), []byte(epcFixture), 0644))
	return Env{DataDir: dataDir, ResultsDir: t.TempDir()}
}

func TestEPCRun(t *testing.T) {
	env := writeEPCFixture(t)
	stats, err := EPC{}.Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.RowsRead)
	assert.Equal(t, 4, stats.OutputsWritten)

	var resAA []epcAAPoint
	readOutput(t, env, "epc-labelverdeling", "residential_aa_share.json", &resAA)
	require.NotEmpty(t, resAA, "the source columns must be recognized")
	require.Len(t, resAA, 3)
	assert.Equal(t, epcAAPoint{Year: 2023, BuildingType: "Appartement",
		Share: 30.0, LabelAPlusA: 30, Total: 100}, resAA[0])
	assert.Equal(t, epcAAPoint{Year: 2023, BuildingType: "Eengezinswoning",
		Share: 16.67, LabelAPlusA: 25, Total: 150}, resAA[1])
	assert.Equal(t, 2022, resAA[2].Year)

	var resEF []epcEFPoint
	readOutput(t, env, "epc-labelverdeling", "residential_ef_share.json", &resEF)
	require.Len(t, resEF, 3)
	assert.Equal(t, epcEFPoint{Year: 2023, BuildingType: "Eengezinswoning",
		Share: 33.33, LabelEF: 50, Total: 150}, resEF[1])

	var nonResAA []epcAAPoint
	readOutput(t, env, "epc-labelverdeling", "non_residential_aa_share.json", &nonResAA)
	require.Len(t, nonResAA, 1)
	assert.Equal(t, "Kantoor", nonResAA[0].BuildingType)
	assert.Equal(t, 40.0, nonResAA[0].Share)

	var nonResEF []epcEFPoint
	readOutput(t, env, "epc-labelverdeling", "non_residential_ef_share.json", &nonResEF)
	require.Len(t, nonResEF, 1)
	assert.Equal(t, 60.0, nonResEF[0].Share)
}
