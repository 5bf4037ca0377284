package analysis

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestYearFromFilename(t *testing.T) {
	assert.Equal(t, 2013, yearFromFilename("localunit-val-nl-20134.xlsx"))
	assert.Equal(t, 2024, yearFromFilename("localunit-val-nl-2024.xlsx"))
	assert.Equal(t, 0, yearFromFilename("localunit-val-nl.xlsx"))
}

func writeEmploymentWorkbook(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range []string{"tabel8", "tabel9", "tabel10", "tabel11"} {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	// data starts at row 8; column U carries the construction count
	require.NoError(t, f.SetCellValue("tabel8", "A8", "Antwerpen"))
	require.NoError(t, f.SetCellValue("tabel8", "U8", 120))
	require.NoError(t, f.SetCellValue("tabel8", "A9", "West-Vlaanderen"))
	require.NoError(t, f.SetCellValue("tabel8", "U9", 80))
	// arrondissement row without a province name is skipped
	require.NoError(t, f.SetCellValue("tabel8", "B10", "Arr. Antwerpen"))
	require.NoError(t, f.SetCellValue("tabel8", "U10", 999))
	// region total is not a province
	require.NoError(t, f.SetCellValue("tabel8", "A11", "Vlaams Gewest"))
	require.NoError(t, f.SetCellValue("tabel8", "U11", 5000))
	// unparseable count is dropped, not treated as zero
	require.NoError(t, f.SetCellValue("tabel8", "A12", "Limburg"))
	require.NoError(t, f.SetCellValue("tabel8", "U12", "n.b."))

	require.NoError(t, f.SetCellValue("tabel9", "A8", "Antwerpen"))
	require.NoError(t, f.SetCellValue("tabel9", "U8", 30))
	require.NoError(t, f.SetCellValue("tabel10", "A8", "Antwerpen"))
	require.NoError(t, f.SetCellValue("tabel10", "U8", 55))

	path := filepath.Join(dir, "localunit-val-nl-2023.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExtractWorkbook(t *testing.T) {
	path := writeEmploymentWorkbook(t, t.TempDir())

	records, dropped, err := extractWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, records, 4)

	first := records[0]
	assert.Equal(t, 2023, first["year"])
	assert.Equal(t, "Antwerpen", first["province"])
	assert.Equal(t, "arbeiders", first["type"])
	assert.Equal(t, "mannen", first["gender"])
	assert.Equal(t, 120.0, first["count"])

	var types []string
	for _, rec := range records {
		types = append(types, rec.String("type")+"/"+rec.String("gender"))
	}
	assert.Equal(t, []string{"arbeiders/mannen", "arbeiders/mannen", "arbeiders/vrouwen", "bedienden/mannen"}, types)
}
