package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeEnergyWorkbook(t *testing.T) Env {
	t.Helper()
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "silc-energie-2023")
	require.NoError(t, os.MkdirAll(dir, 0755))

	f := excelize.NewFile()
	defer f.Close()
	for _, sheet := range energySheets {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	require.NoError(t, f.SetCellValue("Overzicht", "A1", "Indicator"))
	require.NoError(t, f.SetCellValue("Overzicht", "B1", "Waarde"))
	require.NoError(t, f.SetCellValue("Overzicht", "A2", "Aandeel verwarmd met gas"))
	require.NoError(t, f.SetCellValue("Overzicht", "B2", 48.6))
	require.NoError(t, f.SetCellValue("Verwarmingssysteem", "A1", "Warmtepomp"))

	require.NoError(t, f.SaveAs(filepath.Join(dir, "SILC_module2023_HEE_PUBLICATION_NL.xlsx")))
	return Env{DataDir: dataDir, ResultsDir: t.TempDir()}
}

func TestEnergyRun(t *testing.T) {
	env := writeEnergyWorkbook(t)
	stats, err := Energy{}.Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OutputsWritten)

	data, err := os.ReadFile(filepath.Join(env.ResultsDir, "silc-energie-2023", "processed_data.json"))
	require.NoError(t, err)
	out := string(data)

	// sheets appear in workbook processing order
	assert.Less(t, strings.Index(out, `"Overzicht"`), strings.Index(out, `"Verwarmingssysteem"`))
	assert.Contains(t, out, "Aandeel verwarmd met gas")
	// cells are keyed by column position
	assert.Contains(t, out, `"0":`)
	assert.Contains(t, out, `"1":`)
}
