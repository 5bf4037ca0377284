package analysis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

// Energy exports the SILC 2023 household-energy module (heating systems,
// energy sources, insulation improvements). The workbook has no stable header
// rows, so every sheet is exported raw: one object per row, cells keyed by
// column position.
type Energy struct{}

func (Energy) Name() string { return "silc-energie-2023" }

func (Energy) Description() string {
	return "SILC 2023 household energy module sheets (Statbel)"
}

var energySheets = []string{
	"Overzicht",
	"Verwarmingssysteem",
	"Belangrijkste energiebron",
	"Isolatie verbeterd",
}

func (e Energy) Run(ctx context.Context, env Env) (pipeline.Stats, error) {
	var stats pipeline.Stats

	path := env.Data(e.Name(), "SILC_module2023_HEE_PUBLICATION_NL.xlsx")
	wb, err := pipeline.OpenWorkbook(path)
	if err != nil {
		return stats, err
	}
	defer wb.Close()

	format := pipeline.Format{}
	results := pipeline.NewOrderedMap()
	for _, sheet := range energySheets {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		rows, err := wb.Rows(sheet)
		if err != nil {
			return stats, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		sheetRows := make([]*pipeline.OrderedMap, 0, len(rows))
		for _, row := range rows {
			rec := pipeline.NewOrderedMap()
			for col, cell := range row {
				rec.Set(strconv.Itoa(col), format.ParseValue(cell))
			}
			sheetRows = append(sheetRows, rec)
		}
		results.Set(sheet, sheetRows)
		stats.RowsRead += len(rows)
		fmt.Printf("📄 Sheet %s: %d rows\n", sheet, len(rows))
	}

	exporter := env.Exporter(e.Name())
	if err := exporter.WriteJSON("processed_data.json", results); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	fmt.Printf("💾 Wrote processed_data.json (%d sheets)\n", len(energySheets))
	return stats, nil
}
