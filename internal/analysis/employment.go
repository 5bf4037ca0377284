package analysis

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

// Employment processes the RSZ local-unit employment workbooks for the
// construction sector (arbeiders vs bedienden, 2013-2024). One workbook per
// year; four sheets, each a type × gender combination; data rows start below
// the merged title block and the construction-sector count sits in column U.
type Employment struct{}

func (Employment) Name() string { return "arbeiders-bedienden" }

func (Employment) Description() string {
	return "Construction-sector employment per province, worker type and gender (RSZ)"
}

// Sheet roles in the RSZ workbook, per the published excel mapping
var employmentSheets = []struct {
	Sheet  string
	Type   string
	Gender string
}{
	{"tabel8", "arbeiders", "mannen"},
	{"tabel9", "arbeiders", "vrouwen"},
	{"tabel10", "bedienden", "mannen"},
	{"tabel11", "bedienden", "vrouwen"},
}

// Province-level rows only; region totals and "niet nader bepaald" are
// excluded. Brussels is both a region and a province and is kept.
var provinceNames = map[string]bool{
	"Antwerpen":             true,
	"Brussels Hoofdst. Gew.": true,
	"Henegouwen":            true,
	"Limburg":               true,
	"Luik":                  true,
	"Luxemburg":             true,
	"Namen":                 true,
	"Oost-Vlaanderen":       true,
	"Vlaams-Brabant":        true,
	"Waals-Brabant":         true,
	"West-Vlaanderen":       true,
}

const (
	employmentDataStartRow    = 7  // rows above hold the merged title and header
	employmentConstructionCol = 20 // column U: Bouwnijverheid
)

var yearRe = regexp.MustCompile(`(\d{4})`)

type employmentDetailPoint struct {
	Year   int    `json:"year"`
	Type   string `json:"type"`
	Gender string `json:"gender"`
	Count  int    `json:"count"`
}

type employmentTypePoint struct {
	Year  int    `json:"year"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type employmentTotalPoint struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

type employmentProvincePoint struct {
	Province string `json:"province"`
	Type     string `json:"type"`
	Count    int    `json:"count"`
}

type employmentProvinceSeriesPoint struct {
	Year     int    `json:"year"`
	Province string `json:"province"`
	Type     string `json:"type"`
	Count    int    `json:"count"`
}

func (e Employment) Run(ctx context.Context, env Env) (pipeline.Stats, error) {
	var stats pipeline.Stats

	pattern := env.Data(e.Name(), "localunit-val-nl-*.xlsx")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return stats, fmt.Errorf("failed to list workbooks: %w", err)
	}
	if len(files) == 0 {
		return stats, fmt.Errorf("no workbooks found matching %s", pattern)
	}
	sort.Strings(files)
	fmt.Printf("📄 Found %d RSZ workbooks\n", len(files))

	var records []pipeline.Record
	for _, file := range files {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		fileRecords, dropped, err := extractWorkbook(file)
		if err != nil {
			fmt.Printf("❌ Skipping %s: %v\n", filepath.Base(file), err)
			continue
		}
		records = append(records, fileRecords...)
		stats.CellsDropped += dropped
	}
	stats.RowsRead = len(records)
	fmt.Printf("📄 Extracted %d province-level data points\n", len(records))
	if len(records) == 0 {
		return stats, fmt.Errorf("no usable data points in %d workbooks", len(files))
	}

	exporter := env.Exporter(e.Name())

	// year + type + gender
	detailed := make([]employmentDetailPoint, 0)
	for _, agg := range pipeline.GroupSum(records, []string{"year", "type", "gender"}, []string{"count"}) {
		detailed = append(detailed, employmentDetailPoint{
			Year:   agg.KeyInt(0),
			Type:   agg.KeyString(1),
			Gender: agg.KeyString(2),
			Count:  int(math.Round(agg.Sums["count"])),
		})
	}
	if err := exporter.WriteJSON("time_series_detailed.json", detailed); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	// year + type, genders summed
	byType := make([]employmentTypePoint, 0)
	for _, agg := range pipeline.GroupSum(records, []string{"year", "type"}, []string{"count"}) {
		byType = append(byType, employmentTypePoint{
			Year:  agg.KeyInt(0),
			Type:  agg.KeyString(1),
			Count: int(math.Round(agg.Sums["count"])),
		})
	}
	if err := exporter.WriteJSON("time_series_by_type.json", byType); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	// year only
	totals := make([]employmentTotalPoint, 0)
	latestYear := 0
	for _, agg := range pipeline.GroupSum(records, []string{"year"}, []string{"count"}) {
		year := agg.KeyInt(0)
		if year > latestYear {
			latestYear = year
		}
		totals = append(totals, employmentTotalPoint{Year: year, Count: int(math.Round(agg.Sums["count"]))})
	}
	if err := exporter.WriteJSON("time_series_total.json", totals); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	// latest year per province + type
	var latest []pipeline.Record
	for _, rec := range records {
		if year, _ := rec.Int("year"); year == latestYear {
			latest = append(latest, rec)
		}
	}
	provinceLatest := make([]employmentProvincePoint, 0)
	for _, agg := range pipeline.GroupSum(latest, []string{"province", "type"}, []string{"count"}) {
		provinceLatest = append(provinceLatest, employmentProvincePoint{
			Province: agg.KeyString(0),
			Type:     agg.KeyString(1),
			Count:    int(math.Round(agg.Sums["count"])),
		})
	}
	if err := exporter.WriteJSON("province_latest.json", provinceLatest); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	// year + province + type
	provinceSeries := make([]employmentProvinceSeriesPoint, 0)
	for _, agg := range pipeline.GroupSum(records, []string{"year", "province", "type"}, []string{"count"}) {
		provinceSeries = append(provinceSeries, employmentProvinceSeriesPoint{
			Year:     agg.KeyInt(0),
			Province: agg.KeyString(1),
			Type:     agg.KeyString(2),
			Count:    int(math.Round(agg.Sums["count"])),
		})
	}
	if err := exporter.WriteJSON("time_series_by_province.json", provinceSeries); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	fmt.Printf("💾 Wrote 5 employment series (years %d-%d)\n", totals[0].Year, latestYear)
	return stats, nil
}

// extractWorkbook pulls the construction-sector counts for all four
// type × gender sheets of one yearly workbook
func extractWorkbook(path string) ([]pipeline.Record, int, error) {
	year := yearFromFilename(filepath.Base(path))
	if year == 0 {
		return nil, 0, fmt.Errorf("could not extract year from filename")
	}

	wb, err := pipeline.OpenWorkbook(path)
	if err != nil {
		return nil, 0, err
	}
	defer wb.Close()

	var records []pipeline.Record
	dropped := 0
	format := pipeline.Format{}
	for _, meta := range employmentSheets {
		rows, err := wb.Rows(meta.Sheet)
		if err != nil {
			fmt.Printf("❌ %s: sheet %s unreadable: %v\n", filepath.Base(path), meta.Sheet, err)
			continue
		}
		for idx := employmentDataStartRow; idx < len(rows); idx++ {
			// column A holds the province on province-level rows only;
			// arrondissement rows leave it empty
			province := pipeline.Cell(rows, idx, 0)
			if province == "" || !provinceNames[province] {
				continue
			}
			cell := pipeline.Cell(rows, idx, employmentConstructionCol)
			if cell == "" {
				continue
			}
			value, ok := format.ParseNumber(cell)
			if !ok {
				dropped++
				continue
			}
			records = append(records, pipeline.Record{
				"year":     year,
				"province": province,
				"type":     meta.Type,
				"gender":   meta.Gender,
				"count":    value,
			})
		}
	}
	return records, dropped, nil
}

// yearFromFilename extracts the year from names like "localunit-val-nl-20134.xlsx"
func yearFromFilename(name string) int {
	m := yearRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	year := 0
	for _, c := range m[1] {
		year = year*10 + int(c-'0')
	}
	return year
}
