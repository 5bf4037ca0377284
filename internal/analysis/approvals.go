package analysis

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

// Approvals processes the Statbel open-data export of granted building
// permits (renovations and new dwellings per municipality and month). The
// export is refreshed monthly; when BV_DATA_URL is set the file is downloaded
// first, otherwise the newest local export is used.
type Approvals struct{}

func (Approvals) Name() string { return "vergunningen-goedkeuringen" }

func (Approvals) Description() string {
	return "Granted building permits per municipality, quarter and month (Statbel)"
}

type approvalQuarterPoint struct {
	Year         int `json:"y"`
	Quarter      int `json:"q"`
	Municipality int `json:"m"`
	Renovations  int `json:"ren"`
	Dwellings    int `json:"dwell"`
	Apartments   int `json:"apt"`
	Houses       int `json:"house"`
}

type approvalMonthPoint struct {
	Year         int `json:"y"`
	Month        int `json:"mo"`
	Municipality int `json:"m"`
	Renovations  int `json:"ren"`
	Dwellings    int `json:"dwell"`
	Apartments   int `json:"apt"`
	Houses       int `json:"house"`
}

type approvalYearPoint struct {
	Year         int `json:"y"`
	Municipality int `json:"m"`
	Renovations  int `json:"ren"`
	Dwellings    int `json:"dwell"`
	Apartments   int `json:"apt"`
	Houses       int `json:"house"`
}

type municipalitySeriesPoint struct {
	Year        int `json:"y"`
	Month       int `json:"mo"`
	Renovations int `json:"ren"`
	Dwellings   int `json:"dwell"`
	Apartments  int `json:"apt"`
	Houses      int `json:"house"`
}

type municipalityEntry struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type yearIndexEntry struct {
	Year int    `json:"year"`
	File string `json:"file"`
}

type municipalityIndexEntry struct {
	Code  string `json:"code"`
	File  string `json:"file"`
	Years [2]int `json:"years"`
}

var approvalMeasures = []string{
	"MS_BUILDING_RES_RENOVATION",
	"MS_DWELLING_RES_NEW",
	"MS_APARTMENT_RES_NEW",
	"MS_SINGLE_HOUSE_RES_NEW",
}

func (a Approvals) Run(ctx context.Context, env Env) (pipeline.Stats, error) {
	var stats pipeline.Stats

	dataDir := env.Data(a.Name())
	inputFile, err := resolveApprovalsInput(ctx, dataDir)
	if err != nil {
		return stats, err
	}
	fmt.Printf("📄 Reading %s\n", inputFile)

	records, dropped, err := pipeline.ReadCSV(inputFile, pipeline.Format{
		Comma:          '|',
		Latin1Fallback: true,
		NumericColumns: append([]string{
			"CD_YEAR", "CD_PERIOD", "CD_REFNIS_LEVEL", "CD_REFNIS_MUNICIPALITY",
		}, approvalMeasures...),
	})
	if err != nil {
		return stats, fmt.Errorf("failed to read permit export: %w", err)
	}
	stats.RowsRead = len(records)
	stats.CellsDropped = dropped

	// municipality-level rows only; period 0 rows are yearly totals
	var rows []pipeline.Record
	for _, rec := range records {
		level, _ := rec.Int("CD_REFNIS_LEVEL")
		period, _ := rec.Int("CD_PERIOD")
		if level != 5 || period == 0 {
			stats.RowsSkipped++
			continue
		}
		rec["quarter"] = (period-1)/3 + 1
		rows = append(rows, rec)
	}
	fmt.Printf("📊 %d municipality-level monthly rows\n", len(rows))
	if len(rows) == 0 {
		return stats, fmt.Errorf("no municipality-level rows in %s", inputFile)
	}

	exporter := env.Exporter(a.Name())

	quarterKeys := []string{"CD_YEAR", "quarter", "CD_REFNIS_MUNICIPALITY", "REFNIS_NL"}
	quarterly := pipeline.GroupSum(rows, quarterKeys, approvalMeasures)
	dataQuarterly := make([]approvalQuarterPoint, 0, len(quarterly))
	for _, agg := range quarterly {
		dataQuarterly = append(dataQuarterly, approvalQuarterPoint{
			Year:         agg.KeyInt(0),
			Quarter:      agg.KeyInt(1),
			Municipality: agg.KeyInt(2),
			Renovations:  sumInt(agg, "MS_BUILDING_RES_RENOVATION"),
			Dwellings:    sumInt(agg, "MS_DWELLING_RES_NEW"),
			Apartments:   sumInt(agg, "MS_APARTMENT_RES_NEW"),
			Houses:       sumInt(agg, "MS_SINGLE_HOUSE_RES_NEW"),
		})
	}
	if err := exporter.WriteJSONCompact("data_quarterly.json", dataQuarterly); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	// municipality lookup, sorted by name
	seen := make(map[int]string)
	for _, agg := range quarterly {
		seen[agg.KeyInt(2)] = agg.KeyString(3)
	}
	municipalities := make([]municipalityEntry, 0, len(seen))
	for code, name := range seen {
		municipalities = append(municipalities, municipalityEntry{Code: code, Name: name})
	}
	sort.Slice(municipalities, func(i, j int) bool {
		if municipalities[i].Name != municipalities[j].Name {
			return municipalities[i].Name < municipalities[j].Name
		}
		return municipalities[i].Code < municipalities[j].Code
	})
	if err := exporter.WriteJSONCompact("municipalities.json", municipalities); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	monthKeys := []string{"CD_YEAR", "CD_PERIOD", "CD_REFNIS_MUNICIPALITY", "REFNIS_NL"}
	monthly := pipeline.GroupSum(rows, monthKeys, approvalMeasures)
	monthlyPoints := make([]approvalMonthPoint, 0, len(monthly))
	suspect := 0
	for _, agg := range monthly {
		p := approvalMonthPoint{
			Year:         agg.KeyInt(0),
			Month:        agg.KeyInt(1),
			Municipality: agg.KeyInt(2),
			Renovations:  sumInt(agg, "MS_BUILDING_RES_RENOVATION"),
			Dwellings:    sumInt(agg, "MS_DWELLING_RES_NEW"),
			Apartments:   sumInt(agg, "MS_APARTMENT_RES_NEW"),
			Houses:       sumInt(agg, "MS_SINGLE_HOUSE_RES_NEW"),
		}
		if p.Dwellings > 0 {
			diff := math.Abs(float64(p.Dwellings-(p.Apartments+p.Houses))) / float64(p.Dwellings) * 100
			if diff > 10 {
				suspect++
			}
		}
		monthlyPoints = append(monthlyPoints, p)
	}
	if suspect > 0 {
		fmt.Printf("⚠️ %d monthly rows have >10%% difference between dwellings and apartments+houses\n", suspect)
	}

	// recent months only; older data is too sparse for the monthly views
	recent := make([]approvalMonthPoint, 0, len(monthlyPoints))
	for _, p := range monthlyPoints {
		if p.Year > 2018 {
			recent = append(recent, p)
		}
	}
	if err := exporter.WriteJSONCompact("data_monthly.json", recent); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	n, err := a.writeYearly(exporter, quarterly)
	if err != nil {
		return stats, err
	}
	stats.OutputsWritten += n

	n, err = a.writeMunicipalitySeries(exporter, recent)
	if err != nil {
		return stats, err
	}
	stats.OutputsWritten += n

	fmt.Printf("💾 Wrote %d permit outputs\n", stats.OutputsWritten)
	return stats, nil
}

// writeYearly aggregates the quarterly data per year and municipality into
// one file per year for the map view, plus an index
func (Approvals) writeYearly(exporter *pipeline.Exporter, quarterly []pipeline.Aggregate) (int, error) {
	type yearKey struct {
		year, muni int
	}
	totals := make(map[yearKey]*approvalYearPoint)
	var order []yearKey
	for _, agg := range quarterly {
		k := yearKey{agg.KeyInt(0), agg.KeyInt(2)}
		p, ok := totals[k]
		if !ok {
			p = &approvalYearPoint{Year: k.year, Municipality: k.muni}
			totals[k] = p
			order = append(order, k)
		}
		p.Renovations += sumInt(agg, "MS_BUILDING_RES_RENOVATION")
		p.Dwellings += sumInt(agg, "MS_DWELLING_RES_NEW")
		p.Apartments += sumInt(agg, "MS_APARTMENT_RES_NEW")
		p.Houses += sumInt(agg, "MS_SINGLE_HOUSE_RES_NEW")
	}

	byYear := make(map[int][]approvalYearPoint)
	for _, k := range order {
		byYear[k.year] = append(byYear[k.year], *totals[k])
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	written := 0
	index := make([]yearIndexEntry, 0, len(years))
	for _, y := range years {
		name := filepath.Join("yearly", fmt.Sprintf("year_%d.json", y))
		if err := exporter.WriteJSONCompact(name, byYear[y]); err != nil {
			return written, err
		}
		written++
		index = append(index, yearIndexEntry{Year: y, File: name})
	}
	if err := exporter.WriteJSONCompact("yearly_index.json", index); err != nil {
		return written, err
	}
	return written + 1, nil
}

// writeMunicipalitySeries writes one monthly time series per municipality,
// plus an index with the covered year range
func (Approvals) writeMunicipalitySeries(exporter *pipeline.Exporter, monthly []approvalMonthPoint) (int, error) {
	byMuni := make(map[int][]municipalitySeriesPoint)
	for _, p := range monthly {
		byMuni[p.Municipality] = append(byMuni[p.Municipality], municipalitySeriesPoint{
			Year:        p.Year,
			Month:       p.Month,
			Renovations: p.Renovations,
			Dwellings:   p.Dwellings,
			Apartments:  p.Apartments,
			Houses:      p.Houses,
		})
	}
	codes := make([]int, 0, len(byMuni))
	for code := range byMuni {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	written := 0
	index := make([]municipalityIndexEntry, 0, len(codes))
	for _, code := range codes {
		series := byMuni[code]
		sort.Slice(series, func(i, j int) bool {
			if series[i].Year != series[j].Year {
				return series[i].Year < series[j].Year
			}
			return series[i].Month < series[j].Month
		})
		name := filepath.Join("municipality", fmt.Sprintf("%05d.json", code))
		if err := exporter.WriteJSONCompact(name, series); err != nil {
			return written, err
		}
		written++
		index = append(index, municipalityIndexEntry{
			Code:  fmt.Sprintf("%05d", code),
			File:  name,
			Years: [2]int{series[0].Year, series[len(series)-1].Year},
		})
	}
	if err := exporter.WriteJSONCompact("municipality_index.json", index); err != nil {
		return written, err
	}
	return written + 1, nil
}

// resolveApprovalsInput picks the export to process: a fresh download when
// BV_DATA_URL is set, otherwise the newest BV_opendata_*.txt in the data dir
func resolveApprovalsInput(ctx context.Context, dataDir string) (string, error) {
	if url := os.Getenv("BV_DATA_URL"); url != "" {
		file, err := pipeline.Fetch(ctx, url, dataDir, pipeline.DefaultFetchOptions)
		if err == nil {
			return file, nil
		}
		fmt.Printf("❌ Download failed: %v. Falling back to local file...\n", err)
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", fmt.Errorf("failed to read data directory: %w", err)
	}
	var newest string
	var newestMod int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "BV_opendata_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = name
			newestMod = mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no BV_opendata_*.txt export found in %s", dataDir)
	}
	return filepath.Join(dataDir, newest), nil
}
