package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

// EPC computes the share of best (A+/A) and worst (E/F) energy-performance
// labels per building type and year, split into residential and
// non-residential building types.
type EPC struct{}

func (EPC) Name() string { return "epc-labelverdeling" }

func (EPC) Description() string {
	return "EPC label shares (A+/A and E/F) per building type and year (VEKA)"
}

var (
	epcResidentialTypes    = []string{"Appartement", "Collectief woongebouw", "Eengezinswoning"}
	epcNonResidentialTypes = []string{"Handelspand", "Horeca", "Kantoor", "Logement", "Andere"}
)

// epcSharePoint is the internal carrier before the label-specific output shape
type epcSharePoint struct {
	Year         int
	BuildingType string
	Share        float64
	LabelCount   int
	Total        int
}

type epcAAPoint struct {
	Year         int     `json:"year"`
	BuildingType string  `json:"building_type"`
	Share        float64 `json:"share"`
	LabelAPlusA  int     `json:"label_a_plus_a"`
	Total        int     `json:"total"`
}

type epcEFPoint struct {
	Year         int     `json:"year"`
	BuildingType string  `json:"building_type"`
	Share        float64 `json:"share"`
	LabelEF      int     `json:"label_e_f"`
	Total        int     `json:"total"`
}

func (e EPC) Run(ctx context.Context, env Env) (pipeline.Stats, error) {
	var stats pipeline.Stats

	// columns: Jaar;Bestemming;Energielabel;Aantal
	path := env.Data(e.Name(), "epc_labelverdeling.csv")
	records, dropped, err := pipeline.ReadCSV(path, pipeline.Format{
		Comma:          ';',
		NumericColumns: []string{"Aantal", "Jaar"},
	})
	if err != nil {
		return stats, fmt.Errorf("failed to read label distribution: %w", err)
	}
	stats.RowsRead = len(records)
	stats.CellsDropped = dropped
	fmt.Printf("📄 Loaded %d label distribution rows\n", len(records))

	exporter := env.Exporter(e.Name())

	outputs := []struct {
		file   string
		types  []string
		labels map[string]bool
		aa     bool
	}{
		{"residential_aa_share.json", epcResidentialTypes, map[string]bool{"A+": true, "A": true}, true},
		{"residential_ef_share.json", epcResidentialTypes, map[string]bool{"E": true, "F": true}, false},
		{"non_residential_aa_share.json", epcNonResidentialTypes, map[string]bool{"A+": true, "A": true}, true},
		{"non_residential_ef_share.json", epcNonResidentialTypes, map[string]bool{"E": true, "F": true}, false},
	}

	for _, out := range outputs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		points := epcShares(records, out.types, out.labels)
		var payload interface{}
		if out.aa {
			rows := make([]epcAAPoint, 0, len(points))
			for _, p := range points {
				rows = append(rows, epcAAPoint{
					Year: p.Year, BuildingType: p.BuildingType,
					Share: p.Share, LabelAPlusA: p.LabelCount, Total: p.Total,
				})
			}
			payload = rows
		} else {
			rows := make([]epcEFPoint, 0, len(points))
			for _, p := range points {
				rows = append(rows, epcEFPoint{
					Year: p.Year, BuildingType: p.BuildingType,
					Share: p.Share, LabelEF: p.LabelCount, Total: p.Total,
				})
			}
			payload = rows
		}
		if err := exporter.WriteJSON(out.file, payload); err != nil {
			return stats, err
		}
		stats.OutputsWritten++
	}

	fmt.Printf("💾 Wrote 4 label share series\n")
	return stats, nil
}

// epcShares computes per year (newest first) and per building destination (in
// the order given) the share of certificates carrying one of the wanted
// labels. Year/destination combinations without any source rows are skipped;
// groups whose counts sum to zero still appear, with share 0.
func epcShares(records []pipeline.Record, buildingTypes []string, labels map[string]bool) []epcSharePoint {
	years := make(map[int]bool)
	for _, rec := range records {
		if y, ok := rec.Int("Jaar"); ok {
			years[y] = true
		}
	}
	sortedYears := make([]int, 0, len(years))
	for y := range years {
		sortedYears = append(sortedYears, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sortedYears)))

	var points []epcSharePoint
	for _, year := range sortedYears {
		for _, bt := range buildingTypes {
			rows, labelCount, total := 0, 0, 0
			for _, rec := range records {
				y, ok := rec.Int("Jaar")
				if !ok || y != year || rec.String("Bestemming") != bt {
					continue
				}
				rows++
				n, ok := rec.Int("Aantal")
				if !ok {
					continue
				}
				total += n
				if labels[rec.String("Energielabel")] {
					labelCount += n
				}
			}
			if rows == 0 {
				continue
			}
			share := 0.0
			if total > 0 {
				share = math.Round(100*float64(labelCount)/float64(total)*100) / 100
			}
			points = append(points, epcSharePoint{
				Year:         year,
				BuildingType: bt,
				Share:        share,
				LabelCount:   labelCount,
				Total:        total,
			})
		}
	}
	return points
}
