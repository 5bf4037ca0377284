package analysis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

// LandUse processes the occupancy rate of Flemish business parks
// (bezettingsgraad bedrijventerreinen): the regional time series plus
// per-municipality geographic data for the map views.
type LandUse struct{}

func (LandUse) Name() string { return "bedrijventerreinen-vlaanderen" }

func (LandUse) Description() string {
	return "Business park occupancy per municipality and for Flanders (VLAIO)"
}

// NIS code of the Vlaams Gewest aggregate rows
const nisVlaamsGewest = 2000

type landUsePoint struct {
	Year       int      `json:"year"`
	Occupied   *float64 `json:"bezette_oppervlakte"`
	Total      *float64 `json:"totale_oppervlakte"`
	Rate       *float64 `json:"bezettingsgraad"`
	Unoccupied *float64 `json:"onbezette_oppervlakte"`
}

type landUseGeoPoint struct {
	NISCode      string   `json:"nis_code"`
	Municipality string   `json:"gemeente"`
	Occupied     *float64 `json:"bezette_oppervlakte"`
	Total        *float64 `json:"totale_oppervlakte"`
	Rate         *float64 `json:"bezettingsgraad"`
	Unoccupied   *float64 `json:"onbezette_oppervlakte"`
	Year         int      `json:"year"`
}

type landUseGeoYearPoint struct {
	NISCode      string   `json:"nis_code"`
	Municipality string   `json:"gemeente"`
	Year         int      `json:"year"`
	Occupied     *float64 `json:"bezette_oppervlakte"`
	Total        *float64 `json:"totale_oppervlakte"`
	Rate         *float64 `json:"bezettingsgraad"`
	Unoccupied   *float64 `json:"onbezette_oppervlakte"`
}

// landUseSnapshot is the year-less figure block embedded in the summary;
// the year already sits in latest_year
type landUseSnapshot struct {
	Occupied   *float64 `json:"bezette_oppervlakte"`
	Total      *float64 `json:"totale_oppervlakte"`
	Rate       *float64 `json:"bezettingsgraad"`
	Unoccupied *float64 `json:"onbezette_oppervlakte"`
}

type landUseSummary struct {
	LatestYear          int              `json:"latest_year"`
	YearsAvailable      []int            `json:"years_available"`
	TotalMunicipalities int              `json:"total_municipalities"`
	VlaanderenLatest    *landUseSnapshot `json:"vlaanderen_latest,omitempty"`
}

func (l LandUse) Run(ctx context.Context, env Env) (pipeline.Stats, error) {
	var stats pipeline.Stats

	path := env.Data(l.Name(), "bezettingsgraad.csv")
	records, dropped, err := pipeline.ReadCSV(path, pipeline.Format{
		Comma:   ';',
		Decimal: ',',
		NumericColumns: []string{
			"Jaar", "NIS-code",
			"Bezette oppervlakte bedrijventerreinen",
			"Totale oppervlakte bedrijventerreinen",
			"Procent (%)",
		},
	})
	if err != nil {
		return stats, fmt.Errorf("failed to read occupancy data: %w", err)
	}
	stats.RowsRead = len(records)
	stats.CellsDropped = dropped
	fmt.Printf("📄 Loaded %d occupancy rows\n", len(records))

	// fill the missing occupancy rates from the raw surfaces
	for _, rec := range records {
		if !rec.IsNull("Procent (%)") {
			continue
		}
		occupied, okO := rec.Float("Bezette oppervlakte bedrijventerreinen")
		total, okT := rec.Float("Totale oppervlakte bedrijventerreinen")
		if okO && okT && total != 0 {
			rec["Procent (%)"] = 100 * occupied / total
		}
	}

	exporter := env.Exporter(l.Name())

	// regional time series
	var regional []pipeline.Record
	yearsSeen := make(map[int]bool)
	latestYear := 0
	for _, rec := range records {
		year, ok := rec.Int("Jaar")
		if !ok {
			continue
		}
		yearsSeen[year] = true
		if year > latestYear {
			latestYear = year
		}
		if nis, _ := rec.Int("NIS-code"); nis == nisVlaamsGewest {
			regional = append(regional, rec)
		}
	}
	sort.Slice(regional, func(i, j int) bool {
		yi, _ := regional[i].Int("Jaar")
		yj, _ := regional[j].Int("Jaar")
		return yi < yj
	})
	timeSeries := make([]landUsePoint, 0, len(regional))
	for _, rec := range regional {
		year, _ := rec.Int("Jaar")
		p := landUsePoint{Year: year}
		p.Occupied, p.Total, p.Rate, p.Unoccupied = landUseValues(rec)
		timeSeries = append(timeSeries, p)
	}
	if err := exporter.WriteJSON("time_series.json", timeSeries); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	// latest-year municipality data for the map
	geoData := make([]landUseGeoPoint, 0)
	for _, rec := range municipalityRows(records, latestYear) {
		p := landUseGeoPoint{
			NISCode:      landUseNISCode(rec),
			Municipality: rec.String("Gemeente"),
			Year:         latestYear,
		}
		p.Occupied, p.Total, p.Rate, p.Unoccupied = landUseValues(rec)
		geoData = append(geoData, p)
	}
	if err := exporter.WriteJSON("geographic_data.json", geoData); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	// every year, for the time slider
	years := make([]int, 0, len(yearsSeen))
	for y := range yearsSeen {
		years = append(years, y)
	}
	sort.Ints(years)
	allYearsGeo := make([]landUseGeoYearPoint, 0)
	for _, year := range years {
		for _, rec := range municipalityRows(records, year) {
			p := landUseGeoYearPoint{
				NISCode:      landUseNISCode(rec),
				Municipality: rec.String("Gemeente"),
				Year:         year,
			}
			p.Occupied, p.Total, p.Rate, p.Unoccupied = landUseValues(rec)
			allYearsGeo = append(allYearsGeo, p)
		}
	}
	if err := exporter.WriteJSON("all_years_geographic.json", allYearsGeo); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	summary := landUseSummary{
		LatestYear:          latestYear,
		YearsAvailable:      years,
		TotalMunicipalities: len(geoData),
	}
	if len(timeSeries) > 0 {
		last := timeSeries[len(timeSeries)-1]
		summary.VlaanderenLatest = &landUseSnapshot{
			Occupied:   last.Occupied,
			Total:      last.Total,
			Rate:       last.Rate,
			Unoccupied: last.Unoccupied,
		}
	}
	if err := exporter.WriteJSON("summary.json", summary); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	fmt.Printf("💾 Wrote 4 occupancy outputs (%d municipalities, %d-%d)\n",
		len(geoData), years[0], latestYear)
	return stats, nil
}

// municipalityRows selects the rows of one year with a five-digit NIS code;
// shorter codes are region and province aggregates
func municipalityRows(records []pipeline.Record, year int) []pipeline.Record {
	var out []pipeline.Record
	for _, rec := range records {
		y, ok := rec.Int("Jaar")
		if !ok || y != year {
			continue
		}
		nis, ok := rec.Int("NIS-code")
		if !ok || len(strconv.Itoa(nis)) != 5 {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func landUseNISCode(rec pipeline.Record) string {
	nis, _ := rec.Int("NIS-code")
	return fmt.Sprintf("%05d", nis)
}

// landUseValues extracts the rounded surface and rate values; absent source
// cells stay null in the output
func landUseValues(rec pipeline.Record) (occupied, total, rate, unoccupied *float64) {
	if v, ok := rec.Float("Bezette oppervlakte bedrijventerreinen"); ok {
		occupied = roundPtr(v)
	}
	if v, ok := rec.Float("Totale oppervlakte bedrijventerreinen"); ok {
		total = roundPtr(v)
	}
	if v, ok := rec.Float("Procent (%)"); ok {
		rate = roundPtr(v)
	}
	o, okO := rec.Float("Bezette oppervlakte bedrijventerreinen")
	t, okT := rec.Float("Totale oppervlakte bedrijventerreinen")
	if okO && okT {
		unoccupied = roundPtr(t - o)
	}
	return occupied, total, rate, unoccupied
}

func roundPtr(v float64) *float64 {
	r := pipeline.Round2(v)
	return &r
}
