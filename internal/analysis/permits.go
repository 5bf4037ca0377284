package analysis

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

// Permits processes building permit applications from the Flemish
// Omgevingsloket: new construction, renovation and demolition of dwellings,
// aggregated per quarter, year, simplified building type and deciding
// authority.
type Permits struct{}

func (Permits) Name() string { return "vergunningen-aanvragen" }

func (Permits) Description() string {
	return "Permit applications for dwellings per quarter, type and authority (Omgevingsloket)"
}

var permitColumns = []string{
	"jaar",
	"besluit_type",
	"gebouw_functie",
	"handeling",
	"kwartaal",
	"aantal_projecten",
	"aantal_gebouwen",
	"aantal_gebouwen_info",
	"aantal_wooneenheden",
	"aantal_kamers",
	"woonoppervlakte_m2",
	"oppervlakte_kamerwoning_m2",
	"bovengronds_nuttig_m2",
	"bovengronds_grond_m2",
	"gesloopt_m2",
	"gesloopt_m3",
}

// residential building functions considered for nieuwbouw and verbouw
var permitDwellingFunctions = map[string]bool{
	"eengezinswoning":            true,
	"meergezinswoning":           true,
	"kamerwoning":                true,
	"eengezins- en kamerwoning":  true,
	"meergezins- en kamerwoning": true,
}

var quarterRe = regexp.MustCompile(`Q(\d)`)

type permitQuarterPoint struct {
	Year     int `json:"y"`
	Quarter  int `json:"q"`
	Projects int `json:"p"`
	Builds   int `json:"g"`
	Units    int `json:"w"`
	AreaM2   int `json:"m2"`
}

type permitYearPoint struct {
	Year     int `json:"y"`
	Projects int `json:"p"`
	Builds   int `json:"g"`
	Units    int `json:"w"`
	AreaM2   int `json:"m2"`
}

type permitTypePoint struct {
	Year     int    `json:"y"`
	Type     string `json:"t"`
	Projects int    `json:"p"`
	Builds   int    `json:"g"`
	Units    int    `json:"w"`
	AreaM2   int    `json:"m2"`
}

type demolitionQuarterPoint struct {
	Year     int `json:"y"`
	Quarter  int `json:"q"`
	Projects int `json:"p"`
	Builds   int `json:"g"`
	AreaM2   int `json:"m2"`
	VolM3    int `json:"m3"`
}

type demolitionYearPoint struct {
	Year     int `json:"y"`
	Projects int `json:"p"`
	Builds   int `json:"g"`
	AreaM2   int `json:"m2"`
	VolM3    int `json:"m3"`
}

type demolitionAuthorityPoint struct {
	Year      int    `json:"y"`
	Authority string `json:"b"`
	Projects  int    `json:"p"`
	Builds    int    `json:"g"`
	AreaM2    int    `json:"m2"`
	VolM3     int    `json:"m3"`
}

type permitLookupEntry struct {
	Code string `json:"code"`
	NL   string `json:"nl"`
}

func (p Permits) Run(ctx context.Context, env Env) (pipeline.Stats, error) {
	var stats pipeline.Stats

	path := env.Data(p.Name(), "bouwen_of_verbouwen_van_woningen.csv")
	records, dropped, err := pipeline.ReadCSV(path, pipeline.Format{
		Decimal:   ',',
		Thousands: '.',
		Renames:   permitColumns,
		NumericColumns: []string{
			"jaar", "aantal_projecten", "aantal_gebouwen", "aantal_gebouwen_info",
			"aantal_wooneenheden", "aantal_kamers", "woonoppervlakte_m2",
			"oppervlakte_kamerwoning_m2", "bovengronds_nuttig_m2",
			"bovengronds_grond_m2", "gesloopt_m2", "gesloopt_m3",
		},
	})
	if err != nil {
		return stats, fmt.Errorf("failed to read permit applications: %w", err)
	}
	stats.RowsRead = len(records)
	stats.CellsDropped = dropped
	fmt.Printf("📄 Loaded %d permit rows\n", len(records))

	// derive quarter number and normalize placeholder values
	for _, rec := range records {
		m := quarterRe.FindStringSubmatch(rec.String("kwartaal"))
		if m == nil {
			rec["kwartaal_nr"] = nil
			stats.RowsSkipped++
			continue
		}
		rec["kwartaal_nr"] = int(m[1][0] - '0')
		for _, col := range []string{"besluit_type", "gebouw_functie", "handeling"} {
			if rec.String(col) == "-" {
				rec[col] = "Onbekend"
			}
		}
		rec["functie_kort"] = simplifyFunctie(rec.String("gebouw_functie"))
	}

	exporter := env.Exporter(p.Name())

	nieuwbouw := filterPermits(records, "Nieuwbouw", true)
	verbouw := filterPermits(records, "Verbouwen of hergebruik", true)
	sloop := filterPermits(records, "Sloop", false)
	fmt.Printf("📊 Sections: %d nieuwbouw, %d verbouw, %d sloop rows\n",
		len(nieuwbouw), len(verbouw), len(sloop))

	dwellingMeasures := []string{"aantal_projecten", "aantal_gebouwen", "aantal_wooneenheden", "woonoppervlakte_m2"}
	demolitionMeasures := []string{"aantal_projecten", "aantal_gebouwen", "gesloopt_m2", "gesloopt_m3"}

	for _, section := range []struct {
		prefix  string
		records []pipeline.Record
	}{{"nieuwbouw", nieuwbouw}, {"verbouw", verbouw}} {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		quarterly := make([]permitQuarterPoint, 0)
		for _, agg := range pipeline.GroupSum(section.records, []string{"jaar", "kwartaal_nr"}, dwellingMeasures) {
			quarterly = append(quarterly, permitQuarterPoint{
				Year:     agg.KeyInt(0),
				Quarter:  agg.KeyInt(1),
				Projects: sumInt(agg, "aantal_projecten"),
				Builds:   sumInt(agg, "aantal_gebouwen"),
				Units:    sumInt(agg, "aantal_wooneenheden"),
				AreaM2:   sumInt(agg, "woonoppervlakte_m2"),
			})
		}
		if err := exporter.WriteJSONCompact(section.prefix+"_quarterly.json", quarterly); err != nil {
			return stats, err
		}
		stats.OutputsWritten++

		yearly := make([]permitYearPoint, 0)
		for _, agg := range pipeline.GroupSum(section.records, []string{"jaar"}, dwellingMeasures) {
			yearly = append(yearly, permitYearPoint{
				Year:     agg.KeyInt(0),
				Projects: sumInt(agg, "aantal_projecten"),
				Builds:   sumInt(agg, "aantal_gebouwen"),
				Units:    sumInt(agg, "aantal_wooneenheden"),
				AreaM2:   sumInt(agg, "woonoppervlakte_m2"),
			})
		}
		if err := exporter.WriteJSONCompact(section.prefix+"_yearly.json", yearly); err != nil {
			return stats, err
		}
		stats.OutputsWritten++

		byType := make([]permitTypePoint, 0)
		for _, agg := range pipeline.GroupSum(section.records, []string{"jaar", "functie_kort"}, dwellingMeasures) {
			byType = append(byType, permitTypePoint{
				Year:     agg.KeyInt(0),
				Type:     agg.KeyString(1),
				Projects: sumInt(agg, "aantal_projecten"),
				Builds:   sumInt(agg, "aantal_gebouwen"),
				Units:    sumInt(agg, "aantal_wooneenheden"),
				AreaM2:   sumInt(agg, "woonoppervlakte_m2"),
			})
		}
		if err := exporter.WriteJSONCompact(section.prefix+"_by_type.json", byType); err != nil {
			return stats, err
		}
		stats.OutputsWritten++
	}

	// demolition uses its own measures and an extra authority breakdown
	sloopQuarterly := make([]demolitionQuarterPoint, 0)
	for _, agg := range pipeline.GroupSum(sloop, []string{"jaar", "kwartaal_nr"}, demolitionMeasures) {
		sloopQuarterly = append(sloopQuarterly, demolitionQuarterPoint{
			Year:     agg.KeyInt(0),
			Quarter:  agg.KeyInt(1),
			Projects: sumInt(agg, "aantal_projecten"),
			Builds:   sumInt(agg, "aantal_gebouwen"),
			AreaM2:   sumInt(agg, "gesloopt_m2"),
			VolM3:    sumInt(agg, "gesloopt_m3"),
		})
	}
	if err := exporter.WriteJSONCompact("sloop_quarterly.json", sloopQuarterly); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	sloopYearly := make([]demolitionYearPoint, 0)
	for _, agg := range pipeline.GroupSum(sloop, []string{"jaar"}, demolitionMeasures) {
		sloopYearly = append(sloopYearly, demolitionYearPoint{
			Year:     agg.KeyInt(0),
			Projects: sumInt(agg, "aantal_projecten"),
			Builds:   sumInt(agg, "aantal_gebouwen"),
			AreaM2:   sumInt(agg, "gesloopt_m2"),
			VolM3:    sumInt(agg, "gesloopt_m3"),
		})
	}
	if err := exporter.WriteJSONCompact("sloop_yearly.json", sloopYearly); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	sloopByBesluit := make([]demolitionAuthorityPoint, 0)
	for _, agg := range pipeline.GroupSum(sloop, []string{"jaar", "besluit_type"}, demolitionMeasures) {
		sloopByBesluit = append(sloopByBesluit, demolitionAuthorityPoint{
			Year:      agg.KeyInt(0),
			Authority: agg.KeyString(1),
			Projects:  sumInt(agg, "aantal_projecten"),
			Builds:    sumInt(agg, "aantal_gebouwen"),
			AreaM2:    sumInt(agg, "gesloopt_m2"),
			VolM3:     sumInt(agg, "gesloopt_m3"),
		})
	}
	if err := exporter.WriteJSONCompact("sloop_by_besluit.json", sloopByBesluit); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	lookups := pipeline.NewOrderedMap()
	lookups.Set("types", []permitLookupEntry{
		{Code: "eengezins", NL: "Eengezinswoning"},
		{Code: "meergezins", NL: "Meergezinswoning"},
		{Code: "kamer", NL: "Kamerwoning"},
	})
	lookups.Set("besluit_types", []permitLookupEntry{
		{Code: "Gemeente", NL: "Gemeente"},
		{Code: "Provincie", NL: "Provincie"},
		{Code: "Vlaamse Overheid", NL: "Vlaamse Overheid"},
		{Code: "RVVB", NL: "RVVB"},
		{Code: "Onbekend", NL: "Onbekend"},
	})
	if err := exporter.WriteJSON("lookups.json", lookups); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	fmt.Printf("💾 Wrote 10 permit outputs\n")
	return stats, nil
}

// simplifyFunctie maps the full building function to a short type code
func simplifyFunctie(functie string) string {
	switch {
	case functie == "" || functie == "Onbekend":
		return "onbekend"
	case strings.Contains(functie, "meergezins"):
		return "meergezins"
	case strings.Contains(functie, "eengezins"):
		return "eengezins"
	case strings.Contains(functie, "kamerwoning"):
		return "kamer"
	}
	return "onbekend"
}

// filterPermits selects rows for one handeling, optionally restricted to
// residential building functions; rows without a quarter are excluded
func filterPermits(records []pipeline.Record, handeling string, dwellingsOnly bool) []pipeline.Record {
	var out []pipeline.Record
	for _, rec := range records {
		if rec.IsNull("kwartaal_nr") || rec.String("handeling") != handeling {
			continue
		}
		if dwellingsOnly && !permitDwellingFunctions[rec.String("gebouw_functie")] {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func sumInt(agg pipeline.Aggregate, col string) int {
	return int(math.Round(agg.Sums[col]))
}
