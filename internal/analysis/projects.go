package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

// Projects processes the municipal multi-year-plan investment lines
// (meerjarenplan, data-54 export): every line item carries a municipality
// NIS code, a policy domain and a multi-line action block. Line items are
// aggregated per municipality + action code, classified by policy domain and
// published as amount-sorted chunks plus a metadata file with per-category
// summaries.
type Projects struct{}

func (Projects) Name() string { return "bouwprojecten-gemeenten" }

func (Projects) Description() string {
	return "Municipal investment projects from the meerjarenplannen, classified by policy domain"
}

const (
	projectChunkSize = 2000
	projectTopN      = 10
)

type project struct {
	Municipality     string             `json:"municipality"`
	NISCode          string             `json:"nis_code"`
	ACCode           string             `json:"ac_code"`
	ACShort          string             `json:"ac_short"`
	ACLong           string             `json:"ac_long"`
	Beleidsdomein    string             `json:"beleidsdomein"`
	Beleidssubdomein string             `json:"beleidssubdomein"`
	Categories       []string           `json:"categories"`
	TotalAmount      float64            `json:"total_amount"`
	YearlyAmounts    map[string]float64 `json:"yearly_amounts"`
}

// projectAcc accumulates amounts at full decimal precision; rounding to
// 2 decimals happens only at export
type projectAcc struct {
	project
	total  decimal.Decimal
	yearly map[string]decimal.Decimal
	order  int
}

type projectRef struct {
	ACCode        string             `json:"ac_code"`
	ACShort       string             `json:"ac_short"`
	Municipality  string             `json:"municipality"`
	NISCode       string             `json:"nis_code"`
	TotalAmount   float64            `json:"total_amount"`
	YearlyAmounts map[string]float64 `json:"yearly_amounts"`
}

type categorySummary struct {
	ID              string       `json:"id"`
	Label           string       `json:"label"`
	ProjectCount    int          `json:"project_count"`
	TotalAmount     float64      `json:"total_amount"`
	LargestProjects []projectRef `json:"largest_projects"`
}

type projectsMetadata struct {
	TotalProjects  int                  `json:"total_projects"`
	TotalAmount    float64              `json:"total_amount"`
	Municipalities int                  `json:"municipalities"`
	Chunks         int                  `json:"chunks"`
	ChunkSize      int                  `json:"chunk_size"`
	Categories     *pipeline.OrderedMap `json:"categories"`
}

func (p Projects) Run(ctx context.Context, env Env) (pipeline.Stats, error) {
	var stats pipeline.Stats

	nisToName, err := loadNISLookup(env.Shared("nis", "refnis.csv"))
	if err != nil {
		return stats, err
	}
	fmt.Printf("📄 Loaded %d Flemish municipalities from NIS lookup\n", len(nisToName))

	records, dropped, err := pipeline.ReadCSV(env.Data(p.Name(), "data-54.csv"), pipeline.Format{
		Comma:      ';',
		RawColumns: []string{"Uitgave"},
	})
	if err != nil {
		return stats, fmt.Errorf("failed to read data-54.csv: %w", err)
	}
	stats.RowsRead = len(records)
	stats.CellsDropped = dropped
	fmt.Printf("📄 Loaded %d investment line items\n", len(records))

	classifier := NewPolicyClassifier()
	projects, skipped := buildProjects(records, nisToName, classifier)
	stats.RowsSkipped = skipped
	fmt.Printf("📊 Aggregated %d unique projects (%d line items skipped)\n", len(projects), skipped)

	exporter := env.Exporter(p.Name())

	// Chunked export, largest projects first
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].TotalAmount > projects[j].TotalAmount
	})
	chunks := 0
	for start := 0; start < len(projects); start += projectChunkSize {
		end := start + projectChunkSize
		if end > len(projects) {
			end = len(projects)
		}
		name := fmt.Sprintf("projects_2026_chunk_%d.json", chunks)
		if err := exporter.WriteJSON(name, projects[start:end]); err != nil {
			return stats, err
		}
		stats.OutputsWritten++
		chunks++
	}

	metadata := summarizeProjects(projects, chunks)
	if err := exporter.WriteJSON("projects_metadata.json", metadata); err != nil {
		return stats, err
	}
	stats.OutputsWritten++

	fmt.Printf("💾 Wrote %d project chunks and metadata (total €%.0f across %d municipalities)\n",
		chunks, metadata.TotalAmount, metadata.Municipalities)
	return stats, nil
}

// loadNISLookup reads the REFNIS reference file and maps the codes of
// Flemish municipalities (level 4, code prefixes 1/2/3/4/7) to their Dutch
// name, with any parenthesized suffix stripped
func loadNISLookup(path string) (map[string]string, error) {
	records, _, err := pipeline.ReadCSV(path, pipeline.Format{})
	if err != nil {
		return nil, fmt.Errorf("failed to read NIS lookup: %w", err)
	}

	nisToName := make(map[string]string)
	for _, rec := range records {
		level, ok := rec.Int("LVL_REFNIS")
		if !ok || level != 4 {
			continue
		}
		code, ok := rec.Int("CD_REFNIS")
		if !ok {
			continue
		}
		codeStr := strconv.Itoa(code)
		switch codeStr[0] {
		case '1', '2', '3', '4', '7':
		default:
			continue
		}
		name := rec.String("TX_REFNIS_NL")
		if i := strings.IndexByte(name, '('); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		if name != "" {
			nisToName[codeStr] = name
		}
	}
	return nisToName, nil
}

func buildProjects(records []pipeline.Record, nisToName map[string]string, classifier *pipeline.Classifier) ([]project, int) {
	accs := make(map[string]*projectAcc)
	skippedNoNIS := 0
	skippedNoMunicipality := 0
	skippedNoPolicy := 0
	skippedNoAction := 0
	skippedNoAmount := 0

	for _, rec := range records {
		nis, ok := rec.Int("NIS-code")
		if !ok {
			skippedNoNIS++
			continue
		}
		nisCode := strconv.Itoa(nis)

		municipality := nisToName[nisCode]
		if municipality == "" {
			skippedNoMunicipality++
			continue
		}

		beleidsdomein := rec.String("Beleidsdomein")
		beleidssubdomein := rec.String("Beleidssubdomein")
		if beleidsdomein == "" {
			skippedNoPolicy++
			continue
		}

		action := parseActionBlock(rec.String("Actie totaaloverzicht"))
		if action.Code == "" || action.Short == "" {
			skippedNoAction++
			continue
		}

		amount := parseDutchAmount(rec.String("Uitgave"))
		if !amount.IsPositive() {
			skippedNoAmount++
			continue
		}

		fiscalYear := "2026"
		if year, ok := rec.Int("Boekjaar"); ok {
			fiscalYear = strconv.Itoa(year)
		}

		key := municipality + "|" + action.Code
		acc, exists := accs[key]
		if !exists {
			acc = &projectAcc{
				project: project{
					Municipality:     municipality,
					NISCode:          nisCode,
					ACCode:           action.Code,
					ACShort:          action.Short,
					ACLong:           action.Long,
					Beleidsdomein:    beleidsdomein,
					Beleidssubdomein: beleidssubdomein,
					Categories:       classifier.Classify(beleidsdomein, beleidssubdomein),
				},
				yearly: make(map[string]decimal.Decimal),
				order:  len(accs),
			}
			accs[key] = acc
		}
		acc.total = acc.total.Add(amount)
		acc.yearly[fiscalYear] = acc.yearly[fiscalYear].Add(amount)
	}

	ordered := make([]*projectAcc, 0, len(accs))
	for _, acc := range accs {
		ordered = append(ordered, acc)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	projects := make([]project, 0, len(ordered))
	for _, acc := range ordered {
		acc.project.TotalAmount = roundAmount(acc.total)
		acc.project.YearlyAmounts = make(map[string]float64, len(acc.yearly))
		for year, amount := range acc.yearly {
			acc.project.YearlyAmounts[year] = roundAmount(amount)
		}
		projects = append(projects, acc.project)
	}

	fmt.Printf("📊 Skipped line items: %d (no NIS), %d (no municipality), %d (no policy domain), %d (no action), %d (no positive amount)\n",
		skippedNoNIS, skippedNoMunicipality, skippedNoPolicy, skippedNoAction, skippedNoAmount)

	return projects, skippedNoNIS + skippedNoMunicipality + skippedNoPolicy + skippedNoAction + skippedNoAmount
}

func summarizeProjects(projects []project, chunks int) projectsMetadata {
	byCategory := make(map[string][]*project)
	total := decimal.Zero
	municipalities := make(map[string]struct{})
	for i := range projects {
		p := &projects[i]
		total = total.Add(decimal.NewFromFloat(p.TotalAmount))
		municipalities[p.NISCode] = struct{}{}
		for _, cat := range p.Categories {
			byCategory[cat] = append(byCategory[cat], p)
		}
	}

	categories := pipeline.NewOrderedMap()
	ids := make([]string, 0, len(Categories)+1)
	for _, c := range Categories {
		ids = append(ids, c.ID)
	}
	ids = append(ids, CategoryOverige)

	for _, id := range ids {
		members := byCategory[id]
		catTotal := decimal.Zero
		for _, p := range members {
			catTotal = catTotal.Add(decimal.NewFromFloat(p.TotalAmount))
		}

		largest := append([]*project(nil), members...)
		sort.SliceStable(largest, func(i, j int) bool {
			return largest[i].TotalAmount > largest[j].TotalAmount
		})
		if len(largest) > projectTopN {
			largest = largest[:projectTopN]
		}
		refs := make([]projectRef, 0, len(largest))
		for _, p := range largest {
			refs = append(refs, projectRef{
				ACCode:        p.ACCode,
				ACShort:       p.ACShort,
				Municipality:  p.Municipality,
				NISCode:       p.NISCode,
				TotalAmount:   p.TotalAmount,
				YearlyAmounts: p.YearlyAmounts,
			})
		}

		categories.Set(id, categorySummary{
			ID:              id,
			Label:           CategoryLabel(id),
			ProjectCount:    len(members),
			TotalAmount:     roundAmount(catTotal),
			LargestProjects: refs,
		})
	}

	return projectsMetadata{
		TotalProjects:  len(projects),
		TotalAmount:    roundAmount(total),
		Municipalities: len(municipalities),
		Chunks:         chunks,
		ChunkSize:      projectChunkSize,
		Categories:     categories,
	}
}

// actionDetails are the fields of a multi-line "Actie totaaloverzicht" block
type actionDetails struct {
	Code       string
	Short      string
	Long       string
	Comment    string
	Evaluation string
}

var actionCodeRe = regexp.MustCompile(`^Code:\s*([A-Z]+\d+)`)

// parseActionBlock extracts the structured fields from an action text block:
//
//	Code: AC123
//	Korte omschrijving: ...
//	Lange omschrijving: ...   (may span lines)
//	Commentaar: ...           (optional)
//	Evaluatie: ...            (optional)
func parseActionBlock(block string) actionDetails {
	var details actionDetails
	block = strings.TrimSpace(block)
	if block == "" {
		return details
	}

	section := ""
	var long, comment, evaluation []string
	for _, line := range strings.Split(block, "\n") {
		switch {
		case strings.HasPrefix(line, "Code:"):
			if m := actionCodeRe.FindStringSubmatch(line); m != nil {
				details.Code = m[1]
			}
			section = ""
		case strings.HasPrefix(line, "Korte omschrijving:"):
			details.Short = strings.TrimSpace(strings.TrimPrefix(line, "Korte omschrijving:"))
			section = ""
		case strings.HasPrefix(line, "Lange omschrijving:"):
			long = append(long, strings.TrimSpace(strings.TrimPrefix(line, "Lange omschrijving:")))
			section = "long"
		case strings.HasPrefix(line, "Commentaar:"):
			comment = append(comment, strings.TrimSpace(strings.TrimPrefix(line, "Commentaar:")))
			section = "comment"
		case strings.HasPrefix(line, "Evaluatie:"):
			evaluation = append(evaluation, strings.TrimSpace(strings.TrimPrefix(line, "Evaluatie:")))
			section = "evaluation"
		default:
			switch section {
			case "long":
				long = append(long, line)
			case "comment":
				comment = append(comment, line)
			case "evaluation":
				evaluation = append(evaluation, line)
			}
		}
	}
	details.Long = strings.TrimSpace(strings.Join(long, "\n"))
	details.Comment = strings.TrimSpace(strings.Join(comment, "\n"))
	details.Evaluation = strings.TrimSpace(strings.Join(evaluation, "\n"))
	return details
}

// parseDutchAmount parses a Dutch-formatted euro amount (dots as thousands
// separators, comma as decimal separator). Unparseable values count as zero,
// matching the source convention of treating them as absent.
func parseDutchAmount(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	value = strings.ReplaceAll(value, ".", "")
	value = strings.ReplaceAll(value, ",", ".")
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func roundAmount(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
