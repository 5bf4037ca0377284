package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

func TestPolicyClassifier(t *testing.T) {
	c := NewPolicyClassifier()

	assert.Equal(t, []string{"06-wonen-ruimte"},
		c.Classify("06 Wonen en ruimtelijke ordening", ""))
	assert.Equal(t, []string{"06-wonen-ruimte"},
		c.Classify("06 Wonen", ""), "domain code prefix must resolve")
	assert.Equal(t, []string{"07-cultuur-vrije-tijd"},
		c.Classify("99 Onbekend", "07 Cultuur en vrije tijd"))
	assert.Equal(t, []string{CategoryOverige},
		c.Classify("", "07 Cultuur en vrije tijd"))
	assert.Equal(t, []string{CategoryOverige},
		c.Classify("Vrije tekst zonder code", ""))
}

func TestParseActionBlock(t *testing.T) {
	block := "Code: AC000042\n" +
		"Korte omschrijving: Renovatie sporthal\n" +
		"Lange omschrijving: Volledige renovatie\nmet nieuwe isolatie\n" +
		"Commentaar: Fase 2 in 2027\n" +
		"Evaluatie: Lopend"
	details := parseActionBlock(block)

	assert.Equal(t, "AC000042", details.Code)
	assert.Equal(t, "Renovatie sporthal", details.Short)
	assert.Equal(t, "Volledige renovatie\nmet nieuwe isolatie", details.Long)
	assert.Equal(t, "Fase 2 in 2027", details.Comment)
	assert.Equal(t, "Lopend", details.Evaluation)
}

func TestParseActionBlockPartial(t *testing.T) {
	details := parseActionBlock("Code: AC7\nKorte omschrijving: Iets")
	assert.Equal(t, "AC7", details.Code)
	assert.Equal(t, "Iets", details.Short)
	assert.Empty(t, details.Long)

	assert.Empty(t, parseActionBlock("").Code)
	assert.Empty(t, parseActionBlock("Code: niet-geldig").Code)
}

func TestParseDutchAmount(t *testing.T) {
	assert.Equal(t, "1234.56", parseDutchAmount("1.234,56").String())
	assert.Equal(t, "1000000", parseDutchAmount("1.000.000").String())
	assert.Equal(t, "42", parseDutchAmount("42").String())
	assert.True(t, parseDutchAmount("").IsZero())
	assert.True(t, parseDutchAmount("n.v.t.").IsZero())
}

func TestBuildProjectsAggregatesPerAction(t *testing.T) {
	nis := map[string]string{"44021": "Gent"}
	block := "Code: AC1\nKorte omschrijving: Wegenwerken"
	records := []pipeline.Record{
		{"NIS-code": 44021, "Beleidsdomein": "06 Wonen en ruimtelijke ordening",
			"Beleidssubdomein": "", "Actie totaaloverzicht": block,
			"Uitgave": "1.000,50", "Boekjaar": 2026},
		{"NIS-code": 44021, "Beleidsdomein": "06 Wonen en ruimtelijke ordening",
			"Beleidssubdomein": "", "Actie totaaloverzicht": block,
			"Uitgave": "2.000,25", "Boekjaar": 2027},
		// unknown municipality
		{"NIS-code": 99999, "Beleidsdomein": "06", "Actie totaaloverzicht": block, "Uitgave": "5"},
		// zero amount
		{"NIS-code": 44021, "Beleidsdomein": "06", "Actie totaaloverzicht": block, "Uitgave": "0"},
	}

	projects, skipped := buildProjects(records, nis, NewPolicyClassifier())
	require.Len(t, projects, 1)
	assert.Equal(t, 2, skipped)

	p := projects[0]
	assert.Equal(t, "Gent", p.Municipality)
	assert.Equal(t, "AC1", p.ACCode)
	assert.Equal(t, []string{"06-wonen-ruimte"}, p.Categories)
	assert.Equal(t, 3000.75, p.TotalAmount)
	assert.Equal(t, map[string]float64{"2026": 1000.50, "2027": 2000.25}, p.YearlyAmounts)
}

func TestSummarizeProjectsCategoryOrder(t *testing.T) {
	projects := []project{
		{NISCode: "44021", Municipality: "Gent", ACCode: "AC1",
			Categories: []string{"06-wonen-ruimte"}, TotalAmount: 100},
		{NISCode: "11002", Municipality: "Antwerpen", ACCode: "AC2",
			Categories: []string{CategoryOverige}, TotalAmount: 50},
	}
	meta := summarizeProjects(projects, 1)

	assert.Equal(t, 2, meta.TotalProjects)
	assert.Equal(t, 150.0, meta.TotalAmount)
	assert.Equal(t, 2, meta.Municipalities)
	assert.Equal(t, projectChunkSize, meta.ChunkSize)

	// every official category plus overige, in domain-code order
	keys := meta.Categories.Keys()
	require.Len(t, keys, len(Categories)+1)
	assert.Equal(t, "00-algemene-financiering", keys[0])
	assert.Equal(t, CategoryOverige, keys[len(keys)-1])

	v, ok := meta.Categories.Get("06-wonen-ruimte")
	require.True(t, ok)
	summary := v.(categorySummary)
	assert.Equal(t, 1, summary.ProjectCount)
	assert.Equal(t, 100.0, summary.TotalAmount)
	require.Len(t, summary.LargestProjects, 1)
	assert.Equal(t, "AC1", summary.LargestProjects[0].ACCode)
}
