package analysis

import "github.com/gehuybre/embuild-analyses/internal/pipeline"

// The ten official Flemish municipal policy domains (Beleidsdomeinen).
// Projects without a recognizable domain fall into "overige".

// Category is one policy-domain category of the municipal projects analysis
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CategoryOverige is the fallback for projects without a policy domain
const CategoryOverige = "overige"

// Categories lists the official categories in domain-code order
var Categories = []Category{
	{ID: "00-algemene-financiering", Label: "Algemene financiering"},
	{ID: "01-algemeen-bestuur", Label: "Algemeen bestuur"},
	{ID: "02-mobiliteit", Label: "Zich verplaatsen en mobiliteit"},
	{ID: "03-natuur-milieu", Label: "Natuur en milieubeheer"},
	{ID: "04-veiligheidszorg", Label: "Veiligheidszorg"},
	{ID: "05-ondernemen-werken", Label: "Ondernemen en werken"},
	{ID: "06-wonen-ruimte", Label: "Wonen en ruimtelijke ordening"},
	{ID: "07-cultuur-vrije-tijd", Label: "Cultuur en vrije tijd"},
	{ID: "08-onderwijs", Label: "Leren en onderwijs"},
	{ID: "09-zorg-opvang", Label: "Zorg en opvang"},
}

// CategoryLabel returns the display label for a category identifier
func CategoryLabel(id string) string {
	if id == CategoryOverige {
		return "Overige"
	}
	for _, c := range Categories {
		if c.ID == id {
			return c.Label
		}
	}
	return id
}

func policyDomainMapping() map[string]string {
	return map[string]string{
		"00 Algemene financiering": "00-algemene-financiering",
		"00":                       "00-algemene-financiering",

		"01 Algemeen bestuur": "01-algemeen-bestuur",
		"01":                  "01-algemeen-bestuur",

		"02 Zich verplaatsen en mobiliteit": "02-mobiliteit",
		"02":                                "02-mobiliteit",

		"03 Natuur en milieubeheer": "03-natuur-milieu",
		"03":                        "03-natuur-milieu",

		"04 Veiligheidszorg": "04-veiligheidszorg",
		"04":                 "04-veiligheidszorg",

		"05 Ondernemen en werken": "05-ondernemen-werken",
		"05":                      "05-ondernemen-werken",

		"06 Wonen en ruimtelijke ordening": "06-wonen-ruimte",
		"06":                               "06-wonen-ruimte",

		"07 Cultuur en vrije tijd": "07-cultuur-vrije-tijd",
		"07":                       "07-cultuur-vrije-tijd",

		"08 Leren en onderwijs": "08-onderwijs",
		"08":                    "08-onderwijs",

		"09 Zorg en opvang": "09-zorg-opvang",
		"09":                "09-zorg-opvang",
	}
}

// NewPolicyClassifier returns the classifier resolving
// Beleidsdomein/Beleidssubdomein values to category identifiers
func NewPolicyClassifier() *pipeline.Classifier {
	return pipeline.NewClassifier(policyDomainMapping(), CategoryOverige)
}
