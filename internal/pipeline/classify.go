package pipeline

import "strings"

// Classifier maps policy-domain keys to category identifiers with a
// try-exact, then-prefix, then-default cascade. The mapping is copied on
// construction and never mutated afterwards, so a single Classifier can be
// shared across analyses.
type Classifier struct {
	mapping  map[string]string
	fallback string
}

// NewClassifier builds a classifier over an immutable copy of mapping.
// fallback is returned when no cascade step matches.
func NewClassifier(mapping map[string]string, fallback string) *Classifier {
	copied := make(map[string]string, len(mapping))
	for k, v := range mapping {
		copied[k] = v
	}
	return &Classifier{mapping: copied, fallback: fallback}
}

// Classify resolves a primary key (e.g. Beleidsdomein) and optional secondary
// key (e.g. Beleidssubdomein) to category identifiers. The cascade tries, in
// order: exact secondary, secondary prefix, exact primary, primary prefix.
// The first step that matches wins. A missing primary key short-circuits to
// the fallback category. The result is never empty.
func (c *Classifier) Classify(primary, secondary string) []string {
	primary = strings.TrimSpace(primary)
	secondary = strings.TrimSpace(secondary)
	if primary == "" {
		return []string{c.fallback}
	}

	steps := []func() (string, bool){
		func() (string, bool) { return c.exact(secondary) },
		func() (string, bool) { return c.prefix(secondary, 3) },
		func() (string, bool) { return c.exact(primary) },
		func() (string, bool) { return c.prefix(primary, 2) },
	}
	for _, step := range steps {
		if category, ok := step(); ok {
			return []string{category}
		}
	}
	return []string{c.fallback}
}

// Fallback returns the default category identifier
func (c *Classifier) Fallback() string {
	return c.fallback
}

func (c *Classifier) exact(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	category, ok := c.mapping[key]
	return category, ok
}

// prefix matches on the first space-separated token of the key, or its first
// n characters when the key holds a single token (e.g. "074" from "074 Sport",
// "06" from "06 Wonen en ruimtelijke ordening").
func (c *Classifier) prefix(key string, n int) (string, bool) {
	if key == "" {
		return "", false
	}
	token := key
	if i := strings.IndexByte(key, ' '); i >= 0 {
		token = key[:i]
	} else if len(key) > n {
		token = key[:n]
	}
	return c.exact(token)
}
