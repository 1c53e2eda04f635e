// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compiler converts a structured case into a source-agnostic
// query pack: symbolic filter predicates plus a synthetic case abstract
// for embedding generation.
// Implements: prd012-retrieval (R1, Query Compiler);
//
//	docs/ARCHITECTURE § Query Compilation.
package compiler

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/meshintel/match-engine/pkg/types"
)

// maxAbstractKeywords bounds how many case keywords the synthetic
// abstract mentions.
const maxAbstractKeywords = 3

// CompilationError reports a malformed or incomplete CaseSpec. It is
// fatal to the whole match operation.
type CompilationError struct {
	Field  string
	Reason string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compiling case: %s: %s", e.Field, e.Reason)
}

// Compile derives a QueryPack from a case and request filters. The
// condition text is mandatory; every other field degrades gracefully to
// a broader query.
func Compile(spec types.CaseSpec, filters types.MatchFilters, cfg types.RetrievalConfig) (types.QueryPack, error) {
	if strings.TrimSpace(spec.Condition.Text) == "" {
		return types.QueryPack{}, &CompilationError{Field: "condition.text", Reason: "condition is required"}
	}

	lookback := cfg.LookbackYears
	if lookback <= 0 {
		lookback = 5
	}
	anchorYear := spec.AnchorYear()

	minYear := anchorYear - lookback
	if filters.MinYear > 0 {
		minYear = filters.MinYear
	}

	pack := types.QueryPack{
		Predicates: types.Predicates{
			MinYear:     minYear,
			MeSHTerms:   meshTerms(spec, filters),
			Specialties: filters.Specialties,
			Countries:   filters.Countries,
		},
		Keywords:      keywords(spec),
		Abstract:      SyntheticAbstract(spec),
		AnchorYear:    anchorYear,
		LookbackYears: lookback,
	}
	return pack, nil
}

// meshTerms collects the distinct ontology descriptors from the case
// condition and the request filters.
func meshTerms(spec types.CaseSpec, filters types.MatchFilters) []string {
	seen := make(map[string]bool)
	var terms []string

	add := func(term string) {
		term = strings.TrimSpace(term)
		if term != "" && !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}

	add(spec.Condition.MeSH)
	for _, term := range filters.MeSHTerms {
		add(term)
	}
	return terms
}

// keywords builds the distinct, lowercased term set used for overlap
// scoring: the case keywords plus the tokenized condition text.
func keywords(spec types.CaseSpec) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}

	for _, kw := range spec.Keywords {
		add(kw)
	}
	for _, token := range tokenize(spec.Condition.Text) {
		add(token)
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SyntheticAbstract fills the deterministic case-summary template that is
// the sole input to embedding generation. The template is stable: the
// same CaseSpec always yields the same string.
func SyntheticAbstract(spec types.CaseSpec) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Adult patient presenting with %s", spec.Condition.Text))

	site := spec.Anatomy.Site
	laterality := spec.Anatomy.Laterality
	switch {
	case site != "" && laterality != "":
		parts = append(parts, fmt.Sprintf("of the %s %s", laterality, site))
	case site != "":
		parts = append(parts, fmt.Sprintf("of the %s", site))
	}

	if len(spec.Anatomy.ArterialSegments) > 0 {
		parts = append(parts, fmt.Sprintf("involving the %s segments", strings.Join(spec.Anatomy.ArterialSegments, ", ")))
	}

	var failed []string
	for _, pi := range spec.PriorInterventions {
		if pi.Status == "failed" {
			name := pi.Name
			if pi.Target != "" {
				name += " of the " + pi.Target
			}
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		parts = append(parts, fmt.Sprintf("Prior %s was unsuccessful", strings.Join(failed, ", ")))
	}

	if len(spec.Goals) > 0 {
		parts = append(parts, "Goal: "+strings.Join(spec.Goals, ", "))
	}

	if len(spec.Keywords) > 0 {
		kws := spec.Keywords
		if len(kws) > maxAbstractKeywords {
			kws = kws[:maxAbstractKeywords]
		}
		parts = append(parts, "Consider "+strings.Join(kws, ", "))
	}

	return strings.Join(parts, ". ") + "."
}
