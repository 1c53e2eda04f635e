// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"
)

func TestAnchorYear(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		want   int
	}{
		{"year-month", "2025-09", 2025},
		{"year only", "2024", 2024},
		{"empty falls back to now", "", time.Now().UTC().Year()},
		{"garbage falls back to now", "soon", time.Now().UTC().Year()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := CaseSpec{DateAnchor: tt.anchor}
			if got := spec.AnchorYear(); got != tt.want {
				t.Errorf("AnchorYear() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindOfSource(t *testing.T) {
	tests := []struct {
		source string
		want   SourceKind
	}{
		{"pubmed", KindPublication},
		{"openalex", KindPublication},
		{"crossref", KindPublication},
		{"ctgov", KindTrial},
		{"nih_reporter", KindGrant},
		{"unknown-registry", KindRegistry},
	}

	for _, tt := range tests {
		if got := KindOfSource(tt.source); got != tt.want {
			t.Errorf("KindOfSource(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestPredicatesIsZero(t *testing.T) {
	if !(Predicates{}).IsZero() {
		t.Error("empty predicates should be zero")
	}
	if (Predicates{MinYear: 2020}).IsZero() {
		t.Error("predicates with a year gate are not zero")
	}
	if (Predicates{MeSHTerms: []string{"D016491"}}).IsZero() {
		t.Error("predicates with MeSH terms are not zero")
	}
}

func TestDefaultWeights(t *testing.T) {
	wts := DefaultWeights()
	if wts.TrialPIWeight <= wts.PubWeight {
		t.Error("trial leadership should outweigh a single publication")
	}
	if wts.InstitutionFactor != 0.5 {
		t.Errorf("InstitutionFactor = %g, want 0.5", wts.InstitutionFactor)
	}
}
