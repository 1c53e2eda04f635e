// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/meshintel/match-engine/pkg/types"
)

func sampleCase() types.CaseSpec {
	return types.CaseSpec{
		CaseID: "case-001",
		Condition: types.CaseCondition{
			Text: "critical limb ischemia",
			MeSH: "D016491",
		},
		Anatomy: types.CaseAnatomy{
			Site:             "lower extremity",
			Laterality:       "left",
			ArterialSegments: []string{"anterior tibial", "popliteal"},
		},
		PriorInterventions: []types.PriorIntervention{
			{Name: "angioplasty", Target: "popliteal artery", Status: "failed"},
			{Name: "stenting", Status: "completed"},
		},
		Goals:      []string{"limb salvage"},
		Keywords:   []string{"revascularization", "CLI", "bypass"},
		DateAnchor: "2025-09",
	}
}

// --- compile tests ---

func TestCompileRequiresCondition(t *testing.T) {
	spec := sampleCase()
	spec.Condition.Text = "   "

	_, err := Compile(spec, types.MatchFilters{}, types.RetrievalConfig{})
	if err == nil {
		t.Fatal("expected error for empty condition")
	}
	var cerr *CompilationError
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want *CompilationError", err)
	}
	if cerr.Field != "condition.text" {
		t.Errorf("Field = %q, want condition.text", cerr.Field)
	}
}

func TestCompileRecencyWindow(t *testing.T) {
	tests := []struct {
		name        string
		lookback    int
		filterYear  int
		wantMinYear int
	}{
		{"default lookback from anchor", 0, 0, 2020},
		{"configured lookback", 10, 0, 2015},
		{"filter overrides window", 5, 2023, 2023},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pack, err := Compile(sampleCase(),
				types.MatchFilters{MinYear: tt.filterYear},
				types.RetrievalConfig{LookbackYears: tt.lookback})
			if err != nil {
				t.Fatal(err)
			}
			if pack.Predicates.MinYear != tt.wantMinYear {
				t.Errorf("MinYear = %d, want %d", pack.Predicates.MinYear, tt.wantMinYear)
			}
			if pack.AnchorYear != 2025 {
				t.Errorf("AnchorYear = %d, want 2025", pack.AnchorYear)
			}
		})
	}
}

func TestCompileMergesMeSHTerms(t *testing.T) {
	pack, err := Compile(sampleCase(),
		types.MatchFilters{MeSHTerms: []string{"D016491", "D058729"}},
		types.RetrievalConfig{})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"D016491", "D058729"}
	if len(pack.Predicates.MeSHTerms) != len(want) {
		t.Fatalf("MeSHTerms = %v, want %v", pack.Predicates.MeSHTerms, want)
	}
	for i, term := range want {
		if pack.Predicates.MeSHTerms[i] != term {
			t.Errorf("MeSHTerms[%d] = %q, want %q", i, pack.Predicates.MeSHTerms[i], term)
		}
	}
}

func TestCompileKeywords(t *testing.T) {
	pack, err := Compile(sampleCase(), types.MatchFilters{}, types.RetrievalConfig{})
	if err != nil {
		t.Fatal(err)
	}

	// Case keywords first, then condition tokens, all lowercased, no dups.
	for _, want := range []string{"revascularization", "cli", "bypass", "critical", "limb", "ischemia"} {
		found := false
		for _, kw := range pack.Keywords {
			if kw == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("keyword %q missing from %v", want, pack.Keywords)
		}
	}

	seen := make(map[string]bool)
	for _, kw := range pack.Keywords {
		if seen[kw] {
			t.Errorf("duplicate keyword %q", kw)
		}
		seen[kw] = true
		if kw != strings.ToLower(kw) {
			t.Errorf("keyword %q not lowercased", kw)
		}
	}
}

func TestCompileDeterministic(t *testing.T) {
	a, err := Compile(sampleCase(), types.MatchFilters{}, types.RetrievalConfig{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile(sampleCase(), types.MatchFilters{}, types.RetrievalConfig{})
	if err != nil {
		t.Fatal(err)
	}

	if a.Abstract != b.Abstract {
		t.Errorf("abstracts differ:\n%s\n%s", a.Abstract, b.Abstract)
	}
	if len(a.Keywords) != len(b.Keywords) {
		t.Fatalf("keyword counts differ: %d vs %d", len(a.Keywords), len(b.Keywords))
	}
	for i := range a.Keywords {
		if a.Keywords[i] != b.Keywords[i] {
			t.Errorf("keyword order differs at %d: %q vs %q", i, a.Keywords[i], b.Keywords[i])
		}
	}
}

// --- synthetic abstract tests ---

func TestSyntheticAbstract(t *testing.T) {
	abstract := SyntheticAbstract(sampleCase())

	for _, want := range []string{
		"Adult patient presenting with critical limb ischemia",
		"of the left lower extremity",
		"involving the anterior tibial, popliteal segments",
		"Prior angioplasty of the popliteal artery was unsuccessful",
		"Goal: limb salvage",
		"Consider revascularization, CLI, bypass",
	} {
		if !strings.Contains(abstract, want) {
			t.Errorf("abstract missing %q:\n%s", want, abstract)
		}
	}

	// Completed interventions are not listed as failures.
	if strings.Contains(abstract, "stenting") {
		t.Errorf("abstract mentions non-failed intervention:\n%s", abstract)
	}
}

func TestSyntheticAbstractMinimalCase(t *testing.T) {
	spec := types.CaseSpec{Condition: types.CaseCondition{Text: "glioblastoma"}}
	abstract := SyntheticAbstract(spec)

	if abstract != "Adult patient presenting with glioblastoma." {
		t.Errorf("abstract = %q", abstract)
	}
}

func TestSyntheticAbstractCapsKeywords(t *testing.T) {
	spec := sampleCase()
	spec.Keywords = []string{"one", "two", "three", "four", "five"}

	abstract := SyntheticAbstract(spec)
	if !strings.Contains(abstract, "Consider one, two, three") {
		t.Errorf("abstract should mention only the first three keywords:\n%s", abstract)
	}
	if strings.Contains(abstract, "four") {
		t.Errorf("abstract mentions keyword beyond the cap:\n%s", abstract)
	}
}
