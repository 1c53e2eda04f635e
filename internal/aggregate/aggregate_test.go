// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/meshintel/match-engine/pkg/types"
)

// --- test helpers ---

// fakeLinks is an in-memory link table set.
type fakeLinks struct {
	links        []types.DoctorWorkLink
	affiliations []types.Affiliation
	workInsts    []types.WorkInstitutionLink
	err          error
}

func (f *fakeLinks) LinksForWorks(_ context.Context, workIDs []string) ([]types.DoctorWorkLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	wanted := toSet(workIDs)
	var out []types.DoctorWorkLink
	for _, l := range f.links {
		if wanted[l.WorkID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLinks) AffiliationsForDoctors(_ context.Context, doctorIDs []string) ([]types.Affiliation, error) {
	wanted := toSet(doctorIDs)
	var out []types.Affiliation
	for _, a := range f.affiliations {
		if wanted[a.DoctorID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLinks) InstitutionsForWorks(_ context.Context, workIDs []string) ([]types.WorkInstitutionLink, error) {
	wanted := toSet(workIDs)
	var out []types.WorkInstitutionLink
	for _, wi := range f.workInsts {
		if wanted[wi.WorkID] {
			out = append(out, wi)
		}
	}
	return out, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func pubHit(id string, year, citations int) types.WorkHit {
	return types.WorkHit{
		Work: types.Work{
			WorkID: id, Source: "pubmed", SourceKey: id,
			Year: year, CitationCount: citations,
		},
		Relevance:  3,
		MatchedVia: types.ViaBoth,
	}
}

func trialHit(id string) types.WorkHit {
	return types.WorkHit{
		Work:       types.Work{WorkID: id, Source: "ctgov", SourceKey: id, Year: 2024},
		Relevance:  5,
		MatchedVia: types.ViaBoth,
	}
}

func grantHit(id string) types.WorkHit {
	return types.WorkHit{
		Work:       types.Work{WorkID: id, Source: "nih_reporter", SourceKey: id, Year: 2023},
		Relevance:  2,
		MatchedVia: types.ViaBoth,
	}
}

var testPack = types.QueryPack{AnchorYear: 2025, LookbackYears: 5}

// --- component tests ---

func TestBuildComponents(t *testing.T) {
	hits := []types.WorkHit{
		pubHit("p-recent", 2024, 150),
		pubHit("p-old", 2015, 0),
		trialHit("t1"),
		trialHit("t2"),
	}
	links := &fakeLinks{
		links: []types.DoctorWorkLink{
			{DoctorID: "dr-a", WorkID: "p-recent"},
			{DoctorID: "dr-a", WorkID: "p-old"},
			{DoctorID: "dr-a", WorkID: "t1", IsPI: true},
			{DoctorID: "dr-a", WorkID: "t2"},
		},
	}

	bundles, gaps, err := Build(context.Background(), hits, links, testPack, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if gaps != 0 {
		t.Errorf("gaps = %d, want 0", gaps)
	}
	if len(bundles) != 1 {
		t.Fatalf("got %d bundles, want 1", len(bundles))
	}

	c := bundles[0].Components
	if c.Pubs5y != 1 {
		t.Errorf("Pubs5y = %d, want 1 (old publication outside the window)", c.Pubs5y)
	}
	if c.TrialsPI != 1 {
		t.Errorf("TrialsPI = %d, want 1 (non-PI trial excluded)", c.TrialsPI)
	}
	if c.CitationsBucket != 2 {
		t.Errorf("CitationsBucket = %d, want 2 for 150 citations", c.CitationsBucket)
	}
}

func TestBuildAttributionGaps(t *testing.T) {
	hits := []types.WorkHit{pubHit("p1", 2024, 0), pubHit("orphan", 2024, 0)}
	links := &fakeLinks{links: []types.DoctorWorkLink{{DoctorID: "dr-a", WorkID: "p1"}}}

	var buf strings.Builder
	bundles, gaps, err := Build(context.Background(), hits, links, testPack, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if gaps != 1 {
		t.Errorf("gaps = %d, want 1", gaps)
	}
	if len(bundles) != 1 {
		t.Errorf("got %d bundles, want 1", len(bundles))
	}
	if !strings.Contains(buf.String(), "attribution gap: pubmed/orphan") {
		t.Errorf("missing gap log: %s", buf.String())
	}
}

func TestBuildInstitutionRollup(t *testing.T) {
	hits := []types.WorkHit{
		pubHit("p-own", 2024, 0),   // authored by dr-a at inst-1
		pubHit("p-other", 2024, 0), // by a colleague at inst-1
		trialHit("t-inst"),         // run at inst-1, not by dr-a
		grantHit("g-inst"),         // held at inst-1
	}
	links := &fakeLinks{
		links: []types.DoctorWorkLink{
			{DoctorID: "dr-a", WorkID: "p-own"},
			{DoctorID: "dr-b", WorkID: "p-other"},
		},
		affiliations: []types.Affiliation{
			{DoctorID: "dr-a", InstitutionID: "inst-1"},
		},
		workInsts: []types.WorkInstitutionLink{
			{WorkID: "p-own", InstitutionID: "inst-1"},
			{WorkID: "p-other", InstitutionID: "inst-1"},
			{WorkID: "t-inst", InstitutionID: "inst-1"},
			{WorkID: "g-inst", InstitutionID: "inst-1"},
		},
	}

	var buf strings.Builder
	bundles, _, err := Build(context.Background(), hits, links, testPack, &buf)
	if err != nil {
		t.Fatal(err)
	}

	var drA *types.EvidenceBundle
	for i := range bundles {
		if bundles[i].DoctorID == "dr-a" {
			drA = &bundles[i]
		}
	}
	if drA == nil {
		t.Fatal("no bundle for dr-a")
	}

	c := drA.Components
	if c.InstPubs != 2 {
		t.Errorf("InstPubs = %d, want 2", c.InstPubs)
	}
	if c.InstTrials != 1 {
		t.Errorf("InstTrials = %d, want 1", c.InstTrials)
	}
	if c.NIHGrants != 1 {
		t.Errorf("NIHGrants = %d, want 1", c.NIHGrants)
	}
	if len(drA.InstitutionIDs) != 1 || drA.InstitutionIDs[0] != "inst-1" {
		t.Errorf("InstitutionIDs = %v, want [inst-1]", drA.InstitutionIDs)
	}
}

func TestBuildInstitutionDedupAcrossAffiliations(t *testing.T) {
	// A work produced at two of the doctor's institutions counts once.
	hits := []types.WorkHit{pubHit("p1", 2024, 0), pubHit("shared", 2024, 0)}
	links := &fakeLinks{
		links: []types.DoctorWorkLink{{DoctorID: "dr-a", WorkID: "p1"}},
		affiliations: []types.Affiliation{
			{DoctorID: "dr-a", InstitutionID: "inst-1"},
			{DoctorID: "dr-a", InstitutionID: "inst-2"},
		},
		workInsts: []types.WorkInstitutionLink{
			{WorkID: "shared", InstitutionID: "inst-1"},
			{WorkID: "shared", InstitutionID: "inst-2"},
		},
	}

	bundles, _, err := Build(context.Background(), hits, links, testPack, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if got := bundles[0].Components.InstPubs; got != 1 {
		t.Errorf("InstPubs = %d, want 1 after dedup", got)
	}
}

func TestBuildMonotonicComponents(t *testing.T) {
	links := &fakeLinks{
		links: []types.DoctorWorkLink{
			{DoctorID: "dr-a", WorkID: "p1"},
			{DoctorID: "dr-a", WorkID: "p2"},
		},
	}

	small, _, err := Build(context.Background(),
		[]types.WorkHit{pubHit("p1", 2024, 0)}, links, testPack, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	large, _, err := Build(context.Background(),
		[]types.WorkHit{pubHit("p1", 2024, 0), pubHit("p2", 2024, 0)}, links, testPack, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}

	if large[0].Components.Pubs5y < small[0].Components.Pubs5y {
		t.Errorf("adding a hit decreased Pubs5y: %d -> %d",
			small[0].Components.Pubs5y, large[0].Components.Pubs5y)
	}
}

func TestBuildDeterministicBundleOrder(t *testing.T) {
	hits := []types.WorkHit{pubHit("p1", 2024, 0)}
	links := &fakeLinks{
		links: []types.DoctorWorkLink{
			{DoctorID: "dr-z", WorkID: "p1"},
			{DoctorID: "dr-a", WorkID: "p1"},
		},
	}

	bundles, _, err := Build(context.Background(), hits, links, testPack, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) != 2 || bundles[0].DoctorID != "dr-a" || bundles[1].DoctorID != "dr-z" {
		t.Errorf("bundle order = %v, want sorted by doctor ID", bundles)
	}
}

func TestBuildEmptyHits(t *testing.T) {
	bundles, gaps, err := Build(context.Background(), nil, &fakeLinks{}, testPack, &strings.Builder{})
	if err != nil || bundles != nil || gaps != 0 {
		t.Errorf("got bundles=%v gaps=%d err=%v, want all empty", bundles, gaps, err)
	}
}

func TestBuildLinkError(t *testing.T) {
	links := &fakeLinks{err: fmt.Errorf("db closed")}
	_, _, err := Build(context.Background(),
		[]types.WorkHit{pubHit("p1", 2024, 0)}, links, testPack, &strings.Builder{})
	if err == nil {
		t.Fatal("expected error from failing link reader")
	}
}
