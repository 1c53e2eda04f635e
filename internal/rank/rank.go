// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank orders scored candidates, attaches evidence trails, and
// renders human-readable explanations.
// Implements: prd010-matching (Ranker);
//
//	docs/ARCHITECTURE § Ranking.
package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meshintel/match-engine/internal/score"
	"github.com/meshintel/match-engine/pkg/types"
)

// MaxResultsCeiling bounds the result count regardless of what the
// caller requests.
const MaxResultsCeiling = 50

// Rank orders scored doctors by total score descending, breaking ties by
// trials_pi descending and then by canonical name ascending, truncates to
// the requested count, and attaches the evidence trail and explanation to
// each result.
func Rank(scored []score.ScoredDoctor, doctors map[string]types.Doctor, institutions map[string]types.Institution, conditionText string, pack types.QueryPack, maxResults, maxEvidence int) []types.MatchResult {
	if maxResults <= 0 {
		maxResults = 10
	}
	if maxResults > MaxResultsCeiling {
		maxResults = MaxResultsCeiling
	}
	if maxEvidence <= 0 {
		maxEvidence = 5
	}

	// Defensive copy so ranking never mutates the caller's slice order.
	ordered := make([]score.ScoredDoctor, len(scored))
	copy(ordered, scored)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TotalScore != ordered[j].TotalScore {
			return ordered[i].TotalScore > ordered[j].TotalScore
		}
		if ordered[i].Components.TrialsPI != ordered[j].Components.TrialsPI {
			return ordered[i].Components.TrialsPI > ordered[j].Components.TrialsPI
		}
		return doctors[ordered[i].DoctorID].FullName < doctors[ordered[j].DoctorID].FullName
	})

	seen := make(map[string]bool)
	var results []types.MatchResult
	for _, sd := range ordered {
		if seen[sd.DoctorID] {
			continue
		}
		seen[sd.DoctorID] = true
		if len(results) >= maxResults {
			break
		}

		doc := doctors[sd.DoctorID]
		results = append(results, types.MatchResult{
			DoctorID:         sd.DoctorID,
			DoctorName:       doc.FullName,
			Specialty:        doc.PrimarySpecialty,
			Institution:      primaryInstitution(sd.InstitutionIDs, institutions),
			TotalScore:       sd.TotalScore,
			DoctorScore:      sd.DoctorScore,
			InstitutionScore: sd.InstitutionScore,
			Components:       sd.Components,
			Evidence:         evidenceTrail(sd.EvidenceBundle, pack, maxEvidence),
			Explanation:      explanation(sd, conditionText),
		})
	}
	return results
}

// primaryInstitution picks the first affiliated institution with a known
// name for display.
func primaryInstitution(institutionIDs []string, institutions map[string]types.Institution) string {
	for _, id := range institutionIDs {
		if inst, ok := institutions[id]; ok && inst.Name != "" {
			return inst.Name
		}
	}
	return ""
}

// evidenceTrail builds a doctor's capped evidence list: direct hits and
// institutional hits sorted by year descending then relevance descending.
// When the cap forces truncation, PI trial evidence is preferred over
// ordinary publications, and at least one item backing each non-zero
// component is retained so no score contribution goes unexplained.
func evidenceTrail(bundle types.EvidenceBundle, pack types.QueryPack, cap int) []types.Evidence {
	var items []evidenceItem
	for _, hit := range bundle.Hits {
		items = append(items, evidenceItem{
			Evidence: toEvidence(hit.WorkHit, hit.IsPI, false),
			hit:      hit.WorkHit,
			isPI:     hit.IsPI,
		})
	}
	for _, hit := range bundle.InstHits {
		items = append(items, evidenceItem{
			Evidence: toEvidence(hit, false, true),
			hit:      hit,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Year != items[j].Year {
			return items[i].Year > items[j].Year
		}
		if items[i].Relevance != items[j].Relevance {
			return items[i].Relevance > items[j].Relevance
		}
		return items[i].SourceKey < items[j].SourceKey
	})

	if len(items) <= cap {
		return plainEvidence(items)
	}

	selected := make([]evidenceItem, 0, cap)
	taken := make(map[int]bool)

	// take keeps the first unselected item matching pred, regardless of the
	// cap: a component witness is never evicted by truncation, so every
	// non-zero component stays traceable to the evidence list.
	take := func(pred func(evidenceItem) bool) {
		for i, item := range items {
			if !taken[i] && pred(item) {
				taken[i] = true
				selected = append(selected, item)
				return
			}
		}
	}

	c := bundle.Components
	minPubYear := pack.AnchorYear - pack.LookbackYears
	if c.TrialsPI > 0 {
		take(func(it evidenceItem) bool {
			return it.isPI && types.KindOfSource(it.Type) == types.KindTrial
		})
	}
	if c.Pubs5y > 0 {
		take(func(it evidenceItem) bool {
			return !it.Institutional && types.KindOfSource(it.Type) == types.KindPublication && it.Year >= minPubYear
		})
	}
	if c.CitationsBucket > 0 {
		take(func(it evidenceItem) bool {
			return !it.Institutional && citationBucketOf(it.hit.Work.CitationCount) == c.CitationsBucket
		})
	}
	if c.InstPubs > 0 {
		take(func(it evidenceItem) bool {
			return it.Institutional && types.KindOfSource(it.Type) == types.KindPublication
		})
	}
	if c.InstTrials > 0 {
		take(func(it evidenceItem) bool {
			return it.Institutional && types.KindOfSource(it.Type) == types.KindTrial
		})
	}
	if c.NIHGrants > 0 {
		take(func(it evidenceItem) bool {
			return it.Institutional && types.KindOfSource(it.Type) == types.KindGrant
		})
	}

	// Remaining slots: PI trial evidence first, then sorted order.
	for len(selected) < cap {
		before := len(selected)
		take(func(it evidenceItem) bool {
			return it.isPI && types.KindOfSource(it.Type) == types.KindTrial
		})
		if len(selected) == before {
			break
		}
	}
	for i := range items {
		if len(selected) >= cap {
			break
		}
		if !taken[i] {
			taken[i] = true
			selected = append(selected, items[i])
		}
	}

	// Restore the year/relevance presentation order.
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Year != selected[j].Year {
			return selected[i].Year > selected[j].Year
		}
		if selected[i].Relevance != selected[j].Relevance {
			return selected[i].Relevance > selected[j].Relevance
		}
		return selected[i].SourceKey < selected[j].SourceKey
	})
	return plainEvidence(selected)
}

type evidenceItem struct {
	types.Evidence
	hit  types.WorkHit
	isPI bool
}

func plainEvidence(items []evidenceItem) []types.Evidence {
	out := make([]types.Evidence, len(items))
	for i, item := range items {
		out[i] = item.Evidence
	}
	return out
}

func toEvidence(hit types.WorkHit, isPI, institutional bool) types.Evidence {
	ev := types.Evidence{
		Type:          hit.Work.Source,
		SourceKey:     hit.Work.SourceKey,
		Title:         hit.Work.Title,
		Year:          hit.Work.Year,
		DOI:           hit.Work.DOI,
		URL:           hit.Work.URL,
		Relevance:     hit.Relevance,
		Institutional: institutional,
	}
	if !institutional {
		switch hit.Work.Kind() {
		case types.KindTrial, types.KindGrant:
			if isPI {
				ev.Role = "PI"
			} else {
				ev.Role = "Investigator"
			}
		}
	}
	return ev
}

// citationBucketOf mirrors the aggregation citation tiers for evidence
// selection.
func citationBucketOf(citations int) int {
	switch {
	case citations >= 1000:
		return 3
	case citations >= 100:
		return 2
	case citations >= 10:
		return 1
	default:
		return 0
	}
}

// explanation renders the human-readable match summary.
func explanation(sd score.ScoredDoctor, conditionText string) string {
	c := sd.Components
	var parts []string

	if c.Pubs5y > 0 {
		parts = append(parts, fmt.Sprintf("%d recent publications related to %s", c.Pubs5y, conditionText))
	}
	if c.TrialsPI > 0 {
		parts = append(parts, fmt.Sprintf("Principal investigator on %d clinical trials", c.TrialsPI))
	}
	if c.CitationsBucket > 0 {
		parts = append(parts, fmt.Sprintf("Highly cited work (citation tier %d of 3)", c.CitationsBucket))
	}
	if c.InstPubs > 10 {
		parts = append(parts, fmt.Sprintf("Institution has a strong research presence with %d related publications", c.InstPubs))
	}
	if c.InstTrials > 0 {
		parts = append(parts, fmt.Sprintf("Institution runs %d related clinical trials", c.InstTrials))
	}
	if len(parts) == 0 {
		parts = append(parts, "Matched on similarity to the case description")
	}
	return strings.Join(parts, ". ") + "."
}
