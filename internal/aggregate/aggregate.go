// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate rolls work-level hits up into doctor-level evidence
// bundles through keyed lookups over the Work -> Doctor -> Institution
// link tables.
// Implements: prd010-matching (Aggregator);
//
//	docs/ARCHITECTURE § Aggregation.
package aggregate

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/meshintel/match-engine/internal/retrieval"
	"github.com/meshintel/match-engine/pkg/types"
)

// LinkReader is the read accessor for the attribution tables. The
// evidence store implements it; tests substitute an in-memory fake.
type LinkReader interface {
	LinksForWorks(ctx context.Context, workIDs []string) ([]types.DoctorWorkLink, error)
	AffiliationsForDoctors(ctx context.Context, doctorIDs []string) ([]types.Affiliation, error)
	InstitutionsForWorks(ctx context.Context, workIDs []string) ([]types.WorkInstitutionLink, error)
}

// Build resolves each hit to its authoring doctors and affiliated
// institutions and precomputes the score components. Hits whose work has
// no linked doctor are dropped and counted as attribution gaps; every
// component count is monotonic in the input hit set.
func Build(ctx context.Context, hits []types.WorkHit, links LinkReader, pack types.QueryPack, w io.Writer) ([]types.EvidenceBundle, int, error) {
	if len(hits) == 0 {
		return nil, 0, nil
	}

	hitByWork := make(map[string]types.WorkHit, len(hits))
	workIDs := make([]string, 0, len(hits))
	for _, hit := range hits {
		if _, ok := hitByWork[hit.Work.WorkID]; ok {
			continue
		}
		hitByWork[hit.Work.WorkID] = hit
		workIDs = append(workIDs, hit.Work.WorkID)
	}

	workLinks, err := links.LinksForWorks(ctx, workIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("resolving authorship: %w", err)
	}

	linkedWorks := make(map[string]bool)
	byDoctor := make(map[string][]types.AttributedHit)
	for _, link := range workLinks {
		hit, ok := hitByWork[link.WorkID]
		if !ok {
			continue
		}
		linkedWorks[link.WorkID] = true
		byDoctor[link.DoctorID] = append(byDoctor[link.DoctorID], types.AttributedHit{
			WorkHit:        hit,
			AuthorPosition: link.AuthorPosition,
			IsPI:           link.IsPI,
		})
	}

	// A work nobody authored cannot be attributed; log it for later
	// reconciliation and count the gap.
	gaps := 0
	for _, id := range workIDs {
		if !linkedWorks[id] {
			gaps++
			hit := hitByWork[id]
			fmt.Fprintf(w, "attribution gap: %s/%s has no linked doctor\n", hit.Work.Source, hit.Work.SourceKey)
		}
	}

	doctorIDs := make([]string, 0, len(byDoctor))
	for id := range byDoctor {
		doctorIDs = append(doctorIDs, id)
	}
	sort.Strings(doctorIDs)

	affiliations, err := links.AffiliationsForDoctors(ctx, doctorIDs)
	if err != nil {
		return nil, gaps, fmt.Errorf("resolving affiliations: %w", err)
	}
	instsByDoctor := make(map[string][]string)
	for _, aff := range affiliations {
		instsByDoctor[aff.DoctorID] = appendUnique(instsByDoctor[aff.DoctorID], aff.InstitutionID)
	}

	workInsts, err := links.InstitutionsForWorks(ctx, workIDs)
	if err != nil {
		return nil, gaps, fmt.Errorf("resolving work institutions: %w", err)
	}
	hitsByInstitution := make(map[string][]types.WorkHit)
	for _, wi := range workInsts {
		if hit, ok := hitByWork[wi.WorkID]; ok {
			hitsByInstitution[wi.InstitutionID] = append(hitsByInstitution[wi.InstitutionID], hit)
		}
	}

	bundles := make([]types.EvidenceBundle, 0, len(doctorIDs))
	for _, doctorID := range doctorIDs {
		bundle := buildBundle(doctorID, byDoctor[doctorID], instsByDoctor[doctorID], hitsByInstitution, pack)
		bundles = append(bundles, bundle)
	}
	return bundles, gaps, nil
}

func buildBundle(doctorID string, hits []types.AttributedHit, institutionIDs []string, hitsByInstitution map[string][]types.WorkHit, pack types.QueryPack) types.EvidenceBundle {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Relevance != hits[j].Relevance {
			return hits[i].Relevance > hits[j].Relevance
		}
		return hits[i].Work.WorkID < hits[j].Work.WorkID
	})

	var components types.ScoreComponents
	minPubYear := pack.AnchorYear - pack.LookbackYears

	seenWorks := make(map[string]bool)
	for _, hit := range hits {
		if seenWorks[hit.Work.WorkID] {
			continue
		}
		seenWorks[hit.Work.WorkID] = true

		switch hit.Work.Kind() {
		case types.KindPublication:
			if hit.Work.Year >= minPubYear {
				components.Pubs5y++
			}
		case types.KindTrial:
			if hit.IsPI {
				components.TrialsPI++
			}
		}
		if bucket := retrieval.CitationBucket(hit.Work.CitationCount); bucket > components.CitationsBucket {
			components.CitationsBucket = bucket
		}
	}

	// Institution roll-up: distinct hit works produced at any of the
	// doctor's institutions, independent of personal authorship.
	var instHits []types.WorkHit
	seenInstWorks := make(map[string]bool)
	for _, instID := range institutionIDs {
		for _, hit := range hitsByInstitution[instID] {
			if seenInstWorks[hit.Work.WorkID] {
				continue
			}
			seenInstWorks[hit.Work.WorkID] = true
			instHits = append(instHits, hit)

			switch hit.Work.Kind() {
			case types.KindPublication:
				if hit.Work.Year >= minPubYear {
					components.InstPubs++
				}
			case types.KindTrial:
				components.InstTrials++
			case types.KindGrant:
				components.NIHGrants++
			}
		}
	}
	sort.Slice(instHits, func(i, j int) bool {
		if instHits[i].Relevance != instHits[j].Relevance {
			return instHits[i].Relevance > instHits[j].Relevance
		}
		return instHits[i].Work.WorkID < instHits[j].Work.WorkID
	})

	return types.EvidenceBundle{
		DoctorID:       doctorID,
		Hits:           hits,
		InstHits:       instHits,
		InstitutionIDs: institutionIDs,
		Components:     components,
	}
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
