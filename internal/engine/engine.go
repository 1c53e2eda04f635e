// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine orchestrates the matching pipeline: query compilation,
// embedding, concurrent retrieval, evidence aggregation, scoring, and
// ranking.
// Implements: prd010-matching (Match, Explain);
//
//	docs/ARCHITECTURE § Pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meshintel/match-engine/internal/aggregate"
	"github.com/meshintel/match-engine/internal/compiler"
	"github.com/meshintel/match-engine/internal/embed"
	"github.com/meshintel/match-engine/internal/rank"
	"github.com/meshintel/match-engine/internal/retrieval"
	"github.com/meshintel/match-engine/internal/score"
	"github.com/meshintel/match-engine/internal/store"
	"github.com/meshintel/match-engine/pkg/types"
)

// Engine runs match operations against one evidence store. It is safe for
// concurrent use; each Match call builds its own query state.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder
	cfg      types.EngineConfig
	w        io.Writer
}

// New returns an engine over the given store. A nil embedder disables the
// vector pass; retrieval then runs symbolic-only.
func New(st *store.Store, embedder embed.Embedder, cfg types.EngineConfig, w io.Writer) *Engine {
	if w == nil {
		w = io.Discard
	}
	return &Engine{store: st, embedder: embedder, cfg: cfg, w: w}
}

// Match runs the full pipeline for one case and returns ranked candidates
// with diagnostics. Compilation failures are fatal; per-source retrieval
// failures and embedding failures degrade the result and are reported in
// the diagnostics. When the case carries an ID the run is persisted so
// Explain can answer later without re-running retrieval.
func (e *Engine) Match(ctx context.Context, spec types.CaseSpec, filters types.MatchFilters) (types.MatchOutput, error) {
	pack, err := compiler.Compile(spec, filters, e.cfg.Retrieval)
	if err != nil {
		return types.MatchOutput{}, err
	}

	if e.cfg.MatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.MatchTimeout)
		defer cancel()
	}

	var diags types.Diagnostics

	if e.embedder != nil {
		vec, err := e.embedder.EmbedText(ctx, pack.Abstract)
		if err != nil {
			// Degraded mode: symbolic-only retrieval still produces results.
			fmt.Fprintf(e.w, "warning: embedding failed, running symbolic-only: %v\n", err)
			diags.SourceErrors = append(diags.SourceErrors,
				types.SourceError{Source: "embedding", Err: err.Error()})
		} else {
			pack.Embedding = vec
		}
	}

	sources, err := e.buildSources(ctx)
	if err != nil {
		return types.MatchOutput{}, err
	}

	hits, srcErrs := retrieval.Retrieve(ctx, pack, sources, e.cfg.Retrieval.SourceTimeout, e.w)
	diags.SourceErrors = append(diags.SourceErrors, srcErrs...)

	bundles, gaps, err := aggregate.Build(ctx, hits, e.store, pack, e.w)
	if err != nil {
		return types.MatchOutput{}, err
	}
	diags.AttributionGaps = gaps

	doctors, err := e.store.DoctorsByIDs(ctx, doctorIDs(bundles))
	if err != nil {
		return types.MatchOutput{}, fmt.Errorf("loading doctors: %w", err)
	}
	bundles = filterSpecialties(bundles, doctors, pack.Predicates.Specialties)

	institutions, err := e.store.InstitutionsByIDs(ctx, institutionIDs(bundles))
	if err != nil {
		return types.MatchOutput{}, fmt.Errorf("loading institutions: %w", err)
	}

	scored := score.All(bundles, e.cfg.Weights)

	maxResults := filters.MaxResults
	if maxResults <= 0 {
		maxResults = e.cfg.Ranking.MaxResults
	}
	results := rank.Rank(scored, doctors, institutions, spec.Condition.Text, pack,
		maxResults, e.cfg.Ranking.MaxEvidence)

	diags.Partial = ctx.Err() != nil
	out := types.MatchOutput{Results: results, Diagnostics: diags}

	if spec.CaseID != "" {
		// Persist even when the caller's deadline just expired; the run is
		// the audit record Explain depends on.
		saveCtx := context.WithoutCancel(ctx)
		if _, err := e.store.SaveMatchRun(saveCtx, spec.CaseID, out); err != nil {
			fmt.Fprintf(e.w, "warning: persisting match run for %s: %v\n", spec.CaseID, err)
		}
	}
	return out, nil
}

// Explain returns the persisted score breakdown for one candidate of a
// previously matched case, including the scoring methodology in effect.
func (e *Engine) Explain(ctx context.Context, caseID, doctorID string) (types.ScoreBreakdown, error) {
	bd, err := e.store.LoadCandidate(ctx, caseID, doctorID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return types.ScoreBreakdown{}, err
		}
		return types.ScoreBreakdown{}, fmt.Errorf("explaining %s/%s: %w", caseID, doctorID, err)
	}
	bd.Methodology = score.Methodology(e.cfg.Weights)
	return bd, nil
}

// buildSources constructs one store-backed source per configured source
// name, probing each for a vector index.
func (e *Engine) buildSources(ctx context.Context) ([]retrieval.Source, error) {
	names := e.cfg.Retrieval.Sources
	if len(names) == 0 {
		var err error
		names, err = e.store.Sources(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing sources: %w", err)
		}
	}

	sources := make([]retrieval.Source, 0, len(names))
	for _, name := range names {
		hasVector, err := e.store.HasEmbeddings(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", name, err)
		}
		sources = append(sources, retrieval.NewStoreSource(e.store, name, hasVector, e.cfg.Retrieval))
	}
	return sources, nil
}

// filterSpecialties drops bundles whose doctor's primary specialty is not
// in the requested set. Specialty targets doctors, so it applies after
// aggregation rather than to works.
func filterSpecialties(bundles []types.EvidenceBundle, doctors map[string]types.Doctor, specialties []string) []types.EvidenceBundle {
	if len(specialties) == 0 {
		return bundles
	}
	wanted := make(map[string]bool, len(specialties))
	for _, s := range specialties {
		wanted[s] = true
	}
	var kept []types.EvidenceBundle
	for _, bundle := range bundles {
		if wanted[doctors[bundle.DoctorID].PrimarySpecialty] {
			kept = append(kept, bundle)
		}
	}
	return kept
}

func doctorIDs(bundles []types.EvidenceBundle) []string {
	ids := make([]string, 0, len(bundles))
	for _, bundle := range bundles {
		ids = append(ids, bundle.DoctorID)
	}
	return ids
}

func institutionIDs(bundles []types.EvidenceBundle) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, bundle := range bundles {
		for _, id := range bundle.InstitutionIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
