// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/meshintel/match-engine/pkg/types"
)

// WorkIndex is the evidence-store read surface a store-backed source
// needs: symbolic filtering and precomputed embeddings.
type WorkIndex interface {
	FilterWorks(ctx context.Context, source string, pred types.Predicates) ([]types.Work, error)
	Embeddings(ctx context.Context, workIDs []string) (map[string][]float32, error)
}

// StoreSource retrieves one source's works from the evidence store:
// symbolic predicates as a hard gate, then cosine similarity against the
// query embedding. Sources without a vector index run symbolic-only.
type StoreSource struct {
	index     WorkIndex
	name      string
	hasVector bool
	threshold float64
	limit     int
}

// NewStoreSource returns a store-backed source adapter.
func NewStoreSource(index WorkIndex, name string, hasVector bool, cfg types.RetrievalConfig) *StoreSource {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	limit := cfg.PerSourceLimit
	if limit <= 0 {
		limit = 100
	}
	return &StoreSource{
		index:     index,
		name:      name,
		hasVector: hasVector,
		threshold: threshold,
		limit:     limit,
	}
}

// Name returns the source identifier.
func (s *StoreSource) Name() string { return s.name }

// Search runs the symbolic pass, then the vector pass. The symbolic pass
// admits candidates with a base contribution of zero; the vector pass
// keeps only candidates at or above the similarity threshold. When the
// source has no vector index, or the pack carries no embedding, all
// symbolic survivors are returned (degraded mode).
func (s *StoreSource) Search(ctx context.Context, pack types.QueryPack) ([]types.WorkHit, error) {
	works, err := s.index.FilterWorks(ctx, s.name, pack.Predicates)
	if err != nil {
		return nil, fmt.Errorf("symbolic pass: %w", err)
	}
	if len(works) == 0 {
		return nil, nil
	}

	via := types.ViaBoth
	if pack.Predicates.IsZero() {
		via = types.ViaVector
	}

	if !s.hasVector || pack.Embedding == nil {
		hits := make([]types.WorkHit, 0, len(works))
		for _, work := range works {
			hits = append(hits, types.WorkHit{
				Work:       work,
				Relevance:  relevance(work, pack.Keywords, pack.AnchorYear),
				MatchedVia: types.ViaSymbolic,
			})
		}
		return capHits(hits, s.limit), nil
	}

	workIDs := make([]string, len(works))
	for i, work := range works {
		workIDs[i] = work.WorkID
	}
	vectors, err := s.index.Embeddings(ctx, workIDs)
	if err != nil {
		return nil, fmt.Errorf("vector pass: %w", err)
	}

	var hits []types.WorkHit
	for _, work := range works {
		vec, ok := vectors[work.WorkID]
		if !ok {
			continue
		}
		sim := cosine(pack.Embedding, vec)
		if sim < s.threshold {
			continue
		}
		hits = append(hits, types.WorkHit{
			Work:       work,
			Relevance:  relevance(work, pack.Keywords, pack.AnchorYear),
			Similarity: sim,
			MatchedVia: via,
		})
	}
	return capHits(hits, s.limit), nil
}

// capHits keeps the top-n hits by relevance, then similarity, with the
// work identity as the deterministic final key.
func capHits(hits []types.WorkHit, n int) []types.WorkHit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Relevance != hits[j].Relevance {
			return hits[i].Relevance > hits[j].Relevance
		}
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Work.SourceKey < hits[j].Work.SourceKey
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits
}
