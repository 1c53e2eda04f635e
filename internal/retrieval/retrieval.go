// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval executes symbolic filtering and vector similarity
// search against the evidence store, fanning out across sources
// concurrently and merging hits by work identity.
// Implements: prd012-retrieval (R2-R5);
//
//	docs/ARCHITECTURE § Retrieval.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meshintel/match-engine/pkg/types"
)

// Source searches one evidence source. Each call is bounded by the
// per-source timeout the fan-out applies to its context.
type Source interface {
	Name() string
	Search(ctx context.Context, pack types.QueryPack) ([]types.WorkHit, error)
}

// Retrieve fans the query pack out to all sources concurrently, each with
// its own timeout, and merges the per-source buffers after every call has
// settled. A failed or timed-out source contributes zero hits and one
// SourceError; only the caller's context cancels siblings.
func Retrieve(ctx context.Context, pack types.QueryPack, sources []Source, timeout time.Duration, w io.Writer) ([]types.WorkHit, []types.SourceError) {
	if len(sources) == 0 {
		return nil, nil
	}

	type sourceResult struct {
		name string
		hits []types.WorkHit
		err  error
	}

	ch := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			srcCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				srcCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			hits, err := src.Search(srcCtx, pack)
			ch <- sourceResult{name: src.Name(), hits: hits, err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.WorkHit
	var srcErrs []types.SourceError
	for sr := range ch {
		if sr.err != nil {
			srcErrs = append(srcErrs, types.SourceError{Source: sr.name, Err: sr.err.Error()})
			fmt.Fprintf(w, "warning: source %s failed: %v\n", sr.name, sr.err)
			continue
		}
		all = append(all, sr.hits...)
	}

	// Deterministic error order regardless of completion order.
	sort.Slice(srcErrs, func(i, j int) bool { return srcErrs[i].Source < srcErrs[j].Source })

	// Identity order, not completion order, decides merge winners: when two
	// sources share a DOI, the lexicographically smaller (source, source_key)
	// supplies the merged record's identity and metadata.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Work.Source != all[j].Work.Source {
			return all[i].Work.Source < all[j].Work.Source
		}
		return all[i].Work.SourceKey < all[j].Work.SourceKey
	})

	return merge(all), srcErrs
}

// merge deduplicates hits by (source, source_key) identity, then by
// normalized DOI as a best-effort cross-source normalization. The merged
// hit keeps the higher relevance; a symbolic hit merged with a vector hit
// becomes "both".
func merge(hits []types.WorkHit) []types.WorkHit {
	seen := make(map[string]int) // dedup key -> index in merged
	var merged []types.WorkHit

	for _, hit := range hits {
		key := "id:" + hit.Work.Source + "/" + hit.Work.SourceKey
		if idx, ok := seen[key]; ok {
			mergeInto(&merged[idx], hit)
			continue
		}

		doiKey := ""
		if doi := normalizeDOI(hit.Work.DOI); doi != "" {
			doiKey = "doi:" + doi
			if idx, ok := seen[doiKey]; ok {
				mergeInto(&merged[idx], hit)
				continue
			}
		}

		idx := len(merged)
		merged = append(merged, hit)
		seen[key] = idx
		if doiKey != "" {
			seen[doiKey] = idx
		}
	}

	// Deterministic order for downstream consumers regardless of source
	// completion order.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Relevance != merged[j].Relevance {
			return merged[i].Relevance > merged[j].Relevance
		}
		if merged[i].Work.Source != merged[j].Work.Source {
			return merged[i].Work.Source < merged[j].Work.Source
		}
		return merged[i].Work.SourceKey < merged[j].Work.SourceKey
	})
	return merged
}

// mergeInto folds src into dst, keeping the higher scores and widening
// matched_via when the passes differ.
func mergeInto(dst *types.WorkHit, src types.WorkHit) {
	if src.Relevance > dst.Relevance {
		dst.Relevance = src.Relevance
	}
	if src.Similarity > dst.Similarity {
		dst.Similarity = src.Similarity
	}
	if dst.MatchedVia != src.MatchedVia {
		dst.MatchedVia = types.ViaBoth
	}
	if dst.Work.Title == "" {
		dst.Work.Title = src.Work.Title
	}
	if dst.Work.Abstract == "" {
		dst.Work.Abstract = src.Work.Abstract
	}
	if dst.Work.Year == 0 {
		dst.Work.Year = src.Work.Year
	}
	if src.Work.CitationCount > dst.Work.CitationCount {
		dst.Work.CitationCount = src.Work.CitationCount
	}
}

// normalizeDOI lowercases a DOI and strips resolver prefixes.
func normalizeDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}
