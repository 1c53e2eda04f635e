// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"math"
	"strings"

	"github.com/meshintel/match-engine/pkg/types"
)

// Relevance weights and bucket boundaries. The symbolic pass is a gate
// and contributes a base of zero; relevance comes entirely from term
// overlap, recency, and citations.
const (
	titleOverlapWeight    = 2.0
	abstractOverlapWeight = 1.0

	recencyNearWindow = 4 // years from anchor for the full bonus
	recencyFarWindow  = 9 // years from anchor for the half bonus
	recencyNearBonus  = 1.0
	recencyFarBonus   = 0.5

	citationHighThreshold = 100
	citationLowThreshold  = 10
	citationHighBonus     = 2.0
	citationLowBonus      = 1.0
)

// relevance computes the per-work relevance score:
// 2.0*title_overlap + 1.0*abstract_overlap + recency_bonus + citation_bonus.
func relevance(work types.Work, keywords []string, anchorYear int) float64 {
	return titleOverlapWeight*float64(termOverlap(work.Title, keywords)) +
		abstractOverlapWeight*float64(termOverlap(work.Abstract, keywords)) +
		recencyBonus(work.Year, anchorYear) +
		CitationBonus(work.CitationCount)
}

// termOverlap counts how many distinct keywords occur in text,
// case-insensitive. Each matching keyword counts once regardless of how
// often it appears.
func termOverlap(text string, keywords []string) int {
	if text == "" || len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

// recencyBonus rewards recent works: the full bonus within the near
// window, half within the far window, nothing beyond. Works with an
// unknown year get no bonus.
func recencyBonus(year, anchorYear int) float64 {
	if year <= 0 {
		return 0
	}
	switch {
	case year >= anchorYear-recencyNearWindow:
		return recencyNearBonus
	case year >= anchorYear-recencyFarWindow:
		return recencyFarBonus
	default:
		return 0
	}
}

// CitationBonus maps a citation count to its relevance contribution:
// 2.0 at or above 100 citations, 1.0 at or above 10, else 0.
func CitationBonus(citations int) float64 {
	switch {
	case citations >= citationHighThreshold:
		return citationHighBonus
	case citations >= citationLowThreshold:
		return citationLowBonus
	default:
		return 0
	}
}

// CitationBucket discretizes a citation count to 0-3 for the doctor-level
// citations component. The top bucket needs a four-digit citation count.
func CitationBucket(citations int) int {
	switch {
	case citations >= 1000:
		return 3
	case citations >= citationHighThreshold:
		return 2
	case citations >= citationLowThreshold:
		return 1
	default:
		return 0
	}
}

// cosine returns the cosine similarity of two vectors, or 0 when either
// is empty, zero, or the lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
