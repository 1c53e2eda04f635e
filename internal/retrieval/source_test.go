// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/meshintel/match-engine/pkg/types"
)

// fakeIndex serves canned works and embeddings.
type fakeIndex struct {
	works   []types.Work
	vectors map[string][]float32
	err     error
}

func (f *fakeIndex) FilterWorks(_ context.Context, _ string, pred types.Predicates) ([]types.Work, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []types.Work
	for _, w := range f.works {
		if pred.MinYear > 0 && w.Year > 0 && w.Year < pred.MinYear {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeIndex) Embeddings(_ context.Context, workIDs []string) (map[string][]float32, error) {
	out := make(map[string][]float32)
	for _, id := range workIDs {
		if vec, ok := f.vectors[id]; ok {
			out[id] = vec
		}
	}
	return out, nil
}

func indexWork(id string, year int) types.Work {
	return types.Work{WorkID: id, Source: "pubmed", SourceKey: id, Title: "ischemia study", Year: year}
}

// --- search tests ---

func TestStoreSourceVectorPass(t *testing.T) {
	idx := &fakeIndex{
		works: []types.Work{indexWork("w1", 2024), indexWork("w2", 2024), indexWork("w3", 2024)},
		vectors: map[string][]float32{
			"w1": {1, 0}, // similarity 1.0
			"w2": {0, 1}, // similarity 0
			// w3 has no stored vector
		},
	}
	src := NewStoreSource(idx, "pubmed", true, types.RetrievalConfig{SimilarityThreshold: 0.7})

	pack := types.QueryPack{
		Predicates: types.Predicates{MinYear: 2020},
		Embedding:  []float32{1, 0},
		Keywords:   []string{"ischemia"},
		AnchorYear: 2025,
	}
	hits, err := src.Search(context.Background(), pack)
	if err != nil {
		t.Fatal(err)
	}

	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1 above the threshold", len(hits))
	}
	if hits[0].Work.WorkID != "w1" {
		t.Errorf("hit = %s, want w1", hits[0].Work.WorkID)
	}
	if hits[0].MatchedVia != types.ViaBoth {
		t.Errorf("MatchedVia = %s, want both", hits[0].MatchedVia)
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("Similarity = %g, want ~1.0", hits[0].Similarity)
	}
}

func TestStoreSourceVectorOnlyVia(t *testing.T) {
	idx := &fakeIndex{
		works:   []types.Work{indexWork("w1", 2024)},
		vectors: map[string][]float32{"w1": {1, 0}},
	}
	src := NewStoreSource(idx, "pubmed", true, types.RetrievalConfig{})

	// No symbolic predicates in effect.
	hits, err := src.Search(context.Background(), types.QueryPack{Embedding: []float32{1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].MatchedVia != types.ViaVector {
		t.Fatalf("hits = %+v, want one vector-only hit", hits)
	}
}

func TestStoreSourceDegradedMode(t *testing.T) {
	idx := &fakeIndex{works: []types.Work{indexWork("w1", 2024), indexWork("w2", 2024)}}

	tests := []struct {
		name      string
		hasVector bool
		embedding []float32
	}{
		{"no vector index", false, []float32{1, 0}},
		{"no query embedding", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewStoreSource(idx, "pubmed", tt.hasVector, types.RetrievalConfig{})
			pack := types.QueryPack{
				Predicates: types.Predicates{MinYear: 2020},
				Embedding:  tt.embedding,
			}
			hits, err := src.Search(context.Background(), pack)
			if err != nil {
				t.Fatal(err)
			}
			if len(hits) != 2 {
				t.Fatalf("got %d hits, want all symbolic survivors", len(hits))
			}
			for _, h := range hits {
				if h.MatchedVia != types.ViaSymbolic {
					t.Errorf("MatchedVia = %s, want symbolic", h.MatchedVia)
				}
			}
		})
	}
}

func TestStoreSourceSymbolicGate(t *testing.T) {
	idx := &fakeIndex{
		works:   []types.Work{indexWork("old", 2010), indexWork("new", 2024)},
		vectors: map[string][]float32{"old": {1, 0}, "new": {1, 0}},
	}
	src := NewStoreSource(idx, "pubmed", true, types.RetrievalConfig{})

	pack := types.QueryPack{
		Predicates: types.Predicates{MinYear: 2020},
		Embedding:  []float32{1, 0},
	}
	hits, err := src.Search(context.Background(), pack)
	if err != nil {
		t.Fatal(err)
	}
	// High similarity cannot rescue a work the symbolic gate excluded.
	if len(hits) != 1 || hits[0].Work.WorkID != "new" {
		t.Fatalf("hits = %+v, want only the recent work", hits)
	}
}

func TestStoreSourcePerSourceLimit(t *testing.T) {
	var works []types.Work
	vectors := make(map[string][]float32)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("w%02d", i)
		works = append(works, indexWork(id, 2024))
		vectors[id] = []float32{1, 0}
	}
	idx := &fakeIndex{works: works, vectors: vectors}
	src := NewStoreSource(idx, "pubmed", true, types.RetrievalConfig{PerSourceLimit: 3})

	hits, err := src.Search(context.Background(), types.QueryPack{
		Predicates: types.Predicates{MinYear: 2020},
		Embedding:  []float32{1, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Errorf("got %d hits, want the per-source cap of 3", len(hits))
	}
}

func TestStoreSourceFilterError(t *testing.T) {
	idx := &fakeIndex{err: fmt.Errorf("disk gone")}
	src := NewStoreSource(idx, "pubmed", false, types.RetrievalConfig{})

	if _, err := src.Search(context.Background(), types.QueryPack{}); err == nil {
		t.Fatal("expected error from failing index")
	}
}
