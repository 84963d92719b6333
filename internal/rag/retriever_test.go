package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/courtsense/courtsense/internal/knowledge"
	"github.com/courtsense/courtsense/internal/log"
)

type fakeSearcher struct {
	results []knowledge.RetrievedChunk
	err     error
	filter  knowledge.SearchFilter
	called  bool
}

func (f *fakeSearcher) SearchChunks(_ context.Context, _ []float32, filter knowledge.SearchFilter) ([]knowledge.RetrievedChunk, error) {
	f.called = true
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func retrieved(content string, similarity float64) knowledge.RetrievedChunk {
	return knowledge.RetrievedChunk{
		Chunk:      knowledge.Chunk{Content: content, Category: knowledge.CategoryGeneral},
		Similarity: similarity,
	}
}

func TestRetrieveFiltersByThreshold(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.RetrievedChunk{
		retrieved("kick serve spin mechanics", 0.62),
		retrieved("nutrition basics", 0.12),
	}}
	r := NewRetriever(searcher, &fakeEmbedder{}, log.NewNop())

	results := r.Retrieve(context.Background(), "saque kick serve", RetrieveOptions{})
	if len(results) != 1 {
		t.Fatalf("Retrieve() returned %d chunks, want 1", len(results))
	}
	if results[0].Content != "kick serve spin mechanics" {
		t.Errorf("Retrieve() kept %q, want the kick serve chunk", results[0].Content)
	}
}

func TestRetrieveThresholdIsExclusive(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.RetrievedChunk{
		retrieved("exactly at threshold", 0.3),
		retrieved("just above threshold", 0.300001),
	}}
	r := NewRetriever(searcher, &fakeEmbedder{}, log.NewNop())

	results := r.Retrieve(context.Background(), "volley", RetrieveOptions{})
	if len(results) != 1 {
		t.Fatalf("Retrieve() returned %d chunks, want 1", len(results))
	}
	if results[0].Content != "just above threshold" {
		t.Errorf("Retrieve() kept %q, want the strictly-above chunk", results[0].Content)
	}
}

func TestRetrievePreservesRankedOrder(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.RetrievedChunk{
		retrieved("first", 0.9),
		retrieved("second", 0.7),
		retrieved("third", 0.5),
	}}
	r := NewRetriever(searcher, &fakeEmbedder{}, log.NewNop())

	results := r.Retrieve(context.Background(), "footwork", RetrieveOptions{})
	want := []string{"first", "second", "third"}
	if len(results) != len(want) {
		t.Fatalf("Retrieve() returned %d chunks, want %d", len(results), len(want))
	}
	for i, w := range want {
		if results[i].Content != w {
			t.Errorf("result %d = %q, want %q", i, results[i].Content, w)
		}
	}
}

func TestRetrievePassesFilterThrough(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewRetriever(searcher, &fakeEmbedder{}, log.NewNop())

	r.Retrieve(context.Background(), "bandeja", RetrieveOptions{
		Sport:      "padel",
		Categories: []knowledge.Category{knowledge.CategoryExercise},
		Technique:  "bandeja",
		Limit:      3,
	})

	if searcher.filter.Sport != "padel" {
		t.Errorf("filter sport = %q, want padel", searcher.filter.Sport)
	}
	if len(searcher.filter.Categories) != 1 || searcher.filter.Categories[0] != knowledge.CategoryExercise {
		t.Errorf("filter categories = %v, want [EXERCISE]", searcher.filter.Categories)
	}
	if searcher.filter.Technique != "bandeja" {
		t.Errorf("filter technique = %q, want bandeja", searcher.filter.Technique)
	}
	if searcher.filter.Limit != 3 {
		t.Errorf("filter limit = %d, want 3", searcher.filter.Limit)
	}
}

func TestRetrieveDefaultLimit(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewRetriever(searcher, &fakeEmbedder{}, log.NewNop())

	r.Retrieve(context.Background(), "grip", RetrieveOptions{})
	if searcher.filter.Limit != DefaultRetrievalLimit {
		t.Errorf("filter limit = %d, want default %d", searcher.filter.Limit, DefaultRetrievalLimit)
	}
}

func TestRetrieveDegradesGracefully(t *testing.T) {
	tests := []struct {
		name     string
		searcher *fakeSearcher
		embedder *fakeEmbedder
	}{
		{
			name:     "embedding failure",
			searcher: &fakeSearcher{results: []knowledge.RetrievedChunk{retrieved("x", 0.9)}},
			embedder: &fakeEmbedder{err: errors.New("service unavailable")},
		},
		{
			name:     "store failure",
			searcher: &fakeSearcher{err: errors.New("connection refused")},
			embedder: &fakeEmbedder{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetriever(tt.searcher, tt.embedder, log.NewNop())
			results := r.Retrieve(context.Background(), "forehand", RetrieveOptions{})
			if len(results) != 0 {
				t.Errorf("Retrieve() returned %d chunks, want 0", len(results))
			}
		})
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewRetriever(searcher, &fakeEmbedder{}, log.NewNop())

	if results := r.Retrieve(context.Background(), "", RetrieveOptions{}); len(results) != 0 {
		t.Errorf("Retrieve(\"\") returned %d chunks, want 0", len(results))
	}
	if searcher.called {
		t.Error("empty query reached the store")
	}
}

func TestRetrieveNegativeThresholdKeepsAll(t *testing.T) {
	searcher := &fakeSearcher{results: []knowledge.RetrievedChunk{
		retrieved("low score", 0.05),
	}}
	r := NewRetriever(searcher, &fakeEmbedder{}, log.NewNop())

	results := r.Retrieve(context.Background(), "slice", RetrieveOptions{Threshold: -1})
	if len(results) != 1 {
		t.Errorf("Retrieve() returned %d chunks, want 1", len(results))
	}
}
