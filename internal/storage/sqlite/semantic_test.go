package sqlite

import (
	"context"
	"testing"
)

// seedEmbeddings stores axis-aligned unit vectors for three nodes so
// distances are easy to reason about.
func seedEmbeddings(t *testing.T, s *Storage, ctx context.Context) {
	t.Helper()
	vectors := map[string][]float32{
		"vec-a": {1, 0, 0, 0},
		"vec-b": {0.9, 0.1, 0, 0},
		"vec-c": {0, 0, 0, 1},
	}
	for id, vec := range vectors {
		if err := s.CreateNode(ctx, sampleNode(id, 1), false); err != nil {
			t.Fatalf("CreateNode %s: %v", id, err)
		}
		if err := s.StoreEmbeddingWithVec(ctx, id, vec, "test-model", "text"); err != nil {
			t.Fatalf("StoreEmbeddingWithVec %s: %v", id, err)
		}
	}
}

func TestSemanticSearchOrdersByDistance(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seedEmbeddings(t, s, ctx)

	results, err := s.SemanticSearch(ctx, []float32{1, 0, 0, 0}, SemanticSearchOptions{Limit: 3})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Node.ID != "vec-a" {
		t.Fatalf("nearest = %s, want vec-a", results[0].Node.ID)
	}
	if results[1].Node.ID != "vec-b" {
		t.Fatalf("second = %s, want vec-b", results[1].Node.ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Fatalf("results not ordered by ascending distance: %+v", results)
		}
	}
	if results[0].Score <= results[2].Score {
		t.Fatalf("score should decrease with distance: %+v", results)
	}
}

func TestSemanticSearchWrongDimensionReturnsEmpty(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seedEmbeddings(t, s, ctx)

	results, err := s.SemanticSearch(ctx, []float32{1, 0}, SemanticSearchOptions{Limit: 3})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("wrong-dimension query should degrade to empty, got %d results", len(results))
	}
}

func TestSemanticSearchAppliesMaxDistance(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seedEmbeddings(t, s, ctx)

	max := 0.5
	results, err := s.SemanticSearch(ctx, []float32{1, 0, 0, 0}, SemanticSearchOptions{Limit: 3, MaxDistance: &max})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	for _, r := range results {
		if r.Distance > max {
			t.Fatalf("result beyond maxDistance: %+v", r)
		}
		if r.Node.ID == "vec-c" {
			t.Fatalf("vec-c is orthogonal to the query and must be cut off")
		}
	}
}

func TestFindSimilarNodesExcludesSelf(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seedEmbeddings(t, s, ctx)

	results, err := s.FindSimilarNodes(ctx, "vec-a", SemanticSearchOptions{Limit: 3})
	if err != nil {
		t.Fatalf("FindSimilarNodes: %v", err)
	}
	for _, r := range results {
		if r.Node.ID == "vec-a" {
			t.Fatalf("query node leaked into its own similarity results")
		}
	}
	if len(results) == 0 || results[0].Node.ID != "vec-b" {
		t.Fatalf("results = %+v, want vec-b nearest", results)
	}
}

func TestFindSimilarNodesWithoutEmbedding(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateNode(ctx, sampleNode("no-emb", 1), false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	results, err := s.FindSimilarNodes(ctx, "no-emb", SemanticSearchOptions{Limit: 3})
	if err != nil {
		t.Fatalf("FindSimilarNodes: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("node without an embedding should yield no results, got %+v", results)
	}
}
