package sqlite

import (
	"context"
	"testing"

	"github.com/Whamp/sessionkg/internal/embedtext"
	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

// fixedProvider is a deterministic stand-in types.EmbeddingProvider.
type fixedProvider struct {
	dim   int
	model string
	vec   []float32
}

func (p fixedProvider) Embed(batch []string) ([][]float32, error) {
	out := make([][]float32, len(batch))
	for i := range batch {
		out[i] = p.vec
	}
	return out, nil
}
func (p fixedProvider) ModelName() string { return p.model }
func (p fixedProvider) Dimensions() int   { return p.dim }

type mapReader struct {
	byDataFile map[string]*types.Node
}

func (r mapReader) Read(dataFile string) (*types.Node, error) {
	n, ok := r.byDataFile[dataFile]
	if !ok {
		return nil, storeerr.ErrNotFound
	}
	return n, nil
}

func TestStoreEmbeddingRejectsDimensionMismatch(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	n := sampleNode("e1", 1)
	if err := s.CreateNode(ctx, n, false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	err := s.StoreEmbeddingWithVec(ctx, "e1", []float32{1, 2, 3}, "test-model", "text")
	if !storeerr.Is(err, storeerr.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}

	has, err := s.HasEmbedding(ctx, "e1")
	if err != nil {
		t.Fatalf("HasEmbedding: %v", err)
	}
	if has {
		t.Fatalf("failed store should not leave a partial embedding")
	}
}

func TestStoreEmbeddingGetEmbeddingRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	n := sampleNode("e2", 1)
	if err := s.CreateNode(ctx, n, false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	if err := s.StoreEmbeddingWithVec(ctx, "e2", vec, "test-model", "embedding text"); err != nil {
		t.Fatalf("StoreEmbeddingWithVec: %v", err)
	}

	got, err := s.GetEmbedding(ctx, "e2")
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if got == nil || len(got.Vector) != 4 {
		t.Fatalf("embedding = %+v, want a 4-dim vector", got)
	}
}

func TestFindNodesNeedingEmbeddingSkipsFresh(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	fresh := sampleNode("fresh", 1)
	stale := sampleNode("stale", 1)
	if err := s.CreateNode(ctx, fresh, false); err != nil {
		t.Fatalf("CreateNode fresh: %v", err)
	}
	if err := s.CreateNode(ctx, stale, false); err != nil {
		t.Fatalf("CreateNode stale: %v", err)
	}

	provider := fixedProvider{dim: 4, model: "test-model", vec: []float32{1, 0, 0, 0}}
	if err := s.StoreEmbeddingWithVec(ctx, "fresh", provider.vec, provider.model, "rich text EMBEDDING_FORMAT_VERSION:"+embedtext.EMBEDDING_FORMAT_VERSION); err != nil {
		t.Fatalf("StoreEmbeddingWithVec: %v", err)
	}

	rows, err := s.FindNodesNeedingEmbedding(ctx, provider, false, types.InternalMaxLimit)
	if err != nil {
		t.Fatalf("FindNodesNeedingEmbedding: %v", err)
	}
	if len(rows) != 1 || rows[0].NodeID != "stale" {
		t.Fatalf("candidates = %+v, want only the node with no embedding", rows)
	}
}

func TestBackfillEmbeddingsProcessesAllCandidates(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ids := []string{"b1", "b2", "b3"}
	reader := mapReader{byDataFile: map[string]*types.Node{}}
	for _, id := range ids {
		n := sampleNode(id, 1)
		n.DataFile = "data/" + id + ".json"
		if err := s.CreateNode(ctx, n, false); err != nil {
			t.Fatalf("CreateNode %s: %v", id, err)
		}
		reader.byDataFile[n.DataFile] = n
	}

	provider := fixedProvider{dim: 4, model: "test-model", vec: []float32{0, 1, 0, 0}}
	result, err := s.BackfillEmbeddings(ctx, provider, reader, 2, false, nil)
	if err != nil {
		t.Fatalf("BackfillEmbeddings: %v", err)
	}
	if result.Processed != len(ids) {
		t.Fatalf("processed = %d, want %d", result.Processed, len(ids))
	}
	if len(result.FailedNodeIDs) != 0 {
		t.Fatalf("failures = %v, want none", result.FailedNodeIDs)
	}
	for _, id := range ids {
		has, err := s.HasEmbedding(ctx, id)
		if err != nil {
			t.Fatalf("HasEmbedding %s: %v", id, err)
		}
		if !has {
			t.Fatalf("%s should have an embedding after backfill", id)
		}
	}
}

func TestFindNodesNeedingEmbeddingReturnsOlderInvalidPastRecentValid(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	provider := fixedProvider{dim: 4, model: "test-model", vec: []float32{1, 0, 0, 0}}
	richText := "rich text EMBEDDING_FORMAT_VERSION:" + embedtext.EMBEDDING_FORMAT_VERSION

	// One old node with no embedding at all, then five newer nodes with
	// valid current-format embeddings.
	old := sampleNode("oldest", 1)
	old.Metadata.Timestamp = old.Metadata.Timestamp.AddDate(0, -6, 0)
	if err := s.CreateNode(ctx, old, false); err != nil {
		t.Fatalf("CreateNode oldest: %v", err)
	}
	for i := 0; i < 5; i++ {
		id := "recent-" + string(rune('a'+i))
		n := sampleNode(id, 1)
		if err := s.CreateNode(ctx, n, false); err != nil {
			t.Fatalf("CreateNode %s: %v", id, err)
		}
		if err := s.StoreEmbeddingWithVec(ctx, id, provider.vec, provider.model, richText); err != nil {
			t.Fatalf("StoreEmbeddingWithVec %s: %v", id, err)
		}
	}

	rows, err := s.FindNodesNeedingEmbedding(ctx, provider, false, 3)
	if err != nil {
		t.Fatalf("FindNodesNeedingEmbedding: %v", err)
	}
	if len(rows) != 1 || rows[0].NodeID != "oldest" {
		t.Fatalf("candidates = %+v, want only the oldest unembedded node", rows)
	}
}

func TestFindNodesNeedingEmbeddingForceReturnsEverything(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	provider := fixedProvider{dim: 4, model: "test-model", vec: []float32{1, 0, 0, 0}}

	for _, id := range []string{"f1", "f2"} {
		if err := s.CreateNode(ctx, sampleNode(id, 1), false); err != nil {
			t.Fatalf("CreateNode %s: %v", id, err)
		}
	}
	if err := s.StoreEmbeddingWithVec(ctx, "f1", provider.vec, provider.model,
		"rich text EMBEDDING_FORMAT_VERSION:"+embedtext.EMBEDDING_FORMAT_VERSION); err != nil {
		t.Fatalf("StoreEmbeddingWithVec: %v", err)
	}

	rows, err := s.FindNodesNeedingEmbedding(ctx, provider, true, types.InternalMaxLimit)
	if err != nil {
		t.Fatalf("FindNodesNeedingEmbedding: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("force mode returned %d candidates, want all 2", len(rows))
	}
}
