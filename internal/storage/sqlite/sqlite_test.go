package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/Whamp/sessionkg/internal/types"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(Options{Path: ":memory:", VectorDim: 4, EmbeddingModel: "test-model"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sampleNode builds a minimal but fully populated node for storage tests;
// callers override whatever fields the test cares about.
func sampleNode(id string, version int) *types.Node {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &types.Node{
		ID:      id,
		Version: version,
		Source: types.Source{
			SessionFile: "/sessions/" + id + ".jsonl",
			Segment:     types.Segment{StartEntryID: "e1", EndEntryID: "e10", EntryCount: 9},
			Computer:    "laptop",
			SessionID:   "sess-" + id,
		},
		Classification: types.Classification{Type: types.TypeCoding, Project: "sessionkg"},
		Content:        types.Content{Summary: "implemented the thing", Outcome: types.OutcomeSuccess},
		Lessons: types.Lessons{
			types.LevelProject: {{Summary: "use FTS5 contentless tables", Confidence: types.ConfidenceHigh, Tags: []string{"sqlite"}}},
		},
		Observations: types.Observations{
			ModelQuirks: []types.ModelQuirk{{Model: "gpt", Observation: "overconfident", Severity: types.SeverityMedium, Frequency: types.FrequencySometimes}},
		},
		Metadata: types.Metadata{TokensUsed: 100, Cost: 0.01, DurationMinutes: 5, Timestamp: now, AnalyzedAt: now},
		Semantic: types.Semantic{Tags: []string{"go", "sqlite"}, Topics: []string{"storage"}},
	}
}

func TestClearAllDataEmptiesEveryTable(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	n := sampleNode("wipe", 1)
	if err := s.CreateNode(ctx, n, false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := s.StoreEmbeddingWithVec(ctx, "wipe", []float32{1, 0, 0, 0}, "test-model", "text"); err != nil {
		t.Fatalf("StoreEmbeddingWithVec: %v", err)
	}

	if err := s.ClearAllData(ctx); err != nil {
		t.Fatalf("ClearAllData: %v", err)
	}

	for _, table := range []string{"nodes", "tags", "topics", "lessons", "model_quirks", "edges", "node_embeddings"} {
		var count int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("%s still has %d rows after ClearAllData", table, count)
		}
	}
}
