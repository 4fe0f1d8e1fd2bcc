package sqlite

import "testing"

func TestOpenAppliesMigrationsAndFixesVectorDim(t *testing.T) {
	s := newTestStorage(t)
	if s.VectorDim() != 4 {
		t.Fatalf("VectorDim = %d, want 4", s.VectorDim())
	}

	var tableCount int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('nodes', 'edges', 'lessons', 'model_quirks', 'tool_errors', 'kv_config', 'schema_versions')`,
	).Scan(&tableCount)
	if err != nil {
		t.Fatalf("inspect schema: %v", err)
	}
	if tableCount != 7 {
		t.Fatalf("tableCount = %d, want all 7 core tables present", tableCount)
	}
}

func TestReopenIgnoresDifferentVectorDim(t *testing.T) {
	s, err := Open(Options{Path: ":memory:", VectorDim: 8})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if s.VectorDim() != 8 {
		t.Fatalf("VectorDim = %d, want 8 on first open", s.VectorDim())
	}

	// Re-migrating the same handle (simulating a second Open against an
	// existing database) must not let a different VectorDim override the
	// committed kv_config value.
	if err := s.migrate(Options{Path: ":memory:", VectorDim: 99}); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
	if s.VectorDim() != 8 {
		t.Fatalf("VectorDim after re-migrate = %d, want unchanged 8", s.VectorDim())
	}
}
