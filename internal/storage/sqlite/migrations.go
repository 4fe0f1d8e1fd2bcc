package sqlite

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Whamp/sessionkg/internal/storeerr"
)

// missingModule reports whether err is SQLite complaining that a virtual
// table module (fts5, vec0) isn't compiled into this build.
func missingModule(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such module")
}

// Migration is one forward-only, idempotent schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations lists every schema step in order. Version 1 creates the core
// tables (baseSchema); later versions add the virtual tables, which are
// split out so a build lacking FTS5/sqlite-vec support can still apply
// version 1 and limp along with search degrading to empty results.
var migrations = []Migration{
	{Version: 1, Name: "base_schema", SQL: baseSchema},
	{Version: 2, Name: "fts_index", SQL: ftsSchema},
	// Version 3 (vector index) is applied separately by migrateVectorTable
	// because its column type embeds the dimension chosen at open time.
}

func (s *Storage) ensureSchemaVersionsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func (s *Storage) appliedVersions() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_versions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (s *Storage) applyMigration(m Migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_versions (version, applied_at) VALUES (?, ?)",
		m.Version, time.Now().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}

// migrate runs every pending migration in order, then brings up the vector
// table (whose column type depends on opts.VectorDim) and reconciles
// kv_config. Re-running against a current database is a no-op.
func (s *Storage) migrate(opts Options) error {
	if err := s.ensureSchemaVersionsTable(); err != nil {
		return storeerr.Wrap("sqlite.migrate", err)
	}
	applied, err := s.appliedVersions()
	if err != nil {
		return storeerr.Wrap("sqlite.migrate", err)
	}
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			// A build without the FTS5 module still gets a working core;
			// search degrades to empty results. The version stays
			// unrecorded so a capable build applies it later.
			if missingModule(err) {
				log.Printf("[sessionkg] migration %d (%s) skipped: %v — search degrades to empty results", m.Version, m.Name, err)
				continue
			}
			return storeerr.Wrap("sqlite.migrate", err)
		}
	}
	if err := s.migrateVectorTable(opts, applied); err != nil {
		return err
	}
	return s.reconcileConfig(opts)
}

// reconcileConfig persists the caller's vector dimension/model choice on
// first open and restores the previously committed values afterward — the
// dimension is a migration-time constant.
func (s *Storage) reconcileConfig(opts Options) error {
	if v, ok := s.getConfig("vector_dim"); ok {
		var dim int
		if _, err := fmt.Sscanf(v, "%d", &dim); err == nil && dim > 0 {
			s.vectorDim = dim
			return nil
		}
	}
	if opts.VectorDim <= 0 {
		return storeerr.Wrap("sqlite.migrate", storeerr.ErrValidation)
	}
	s.vectorDim = opts.VectorDim
	if err := s.setConfig("vector_dim", fmt.Sprintf("%d", opts.VectorDim)); err != nil {
		return err
	}
	if opts.EmbeddingModel != "" {
		if err := s.setConfig("embedding_model", opts.EmbeddingModel); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) getConfig(key string) (string, bool) {
	var v string
	err := s.db.QueryRow("SELECT value FROM kv_config WHERE key = ?", key).Scan(&v)
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *Storage) setConfig(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv_config (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// migrateVectorTable creates node_embeddings_vec with a fixed FLOAT[dim]
// column. sqlite-vec virtual tables don't support ALTER, so the dimension
// is baked in at creation and never revisited.
func (s *Storage) migrateVectorTable(opts Options, applied map[int]bool) error {
	const version = 3
	if applied[version] {
		return nil
	}
	dim := opts.VectorDim
	if existing, ok := s.getConfig("vector_dim"); ok {
		var d int
		if _, err := fmt.Sscanf(existing, "%d", &d); err == nil && d > 0 {
			dim = d
		}
	}
	if dim <= 0 {
		return storeerr.Wrapf(storeerr.ErrValidation, "sqlite.migrateVectorTable: vector dimension required")
	}
	stmt := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS node_embeddings_vec USING vec0(embedding FLOAT[%d])",
		dim,
	)
	tx, err := s.db.Begin()
	if err != nil {
		return storeerr.Wrap("sqlite.migrateVectorTable", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(stmt); err != nil {
		if missingModule(err) {
			log.Printf("[embed] sqlite-vec not available: %v — semantic search degrades to empty results", err)
			return nil
		}
		return storeerr.Wrap("sqlite.migrateVectorTable", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_versions (version, applied_at) VALUES (?, ?)",
		version, time.Now().Format(time.RFC3339),
	); err != nil {
		return storeerr.Wrap("sqlite.migrateVectorTable", err)
	}
	return tx.Commit()
}

// ftsSchema creates nodes_fts as a standalone FTS5 table: the five
// indexed columns are aggregates computed from several tables, not a
// single source row, so there's no one table a content= option could
// mirror. indexNode/deindexNode in search.go maintain it explicitly
// instead of relying on triggers.
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
    node_id UNINDEXED,
    summary,
    decisions,
    lessons,
    tags,
    topics
);
`
