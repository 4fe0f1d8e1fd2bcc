package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/Whamp/sessionkg/internal/contentstore"
	"github.com/Whamp/sessionkg/internal/idgen"
	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

// WithContentStore attaches the content store CreateNode/UpdateNode write
// through before the relational transaction. Must be called once before
// any CRUD use.
func (s *Storage) WithContentStore(store *contentstore.Store) *Storage {
	s.content = store
	return s
}

// ContentStore returns the attached content store, or nil if none was set.
func (s *Storage) ContentStore() *contentstore.Store {
	return s.content
}

const nodeColumns = `id, version, session_file, segment_start, segment_end, segment_entry_count,
	computer, session_id, parent_session, type, project, is_new_project, had_clear_goal,
	language, frameworks, summary, outcome, key_decisions, files_touched, tools_used,
	errors_seen, prompting_wins, prompting_failures, models_used, related_projects, concepts,
	rlm_used, codemap_available, analysis_log, segment_token_count, tokens_used, cost,
	duration_minutes, timestamp, analyzed_at, analyzer_version, data_file, previous_versions,
	signals, relevance_score, last_accessed, archived, importance`

// qualifiedNodeColumns prefixes every node column, for joins where an
// unqualified name (e.g. summary against nodes_fts) would be ambiguous.
func qualifiedNodeColumns(prefix string) string {
	parts := strings.Split(nodeColumns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func jsonCol(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// insertNodeRow inserts the parent row and every child-table row inside
// tx. Updates delete and reinsert child rows wholesale rather than
// diffing them.
func insertNodeRow(ctx context.Context, tx *sql.Tx, n *types.Node) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO nodes (`+nodeColumns+`) VALUES (
		?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?
	)`,
		n.ID, n.Version, n.Source.SessionFile, n.Source.Segment.StartEntryID, n.Source.Segment.EndEntryID, n.Source.Segment.EntryCount,
		n.Source.Computer, n.Source.SessionID, nullableString(n.Source.ParentSession), string(n.Classification.Type), n.Classification.Project, n.Classification.IsNewProject, n.Classification.HadClearGoal,
		nullableString(n.Classification.Language), jsonCol(n.Classification.Frameworks), n.Content.Summary, string(n.Content.Outcome), jsonCol(n.Content.KeyDecisions), jsonCol(n.Content.FilesTouched), jsonCol(n.Content.ToolsUsed),
		jsonCol(n.Content.ErrorsSeen), jsonCol(n.Observations.PromptingWins), jsonCol(n.Observations.PromptingFailures), jsonCol(n.Observations.ModelsUsed), jsonCol(n.Semantic.RelatedProjects), jsonCol(n.Semantic.Concepts),
		n.DaemonMeta.RLMUsed, n.DaemonMeta.CodemapAvailable, nullableString(n.DaemonMeta.AnalysisLog), n.DaemonMeta.SegmentTokenCount, n.Metadata.TokensUsed, n.Metadata.Cost,
		n.Metadata.DurationMinutes, n.Metadata.Timestamp, n.Metadata.AnalyzedAt, n.Metadata.AnalyzerVersion, n.DataFile, jsonCol(n.PreviousVersions),
		nullableString(n.Signals), nullableFloat(n.RelevanceScore), nullableTime(n.LastAccessed), n.Archived, nullableFloat(n.Importance),
	)
	if err != nil {
		return storeerr.Wrap("sqlite.insertNodeRow", err)
	}
	return insertChildRows(ctx, tx, n)
}

func insertChildRows(ctx context.Context, tx *sql.Tx, n *types.Node) error {
	lessonTags := make(map[string][]string)

	nodeTags := append([]string{}, n.Semantic.Tags...)
	for _, level := range types.AllLessonLevels {
		for _, l := range n.Lessons[level] {
			id := l.ID
			if id == "" {
				id = idgen.LessonID()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO lessons (id, node_id, level, summary, details, confidence, actionable, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
				id, n.ID, string(level), l.Summary, l.Details, string(l.Confidence), actionableValue(l.Actionable),
			); err != nil {
				return storeerr.Wrap("sqlite.insertChildRows.lessons", err)
			}
			lessonTags[id] = l.Tags
		}
	}

	for _, t := range dedupeNonEmpty(nodeTags) {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (node_id, tag) VALUES (?, ?)`, n.ID, t); err != nil {
			return storeerr.Wrap("sqlite.insertChildRows.tags", err)
		}
	}
	for _, t := range dedupeNonEmpty(n.Semantic.Topics) {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO topics (node_id, topic) VALUES (?, ?)`, n.ID, t); err != nil {
			return storeerr.Wrap("sqlite.insertChildRows.topics", err)
		}
	}
	for lessonID, tags := range lessonTags {
		for _, t := range dedupeNonEmpty(tags) {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO lesson_tags (lesson_id, tag) VALUES (?, ?)`, lessonID, t); err != nil {
				return storeerr.Wrap("sqlite.insertChildRows.lesson_tags", err)
			}
		}
	}

	for _, q := range n.Observations.ModelQuirks {
		id := q.ID
		if id == "" {
			id = idgen.QuirkID()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_quirks (id, node_id, model, observation, frequency, workaround, severity, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
			id, n.ID, q.Model, q.Observation, string(q.Frequency), nullableString(q.Workaround), string(q.Severity),
		); err != nil {
			return storeerr.Wrap("sqlite.insertChildRows.model_quirks", err)
		}
	}

	for _, e := range n.Observations.ToolUseErrors {
		id := e.ID
		if id == "" {
			id = idgen.ToolErrorID()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tool_errors (id, node_id, tool, error_type, context, model, was_retried, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
			id, n.ID, e.Tool, e.ErrorType, e.Context, nullableString(e.Model), e.WasRetried,
		); err != nil {
			return storeerr.Wrap("sqlite.insertChildRows.tool_errors", err)
		}
	}

	for _, d := range n.DaemonMeta.Decisions {
		id := d.ID
		if id == "" {
			id = idgen.DecisionID()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO daemon_decisions (id, node_id, timestamp, decision, reasoning, needs_review, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
			id, n.ID, d.Timestamp, d.Decision, d.Reasoning, d.NeedsReview,
		); err != nil {
			return storeerr.Wrap("sqlite.insertChildRows.daemon_decisions", err)
		}
	}

	return nil
}

func actionableValue(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}

func dedupeNonEmpty(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func deleteChildRows(ctx context.Context, tx *sql.Tx, nodeID string) error {
	stmts := []string{
		`DELETE FROM lesson_tags WHERE lesson_id IN (SELECT id FROM lessons WHERE node_id = ?)`,
		`DELETE FROM lessons WHERE node_id = ?`,
		`DELETE FROM tags WHERE node_id = ?`,
		`DELETE FROM topics WHERE node_id = ?`,
		`DELETE FROM model_quirks WHERE node_id = ?`,
		`DELETE FROM tool_errors WHERE node_id = ?`,
		`DELETE FROM daemon_decisions WHERE node_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, nodeID); err != nil {
			return storeerr.Wrap("sqlite.deleteChildRows", err)
		}
	}
	return nil
}

// CreateNode writes the node to the content store, then runs a single
// transaction inserting the parent row, every child row, and the FTS entry
// (unless skipFts). Fails with ErrAlreadyExists if the ID already has a row.
func (s *Storage) CreateNode(ctx context.Context, n *types.Node, skipFts bool) error {
	if n.ID == "" || n.Version <= 0 {
		return storeerr.Wrap("sqlite.CreateNode", storeerr.ErrValidation)
	}
	if existing, err := s.nodeSessionFile(ctx, n.ID); err == nil && existing != "" && existing != n.Source.SessionFile {
		return storeerr.Wrap("sqlite.CreateNode", storeerr.ErrIdentityConflict)
	}
	if s.content != nil {
		path, err := s.content.Write(n)
		if err != nil {
			return storeerr.Wrap("sqlite.CreateNode", err)
		}
		n.DataFile = path
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE id = ?`, n.ID).Scan(&exists); err != nil {
			return storeerr.Wrap("sqlite.CreateNode", err)
		}
		if exists > 0 {
			return storeerr.Wrap("sqlite.CreateNode", storeerr.ErrAlreadyExists)
		}
		if err := insertNodeRow(ctx, tx, n); err != nil {
			return err
		}
		if !skipFts {
			return indexNode(ctx, tx, n)
		}
		return nil
	})
}

// UpdateNode requires the ID to already exist. It writes a new content-store file, updates the parent row (source columns
// excluded — they're invariant by construction), replaces child rows, and
// re-indexes FTS.
func (s *Storage) UpdateNode(ctx context.Context, n *types.Node) error {
	if n.ID == "" || n.Version <= 0 {
		return storeerr.Wrap("sqlite.UpdateNode", storeerr.ErrValidation)
	}
	if s.content != nil {
		path, err := s.content.Write(n)
		if err != nil {
			return storeerr.Wrap("sqlite.UpdateNode", err)
		}
		n.DataFile = path
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE id = ?`, n.ID).Scan(&exists); err != nil {
			return storeerr.Wrap("sqlite.UpdateNode", err)
		}
		if exists == 0 {
			return storeerr.Wrap("sqlite.UpdateNode", storeerr.ErrNotFound)
		}
		// Update in place: a DELETE here would cascade to edges and the
		// embedding, which survive updates. Source columns are left alone —
		// they're invariant for a given id.
		if _, err := tx.ExecContext(ctx, `UPDATE nodes SET
			version = ?, type = ?, project = ?, is_new_project = ?, had_clear_goal = ?,
			language = ?, frameworks = ?, summary = ?, outcome = ?, key_decisions = ?,
			files_touched = ?, tools_used = ?, errors_seen = ?, prompting_wins = ?,
			prompting_failures = ?, models_used = ?, related_projects = ?, concepts = ?,
			rlm_used = ?, codemap_available = ?, analysis_log = ?, segment_token_count = ?,
			tokens_used = ?, cost = ?, duration_minutes = ?, timestamp = ?, analyzed_at = ?,
			analyzer_version = ?, data_file = ?, previous_versions = ?, signals = ?,
			relevance_score = ?, last_accessed = ?, archived = ?, importance = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
			n.Version, string(n.Classification.Type), n.Classification.Project, n.Classification.IsNewProject, n.Classification.HadClearGoal,
			nullableString(n.Classification.Language), jsonCol(n.Classification.Frameworks), n.Content.Summary, string(n.Content.Outcome), jsonCol(n.Content.KeyDecisions),
			jsonCol(n.Content.FilesTouched), jsonCol(n.Content.ToolsUsed), jsonCol(n.Content.ErrorsSeen), jsonCol(n.Observations.PromptingWins),
			jsonCol(n.Observations.PromptingFailures), jsonCol(n.Observations.ModelsUsed), jsonCol(n.Semantic.RelatedProjects), jsonCol(n.Semantic.Concepts),
			n.DaemonMeta.RLMUsed, n.DaemonMeta.CodemapAvailable, nullableString(n.DaemonMeta.AnalysisLog), n.DaemonMeta.SegmentTokenCount,
			n.Metadata.TokensUsed, n.Metadata.Cost, n.Metadata.DurationMinutes, n.Metadata.Timestamp, n.Metadata.AnalyzedAt,
			n.Metadata.AnalyzerVersion, n.DataFile, jsonCol(n.PreviousVersions), nullableString(n.Signals),
			nullableFloat(n.RelevanceScore), nullableTime(n.LastAccessed), n.Archived, nullableFloat(n.Importance),
			n.ID,
		); err != nil {
			return storeerr.Wrap("sqlite.UpdateNode", err)
		}
		if err := deleteChildRows(ctx, tx, n.ID); err != nil {
			return err
		}
		if err := insertChildRows(ctx, tx, n); err != nil {
			return err
		}
		return indexNode(ctx, tx, n)
	})
}

// UpsertResult is upsertNode's return shape: the stored node plus
// whether this call created it.
type UpsertResult struct {
	Node    *types.Node
	Created bool
}

// UpsertNode updates if the ID exists, else creates. This is the
// idempotent-ingestion entry point.
func (s *Storage) UpsertNode(ctx context.Context, n *types.Node) (*UpsertResult, error) {
	existing, err := s.nodeSessionFile(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	if existing == "" {
		if err := s.CreateNode(ctx, n, false); err != nil {
			return nil, err
		}
		return &UpsertResult{Node: n, Created: true}, nil
	}
	if err := s.UpdateNode(ctx, n); err != nil {
		return nil, err
	}
	return &UpsertResult{Node: n, Created: false}, nil
}

func (s *Storage) nodeSessionFile(ctx context.Context, id string) (string, error) {
	var sf string
	err := s.db.QueryRowContext(ctx, `SELECT session_file FROM nodes WHERE id = ?`, id).Scan(&sf)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", storeerr.Wrap("sqlite.nodeSessionFile", err)
	}
	return sf, nil
}

// NodeExistsInDb reports whether id has a row in nodes.
func (s *Storage) NodeExistsInDb(ctx context.Context, id string) (bool, error) {
	sf, err := s.nodeSessionFile(ctx, id)
	if err != nil {
		return false, err
	}
	return sf != "", nil
}

// GetNode reconstructs the full Node for the latest row at id, or nil if
// absent.
func (s *Storage) GetNode(ctx context.Context, id string) (*types.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.Wrap("sqlite.GetNode", err)
	}
	if err := s.loadChildren(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// GetNodeVersion reads a specific historical version via the content store
// (the relational row always reflects the latest version).
func (s *Storage) GetNodeVersion(ctx context.Context, id string, version int) (*types.Node, error) {
	if s.content == nil {
		return nil, storeerr.Wrap("sqlite.GetNodeVersion", storeerr.ErrNotFound)
	}
	versions, err := s.content.ListVersions(id)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.GetNodeVersion", err)
	}
	for _, v := range versions {
		if v.Version == version {
			return s.content.ReadFromPath(v.Path)
		}
	}
	return nil, nil
}

// GetAllNodeVersions returns every version number on disk for id.
func (s *Storage) GetAllNodeVersions(ctx context.Context, id string) ([]int, error) {
	if s.content == nil {
		return nil, nil
	}
	versions, err := s.content.ListVersions(id)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.GetAllNodeVersions", err)
	}
	out := make([]int, len(versions))
	for i, v := range versions {
		out[i] = v.Version
	}
	return out, nil
}

// DeleteNode cascades: removes the parent row (FK ON DELETE CASCADE takes
// child tables and edges with it), and deindexes FTS/vector rows. Content
// store files are retained.
func (s *Storage) DeleteNode(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// The vec table has no FK, so grab the rowid before the parent row
		// goes away.
		var rowid sql.NullInt64
		_ = tx.QueryRowContext(ctx, `SELECT rowid FROM nodes WHERE id = ?`, id).Scan(&rowid)

		res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
		if err != nil {
			return storeerr.Wrap("sqlite.DeleteNode", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return storeerr.Wrap("sqlite.DeleteNode", storeerr.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source_node_id = ? OR target_node_id = ?`, id, id); err != nil {
			return storeerr.Wrap("sqlite.DeleteNode", err)
		}
		if err := deindexNode(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM node_embeddings WHERE node_id = ?`, id); err != nil {
			return storeerr.Wrap("sqlite.DeleteNode", err)
		}
		if rowid.Valid {
			_, _ = tx.ExecContext(ctx, `DELETE FROM node_embeddings_vec WHERE rowid = ?`, rowid.Int64)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanNode scans the fixed nodeColumns projection plus any caller-supplied
// trailing destinations (e.g. search.go's FTS snippet columns and rank),
// all in a single Scan call since sql.Rows only allows one per row.
func scanNode(row rowScanner, extra ...interface{}) (*types.Node, error) {
	var n types.Node
	var (
		parentSession, language, analysisLog, signals                           string
		frameworks, keyDecisions, filesTouched, toolsUsed, errorsSeen           string
		promptingWins, promptingFailures, modelsUsed, relatedProjects, concepts string
		previousVersions                                                        string
		segmentTokenCount                                                       sql.NullInt64
		relevanceScore, importance                                              sql.NullFloat64
		lastAccessed                                                            sql.NullTime
	)
	var nullParentSession, nullLanguage, nullAnalysisLog, nullSignals sql.NullString

	dest := []interface{}{
		&n.ID, &n.Version, &n.Source.SessionFile, &n.Source.Segment.StartEntryID, &n.Source.Segment.EndEntryID, &n.Source.Segment.EntryCount,
		&n.Source.Computer, &n.Source.SessionID, &nullParentSession, &n.Classification.Type, &n.Classification.Project, &n.Classification.IsNewProject, &n.Classification.HadClearGoal,
		&nullLanguage, &frameworks, &n.Content.Summary, &n.Content.Outcome, &keyDecisions, &filesTouched, &toolsUsed,
		&errorsSeen, &promptingWins, &promptingFailures, &modelsUsed, &relatedProjects, &concepts,
		&n.DaemonMeta.RLMUsed, &n.DaemonMeta.CodemapAvailable, &nullAnalysisLog, &segmentTokenCount, &n.Metadata.TokensUsed, &n.Metadata.Cost,
		&n.Metadata.DurationMinutes, &n.Metadata.Timestamp, &n.Metadata.AnalyzedAt, &n.Metadata.AnalyzerVersion, &n.DataFile, &previousVersions,
		&nullSignals, &relevanceScore, &lastAccessed, &n.Archived, &importance,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	parentSession = nullParentSession.String
	language = nullLanguage.String
	analysisLog = nullAnalysisLog.String
	signals = nullSignals.String

	n.Source.ParentSession = parentSession
	n.Classification.Language = language
	n.DaemonMeta.AnalysisLog = analysisLog
	n.Signals = signals
	_ = json.Unmarshal([]byte(frameworks), &n.Classification.Frameworks)
	_ = json.Unmarshal([]byte(keyDecisions), &n.Content.KeyDecisions)
	_ = json.Unmarshal([]byte(filesTouched), &n.Content.FilesTouched)
	_ = json.Unmarshal([]byte(toolsUsed), &n.Content.ToolsUsed)
	_ = json.Unmarshal([]byte(errorsSeen), &n.Content.ErrorsSeen)
	_ = json.Unmarshal([]byte(promptingWins), &n.Observations.PromptingWins)
	_ = json.Unmarshal([]byte(promptingFailures), &n.Observations.PromptingFailures)
	_ = json.Unmarshal([]byte(modelsUsed), &n.Observations.ModelsUsed)
	_ = json.Unmarshal([]byte(relatedProjects), &n.Semantic.RelatedProjects)
	_ = json.Unmarshal([]byte(concepts), &n.Semantic.Concepts)
	_ = json.Unmarshal([]byte(previousVersions), &n.PreviousVersions)

	if segmentTokenCount.Valid {
		n.DaemonMeta.SegmentTokenCount = int(segmentTokenCount.Int64)
	}
	if relevanceScore.Valid {
		v := relevanceScore.Float64
		n.RelevanceScore = &v
	}
	if importance.Valid {
		v := importance.Float64
		n.Importance = &v
	}
	if lastAccessed.Valid {
		v := lastAccessed.Time
		n.LastAccessed = &v
	}

	n.Lessons = make(types.Lessons)
	return &n, nil
}

func (s *Storage) loadChildren(ctx context.Context, n *types.Node) error {
	tagRows, err := s.db.QueryContext(ctx, `SELECT tag FROM tags WHERE node_id = ?`, n.ID)
	if err != nil {
		return storeerr.Wrap("sqlite.loadChildren.tags", err)
	}
	n.Semantic.Tags = nil
	for tagRows.Next() {
		var t string
		if err := tagRows.Scan(&t); err != nil {
			tagRows.Close()
			return storeerr.Wrap("sqlite.loadChildren.tags", err)
		}
		n.Semantic.Tags = append(n.Semantic.Tags, t)
	}
	tagRows.Close()

	topicRows, err := s.db.QueryContext(ctx, `SELECT topic FROM topics WHERE node_id = ?`, n.ID)
	if err != nil {
		return storeerr.Wrap("sqlite.loadChildren.topics", err)
	}
	n.Semantic.Topics = nil
	for topicRows.Next() {
		var t string
		if err := topicRows.Scan(&t); err != nil {
			topicRows.Close()
			return storeerr.Wrap("sqlite.loadChildren.topics", err)
		}
		n.Semantic.Topics = append(n.Semantic.Topics, t)
	}
	topicRows.Close()

	lessonRows, err := s.db.QueryContext(ctx, `SELECT id, level, summary, details, confidence, actionable FROM lessons WHERE node_id = ?`, n.ID)
	if err != nil {
		return storeerr.Wrap("sqlite.loadChildren.lessons", err)
	}
	type lessonRow struct {
		id, level, summary, details, confidence string
		actionable                              sql.NullBool
	}
	var lessonRowsData []lessonRow
	for lessonRows.Next() {
		var lr lessonRow
		if err := lessonRows.Scan(&lr.id, &lr.level, &lr.summary, &lr.details, &lr.confidence, &lr.actionable); err != nil {
			lessonRows.Close()
			return storeerr.Wrap("sqlite.loadChildren.lessons", err)
		}
		lessonRowsData = append(lessonRowsData, lr)
	}
	lessonRows.Close()

	for _, lr := range lessonRowsData {
		l := types.Lesson{ID: lr.id, Level: types.LessonLevel(lr.level), Summary: lr.summary, Details: lr.details, Confidence: types.Confidence(lr.confidence)}
		if lr.actionable.Valid {
			v := lr.actionable.Bool
			l.Actionable = &v
		}
		lagRows, err := s.db.QueryContext(ctx, `SELECT tag FROM lesson_tags WHERE lesson_id = ?`, lr.id)
		if err == nil {
			for lagRows.Next() {
				var t string
				if lagRows.Scan(&t) == nil {
					l.Tags = append(l.Tags, t)
				}
			}
			lagRows.Close()
		}
		n.Lessons[l.Level] = append(n.Lessons[l.Level], l)
	}

	quirkRows, err := s.db.QueryContext(ctx, `SELECT id, model, observation, frequency, workaround, severity FROM model_quirks WHERE node_id = ?`, n.ID)
	if err != nil {
		return storeerr.Wrap("sqlite.loadChildren.model_quirks", err)
	}
	n.Observations.ModelQuirks = nil
	for quirkRows.Next() {
		var q types.ModelQuirk
		var workaround sql.NullString
		if err := quirkRows.Scan(&q.ID, &q.Model, &q.Observation, &q.Frequency, &workaround, &q.Severity); err != nil {
			quirkRows.Close()
			return storeerr.Wrap("sqlite.loadChildren.model_quirks", err)
		}
		q.Workaround = workaround.String
		n.Observations.ModelQuirks = append(n.Observations.ModelQuirks, q)
	}
	quirkRows.Close()

	errRows, err := s.db.QueryContext(ctx, `SELECT id, tool, error_type, context, model, was_retried FROM tool_errors WHERE node_id = ?`, n.ID)
	if err != nil {
		return storeerr.Wrap("sqlite.loadChildren.tool_errors", err)
	}
	n.Observations.ToolUseErrors = nil
	for errRows.Next() {
		var e types.ToolUseError
		var model sql.NullString
		if err := errRows.Scan(&e.ID, &e.Tool, &e.ErrorType, &e.Context, &model, &e.WasRetried); err != nil {
			errRows.Close()
			return storeerr.Wrap("sqlite.loadChildren.tool_errors", err)
		}
		e.Model = model.String
		n.Observations.ToolUseErrors = append(n.Observations.ToolUseErrors, e)
	}
	errRows.Close()

	decRows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, decision, reasoning, needs_review FROM daemon_decisions WHERE node_id = ?`, n.ID)
	if err != nil {
		return storeerr.Wrap("sqlite.loadChildren.daemon_decisions", err)
	}
	n.DaemonMeta.Decisions = nil
	for decRows.Next() {
		var d types.DaemonDecision
		if err := decRows.Scan(&d.ID, &d.Timestamp, &d.Decision, &d.Reasoning, &d.NeedsReview); err != nil {
			decRows.Close()
			return storeerr.Wrap("sqlite.loadChildren.daemon_decisions", err)
		}
		n.DaemonMeta.Decisions = append(n.DaemonMeta.Decisions, d)
	}
	decRows.Close()

	return nil
}
