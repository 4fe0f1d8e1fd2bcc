// Query Layer: listing, aggregation, taxonomy, and session-summary
// queries, all built on the Filter Engine's buildWhere.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

// ListResult is listNodes' return shape.
type ListResult struct {
	Nodes  []*types.Node
	Total  int
	Limit  int
	Offset int
}

// ListNodes applies filters/opts and returns a page of nodes plus the total
// matching count from a separate COUNT query.
func (s *Storage) ListNodes(ctx context.Context, filters types.ListFilters, opts types.ListOptions) (*ListResult, error) {
	opts = opts.ClampExternal()
	where, params := buildWhere(filters, "")
	whereSQL := ""
	if where != "" {
		whereSQL = " WHERE " + where
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`+whereSQL, params...).Scan(&total); err != nil {
		return nil, storeerr.Wrap("sqlite.ListNodes", err)
	}

	query := `SELECT ` + nodeColumns + ` FROM nodes` + whereSQL + ` ` + orderBySQL(opts, "") + ` LIMIT ? OFFSET ?`
	args := append(append([]interface{}{}, params...), opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.ListNodes", err)
	}
	defer rows.Close()

	var nodes []*types.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, storeerr.Wrap("sqlite.ListNodes", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.Wrap("sqlite.ListNodes", err)
	}
	for _, n := range nodes {
		if err := s.loadChildren(ctx, n); err != nil {
			return nil, err
		}
	}

	return &ListResult{Nodes: nodes, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// CountNodes reuses ListNodes with limit 1 and reads Total.
func (s *Storage) CountNodes(ctx context.Context, filters types.ListFilters) (int, error) {
	res, err := s.ListNodes(ctx, filters, types.ListOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// LessonRow is one listLessons result row, joined with its tags.
type LessonRow struct {
	types.Lesson
	NodeID string
}

// ListLessonsResult is listLessons' return shape.
type ListLessonsResult struct {
	Lessons []LessonRow
	Total   int
	Limit   int
	Offset  int
}

// ListLessons filters by level/project/tags(AND)/confidence, ordered by
// created_at DESC, id DESC.
func (s *Storage) ListLessons(ctx context.Context, filters types.LessonFilters, opts types.ListOptions) (*ListLessonsResult, error) {
	opts = opts.ClampExternal()
	var conds []string
	var params []interface{}

	if filters.Level != "" {
		conds = append(conds, "l.level = ?")
		params = append(params, string(filters.Level))
	}
	if filters.Confidence != "" {
		conds = append(conds, "l.confidence = ?")
		params = append(params, string(filters.Confidence))
	}
	if filters.Project != "" {
		conds = append(conds, "n.project LIKE ?")
		params = append(params, "%"+filters.Project+"%")
	}
	if len(filters.Tags) > 0 {
		placeholders := ""
		for i, t := range filters.Tags {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			params = append(params, t)
		}
		conds = append(conds, fmt.Sprintf(`l.id IN (
			SELECT lesson_id FROM lesson_tags WHERE tag IN (%s)
			GROUP BY lesson_id HAVING COUNT(DISTINCT tag) = %d
		)`, placeholders, len(filters.Tags)))
	}

	whereSQL := ""
	if len(conds) > 0 {
		whereSQL = " WHERE "
		for i, c := range conds {
			if i > 0 {
				whereSQL += " AND "
			}
			whereSQL += c
		}
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM lessons l JOIN nodes n ON n.id = l.node_id` + whereSQL
	if err := s.db.QueryRowContext(ctx, countQuery, params...).Scan(&total); err != nil {
		return nil, storeerr.Wrap("sqlite.ListLessons", err)
	}

	query := `SELECT l.id, l.node_id, l.level, l.summary, l.details, l.confidence, l.actionable
		FROM lessons l JOIN nodes n ON n.id = l.node_id` + whereSQL + `
		ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?`
	args := append(append([]interface{}{}, params...), opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.ListLessons", err)
	}
	defer rows.Close()

	var out []LessonRow
	for rows.Next() {
		var lr LessonRow
		var actionable sql.NullBool
		if err := rows.Scan(&lr.ID, &lr.NodeID, &lr.Level, &lr.Summary, &lr.Details, &lr.Confidence, &actionable); err != nil {
			return nil, storeerr.Wrap("sqlite.ListLessons", err)
		}
		if actionable.Valid {
			v := actionable.Bool
			lr.Actionable = &v
		}
		out = append(out, lr)
	}
	// Tags are loaded only after rows is closed: the pool holds a single
	// connection, so a query issued while rows is open would never run.
	rows.Close()
	for i := range out {
		tagRows, err := s.db.QueryContext(ctx, `SELECT tag FROM lesson_tags WHERE lesson_id = ?`, out[i].ID)
		if err == nil {
			for tagRows.Next() {
				var t string
				if tagRows.Scan(&t) == nil {
					out[i].Tags = append(out[i].Tags, t)
				}
			}
			tagRows.Close()
		}
	}

	return &ListLessonsResult{Lessons: out, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// CountLessons reuses ListLessons with limit 1.
func (s *Storage) CountLessons(ctx context.Context, filters types.LessonFilters) (int, error) {
	res, err := s.ListLessons(ctx, filters, types.ListOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// LevelSummary is getLessonsByLevel's per-level result.
type LevelSummary struct {
	Count  int
	Recent []LessonRow
}

// GetLessonsByLevel returns a complete mapping from every level (even zero-
// count ones) to its count and most recent lessons.
func (s *Storage) GetLessonsByLevel(ctx context.Context, recentLimit int) (map[types.LessonLevel]LevelSummary, error) {
	if recentLimit <= 0 {
		recentLimit = 5
	}
	out := make(map[types.LessonLevel]LevelSummary, len(types.AllLessonLevels))
	for _, level := range types.AllLessonLevels {
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons WHERE level = ?`, string(level)).Scan(&count); err != nil {
			return nil, storeerr.Wrap("sqlite.GetLessonsByLevel", err)
		}
		res, err := s.ListLessons(ctx, types.LessonFilters{Level: level}, types.ListOptions{Limit: recentLimit})
		if err != nil {
			return nil, err
		}
		out[level] = LevelSummary{Count: count, Recent: res.Lessons}
	}
	return out, nil
}

// QuirkRow is a model_quirks row.
type QuirkRow struct {
	types.ModelQuirk
	NodeID string
}

// ListQuirksResult is listQuirks' return shape.
type ListQuirksResult struct {
	Quirks []QuirkRow
	Total  int
	Limit  int
	Offset int
}

// ListQuirks filters by model/frequency(minimum rank)/severity/project.
func (s *Storage) ListQuirks(ctx context.Context, filters types.QuirkFilters, opts types.ListOptions) (*ListQuirksResult, error) {
	opts = opts.ClampExternal()
	var conds []string
	var params []interface{}

	if filters.Model != "" {
		conds = append(conds, "q.model = ?")
		params = append(params, filters.Model)
	}
	if filters.Severity != "" {
		conds = append(conds, "q.severity = ?")
		params = append(params, string(filters.Severity))
	}
	if filters.Project != "" {
		conds = append(conds, "n.project LIKE ?")
		params = append(params, "%"+filters.Project+"%")
	}
	if filters.Frequency != "" {
		freqs := frequenciesAtOrAbove(types.FrequencyRank(filters.Frequency))
		placeholders := ""
		for i, f := range freqs {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			params = append(params, string(f))
		}
		conds = append(conds, fmt.Sprintf("q.frequency IN (%s)", placeholders))
	}

	whereSQL := ""
	if len(conds) > 0 {
		whereSQL = " WHERE "
		for i, c := range conds {
			if i > 0 {
				whereSQL += " AND "
			}
			whereSQL += c
		}
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM model_quirks q JOIN nodes n ON n.id = q.node_id` + whereSQL
	if err := s.db.QueryRowContext(ctx, countQuery, params...).Scan(&total); err != nil {
		return nil, storeerr.Wrap("sqlite.ListQuirks", err)
	}

	query := `SELECT q.id, q.node_id, q.model, q.observation, q.frequency, q.workaround, q.severity
		FROM model_quirks q JOIN nodes n ON n.id = q.node_id` + whereSQL + `
		ORDER BY q.created_at DESC LIMIT ? OFFSET ?`
	args := append(append([]interface{}{}, params...), opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.ListQuirks", err)
	}
	defer rows.Close()

	var out []QuirkRow
	for rows.Next() {
		var qr QuirkRow
		var workaround sql.NullString
		if err := rows.Scan(&qr.ID, &qr.NodeID, &qr.Model, &qr.Observation, &qr.Frequency, &workaround, &qr.Severity); err != nil {
			return nil, storeerr.Wrap("sqlite.ListQuirks", err)
		}
		qr.Workaround = workaround.String
		out = append(out, qr)
	}

	return &ListQuirksResult{Quirks: out, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

func frequenciesAtOrAbove(minRank int) []types.Frequency {
	all := []types.Frequency{types.FrequencyOnce, types.FrequencySometimes, types.FrequencyOften, types.FrequencyAlways}
	var out []types.Frequency
	for _, f := range all {
		if types.FrequencyRank(f) >= minRank {
			out = append(out, f)
		}
	}
	return out
}

// CountQuirks reuses ListQuirks with limit 1.
func (s *Storage) CountQuirks(ctx context.Context, filters types.QuirkFilters) (int, error) {
	res, err := s.ListQuirks(ctx, filters, types.ListOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// GetQuirksByModel lists every quirk for a specific model.
func (s *Storage) GetQuirksByModel(ctx context.Context, model string, opts types.ListOptions) (*ListQuirksResult, error) {
	return s.ListQuirks(ctx, types.QuirkFilters{Model: model}, opts)
}

// GetAllQuirkModels returns every distinct model that has a recorded quirk.
func (s *Storage) GetAllQuirkModels(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT model FROM model_quirks ORDER BY model`)
}

// AggregatedQuirk is one (model, observation) aggregation row.
type AggregatedQuirk struct {
	Model       string
	Observation string
	Count       int
}

// GetAggregatedQuirks aggregates by (model, observation) with
// COUNT(*) >= minOccurrences.
func (s *Storage) GetAggregatedQuirks(ctx context.Context, minOccurrences int) ([]AggregatedQuirk, error) {
	if minOccurrences <= 0 {
		minOccurrences = 1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, observation, COUNT(*) as cnt FROM model_quirks
		GROUP BY model, observation HAVING COUNT(*) >= ?
		ORDER BY cnt DESC`, minOccurrences,
	)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.GetAggregatedQuirks", err)
	}
	defer rows.Close()
	var out []AggregatedQuirk
	for rows.Next() {
		var a AggregatedQuirk
		if err := rows.Scan(&a.Model, &a.Observation, &a.Count); err != nil {
			return nil, storeerr.Wrap("sqlite.GetAggregatedQuirks", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ToolErrorRow is a tool_errors row.
type ToolErrorRow struct {
	types.ToolUseError
	NodeID string
}

// ListToolErrorsResult is listToolErrors' return shape.
type ListToolErrorsResult struct {
	Errors []ToolErrorRow
	Total  int
	Limit  int
	Offset int
}

// ListToolErrors filters by tool/model/project.
func (s *Storage) ListToolErrors(ctx context.Context, filters types.ToolErrorFilters, opts types.ListOptions) (*ListToolErrorsResult, error) {
	opts = opts.ClampExternal()
	var conds []string
	var params []interface{}
	if filters.Tool != "" {
		conds = append(conds, "e.tool = ?")
		params = append(params, filters.Tool)
	}
	if filters.Model != "" {
		conds = append(conds, "e.model = ?")
		params = append(params, filters.Model)
	}
	if filters.Project != "" {
		conds = append(conds, "n.project LIKE ?")
		params = append(params, "%"+filters.Project+"%")
	}
	whereSQL := ""
	if len(conds) > 0 {
		whereSQL = " WHERE "
		for i, c := range conds {
			if i > 0 {
				whereSQL += " AND "
			}
			whereSQL += c
		}
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tool_errors e JOIN nodes n ON n.id = e.node_id`+whereSQL, params...).Scan(&total); err != nil {
		return nil, storeerr.Wrap("sqlite.ListToolErrors", err)
	}

	query := `SELECT e.id, e.node_id, e.tool, e.error_type, e.context, e.model, e.was_retried
		FROM tool_errors e JOIN nodes n ON n.id = e.node_id` + whereSQL + `
		ORDER BY e.created_at DESC LIMIT ? OFFSET ?`
	args := append(append([]interface{}{}, params...), opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.ListToolErrors", err)
	}
	defer rows.Close()
	var out []ToolErrorRow
	for rows.Next() {
		var tr ToolErrorRow
		var model sql.NullString
		if err := rows.Scan(&tr.ID, &tr.NodeID, &tr.Tool, &tr.ErrorType, &tr.Context, &model, &tr.WasRetried); err != nil {
			return nil, storeerr.Wrap("sqlite.ListToolErrors", err)
		}
		tr.Model = model.String
		out = append(out, tr)
	}
	return &ListToolErrorsResult{Errors: out, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// CountToolErrors reuses ListToolErrors with limit 1.
func (s *Storage) CountToolErrors(ctx context.Context, filters types.ToolErrorFilters) (int, error) {
	res, err := s.ListToolErrors(ctx, filters, types.ListOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// AggregatedToolError is one aggregation row, optionally grouped by model.
type AggregatedToolError struct {
	Tool  string
	Model string
	Count int
}

// GetAggregatedToolErrors aggregates tool_errors by tool, and by (tool,
// model) when groupByModel is set.
func (s *Storage) GetAggregatedToolErrors(ctx context.Context, groupByModel bool) ([]AggregatedToolError, error) {
	query := `SELECT tool, '', COUNT(*) FROM tool_errors GROUP BY tool ORDER BY COUNT(*) DESC`
	if groupByModel {
		query = `SELECT tool, COALESCE(model, ''), COUNT(*) FROM tool_errors GROUP BY tool, model ORDER BY COUNT(*) DESC`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.GetAggregatedToolErrors", err)
	}
	defer rows.Close()
	var out []AggregatedToolError
	for rows.Next() {
		var a AggregatedToolError
		if err := rows.Scan(&a.Tool, &a.Model, &a.Count); err != nil {
			return nil, storeerr.Wrap("sqlite.GetAggregatedToolErrors", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ToolErrorStats is getToolErrorStats' return shape.
type ToolErrorStats struct {
	ByTool   []AggregatedToolError
	ByModel  []AggregatedToolError
	ThisWeek int
	LastWeek int
	Change   float64
}

// GetToolErrorStats returns by-tool and by-model breakdowns plus a
// week-over-week trend.
func (s *Storage) GetToolErrorStats(ctx context.Context) (*ToolErrorStats, error) {
	byTool, err := s.GetAggregatedToolErrors(ctx, false)
	if err != nil {
		return nil, err
	}
	byModel, err := s.GetAggregatedToolErrors(ctx, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	thisWeekStart := now.AddDate(0, 0, -7)
	lastWeekStart := now.AddDate(0, 0, -14)

	var thisWeek, lastWeek int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tool_errors WHERE created_at >= ?`, thisWeekStart).Scan(&thisWeek); err != nil {
		return nil, storeerr.Wrap("sqlite.GetToolErrorStats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tool_errors WHERE created_at >= ? AND created_at < ?`, lastWeekStart, thisWeekStart).Scan(&lastWeek); err != nil {
		return nil, storeerr.Wrap("sqlite.GetToolErrorStats", err)
	}

	change := 0.0
	if lastWeek > 0 {
		change = (float64(thisWeek) - float64(lastWeek)) / float64(lastWeek) * 100
	} else if thisWeek > 0 {
		change = 100
	}

	return &ToolErrorStats{ByTool: byTool, ByModel: byModel, ThisWeek: thisWeek, LastWeek: lastWeek, Change: change}, nil
}

// SessionSummary is one getSessionSummaries row.
type SessionSummary struct {
	SessionFile      string
	NodeCount        int
	FirstTimestamp   time.Time
	LastTimestamp    time.Time
	TotalTokens      int
	TotalCost        float64
	Types            []string
	Success          int
	Partial          int
	Failed           int
	Abandoned        int
	FirstNodeSummary string
	FirstNodeType    string
}

// GetSessionSummaries aggregates per session_file, picking the earliest-
// timestamp node per session via a CTE for FirstNodeSummary/FirstNodeType.
func (s *Storage) GetSessionSummaries(ctx context.Context, project string, opts types.ListOptions) ([]SessionSummary, error) {
	opts = opts.ClampExternal()
	var whereSQL string
	var params []interface{}
	if project != "" {
		whereSQL = " WHERE project LIKE ?"
		params = append(params, "%"+project+"%")
	}

	query := `
		WITH first_node AS (
			SELECT session_file, id, type, summary,
				ROW_NUMBER() OVER (PARTITION BY session_file ORDER BY timestamp ASC) as rn
			FROM nodes` + whereSQL + `
		)
		SELECT n.session_file, COUNT(*), MIN(n.timestamp), MAX(n.timestamp),
			SUM(n.tokens_used), SUM(n.cost),
			SUM(CASE WHEN n.outcome = 'success' THEN 1 ELSE 0 END),
			SUM(CASE WHEN n.outcome = 'partial' THEN 1 ELSE 0 END),
			SUM(CASE WHEN n.outcome = 'failed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN n.outcome = 'abandoned' THEN 1 ELSE 0 END),
			(SELECT summary FROM first_node f WHERE f.session_file = n.session_file AND f.rn = 1),
			(SELECT type FROM first_node f WHERE f.session_file = n.session_file AND f.rn = 1)
		FROM nodes n` + whereSQL + `
		GROUP BY n.session_file
		ORDER BY MAX(n.timestamp) DESC
		LIMIT ? OFFSET ?`
	args := append(append(append([]interface{}{}, params...), params...), opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.GetSessionSummaries", err)
	}
	defer rows.Close()

	// MIN/MAX results have no declared column type, so the driver returns
	// them as the text it stored rather than as time.Time.
	const tsLayout = "2006-01-02 15:04:05.999999999-07:00"
	var out []SessionSummary
	for rows.Next() {
		var summary SessionSummary
		var firstTS, lastTS string
		if err := rows.Scan(&summary.SessionFile, &summary.NodeCount, &firstTS, &lastTS,
			&summary.TotalTokens, &summary.TotalCost, &summary.Success, &summary.Partial, &summary.Failed, &summary.Abandoned,
			&summary.FirstNodeSummary, &summary.FirstNodeType); err != nil {
			return nil, storeerr.Wrap("sqlite.GetSessionSummaries", err)
		}
		if summary.FirstTimestamp, err = time.Parse(tsLayout, firstTS); err != nil {
			return nil, storeerr.Wrap("sqlite.GetSessionSummaries", err)
		}
		if summary.LastTimestamp, err = time.Parse(tsLayout, lastTS); err != nil {
			return nil, storeerr.Wrap("sqlite.GetSessionSummaries", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.Wrap("sqlite.GetSessionSummaries", err)
	}
	// Types are loaded only after rows is closed, for the same single-
	// connection reason as in ListLessons.
	rows.Close()
	for i := range out {
		if typeList, err := s.distinctTypesForSession(ctx, out[i].SessionFile); err == nil {
			out[i].Types = typeList
		}
	}
	return out, nil
}

func (s *Storage) distinctTypesForSession(ctx context.Context, sessionFile string) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT type FROM nodes WHERE session_file = ? ORDER BY type`, sessionFile)
}

func (s *Storage) distinctStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.distinctStrings", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, storeerr.Wrap("sqlite.distinctStrings", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetAllProjects returns every distinct project label.
func (s *Storage) GetAllProjects(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT project FROM nodes WHERE project != '' ORDER BY project`)
}

// GetAllNodeTypes returns every distinct node type present.
func (s *Storage) GetAllNodeTypes(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT type FROM nodes ORDER BY type`)
}

// GetAllComputers returns every distinct computer label.
func (s *Storage) GetAllComputers(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT computer FROM nodes WHERE computer != '' ORDER BY computer`)
}

// GetAllTags returns the union of node tags and lesson tags.
func (s *Storage) GetAllTags(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `
		SELECT DISTINCT tag FROM (
			SELECT tag FROM tags
			UNION
			SELECT tag FROM lesson_tags
		) ORDER BY tag`)
}

// GetAllTopics returns every distinct topic.
func (s *Storage) GetAllTopics(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT topic FROM topics ORDER BY topic`)
}

// GetAllToolsWithErrors returns every distinct tool name with at least one
// recorded error.
func (s *Storage) GetAllToolsWithErrors(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT tool FROM tool_errors ORDER BY tool`)
}
