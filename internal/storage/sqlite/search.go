// FTS & snippet extraction. nodes_fts holds aggregated text, so
// indexNode/deindexNode drive it directly from application code rather
// than triggers (see migrations.go).
package sqlite

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"sync"
	"unicode"

	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

// indexNode (re)builds n's nodes_fts row from its current field values,
// aggregating the five indexed fields.
func indexNode(ctx context.Context, tx *sql.Tx, n *types.Node) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes_fts WHERE node_id = ?`, n.ID); err != nil {
		return ftsSkip(err)
	}

	var decisions strings.Builder
	for i, d := range n.Content.KeyDecisions {
		if i > 0 {
			decisions.WriteByte(' ')
		}
		decisions.WriteString(d.What)
		decisions.WriteByte(' ')
		decisions.WriteString(d.Why)
	}

	var lessons strings.Builder
	for _, level := range types.AllLessonLevels {
		for _, l := range n.Lessons[level] {
			if lessons.Len() > 0 {
				lessons.WriteByte(' ')
			}
			lessons.WriteString(l.Summary)
			lessons.WriteByte(' ')
			lessons.WriteString(l.Details)
		}
	}

	tags := combinedTags(n)

	_, err := tx.ExecContext(ctx,
		`INSERT INTO nodes_fts (node_id, summary, decisions, lessons, tags, topics) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Content.Summary, decisions.String(), lessons.String(), strings.Join(tags, " "), strings.Join(n.Semantic.Topics, " "),
	)
	return ftsSkip(err)
}

func deindexNode(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM nodes_fts WHERE node_id = ?`, id)
	return ftsSkip(err)
}

var ftsWarnOnce sync.Once

// ftsSkip lets a build without FTS5 compiled in degrade to empty search
// results instead of failing writes: "no such table/module" errors
// are swallowed after a one-time warning, everything else propagates.
func ftsSkip(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "no such module") || strings.Contains(msg, "no such table: nodes_fts") {
		ftsWarnOnce.Do(func() {
			log.Printf("[sessionkg] fts5 not available: %v — full-text search degrades to empty results", err)
		})
		return nil
	}
	return storeerr.Wrap("sqlite.fts", err)
}

func combinedTags(n *types.Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range n.Semantic.Tags {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, level := range types.AllLessonLevels {
		for _, l := range n.Lessons[level] {
			for _, t := range l.Tags {
				if t != "" && !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
			}
		}
	}
	return out
}

// buildMatchQuery splits q on whitespace, drops empty tokens, quotes each,
// and — when fields restricts matching to a subset of the five coverage
// columns — wraps the quoted tokens in FTS5's column-filter syntax.
func buildMatchQuery(q string, fields types.SearchFields) string {
	tokens := strings.Fields(q)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	body := strings.Join(quoted, " ")
	if len(fields) == 0 {
		return body
	}
	cols := strings.Join(fields, " ")
	parts := make([]string, len(quoted))
	for i, t := range quoted {
		parts[i] = "{" + cols + "}:" + t
	}
	return strings.Join(parts, " ")
}

// SearchResult is one hit from SearchNodes/SearchNodesAdvanced.
type SearchResult struct {
	Node       *types.Node
	Score      float64
	Highlights []Highlight
}

// Highlight is one matched-field snippet.
type Highlight struct {
	Field   string
	Snippet string
}

// SearchResponse is the full search API return shape.
type SearchResponse struct {
	Results []SearchResult
	Total   int
	Limit   int
	Offset  int
}

// SearchNodes runs an unscoped full-text search over all five coverage
// fields.
func (s *Storage) SearchNodes(ctx context.Context, query string, filters types.ListFilters, opts types.ListOptions) (*SearchResponse, error) {
	return s.SearchNodesAdvanced(ctx, query, nil, filters, opts)
}

// SearchNodesAdvanced runs a field-scoped full-text search, applying
// filters via the same WHERE builder ListNodes uses, and returns results
// ranked by the index's native relevance ascending.
func (s *Storage) SearchNodesAdvanced(ctx context.Context, query string, fields types.SearchFields, filters types.ListFilters, opts types.ListOptions) (*SearchResponse, error) {
	opts = opts.ClampExternal()
	match := buildMatchQuery(query, fields)
	if match == "" {
		return &SearchResponse{Results: nil, Total: 0, Limit: opts.Limit, Offset: opts.Offset}, nil
	}

	where, params := buildWhere(filters, "n.")
	whereSQL := ""
	if where != "" {
		whereSQL = " AND " + where
	}

	countSQL := `SELECT COUNT(*) FROM nodes_fts f JOIN nodes n ON n.id = f.node_id WHERE f MATCH ?` + whereSQL
	countParams := append([]interface{}{match}, params...)
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countParams...).Scan(&total); err != nil {
		if ftsSkip(err) == nil {
			return &SearchResponse{Limit: opts.Limit, Offset: opts.Offset}, nil
		}
		return nil, storeerr.Wrap("sqlite.SearchNodesAdvanced", err)
	}

	querySQL := `SELECT ` + qualifiedNodeColumns("n.") + `, f.summary, f.decisions, f.lessons, f.tags, f.topics, f.rank
		FROM nodes_fts f JOIN nodes n ON n.id = f.node_id
		WHERE f MATCH ?` + whereSQL + `
		ORDER BY f.rank ASC LIMIT ? OFFSET ?`
	queryParams := append(append([]interface{}{}, countParams...), opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, querySQL, queryParams...)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.SearchNodesAdvanced", err)
	}
	defer rows.Close()

	tokens := strings.Fields(query)
	var results []SearchResult
	for rows.Next() {
		n, summary, decisions, lessons, tags, topics, rank, scanErr := scanSearchRow(rows)
		if scanErr != nil {
			return nil, storeerr.Wrap("sqlite.SearchNodesAdvanced", scanErr)
		}
		fieldText := map[string]string{
			types.FieldSummary:   summary,
			types.FieldDecisions: decisions,
			types.FieldLessons:   lessons,
			types.FieldTags:      tags,
			types.FieldTopics:    topics,
		}
		searchFields := fields
		if len(searchFields) == 0 {
			searchFields = types.AllSearchFields
		}
		var highlights []Highlight
		for _, f := range searchFields {
			if snippet, ok := extractSnippet(fieldText[f], tokens); ok {
				highlights = append(highlights, Highlight{Field: f, Snippet: snippet})
			}
		}
		results = append(results, SearchResult{Node: n, Score: rank, Highlights: highlights})
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.Wrap("sqlite.SearchNodesAdvanced", err)
	}

	return &SearchResponse{Results: results, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

func scanSearchRow(rows *sql.Rows) (*types.Node, string, string, string, string, string, float64, error) {
	var summary, decisions, lessons, tags, topics string
	var rank float64
	n, err := scanNode(rows, &summary, &decisions, &lessons, &tags, &topics, &rank)
	if err != nil {
		return nil, "", "", "", "", "", 0, err
	}
	return n, summary, decisions, lessons, tags, topics, rank, nil
}

// CountSearchResults re-executes only the COUNT half of a search.
func (s *Storage) CountSearchResults(ctx context.Context, query string, fields types.SearchFields, filters types.ListFilters) (int, error) {
	match := buildMatchQuery(query, fields)
	if match == "" {
		return 0, nil
	}
	where, params := buildWhere(filters, "n.")
	whereSQL := ""
	if where != "" {
		whereSQL = " AND " + where
	}
	countSQL := `SELECT COUNT(*) FROM nodes_fts f JOIN nodes n ON n.id = f.node_id WHERE f MATCH ?` + whereSQL
	var total int
	err := s.db.QueryRowContext(ctx, countSQL, append([]interface{}{match}, params...)...).Scan(&total)
	if err != nil {
		if ftsSkip(err) == nil {
			return 0, nil
		}
		return 0, storeerr.Wrap("sqlite.CountSearchResults", err)
	}
	return total, nil
}

// extractSnippet scans field case-insensitively for the first occurrence of
// any token, then cuts a ~100-character window centered on the match,
// prefixing/suffixing "..." on truncation and nudging the cut to a nearby
// space so words aren't split.
func extractSnippet(field string, tokens []string) (string, bool) {
	if field == "" || len(tokens) == 0 {
		return "", false
	}
	lower := strings.ToLower(field)
	bestIdx := -1
	bestLen := 0
	for _, t := range tokens {
		lt := strings.ToLower(t)
		if lt == "" {
			continue
		}
		if idx := strings.Index(lower, lt); idx != -1 && (bestIdx == -1 || idx < bestIdx) {
			bestIdx = idx
			bestLen = len(t)
		}
	}
	if bestIdx == -1 {
		return "", false
	}

	const window = 100
	start := bestIdx - window/2
	end := bestIdx + bestLen + window/2
	if start < 0 {
		start = 0
	}
	if end > len(field) {
		end = len(field)
	}
	start = nudgeToSpace(field, start, -1)
	end = nudgeToSpace(field, end, 1)

	snippet := field[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(field) {
		snippet = snippet + "..."
	}
	return snippet, true
}

// nudgeToSpace shifts idx toward a nearby whitespace boundary (within a
// handful of characters) so a cut doesn't split a word mid-character.
func nudgeToSpace(s string, idx, dir int) int {
	const reach = 8
	if idx <= 0 || idx >= len(s) {
		return idx
	}
	for step := 0; step < reach; step++ {
		pos := idx + dir*step
		if pos < 0 || pos >= len(s) {
			break
		}
		if unicode.IsSpace(rune(s[pos])) {
			if dir < 0 {
				return pos + 1
			}
			return pos
		}
	}
	return idx
}
