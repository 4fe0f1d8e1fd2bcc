// Filter Engine: compiles a typed ListFilters record into a WHERE
// fragment and a parallel parameter vector, never string-concatenating a
// value into the SQL text itself.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/Whamp/sessionkg/internal/types"
)

// buildWhere compiles filters into a "cond1 AND cond2 ..." fragment (empty
// string if no filter is set) plus its parameter vector. prefix, when
// non-empty, qualifies every nodes-table column reference (e.g. "n." for
// joined queries).
func buildWhere(f types.ListFilters, prefix string) (string, []interface{}) {
	var conds []string
	var params []interface{}

	col := func(name string) string { return prefix + name }

	if f.Project != "" {
		conds = append(conds, col("project")+" LIKE ?")
		params = append(params, "%"+f.Project+"%")
	}
	if f.ExactProject != "" {
		conds = append(conds, col("project")+" = ?")
		params = append(params, f.ExactProject)
	}
	if f.Type != "" {
		conds = append(conds, col("type")+" = ?")
		params = append(params, string(f.Type))
	}
	if f.Outcome != "" {
		conds = append(conds, col("outcome")+" = ?")
		params = append(params, string(f.Outcome))
	}
	if f.From != nil {
		conds = append(conds, col("timestamp")+" >= ?")
		params = append(params, *f.From)
	}
	if f.To != nil {
		conds = append(conds, col("timestamp")+" <= ?")
		params = append(params, *f.To)
	}
	if f.Computer != "" {
		conds = append(conds, col("computer")+" = ?")
		params = append(params, f.Computer)
	}
	if f.HadClearGoal != nil {
		conds = append(conds, col("had_clear_goal")+" = ?")
		params = append(params, boolToInt(*f.HadClearGoal))
	}
	if f.IsNewProject != nil {
		conds = append(conds, col("is_new_project")+" = ?")
		params = append(params, boolToInt(*f.IsNewProject))
	}
	if f.SessionFile != "" {
		conds = append(conds, col("session_file")+" = ?")
		params = append(params, f.SessionFile)
	}
	if len(f.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Tags)), ",")
		conds = append(conds, col("id")+` IN (
			SELECT node_id FROM (
				SELECT node_id, tag FROM tags
				UNION
				SELECT l.node_id, lt.tag FROM lesson_tags lt JOIN lessons l ON l.id = lt.lesson_id
			) combined_tags
			WHERE tag IN (`+placeholders+`)
			GROUP BY node_id HAVING COUNT(DISTINCT tag) = ?
		)`)
		for _, t := range f.Tags {
			params = append(params, t)
		}
		params = append(params, len(f.Tags))
	}
	if len(f.Topics) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Topics)), ",")
		conds = append(conds, col("id")+` IN (
			SELECT node_id FROM topics
			WHERE topic IN (`+placeholders+`)
			GROUP BY node_id HAVING COUNT(DISTINCT topic) = ?
		)`)
		for _, t := range f.Topics {
			params = append(params, t)
		}
		params = append(params, len(f.Topics))
	}

	return strings.Join(conds, " AND "), params
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// orderBySQL renders a validated ListOptions into an ORDER BY clause.
// Callers must clamp opts first (ClampInternal/ClampExternal), which also
// defaults SortBy/Order against the allow-list.
func orderBySQL(opts types.ListOptions, prefix string) string {
	dir := "DESC"
	if opts.Order == types.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s%s %s", prefix, opts.SortBy, dir)
}
