package sqlite

import (
	"strings"
	"testing"

	"github.com/Whamp/sessionkg/internal/types"
)

func TestBuildWhereEmptyFilters(t *testing.T) {
	where, params := buildWhere(types.ListFilters{}, "")
	if where != "" || len(params) != 0 {
		t.Fatalf("empty filters should compile to no clause, got %q %v", where, params)
	}
}

func TestBuildWhereTagsRequireAll(t *testing.T) {
	where, params := buildWhere(types.ListFilters{Tags: []string{"go", "sqlite"}}, "")
	if !strings.Contains(where, "HAVING COUNT(DISTINCT tag) = ?") {
		t.Fatalf("tag filter should AND via HAVING COUNT, got %q", where)
	}
	if len(params) != 3 {
		t.Fatalf("params = %v, want 2 tag placeholders + the count", params)
	}
	if params[2] != 2 {
		t.Fatalf("last param = %v, want tag count 2", params[2])
	}
}

func TestBuildWhereQualifiesColumnsWithPrefix(t *testing.T) {
	where, _ := buildWhere(types.ListFilters{ExactProject: "beads"}, "n.")
	if !strings.Contains(where, "n.project = ?") {
		t.Fatalf("prefix not applied, got %q", where)
	}
}

func TestBuildWhereNeverInlinesValues(t *testing.T) {
	where, params := buildWhere(types.ListFilters{ExactProject: "'; DROP TABLE nodes; --"}, "")
	if strings.Contains(where, "DROP TABLE") {
		t.Fatalf("filter value leaked into SQL text: %q", where)
	}
	if len(params) != 1 || params[0] != "'; DROP TABLE nodes; --" {
		t.Fatalf("value should travel as a bound parameter, got %v", params)
	}
}

func TestOrderBySQLClampedDefaults(t *testing.T) {
	opts := types.ListOptions{}.ClampExternal()
	order := orderBySQL(opts, "")
	if order != "ORDER BY timestamp DESC" {
		t.Fatalf("order = %q, want default timestamp DESC", order)
	}
}

func TestOrderBySQLAscending(t *testing.T) {
	opts := types.ListOptions{SortBy: "cost", Order: types.SortAsc}.ClampExternal()
	order := orderBySQL(opts, "n.")
	if order != "ORDER BY n.cost ASC" {
		t.Fatalf("order = %q", order)
	}
}
