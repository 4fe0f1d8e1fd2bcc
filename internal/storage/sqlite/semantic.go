// Semantic search: vector kNN against node_embeddings_vec with the same
// filter engine listing/FTS use, post-joined on nodes.
package sqlite

import (
	"context"
	"log"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/Whamp/sessionkg/internal/embedtext"
	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

// SemanticSearchOptions bounds and filters a vector search.
type SemanticSearchOptions struct {
	Limit       int
	MaxDistance *float64
	Filters     types.ListFilters
}

// SemanticResult is one semanticSearch hit.
type SemanticResult struct {
	Node     *types.Node
	Distance float64
	Score    float64
}

// SemanticSearch runs a kNN MATCH against node_embeddings_vec, joined to
// nodes, applying filters via the Filter Engine. Any vector-layer error
// (extension absent, dimension mismatch) degrades to an empty result
// rather than propagating.
func (s *Storage) SemanticSearch(ctx context.Context, queryVec []float32, opts SemanticSearchOptions) ([]SemanticResult, error) {
	if s.vectorDim == 0 || len(queryVec) != s.vectorDim {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	normalized := embedtext.Normalize(queryVec)
	serialized, err := sqlite_vec.SerializeFloat32(normalized)
	if err != nil {
		return nil, nil
	}

	where, params := buildWhere(opts.Filters, "n.")
	whereSQL := ""
	if where != "" {
		whereSQL = " AND " + where
	}

	query := `SELECT ` + qualifiedNodeColumns("n.") + `, v.distance
		FROM node_embeddings_vec v
		JOIN nodes n ON n.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ?` + whereSQL + `
		ORDER BY v.distance ASC`
	args := append([]interface{}{serialized, limit}, params...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if vecSearchDegrades(err) {
			log.Printf("[embed] semantic search degraded: %v — returning empty results", err)
			return nil, nil
		}
		return nil, storeerr.Wrap("sqlite.SemanticSearch", err)
	}
	defer rows.Close()

	var results []SemanticResult
	for rows.Next() {
		var dist float64
		n, err := scanNode(rows, &dist)
		if err != nil {
			return nil, storeerr.Wrap("sqlite.SemanticSearch", err)
		}
		if opts.MaxDistance != nil && dist > *opts.MaxDistance {
			continue
		}
		results = append(results, SemanticResult{Node: n, Distance: dist, Score: 1 / (1 + dist)})
	}
	return results, rows.Err()
}

func vecSearchDegrades(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such module") || strings.Contains(msg, "no such table") || strings.Contains(msg, "dimension")
}

// FindSimilarNodes fetches nodeID's own embedding, then delegates to
// SemanticSearch, removing the query node from the result.
func (s *Storage) FindSimilarNodes(ctx context.Context, nodeID string, opts SemanticSearchOptions) ([]SemanticResult, error) {
	emb, err := s.GetEmbedding(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if emb == nil {
		return nil, nil
	}
	results, err := s.SemanticSearch(ctx, emb.Vector, opts)
	if err != nil {
		return nil, err
	}
	out := results[:0]
	for _, r := range results {
		if r.Node.ID != nodeID {
			out = append(out, r)
		}
	}
	return out, nil
}
