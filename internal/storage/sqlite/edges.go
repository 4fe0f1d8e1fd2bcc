// Edge CRUD.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/Whamp/sessionkg/internal/idgen"
	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

const edgeColumns = `id, source_node_id, target_node_id, type, metadata, confidence, created_at, created_by`

func scanEdge(row rowScanner) (*types.Edge, error) {
	var e types.Edge
	var metadata sql.NullString
	var confidence sql.NullFloat64
	if err := row.Scan(&e.ID, &e.SourceNodeID, &e.TargetNodeID, &e.Type, &metadata, &confidence, &e.CreatedAt, &e.CreatedBy); err != nil {
		return nil, err
	}
	e.Metadata = metadata.String
	if confidence.Valid {
		v := confidence.Float64
		e.Confidence = &v
	}
	return &e, nil
}

// CreateEdge inserts a new edge row.
func (s *Storage) CreateEdge(ctx context.Context, e *types.Edge) error {
	if e.ID == "" {
		e.ID = idgen.EdgeID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (`+edgeColumns+`) VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, ?)`,
		e.ID, e.SourceNodeID, e.TargetNodeID, string(e.Type), nullableString(e.Metadata), nullableFloat(e.Confidence), string(e.CreatedBy),
	)
	if err != nil {
		return storeerr.Wrap("sqlite.CreateEdge", err)
	}
	return nil
}

// GetEdge fetches a single edge by ID, or nil if absent.
func (s *Storage) GetEdge(ctx context.Context, id string) (*types.Edge, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM edges WHERE id = ?`, id)
	e, err := scanEdge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.Wrap("sqlite.GetEdge", err)
	}
	return e, nil
}

// GetEdgesFrom returns every edge whose source is nodeID.
func (s *Storage) GetEdgesFrom(ctx context.Context, nodeID string) ([]*types.Edge, error) {
	return s.queryEdges(ctx, `SELECT `+edgeColumns+` FROM edges WHERE source_node_id = ?`, nodeID)
}

// GetEdgesTo returns every edge whose target is nodeID.
func (s *Storage) GetEdgesTo(ctx context.Context, nodeID string) ([]*types.Edge, error) {
	return s.queryEdges(ctx, `SELECT `+edgeColumns+` FROM edges WHERE target_node_id = ?`, nodeID)
}

// GetNodeEdges returns every edge touching nodeID as source or target.
func (s *Storage) GetNodeEdges(ctx context.Context, nodeID string) ([]*types.Edge, error) {
	return s.queryEdges(ctx, `SELECT `+edgeColumns+` FROM edges WHERE source_node_id = ? OR target_node_id = ?`, nodeID, nodeID)
}

func (s *Storage) queryEdges(ctx context.Context, query string, args ...interface{}) ([]*types.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeerr.Wrap("sqlite.queryEdges", err)
	}
	defer rows.Close()
	var out []*types.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, storeerr.Wrap("sqlite.queryEdges", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEdge removes a single edge by ID.
func (s *Storage) DeleteEdge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return storeerr.Wrap("sqlite.DeleteEdge", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.Wrap("sqlite.DeleteEdge", storeerr.ErrNotFound)
	}
	return nil
}

// EdgeExists reports whether an edge between source and target exists,
// optionally narrowed to a specific type when edgeType is non-nil.
func (s *Storage) EdgeExists(ctx context.Context, source, target string, edgeType *types.EdgeType) (bool, error) {
	query := `SELECT COUNT(*) FROM edges WHERE source_node_id = ? AND target_node_id = ?`
	args := []interface{}{source, target}
	if edgeType != nil {
		query += ` AND type = ?`
		args = append(args, string(*edgeType))
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, storeerr.Wrap("sqlite.EdgeExists", err)
	}
	return count > 0, nil
}
