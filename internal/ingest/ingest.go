package ingest

import (
	"context"

	"github.com/Whamp/sessionkg/internal/storage/sqlite"
	"github.com/Whamp/sessionkg/internal/types"
)

// Result is the outcome of a single ingestion call: the node as written,
// whether the storage layer created or updated it, and whatever structural
// edges linkNodeToPredecessors created for it.
type Result struct {
	Node        *types.Node
	Created     bool
	LinkedEdges []*types.Edge
}

// CreateNode builds a Node from output/ctx and runs the create transaction.
// It fails with ErrAlreadyExists if the derived id is already present.
// boundaryType is the caller's hint for the auto-link edge type; it
// falls back to continuation when it isn't one of the recognized boundary
// types.
func CreateNode(ctx context.Context, store *sqlite.Storage, output types.AgentOutput, jobCtx types.JobContext, boundaryType types.EdgeType) (*Result, error) {
	node := BuildNode(output, jobCtx)
	if err := store.CreateNode(ctx, node, false); err != nil {
		return nil, err
	}
	edges, err := store.LinkNodeToPredecessors(ctx, node, boundaryType)
	if err != nil {
		return nil, err
	}
	return &Result{Node: node, Created: true, LinkedEdges: edges}, nil
}

// UpdateNode builds the next version of jobCtx.ExistingNode's lineage and
// runs the update transaction. Fails with ErrNotFound if the id isn't
// already present.
func UpdateNode(ctx context.Context, store *sqlite.Storage, output types.AgentOutput, jobCtx types.JobContext) (*Result, error) {
	node := BuildNode(output, jobCtx)
	if err := store.UpdateNode(ctx, node); err != nil {
		return nil, err
	}
	return &Result{Node: node, Created: false}, nil
}

// UpsertNode builds a Node and creates or updates it depending on whether
// its id is already present, then auto-links it to its predecessors. This
// is the idempotent ingestion entry point: re-running it after a crash
// converges on the same on-disk and in-DB state.
func UpsertNode(ctx context.Context, store *sqlite.Storage, output types.AgentOutput, jobCtx types.JobContext, boundaryType types.EdgeType) (*Result, error) {
	node := BuildNode(output, jobCtx)
	res, err := store.UpsertNode(ctx, node)
	if err != nil {
		return nil, err
	}
	edges, err := store.LinkNodeToPredecessors(ctx, res.Node, boundaryType)
	if err != nil {
		return nil, err
	}
	return &Result{Node: res.Node, Created: res.Created, LinkedEdges: edges}, nil
}
