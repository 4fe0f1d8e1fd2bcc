package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/Whamp/sessionkg/internal/types"
)

// chainStorage builds a->b->c->d->e, each linked by a continuation edge,
// and returns the storage plus node IDs in chain order.
func chainStorage(t *testing.T) (*Storage, []string) {
	t.Helper()
	s := newTestStorage(t)
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		if err := s.CreateNode(ctx, sampleNode(id, 1), false); err != nil {
			t.Fatalf("CreateNode %s: %v", id, err)
		}
	}
	for i := 0; i < len(ids)-1; i++ {
		e := &types.Edge{
			ID:           "edge-" + ids[i] + "-" + ids[i+1],
			SourceNodeID: ids[i],
			TargetNodeID: ids[i+1],
			Type:         types.EdgeContinuation,
			CreatedAt:    time.Now(),
			CreatedBy:    types.CreatedByBoundary,
		}
		if err := s.CreateEdge(ctx, e); err != nil {
			t.Fatalf("CreateEdge %s->%s: %v", ids[i], ids[i+1], err)
		}
	}
	return s, ids
}

func TestGetConnectedNodesStopsAtRequestedDepth(t *testing.T) {
	s, ids := chainStorage(t)
	ctx := context.Background()

	result, err := s.GetConnectedNodes(ctx, ids[0], TraversalOptions{Depth: 2, Direction: DirOut})
	if err != nil {
		t.Fatalf("GetConnectedNodes: %v", err)
	}
	if len(result.Nodes) != 2 {
		t.Fatalf("nodes reached = %d, want 2 (b, c) at depth 2", len(result.Nodes))
	}
	for _, e := range result.Edges {
		if e.HopDistance > 2 {
			t.Fatalf("edge %s has hop distance %d beyond the requested depth", e.Edge.ID, e.HopDistance)
		}
	}
}

func TestGetConnectedNodesDirectionIn(t *testing.T) {
	s, ids := chainStorage(t)
	ctx := context.Background()

	result, err := s.GetConnectedNodes(ctx, ids[2], TraversalOptions{Depth: 5, Direction: DirIn})
	if err != nil {
		t.Fatalf("GetConnectedNodes: %v", err)
	}
	got := map[string]bool{}
	for _, n := range result.Nodes {
		got[n.ID] = true
	}
	if !got["a"] || !got["b"] || got["d"] || got["e"] {
		t.Fatalf("in-direction BFS from c reached %v, want exactly {a, b}", got)
	}
}

func TestFindPathShortestOverUndirectedEdges(t *testing.T) {
	s, ids := chainStorage(t)
	ctx := context.Background()

	path, err := s.FindPath(ctx, ids[0], ids[4], 10)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path == nil {
		t.Fatalf("expected a path across the chain")
	}
	if len(path.NodeIDs) != 5 {
		t.Fatalf("path = %v, want all 5 chain nodes", path.NodeIDs)
	}
}

func TestFindPathReturnsNilWhenUnreachable(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateNode(ctx, sampleNode("iso1", 1), false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := s.CreateNode(ctx, sampleNode("iso2", 1), false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	path, err := s.FindPath(ctx, "iso1", "iso2", 10)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path != nil {
		t.Fatalf("expected no path between disconnected nodes, got %+v", path)
	}
}

// sessionNode builds a node pinned to a specific session file and timestamp,
// which is what the auto-linker keys on.
func sessionNode(id, sessionFile string, ts time.Time) *types.Node {
	n := sampleNode(id, 1)
	n.Source.SessionFile = sessionFile
	n.Metadata.Timestamp = ts
	return n
}

func TestLinkNodeToPredecessorsContinuation(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	t0 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	n1 := sessionNode("link1", "/s.jsonl", t0)
	n2 := sessionNode("link2", "/s.jsonl", t0.Add(10*time.Minute))
	for _, n := range []*types.Node{n1, n2} {
		if err := s.CreateNode(ctx, n, false); err != nil {
			t.Fatalf("CreateNode %s: %v", n.ID, err)
		}
	}

	created, err := s.LinkNodeToPredecessors(ctx, n2, "")
	if err != nil {
		t.Fatalf("LinkNodeToPredecessors: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created = %d edges, want 1", len(created))
	}
	e := created[0]
	if e.SourceNodeID != "link1" || e.TargetNodeID != "link2" || e.Type != types.EdgeContinuation {
		t.Fatalf("edge = %+v, want link1->link2 continuation", e)
	}

	// Repeated calls must observe the existing edge and create nothing.
	for i := 0; i < 2; i++ {
		again, err := s.LinkNodeToPredecessors(ctx, n2, "")
		if err != nil {
			t.Fatalf("repeat link: %v", err)
		}
		if len(again) != 0 {
			t.Fatalf("repeat call created %d edges, want 0", len(again))
		}
	}
	edgesTo, err := s.GetEdgesTo(ctx, "link2")
	if err != nil {
		t.Fatalf("GetEdgesTo: %v", err)
	}
	if len(edgesTo) != 1 {
		t.Fatalf("edges to link2 = %d, want 1", len(edgesTo))
	}
}

func TestLinkNodeToPredecessorsHonorsBoundaryType(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	t0 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	if err := s.CreateNode(ctx, sessionNode("bt1", "/s.jsonl", t0), false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	n2 := sessionNode("bt2", "/s.jsonl", t0.Add(time.Minute))
	if err := s.CreateNode(ctx, n2, false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	created, err := s.LinkNodeToPredecessors(ctx, n2, types.EdgeCompaction)
	if err != nil {
		t.Fatalf("LinkNodeToPredecessors: %v", err)
	}
	if len(created) != 1 || created[0].Type != types.EdgeCompaction {
		t.Fatalf("created = %+v, want one compaction edge", created)
	}

	// Unknown boundary hints fall back to continuation.
	n3 := sessionNode("bt3", "/s.jsonl", t0.Add(2*time.Minute))
	if err := s.CreateNode(ctx, n3, false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	created, err = s.LinkNodeToPredecessors(ctx, n3, types.EdgeType("made-up"))
	if err != nil {
		t.Fatalf("LinkNodeToPredecessors: %v", err)
	}
	if len(created) != 1 || created[0].Type != types.EdgeContinuation {
		t.Fatalf("created = %+v, want continuation fallback", created)
	}
}

func TestLinkNodeToPredecessorsForkFromParentSession(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	t0 := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	parent := sessionNode("fork-p", "/p.jsonl", t0)
	if err := s.CreateNode(ctx, parent, false); err != nil {
		t.Fatalf("CreateNode parent: %v", err)
	}
	child := sessionNode("fork-c", "/s.jsonl", t0.Add(time.Hour))
	child.Source.ParentSession = "/p.jsonl"
	if err := s.CreateNode(ctx, child, false); err != nil {
		t.Fatalf("CreateNode child: %v", err)
	}

	created, err := s.LinkNodeToPredecessors(ctx, child, "")
	if err != nil {
		t.Fatalf("LinkNodeToPredecessors: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created = %d edges, want 1 fork edge", len(created))
	}
	if created[0].SourceNodeID != "fork-p" || created[0].Type != types.EdgeFork {
		t.Fatalf("edge = %+v, want fork-p -> fork-c of type fork", created[0])
	}

	again, err := s.LinkNodeToPredecessors(ctx, child, "")
	if err != nil {
		t.Fatalf("repeat link: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("repeat call created %d edges, want 0", len(again))
	}
}

func TestGetConnectedNodesClampsDepthToFive(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Chain of 7 nodes 0->1->...->6; depth 10 is clamped to 5, so node 6
	// stays out of reach.
	ids := []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6"}
	for _, id := range ids {
		if err := s.CreateNode(ctx, sampleNode(id, 1), false); err != nil {
			t.Fatalf("CreateNode %s: %v", id, err)
		}
	}
	for i := 0; i < len(ids)-1; i++ {
		e := &types.Edge{SourceNodeID: ids[i], TargetNodeID: ids[i+1], Type: types.EdgeContinuation, CreatedBy: types.CreatedByDaemon}
		if err := s.CreateEdge(ctx, e); err != nil {
			t.Fatalf("CreateEdge: %v", err)
		}
	}

	result, err := s.GetConnectedNodes(ctx, "c0", TraversalOptions{Depth: 10, Direction: DirOut})
	if err != nil {
		t.Fatalf("GetConnectedNodes: %v", err)
	}
	if len(result.Nodes) != 5 {
		t.Fatalf("nodes = %d, want 5 (c1..c5)", len(result.Nodes))
	}
	for _, n := range result.Nodes {
		if n.ID == "c6" {
			t.Fatalf("c6 reachable only at hop 6, must be absent")
		}
	}
	hops := map[int]bool{}
	for _, e := range result.Edges {
		hops[e.HopDistance] = true
	}
	for h := 1; h <= 5; h++ {
		if !hops[h] {
			t.Fatalf("missing edge at hop %d: %+v", h, result.Edges)
		}
	}
}

func TestGetSubgraphIncludesRoots(t *testing.T) {
	s, ids := chainStorage(t)
	ctx := context.Background()

	result, err := s.GetSubgraph(ctx, []string{ids[0], ids[4]}, TraversalOptions{Depth: 1, Direction: DirBoth})
	if err != nil {
		t.Fatalf("GetSubgraph: %v", err)
	}
	got := map[string]bool{}
	for _, n := range result.Nodes {
		got[n.ID] = true
	}
	if !got[ids[0]] || !got[ids[4]] {
		t.Fatalf("roots missing from subgraph nodes: %v", got)
	}

	empty, err := s.GetSubgraph(ctx, nil, TraversalOptions{})
	if err != nil {
		t.Fatalf("GetSubgraph empty: %v", err)
	}
	if len(empty.Nodes) != 0 || len(empty.Edges) != 0 {
		t.Fatalf("empty root list should return an empty result, got %+v", empty)
	}
}

func TestFindPathSameNode(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	if err := s.CreateNode(ctx, sampleNode("self", 1), false); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	path, err := s.FindPath(ctx, "self", "self", 5)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path == nil || len(path.NodeIDs) != 1 || path.NodeIDs[0] != "self" || len(path.Edges) != 0 {
		t.Fatalf("path = %+v, want single-node path with no edges", path)
	}
}

func TestFindBridgePathsScoresAndSorts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	strong := 0.9
	weak := 0.1
	nodes := []*types.Node{sampleNode("br-a", 1), sampleNode("br-b", 1), sampleNode("br-c", 1)}
	for _, n := range nodes {
		if err := s.CreateNode(ctx, n, false); err != nil {
			t.Fatalf("CreateNode %s: %v", n.ID, err)
		}
	}
	if err := s.CreateEdge(ctx, &types.Edge{SourceNodeID: "br-a", TargetNodeID: "br-b", Type: types.EdgeSemantic, Confidence: &strong, CreatedBy: types.CreatedByDaemon}); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	if err := s.CreateEdge(ctx, &types.Edge{SourceNodeID: "br-a", TargetNodeID: "br-c", Type: types.EdgeSemantic, Confidence: &weak, CreatedBy: types.CreatedByDaemon}); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}

	paths, err := s.FindBridgePaths(ctx, []string{"br-a"}, BridgePathOptions{MaxDepth: 2, MinScore: 0.05, Limit: 10})
	if err != nil {
		t.Fatalf("FindBridgePaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %d, want 2", len(paths))
	}
	if paths[0].Score < paths[1].Score {
		t.Fatalf("paths not sorted by score descending: %v then %v", paths[0].Score, paths[1].Score)
	}
	if paths[0].Nodes[len(paths[0].Nodes)-1].ID != "br-b" {
		t.Fatalf("highest-scored path should end at br-b (confidence 0.9), got %s", paths[0].Nodes[len(paths[0].Nodes)-1].ID)
	}
	if paths[0].Description == "" {
		t.Fatalf("bridge path should carry a human-readable description")
	}

	// MinScore prunes the weak edge entirely.
	pruned, err := s.FindBridgePaths(ctx, []string{"br-a"}, BridgePathOptions{MaxDepth: 2, MinScore: 0.5, Limit: 10})
	if err != nil {
		t.Fatalf("FindBridgePaths pruned: %v", err)
	}
	if len(pruned) != 1 {
		t.Fatalf("pruned paths = %d, want 1 (only the 0.9-confidence hop)", len(pruned))
	}
}
