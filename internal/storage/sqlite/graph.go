// Graph Engine traversal: auto-linking, BFS as explicit
// visited/frontier state, shortest path,
// ancestors/descendants, weighted bridge paths.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Whamp/sessionkg/internal/idgen"
	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

// LinkNodeToPredecessors creates up to two structural edges for a freshly
// ingested node, idempotently. Callers must invoke
// this after the node itself has been committed.
func (s *Storage) LinkNodeToPredecessors(ctx context.Context, node *types.Node, boundaryType types.EdgeType) ([]*types.Edge, error) {
	var created []*types.Edge

	predID, err := s.mostRecentInSession(ctx, node.Source.SessionFile, node.ID)
	if err != nil {
		return nil, err
	}
	if predID != "" {
		exists, err := s.EdgeExists(ctx, predID, node.ID, nil)
		if err != nil {
			return nil, err
		}
		if !exists {
			t := types.EdgeContinuation
			if types.IsBoundaryType(boundaryType) {
				t = boundaryType
			}
			e := &types.Edge{ID: idgen.EdgeID(), SourceNodeID: predID, TargetNodeID: node.ID, Type: t, CreatedBy: types.CreatedByBoundary}
			if err := s.CreateEdge(ctx, e); err != nil {
				return nil, err
			}
			created = append(created, e)
		}
	}

	if node.Source.ParentSession != "" {
		hasIncoming, err := s.hasIncomingSameSessionEdge(ctx, node.ID, node.Source.SessionFile)
		if err != nil {
			return nil, err
		}
		if !hasIncoming {
			parentID, err := s.mostRecentInSession(ctx, node.Source.ParentSession, "")
			if err != nil {
				return nil, err
			}
			if parentID != "" {
				exists, err := s.EdgeExists(ctx, parentID, node.ID, nil)
				if err != nil {
					return nil, err
				}
				if !exists {
					e := &types.Edge{ID: idgen.EdgeID(), SourceNodeID: parentID, TargetNodeID: node.ID, Type: types.EdgeFork, CreatedBy: types.CreatedByBoundary}
					if err := s.CreateEdge(ctx, e); err != nil {
						return nil, err
					}
					created = append(created, e)
				}
			}
		}
	}

	return created, nil
}

func (s *Storage) mostRecentInSession(ctx context.Context, sessionFile, excludeID string) (string, error) {
	if sessionFile == "" {
		return "", nil
	}
	query := `SELECT id FROM nodes WHERE session_file = ?`
	args := []interface{}{sessionFile}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}
	query += ` ORDER BY timestamp DESC, segment_end DESC, version DESC LIMIT 1`
	var id string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", storeerr.Wrap("sqlite.mostRecentInSession", err)
	}
	return id, nil
}

func (s *Storage) hasIncomingSameSessionEdge(ctx context.Context, nodeID, sessionFile string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges e JOIN nodes n ON n.id = e.source_node_id
		WHERE e.target_node_id = ? AND n.session_file = ?`, nodeID, sessionFile,
	).Scan(&count)
	if err != nil {
		return false, storeerr.Wrap("sqlite.hasIncomingSameSessionEdge", err)
	}
	return count > 0, nil
}

// Direction selects which edges a BFS hop follows relative to each frontier
// node.
type Direction string

const (
	DirIn   Direction = "in"
	DirOut  Direction = "out"
	DirBoth Direction = "both"
)

// TraversalOptions bounds a BFS call.
type TraversalOptions struct {
	Depth     int
	Direction Direction
	EdgeTypes []types.EdgeType
}

func (o TraversalOptions) clamp() TraversalOptions {
	out := o
	if out.Depth < 1 {
		out.Depth = 1
	}
	if out.Depth > 5 {
		out.Depth = 5
	}
	if out.Direction == "" {
		out.Direction = DirBoth
	}
	return out
}

// TraversedEdge is one BFS-discovered edge annotated with hop distance and
// direction relative to the traversal root.
type TraversedEdge struct {
	Edge        *types.Edge
	HopDistance int
	Direction   string
}

// ConnectedResult is getConnectedNodes' return shape.
type ConnectedResult struct {
	RootNodeID string
	Nodes      []*types.Node
	Edges      []TraversedEdge
}

// GetConnectedNodes runs clamped-depth BFS from root, following edges in
// the requested direction (optionally filtered by type), recording each
// edge once with its hop distance.
func (s *Storage) GetConnectedNodes(ctx context.Context, root string, opts TraversalOptions) (*ConnectedResult, error) {
	opts = opts.clamp()
	visited := map[string]bool{root: true}
	frontier := []string{root}
	seenEdges := map[string]bool{}
	var edges []TraversedEdge
	var nodeIDs []string

	allowedType := func(t types.EdgeType) bool {
		if len(opts.EdgeTypes) == 0 {
			return true
		}
		for _, a := range opts.EdgeTypes {
			if a == t {
				return true
			}
		}
		return false
	}

	for hop := 1; hop <= opts.Depth && len(frontier) > 0; hop++ {
		var next []string
		for _, nodeID := range frontier {
			var candidates []struct {
				edge *types.Edge
				dir  string
				peer string
			}
			if opts.Direction == DirOut || opts.Direction == DirBoth {
				out, err := s.GetEdgesFrom(ctx, nodeID)
				if err != nil {
					return nil, err
				}
				for _, e := range out {
					candidates = append(candidates, struct {
						edge *types.Edge
						dir  string
						peer string
					}{e, "outgoing", e.TargetNodeID})
				}
			}
			if opts.Direction == DirIn || opts.Direction == DirBoth {
				in, err := s.GetEdgesTo(ctx, nodeID)
				if err != nil {
					return nil, err
				}
				for _, e := range in {
					candidates = append(candidates, struct {
						edge *types.Edge
						dir  string
						peer string
					}{e, "incoming", e.SourceNodeID})
				}
			}

			for _, c := range candidates {
				if !allowedType(c.edge.Type) {
					continue
				}
				if !seenEdges[c.edge.ID] {
					seenEdges[c.edge.ID] = true
					edges = append(edges, TraversedEdge{Edge: c.edge, HopDistance: hop, Direction: c.dir})
				}
				if !visited[c.peer] {
					visited[c.peer] = true
					nodeIDs = append(nodeIDs, c.peer)
					next = append(next, c.peer)
				}
			}
		}
		frontier = next
	}

	nodes := make([]*types.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		n, err := s.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}

	return &ConnectedResult{RootNodeID: root, Nodes: nodes, Edges: edges}, nil
}

// GetSubgraph unions per-root BFS results; roots are included among the
// returned nodes and edges deduplicated by ID.
func (s *Storage) GetSubgraph(ctx context.Context, roots []string, opts TraversalOptions) (*ConnectedResult, error) {
	if len(roots) == 0 {
		return &ConnectedResult{}, nil
	}
	seenNodes := map[string]bool{}
	seenEdges := map[string]bool{}
	var nodes []*types.Node
	var edges []TraversedEdge

	for _, root := range roots {
		if !seenNodes[root] {
			seenNodes[root] = true
			n, err := s.GetNode(ctx, root)
			if err != nil {
				return nil, err
			}
			if n != nil {
				nodes = append(nodes, n)
			}
		}
		res, err := s.GetConnectedNodes(ctx, root, opts)
		if err != nil {
			return nil, err
		}
		for _, n := range res.Nodes {
			if !seenNodes[n.ID] {
				seenNodes[n.ID] = true
				nodes = append(nodes, n)
			}
		}
		for _, e := range res.Edges {
			if !seenEdges[e.Edge.ID] {
				seenEdges[e.Edge.ID] = true
				edges = append(edges, e)
			}
		}
	}

	return &ConnectedResult{RootNodeID: roots[0], Nodes: nodes, Edges: edges}, nil
}

// Path is findPath's return shape.
type Path struct {
	NodeIDs []string
	Edges   []*types.Edge
}

// FindPath runs BFS over the undirected adjacency of edges, clamping
// maxDepth to [1, 20]. Returns nil if no path exists within the bound.
func (s *Storage) FindPath(ctx context.Context, from, to string, maxDepth int) (*Path, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > 20 {
		maxDepth = 20
	}
	if from == to {
		return &Path{NodeIDs: []string{from}}, nil
	}

	visited := map[string]bool{from: true}
	queue := []*pathStep{{nodeID: from}}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []*pathStep
		for _, cur := range queue {
			edges, err := s.GetNodeEdges(ctx, cur.nodeID)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				peer := e.TargetNodeID
				if peer == cur.nodeID {
					peer = e.SourceNodeID
				}
				if visited[peer] {
					continue
				}
				visited[peer] = true
				st := &pathStep{nodeID: peer, edge: e, prev: cur}
				if peer == to {
					return buildPath(st), nil
				}
				next = append(next, st)
			}
		}
		queue = next
	}
	return nil, nil
}

type pathStep struct {
	nodeID string
	edge   *types.Edge
	prev   *pathStep
}

func buildPath(st *pathStep) *Path {
	var ids []string
	var edges []*types.Edge
	for s := st; s != nil; s = s.prev {
		ids = append([]string{s.nodeID}, ids...)
		if s.edge != nil {
			edges = append([]*types.Edge{s.edge}, edges...)
		}
	}
	return &Path{NodeIDs: ids, Edges: edges}
}

// GetAncestors wraps GetConnectedNodes with direction=incoming.
func (s *Storage) GetAncestors(ctx context.Context, nodeID string, depth int) (*ConnectedResult, error) {
	if depth <= 0 {
		depth = 5
	}
	return s.GetConnectedNodes(ctx, nodeID, TraversalOptions{Depth: depth, Direction: DirIn})
}

// GetDescendants wraps GetConnectedNodes with direction=outgoing.
func (s *Storage) GetDescendants(ctx context.Context, nodeID string, depth int) (*ConnectedResult, error) {
	if depth <= 0 {
		depth = 5
	}
	return s.GetConnectedNodes(ctx, nodeID, TraversalOptions{Depth: depth, Direction: DirOut})
}

// BridgePathOptions bounds findBridgePaths.
type BridgePathOptions struct {
	MaxDepth int
	MinScore float64
	Limit    int
}

// BridgePath is one weighted multi-source BFS result.
type BridgePath struct {
	Score       float64
	Nodes       []*types.Node
	Edges       []*types.Edge
	Description string
}

// FindBridgePaths runs weighted multi-source BFS: each path's score is the
// product of per-hop `edge.confidence * target.relevanceScore` factors
// times the start node's own relevanceScore. Paths are cycle-free and
// pruned once their score drops below minScore.
func (s *Storage) FindBridgePaths(ctx context.Context, starts []string, opts BridgePathOptions) ([]BridgePath, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	type frame struct {
		score  float64
		nodes  []*types.Node
		edges  []*types.Edge
		onPath map[string]bool
	}

	var results []BridgePath
	var frontier []frame

	for _, startID := range starts {
		start, err := s.GetNode(ctx, startID)
		if err != nil || start == nil {
			continue
		}
		frontier = append(frontier, frame{
			score:  start.RelevanceScoreOrDefault(),
			nodes:  []*types.Node{start},
			onPath: map[string]bool{startID: true},
		})
	}

	for depth := 1; depth <= opts.MaxDepth; depth++ {
		var next []frame
		for _, f := range frontier {
			last := f.nodes[len(f.nodes)-1]
			edges, err := s.GetEdgesFrom(ctx, last.ID)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if f.onPath[e.TargetNodeID] {
					continue
				}
				target, err := s.GetNode(ctx, e.TargetNodeID)
				if err != nil || target == nil {
					continue
				}
				score := f.score * e.ConfidenceOrDefault() * target.RelevanceScoreOrDefault()
				if score < opts.MinScore {
					continue
				}
				onPath := make(map[string]bool, len(f.onPath)+1)
				for k := range f.onPath {
					onPath[k] = true
				}
				onPath[target.ID] = true
				nf := frame{
					score:  score,
					nodes:  append(append([]*types.Node{}, f.nodes...), target),
					edges:  append(append([]*types.Edge{}, f.edges...), e),
					onPath: onPath,
				}
				results = append(results, BridgePath{
					Score:       nf.score,
					Nodes:       nf.nodes,
					Edges:       nf.edges,
					Description: describeBridge(nf.nodes),
				})
				next = append(next, nf)
			}
		}
		frontier = next
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func describeBridge(nodes []*types.Node) string {
	if len(nodes) < 2 {
		return ""
	}
	first := nodes[0].Content.Summary
	last := nodes[len(nodes)-1].Content.Summary
	return fmt.Sprintf("%q leads to %q", first, last)
}
