package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Whamp/sessionkg/internal/storage/sqlite"
)

var (
	traverseDepth     int
	traverseDirection string
	traverseTo        string
)

var traverseCmd = &cobra.Command{
	Use:   "traverse <node-id>",
	Short: "Walk the graph from a node, or find a path between two nodes",
	Args:  cobra.ExactArgs(1),
	Long: `Without --to, runs a depth-clamped BFS from <node-id> in --direction
(in, out, or both) and prints every reachable node, then every traversed
edge with its hop distance.
With --to, instead finds the shortest undirected path between the two
nodes.`,
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		store, err := openStorage()
		if err != nil {
			fatalf("traverse: %v", err)
		}
		defer store.Close()

		if traverseTo != "" {
			path, err := store.FindPath(rootCtx, root, traverseTo, traverseDepth)
			if err != nil {
				fatalf("traverse: %v", err)
			}
			if path == nil {
				fmt.Println("no path found")
				return
			}
			fmt.Println(joinIDs(path.NodeIDs))
			return
		}

		result, err := store.GetConnectedNodes(rootCtx, root, sqlite.TraversalOptions{
			Depth:     traverseDepth,
			Direction: sqlite.Direction(traverseDirection),
		})
		if err != nil {
			fatalf("traverse: %v", err)
		}
		for _, n := range result.Nodes {
			fmt.Printf("%s  %s  %s\n", n.ID, n.Classification.Type, n.Content.Summary)
		}
		for _, e := range result.Edges {
			fmt.Printf("  hop %d  %s  %s -> %s (%s)\n", e.HopDistance, e.Edge.Type, e.Edge.SourceNodeID, e.Edge.TargetNodeID, e.Direction)
		}
	},
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}

func init() {
	traverseCmd.Flags().IntVar(&traverseDepth, "depth", 3, "Maximum hops (clamped to [1,5] for BFS, [1,20] for --to)")
	traverseCmd.Flags().StringVar(&traverseDirection, "direction", "both", "Edge direction to follow: in, out, or both")
	traverseCmd.Flags().StringVar(&traverseTo, "to", "", "Find the shortest path to this node instead of a BFS walk")
	rootCmd.AddCommand(traverseCmd)
}
