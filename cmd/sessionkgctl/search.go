package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Whamp/sessionkg/internal/localembed"
	"github.com/Whamp/sessionkg/internal/storage/sqlite"
	"github.com/Whamp/sessionkg/internal/types"
)

var (
	searchProject  string
	searchType     string
	searchOutcome  string
	searchFields   []string
	searchLimit    int
	searchSemantic bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text or semantic search over nodes",
	Args:  cobra.ExactArgs(1),
	Long: `Runs a full-text search across the five FTS coverage fields (summary,
decisions, lessons, tags, topics), optionally scoped to a subset with
--fields, and filtered by --project/--type/--outcome. With
--semantic, embeds the query text with the deterministic local provider and
runs a vector kNN search instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		query := args[0]
		store, err := openStorage()
		if err != nil {
			fatalf("search: %v", err)
		}
		defer store.Close()

		filters := types.ListFilters{
			Project: searchProject,
			Type:    types.NodeType(searchType),
			Outcome: types.Outcome(searchOutcome),
		}

		if searchSemantic {
			provider := localembed.New(store.VectorDim(), embeddingModel)
			vecs, err := provider.Embed([]string{query})
			if err != nil || len(vecs) == 0 {
				fatalf("search: embed query: %v", err)
			}
			results, err := store.SemanticSearch(rootCtx, vecs[0], sqliteSemanticOpts(filters))
			if err != nil {
				fatalf("search: %v", err)
			}
			if jsonOutput {
				printJSON(results)
				return
			}
			for _, r := range results {
				fmt.Printf("%.4f  %s  %s\n", r.Score, r.Node.ID, r.Node.Content.Summary)
			}
			return
		}

		resp, err := store.SearchNodesAdvanced(rootCtx, query, types.SearchFields(searchFields), filters,
			types.ListOptions{Limit: searchLimit})
		if err != nil {
			fatalf("search: %v", err)
		}
		if jsonOutput {
			printJSON(resp)
			return
		}
		fmt.Printf("%d of %d results\n", len(resp.Results), resp.Total)
		for _, r := range resp.Results {
			fmt.Printf("%.4f  %s  %s\n", r.Score, r.Node.ID, r.Node.Content.Summary)
			for _, h := range r.Highlights {
				fmt.Printf("    [%s] %s\n", h.Field, strings.TrimSpace(h.Snippet))
			}
		}
	},
}

func sqliteSemanticOpts(filters types.ListFilters) sqlite.SemanticSearchOptions {
	return sqlite.SemanticSearchOptions{Limit: searchLimit, Filters: filters}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("search: encode output: %v", err)
	}
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "", "Filter by project")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by node type")
	searchCmd.Flags().StringVar(&searchOutcome, "outcome", "", "Filter by outcome")
	searchCmd.Flags().StringSliceVar(&searchFields, "fields", nil, "Restrict to these FTS fields (default: all)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results")
	searchCmd.Flags().BoolVar(&searchSemantic, "semantic", false, "Search by embedding similarity instead of full text")
	rootCmd.AddCommand(searchCmd)
}
