package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Whamp/sessionkg/internal/ingest"
	"github.com/Whamp/sessionkg/internal/localembed"
	"github.com/Whamp/sessionkg/internal/storage/sqlite"
)

var (
	backfillBatchSize int
	backfillForce     bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-embeddings",
	Short: "Compute embeddings for nodes missing them",
	Long: `Streams nodes whose embedding is missing, stale (wrong model name) or
written in an older format, in batches of --batch-size, and stores freshly
computed vectors. With --force every node is recomputed regardless of
its current embedding. Uses the built-in deterministic embedding provider,
since a real model is an external collaborator this engine never constructs.`,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStorage()
		if err != nil {
			fatalf("backfill-embeddings: %v", err)
		}
		defer store.Close()

		provider := localembed.New(store.VectorDim(), embeddingModel)
		reader := ingest.ContentStoreReader{Store: store.ContentStore()}

		result, err := store.BackfillEmbeddings(rootCtx, provider, reader, backfillBatchSize, backfillForce,
			func(p sqlite.BackfillProgress) {
				fmt.Printf("backfill: %d/%d\n", p.Processed, p.Total)
			})
		if err != nil {
			fatalf("backfill-embeddings: %v", err)
		}
		fmt.Printf("processed %d nodes, %d failures\n", result.Processed, len(result.FailedNodeIDs))
		for _, id := range result.FailedNodeIDs {
			fmt.Printf("  failed: %s\n", id)
		}
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillBatchSize, "batch-size", 50, "Nodes per embedding batch")
	backfillCmd.Flags().BoolVar(&backfillForce, "force", false, "Recompute every node's embedding, not just missing/stale ones")
	rootCmd.AddCommand(backfillCmd)
}
