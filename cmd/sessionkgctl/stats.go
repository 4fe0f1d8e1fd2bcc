package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print aggregate tool-error and model-quirk statistics",
	Long: `Summarizes the daemon-observed tool errors and model quirks across all
ingested nodes: counts by tool and by model, the week-over-week trend
in tool errors, and the quirks observed at least twice.`,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStorage()
		if err != nil {
			fatalf("stats: %v", err)
		}
		defer store.Close()

		toolStats, err := store.GetToolErrorStats(rootCtx)
		if err != nil {
			fatalf("stats: %v", err)
		}
		fmt.Println("tool errors by tool:")
		for _, e := range toolStats.ByTool {
			fmt.Printf("  %-20s %d\n", e.Tool, e.Count)
		}
		fmt.Println("tool errors by model:")
		for _, e := range toolStats.ByModel {
			fmt.Printf("  %-20s %-20s %d\n", e.Tool, e.Model, e.Count)
		}
		fmt.Printf("this week: %d  last week: %d  change: %.1f%%\n", toolStats.ThisWeek, toolStats.LastWeek, toolStats.Change)

		quirks, err := store.GetAggregatedQuirks(rootCtx, 2)
		if err != nil {
			fatalf("stats: %v", err)
		}
		fmt.Println("recurring model quirks:")
		for _, q := range quirks {
			fmt.Printf("  %-20s %-40s x%d\n", q.Model, q.Observation, q.Count)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
