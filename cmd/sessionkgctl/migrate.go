package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Opens the database, which applies any schema_versions migrations not
yet recorded, then reports the resulting vector dimension and closes.
Safe to run repeatedly; already-applied migrations are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStorage()
		if err != nil {
			fatalf("migrate: %v", err)
		}
		defer store.Close()
		fmt.Printf("database %s is up to date (vector dim %d)\n", dbPath, store.VectorDim())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
