// Command sessionkgctl is an operator CLI around the sessionkg storage
// engine: running migrations, backfilling embeddings, searching, and
// walking the graph against a single SQLite database file. One file per
// subcommand, all registering against rootCmd in init.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Whamp/sessionkg/internal/contentstore"
	"github.com/Whamp/sessionkg/internal/storage/sqlite"
)

var (
	dbPath         string
	contentDir     string
	vectorDim      int
	embeddingModel string
	jsonOutput     bool

	rootCtx    context.Context
	rootCancel context.CancelFunc

	cfg = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "sessionkgctl",
	Short: "sessionkgctl - local knowledge-graph storage engine for AI coding session analyses",
	Long: `sessionkgctl operates a sessionkg database: a single SQLite file holding
analyzed coding-session nodes, their lessons, quirks, tool errors, the edges
linking them, and an FTS5/vec0 index over all of it.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		loadConfig()
		applyConfigDefaults(cmd)
	},
}

// loadConfig reads sessionkg.yaml from the working directory, if present,
// falling back silently to flags/defaults when it is absent.
func loadConfig() {
	cfg.SetConfigType("yaml")
	cfg.SetConfigName("sessionkg")
	cfg.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		cfg.AddConfigPath(filepath.Join(home, ".sessionkg"))
	}
	_ = cfg.ReadInConfig()
}

// applyConfigDefaults fills flags the caller didn't set from viper (config
// file only; environment variables are not read), and only then from
// hardcoded defaults. Flags win over the
// config file, which wins over defaults.
func applyConfigDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("db") && cfg.IsSet("db") {
		dbPath = cfg.GetString("db")
	}
	if dbPath == "" {
		dbPath = "sessionkg.db"
	}

	if !cmd.Flags().Changed("content-dir") && cfg.IsSet("content_dir") {
		contentDir = cfg.GetString("content_dir")
	}
	if contentDir == "" {
		contentDir = "sessionkg-content"
	}

	if !cmd.Flags().Changed("vector-dim") && cfg.IsSet("vector_dim") {
		vectorDim = cfg.GetInt("vector_dim")
	}
	if vectorDim <= 0 {
		vectorDim = 256
	}

	if !cmd.Flags().Changed("embedding-model") && cfg.IsSet("embedding_model") {
		embeddingModel = cfg.GetString("embedding_model")
	}
	if embeddingModel == "" {
		embeddingModel = "localembed-v1"
	}
}

// openStorage opens the configured database and attaches a content store
// rooted at contentDir, the pairing every subcommand that touches nodes
// needs.
func openStorage() (*sqlite.Storage, error) {
	store, err := sqlite.Open(sqlite.Options{
		Path:           dbPath,
		VectorDim:      vectorDim,
		EmbeddingModel: embeddingModel,
	})
	if err != nil {
		return nil, err
	}
	return store.WithContentStore(contentstore.New(contentDir)), nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: sessionkg.db)")
	rootCmd.PersistentFlags().StringVar(&contentDir, "content-dir", "", "Content store directory (default: sessionkg-content)")
	rootCmd.PersistentFlags().IntVar(&vectorDim, "vector-dim", 0, "Embedding dimension, only meaningful on first open (default: 256)")
	rootCmd.PersistentFlags().StringVar(&embeddingModel, "embedding-model", "", "Embedding model name recorded in kv_config (default: localembed-v1)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
