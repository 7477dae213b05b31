// Package cli is the command-line front end over the engine: store
// lifecycle, indexing, search, job management, and the MCP server.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chris-bluera/bluera-knowledge/internal/capability"
	"github.com/chris-bluera/bluera-knowledge/internal/config"
	"github.com/chris-bluera/bluera-knowledge/internal/embedder"
	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
	"github.com/chris-bluera/bluera-knowledge/internal/graph"
	"github.com/chris-bluera/bluera-knowledge/internal/job"
	"github.com/chris-bluera/bluera-knowledge/internal/langadapter"
	"github.com/chris-bluera/bluera-knowledge/internal/search"
	"github.com/chris-bluera/bluera-knowledge/internal/store"
	"github.com/chris-bluera/bluera-knowledge/internal/vectorstore"
)

// Exit codes surfaced to shell callers.
const (
	exitGeneric       = 1
	exitStoreNotFound = 3
	exitIndexFailure  = 4
	exitCrawlFailure  = 6
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bluera-knowledge",
	Short: "Local code and documentation knowledge engine",
	Long: `bluera-knowledge indexes source repositories, documentation sites, and
local folders into searchable stores, and serves intent-aware hybrid
search over them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, mapping tagged errors to exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch engineerr.KindOf(err) {
	case engineerr.NotFound:
		return exitStoreNotFound
	default:
		return exitGeneric
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default <project>/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// app bundles the wired engine components a command needs.
type app struct {
	cfg      *config.Config
	registry store.Registry
	stores   *store.Service
	vectors  vectorstore.Store
	embedder embedder.Embedder
	jobs     job.Tracker
	engine   *search.Engine
}

// loadApp opens the configuration, data directory, and every engine
// component. Call close when done.
func loadApp() (*app, func(), error) {
	cfg, err := config.NewLoader(cfgFile, "").Load()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, engineerr.Wrap(engineerr.IO, "cli.loadApp", "cannot create data directory", err)
	}

	if err := langadapter.RegisterBuiltins(langadapter.Default(), nil); err != nil {
		return nil, nil, err
	}

	vectors, err := vectorstore.Open(filepath.Join(cfg.DataDir, "knowledge.db"), cfg.Embedding.Dimensions)
	if err != nil {
		return nil, nil, err
	}
	if err := vectors.Initialize(rootCmd.Context()); err != nil {
		vectors.Close()
		return nil, nil, err
	}

	registry, err := store.NewRegistry(filepath.Join(cfg.DataDir, "stores.json"))
	if err != nil {
		vectors.Close()
		return nil, nil, err
	}

	jobs, err := job.NewTracker(filepath.Join(cfg.DataDir, "jobs"))
	if err != nil {
		vectors.Close()
		return nil, nil, err
	}

	emb := embedder.NewMock(cfg.Embedding.Dimensions)

	stores := store.NewService(registry, vectors, capability.NewGoGit(), cfg.DataDir)
	stores.Definitions = store.NewDefinitions(filepath.Join(cfg.DataDir, "store-definitions.json"))

	engine := search.NewEngine(vectors, emb, graphLookup(cfg.DataDir))

	a := &app{
		cfg:      cfg,
		registry: registry,
		stores:   stores,
		vectors:  vectors,
		embedder: emb,
		jobs:     jobs,
		engine:   engine,
	}
	cleanup := func() {
		emb.Close()
		vectors.Close()
	}
	return a, cleanup, nil
}

// graphLookup resolves per-store graph searchers, caching them for the
// process lifetime so repeated enrichment within one run is cheap.
func graphLookup(dataDir string) search.GraphLookup {
	cache := make(map[string]graph.Searcher)
	return func(ctx context.Context, storeID string) (graph.Searcher, error) {
		if s, ok := cache[storeID]; ok {
			return s, nil
		}
		s, err := graph.NewSearcher(graph.NewJSONStorage(filepath.Join(dataDir, "graphs", storeID+".json")))
		if err != nil {
			return nil, err
		}
		cache[storeID] = s
		return s, nil
	}
}
