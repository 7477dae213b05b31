package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
	"github.com/chris-bluera/bluera-knowledge/internal/indexer"
	"github.com/chris-bluera/bluera-knowledge/internal/job"
	"github.com/chris-bluera/bluera-knowledge/internal/store"
)

var (
	indexQuiet bool
	indexWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index <name-or-id>",
	Short: "Index a store",
	Long: `Index walks the store's source, chunks and embeds its files, writes the
documents into the vector and full-text indexes, and builds the store's
code graph.

Examples:
  # Index a store
  bluera-knowledge index my-app

  # Index, then keep watching for file changes and re-index incrementally
  bluera-knowledge index my-app --watch
`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "disable the progress bar")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "watch for changes and re-index incrementally")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		cancel()
	}()

	a, cleanup, err := loadApp()
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := a.stores.GetByIDOrName(args[0])
	if err != nil {
		return err
	}
	if st.Kind == store.KindWeb {
		return engineerr.New(engineerr.Unsupported, "cli.index",
			"web stores are indexed by the crawl workflow, not the index command")
	}

	j, err := a.jobs.CreateJob(job.TypeIndex)
	if err != nil {
		return err
	}
	_, _ = a.jobs.UpdateJob(j.ID, func(j *job.Job) {
		j.Status = job.StatusRunning
		j.Details = map[string]interface{}{"store": st.Name}
	})

	ix := indexer.New(a.vectors, a.embedder, a.cfg.DataDir)
	ix.IgnorePatterns = a.cfg.Indexing.IgnorePatterns
	ix.Jobs = a.jobs
	ix.JobID = j.ID
	if !indexQuiet {
		ix.Progress = barProgress()
	}

	_, _ = a.stores.Update(st.ID, func(s *store.Store) { s.Status = store.StatusIndexing }, true)

	res, err := ix.IndexStore(ctx, st)
	if err != nil {
		_, _ = a.jobs.UpdateJob(j.ID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Message = err.Error()
		})
		_, _ = a.stores.Update(st.ID, func(s *store.Store) {
			s.Status = store.StatusError
			s.LastError = err.Error()
		}, true)
		if engineerr.Is(err, engineerr.Cancelled) {
			return err
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitIndexFailure)
	}

	_, _ = a.jobs.UpdateJob(j.ID, func(j *job.Job) {
		j.Status = job.StatusCompleted
		j.Progress = 100
		j.Message = fmt.Sprintf("%d documents, %d chunks", res.DocumentsIndexed, res.ChunksCreated)
	})
	_, _ = a.stores.Update(st.ID, func(s *store.Store) {
		s.Status = store.StatusReady
		s.DocCount = res.ChunksCreated
		s.LastIndexed = time.Now().UTC()
		s.LastError = ""
	}, true)

	fmt.Printf("Indexed %d documents (%d chunks, %d skipped) in %dms\n",
		res.DocumentsIndexed, res.ChunksCreated, res.SkippedFiles, res.TimeMs)

	if !indexWatch {
		return nil
	}

	w, err := indexer.NewWatcher(ix, st)
	if err != nil {
		return err
	}
	fmt.Println("Watching for changes (Ctrl+C to stop)...")
	w.Start(ctx)
	<-ctx.Done()
	w.Stop()
	return nil
}

// barProgress renders indexing progress as a terminal progress bar.
func barProgress() indexer.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(p indexer.Progress) {
		switch p.Type {
		case indexer.ProgressStart:
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetDescription("indexing"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)
		case indexer.ProgressProgress:
			if bar != nil {
				_ = bar.Set(p.Current)
			}
		case indexer.ProgressComplete:
			if bar != nil {
				_ = bar.Finish()
			}
		}
	}
}
