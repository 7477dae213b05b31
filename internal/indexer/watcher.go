package indexer

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chris-bluera/bluera-knowledge/internal/graph"
	"github.com/chris-bluera/bluera-knowledge/internal/store"
)

// Watcher watches a store's root directory and re-indexes changed files
// incrementally: changed files are re-chunked and re-embedded (their
// deterministic document ids overwrite the previous rows) and the graph is
// patched via the builder's incremental path rather than rebuilt from
// scratch.
type Watcher struct {
	indexer      *Indexer
	st           store.Store
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
}

// NewWatcher creates a file watcher over st's root, registered recursively
// on every non-denylisted directory.
func NewWatcher(ix *Indexer, st store.Store) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	iw := &Watcher{
		indexer:      ix,
		st:           st,
		watcher:      w,
		debounceTime: 500 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	if err := iw.addDirectories(st.Path); err != nil {
		w.Close()
		return nil, err
	}
	return iw, nil
}

// Start begins watching for file changes until ctx is cancelled or Stop is
// called.
func (iw *Watcher) Start(ctx context.Context) {
	go iw.watch(ctx)
}

// Stop stops the watcher and waits for its loop to exit.
func (iw *Watcher) Stop() {
	iw.stopOnce.Do(func() {
		close(iw.stopCh)
		<-iw.doneCh
		iw.watcher.Close()
	})
}

func (iw *Watcher) addDirectories(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if skippedDirs[entry.Name()] || (strings.HasPrefix(entry.Name(), ".") && path != root) {
			return filepath.SkipDir
		}
		return iw.watcher.Add(path)
	})
}

func (iw *Watcher) watch(ctx context.Context) {
	defer close(iw.doneCh)

	var debounce *time.Timer
	changed := make(map[string]bool)
	deleted := make(map[string]bool)
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case <-iw.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case ev, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if !iw.relevant(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = iw.addDirectories(ev.Name)
					continue
				}
				changed[ev.Name] = true
				delete(deleted, ev.Name)
			}
			if ev.Op&fsnotify.Remove != 0 {
				deleted[ev.Name] = true
				delete(changed, ev.Name)
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(iw.debounceTime, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)

		case <-fire:
			changedList := keys(changed)
			deletedList := keys(deleted)
			changed = make(map[string]bool)
			deleted = make(map[string]bool)
			if err := iw.reindex(ctx, changedList, deletedList); err != nil {
				log.Printf("watch: incremental reindex failed: %v", err)
			}
		}
	}
}

func (iw *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if skippedDirs[part] {
			return false
		}
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return true
	}
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}

// reindex re-embeds changed files and patches the store's graph snapshot.
func (iw *Watcher) reindex(ctx context.Context, changedFiles, deletedFiles []string) error {
	ix := iw.indexer
	for _, path := range changedFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		docs, err := ix.buildDocuments(ctx, iw.st.ID, iw.st.Path, path, string(data))
		if err != nil || len(docs) == 0 {
			continue
		}
		if err := ix.Store.AddDocuments(ctx, docs); err != nil {
			return err
		}
	}
	if err := ix.Store.CreateFTSIndex(ctx); err != nil {
		return err
	}

	var sourceChanged []string
	for _, path := range changedFiles {
		if _, ok := ix.Registry.ByExtension(filepath.Ext(path)); ok {
			sourceChanged = append(sourceChanged, path)
		}
	}
	if len(sourceChanged) == 0 && len(deletedFiles) == 0 {
		return nil
	}

	storage := graph.NewJSONStorage(GraphPath(ix.DataDir, iw.st.ID))
	previous, err := storage.Load()
	if err != nil {
		previous = nil
	}
	builder := graph.NewBuilder(ix.DataDir, graph.WithRegistry(ix.Registry))
	data, err := builder.BuildIncremental(ctx, previous, sourceChanged, deletedFiles)
	if err != nil {
		return err
	}
	return storage.Save(data)
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
