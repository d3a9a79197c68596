package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/veracite/veracite/internal/corpus"
	verrors "github.com/veracite/veracite/internal/errors"
	"github.com/veracite/veracite/internal/index"
	"github.com/veracite/veracite/internal/store"
)

// Index is the slice of the pipeline the watcher drives.
type Index interface {
	Reindex(ctx context.Context, documentID string) (index.Summary, error)
	ReindexAll(ctx context.Context) (index.Report, error)
}

// CorpusWatcher watches a corpus directory and keeps the index current.
// Document writes trigger a per-document reindex, deletes remove the
// document's embeddings, and sidecar edits rebuild the whole corpus.
type CorpusWatcher struct {
	root      string
	target    Index
	store     store.Store
	ann       *store.ScopeANN
	debouncer *Debouncer
	opts      Options
	logger    *slog.Logger

	mu      sync.Mutex
	stopped bool
	fsw     *fsnotify.Watcher
}

// NewCorpusWatcher creates a watcher over the given corpus root.
func NewCorpusWatcher(root string, target Index, s store.Store, ann *store.ScopeANN, opts Options, logger *slog.Logger) *CorpusWatcher {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &CorpusWatcher{
		root:      root,
		target:    target,
		store:     s,
		ann:       ann,
		debouncer: NewDebouncer(opts.DebounceWindow),
		opts:      opts,
		logger:    logger,
	}
}

// Run watches until the context is cancelled. It blocks.
func (w *CorpusWatcher) Run(ctx context.Context) error {
	absRoot, err := filepath.Abs(w.root)
	if err != nil {
		return verrors.IOError("failed to resolve corpus root", err)
	}
	w.root = absRoot

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return verrors.IOError("failed to create file watcher", err)
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()
	defer w.Stop()

	if err := w.addRecursive(absRoot); err != nil {
		return err
	}
	w.logger.Info("watch_started", slog.String("root", absRoot))

	go w.applyBatches(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

// Stop releases the watcher. Safe to call multiple times.
func (w *CorpusWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.debouncer.Stop()
}

// addRecursive registers the root and every non-hidden subdirectory.
func (w *CorpusWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return verrors.IOError("failed to walk corpus directory", err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return verrors.IOError("failed to watch directory", err)
		}
		return nil
	})
}

// handleEvent translates one raw fsnotify event into a debounced corpus
// event. Non-document paths are ignored, except the metadata sidecar.
func (w *CorpusWatcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}

	// New directories must be added to the watch set before their files
	// produce events.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				_ = w.addRecursive(event.Name)
			}
			return
		}
	}

	base := filepath.Base(event.Name)
	if base == corpus.SidecarFileName {
		w.debouncer.Add(FileEvent{Path: rel, Operation: OpMetadataChange, Timestamp: time.Now()})
		return
	}
	if !corpus.IsDocument(base) {
		return
	}

	var op Operation
	switch {
	case event.Op.Has(fsnotify.Create):
		op = OpCreate
	case event.Op.Has(fsnotify.Write):
		op = OpModify
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}
	w.debouncer.Add(FileEvent{Path: rel, Operation: op, Timestamp: time.Now()})
}

// applyBatches drains debounced batches and applies them to the index.
func (w *CorpusWatcher) applyBatches(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.apply(ctx, batch)
		}
	}
}

func (w *CorpusWatcher) apply(ctx context.Context, batch []FileEvent) {
	for _, event := range batch {
		switch event.Operation {
		case OpMetadataChange:
			// Sidecar edits can change titles and scopes everywhere.
			w.logger.Info("watch_metadata_changed", slog.String("path", event.Path))
			if _, err := w.target.ReindexAll(ctx); err != nil {
				w.logger.Error("watch_reindex_all_failed", slog.String("error", err.Error()))
			}
			// Everything is fresh; skip the rest of the batch.
			return

		case OpDelete:
			docID := corpus.DocumentID(event.Path)
			scope := w.scopeOf(ctx, docID)
			if err := w.store.DeleteDocument(ctx, docID); err != nil {
				w.logger.Error("watch_delete_failed",
					slog.String("path", event.Path),
					slog.String("error", err.Error()))
				continue
			}
			if w.ann != nil && scope != "" {
				w.ann.DeleteDocument(scope, docID)
			}
			w.logger.Info("watch_document_deleted", slog.String("path", event.Path))

		default:
			docID := corpus.DocumentID(event.Path)
			summary, err := w.target.Reindex(ctx, docID)
			if err != nil {
				w.logger.Error("watch_reindex_failed",
					slog.String("path", event.Path),
					slog.String("error", err.Error()))
				continue
			}
			w.logger.Info("watch_document_indexed",
				slog.String("path", event.Path),
				slog.Int("chunks", summary.TotalChunks))
		}
	}
}

// scopeOf looks up the stored scope for a document, for ANN cleanup.
func (w *CorpusWatcher) scopeOf(ctx context.Context, docID string) string {
	docs, err := w.store.Documents(ctx)
	if err != nil {
		return ""
	}
	for _, d := range docs {
		if d.ID == docID {
			return d.Scope
		}
	}
	return ""
}
