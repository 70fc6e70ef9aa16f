package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/othala/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// sweepDelay is how long the watcher waits after a rename before comparing
// the index against disk. Relocating a group produces a single Rename for
// the directory and no events at all for the files inside it, so one
// settled sweep covers what individual events cannot.
const sweepDelay = 200 * time.Millisecond

// watcher carries the state of one Watch run.
type watcher struct {
	fs     *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback

	sweepTimer *time.Timer
	sweepC     <-chan time.Time
}

// Watch starts an fsnotify watcher on the vault root and processes change
// events until ctx is cancelled. It calls cb (if non-nil) after each
// successful index mutation.
//
// Directories created at runtime join the watch list automatically. Rename
// events schedule a debounced sweep that drops index rows whose files are
// gone and indexes files that appeared without events of their own.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{fs: fsw, db: db, store: store, root: vaultRoot, logger: logger, cb: cb}
	if err := w.watchTree(vaultRoot, false); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	return w.run(ctx)
}

func (w *watcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if w.sweepTimer != nil {
				w.sweepTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-w.sweepC:
			w.sweep()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// handle routes one fsnotify event.
func (w *watcher) handle(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// A new directory, typically a group landing after a move.
			// Watch it and index whatever markdown it already holds: those
			// files arrived before the watch did.
			if err := w.watchTree(ev.Name, true); err != nil {
				w.logger.Warn("watcher: watch new dir failed",
					slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			return
		}
	}

	if ev.Op&fsnotify.Rename != 0 {
		// Rename arrives on the old path only; whatever exists now shows up
		// as a Create elsewhere, or not at all when the target left the
		// vault. A renamed directory gives no events for the files inside
		// it, so every rename schedules a sweep.
		if rel, ok := w.docPath(ev.Name); ok {
			w.forget(rel)
		}
		w.scheduleSweep()
		return
	}

	rel, ok := w.docPath(ev.Name)
	if !ok {
		return
	}
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		w.index(rel, kind)

	case ev.Op&fsnotify.Remove != 0:
		w.forget(rel)
	}
}

// docPath maps an absolute event path to a vault-relative document path.
func (w *watcher) docPath(abs string) (string, bool) {
	if !strings.HasSuffix(abs, ".md") {
		return "", false
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	return rel, true
}

// index reads and indexes one document, then reports kind to the callback.
func (w *watcher) index(rel, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := IndexFile(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.emit(kind, rel)
}

// forget drops one document's index rows.
func (w *watcher) forget(rel string) {
	if err := w.db.DeleteDocument(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: dropped", slog.String("path", rel))
	w.emit("deleted", rel)
}

func (w *watcher) emit(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

func (w *watcher) scheduleSweep() {
	if w.sweepTimer == nil {
		w.sweepTimer = time.NewTimer(sweepDelay)
		w.sweepC = w.sweepTimer.C
		return
	}
	w.sweepTimer.Reset(sweepDelay)
}

// sweep reconciles the whole index against disk using the batch lookups:
// rows without a file behind them are dropped, and files missing from the
// index or carrying a different checksum are indexed.
func (w *watcher) sweep() {
	indexed, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("watcher: sweep checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("watcher: sweep list failed", slog.String("error", err.Error()))
		return
	}
	onDisk := make(map[string]string, len(metas))
	for _, m := range metas {
		onDisk[m.Path] = m.Checksum
	}

	for p := range indexed {
		if _, ok := onDisk[p]; ok {
			continue
		}
		if err := w.db.DeleteDocument(p); err == nil {
			w.logger.Debug("watcher: swept stale", slog.String("path", p))
			w.emit("deleted", p)
		}
	}
	for p, cs := range onDisk {
		if indexed[p] == cs {
			continue
		}
		data, err := w.store.Read(p)
		if err != nil {
			continue
		}
		if err := IndexFile(w.db, p, data); err == nil {
			w.logger.Debug("watcher: swept in", slog.String("path", p))
			w.emit("created", p)
		}
	}
}

// watchTree walks root and adds every directory to the watch list. With
// index set it also indexes the markdown files it passes, which is how
// files that landed before their directory was watched get picked up.
func (w *watcher) watchTree(root string, index bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fs.Add(path)
		}
		if !index {
			return nil
		}
		if rel, ok := w.docPath(path); ok {
			w.index(rel, "created")
		}
		return nil
	})
}
