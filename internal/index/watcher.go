package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/obvault/internal/apperr"
	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/vault"
)

const (
	// settleDelay coalesces the bursts of writes editors produce on save.
	settleDelay    = 100 * time.Millisecond
	reconcileDelay = 200 * time.Millisecond
)

// Watch starts an fsnotify watcher on the vault root and keeps the catalog
// in step with note changes until ctx is cancelled. It calls cb (if non-nil)
// after each catalog mutation; rewrites that leave a note's content
// unchanged produce no callback.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass over the whole vault.
func Watch(ctx context.Context, db *DB, v *vault.Vault, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, v, v.Root()); err != nil {
		return err
	}

	w := &watcher{
		fs:      fw,
		db:      db,
		vault:   v,
		logger:  logger,
		cb:      cb,
		pending: make(map[models.Subpath]struct{}),
	}
	logger.Info("watcher: started", slog.String("root", v.Root()))
	err = w.loop(ctx)
	w.settle.stop()
	w.reconcile.stop()
	logger.Info("watcher: stopped")
	return err
}

// debounce is a restartable timer whose channel is nil while idle, so it can
// sit in a select unconditionally.
type debounce struct {
	timer *time.Timer
	C     <-chan time.Time
}

func (d *debounce) arm(after time.Duration) {
	if d.timer == nil {
		d.timer = time.NewTimer(after)
	} else {
		d.timer.Reset(after)
	}
	d.C = d.timer.C
}

func (d *debounce) fired() { d.C = nil }

func (d *debounce) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}

type watcher struct {
	fs     *fsnotify.Watcher
	db     *DB
	vault  *vault.Vault
	logger *slog.Logger
	cb     EventCallback

	pending   map[models.Subpath]struct{}
	settle    debounce
	reconcile debounce
}

func (w *watcher) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.settle.C:
			w.settle.fired()
			w.flush(ctx)

		case <-w.reconcile.C:
			w.reconcile.fired()
			if _, err := syncVault(ctx, w.db, w.vault, w.logger, w.cb); err != nil {
				w.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

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

func (w *watcher) notify(kind string, sp models.Subpath) {
	w.logger.Debug("watcher: catalog changed", slog.String("path", sp.String()), slog.String("op", kind))
	if w.cb != nil {
		w.cb(kind, sp.String())
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.newDir(ev.Name)
			return
		}
	}

	sp, err := w.vault.Subpath(ev.Name)
	if err != nil || !w.vault.IsNote(sp.String()) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.pending[sp] = struct{}{}
		w.settle.arm(settleDelay)

	case ev.Has(fsnotify.Remove):
		delete(w.pending, sp)
		w.remove(sp)

	case ev.Has(fsnotify.Rename):
		// fsnotify reports Rename on the old path only; the new path
		// arrives as a Create if it stays inside a watched directory.
		delete(w.pending, sp)
		w.remove(sp)
		w.reconcile.arm(reconcileDelay)
	}
}

// flush indexes every note whose writes have settled, in path order.
func (w *watcher) flush(ctx context.Context) {
	paths := make([]models.Subpath, 0, len(w.pending))
	for sp := range w.pending {
		paths = append(paths, sp)
	}
	clear(w.pending)
	slices.Sort(paths)
	for _, sp := range paths {
		w.upsert(ctx, sp)
	}
}

// upsert re-reads a note and stores it if its content changed. The event
// kind follows the catalog: a note it did not hold is created.
func (w *watcher) upsert(ctx context.Context, sp models.Subpath) {
	n, err := w.vault.Note(ctx, sp.String())
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			w.logger.Warn("watcher: read failed", slog.String("path", sp.String()), slog.String("error", err.Error()))
		}
		return
	}
	old, err := w.db.GetChecksum(sp.String())
	if err != nil {
		w.logger.Warn("watcher: checksum lookup failed", slog.String("path", sp.String()), slog.String("error", err.Error()))
		return
	}
	if old == n.Checksum() {
		return
	}
	if err := indexNote(w.db, n); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", sp.String()), slog.String("error", err.Error()))
		return
	}
	kind := EventUpdated
	if old == "" {
		kind = EventCreated
	}
	w.notify(kind, sp)
}

func (w *watcher) remove(sp models.Subpath) {
	old, err := w.db.GetChecksum(sp.String())
	if err != nil || old == "" {
		return
	}
	if err := w.db.DeleteNote(sp.String()); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", sp.String()), slog.String("error", err.Error()))
		return
	}
	w.notify(EventDeleted, sp)
}

// newDir starts watching a directory created at runtime and queues the
// notes already inside it, which were written before the watch existed.
func (w *watcher) newDir(dir string) {
	if w.vault.Skips(filepath.Base(dir)) {
		return
	}
	if err := addDirsRecursive(w.fs, w.vault, dir); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", dir), slog.String("error", err.Error()))
	} else {
		w.logger.Debug("watcher: watching new dir", slog.String("path", dir))
	}
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && w.vault.Skips(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if sp, err := w.vault.Subpath(p); err == nil && w.vault.IsNote(sp.String()) {
			w.pending[sp] = struct{}{}
		}
		return nil
	})
	if len(w.pending) > 0 {
		w.settle.arm(settleDelay)
	}
}

// addDirsRecursive adds root and its subdirectories to the watcher, leaving
// out directories the vault skips.
func addDirsRecursive(fw *fsnotify.Watcher, v *vault.Vault, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && v.Skips(d.Name()) {
			return fs.SkipDir
		}
		return fw.Add(p)
	})
}
