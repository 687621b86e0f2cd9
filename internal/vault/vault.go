// Package vault discovers the notes of a directory tree and parses them on
// demand.
package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/obvault/internal/apperr"
	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/parser"
)

// DefaultExtension is the note file convention.
const DefaultExtension = ".md"

// DefaultWorkers bounds concurrent note reads.
const DefaultWorkers = 4

// Vault is a read-only view of a notes directory. It holds no state between
// calls: every Notes call walks and parses afresh.
type Vault struct {
	root    string // absolute path to vault directory
	ext     string
	workers int
	hidden  bool
	logger  *slog.Logger
}

// Option configures a Vault.
type Option func(*Vault)

// WithExtension sets the note file extension (default ".md").
func WithExtension(ext string) Option {
	return func(v *Vault) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		v.ext = ext
	}
}

// WithWorkers sets how many notes are read and parsed concurrently.
func WithWorkers(n int) Option {
	return func(v *Vault) {
		if n > 0 {
			v.workers = n
		}
	}
}

// WithHidden includes dot-files and dot-directories (.obsidian, .git,
// .trash) in the walk.
func WithHidden(include bool) Option {
	return func(v *Vault) { v.hidden = include }
}

// WithLogger sets the logger used for skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vault) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Vault rooted at root. It does not touch the disk; the root
// is checked each time notes are enumerated.
func New(root string, opts ...Option) *Vault {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	v := &Vault{
		root:    abs,
		ext:     DefaultExtension,
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Root returns the absolute vault directory.
func (v *Vault) Root() string { return v.root }

// Extension returns the note file extension.
func (v *Vault) Extension() string { return v.ext }

// CheckRoot verifies that the root exists and is a directory.
func (v *Vault) CheckRoot() error {
	info, err := os.Stat(v.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("vault: root %s: %w", v.root, apperr.ErrNotFound)
		}
		return fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault: root %s: %w", v.root, apperr.ErrNotDirectory)
	}
	return nil
}

// Notes walks the vault and yields every note in lexical path order. Reads
// and parses run on a bounded worker pool one batch at a time, so stopping
// the iteration early stops the work.
//
// A missing or non-directory root, a walk failure at the root, or a
// cancelled ctx is yielded once as an error, after which the sequence ends.
// Unreadable files and subdirectories are skipped and logged.
func (v *Vault) Notes(ctx context.Context) iter.Seq2[*models.Note, error] {
	return func(yield func(*models.Note, error) bool) {
		if err := v.CheckRoot(); err != nil {
			yield(nil, err)
			return
		}
		paths, err := v.walk(ctx)
		if err != nil {
			yield(nil, err)
			return
		}

		batch := v.workers * 4
		for start := 0; start < len(paths); start += batch {
			end := min(start+batch, len(paths))
			notes, err := v.loadBatch(ctx, paths[start:end])
			if err != nil {
				yield(nil, err)
				return
			}
			for _, n := range notes {
				if n == nil {
					continue
				}
				if !yield(n, nil) {
					return
				}
			}
		}
	}
}

// Note reads and parses the single note at subpath.
func (v *Vault) Note(ctx context.Context, subpath string) (*models.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sp := models.Subpath(path.Clean(filepath.ToSlash(subpath)))
	if !v.IsNote(string(sp)) {
		return nil, fmt.Errorf("vault: %s is not a note: %w", subpath, apperr.ErrNotFound)
	}
	n, err := v.load(sp)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// IsNote reports whether a slash-separated relative path follows the note
// convention: the configured extension, and no hidden segment unless hidden
// entries are included.
func (v *Vault) IsNote(rel string) bool {
	rel = filepath.ToSlash(rel)
	if !strings.EqualFold(path.Ext(rel), v.ext) || path.Base(rel) == v.ext {
		return false
	}
	if v.hidden {
		return true
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return false
		}
	}
	return true
}

// Skips reports whether a file or directory name is left out of the walk.
func (v *Vault) Skips(name string) bool {
	return !v.hidden && strings.HasPrefix(name, ".")
}

// Subpath converts an absolute path inside the vault to a note identity.
func (v *Vault) Subpath(abs string) (models.Subpath, error) {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return "", fmt.Errorf("vault: relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("vault: %s: %w", abs, apperr.ErrPathEscape)
	}
	return models.Subpath(filepath.ToSlash(rel)), nil
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (v *Vault) safePath(rel string) (string, error) {
	if rel == "" {
		return v.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute path %s: %w", rel, apperr.ErrPathEscape)
	}
	abs, err := filepath.Abs(filepath.Join(v.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, v.root+string(os.PathSeparator)) && abs != v.root {
		return "", fmt.Errorf("vault: %s: %w", rel, apperr.ErrPathEscape)
	}
	return abs, nil
}

// walk lists note subpaths in lexical order.
func (v *Vault) walk(ctx context.Context) ([]models.Subpath, error) {
	var out []models.Subpath
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == v.root {
				return walkErr
			}
			v.logger.Warn("vault: walk failed", slog.String("path", p), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == v.root {
			return nil
		}
		if v.Skips(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		sp, err := v.Subpath(p)
		if err != nil {
			return err
		}
		if v.IsNote(string(sp)) {
			out = append(out, sp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: walk: %w", err)
	}
	return out, nil
}

// loadBatch reads and parses paths concurrently; results keep the order of
// paths. Skipped files leave a nil slot.
func (v *Vault) loadBatch(ctx context.Context, paths []models.Subpath) ([]*models.Note, error) {
	notes := make([]*models.Note, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, sp := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			n, err := v.load(sp)
			if err != nil {
				v.logger.Warn("vault: read failed", slog.String("path", string(sp)), slog.String("error", err.Error()))
				return nil
			}
			notes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

// load reads one note; all of the note's I/O happens here.
func (v *Vault) load(sp models.Subpath) (*models.Note, error) {
	abs, err := v.safePath(string(sp))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("vault: read %s: %w: %w", sp, apperr.ErrNotFound, err)
		}
		return nil, fmt.Errorf("vault: read %s: %w", sp, err)
	}
	res := parser.Parse(data)
	if res.FrontmatterErr != nil {
		v.logger.Debug("vault: frontmatter rejected",
			slog.String("path", string(sp)),
			slog.String("error", res.FrontmatterErr.Error()))
	}
	return models.NewNote(sp, res.Frontmatter, res.Tags, res.Lines, contentHash(data)), nil
}

// contentHash is the hex SHA-256 of a note file; the catalog compares it to
// skip unchanged notes.
func contentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
