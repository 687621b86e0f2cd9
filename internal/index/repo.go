package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/obvault/internal/apperr"
	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/report"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path        string          `json:"path"`
	Checksum    string          `json:"checksum"`
	Frontmatter json.RawMessage `json:"frontmatter"`
	Tags        []string        `json:"tags"`
	Triage      bool            `json:"awaiting_triage"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
}

// ListFilter narrows ListNotes. Zero values list everything.
type ListFilter struct {
	Tag    string
	Triage bool // only notes awaiting triage
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// NewRow converts a parsed note into a catalog row and its body text.
func NewRow(n *models.Note) (NoteRow, string, error) {
	fm, err := json.Marshal(n.Frontmatter())
	if err != nil {
		return NoteRow{}, "", fmt.Errorf("index: encode frontmatter %s: %w", n.Subpath(), err)
	}
	row := NoteRow{
		Path:        n.Subpath().String(),
		Checksum:    n.Checksum(),
		Frontmatter: fm,
		Tags:        n.Tags().Sorted(),
		Triage:      n.AwaitingTriage(),
		UpdatedAt:   time.Now().UTC(),
	}
	return row, strings.Join(n.Lines(), "\n"), nil
}

// UpsertNote inserts or replaces a note, its FTS entry and its tag rows
// within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	tagsJSON, _ := json.Marshal(nonNil(n.Tags))
	fm := n.Frontmatter
	if len(fm) == 0 {
		fm = json.RawMessage("{}")
	}

	_, err = tx.Exec(`
		INSERT INTO notes (path, checksum, frontmatter, tags, body, triage, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			frontmatter = excluded.frontmatter,
			tags        = excluded.tags,
			body        = excluded.body,
			triage      = excluded.triage,
			updated_at  = excluded.updated_at
	`, n.Path, n.Checksum, string(fm), string(tagsJSON), body, n.Triage, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Path, body, n.Tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM note_tags WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	if len(n.Tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO note_tags (path, tag) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range n.Tags {
			if _, err := stmt.Exec(n.Path, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry and its tag rows.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM note_tags WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete tags: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or an empty string if
// the note is not catalogued.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every catalogued path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const rowColumns = `n.path, n.checksum, n.frontmatter, n.tags, n.triage, n.updated_at`

// GetNote returns the catalogued row for path.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	row := db.conn.QueryRow(`SELECT `+rowColumns+` FROM notes n WHERE n.path = ?`, path)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: note %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &r, nil
}

// ListNotes returns one page of notes ordered by path, and the total number
// of matching notes.
func (db *DB) ListNotes(f ListFilter) ([]NoteRow, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(f.Offset, 0)

	from := ` FROM notes n`
	var where []string
	var args []any
	if f.Tag != "" {
		from += ` JOIN note_tags t ON t.path = n.path`
		where = append(where, `t.tag = ?`)
		args = append(args, f.Tag)
	}
	if f.Triage {
		where = append(where, `n.triage = 1`)
	}
	if len(where) > 0 {
		from += ` WHERE ` + strings.Join(where, ` AND `)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+rowColumns+from+` ORDER BY n.path LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	out := []NoteRow{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("index: scan note: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// TagCounts returns the number of notes per tag, most used first; ties are
// ordered by tag.
func (db *DB) TagCounts() ([]report.TagCount, error) {
	rows, err := db.conn.Query(`
		SELECT tag, count(*) AS c
		FROM note_tags
		GROUP BY tag
		ORDER BY c DESC, tag ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tag counts: %w", err)
	}
	defer rows.Close()

	out := []report.TagCount{}
	for rows.Next() {
		var tc report.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (NoteRow, error) {
	var (
		r        NoteRow
		fm, tags string
	)
	if err := s.Scan(&r.Path, &r.Checksum, &fm, &tags, &r.Triage, &r.UpdatedAt); err != nil {
		return NoteRow{}, err
	}
	r.Frontmatter = json.RawMessage(fm)
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return NoteRow{}, fmt.Errorf("decode tags of %s: %w", r.Path, err)
	}
	r.Tags = nonNil(r.Tags)
	return r, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
