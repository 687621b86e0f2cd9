//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

const ftsLayout = 0

// Without FTS5 the body column of notes is the search corpus, so there is no
// second table to maintain.
func initFTS(*sql.DB) error { return nil }

func ftsUpsert(*sql.Tx, string, string, []string) error { return nil }

func ftsDelete(*sql.Tx, string) error { return nil }

// Search matches query as a case-insensitive substring of note bodies, tags
// and paths, ordered by path. Snippets are cut around the first match.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	like := likePattern(query)
	rows, err := db.conn.Query(`
		SELECT path, body
		FROM notes
		WHERE body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\' OR path LIKE ? ESCAPE '\'
		ORDER BY path
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	for i := range results {
		results[i].Snippet = excerpt(results[i].Snippet, query, excerptWidth)
	}
	return results, nil
}
