package index

import "github.com/starford/obvault/internal/report"

// Catalog is the read side of the note catalog. The API and the note
// service depend on it rather than on *DB.
type Catalog interface {
	GetNote(path string) (*NoteRow, error)
	ListNotes(f ListFilter) ([]NoteRow, int, error)
	TagCounts() ([]report.TagCount, error)
	Search(query string, limit int) ([]SearchResult, error)
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
