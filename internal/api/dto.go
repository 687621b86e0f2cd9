package api

import (
	"github.com/starford/obvault/internal/index"
	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/noteservice"
	"github.com/starford/obvault/internal/report"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteRow is a catalog entry (aliased from the index layer).
type NoteRow = index.NoteRow

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteRow `json:"notes" validate:"required"`
	Total int       `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// TagsResponse lists tag usage, most used first.
type TagsResponse struct {
	Tags []report.TagCount `json:"tags" validate:"required"`
}

// SubpathsResponse is returned by the reports that list notes.
type SubpathsResponse struct {
	Notes []models.Subpath `json:"notes" example:"topics/go.md" validate:"required"`
}

// ValidateResponse lists the notes whose frontmatter violates the schema.
type ValidateResponse struct {
	Valid   bool                 `json:"valid" example:"false" validate:"required"`
	Invalid []report.InvalidNote `json:"invalid" validate:"required"`
}

// TodoResponse is the todo report.
type TodoResponse = report.TodoReport

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
