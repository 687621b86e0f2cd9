package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/obvault/internal/index"
	"github.com/starford/obvault/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc     *noteservice.Service
	catalog index.Catalog
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, catalog index.Catalog) *Handler {
	return &Handler{svc: svc, catalog: catalog}
}

// wildcard extracts the trailing route segment (everything after the route
// prefix). Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func wildcard(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List catalogued notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			triage	query		bool	false	"Only notes awaiting triage"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	triage, _ := strconv.ParseBool(q.Get("triage"))

	notes, total, err := h.catalog.ListNotes(index.ListFilter{
		Tag:    strings.TrimPrefix(q.Get("tag"), "#"),
		Triage: triage,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Read and parse a single note from the vault
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := wildcard(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, "get note", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Search handles GET /api/search?q=...
//
//	@Summary		Full-text search over the catalog
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.catalog.Search(q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: orEmpty(results)})
}

// Tags handles GET /api/tags.
//
//	@Summary		Count notes per tag
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalog.TagCounts()
	if err != nil {
		writeError(w, "tag counts", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: orEmpty(tags)})
}

// Todo handles GET /api/todo.
//
//	@Summary		Notes tagged as todo and lines carrying the todo marker
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	TodoResponse
//	@Security		BearerAuth
//	@Router			/todo [get]
func (h *Handler) Todo(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Todo(r.Context())
	if err != nil {
		writeError(w, "todo report", err)
		return
	}
	rep.Notes = orEmpty(rep.Notes)
	rep.Tasks = orEmpty(rep.Tasks)
	writeJSON(w, http.StatusOK, rep)
}

// Labelled handles GET /api/labelled/*.
//
//	@Summary		Notes carrying a tag
//	@Tags			reports
//	@Produce		json
//	@Param			tag	path		string	true	"Tag, with or without the leading #"
//	@Success		200	{object}	SubpathsResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/labelled/{tag} [get]
func (h *Handler) Labelled(w http.ResponseWriter, r *http.Request) {
	tag := wildcard(r)
	notes, err := h.svc.Labelled(r.Context(), tag)
	if err != nil {
		writeError(w, "labelled report", err, slog.String("tag", tag))
		return
	}
	writeJSON(w, http.StatusOK, SubpathsResponse{Notes: orEmpty(notes)})
}

// Anki handles GET /api/anki.
//
//	@Summary		Notes labelled for Anki
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	SubpathsResponse
//	@Security		BearerAuth
//	@Router			/anki [get]
func (h *Handler) Anki(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Anki(r.Context())
	if err != nil {
		writeError(w, "anki report", err)
		return
	}
	writeJSON(w, http.StatusOK, SubpathsResponse{Notes: orEmpty(notes)})
}

// Triage handles GET /api/triage.
//
//	@Summary		Notes without frontmatter
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	SubpathsResponse
//	@Security		BearerAuth
//	@Router			/triage [get]
func (h *Handler) Triage(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Triage(r.Context())
	if err != nil {
		writeError(w, "triage report", err)
		return
	}
	writeJSON(w, http.StatusOK, SubpathsResponse{Notes: orEmpty(notes)})
}

// Validate handles GET /api/validate.
//
//	@Summary		Validate frontmatter against the vault schema
//	@Tags			reports
//	@Produce		json
//	@Success		200	{object}	ValidateResponse
//	@Failure		404	{object}	errResponse	"schema document missing"
//	@Failure		422	{object}	errResponse	"schema document invalid"
//	@Security		BearerAuth
//	@Router			/validate [get]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	invalid, err := h.svc.ValidateFrontmatter(r.Context())
	if err != nil {
		writeError(w, "validate", err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: len(invalid) == 0, Invalid: orEmpty(invalid)})
}
