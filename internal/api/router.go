package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/obvault/internal/index"
	"github.com/starford/obvault/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, catalog index.Catalog, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, catalog)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Catalog.
	r.Get("/notes", h.ListNotes)
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)

	// Live reads and reports.
	r.Get("/notes/*", h.GetNote)
	r.Get("/todo", h.Todo)
	r.Get("/labelled/*", h.Labelled)
	r.Get("/anki", h.Anki)
	r.Get("/triage", h.Triage)
	r.Get("/validate", h.Validate)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
