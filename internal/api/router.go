package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/docservice"
	"github.com/starford/othala/internal/hierarchy"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(docs *docservice.Service, hier *hierarchy.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(docs, hier)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Container hierarchy.
	r.Get("/containers", h.ListContainers)
	r.Post("/containers", h.CreateContainer)
	r.Get("/containers/{name}/children", h.ContainerChildren)
	r.Post("/containers/{name}/move", h.MoveContainer)
	r.Post("/containers/{name}/promote", h.PromoteContainer)
	r.Delete("/containers/{name}", h.DeleteContainer)

	// Documents.
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.PutDocument)

	// Managed-section rewrites.
	r.Post("/sections/entries", h.AddEntry)
	r.Post("/sections/prune", h.PruneReferences)
	r.Post("/sections/reorganize", h.Reorganize)

	// Derived views.
	r.Get("/styles", h.Styles)
	r.Get("/graph", h.Graph)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
