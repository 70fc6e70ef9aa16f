package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/docservice"
	"github.com/starford/othala/internal/hierarchy"
)

// Handler holds API route handlers.
type Handler struct {
	docs *docservice.Service
	hier *hierarchy.Service
}

// NewHandler creates a new Handler.
func NewHandler(docs *docservice.Service, hier *hierarchy.Service) *Handler {
	return &Handler{docs: docs, hier: hier}
}

// docPath extracts the document path from the URL (everything after
// /api/documents/). Supports encoded slashes from OpenAPI clients
// (e.g. Work%2Fmeeting.md).
func docPath(r *http.Request) string {
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

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single document by path
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.docs.Get(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.withOwner(r, doc))
}

// PutDocument handles PUT /api/documents/*. It creates the document when
// missing and updates it otherwise, with If-Match optimistic concurrency.
//
//	@Summary		Create or update a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Document path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		PutDocumentRequest	true	"Document content"
//	@Success		200			{object}	DocumentResponse
//	@Success		201			{object}	DocumentResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req PutDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	doc, created, err := h.docs.Put(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, h.withOwner(r, doc))
}

// withOwner attaches the owning container to a document response. A document
// outside any container group simply has no owner.
func (h *Handler) withOwner(r *http.Request, doc *docservice.DocumentDetail) DocumentResponse {
	resp := DocumentResponse{DocumentDetail: doc}
	if owner, err := h.hier.OwnerOf(r.Context(), doc.Path); err == nil {
		resp.Owner = owner
	}
	return resp
}

// AddEntry handles POST /api/sections/entries.
//
//	@Summary		Insert a managed entry into a document section
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddEntryRequest	true	"Entry to insert"
//	@Success		200		{object}	SectionResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/entries [post]
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Section == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path, section and target are required"))
		return
	}
	res, err := h.docs.AddEntry(r.Context(), req.Path, req.Section, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PruneReferences handles POST /api/sections/prune.
//
//	@Summary		Remove every managed entry linking to a target
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PruneRequest	true	"Target to prune"
//	@Success		200		{object}	SectionResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/prune [post]
func (h *Handler) PruneReferences(w http.ResponseWriter, r *http.Request) {
	var req PruneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and target are required"))
		return
	}
	res, err := h.docs.PruneReferences(r.Context(), req.Path, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Reorganize handles POST /api/sections/reorganize.
//
//	@Summary		Rebuild a document into canonical section order
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReorganizeRequest	true	"Document to reorganize"
//	@Success		200		{object}	SectionResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/reorganize [post]
func (h *Handler) Reorganize(w http.ResponseWriter, r *http.Request) {
	var req ReorganizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.docs.Reorganize(r.Context(), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Styles handles GET /api/styles.
//
//	@Summary		Style rules derived from container colors
//	@Tags			styles
//	@Produce		json
//	@Success		200	{object}	StylesResponse
//	@Security		BearerAuth
//	@Router			/styles [get]
func (h *Handler) Styles(w http.ResponseWriter, r *http.Request) {
	containers, err := h.hier.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"styles": hierarchy.ComputeStyleRules(containers),
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Container nodes and container-typed edges
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, edges, err := h.docs.Graph(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"edges": edges,
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.docs.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
