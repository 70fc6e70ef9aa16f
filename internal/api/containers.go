package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/hierarchy"
)

// containerName extracts the container name from the URL parameter.
func containerName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListContainers handles GET /api/containers.
//
//	@Summary		List all containers with child counts
//	@Tags			containers
//	@Produce		json
//	@Success		200	{object}	ContainersResponse
//	@Security		BearerAuth
//	@Router			/containers [get]
func (h *Handler) ListContainers(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.hier.Summaries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"containers": summaries,
	})
}

// CreateContainer handles POST /api/containers.
//
//	@Summary		Create a container, optionally under a parent
//	@Tags			containers
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateContainerRequest	true	"Container to create"
//	@Success		201		{object}	ContainerResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers [post]
func (h *Handler) CreateContainer(w http.ResponseWriter, r *http.Request) {
	var req CreateContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	attrs := hierarchy.Attrs{
		Type:       req.Type,
		LightColor: req.LightColor,
		DarkColor:  req.DarkColor,
	}
	c, err := h.hier.Create(r.Context(), req.Name, req.Parent, attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"container": c,
	})
}

// ContainerChildren handles GET /api/containers/{name}/children.
//
//	@Summary		List the direct children of a container
//	@Tags			containers
//	@Produce		json
//	@Param			name	path		string	true	"Container name"
//	@Success		200		{object}	ContainerListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{name}/children [get]
func (h *Handler) ContainerChildren(w http.ResponseWriter, r *http.Request) {
	name := containerName(r)
	children, err := h.hier.Children(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"containers": children,
	})
}

// MoveContainer handles POST /api/containers/{name}/move.
//
//	@Summary		Move a container under a new parent
//	@Tags			containers
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Container name"
//	@Param			body	body		MoveRequest		true	"New parent"
//	@Success		200		{object}	MoveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{name}/move [post]
func (h *Handler) MoveContainer(w http.ResponseWriter, r *http.Request) {
	name := containerName(r)
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Parent == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("parent is required"))
		return
	}
	res, err := h.hier.Move(r.Context(), name, req.Parent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PromoteContainer handles POST /api/containers/{name}/promote.
//
//	@Summary		Promote a container to the vault root
//	@Tags			containers
//	@Produce		json
//	@Param			name	path		string	true	"Container name"
//	@Success		200		{object}	MoveResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{name}/promote [post]
func (h *Handler) PromoteContainer(w http.ResponseWriter, r *http.Request) {
	name := containerName(r)
	res, err := h.hier.Promote(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteContainer handles DELETE /api/containers/{name}.
//
//	@Summary		Delete a container, its group and every reference to it
//	@Tags			containers
//	@Produce		json
//	@Param			name	path		string	true	"Container name"
//	@Success		200		{object}	DeleteResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{name} [delete]
func (h *Handler) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	name := containerName(r)
	report, err := h.hier.Delete(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
