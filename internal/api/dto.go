package api

import (
	"github.com/starford/othala/internal/docservice"
	"github.com/starford/othala/internal/hierarchy"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
)

// PutDocumentRequest is the request body for creating or updating a document.
type PutDocumentRequest struct {
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

// AddEntryRequest is the request body for inserting a managed entry.
type AddEntryRequest struct {
	Path    string `json:"path" example:"Projects/Projects.md" validate:"required"`
	Section string `json:"section" example:"Notes" validate:"required"`
	Target  string `json:"target" example:"meeting" validate:"required"`
}

// PruneRequest is the request body for removing managed references.
type PruneRequest struct {
	Path   string `json:"path" example:"Projects/Projects.md" validate:"required"`
	Target string `json:"target" example:"meeting" validate:"required"`
}

// ReorganizeRequest is the request body for a canonical-order rebuild.
type ReorganizeRequest struct {
	Path string `json:"path" example:"Projects/Projects.md" validate:"required"`
}

// CreateContainerRequest is the request body for creating a container.
type CreateContainerRequest struct {
	Name       string `json:"name" example:"Projects" validate:"required"`
	Parent     string `json:"parent,omitempty" example:"Areas"`
	Type       string `json:"type,omitempty" example:"project"`
	LightColor string `json:"light_color,omitempty" example:"#e8f0fe"`
	DarkColor  string `json:"dark_color,omitempty" example:"#1a2b4c"`
}

// MoveRequest is the request body for re-parenting a container.
type MoveRequest struct {
	Parent string `json:"parent" example:"Archive" validate:"required"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentResponse is a document plus the container owning it, when the
// document sits inside a container's storage group.
type DocumentResponse struct {
	*DocumentDetail
	Owner *models.Container `json:"owner,omitempty"`
}

// SectionResult reports the outcome of a section rewrite (aliased from the domain layer).
type SectionResult = docservice.SectionResult

// ContainerSummary is one container plus its child count (aliased from the domain layer).
type ContainerSummary = hierarchy.Summary

// MoveResponse reports what a move or promote did (aliased from the domain layer).
type MoveResponse = hierarchy.MoveResult

// DeleteResponse reports a container deletion (aliased from the domain layer).
type DeleteResponse = hierarchy.PruneReport

// ContainersResponse wraps container listings.
type ContainersResponse struct {
	Containers []ContainerSummary `json:"containers" validate:"required"`
}

// ContainerListResponse wraps a plain container list (children lookups).
type ContainerListResponse struct {
	Containers []models.Container `json:"containers" validate:"required"`
}

// ContainerResponse wraps a single container.
type ContainerResponse struct {
	Container models.Container `json:"container" validate:"required"`
}

// SearchResult is a single search hit (aliased from the index layer).
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the container graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Edges []index.GraphEdge `json:"edges" validate:"required"`
}

// StylesResponse wraps derived style rules.
type StylesResponse struct {
	Styles []models.StyleRule `json:"styles" validate:"required"`
}
