// Package models defines the domain types for Othala.
package models

import "time"

// DocumentMetadata is a lightweight representation returned by list
// operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Container is a hierarchy node: a document carrying the container marker,
// owning the storage group it lives in.
type Container struct {
	Path       string  `json:"path"`
	Name       string  `json:"name"`
	Group      string  `json:"group"`
	Type       string  `json:"type,omitempty"`
	LightColor *string `json:"light_color,omitempty"`
	DarkColor  *string `json:"dark_color,omitempty"`
}

// StyleRule is one presentational rule derived from container color
// metadata. The presentation layer owns applying and removing them; rules
// are recomputed from scratch on demand and identified deterministically.
type StyleRule struct {
	ID       string `json:"id"`
	Selector string `json:"selector"`
	Theme    string `json:"theme"` // "light" or "dark"
	Color    string `json:"color"`
}

// Handle names one child of a storage group.
type Handle struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	IsGroup bool   `json:"is_group"`
}
