// Package storage defines the vault file-system abstraction: documents as
// named blobs inside nested storage groups.
package storage

import "github.com/starford/othala/internal/models"

// Provider is the interface for vault file operations. Paths are always
// relative to the vault root; a storage group is simply a directory.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// ListChildren returns the immediate children of a group, sorted by name.
	ListChildren(group string) ([]models.Handle, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating or overwriting.
	Write(path string, content []byte) error
	// Create writes a new file and fails if the path already exists.
	Create(path string, content []byte) error
	// Rename moves a file or a whole group. The old path must exist and the
	// new path must not.
	Rename(oldPath, newPath string) error
	// Delete removes the file at path.
	Delete(path string) error
	// DeleteTree removes a group and everything beneath it.
	DeleteTree(group string) error
	// Exists reports whether a file or group is present at path.
	Exists(path string) (bool, error)
}
