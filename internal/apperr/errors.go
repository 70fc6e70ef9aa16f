// Package apperr defines the error kinds shared across Othala's layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// ValidationError reports invalid caller-supplied input. It is always
// returned before any I/O or mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// StorageError carries the storage-backend operation and path that failed.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CycleError rejects a re-parent that would make a container its own
// ancestor. No side effects have happened when it is returned.
type CycleError struct {
	Node   string
	Parent string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("hierarchy: moving %q under %q would create a cycle", e.Node, e.Parent)
}

// StructureError reports a document whose managed-section structure blocks
// a requested repair.
type StructureError struct {
	Path   string
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure: %s: %s", e.Path, e.Reason)
}
