package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", &apperr.ValidationError{Field: "path", Reason: "absolute paths not allowed: " + rel}
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", &apperr.ValidationError{Field: "path", Reason: "path escapes vault root: " + rel}
	}
	return abs, nil
}

func opErr(op, path string, err error) error {
	return &apperr.StorageError{Op: op, Path: path, Err: err}
}

// List walks dir (relative to root) and returns metadata for every .md file.
func (f *FS) List(dir string) ([]models.DocumentMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.DocumentMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.DocumentMetadata{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, opErr("list", dir, err)
	}
	return out, nil
}

// ListChildren returns the immediate entries of a group. os.ReadDir sorts
// by name, which gives the stable enumeration order mutations rely on.
func (f *FS) ListChildren(group string) ([]models.Handle, error) {
	abs, err := f.safePath(group)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, opErr("list-children", group, err)
	}
	out := make([]models.Handle, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.Handle{
			Name:    e.Name(),
			Path:    filepath.Join(group, e.Name()),
			IsGroup: e.IsDir(),
		})
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, opErr("read", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return opErr("write", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".othala-tmp-*")
	if err != nil {
		return opErr("write", path, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return opErr("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return opErr("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return opErr("write", path, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return opErr("write", path, err)
	}
	success = true
	return nil
}

// Create writes a new file, failing with fs.ErrExist underneath when the
// path is already taken.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return opErr("create", path, err)
	}
	fh, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return opErr("create", path, err)
	}
	success := false
	defer func() {
		if !success {
			_ = fh.Close()
			_ = os.Remove(abs)
		}
	}()
	if _, err := fh.Write(content); err != nil {
		return opErr("create", path, err)
	}
	if err := fh.Sync(); err != nil {
		return opErr("create", path, err)
	}
	if err := fh.Close(); err != nil {
		return opErr("create", path, err)
	}
	success = true
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return opErr("delete", path, err)
	}
	return nil
}

// DeleteTree removes a group recursively. Unlike os.RemoveAll it fails when
// the group does not exist, so callers notice deleting the wrong path.
func (f *FS) DeleteTree(group string) error {
	abs, err := f.safePath(group)
	if err != nil {
		return err
	}
	if abs == f.root {
		return &apperr.ValidationError{Field: "group", Reason: "refusing to delete vault root"}
	}
	if _, err := os.Stat(abs); err != nil {
		return opErr("delete-tree", group, err)
	}
	if err := os.RemoveAll(abs); err != nil {
		return opErr("delete-tree", group, err)
	}
	return nil
}

// Rename moves a file or group. The destination must be free: hierarchy
// moves must never merge one group into another.
func (f *FS) Rename(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absOld); err != nil {
		return opErr("rename", oldPath, err)
	}
	if _, err := os.Stat(absNew); err == nil {
		return opErr("rename", newPath, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return opErr("rename", newPath, err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return opErr("rename", oldPath, err)
	}
	return nil
}

// Exists reports whether path names a file or group in the vault.
func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, opErr("stat", path, err)
	}
	return true, nil
}
