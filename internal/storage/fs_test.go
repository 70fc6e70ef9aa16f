package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/apperr"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("doc.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("doc.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestCreate_FailsOnExistingPath(t *testing.T) {
	s := tempVault(t)
	if err := s.Create("once.md", []byte("first")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("once.md", []byte("second"))
	if err == nil {
		t.Fatal("expected error creating existing path")
	}
	if !errors.Is(err, fs.ErrExist) {
		t.Errorf("err = %v, want fs.ErrExist underneath", err)
	}
	got, _ := s.Read("once.md")
	if string(got) != "first" {
		t.Errorf("content = %q, original clobbered", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestDelete_MissingPathFails(t *testing.T) {
	s := tempVault(t)
	err := s.Delete("ghost.md")
	if err == nil {
		t.Fatal("expected error deleting missing file")
	}
	var serr *apperr.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %T, want *apperr.StorageError", err)
	}
	if serr.Op != "delete" || serr.Path != "ghost.md" {
		t.Errorf("storage error = %+v", serr)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist underneath", err)
	}
}

func TestRename_File(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Rename("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := s.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after rename: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestRename_GroupMovesContents(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("Alpha/Alpha.md", []byte("root doc"))
	_ = s.Write("Alpha/Beta/Beta.md", []byte("child doc"))

	if err := s.Rename("Alpha", "Parent/Alpha"); err != nil {
		t.Fatalf("Rename group: %v", err)
	}
	got, err := s.Read("Parent/Alpha/Beta/Beta.md")
	if err != nil {
		t.Fatalf("nested doc missing after group rename: %v", err)
	}
	if string(got) != "child doc" {
		t.Errorf("content = %q", got)
	}
}

func TestRename_MissingSourceFails(t *testing.T) {
	s := tempVault(t)
	err := s.Rename("nope.md", "dest.md")
	if err == nil {
		t.Fatal("expected error renaming missing source")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist underneath", err)
	}
}

func TestRename_OccupiedDestinationFails(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("b.md", []byte("b"))
	err := s.Rename("a.md", "b.md")
	if err == nil {
		t.Fatal("expected error renaming onto existing path")
	}
	if !errors.Is(err, fs.ErrExist) {
		t.Errorf("err = %v, want fs.ErrExist underneath", err)
	}
}

func TestDeleteTree(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("Grp/Grp.md", []byte("g"))
	_ = s.Write("Grp/Sub/Sub.md", []byte("s"))

	if err := s.DeleteTree("Grp"); err != nil {
		t.Fatalf("DeleteTree: %v", err)
	}
	ok, err := s.Exists("Grp")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("group still present after DeleteTree")
	}
}

func TestDeleteTree_MissingGroupFails(t *testing.T) {
	s := tempVault(t)
	if err := s.DeleteTree("ghost"); err == nil {
		t.Error("expected error deleting missing group")
	}
}

func TestDeleteTree_RefusesVaultRoot(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("keep.md", []byte("k"))
	if err := s.DeleteTree(""); err == nil {
		t.Fatal("expected error deleting vault root")
	}
	if ok, _ := s.Exists("keep.md"); !ok {
		t.Error("vault contents were deleted")
	}
}

func TestExists(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("here.md", []byte("h"))
	ok, err := s.Exists("here.md")
	if err != nil || !ok {
		t.Errorf("Exists(here.md) = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.Exists("missing.md")
	if err != nil || ok {
		t.Errorf("Exists(missing.md) = %v, %v; want false, nil", ok, err)
	}
}

func TestListChildren(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("Top/Top.md", []byte("t"))
	_ = s.Write("Top/Zed/Zed.md", []byte("z"))
	_ = s.Write("Top/Able/Able.md", []byte("a"))

	kids, err := s.ListChildren("Top")
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(kids) != 3 {
		t.Fatalf("len = %d, want 3", len(kids))
	}
	// ReadDir sorts by name.
	if kids[0].Name != "Able" || !kids[0].IsGroup {
		t.Errorf("kids[0] = %+v, want group Able", kids[0])
	}
	if kids[1].Name != "Top.md" || kids[1].IsGroup {
		t.Errorf("kids[1] = %+v, want file Top.md", kids[1])
	}
	if kids[2].Name != "Zed" || !kids[2].IsGroup {
		t.Errorf("kids[2] = %+v, want group Zed", kids[2])
	}
	if kids[2].Path != filepath.Join("Top", "Zed") {
		t.Errorf("kids[2].Path = %q", kids[2].Path)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Verify that if we read during a write the old content is intact
	// (the rename is atomic on POSIX).
	s := tempVault(t)
	original := []byte("original content")
	_ = s.Write("atomic.md", original)

	// Overwrite with new content.
	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".othala-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/othala-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "othala-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
