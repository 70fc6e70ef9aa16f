package index

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/parser"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func containerLink(target string) parser.Link {
	return parser.Link{Target: target, Type: parser.LinkContainer}
}

func inlineLink(target string) parser.Link {
	return parser.Link{Target: target, Type: parser.LinkInline}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertDocument(row, "This is a hello world document.", []parser.Link{inlineLink("Other")}); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestGetDocument(t *testing.T) {
	db := testDB(t)
	light := "#aabbcc"
	_ = db.UpsertDocument(DocumentRow{
		Path:       "Alpha/Alpha.md",
		Title:      "Alpha",
		Checksum:   "1",
		Container:  true,
		Type:       "note",
		LightColor: &light,
		UpdatedAt:  time.Now(),
	}, "body", nil)

	d, err := db.GetDocument("Alpha/Alpha.md")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !d.Container || d.Title != "Alpha" || d.Type != "note" {
		t.Errorf("row = %+v", d)
	}
	if d.LightColor == nil || *d.LightColor != light {
		t.Errorf("lightColor = %v, want %q", d.LightColor, light)
	}
	if d.DarkColor != nil {
		t.Errorf("darkColor = %v, want nil", d.DarkColor)
	}

	if _, err := db.GetDocument("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetAttributes(t *testing.T) {
	db := testDB(t)
	dark := "#001122"
	_ = db.UpsertDocument(DocumentRow{
		Path:      "c.md",
		Checksum:  "1",
		Container: true,
		Type:      "resource",
		DarkColor: &dark,
		UpdatedAt: time.Now(),
	}, "", nil)

	a, err := db.GetAttributes("c.md")
	if err != nil {
		t.Fatalf("GetAttributes: %v", err)
	}
	if !a.Container || a.Type != parser.TypeResource {
		t.Errorf("attributes = %+v", a)
	}
	if a.DarkColor == nil || *a.DarkColor != dark {
		t.Errorf("darkColor = %v", a.DarkColor)
	}

	if _, err := db.GetAttributes("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestContainers_StableOrder(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "Zed/Zed.md", Container: true, UpdatedAt: time.Now()}, "", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "Able/Able.md", Container: true, UpdatedAt: time.Now()}, "", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "plain.md", Container: false, UpdatedAt: time.Now()}, "", nil)

	cs, err := db.Containers()
	if err != nil {
		t.Fatalf("Containers: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("len = %d, want 2", len(cs))
	}
	if cs[0].Path != "Able/Able.md" || cs[1].Path != "Zed/Zed.md" {
		t.Errorf("order = %q, %q", cs[0].Path, cs[1].Path)
	}
}

func TestTypedLinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "A/A.md", Container: true, UpdatedAt: time.Now()}, "",
		[]parser.Link{containerLink("B"), containerLink("C"), inlineLink("D")})
	_ = db.UpsertDocument(DocumentRow{Path: "note.md", Container: false, UpdatedAt: time.Now()}, "",
		[]parser.Link{inlineLink("B")})

	targets, err := db.ContainerTargets("A/A.md")
	if err != nil {
		t.Fatalf("ContainerTargets: %v", err)
	}
	if len(targets) != 2 || targets[0] != "B" || targets[1] != "C" {
		t.Errorf("targets = %v, want [B C]", targets)
	}

	// Only container-typed references from container documents count.
	refs, err := db.ReferencingContainers("B")
	if err != nil {
		t.Fatalf("ReferencingContainers: %v", err)
	}
	if len(refs) != 1 || refs[0] != "A/A.md" {
		t.Errorf("refs = %v, want [A/A.md]", refs)
	}

	bl, err := db.Backlinks("B")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Errorf("backlinks = %v, want both sources", bl)
	}
}

func TestSameTargetBothTypes(t *testing.T) {
	db := testDB(t)
	err := db.UpsertDocument(DocumentRow{Path: "dual.md", UpdatedAt: time.Now()}, "",
		[]parser.Link{containerLink("X"), inlineLink("X")})
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	targets, _ := db.ContainerTargets("dual.md")
	if len(targets) != 1 || targets[0] != "X" {
		t.Errorf("container targets = %v, want [X]", targets)
	}
	bl, _ := db.Backlinks("X")
	if len(bl) != 1 {
		t.Errorf("backlinks = %v, want deduplicated single source", bl)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "del.md", Checksum: "x", UpdatedAt: time.Now()}, "body",
		[]parser.Link{inlineLink("Target")})

	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("Target")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "up.md", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body",
		[]parser.Link{inlineLink("X")})
	_ = db.UpsertDocument(DocumentRow{Path: "up.md", Title: "New", Checksum: "2", UpdatedAt: now}, "new body",
		[]parser.Link{inlineLink("Y")})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	bl, _ := db.Backlinks("X")
	if len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	bl, _ = db.Backlinks("Y")
	if len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "A/A.md", Title: "A", Container: true, UpdatedAt: time.Now()}, "",
		[]parser.Link{containerLink("B"), inlineLink("loose")})
	_ = db.UpsertDocument(DocumentRow{Path: "A/B/B.md", Title: "B", Container: true, UpdatedAt: time.Now()}, "", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "plain.md", Title: "P", UpdatedAt: time.Now()}, "", nil)

	nodes, edges, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("nodes = %v, want the 2 containers", nodes)
	}
	if len(edges) != 1 || edges[0].Source != "A/A.md" || edges[0].Target != "B" {
		t.Errorf("edges = %v, want single A->B container edge", edges)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "s.md", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}
