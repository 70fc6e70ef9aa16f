package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/parser"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path       string
	Title      string
	Checksum   string
	Container  bool
	Type       string
	LightColor *string
	DarkColor  *string
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is one container in the hierarchy graph.
type GraphNode struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// GraphEdge is one container-typed reference.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// defaultSearchLimit caps Search results when the caller passes no limit.
const defaultSearchLimit = 20

// queryStrings runs a query whose rows are single text columns.
func (db *DB) queryStrings(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// collectSearch scans (path, title, snippet) rows and closes them.
func collectSearch(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertDocument inserts or replaces a document, its FTS entry, and its
// typed links within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, links []parser.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// Upsert documents table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, container, note_type, light_color, dark_color, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			container   = excluded.container,
			note_type   = excluded.note_type,
			light_color = excluded.light_color,
			dark_color  = excluded.dark_color,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, d.Container, d.Type, d.LightColor, d.DarkColor, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, d.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(d.Path, l.Target, string(l.Type)); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and outgoing links.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string
// if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetDocument returns the stored row for a path.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	d := DocumentRow{Path: path}
	var container int
	err := db.conn.QueryRow(`
		SELECT title, checksum, container, note_type, light_color, dark_color, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&d.Title, &d.Checksum, &container, &d.Type, &d.LightColor, &d.DarkColor, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	d.Container = container != 0
	return &d, nil
}

// GetAttributes returns the typed frontmatter attributes of a document
// without re-reading or re-parsing it.
func (db *DB) GetAttributes(path string) (parser.Attributes, error) {
	var a parser.Attributes
	var container int
	var noteType string
	err := db.conn.QueryRow(`
		SELECT container, note_type, light_color, dark_color
		FROM documents WHERE path = ?
	`, path).Scan(&container, &noteType, &a.LightColor, &a.DarkColor)
	if errors.Is(err, sql.ErrNoRows) {
		return a, apperr.ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("index: get attributes: %w", err)
	}
	a.Container = container != 0
	a.Type = parser.NoteType(noteType)
	return a, nil
}

// Containers returns every document carrying the container marker, in
// stable path order.
func (db *DB) Containers() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, title, checksum, container, note_type, light_color, dark_color, updated_at
		FROM documents WHERE container = 1 ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: containers: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		var container int
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &container, &d.Type, &d.LightColor, &d.DarkColor, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Container = container != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// ContainerTargets returns the container-typed link targets of a source
// document, in document order.
func (db *DB) ContainerTargets(source string) ([]string, error) {
	out, err := db.queryStrings(`
		SELECT target FROM links WHERE source = ? AND type = 'container' ORDER BY rowid
	`, source)
	if err != nil {
		return nil, fmt.Errorf("index: container targets: %w", err)
	}
	return out, nil
}

// ReferencingContainers returns the paths of containers whose Containers
// section lists the target, in stable path order.
func (db *DB) ReferencingContainers(target string) ([]string, error) {
	out, err := db.queryStrings(`
		SELECT DISTINCT l.source
		FROM links l JOIN documents d ON d.path = l.source
		WHERE l.target = ? AND l.type = 'container' AND d.container = 1
		ORDER BY l.source
	`, target)
	if err != nil {
		return nil, fmt.Errorf("index: referencing containers: %w", err)
	}
	return out, nil
}

// Backlinks returns all document paths that link to the given target.
func (db *DB) Backlinks(target string) ([]string, error) {
	out, err := db.queryStrings(`SELECT DISTINCT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	return out, nil
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Graph returns the container hierarchy: container nodes and the
// container-typed edges between them.
func (db *DB) Graph() ([]GraphNode, []GraphEdge, error) {
	nodeRows, err := db.conn.Query(`SELECT path, title FROM documents WHERE container = 1 ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []GraphNode
	for nodeRows.Next() {
		var n GraphNode
		if err := nodeRows.Scan(&n.Path, &n.Title); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := db.conn.Query(`
		SELECT l.source, l.target
		FROM links l JOIN documents d ON d.path = l.source
		WHERE l.type = 'container' AND d.container = 1
		ORDER BY l.source, l.rowid
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []GraphEdge
	for edgeRows.Next() {
		var e GraphEdge
		if err := edgeRows.Scan(&e.Source, &e.Target); err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	return nodes, edges, edgeRows.Err()
}
