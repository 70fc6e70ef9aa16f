// Package docservice coordinates storage and index operations for single
// documents: reads, optimistic-concurrency writes, and the managed-section
// rewrites.
package docservice

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/parser"
	"github.com/starford/othala/internal/section"
	"github.com/starford/othala/internal/storage"
)

// DocumentDetail is the full representation of a vault document.
type DocumentDetail struct {
	Path        string            `json:"path"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Checksum    string            `json:"checksum"`
	Attributes  parser.Attributes `json:"attributes"`
	Frontmatter map[string]any    `json:"frontmatter,omitempty"`
	Backlinks   []string          `json:"backlinks"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// SectionResult reports the outcome of one managed-section rewrite.
type SectionResult struct {
	Path     string `json:"path"`
	Changed  bool   `json:"changed"`
	Checksum string `json:"checksum"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    *index.DB
}

// NewService creates a new document service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db}
}

// Get reads a document from storage, parses it, and enriches it with
// backlinks.
func (s *Service) Get(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildDetail(path, data)
}

// Put writes content with optimistic concurrency and reports whether the
// document was created. A non-empty ifMatch must equal the checksum of what
// is currently stored; on a missing document it fails with ErrNotFound
// instead of creating.
func (s *Service) Put(_ context.Context, path string, content []byte, ifMatch string) (*DocumentDetail, bool, error) {
	created := false
	existing, err := s.store.Read(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if ifMatch != "" {
			return nil, false, apperr.ErrNotFound
		}
		created = true
	case err != nil:
		return nil, false, err
	default:
		if ifMatch != "" && !checksum.Matches(ifMatch, existing) {
			return nil, false, apperr.ErrConflict
		}
	}

	if err := s.save(path, content); err != nil {
		return nil, false, err
	}
	detail, err := s.buildDetail(path, content)
	return detail, created, err
}

// AddEntry inserts a managed entry into the named section of the document
// at path, creating the section when missing.
func (s *Service) AddEntry(_ context.Context, path, sectionName, target string) (*SectionResult, error) {
	text, err := s.readText(path)
	if err != nil {
		return nil, err
	}
	out, err := section.AddEntry(text, sectionName, target)
	if err != nil {
		return nil, err
	}
	return s.finishRewrite(path, text, out)
}

// PruneReferences removes every managed entry linking to target from the
// document at path.
func (s *Service) PruneReferences(_ context.Context, path, target string) (*SectionResult, error) {
	if err := section.ValidateTarget(target); err != nil {
		return nil, err
	}
	text, err := s.readText(path)
	if err != nil {
		return nil, err
	}
	out, _ := section.PruneReferences(text, target)
	return s.finishRewrite(path, text, out)
}

// Reorganize rebuilds the document into canonical section order. The result
// says explicitly when nothing needed to change.
func (s *Service) Reorganize(_ context.Context, path string) (*SectionResult, error) {
	text, err := s.readText(path)
	if err != nil {
		return nil, err
	}
	out := section.ReorganizeText(text)
	return s.finishRewrite(path, text, out)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns the container nodes and container-typed edges.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphEdge, error) {
	return s.db.Graph()
}

// Backlinks returns all document paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

func (s *Service) readText(path string) (string, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// finishRewrite persists a section rewrite when it changed anything and
// reports the outcome either way.
func (s *Service) finishRewrite(path, before, after string) (*SectionResult, error) {
	res := &SectionResult{
		Path:     path,
		Changed:  after != before,
		Checksum: checksum.Sum([]byte(after)),
	}
	if !res.Changed {
		return res, nil
	}
	if err := s.save(path, []byte(after)); err != nil {
		return nil, err
	}
	return res, nil
}

// save writes content and immediately reindexes it.
func (s *Service) save(path string, content []byte) error {
	if err := s.store.Write(path, content); err != nil {
		return err
	}
	return index.IndexFile(s.db, path, content)
}

// buildDetail constructs a DocumentDetail from raw data without re-reading
// the file. Backlinks are looked up by the document's wikilink name (the
// path stem), which is how entries reference it.
func (s *Service) buildDetail(path string, data []byte) (*DocumentDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(wikiName(path))
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Attributes:  res.Attributes,
		Frontmatter: res.Frontmatter,
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// wikiName is the name entries use to reference a document: its path stem.
func wikiName(p string) string {
	return strings.TrimSuffix(path.Base(p), ".md")
}
