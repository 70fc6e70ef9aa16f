package index

import "github.com/starford/othala/internal/parser"

// DocumentIndex defines the interface for metadata index operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string, links []parser.Link) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	GetAttributes(path string) (parser.Attributes, error)
	Containers() ([]DocumentRow, error)
	ContainerTargets(source string) ([]string, error)
	ReferencingContainers(target string) ([]string, error)
	Backlinks(target string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphEdge, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
