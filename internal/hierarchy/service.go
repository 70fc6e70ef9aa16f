// Package hierarchy implements the container graph: enumerating containers,
// detecting reference cycles, and the create/move/promote/delete mutations
// that keep storage groups and Containers sections consistent with each
// other.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/section"
	"github.com/starford/othala/internal/storage"
)

// Mutation step names. They label errors so callers can tell how far a
// mutation got before it stopped; completed steps are never rolled back.
const (
	stepValidate = "validate"
	stepUnlink   = "unlink"
	stepRelocate = "relocate"
	stepRelink   = "relink"
	stepCreate   = "create"
	stepDelete   = "delete"
)

// Characters that cannot appear in a container name: they break wikilink
// syntax, headers, or storage paths.
const reservedNameChars = "[]|#^\\/:\r\n"

const maxNameLength = 120

// Service performs hierarchy queries and mutations. A single mutex
// serializes the mutations: each one is a sequence of reads and writes
// across several documents that must not interleave with another mutation.
type Service struct {
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger
	notify func(event, name string)

	mu sync.Mutex
}

func New(store storage.Provider, db *index.DB, logger *slog.Logger) *Service {
	return &Service{store: store, db: db, logger: logger}
}

// OnChange registers a callback invoked after every successful mutation with
// the event kind (container.created, container.moved, container.promoted,
// container.deleted) and the container name.
func (s *Service) OnChange(fn func(event, name string)) {
	s.notify = fn
}

// MoveResult reports what a Move or Promote actually did.
type MoveResult struct {
	Node         string   `json:"node"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	UnlinkedFrom []string `json:"unlinked_from,omitempty"`
	Relocated    bool     `json:"relocated"`
	Relinked     bool     `json:"relinked"`
	Changed      bool     `json:"changed"`
}

// PruneReport aggregates a vault-wide reference prune.
type PruneReport struct {
	Removed []string `json:"removed"`
	Scanned int      `json:"scanned"`
	Changed int      `json:"changed"`
	Failed  int      `json:"failed"`
}

// Summary is one container plus its child-reference count.
type Summary struct {
	models.Container
	Children int `json:"children"`
}

// Attrs are the optional frontmatter attributes for a new container.
type Attrs struct {
	Type       string
	LightColor string
	DarkColor  string
}

// ListAll returns every container the index knows about, in stable path
// order.
func (s *Service) ListAll(_ context.Context) ([]models.Container, error) {
	rows, err := s.db.Containers()
	if err != nil {
		return nil, err
	}
	out := make([]models.Container, 0, len(rows))
	for _, r := range rows {
		out = append(out, containerFromRow(r))
	}
	return out, nil
}

// Summaries returns all containers with their child counts.
func (s *Service) Summaries(ctx context.Context) ([]Summary, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(all))
	for _, c := range all {
		targets, err := s.db.ContainerTargets(c.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{Container: c, Children: len(targets)})
	}
	return out, nil
}

// Resolve finds a container by name. With duplicate names the first in path
// order wins, matching the enumeration order of ListAll.
func (s *Service) Resolve(ctx context.Context, name string) (*models.Container, error) {
	_, byName, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := byName[name]
	if !ok {
		return nil, notFound(name)
	}
	return &c, nil
}

// Children resolves the entries of name's Containers section to containers,
// in document order. Targets that do not resolve are skipped.
func (s *Service) Children(ctx context.Context, name string) ([]models.Container, error) {
	_, byName, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	node, ok := byName[name]
	if !ok {
		return nil, notFound(name)
	}
	targets, err := s.db.ContainerTargets(node.Path)
	if err != nil {
		return nil, err
	}
	out := make([]models.Container, 0, len(targets))
	for _, t := range targets {
		if c, ok := byName[path.Base(t)]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// DetectCycle reports whether re-parenting node under proposedParent would
// create a cycle: true when proposedParent is node itself or is reachable
// from node over container-typed references.
func (s *Service) DetectCycle(ctx context.Context, node, proposedParent string) (bool, error) {
	_, byName, err := s.snapshot(ctx)
	if err != nil {
		return false, err
	}
	n, ok := byName[node]
	if !ok {
		return false, notFound(node)
	}
	p, ok := byName[proposedParent]
	if !ok {
		return false, notFound(proposedParent)
	}
	return s.reachable(byName, n, p)
}

// Move re-parents node under newParent: every reference entry pointing at
// node is pruned, node's storage group is relocated beneath newParent's
// group, and an entry for node is added to newParent's Containers section.
// The returned error names the step that stopped the mutation; earlier steps
// stay applied.
func (s *Service) Move(ctx context.Context, node, newParent string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, byName, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := byName[node]
	if !ok {
		return nil, notFound(node)
	}
	p, ok := byName[newParent]
	if !ok {
		return nil, notFound(newParent)
	}
	if err := needsGroup(n); err != nil {
		return nil, err
	}
	if err := needsGroup(p); err != nil {
		return nil, err
	}

	cycle, err := s.reachable(byName, n, p)
	if err != nil {
		return nil, stepErr(stepValidate, err)
	}
	// A parent group physically nested inside the node is an ancestry cycle
	// even when the reference entry linking them is missing.
	if !cycle && strings.HasPrefix(p.Group+"/", n.Group+"/") {
		cycle = true
	}
	if cycle {
		return nil, &apperr.CycleError{Node: n.Name, Parent: p.Name}
	}

	res := &MoveResult{
		Node: n.Name,
		From: n.Group,
		To:   path.Join(p.Group, path.Base(n.Group)),
	}

	// The new parent is skipped: the relink step owns the parent's entry
	// and leaves an already-linked parent untouched.
	res.UnlinkedFrom, err = s.unlink(n.Name, p.Path)
	if err != nil {
		return nil, stepErr(stepUnlink, err)
	}

	if res.To != res.From {
		if err := s.relocate(n.Group, res.To); err != nil {
			return nil, stepErr(stepRelocate, err)
		}
		res.Relocated = true
	}

	res.Relinked, err = s.ensureChildEntry(p.Path, n.Name)
	if err != nil {
		if res.Relocated {
			return nil, fmt.Errorf("hierarchy: %s: group relocated to %s but parent entry not updated: %w", stepRelink, res.To, err)
		}
		return nil, stepErr(stepRelink, err)
	}
	res.Changed = res.Relinked || res.Relocated || len(res.UnlinkedFrom) > 0

	s.logger.Info("container moved",
		slog.String("name", n.Name),
		slog.String("from", res.From),
		slog.String("to", res.To))
	s.emit("container.moved", n.Name)
	return res, nil
}

// Promote relocates node's storage group to the vault root and prunes every
// reference entry pointing at it. No parent entry is added afterwards.
func (s *Service) Promote(ctx context.Context, node string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, byName, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := byName[node]
	if !ok {
		return nil, notFound(node)
	}
	if err := needsGroup(n); err != nil {
		return nil, err
	}

	res := &MoveResult{
		Node: n.Name,
		From: n.Group,
		To:   path.Base(n.Group),
	}

	res.UnlinkedFrom, err = s.unlink(n.Name, "")
	if err != nil {
		return nil, stepErr(stepUnlink, err)
	}

	if res.To != res.From {
		if err := s.relocate(n.Group, res.To); err != nil {
			return nil, stepErr(stepRelocate, err)
		}
		res.Relocated = true
	}
	res.Changed = res.Relocated || len(res.UnlinkedFrom) > 0

	s.logger.Info("container promoted",
		slog.String("name", n.Name),
		slog.String("from", res.From))
	s.emit("container.promoted", n.Name)
	return res, nil
}

// Create makes a new container: a storage group, a seeded folder note and,
// when parent is given, an entry in the parent's Containers section. Names
// must be unique across the vault because entries reference containers by
// name alone.
func (s *Service) Create(ctx context.Context, name, parent string, attrs Attrs) (*models.Container, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, byName, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := byName[name]; exists {
		return nil, fmt.Errorf("hierarchy: container %q: %w", name, apperr.ErrAlreadyExists)
	}

	group := name
	parentDoc := ""
	if parent != "" {
		p, ok := byName[parent]
		if !ok {
			return nil, notFound(parent)
		}
		if err := needsGroup(p); err != nil {
			return nil, err
		}
		group = path.Join(p.Group, name)
		parentDoc = p.Path
	}

	docPath := path.Join(group, name+".md")
	seed := seedDocument(name, attrs)
	if err := s.store.Create(docPath, []byte(seed)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("hierarchy: container %q: %w", name, apperr.ErrAlreadyExists)
		}
		return nil, stepErr(stepCreate, err)
	}
	if err := index.IndexFile(s.db, docPath, []byte(seed)); err != nil {
		s.logger.Warn("hierarchy: index new container",
			slog.String("path", docPath),
			slog.String("error", err.Error()))
	}

	if parentDoc != "" {
		if _, err := s.ensureChildEntry(parentDoc, name); err != nil {
			return nil, fmt.Errorf("hierarchy: %s: container created at %s but parent entry not added: %w", stepRelink, docPath, err)
		}
	}

	c := models.Container{
		Path:       docPath,
		Name:       name,
		Group:      group,
		Type:       attrs.Type,
		LightColor: optional(attrs.LightColor),
		DarkColor:  optional(attrs.DarkColor),
	}
	s.logger.Info("container created",
		slog.String("name", name),
		slog.String("group", group))
	s.emit("container.created", name)
	return &c, nil
}

// Delete removes node's storage group with everything beneath it, then
// prunes references to node and to every removed descendant container from
// all remaining documents, one document at a time. Per-document prune
// failures are logged and counted, never abort the batch.
func (s *Service) Delete(ctx context.Context, node string) (*PruneReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, byName, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := byName[node]
	if !ok {
		return nil, notFound(node)
	}
	if err := needsGroup(n); err != nil {
		return nil, err
	}

	removed, err := s.descendantContainers(n)
	if err != nil {
		return nil, stepErr(stepValidate, err)
	}

	if err := s.store.DeleteTree(n.Group); err != nil {
		return nil, stepErr(stepDelete, err)
	}
	s.dropIndexTree(n.Group)

	report := s.pruneAll(removed)
	report.Removed = removed

	s.logger.Info("container deleted",
		slog.String("name", n.Name),
		slog.Int("pruned", report.Changed),
		slog.Int("failed", report.Failed))
	s.emit("container.deleted", n.Name)
	return report, nil
}

// OwnerOf returns the container owning docPath: the folder note of the
// nearest ancestor group that carries the container marker. A folder note is
// owned by the container above it, never by itself.
func (s *Service) OwnerOf(_ context.Context, docPath string) (*models.Container, error) {
	for dir := path.Dir(docPath); dir != "." && dir != "/"; dir = path.Dir(dir) {
		note := path.Join(dir, path.Base(dir)+".md")
		if note == docPath {
			continue
		}
		attrs, err := s.db.GetAttributes(note)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !attrs.Container {
			continue
		}
		row, err := s.db.GetDocument(note)
		if err != nil {
			return nil, err
		}
		c := containerFromRow(*row)
		return &c, nil
	}
	return nil, fmt.Errorf("hierarchy: owner of %q: %w", docPath, apperr.ErrNotFound)
}

// snapshot loads all containers plus a name lookup. With duplicate names the
// first in path order wins.
func (s *Service) snapshot(ctx context.Context) ([]models.Container, map[string]models.Container, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]models.Container, len(all))
	for _, c := range all {
		if _, dup := byName[c.Name]; !dup {
			byName[c.Name] = c
		}
	}
	return all, byName, nil
}

// reachable walks the reference graph breadth-first from start, following
// only targets that resolve to containers, and reports whether goal is
// reached. start counts as reached.
func (s *Service) reachable(byName map[string]models.Container, start, goal models.Container) (bool, error) {
	if start.Name == goal.Name {
		return true, nil
	}
	visited := map[string]bool{start.Name: true}
	queue := []models.Container{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		targets, err := s.db.ContainerTargets(cur.Path)
		if err != nil {
			return false, err
		}
		for _, t := range targets {
			child, ok := byName[path.Base(t)]
			if !ok || visited[child.Name] {
				continue
			}
			if child.Name == goal.Name {
				return true, nil
			}
			visited[child.Name] = true
			queue = append(queue, child)
		}
	}
	return false, nil
}

// unlink prunes name's entry from every container referencing it, except
// skip, one document at a time in stable path order. It returns the paths
// that changed.
func (s *Service) unlink(name, skip string) ([]string, error) {
	sources, err := s.db.ReferencingContainers(name)
	if err != nil {
		return nil, err
	}
	var changed []string
	for _, src := range sources {
		if src == skip {
			continue
		}
		text, err := s.readText(src)
		if err != nil {
			return nil, err
		}
		out, ok := section.PruneReferences(text, name)
		if !ok {
			continue
		}
		if err := s.saveIndexed(src, out); err != nil {
			return nil, err
		}
		changed = append(changed, src)
	}
	return changed, nil
}

// relocate renames the storage group, then reconciles the index with the new
// paths. Index failures after a successful rename are logged, not fatal: the
// next sync repairs them.
func (s *Service) relocate(from, to string) error {
	if err := s.store.Rename(from, to); err != nil {
		return err
	}
	s.dropIndexTree(from)
	s.indexTree(to)
	return nil
}

// ensureChildEntry rewrites parentDoc so that its Containers section lists
// child exactly once, reporting whether the document changed. A parent
// already listing child once is left untouched, which keeps repeated moves
// to the same parent byte-level no-ops.
func (s *Service) ensureChildEntry(parentDoc, child string) (bool, error) {
	text, err := s.readText(parentDoc)
	if err != nil {
		return false, err
	}
	switch n := containerEntryCount(text, child); {
	case n == 1:
		return false, nil
	case n > 1:
		text, _ = section.PruneReferences(text, child)
	}
	out, err := section.AddEntry(text, section.Containers, child)
	if err != nil {
		return false, err
	}
	if out == text {
		return false, nil
	}
	return true, s.saveIndexed(parentDoc, out)
}

// containerEntryCount counts the entry lines naming child inside text's
// Containers section.
func containerEntryCount(text, child string) int {
	doc := section.Parse(text)
	span, ok := doc.Span(section.Containers)
	if !ok {
		return 0
	}
	n := 0
	for i := span.Start + 1; i < span.End; i++ {
		if t, ok := section.EntryTarget(doc.Lines[i]); ok && t == child {
			n++
		}
	}
	return n
}

// descendantContainers walks node's storage group and returns the names of
// node and every container nested beneath it, parents before children.
func (s *Service) descendantContainers(n models.Container) ([]string, error) {
	names := []string{n.Name}
	var walk func(group string) error
	walk = func(group string) error {
		kids, err := s.store.ListChildren(group)
		if err != nil {
			return err
		}
		for _, k := range kids {
			if !k.IsGroup {
				continue
			}
			note := path.Join(k.Path, k.Name+".md")
			attrs, err := s.db.GetAttributes(note)
			if err == nil && attrs.Container {
				names = append(names, k.Name)
			}
			if err := walk(k.Path); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(n.Group); err != nil {
		return nil, err
	}
	return names, nil
}

// dropIndexTree deletes the index rows of every document under group.
func (s *Service) dropIndexTree(group string) {
	paths, err := s.db.AllPaths()
	if err != nil {
		s.logger.Warn("hierarchy: list index paths", slog.String("error", err.Error()))
		return
	}
	prefix := group + "/"
	for p := range paths {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		if err := s.db.DeleteDocument(p); err != nil {
			s.logger.Warn("hierarchy: drop stale index row",
				slog.String("path", p),
				slog.String("error", err.Error()))
		}
	}
}

// indexTree indexes every document under group, warning and continuing on
// per-file failures.
func (s *Service) indexTree(group string) {
	metas, err := s.store.List(group)
	if err != nil {
		s.logger.Warn("hierarchy: list relocated group",
			slog.String("group", group),
			slog.String("error", err.Error()))
		return
	}
	for _, m := range metas {
		data, err := s.store.Read(m.Path)
		if err != nil {
			s.logger.Warn("hierarchy: read relocated document",
				slog.String("path", m.Path),
				slog.String("error", err.Error()))
			continue
		}
		if err := index.IndexFile(s.db, m.Path, data); err != nil {
			s.logger.Warn("hierarchy: index relocated document",
				slog.String("path", m.Path),
				slog.String("error", err.Error()))
		}
	}
}

// pruneAll removes reference entries naming any of removed from every vault
// document, sequentially in path order.
func (s *Service) pruneAll(removed []string) *PruneReport {
	report := &PruneReport{}
	metas, err := s.store.List("")
	if err != nil {
		s.logger.Warn("hierarchy: prune scan", slog.String("error", err.Error()))
		report.Failed++
		return report
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Path < metas[j].Path })

	for _, m := range metas {
		report.Scanned++
		text, err := s.readText(m.Path)
		if err != nil {
			s.logger.Warn("hierarchy: prune read",
				slog.String("path", m.Path),
				slog.String("error", err.Error()))
			report.Failed++
			continue
		}
		changed := false
		for _, name := range removed {
			if out, ok := section.PruneReferences(text, name); ok {
				text = out
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := s.saveIndexed(m.Path, text); err != nil {
			s.logger.Warn("hierarchy: prune write",
				slog.String("path", m.Path),
				slog.String("error", err.Error()))
			report.Failed++
			continue
		}
		report.Changed++
	}
	return report
}

func (s *Service) readText(p string) (string, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// saveIndexed writes a document and immediately reindexes it, so later steps
// of the same mutation see fresh link rows.
func (s *Service) saveIndexed(p, text string) error {
	data := []byte(text)
	if err := s.store.Write(p, data); err != nil {
		return err
	}
	return index.IndexFile(s.db, p, data)
}

func (s *Service) emit(event, name string) {
	if s.notify != nil {
		s.notify(event, name)
	}
}

// containerFromRow derives the container identity from an index row. A
// container owns the group it is the folder note of; a container document
// that is not a folder note has no group and cannot be relocated.
func containerFromRow(r index.DocumentRow) models.Container {
	name := strings.TrimSuffix(path.Base(r.Path), ".md")
	c := models.Container{
		Path:       r.Path,
		Name:       name,
		Type:       r.Type,
		LightColor: r.LightColor,
		DarkColor:  r.DarkColor,
	}
	if dir := path.Dir(r.Path); dir != "." && path.Base(dir) == name {
		c.Group = dir
	}
	return c
}

func validateName(name string) error {
	err := validation.Validate(name,
		validation.Required.Error("must not be empty"),
		validation.RuneLength(1, maxNameLength),
		validation.By(func(interface{}) error {
			switch {
			case strings.ContainsAny(name, reservedNameChars):
				return errors.New("contains reserved characters")
			case strings.TrimSpace(name) != name:
				return errors.New("must not have leading or trailing whitespace")
			case strings.HasPrefix(name, "."):
				return errors.New("must not start with a dot")
			}
			return nil
		}),
	)
	if err != nil {
		return &apperr.ValidationError{Field: "name", Reason: err.Error()}
	}
	return nil
}

// seedDocument renders the initial folder note: the container marker and any
// colors in frontmatter, then a title heading. Managed sections appear later,
// created on demand by the first entry added to them.
func seedDocument(name string, attrs Attrs) string {
	var b strings.Builder
	b.WriteString(section.FrontmatterDelim + "\n")
	b.WriteString("container: true\n")
	if attrs.Type != "" {
		fmt.Fprintf(&b, "type: %s\n", attrs.Type)
	}
	if attrs.LightColor != "" {
		fmt.Fprintf(&b, "color-light: %q\n", attrs.LightColor)
	}
	if attrs.DarkColor != "" {
		fmt.Fprintf(&b, "color-dark: %q\n", attrs.DarkColor)
	}
	b.WriteString(section.FrontmatterDelim + "\n\n# " + name + "\n")
	return b.String()
}

func needsGroup(c models.Container) error {
	if c.Group == "" {
		return &apperr.StructureError{
			Path:   c.Path,
			Reason: "container is not a folder note and owns no storage group",
		}
	}
	return nil
}

func notFound(name string) error {
	return fmt.Errorf("hierarchy: container %q: %w", name, apperr.ErrNotFound)
}

func stepErr(step string, err error) error {
	return fmt.Errorf("hierarchy: %s: %w", step, err)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
