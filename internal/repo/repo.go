// Package repo owns the on-disk record collection. Every read-oriented
// operation re-scans the directory: the collection is small and
// infrequently mutated, so freshness and crash-simplicity win over
// caching.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/config"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/render"
)

// defaultAmbiguityFactor is how much better the top fuzzy match must
// score than the runner-up before it is accepted without asking.
const defaultAmbiguityFactor = 2.0

// Repository provides list/get/find/create/update and relationship
// operations over one collection directory.
type Repository struct {
	dir       string
	mode      config.Mode
	engine    *render.Engine
	ambiguity float64
}

// Option configures a Repository.
type Option func(*Repository)

// WithAmbiguityFactor overrides the fuzzy-match score gap required for
// an unambiguous result.
func WithAmbiguityFactor(f float64) Option {
	return func(r *Repository) {
		if f > 0 {
			r.ambiguity = f
		}
	}
}

// WithEngine replaces the render engine, e.g. one carrying a custom
// template.
func WithEngine(e *render.Engine) Option {
	return func(r *Repository) { r.engine = e }
}

// Open returns a repository over the resolved collection. The directory
// is not required to exist yet; read operations fail if it is missing.
func Open(res *config.Resolved, opts ...Option) *Repository {
	r := &Repository{
		dir:       res.Path(),
		mode:      res.Mode,
		engine:    render.New(),
		ambiguity: defaultAmbiguityFactor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init creates the collection directory, persists the settings at root,
// and seeds the initial record. It fails if the directory already
// exists.
func Init(root string, s config.Settings) (*Repository, error) {
	dir := s.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("repo: collection directory %s: %w", dir, apperr.ErrExists)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("repo: create collection dir: %w", err)
	}
	if err := config.Save(root, s); err != nil {
		return nil, err
	}

	r := Open(&config.Resolved{Settings: s, Root: root, Source: config.SourceProjectFile})

	seed := models.New(1, "Record architecture decisions")
	seed.Status = models.StatusAccepted
	seed.Context = "We need to record the architectural decisions made on this project."
	seed.Decision = "We will use Architecture Decision Records, as described by Michael Nygard " +
		"in his article \"Documenting Architecture Decisions\"."
	seed.Consequences = "See Michael Nygard's article, linked above. For a lightweight ADR toolset, " +
		"see Nat Pryce's adr-tools."
	if _, err := r.Create(seed); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the absolute collection directory.
func (r *Repository) Dir() string { return r.dir }

// Mode returns the serialization mode records are written in.
func (r *Repository) Mode() config.Mode { return r.mode }

// List enumerates the collection sorted ascending by number. Files that
// fail to parse are silently excluded: one corrupt document must never
// block access to the rest.
func (r *Repository) List() ([]*models.Record, error) {
	recs, _, err := r.ListDetailed()
	return recs, err
}

// ListDetailed is List plus the number of files that were skipped
// because they did not parse. The doctor reports that count.
func (r *Repository) ListDetailed() ([]*models.Record, int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, 0, fmt.Errorf("repo: list %s: %w", r.dir, err)
	}

	var recs []*models.Record
	skipped := 0
	for _, e := range entries {
		if e.IsDir() || !isRecordName(e.Name()) {
			continue
		}
		rec, err := parser.ParseFile(filepath.Join(r.dir, e.Name()))
		if err != nil {
			skipped++
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Number < recs[j].Number })
	return recs, skipped, nil
}

// NextNumber returns the highest record number plus one, or 1 for an
// empty collection.
func (r *Repository) NextNumber() (int, error) {
	recs, err := r.List()
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 1, nil
	}
	return recs[len(recs)-1].Number + 1, nil
}

// Get returns the record with the given number.
func (r *Repository) Get(number int) (*models.Record, error) {
	recs, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.Number == number {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("repo: record %d: %w", number, apperr.ErrNotFound)
}

// AmbiguousError reports a fuzzy query without a clear winner. It
// carries up to five candidate titles ranked by match score.
type AmbiguousError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("repo: %q matches several records: %s",
		e.Query, strings.Join(e.Candidates, "; "))
}

// Unwrap lets callers match with errors.Is(err, apperr.ErrAmbiguous).
func (e *AmbiguousError) Unwrap() error { return apperr.ErrAmbiguous }

// Find resolves a query to a record. Integer queries go straight to Get
// without touching the matcher; everything else fuzzy-matches against
// titles and must beat the runner-up by the ambiguity factor.
func (r *Repository) Find(query string) (*models.Record, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(query)); err == nil {
		return r.Get(n)
	}

	recs, err := r.List()
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(recs))
	for i, rec := range recs {
		titles[i] = rec.Title
	}

	matches := fuzzy.Find(query, titles)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("repo: no record matching %q: %w", query, apperr.ErrNotFound)
	case 1:
		return recs[matches[0].Index], nil
	}

	if float64(matches[0].Score) > float64(matches[1].Score)*r.ambiguity {
		return recs[matches[0].Index], nil
	}
	n := len(matches)
	if n > 5 {
		n = 5
	}
	cands := make([]string, n)
	for i := 0; i < n; i++ {
		cands[i] = recs[matches[i].Index].Title
	}
	return nil, &AmbiguousError{Query: query, Candidates: cands}
}

// Create renders and writes a new record file named by the canonical
// filename. An existing file of the same name is overwritten:
// last-write-wins is the accepted policy.
func (r *Repository) Create(rec *models.Record) (string, error) {
	path := filepath.Join(r.dir, rec.Filename())
	if err := r.write(rec, path); err != nil {
		return "", err
	}
	rec.Path = path
	return path, nil
}

// Update re-renders a record to its backing file, deriving a path when
// the record has none.
func (r *Repository) Update(rec *models.Record) (string, error) {
	path := rec.Path
	if path == "" {
		path = filepath.Join(r.dir, rec.Filename())
	}
	if err := r.write(rec, path); err != nil {
		return "", err
	}
	rec.Path = path
	return path, nil
}

// NewRecord allocates the next number and creates a record with the
// given title.
func (r *Repository) NewRecord(title string) (*models.Record, string, error) {
	n, err := r.NextNumber()
	if err != nil {
		return nil, "", err
	}
	rec := models.New(n, title)
	path, err := r.Create(rec)
	if err != nil {
		return nil, "", err
	}
	return rec, path, nil
}

// Supersede creates a new record replacing an existing one: the new
// record gets a Supersedes link, the old one is marked Superseded with
// a SupersededBy link back. The target is loaded before anything is
// written, so a missing target leaves the collection untouched.
func (r *Repository) Supersede(title string, superseded int) (*models.Record, string, error) {
	n, err := r.NextNumber()
	if err != nil {
		return nil, "", err
	}
	old, err := r.Get(superseded)
	if err != nil {
		return nil, "", err
	}

	rec := models.New(n, title)
	rec.AddLink(models.Link{Target: superseded, Kind: models.KindSupersedes})

	old.Status = models.StatusSuperseded
	old.AddLink(models.Link{Target: n, Kind: models.KindSupersededBy})

	if _, err := r.Update(old); err != nil {
		return nil, "", err
	}
	path, err := r.Create(rec)
	if err != nil {
		return nil, "", err
	}
	return rec, path, nil
}

// SetStatus updates a record's status. When the new status is
// Superseded and supersededBy is non-zero, the superseding record must
// exist and a SupersededBy link is appended unless an identical one is
// already present.
func (r *Repository) SetStatus(number int, status models.Status, supersededBy int) error {
	rec, err := r.Get(number)
	if err != nil {
		return err
	}
	if status == models.StatusSuperseded && supersededBy > 0 {
		if _, err := r.Get(supersededBy); err != nil {
			return err
		}
		if !rec.HasLink(supersededBy, models.KindSupersededBy) {
			rec.AddLink(models.Link{Target: supersededBy, Kind: models.KindSupersededBy})
		}
	}
	rec.Status = status
	_, err = r.Update(rec)
	return err
}

// Link appends a link on each side of a record pair. Repeated calls
// append repeated links; deduplication is a doctor concern.
func (r *Repository) Link(source, target int, sourceKind, targetKind models.LinkKind) error {
	src, err := r.Get(source)
	if err != nil {
		return err
	}
	dst, err := r.Get(target)
	if err != nil {
		return err
	}

	src.AddLink(models.Link{Target: target, Kind: sourceKind})
	dst.AddLink(models.Link{Target: source, Kind: targetKind})

	if _, err := r.Update(src); err != nil {
		return err
	}
	_, err = r.Update(dst)
	return err
}

func (r *Repository) write(rec *models.Record, path string) error {
	content, err := r.engine.Render(rec, r.mode == config.ModeStructured)
	if err != nil {
		return err
	}
	return atomicWrite(path, []byte(content))
}
