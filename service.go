package schemadoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tordrt/schemadoc/internal/ddl"
	"github.com/tordrt/schemadoc/internal/diff"
	"github.com/tordrt/schemadoc/internal/parser"
	"github.com/tordrt/schemadoc/internal/schema"
	"github.com/tordrt/schemadoc/internal/store"
)

// Service runs the parse, diff and generate pipeline over versions kept in
// a store. It is safe for concurrent use.
type Service struct {
	store  *store.Store
	logger *slog.Logger

	// commitMu orders commits so each delta is computed against the
	// version it follows.
	commitMu sync.Mutex
}

// NewService creates a Service. A nil logger discards output.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: st, logger: logger}
}

// Store returns the underlying version store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Comparison is the result of comparing two snapshots of a project.
type Comparison struct {
	Project string      `json:"project" yaml:"project"`
	From    string      `json:"from" yaml:"from"`
	To      string      `json:"to" yaml:"to"`
	Delta   *diff.Delta `json:"delta" yaml:"delta"`

	Before *schema.Model `json:"-" yaml:"-"`
	After  *schema.Model `json:"-" yaml:"-"`
}

// Label describes the compared range, e.g. "v1 -> draft".
func (c *Comparison) Label() string {
	return c.From + " -> " + c.To
}

type snapshot struct {
	label   string
	content string
}

var emptySnapshot = snapshot{label: "empty"}

// resolve picks the before and after text for a comparison.
//
// to == 0 selects the draft, or the latest version when there is no draft.
// from == 0 selects the version preceding the after side, or the empty
// schema when there is none.
func (s *Service) resolve(ctx context.Context, project string, from, to int) (snapshot, snapshot, error) {
	if from < 0 || to < 0 {
		return snapshot{}, snapshot{}, fmt.Errorf("version numbers must be positive")
	}

	var (
		after    snapshot
		afterNum int
	)
	if to > 0 {
		v, err := s.store.Version(ctx, project, to)
		if err != nil {
			return snapshot{}, snapshot{}, err
		}
		after = snapshot{label: fmt.Sprintf("v%d", v.Number), content: v.Content}
		afterNum = v.Number
	} else {
		latestNum := 0
		latest, err := s.store.Latest(ctx, project)
		switch {
		case err == nil:
			latestNum = latest.Number
		case !errors.Is(err, store.ErrNotFound):
			return snapshot{}, snapshot{}, err
		}

		draft, err := s.store.Draft(ctx, project)
		switch {
		case err == nil:
			after = snapshot{label: "draft", content: draft.Content}
			afterNum = latestNum + 1
		case !errors.Is(err, store.ErrNotFound):
			return snapshot{}, snapshot{}, err
		case latest == nil:
			return snapshot{}, snapshot{}, fmt.Errorf("project %q has no draft or version: %w", project, store.ErrNotFound)
		default:
			after = snapshot{label: fmt.Sprintf("v%d", latest.Number), content: latest.Content}
			afterNum = latest.Number
		}
	}

	if from == 0 {
		from = afterNum - 1
	}
	if from == 0 {
		return emptySnapshot, after, nil
	}

	v, err := s.store.Version(ctx, project, from)
	if err != nil {
		return snapshot{}, snapshot{}, err
	}
	return snapshot{label: fmt.Sprintf("v%d", v.Number), content: v.Content}, after, nil
}

// Compare parses and diffs two snapshots of project. See resolve for how
// zero version numbers are interpreted.
func (s *Service) Compare(ctx context.Context, project string, from, to int) (*Comparison, error) {
	before, after, err := s.resolve(ctx, project, from, to)
	if err != nil {
		return nil, err
	}

	p := parser.New(s.logger)
	bm, err := p.Parse(before.content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", before.label, err)
	}
	am, err := p.Parse(after.content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", after.label, err)
	}

	delta, err := diff.Diff(bm, am)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("compared schema versions",
		"project", project,
		"from", before.label,
		"to", after.label,
		"tables", len(delta.Tables),
	)

	return &Comparison{
		Project: project,
		From:    before.label,
		To:      after.label,
		Delta:   delta,
		Before:  bm,
		After:   am,
	}, nil
}

// CommitResult is the outcome of CommitVersion.
type CommitResult struct {
	Version *store.Version `json:"version" yaml:"version"`
	Delta   *diff.Delta    `json:"delta,omitempty" yaml:"delta,omitempty"`
	// Unchanged is set when content matched the latest version and nothing
	// was committed. Version is then the latest version.
	Unchanged bool `json:"unchanged" yaml:"unchanged"`
}

// CommitVersion records content as the next version of project together
// with the delta from the previous version.
//
// Content that does not parse is still committed, without a delta, so
// documentation problems never block versioning.
func (s *Service) CommitVersion(ctx context.Context, project, content string) (*CommitResult, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	for attempt := 1; ; attempt++ {
		res, err := s.commitVersion(ctx, project, content)
		if errors.Is(err, store.ErrConflict) && attempt < maxCommitAttempts {
			s.logger.Warn("version conflict, retrying commit", "project", project, "attempt", attempt, "error", err)
			continue
		}
		return res, err
	}
}

// maxCommitAttempts bounds retries when another process commits to the same
// store between reading the latest version and writing the next one.
const maxCommitAttempts = 3

func (s *Service) commitVersion(ctx context.Context, project, content string) (*CommitResult, error) {
	prev, parent := "", 0
	latest, err := s.store.Latest(ctx, project)
	switch {
	case err == nil:
		if latest.Hash == store.Hash(content) {
			s.logger.Info("schema unchanged, skipping commit", "project", project, "version", latest.Number)
			return &CommitResult{Version: latest, Unchanged: true}, nil
		}
		prev, parent = latest.Content, latest.Number
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	delta, err := Diff(prev, content)
	var encoded []byte
	if err != nil {
		s.logger.Warn("committing version without delta", "project", project, "error", err)
		delta = nil
	} else if encoded, err = json.Marshal(delta); err != nil {
		return nil, fmt.Errorf("failed to encode delta: %w", err)
	}

	v, err := s.store.Commit(ctx, project, content, encoded, parent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("committed schema version", "project", project, "version", v.Number, "hash", v.Hash)
	return &CommitResult{Version: v, Delta: delta}, nil
}

// VersionDDL renders the DDL that migrates project from one version to
// another. When only to is given and that version has a stored delta, the
// stored delta is used instead of re-diffing.
func (s *Service) VersionDDL(ctx context.Context, project string, from, to int, dialect ddl.DialectID) (string, error) {
	if _, err := ddl.Lookup(dialect); err != nil {
		return "", err
	}

	if from == 0 && to > 0 {
		v, err := s.store.Version(ctx, project, to)
		if err != nil {
			return "", err
		}
		if len(v.Delta) > 0 {
			delta, err := diff.Decode(v.Delta)
			if err != nil {
				return "", fmt.Errorf("failed to decode stored delta of v%d: %w", v.Number, err)
			}
			label := fmt.Sprintf("empty -> v%d", v.Number)
			if v.Number > 1 {
				label = fmt.Sprintf("v%d -> v%d", v.Number-1, v.Number)
			}
			return s.generator(label).Generate(delta, dialect)
		}
	}

	cmp, err := s.Compare(ctx, project, from, to)
	if err != nil {
		return "", err
	}
	return s.generator(cmp.Label()).Generate(cmp.Delta, dialect)
}

func (s *Service) generator(label string) *ddl.Generator {
	return ddl.New(ddl.Options{Logger: s.logger, Label: label})
}
