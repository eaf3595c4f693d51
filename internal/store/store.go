// Package store persists schema drafts and committed schema versions in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/zeebo/xxh3"
)

var (
	// ErrNotFound is returned when a draft or version does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Commit when another version was committed
	// after the one the caller built on.
	ErrConflict = errors.New("version conflict")
)

// Version is a committed schema snapshot.
type Version struct {
	ID      string `json:"id" yaml:"id"`
	Project string `json:"project" yaml:"project"`
	// Number increases by one per commit within a project, starting at 1.
	Number    int       `json:"number" yaml:"number"`
	Hash      string    `json:"hash" yaml:"hash"`
	Content   string    `json:"content,omitempty" yaml:"content,omitempty"`
	Delta     []byte    `json:"-" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Draft is the uncommitted working copy of a project's schema.
type Draft struct {
	Project   string    `json:"project" yaml:"project"`
	Content   string    `json:"content" yaml:"content"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Store is a SQLite-backed version store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the SQLite database at path. Use ":memory:" for an in-memory
// database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path)
	if path == ":memory:" {
		dsn = ":memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Hash returns the content hash recorded with a version.
func Hash(content string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(content))
}

func compress(content string) []byte {
	return snappy.Encode(nil, []byte(content))
}

func decompress(data []byte) (string, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return "", fmt.Errorf("failed to decompress content: %w", err)
	}
	return string(raw), nil
}

// SaveDraft stores content as the project's draft, replacing any previous
// draft.
func (s *Store) SaveDraft(ctx context.Context, project, content string) error {
	query, args, err := sq.Insert("drafts").
		Columns("project", "content", "updated_at").
		Values(project, compress(content), time.Now().UTC()).
		Suffix("ON CONFLICT (project) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build draft insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Draft returns the project's draft.
func (s *Store) Draft(ctx context.Context, project string) (*Draft, error) {
	query, args, err := sq.Select("project", "content", "updated_at").
		From("drafts").
		Where(sq.Eq{"project": project}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build draft query: %w", err)
	}

	var (
		d   Draft
		raw []byte
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&d.Project, &raw, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("draft for project %q: %w", project, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if d.Content, err = decompress(raw); err != nil {
		return nil, err
	}
	return &d, nil
}

// Commit records content as the next version of project. delta is the
// encoded change set from version parent, 0 meaning no previous version, and
// may be nil. Commit fails with ErrConflict unless parent is still the
// latest version.
func (s *Store) Commit(ctx context.Context, project, content string, delta []byte, parent int) (*Version, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sq.Select("COALESCE(MAX(number), 0)").
		From("versions").
		Where(sq.Eq{"project": project}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build version query: %w", err)
	}

	var last int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to get latest version number: %w", err)
	}
	if last != parent {
		return nil, fmt.Errorf("project %q is at v%d, expected v%d: %w", project, last, parent, ErrConflict)
	}

	v := &Version{
		ID:        uuid.New().String(),
		Project:   project,
		Number:    last + 1,
		Hash:      Hash(content),
		Content:   content,
		Delta:     delta,
		CreatedAt: time.Now().UTC(),
	}

	query, args, err = sq.Insert("versions").
		Columns("id", "project", "number", "hash", "content", "delta", "created_at").
		Values(v.ID, v.Project, v.Number, v.Hash, compress(content), delta, v.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build version insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("project %q v%d already exists: %w", project, v.Number, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit version: %w", err)
	}
	return v, nil
}

var versionColumns = []string{"id", "project", "number", "hash", "content", "delta", "created_at"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*Version, error) {
	var (
		v   Version
		raw []byte
	)
	if err := row.Scan(&v.ID, &v.Project, &v.Number, &v.Hash, &raw, &v.Delta, &v.CreatedAt); err != nil {
		return nil, err
	}
	content, err := decompress(raw)
	if err != nil {
		return nil, err
	}
	v.Content = content
	return &v, nil
}

func (s *Store) one(ctx context.Context, what string, b sq.SelectBuilder) (*Version, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build version query: %w", err)
	}

	v, err := scanVersion(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// Version returns version n of project.
func (s *Store) Version(ctx context.Context, project string, n int) (*Version, error) {
	b := sq.Select(versionColumns...).
		From("versions").
		Where(sq.Eq{"project": project, "number": n})
	return s.one(ctx, fmt.Sprintf("version %d of project %q", n, project), b)
}

// Latest returns the most recent version of project.
func (s *Store) Latest(ctx context.Context, project string) (*Version, error) {
	b := sq.Select(versionColumns...).
		From("versions").
		Where(sq.Eq{"project": project}).
		OrderBy("number DESC").
		Limit(1)
	return s.one(ctx, fmt.Sprintf("latest version of project %q", project), b)
}

// List returns every version of project in commit order.
func (s *Store) List(ctx context.Context, project string) ([]Version, error) {
	query, args, err := sq.Select(versionColumns...).
		From("versions").
		Where(sq.Eq{"project": project}).
		OrderBy("number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build version query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return out, nil
}

// Projects returns the names of all projects with a draft or a version.
func (s *Store) Projects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project FROM drafts UNION SELECT project FROM versions ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
