package ddl

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DialectID identifies a target SQL dialect. The numeric values are part of
// the public contract.
type DialectID int

const (
	MySQL      DialectID = 1
	MariaDB    DialectID = 2
	PostgreSQL DialectID = 3
	Oracle     DialectID = 4
	SQLServer  DialectID = 5
)

func (id DialectID) String() string {
	if d, err := Lookup(id); err == nil {
		return d.Title
	}
	return "dialect(" + strconv.Itoa(int(id)) + ")"
}

// Dialect describes how one SQL syntax renders the shared DDL skeleton.
type Dialect struct {
	ID      DialectID
	Name    string // registry key, e.g. "postgresql"
	Title   string // display name, e.g. "PostgreSQL"
	Aliases []string

	// QuoteIdent quotes a single identifier segment.
	QuoteIdent func(name string) string
	// Terminator ends every statement.
	Terminator string
	// TableSuffix follows the closing parenthesis of CREATE TABLE.
	TableSuffix string
	// DropTable is the DROP TABLE prefix, with or without an existence guard.
	DropTable string

	Types    map[string]TypeRule
	Fallback string

	// Identity is emitted for increment columns.
	Identity string
	// SerialTypes replaces the translated type of increment columns instead
	// of appending Identity.
	SerialTypes map[string]string
	// BoolLiterals maps true/false defaults when the dialect lacks them.
	BoolLiterals map[string]string

	// InlineComment renders notes as a column COMMENT clause. Otherwise
	// CommentOn emits COMMENT ON statements.
	InlineComment bool
	CommentOn     bool
	// TableLevelForeignKeys moves column refs into FOREIGN KEY clauses.
	TableLevelForeignKeys bool

	// AddColumns renders the ADD block for a table.
	AddColumns func(d *Dialect, table string, cols []columnDef) []string
	// ModifyColumns renders the MODIFY block for a table.
	ModifyColumns func(d *Dialect, table string, cols []columnDef) []string
}

// Quote quotes a possibly schema-qualified name segment by segment.
func (d *Dialect) Quote(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// Statement terminates stmt with the dialect terminator.
func (d *Dialect) Statement(stmt string) string {
	return stmt + d.Terminator
}

// Dialect registry
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
	byID       = make(map[DialectID]*Dialect)
)

// Register adds a dialect to the registry under its name and aliases.
// Called by dialect files in their init() functions.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Name)] = d
	for _, a := range d.Aliases {
		dialects[strings.ToLower(a)] = d
	}
	byID[d.ID] = d
}

// Get returns a dialect by name or alias.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Lookup returns the dialect registered for id.
func Lookup(id DialectID) (*Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := byID[id]
	if !ok {
		return nil, &UnsupportedDialectError{Value: strconv.Itoa(int(id))}
	}
	return d, nil
}

// List returns all registered dialects ordered by ID.
func List() []*Dialect {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]*Dialect, 0, len(byID))
	for _, d := range byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ParseDialect resolves a dialect selector given as a number ("3") or a
// name/alias ("postgres").
func ParseDialect(s string) (DialectID, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if _, err := Lookup(DialectID(n)); err != nil {
			return 0, err
		}
		return DialectID(n), nil
	}
	if d, ok := Get(s); ok {
		return d.ID, nil
	}
	return 0, &UnsupportedDialectError{Value: s}
}
