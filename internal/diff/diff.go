// Package diff computes the structural delta between two schema models.
//
// Tables and columns are identified by name only. A renamed table shows up
// as one removed and one added table; no similarity matching is attempted.
package diff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// ChangeType classifies a table or column change.
type ChangeType string

const (
	Added    ChangeType = "ADDED"
	Removed  ChangeType = "REMOVED"
	Modified ChangeType = "MODIFIED"
)

// Delta is the ordered set of table changes between two models.
type Delta struct {
	Tables []TableDiff
}

// TableDiff describes one changed table. Table is set for added tables and
// Columns is always empty for removed ones.
type TableDiff struct {
	Name    string
	Type    ChangeType
	Columns []ColumnDiff
	Table   *schema.Table
}

// ColumnDiff describes one changed column.
type ColumnDiff struct {
	Name              string         `json:"columnName" yaml:"columnName"`
	Type              ChangeType     `json:"diffType" yaml:"diffType"`
	BeforeType        string         `json:"beforeType,omitempty" yaml:"beforeType,omitempty"`
	CurrentType       string         `json:"currentType,omitempty" yaml:"currentType,omitempty"`
	BeforeValue       *schema.Column `json:"beforeValue,omitempty" yaml:"beforeValue,omitempty"`
	CurrentValue      *schema.Column `json:"currentValue,omitempty" yaml:"currentValue,omitempty"`
	ChangedProperties []string       `json:"changedProperties,omitempty" yaml:"changedProperties,omitempty"`
}

// DiffError wraps a failure raised while comparing two models.
type DiffError struct {
	Table string
	Err   error
}

func (e *DiffError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("failed to diff table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("failed to diff schemas: %v", e.Err)
}

func (e *DiffError) Unwrap() error {
	return e.Err
}

// IsEmpty reports whether the delta has no changes.
func (d *Delta) IsEmpty() bool {
	return d == nil || len(d.Tables) == 0
}

// Added returns the added tables in order.
func (d *Delta) Added() []TableDiff { return d.ofType(Added) }

// Removed returns the removed tables in order.
func (d *Delta) Removed() []TableDiff { return d.ofType(Removed) }

// Modified returns the modified tables in order.
func (d *Delta) Modified() []TableDiff { return d.ofType(Modified) }

func (d *Delta) ofType(t ChangeType) []TableDiff {
	if d == nil {
		return nil
	}
	var out []TableDiff
	for _, td := range d.Tables {
		if td.Type == t {
			out = append(out, td)
		}
	}
	return out
}

// ColumnsOfType returns the column diffs with the given change type.
func (td TableDiff) ColumnsOfType(t ChangeType) []ColumnDiff {
	var out []ColumnDiff
	for _, cd := range td.Columns {
		if cd.Type == t {
			out = append(out, cd)
		}
	}
	return out
}

// Diff compares two models. Nil models are treated as empty. Neither input
// is modified.
func Diff(before, after *schema.Model) (delta *Delta, err error) {
	var current string
	defer func() {
		if r := recover(); r != nil {
			delta = nil
			err = &DiffError{Table: current, Err: fmt.Errorf("%v", r)}
		}
	}()

	if before == nil {
		before = &schema.Model{}
	}
	if after == nil {
		after = &schema.Model{}
	}

	beforeTables := mapByName(before.Tables)
	afterTables := mapByName(after.Tables)

	delta = &Delta{}

	seen := make(map[string]bool)
	for _, t := range after.Tables {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		if _, ok := beforeTables[t.Name]; ok {
			continue
		}
		current = t.Name
		delta.Tables = append(delta.Tables, addedTable(afterTables[t.Name]))
	}

	clear(seen)
	for _, t := range before.Tables {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		if _, ok := afterTables[t.Name]; !ok {
			delta.Tables = append(delta.Tables, TableDiff{Name: t.Name, Type: Removed})
		}
	}

	var modified []TableDiff
	for name, at := range afterTables {
		bt, ok := beforeTables[name]
		if !ok || bt.Equal(at) {
			continue
		}
		current = name
		modified = append(modified, TableDiff{
			Name:    name,
			Type:    Modified,
			Columns: compareColumns(bt.Columns, at.Columns),
		})
	}
	slices.SortFunc(modified, func(a, b TableDiff) int { return strings.Compare(a.Name, b.Name) })
	delta.Tables = append(delta.Tables, modified...)

	return delta, nil
}

// mapByName indexes tables by name; later duplicates win.
func mapByName(tables []schema.Table) map[string]schema.Table {
	out := make(map[string]schema.Table, len(tables))
	for _, t := range tables {
		out[t.Name] = t
	}
	return out
}

func addedTable(t schema.Table) TableDiff {
	tbl := cloneTable(t)
	td := TableDiff{Name: t.Name, Type: Added, Table: &tbl}
	for _, c := range tbl.Columns {
		col := c
		td.Columns = append(td.Columns, ColumnDiff{
			Name:         c.Name,
			Type:         Added,
			CurrentType:  c.Type,
			CurrentValue: &col,
		})
	}
	return td
}

func compareColumns(before, after []schema.Column) []ColumnDiff {
	beforeCols := make(map[string]schema.Column, len(before))
	for _, c := range before {
		beforeCols[c.Name] = c
	}
	afterCols := make(map[string]schema.Column, len(after))
	for _, c := range after {
		afterCols[c.Name] = c
	}

	var diffs []ColumnDiff

	for _, c := range before {
		if _, ok := afterCols[c.Name]; ok {
			continue
		}
		col := c
		diffs = append(diffs, ColumnDiff{
			Name:        c.Name,
			Type:        Removed,
			BeforeType:  c.Type,
			BeforeValue: &col,
		})
	}

	for _, c := range after {
		col := c
		old, ok := beforeCols[c.Name]
		if !ok {
			diffs = append(diffs, ColumnDiff{
				Name:         c.Name,
				Type:         Added,
				CurrentType:  c.Type,
				CurrentValue: &col,
			})
			continue
		}
		if old.Equal(c) {
			continue
		}
		prev := old
		diffs = append(diffs, ColumnDiff{
			Name:              c.Name,
			Type:              Modified,
			BeforeType:        old.Type,
			CurrentType:       c.Type,
			BeforeValue:       &prev,
			CurrentValue:      &col,
			ChangedProperties: changedProperties(old, c),
		})
	}

	return diffs
}

// changedProperties names the decomposed fields that differ between two
// definitions of the same column.
func changedProperties(before, after schema.Column) []string {
	bs, berr := before.Spec()
	as, aerr := after.Spec()
	if berr != nil || aerr != nil {
		return []string{"definition"}
	}

	var props []string
	add := func(name string, changed bool) {
		if changed {
			props = append(props, name)
		}
	}

	add("dataType", !strings.EqualFold(bs.DataType, as.DataType))
	add("typeParam", bs.TypeParam != as.TypeParam)
	add("primaryKey", bs.PrimaryKey != as.PrimaryKey)
	add("unique", bs.Unique != as.Unique)
	add("notNull", bs.NotNull != as.NotNull)
	add("increment", bs.Increment != as.Increment)
	add("index", bs.Indexed != as.Indexed)
	add("default", !equalDefault(bs.Default, as.Default))
	add("note", bs.Note != as.Note)
	add("ref", !equalRef(bs.Ref, as.Ref))

	if len(props) == 0 {
		props = append(props, "definition")
	}
	return props
}

func equalDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalRef(a, b *schema.ColumnRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneTable(t schema.Table) schema.Table {
	out := t
	out.Columns = slices.Clone(t.Columns)
	out.Indexes = make([]schema.Index, len(t.Indexes))
	for i, idx := range t.Indexes {
		idx.Columns = slices.Clone(idx.Columns)
		out.Indexes[i] = idx
	}
	if len(t.Indexes) == 0 {
		out.Indexes = nil
	}
	return out
}
