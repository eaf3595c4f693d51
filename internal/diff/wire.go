package diff

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemadoc/internal/schema"
)

// document is the persisted form of a Delta. Versions store it and the DDL
// generator reads it back, so field names must not change.
type document struct {
	AddedTables   []schema.Table          `json:"addedTables" yaml:"addedTables"`
	RemovedTables []string                `json:"removedTables" yaml:"removedTables"`
	TableChanges  map[string][]ColumnDiff `json:"tableChanges" yaml:"tableChanges"`
}

func (d *Delta) toDocument() document {
	doc := document{
		AddedTables:   []schema.Table{},
		RemovedTables: []string{},
		TableChanges:  map[string][]ColumnDiff{},
	}
	if d == nil {
		return doc
	}

	for _, td := range d.Tables {
		switch td.Type {
		case Added:
			if td.Table != nil {
				doc.AddedTables = append(doc.AddedTables, *td.Table)
			} else {
				doc.AddedTables = append(doc.AddedTables, tableFromColumns(td))
			}
		case Removed:
			doc.RemovedTables = append(doc.RemovedTables, td.Name)
		case Modified:
			cols := td.Columns
			if cols == nil {
				cols = []ColumnDiff{}
			}
			doc.TableChanges[td.Name] = cols
		}
	}
	return doc
}

func (doc document) toDelta() (*Delta, error) {
	d := &Delta{}

	for _, t := range doc.AddedTables {
		if t.Name == "" {
			return nil, fmt.Errorf("added table without a name")
		}
		d.Tables = append(d.Tables, addedTable(t))
	}

	for _, name := range doc.RemovedTables {
		d.Tables = append(d.Tables, TableDiff{Name: name, Type: Removed})
	}

	names := make([]string, 0, len(doc.TableChanges))
	for name := range doc.TableChanges {
		names = append(names, name)
	}
	slices.SortFunc(names, strings.Compare)

	for _, name := range names {
		cols := doc.TableChanges[name]
		for _, c := range cols {
			switch c.Type {
			case Added, Removed, Modified:
			default:
				return nil, fmt.Errorf("table %s column %s: unknown change type %q", name, c.Name, c.Type)
			}
		}
		d.Tables = append(d.Tables, TableDiff{Name: name, Type: Modified, Columns: cols})
	}

	return d, nil
}

// tableFromColumns rebuilds a table definition for an added table that was
// constructed without one.
func tableFromColumns(td TableDiff) schema.Table {
	t := schema.Table{Name: td.Name}
	for _, c := range td.Columns {
		t.Columns = append(t.Columns, schema.Column{Name: c.Name, Type: c.CurrentType})
	}
	return t
}

// MarshalJSON implements json.Marshaler.
func (d *Delta) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.toDocument())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode delta: %w", err)
	}
	out, err := doc.toDelta()
	if err != nil {
		return fmt.Errorf("failed to decode delta: %w", err)
	}
	*d = *out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d *Delta) MarshalYAML() (interface{}, error) {
	return d.toDocument(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Delta) UnmarshalYAML(value *yaml.Node) error {
	var doc document
	if err := value.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode delta: %w", err)
	}
	out, err := doc.toDelta()
	if err != nil {
		return fmt.Errorf("failed to decode delta: %w", err)
	}
	*d = *out
	return nil
}

// Decode parses a persisted delta document. Empty input is an empty delta.
func Decode(data []byte) (*Delta, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return &Delta{}, nil
	}
	d := &Delta{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, err
	}
	return d, nil
}
