package db

import (
	"context"
	"regexp"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// Extractor reads the schema of a live database.
type Extractor interface {
	// ExtractSchema extracts the given tables, or every table when tables is
	// empty.
	ExtractSchema(ctx context.Context, tables []string) (*schema.Model, error)
}

// tableInfo is what every extractor reads from its catalog before it is
// turned into a schema table.
type tableInfo struct {
	Name        string
	Comment     string
	Columns     []columnInfo
	PrimaryKey  []string
	ForeignKeys []foreignKey
	Indexes     []indexInfo
}

type columnInfo struct {
	Name          string
	Type          string
	Nullable      bool
	Default       *string
	Unique        bool
	AutoIncrement bool
	Comment       string
}

type foreignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

type indexInfo struct {
	Name    string
	Unique  bool
	Method  string
	Columns []string
}

// buildModel converts extracted tables into a schema model whose column
// types carry schema-text attributes.
func buildModel(tables []tableInfo, enums []schema.Enum) *schema.Model {
	model := &schema.Model{Enums: enums}
	for _, t := range tables {
		model.Tables = append(model.Tables, t.toSchema())
	}
	return model
}

func (t tableInfo) toSchema() schema.Table {
	table := schema.Table{Name: t.Name, Note: t.Comment}

	singlePK := ""
	if len(t.PrimaryKey) == 1 {
		singlePK = t.PrimaryKey[0]
	} else if len(t.PrimaryKey) > 1 {
		idx := schema.Index{Primary: true}
		for _, c := range t.PrimaryKey {
			idx.Columns = append(idx.Columns, schema.IndexColumn{Name: c})
		}
		table.Indexes = append(table.Indexes, idx)
	}

	refs := make(map[string]foreignKey, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		if _, ok := refs[fk.Column]; !ok {
			refs[fk.Column] = fk
		}
	}

	for _, c := range t.Columns {
		var attrs []string
		pk := c.Name == singlePK
		if pk {
			attrs = append(attrs, "pk")
		}
		if c.AutoIncrement {
			attrs = append(attrs, "increment")
		}
		if !c.Nullable && !pk {
			attrs = append(attrs, "not null")
		}
		if c.Unique && !pk {
			attrs = append(attrs, "unique")
		}
		if c.Default != nil && !c.AutoIncrement {
			attrs = append(attrs, "default: "+formatDefault(*c.Default))
		}
		if c.Comment != "" {
			attrs = append(attrs, "note: "+quoteNote(c.Comment))
		}
		if fk, ok := refs[c.Name]; ok {
			attrs = append(attrs, "ref: > "+fk.RefTable+"."+fk.RefColumn)
		}

		typ := c.Type
		if len(attrs) > 0 {
			typ += " [" + strings.Join(attrs, ", ") + "]"
		}
		table.Columns = append(table.Columns, schema.Column{Name: c.Name, Type: typ})
	}

	for _, idx := range t.Indexes {
		// Single-column unique indexes are already expressed as attributes.
		if idx.Unique && len(idx.Columns) == 1 && t.columnUnique(idx.Columns[0]) {
			continue
		}
		si := schema.Index{Name: idx.Name, Unique: idx.Unique, Type: idx.Method}
		for _, c := range idx.Columns {
			si.Columns = append(si.Columns, schema.IndexColumn{Name: c})
		}
		table.Indexes = append(table.Indexes, si)
	}

	return table
}

func (t tableInfo) columnUnique(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Unique
		}
	}
	return false
}

var numeric = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// formatDefault renders a catalog default value as an attribute value.
// Literals stay literal, anything else becomes a backtick expression.
func formatDefault(raw string) string {
	v := strings.TrimSpace(raw)

	// 'abc'::character varying
	if strings.HasPrefix(v, "'") {
		if i := strings.LastIndex(v, "'::"); i > 0 {
			v = v[:i+1]
		}
	}
	// N'abc' (SQL Server)
	if strings.HasPrefix(v, "N'") {
		v = v[1:]
	}

	switch lv := strings.ToLower(v); {
	case len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'':
		inner := strings.ReplaceAll(v[1:len(v)-1], "''", `\'`)
		return "'" + inner + "'"
	case numeric.MatchString(v):
		return v
	case lv == "true" || lv == "false" || lv == "null":
		return lv
	default:
		return "`" + strings.ReplaceAll(v, "`", "") + "`"
	}
}

// quoteString wraps a raw string value as a single-quoted attribute value.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func quoteNote(s string) string {
	return quoteString(strings.ReplaceAll(s, "\n", " "))
}
