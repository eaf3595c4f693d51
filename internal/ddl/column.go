package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// vocabulary maps every accepted attribute key onto its constraint keyword.
var vocabulary = map[string]string{
	"pk":             "PRIMARY KEY",
	"primary key":    "PRIMARY KEY",
	"not null":       "NOT NULL",
	"not-null":       "NOT NULL",
	"null":           "NULL",
	"unique":         "UNIQUE",
	"default":        "DEFAULT",
	"index":          "INDEX",
	"ref":            "REFERENCES",
	"references":     "REFERENCES",
	"note":           "COMMENT",
	"comment":        "COMMENT",
	"increment":      "AUTO INCREMENT",
	"auto increment": "AUTO INCREMENT",
	"autoincrement":  "AUTO INCREMENT",
}

// Keyword normalizes an attribute key against the constraint vocabulary.
func Keyword(key string) (string, bool) {
	kw, ok := vocabulary[key]
	return kw, ok
}

// columnDef is a column translated for one dialect.
type columnDef struct {
	Name      string
	Quoted    string
	Type      string
	Identity  string
	Increment bool
	// WasIncrement is set on modified columns that were already
	// auto-incrementing before the change.
	WasIncrement bool
	NotNull      bool
	Null         bool
	PrimaryKey   bool
	Unique       bool
	Indexed      bool
	Default      string
	HasDefault   bool
	Comment      string
	Ref          *schema.ColumnRef
}

type renderMode int

const (
	modeCreate renderMode = iota
	modeAdd
	modeModify
)

// translateColumn decomposes col and maps it onto dialect d. Unknown
// attribute keys yield an UnknownKeywordError.
func translateColumn(d *Dialect, table string, col schema.Column) (columnDef, error) {
	spec, err := col.Spec()
	if err != nil {
		return columnDef{}, err
	}

	explicitNull := false
	for _, a := range spec.Attributes {
		kw, ok := Keyword(a.Key)
		if !ok {
			return columnDef{}, &UnknownKeywordError{Table: table, Column: col.Name, Keyword: a.Key}
		}
		if kw == "NULL" {
			explicitNull = true
		}
	}

	c := columnDef{
		Name:       col.Name,
		Quoted:     d.QuoteIdent(col.Name),
		Type:       d.TranslateType(spec.DataType, spec.TypeParam),
		NotNull:    spec.NotNull || spec.PrimaryKey,
		Null:       explicitNull && !spec.NotNull && !spec.PrimaryKey,
		PrimaryKey: spec.PrimaryKey,
		Unique:     spec.Unique,
		Indexed:    spec.Indexed,
		Comment:    spec.Note,
		Ref:        spec.Ref,
		Increment:  spec.Increment,
	}

	if spec.Increment {
		if serial, ok := d.SerialTypes[c.Type]; ok {
			c.Type = serial
		} else {
			c.Identity = d.Identity
		}
	}

	if spec.Default != nil {
		c.Default = d.renderDefault(*spec.Default, spec.DefaultQuote)
		c.HasDefault = true
	}

	return c, nil
}

// autoIncrementing reports whether a raw column type declares an
// auto-incrementing column, either by attribute or by a serial type.
func autoIncrementing(rawType string) bool {
	spec, err := schema.Column{Type: rawType}.Spec()
	if err != nil {
		return false
	}
	if spec.Increment {
		return true
	}
	switch strings.ToLower(spec.DataType) {
	case "serial", "bigserial", "smallserial":
		return true
	}
	return false
}

func (d *Dialect) renderDefault(v string, quote rune) string {
	switch quote {
	case '\'', '"':
		v = strings.ReplaceAll(v, `\`+string(quote), string(quote))
		return quoteString(v)
	case '`':
		return v
	}

	lv := strings.ToLower(v)
	if lit, ok := d.BoolLiterals[lv]; ok {
		return lit
	}
	if lv == "null" {
		return "NULL"
	}
	return v
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// line renders the column definition used inside CREATE TABLE and the ADD
// and MODIFY blocks.
func (d *Dialect) line(c columnDef, mode renderMode) string {
	parts := []string{c.Quoted, c.Type}

	if c.Identity != "" && (mode != modeModify || d.InlineComment) {
		parts = append(parts, c.Identity)
	}
	if c.HasDefault {
		parts = append(parts, "DEFAULT "+c.Default)
	}
	switch {
	case c.NotNull:
		parts = append(parts, "NOT NULL")
	case c.Null:
		parts = append(parts, "NULL")
	}

	if mode == modeAdd && c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if mode != modeModify {
		if c.Unique && !c.PrimaryKey {
			parts = append(parts, "UNIQUE")
		}
		if ref := d.inlineRef(c); ref != "" {
			parts = append(parts, ref)
		}
	}

	if d.InlineComment && c.Comment != "" {
		parts = append(parts, "COMMENT "+quoteString(c.Comment))
	}

	return strings.Join(parts, " ")
}

// referencing reports whether the column holds the foreign key side of its
// ref. "<" declares the inverse side, so no constraint lives on this column.
func referencing(c columnDef) bool {
	return c.Ref != nil && c.Ref.Cardinality != "<" && c.Ref.Cardinality != "<>"
}

func (d *Dialect) inlineRef(c columnDef) string {
	if d.TableLevelForeignKeys || !referencing(c) {
		return ""
	}
	return fmt.Sprintf("REFERENCES %s (%s)", d.Quote(c.Ref.Table), d.QuoteIdent(c.Ref.Column))
}

func (d *Dialect) foreignKey(c columnDef) string {
	return fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)", c.Quoted, d.Quote(c.Ref.Table), d.QuoteIdent(c.Ref.Column))
}

// commentStatements renders COMMENT ON statements for dialects without
// inline column comments.
func (d *Dialect) commentStatements(table string, cols []columnDef) []string {
	if !d.CommentOn {
		return nil
	}
	var out []string
	for _, c := range cols {
		if c.Comment == "" {
			continue
		}
		out = append(out, d.Statement(fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
			d.Quote(table), c.Quoted, quoteString(c.Comment))))
	}
	return out
}
