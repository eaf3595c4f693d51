package schema

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemadoc/internal/attr"
)

// ColumnSpec is the decomposed view of a column's raw type definition.
type ColumnSpec struct {
	DataType   string // base type without parameters, e.g. "varchar"
	TypeParam  string // text inside the parentheses, e.g. "50" or "10,2"
	PrimaryKey bool
	Unique     bool
	NotNull    bool
	Increment  bool
	Indexed    bool
	Default    *string
	// DefaultQuote is the quote the default was written with, 0 if bare.
	DefaultQuote rune
	Note         string
	Ref          *ColumnRef
	// Attributes keeps every attribute in source order, including ones the
	// fields above do not model.
	Attributes []attr.Attribute
}

// ColumnRef is an inline column reference (ref: > users.id).
type ColumnRef struct {
	Table       string
	Column      string
	Cardinality string
}

// FullType returns the data type with its parameter, e.g. "varchar(50)".
func (s ColumnSpec) FullType() string {
	if s.TypeParam == "" {
		return s.DataType
	}
	return s.DataType + "(" + s.TypeParam + ")"
}

// Spec decomposes the column's raw type definition.
func (c Column) Spec() (ColumnSpec, error) {
	def, err := attr.Parse(c.Type)
	if err != nil {
		return ColumnSpec{}, fmt.Errorf("column %s: %w", c.Name, err)
	}

	base, param := SplitType(def.DataType)
	spec := ColumnSpec{
		DataType:   base,
		TypeParam:  param,
		Attributes: def.Attributes,
	}

	for _, a := range def.Attributes {
		switch a.Key {
		case "pk", "primary key":
			spec.PrimaryKey = true
		case "unique":
			spec.Unique = true
		case "not null", "not-null":
			spec.NotNull = true
		case "null":
			spec.NotNull = false
		case "increment", "auto increment", "autoincrement":
			spec.Increment = true
		case "index":
			spec.Indexed = true
		case "default":
			v := a.Value
			spec.Default = &v
			spec.DefaultQuote = a.Quote
		case "note", "comment":
			spec.Note = a.Value
		case "ref", "references":
			ref, err := ParseColumnRef(a.Value)
			if err != nil {
				return ColumnSpec{}, fmt.Errorf("column %s: %w", c.Name, err)
			}
			spec.Ref = ref
		}
	}

	return spec, nil
}

// SplitType splits "varchar(50)" into ("varchar", "50"). Types without a
// trailing parameter list are returned unchanged.
func SplitType(t string) (string, string) {
	t = strings.TrimSpace(t)
	open := strings.IndexByte(t, '(')
	if open < 0 || !strings.HasSuffix(t, ")") {
		return t, ""
	}
	return strings.TrimSpace(t[:open]), strings.ReplaceAll(t[open+1:len(t)-1], " ", "")
}

// ParseColumnRef parses an inline ref value such as "> users.id". A value
// without an operator is treated as many-to-one.
func ParseColumnRef(v string) (*ColumnRef, error) {
	v = strings.TrimSpace(v)

	card := ">"
	for _, op := range []string{"<>", ">", "<", "-"} {
		if strings.HasPrefix(v, op) {
			card = op
			v = strings.TrimSpace(v[len(op):])
			break
		}
	}

	dot := strings.LastIndexByte(v, '.')
	if dot <= 0 || dot == len(v)-1 {
		return nil, fmt.Errorf("invalid ref target %q", v)
	}

	return &ColumnRef{
		Table:       unquoteIdent(v[:dot]),
		Column:      unquoteIdent(v[dot+1:]),
		Cardinality: card,
	}, nil
}

func unquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	s, _ = attr.Unquote(s)
	return s
}
