package parser

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemadoc/internal/schema"
)

const blogSchema = `
Project blog {
  database_type: 'PostgreSQL'
  Note {
    'Blog platform'
  }
}

// accounts
Table users as U [note: 'registered accounts'] {
  id int [pk, increment]
  email varchar(255) [unique, not null, note: "login, must be unique"]
  created_at timestamp [default: ` + "`now()`" + `],
  Note: 'all users'

  indexes {
    email [unique, name: 'users_email_idx']
    (created_at, id) [type: btree]
    ` + "`lower(email)`" + `
  }
}

Table posts {
  id int [pk]
  user_id int [ref: > users.id]
  status post_status
}

Enum post_status {
  draft
  published [note: 'visible']
}

Ref fk_comments: comments.post_id > posts.id [delete: cascade]

Ref {
  comments.(post_id, user_id) - pins.(post_id, user_id)
}

TableGroup content {
  posts
  comments
}

Unknown thing here
`

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "\n\n", "// only a comment\n"} {
		m, err := Parse(in)
		require.NoError(t, err)
		assert.True(t, m.IsEmpty())
	}
}

func TestParseBlog(t *testing.T) {
	m, err := Parse(blogSchema)
	require.NoError(t, err)

	assert.Equal(t, "blog", m.Project)
	require.Len(t, m.Tables, 2)

	users := m.Tables[0]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "U", users.Alias)
	assert.Equal(t, "all users", users.Note)
	assert.Equal(t, []schema.Column{
		{Name: "id", Type: "int [pk, increment]"},
		{Name: "email", Type: `varchar(255) [unique, not null, note: "login, must be unique"]`},
		{Name: "created_at", Type: "timestamp [default: `now()`]"},
	}, users.Columns)

	require.Len(t, users.Indexes, 3)
	assert.Equal(t, schema.Index{
		Name:    "users_email_idx",
		Unique:  true,
		Columns: []schema.IndexColumn{{Name: "email"}},
	}, users.Indexes[0])
	assert.Equal(t, "btree", users.Indexes[1].Type)
	assert.Equal(t, []schema.IndexColumn{{Name: "created_at"}, {Name: "id"}}, users.Indexes[1].Columns)
	assert.Equal(t, []schema.IndexColumn{{Name: "lower(email)", Expression: true}}, users.Indexes[2].Columns)

	posts := m.Tables[1]
	assert.Equal(t, "posts", posts.Name)
	assert.Len(t, posts.Columns, 3)

	require.Len(t, m.Enums, 1)
	assert.Equal(t, "post_status", m.Enums[0].Name)
	assert.Equal(t, []schema.EnumValue{{Name: "draft"}, {Name: "published", Note: "visible"}}, m.Enums[0].Values)

	require.Len(t, m.Refs, 2)
	assert.Equal(t, schema.Ref{
		Name:        "fk_comments",
		From:        schema.RefEndpoint{Table: "comments", Columns: []string{"post_id"}},
		To:          schema.RefEndpoint{Table: "posts", Columns: []string{"id"}},
		Cardinality: ">",
	}, m.Refs[0])
	assert.Equal(t, "-", m.Refs[1].Cardinality)
	assert.Equal(t, []string{"post_id", "user_id"}, m.Refs[1].To.Columns)

	require.Len(t, m.TableGroups, 1)
	assert.Equal(t, []string{"posts", "comments"}, m.TableGroups[0].Tables)
}

func TestParseTableHeaders(t *testing.T) {
	tests := []struct {
		header string
		name   string
		alias  string
		note   string
	}{
		{header: "Table users {", name: "users"},
		{header: "Table users as U {", name: "users", alias: "U"},
		{header: `Table "order items" {`, name: "order items"},
		{header: "Table public.users [note: 'x'] {", name: "public.users", note: "x"},
		{header: `Table "users" as "u" {`, name: "users", alias: "u"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			m, err := Parse(tt.header + "\n}\n")
			require.NoError(t, err)
			require.Len(t, m.Tables, 1)
			assert.Equal(t, tt.name, m.Tables[0].Name)
			assert.Equal(t, tt.alias, m.Tables[0].Alias)
			assert.Equal(t, tt.note, m.Tables[0].Note)
		})
	}
}

func TestParseColumns(t *testing.T) {
	text := `Table t {
  "display name" varchar(20)
  a int,
  lonely
}`
	m, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, m.Tables, 1)
	assert.Equal(t, []schema.Column{
		{Name: "display name", Type: "varchar(20)"},
		{Name: "a", Type: "int"},
	}, m.Tables[0].Columns)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{name: "unterminated table", input: "Table users {\n  id int\n", line: 1},
		{name: "unterminated unknown block", input: "Custom x {\n  a b\n", line: 1},
		{name: "unterminated block inside table", input: "Table a {\n  checks {\n}\n", line: 1},
		{name: "broken index", input: "Table a {\n indexes {\n  (id [unique]\n }\n}", line: 3},
		{name: "broken ref quoting", input: "Ref: users.(a, \"b) > posts.id", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			var pe *SchemaParseError
			require.True(t, errors.As(err, &pe), "expected *SchemaParseError, got %v", err)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestParseSkipsMalformedConstructs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		tables  []string
		columns int
		refs    int
	}{
		{
			name:    "ref without operator",
			input:   "Table users {\n  id int\n}\nRef: users.id\n",
			tables:  []string{"users"},
			columns: 1,
		},
		{
			name:    "named ref with bad endpoint",
			input:   "Table users {\n  id int\n}\nRef fk: users > posts.id\nRef: users.id < posts.user_id\n",
			tables:  []string{"users"},
			columns: 1,
			refs:    1,
		},
		{
			name:   "table header without brace",
			input:  "Table users\n  id int\n",
			tables: nil,
		},
		{
			name:    "table header without brace then valid table",
			input:   "Table users\n  id int\n}\nTable posts {\n  id int\n}\n",
			tables:  []string{"posts"},
			columns: 1,
		},
		{
			name:    "nested table",
			input:   "Table a {\n  id int\n  Table b {\n    x int\n  }\n}",
			tables:  []string{"a"},
			columns: 1,
		},
		{
			name:    "unknown block inside table",
			input:   "Table a {\n  id int\n  checks {\n    `id > 0`\n  }\n  name varchar\n}",
			tables:  []string{"a"},
			columns: 2,
		},
		{
			name:    "unknown top-level block",
			input:   "Records a {\n  nested {\n    1\n  }\n}\nTable a {\n  id int\n}",
			tables:  []string{"a"},
			columns: 1,
		},
		{
			name:    "enum header without brace",
			input:   "Enum status\nTable a {\n  id int\n}",
			tables:  []string{"a"},
			columns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.input)
			require.NoError(t, err)

			var names []string
			columns := 0
			for _, tbl := range m.Tables {
				names = append(names, tbl.Name)
				columns += len(tbl.Columns)
			}
			assert.Equal(t, tt.tables, names)
			assert.Equal(t, tt.columns, columns)
			assert.Len(t, m.Refs, tt.refs)
			assert.Empty(t, m.Enums)
		})
	}
}

func TestParseSkipsStrayBrace(t *testing.T) {
	m, err := Parse("}\nTable a {\n id int\n}\n")
	require.NoError(t, err)
	assert.Len(t, m.Tables, 1)
}

func TestParseDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("parsing the same text twice yields equal models", prop.ForAll(
		func(tables []string, columns []string) bool {
			text := renderSchema(tables, columns)

			first, err := Parse(text)
			if err != nil {
				return false
			}
			second, err := Parse(text)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(first, second) && len(first.Tables) == len(tables)
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

func renderSchema(tables, columns []string) string {
	var b strings.Builder
	for i, tbl := range tables {
		fmt.Fprintf(&b, "Table %s {\n", tbl)
		for j, col := range columns {
			fmt.Fprintf(&b, "  %s varchar(%d) [note: 'c%d, t%d']\n", col, j+1, j, i)
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}
