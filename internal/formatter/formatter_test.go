package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemadoc/internal/parser"
	"github.com/tordrt/schemadoc/internal/schema"
)

func blogModel() *schema.Model {
	return &schema.Model{
		Tables: []schema.Table{
			{
				Name: "users",
				Columns: []schema.Column{
					{Name: "id", Type: "int [pk, increment]"},
					{Name: "email", Type: "varchar(255) [unique, not null, note: 'login']"},
					{Name: "status", Type: "status"},
				},
			},
			{
				Name: "posts",
				Columns: []schema.Column{
					{Name: "id", Type: "int [pk]"},
					{Name: "user_id", Type: "int [not null, ref: > users.id]"},
				},
				Indexes: []schema.Index{
					{Name: "idx_posts_user", Columns: []schema.IndexColumn{{Name: "user_id"}}},
				},
			},
		},
		Enums: []schema.Enum{
			{Name: "status", Values: []schema.EnumValue{{Name: "active"}, {Name: "banned"}}},
		},
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf).Format(blogModel()))

	expected := `TABLE users (PK: id)
  id: int AUTO_INCREMENT
  email: varchar(255) UNIQUE NOT NULL -- login
  status: status (active|banned)

TABLE posts (PK: id)
  id: int
  user_id: int NOT NULL

  RELATIONS:
    user_id → users.id (N:1)

  INDEXES:
    idx_posts_user (user_id)
`
	assert.Equal(t, expected, buf.String())
}

func TestTextFormatterUnparsableColumn(t *testing.T) {
	m := &schema.Model{Tables: []schema.Table{{
		Name:    "broken",
		Columns: []schema.Column{{Name: "id", Type: "int [pk"}},
	}}}

	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf).Format(m))
	assert.Equal(t, "TABLE broken\n  id: int [pk\n", buf.String())
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter(&buf).Format(blogModel()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Database Schema\n\n## users\n"))
	assert.Contains(t, out, "- **id:** int, PK, AUTO_INCREMENT\n")
	assert.Contains(t, out, "- **email:** varchar(255), UNIQUE, NOT NULL - login\n")
	assert.Contains(t, out, "- **status:** status (active|banned)\n")
	assert.Contains(t, out, "- user_id → users.id (N:1)\n")
	assert.Contains(t, out, "- idx_posts_user on (user_id)\n")
	assert.Contains(t, out, "### Referenced by\n\n- posts.user_id → id (many posts to one users)\n")
	assert.Contains(t, out, "## Enums\n\n- **status:** `active`, `banned`\n")
}

func TestDBMLRoundTrip(t *testing.T) {
	m := &schema.Model{
		Project: "shop",
		Tables: []schema.Table{
			{
				Name:  "users",
				Alias: "U",
				Note:  "registered accounts",
				Columns: []schema.Column{
					{Name: "id", Type: "int [pk, increment]"},
					{Name: "email", Type: "varchar(255) [not null, unique, note: 'login, primary']"},
					{Name: "created_at", Type: "timestamp [default: `now()`]"},
				},
				Indexes: []schema.Index{
					{Name: "users_email_idx", Unique: true, Columns: []schema.IndexColumn{{Name: "email"}}},
					{Type: "btree", Columns: []schema.IndexColumn{{Name: "created_at", Sort: "DESC"}, {Name: "id"}}},
					{Columns: []schema.IndexColumn{{Name: "lower(email)", Expression: true}}},
				},
			},
			{
				Name: "order items",
				Note: "line one\nline two",
				Columns: []schema.Column{
					{Name: "order_id", Type: "int [ref: > orders.id]"},
					{Name: "product_id", Type: "int"},
				},
				Indexes: []schema.Index{
					{Primary: true, Columns: []schema.IndexColumn{{Name: "order_id"}, {Name: "product_id"}}},
				},
			},
		},
		Enums: []schema.Enum{
			{Name: "status", Values: []schema.EnumValue{{Name: "active"}, {Name: "in progress", Note: "it's running"}}},
		},
		Refs: []schema.Ref{
			{
				Name:        "fk_items",
				From:        schema.RefEndpoint{Table: "order items", Columns: []string{"product_id"}},
				To:          schema.RefEndpoint{Table: "products", Columns: []string{"id"}},
				Cardinality: ">",
			},
			{
				From:        schema.RefEndpoint{Table: "pins", Columns: []string{"a", "b"}},
				To:          schema.RefEndpoint{Table: "slots", Columns: []string{"a", "b"}},
				Cardinality: "-",
			},
		},
		TableGroups: []schema.TableGroup{{Name: "sales", Tables: []string{"order items", "users"}}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewDBMLFormatter(&buf).Format(m))

	parsed, err := parser.Parse(buf.String())
	require.NoError(t, err, buf.String())
	assert.Equal(t, m, parsed)
}

func TestDBMLFormatterOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDBMLFormatter(&buf).Format(blogModel()))

	expected := `Table users {
  id int [pk, increment]
  email varchar(255) [unique, not null, note: 'login']
  status status
}

Table posts {
  id int [pk]
  user_id int [not null, ref: > users.id]

  indexes {
    user_id [name: 'idx_posts_user']
  }
}

Enum status {
  active
  banned
}
`
	assert.Equal(t, expected, buf.String())
}

func TestNew(t *testing.T) {
	for _, format := range []string{FormatText, FormatMarkdown, FormatDBML} {
		f, err := New(format, &bytes.Buffer{})
		require.NoError(t, err)
		assert.NotNil(t, f)
	}

	_, err := New("html", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestMultiFileFormatter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewMultiFileFormatter(dir, FormatMarkdown).Format(blogModel()))

	overview, err := os.ReadFile(filepath.Join(dir, "_overview.md"))
	require.NoError(t, err)
	assert.Contains(t, string(overview), "- **posts** (references: users)\n- **users**\n")

	users, err := os.ReadFile(filepath.Join(dir, "users.md"))
	require.NoError(t, err)
	assert.Contains(t, string(users), "## users")
	assert.Contains(t, string(users), "- posts.user_id → id (many posts to one users)")

	_, err = os.Stat(filepath.Join(dir, "posts.md"))
	assert.NoError(t, err)
}

func TestMultiFileFormatterText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewMultiFileFormatter(dir, FormatText).Format(blogModel()))

	posts, err := os.ReadFile(filepath.Join(dir, "posts.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(posts), "TABLE posts (PK: id)\n"))

	overview, err := os.ReadFile(filepath.Join(dir, "_overview.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(overview), "posts (references: users)\nusers\n")
}

func TestMultiFileFormatterDBML(t *testing.T) {
	dir := t.TempDir()
	m := blogModel()
	require.NoError(t, NewMultiFileFormatter(dir, FormatDBML).Format(m))

	var all strings.Builder
	for _, name := range []string{"_overview.dbml", "users.dbml", "posts.dbml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		all.Write(data)
		all.WriteString("\n")
	}

	parsed, err := parser.Parse(all.String())
	require.NoError(t, err)
	assert.Len(t, parsed.Tables, 2)
	assert.Equal(t, m.Enums, parsed.Enums)
}

func TestMultiFileFormatterUnknownFormat(t *testing.T) {
	err := NewMultiFileFormatter(t.TempDir(), "html").Format(blogModel())
	assert.Error(t, err)
}
