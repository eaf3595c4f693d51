package schemadoc

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemadoc/internal/ddl"
	"github.com/tordrt/schemadoc/internal/diff"
	"github.com/tordrt/schemadoc/internal/schema"
	"github.com/tordrt/schemadoc/internal/store"
	"github.com/tordrt/schemadoc/internal/testutil"
)

const usersV1 = `
Table users {
  id int [pk]
  name varchar(50)
  email varchar(255)
}
`

const usersV2 = `
Table users {
  id int [pk]
  name varchar(50)
}

Table posts {
  id int [pk]
  user_id int [ref: > users.id]
}
`

func TestAddedTableScenario(t *testing.T) {
	before := "Table users {\n  id int\n  name varchar(50)\n}\n"
	after := before + "\nTable posts {\n  id int\n  user_id int\n}\n"

	delta, err := Diff(before, after)
	require.NoError(t, err)
	require.Len(t, delta.Tables, 1)
	assert.Equal(t, diff.Added, delta.Tables[0].Type)
	assert.Equal(t, "posts", delta.Tables[0].Name)

	script, err := GenerateDDL(before, after, "1")
	require.NoError(t, err)
	assert.Contains(t, script, "CREATE TABLE `posts`")
	assert.NotContains(t, script, "DROP TABLE")
}

func TestRemovedColumnScenario(t *testing.T) {
	before := "Table users {\n  id int\n  name varchar(50)\n  email varchar(255)\n}\n"
	after := "Table users {\n  id int\n  name varchar(50)\n}\n"

	delta, err := Diff(before, after)
	require.NoError(t, err)
	require.Len(t, delta.Tables, 1)
	assert.Equal(t, diff.Modified, delta.Tables[0].Type)
	require.Len(t, delta.Tables[0].Columns, 1)
	assert.Equal(t, diff.Removed, delta.Tables[0].Columns[0].Type)
	assert.Equal(t, "email", delta.Tables[0].Columns[0].Name)

	script, err := GenerateDDL(before, after, "5")
	require.NoError(t, err)
	assert.Contains(t, script, "ALTER TABLE [users] DROP COLUMN [email]")
}

func TestIdenticalSchemasScenario(t *testing.T) {
	delta, err := Diff(usersV1, usersV1)
	require.NoError(t, err)
	assert.True(t, delta.IsEmpty())

	script, err := GenerateDDL(usersV1, usersV1, "mysql")
	require.NoError(t, err)
	assert.Equal(t, "-- Generated by schemadoc\n-- Dialect: MySQL\n\n-- No changes detected\n", script)
}

func TestGenerateDDLErrors(t *testing.T) {
	_, err := GenerateDDL(usersV1, usersV2, "db2")
	var unsupported *ddl.UnsupportedDialectError
	assert.True(t, errors.As(err, &unsupported))

	// Per-table failures stay in the script.
	script, err := GenerateDDL(usersV1, usersV1+"\nTable t {\n  id int [pk\n}\n", "pg")
	require.NoError(t, err)
	assert.Contains(t, script, "-- Error generating DDL: column id")

	_, err = GenerateDDL(usersV1, "Table t {\n  id int\n", "pg")
	assert.Error(t, err)
}

func TestGenerateAll(t *testing.T) {
	delta, err := Diff(usersV1, usersV2)
	require.NoError(t, err)

	scripts, err := GenerateAll(context.Background(), delta, ddl.Options{Label: "v1 -> v2"})
	require.NoError(t, err)
	require.Len(t, scripts, 5)

	names := make([]string, 0, len(scripts))
	for _, s := range scripts {
		names = append(names, s.Dialect)
		assert.Contains(t, s.Script, "-- Dialect: "+s.Title+"\n")
		assert.Contains(t, s.Script, "-- Version: v1 -> v2\n")
	}
	assert.Equal(t, []string{"mysql", "mariadb", "postgresql", "oracle", "sqlserver"}, names)

	bad, err := Diff("", "Table t {\n  id int [check: `id > 0`]\n}\n")
	require.NoError(t, err)
	_, err = GenerateAll(context.Background(), bad, ddl.Options{})
	var unknown *ddl.UnknownKeywordError
	assert.True(t, errors.As(err, &unknown))
}

func TestExportDDL(t *testing.T) {
	script, err := ExportDDL(usersV2, "postgresql")
	require.NoError(t, err)
	assert.Contains(t, script, `CREATE TABLE "users"`)
	assert.Contains(t, script, `CREATE TABLE "posts"`)

	_, err = ExportDDL(usersV2, "9")
	assert.Error(t, err)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { st.Close() })
	return NewService(st, testutil.NewTestLogger(t))
}

func TestServiceVersioning(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Compare(ctx, "shop", 0, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)

	first, err := svc.CommitVersion(ctx, "shop", usersV1)
	require.NoError(t, err)
	assert.False(t, first.Unchanged)
	assert.Equal(t, 1, first.Version.Number)
	require.Len(t, first.Delta.Tables, 1)
	assert.Equal(t, diff.Added, first.Delta.Tables[0].Type)

	again, err := svc.CommitVersion(ctx, "shop", usersV1)
	require.NoError(t, err)
	assert.True(t, again.Unchanged)
	assert.Equal(t, first.Version.ID, again.Version.ID)

	// The draft is the default "after" side.
	require.NoError(t, svc.Store().SaveDraft(ctx, "shop", usersV2))
	cmp, err := svc.Compare(ctx, "shop", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "v1 -> draft", cmp.Label())
	require.Len(t, cmp.Delta.Tables, 2)
	assert.Equal(t, "posts", cmp.Delta.Added()[0].Name)
	assert.Equal(t, "users", cmp.Delta.Modified()[0].Name)

	second, err := svc.CommitVersion(ctx, "shop", usersV2)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version.Number)

	cmp, err = svc.Compare(ctx, "shop", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "v1 -> v2", cmp.Label())
	assert.Len(t, cmp.Delta.Tables, 2)

	// Draft equals v2 now.
	cmp, err = svc.Compare(ctx, "shop", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "v2 -> draft", cmp.Label())
	assert.True(t, cmp.Delta.IsEmpty())

	_, err = svc.Compare(ctx, "shop", 0, 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServiceVersionDDL(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CommitVersion(ctx, "shop", usersV1)
	require.NoError(t, err)
	_, err = svc.CommitVersion(ctx, "shop", usersV2)
	require.NoError(t, err)

	// Stored delta of v2.
	script, err := svc.VersionDDL(ctx, "shop", 0, 2, ddl.SQLServer)
	require.NoError(t, err)
	assert.Contains(t, script, "-- Version: v1 -> v2\n")
	assert.Contains(t, script, "CREATE TABLE [posts]")
	assert.Contains(t, script, "ALTER TABLE [users] DROP COLUMN [email]")

	script, err = svc.VersionDDL(ctx, "shop", 0, 1, ddl.MySQL)
	require.NoError(t, err)
	assert.Contains(t, script, "-- Version: empty -> v1\n")
	assert.Contains(t, script, "CREATE TABLE `users`")

	// Explicit range re-diffs.
	script, err = svc.VersionDDL(ctx, "shop", 1, 2, ddl.PostgreSQL)
	require.NoError(t, err)
	assert.Contains(t, script, "-- Version: v1 -> v2\n")
	assert.Contains(t, script, `ALTER TABLE "users" DROP COLUMN "email"`)

	// No draft: latest version against its predecessor.
	script, err = svc.VersionDDL(ctx, "shop", 0, 0, ddl.Oracle)
	require.NoError(t, err)
	assert.Contains(t, script, "-- Version: v1 -> v2\n")

	_, err = svc.VersionDDL(ctx, "shop", 0, 2, ddl.DialectID(9))
	var unsupported *ddl.UnsupportedDialectError
	assert.True(t, errors.As(err, &unsupported))

	_, err = svc.VersionDDL(ctx, "shop", 0, 7, ddl.MySQL)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServiceConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	const commits = 8
	var wg sync.WaitGroup
	errs := make([]error, commits)
	for i := range commits {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.CommitVersion(ctx, "shop", fmt.Sprintf("Table t%d {\n  id int\n}\n", i))
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	versions, err := svc.Store().List(ctx, "shop")
	require.NoError(t, err)
	require.Len(t, versions, commits)

	prev := ""
	for i, v := range versions {
		assert.Equal(t, i+1, v.Number)
		full, err := svc.Store().Version(ctx, "shop", v.Number)
		require.NoError(t, err)

		want, err := Diff(prev, full.Content)
		require.NoError(t, err)
		encoded, err := json.Marshal(want)
		require.NoError(t, err)
		assert.JSONEq(t, string(encoded), string(full.Delta), "delta of v%d", v.Number)
		prev = full.Content
	}
}

func TestServiceCommitUnparsable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	res, err := svc.CommitVersion(ctx, "shop", "Table broken {\n  id int\n")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version.Number)
	assert.Nil(t, res.Delta)

	v, err := svc.Store().Version(ctx, "shop", 1)
	require.NoError(t, err)
	assert.Nil(t, v.Delta)

	_, err = svc.VersionDDL(ctx, "shop", 0, 1, ddl.MySQL)
	assert.Error(t, err)
}

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost/db", want: "postgres"},
		{name: "postgresql", url: "postgresql://u:p@localhost/db", want: "postgres"},
		{name: "mysql", url: "mysql://u:p@tcp(localhost:3306)/db", want: "mysql"},
		{name: "sqlite", url: "sqlite://data.db", want: "sqlite"},
		{name: "sqlserver", url: "sqlserver://sa:pw@localhost?database=db", want: "sqlserver"},
		{name: "empty", url: "", wantErr: true},
		{name: "invalid scheme", url: "oracle://x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := parseDatabaseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			switch tt.want {
			case "postgres":
				assert.Equal(t, tt.url, src.PostgresURL)
			case "mysql":
				assert.Equal(t, "u:p@tcp(localhost:3306)/db", src.MySQLURL)
			case "sqlite":
				assert.Equal(t, "data.db", src.SQLitePath)
			case "sqlserver":
				assert.Equal(t, tt.url, src.SQLServerURL)
			}
		})
	}
}

func TestFilterExcludedTables(t *testing.T) {
	tests := []struct {
		name        string
		tables      []string
		excludeList []string
		wantTables  []string
	}{
		{
			name:        "exclude single table",
			tables:      []string{"users", "posts", "comments"},
			excludeList: []string{"posts"},
			wantTables:  []string{"users", "comments"},
		},
		{
			name:        "exclude multiple tables",
			tables:      []string{"users", "posts", "comments", "likes"},
			excludeList: []string{"posts", "likes"},
			wantTables:  []string{"users", "comments"},
		},
		{
			name:        "exclude no tables",
			tables:      []string{"users", "posts"},
			excludeList: []string{},
			wantTables:  []string{"users", "posts"},
		},
		{
			name:        "exclude non-existent table",
			tables:      []string{"users", "posts"},
			excludeList: []string{"products"},
			wantTables:  []string{"users", "posts"},
		},
		{
			name:        "exclude all tables",
			tables:      []string{"users", "posts"},
			excludeList: []string{"users", "posts"},
			wantTables:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &schema.Model{}
			for _, name := range tt.tables {
				m.Tables = append(m.Tables, schema.Table{Name: name})
			}

			filterExcludedTables(m, tt.excludeList)

			got := make([]string, 0, len(m.Tables))
			for _, table := range m.Tables {
				got = append(got, table.Name)
			}
			assert.Equal(t, tt.wantTables, got)
		})
	}
}

func TestExtractFormatCommit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = conn.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL UNIQUE);
		CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users(id), title TEXT DEFAULT 'untitled');
		CREATE TABLE logs (id INTEGER PRIMARY KEY, line TEXT);
	`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	m, err := ExtractSchema(ctx, "sqlite://"+path, &Options{ExcludeTables: []string{"logs"}})
	require.NoError(t, err)
	require.Len(t, m.Tables, 2)

	var buf bytes.Buffer
	require.NoError(t, FormatSchema(m, &OutputOptions{Writer: &buf, Format: "dbml"}))

	parsed, err := Parse(buf.String())
	require.NoError(t, err)
	assert.Equal(t, m.Tables, parsed.Tables)

	svc := newTestService(t)
	res, err := svc.CommitVersion(ctx, "app", buf.String())
	require.NoError(t, err)
	require.Len(t, res.Delta.Tables, 2)

	script, err := svc.VersionDDL(ctx, "app", 0, 1, ddl.PostgreSQL)
	require.NoError(t, err)
	assert.Contains(t, script, `CREATE TABLE "posts"`)
	assert.True(t, strings.HasPrefix(script, "-- Generated by schemadoc\n"))
}

func TestFormatSchemaUnknownFormat(t *testing.T) {
	err := FormatSchema(&schema.Model{}, &OutputOptions{Writer: &bytes.Buffer{}, Format: "pdf"})
	assert.Error(t, err)
}
