package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_OpenClose(t *testing.T) {
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	assert.Equal(t, ":memory:", s.Path())
	require.NoError(t, s.Close())
}

func TestStore_Migrate(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	version, err := s.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running again is a no-op.
	require.NoError(t, s.Migrate(ctx))

	for _, table := range []string{"drafts", "versions"} {
		rows, err := s.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		rows.Close()
	}
}

func TestStore_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "versions.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	_, err = s.Commit(ctx, "shop", "Table a {\n}", nil, 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Latest(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Number)
	assert.Equal(t, "Table a {\n}", v.Content)
}

func TestStore_Drafts(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.Draft(ctx, "shop")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.SaveDraft(ctx, "shop", "first"))
	require.NoError(t, s.SaveDraft(ctx, "shop", "second"))

	d, err := s.Draft(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop", d.Project)
	assert.Equal(t, "second", d.Content)
	assert.False(t, d.UpdatedAt.IsZero())
}

func TestStore_Versions(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.Latest(ctx, "shop")
	assert.ErrorIs(t, err, ErrNotFound)

	big := strings.Repeat("Table t {\n  id int [pk]\n}\n", 200)
	v1, err := s.Commit(ctx, "shop", big, nil, 0)
	require.NoError(t, err)
	v2, err := s.Commit(ctx, "shop", "Table t {\n}", []byte(`{"addedTables":[]}`), 1)
	require.NoError(t, err)
	other, err := s.Commit(ctx, "blog", "Table p {\n}", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, v1.Number)
	assert.Equal(t, 2, v2.Number)
	assert.Equal(t, 1, other.Number)
	assert.NotEqual(t, v1.ID, v2.ID)
	assert.Equal(t, Hash(big), v1.Hash)
	assert.Len(t, v1.Hash, 16)

	got, err := s.Version(ctx, "shop", 1)
	require.NoError(t, err)
	assert.Equal(t, big, got.Content)
	assert.Nil(t, got.Delta)

	latest, err := s.Latest(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)
	assert.Equal(t, `{"addedTables":[]}`, string(latest.Delta))

	_, err = s.Version(ctx, "shop", 3)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.List(ctx, "shop")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Number)
	assert.Equal(t, 2, list[1].Number)

	empty, err := s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.SaveDraft(ctx, "drafty", "x"))
	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"blog", "drafty", "shop"}, projects)
}

func TestStore_CommitConflict(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	tests := []struct {
		name    string
		parent  int
		wantErr bool
		want    int
	}{
		{name: "first version", parent: 0, want: 1},
		{name: "stale parent", parent: 0, wantErr: true},
		{name: "parent ahead", parent: 5, wantErr: true},
		{name: "next version", parent: 1, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.Commit(ctx, "shop", "Table "+tt.name+" {\n}", nil, tt.parent)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConflict)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Number)
		})
	}

	list, err := s.List(ctx, "shop")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestHash(t *testing.T) {
	assert.Equal(t, Hash("a"), Hash("a"))
	assert.NotEqual(t, Hash("a"), Hash("b"))
}
