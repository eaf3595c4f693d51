package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnSpec(t *testing.T) {
	col := Column{
		Name: "user_id",
		Type: `varchar(50) [pk, not null, unique, increment, default: 'guest', note: "owner, primary", ref: > users.id]`,
	}

	spec, err := col.Spec()
	require.NoError(t, err)

	assert.Equal(t, "varchar", spec.DataType)
	assert.Equal(t, "50", spec.TypeParam)
	assert.Equal(t, "varchar(50)", spec.FullType())
	assert.True(t, spec.PrimaryKey)
	assert.True(t, spec.NotNull)
	assert.True(t, spec.Unique)
	assert.True(t, spec.Increment)
	require.NotNil(t, spec.Default)
	assert.Equal(t, "guest", *spec.Default)
	assert.Equal(t, '\'', spec.DefaultQuote)
	assert.Equal(t, "owner, primary", spec.Note)
	require.NotNil(t, spec.Ref)
	assert.Equal(t, ColumnRef{Table: "users", Column: "id", Cardinality: ">"}, *spec.Ref)
	assert.Len(t, spec.Attributes, 7)
}

func TestColumnSpecInvalid(t *testing.T) {
	_, err := Column{Name: "x", Type: "int [pk"}.Spec()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column x")
}

func TestSplitType(t *testing.T) {
	tests := []struct {
		in    string
		base  string
		param string
	}{
		{"int", "int", ""},
		{"varchar(255)", "varchar", "255"},
		{"decimal(10, 2)", "decimal", "10,2"},
		{"int[]", "int[]", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			base, param := SplitType(tt.in)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.param, param)
		})
	}
}

func TestParseColumnRef(t *testing.T) {
	tests := []struct {
		in      string
		want    ColumnRef
		wantErr bool
	}{
		{in: "> users.id", want: ColumnRef{"users", "id", ">"}},
		{in: "< posts.author_id", want: ColumnRef{"posts", "author_id", "<"}},
		{in: "- profiles.user_id", want: ColumnRef{"profiles", "user_id", "-"}},
		{in: "public.users.id", want: ColumnRef{"public.users", "id", ">"}},
		{in: `> "users"."id"`, want: ColumnRef{"users", "id", ">"}},
		{in: "> users", wantErr: true},
		{in: "> users.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColumnRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestTableEqual(t *testing.T) {
	base := Table{
		Name:    "users",
		Columns: []Column{{Name: "id", Type: "int [pk]"}},
		Indexes: []Index{{Name: "idx", Columns: []IndexColumn{{Name: "id"}}}},
	}

	same := Table{
		Name:    "users",
		Columns: []Column{{Name: "id", Type: "int [pk]"}},
		Indexes: []Index{{Name: "idx", Columns: []IndexColumn{{Name: "id"}}}},
	}
	assert.True(t, base.Equal(same))

	changed := same
	changed.Columns = []Column{{Name: "id", Type: "bigint [pk]"}}
	assert.False(t, base.Equal(changed))

	reindexed := same
	reindexed.Indexes = []Index{{Name: "idx", Unique: true, Columns: []IndexColumn{{Name: "id"}}}}
	assert.False(t, base.Equal(reindexed))
}

func TestModelLookup(t *testing.T) {
	m := &Model{Tables: []Table{
		{Name: "users", Note: "first"},
		{Name: "posts"},
		{Name: "users", Note: "second"},
	}}

	tbl, ok := m.Table("users")
	require.True(t, ok)
	assert.Equal(t, "second", tbl.Note)

	_, ok = m.Table("missing")
	assert.False(t, ok)

	assert.True(t, (&Model{}).IsEmpty())
	assert.False(t, m.IsEmpty())
}

func TestRelations(t *testing.T) {
	m := &Model{
		Tables: []Table{
			{Name: "posts", Columns: []Column{
				{Name: "id", Type: "int [pk]"},
				{Name: "user_id", Type: "int [ref: > users.id]"},
			}},
		},
		Refs: []Ref{{
			From:        RefEndpoint{Table: "comments", Columns: []string{"post_id"}},
			To:          RefEndpoint{Table: "posts", Columns: []string{"id"}},
			Cardinality: ">",
		}},
	}

	rels := m.Relations()
	require.Len(t, rels, 2)
	assert.Equal(t, Relation{"posts", "user_id", "users", "id", "N:1"}, rels[0])
	assert.Equal(t, Relation{"comments", "post_id", "posts", "id", "N:1"}, rels[1])

	assert.Len(t, m.RelationsFrom("comments"), 1)
	assert.Empty(t, m.RelationsFrom("users"))
}
