package diff

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemadoc/internal/schema"
)

func table(name string, cols ...string) schema.Table {
	t := schema.Table{Name: name}
	for i := 0; i+1 < len(cols); i += 2 {
		t.Columns = append(t.Columns, schema.Column{Name: cols[i], Type: cols[i+1]})
	}
	return t
}

func TestDiff(t *testing.T) {
	users := table("users", "id", "int", "name", "varchar(50)")

	tests := []struct {
		name   string
		before *schema.Model
		after  *schema.Model
		check  func(t *testing.T, d *Delta)
	}{
		{
			name:   "added table",
			before: &schema.Model{Tables: []schema.Table{users}},
			after:  &schema.Model{Tables: []schema.Table{users, table("posts", "id", "int", "user_id", "int")}},
			check: func(t *testing.T, d *Delta) {
				require.Len(t, d.Tables, 1)
				td := d.Tables[0]
				assert.Equal(t, Added, td.Type)
				assert.Equal(t, "posts", td.Name)
				require.NotNil(t, td.Table)
				require.Len(t, td.Columns, 2)
				assert.Equal(t, ColumnDiff{
					Name:         "id",
					Type:         Added,
					CurrentType:  "int",
					CurrentValue: &schema.Column{Name: "id", Type: "int"},
				}, td.Columns[0])
			},
		},
		{
			name:   "removed table",
			before: &schema.Model{Tables: []schema.Table{users, table("audit", "id", "int")}},
			after:  &schema.Model{Tables: []schema.Table{users}},
			check: func(t *testing.T, d *Delta) {
				require.Len(t, d.Tables, 1)
				assert.Equal(t, TableDiff{Name: "audit", Type: Removed}, d.Tables[0])
			},
		},
		{
			name:   "removed column",
			before: &schema.Model{Tables: []schema.Table{table("users", "id", "int", "name", "text", "email", "text")}},
			after:  &schema.Model{Tables: []schema.Table{table("users", "id", "int", "name", "text")}},
			check: func(t *testing.T, d *Delta) {
				require.Len(t, d.Tables, 1)
				td := d.Tables[0]
				assert.Equal(t, Modified, td.Type)
				require.Len(t, td.Columns, 1)
				assert.Equal(t, "email", td.Columns[0].Name)
				assert.Equal(t, Removed, td.Columns[0].Type)
				assert.Equal(t, "text", td.Columns[0].BeforeType)
				assert.Empty(t, td.Columns[0].CurrentType)
			},
		},
		{
			name:   "column ordering",
			before: &schema.Model{Tables: []schema.Table{table("t", "a", "int", "b", "int", "c", "int")}},
			after:  &schema.Model{Tables: []schema.Table{table("t", "d", "int", "a", "bigint", "e", "int")}},
			check: func(t *testing.T, d *Delta) {
				require.Len(t, d.Tables, 1)
				var got []string
				for _, c := range d.Tables[0].Columns {
					got = append(got, fmt.Sprintf("%s:%s", c.Type, c.Name))
				}
				assert.Equal(t, []string{"REMOVED:b", "REMOVED:c", "ADDED:d", "MODIFIED:a", "ADDED:e"}, got)
			},
		},
		{
			name: "table ordering",
			before: &schema.Model{Tables: []schema.Table{
				table("zeta", "id", "int"), table("gone2", "id", "int"), table("alpha", "id", "int"), table("gone1", "id", "int"),
			}},
			after: &schema.Model{Tables: []schema.Table{
				table("new2", "id", "int"), table("alpha", "id", "bigint"), table("zeta", "id", "bigint"), table("new1", "id", "int"),
			}},
			check: func(t *testing.T, d *Delta) {
				var got []string
				for _, td := range d.Tables {
					got = append(got, fmt.Sprintf("%s:%s", td.Type, td.Name))
				}
				assert.Equal(t, []string{
					"ADDED:new2", "ADDED:new1",
					"REMOVED:gone2", "REMOVED:gone1",
					"MODIFIED:alpha", "MODIFIED:zeta",
				}, got)
			},
		},
		{
			name:   "rename is remove plus add",
			before: &schema.Model{Tables: []schema.Table{table("people", "id", "int")}},
			after:  &schema.Model{Tables: []schema.Table{table("persons", "id", "int")}},
			check: func(t *testing.T, d *Delta) {
				require.Len(t, d.Tables, 2)
				assert.Equal(t, Added, d.Tables[0].Type)
				assert.Equal(t, Removed, d.Tables[1].Type)
			},
		},
		{
			name:   "nil models",
			before: nil,
			after:  nil,
			check: func(t *testing.T, d *Delta) {
				assert.True(t, d.IsEmpty())
			},
		},
		{
			name:   "duplicate names resolve to last definition",
			before: &schema.Model{Tables: []schema.Table{table("t", "id", "int")}},
			after:  &schema.Model{Tables: []schema.Table{table("t", "id", "bigint"), table("t", "id", "int")}},
			check: func(t *testing.T, d *Delta) {
				assert.True(t, d.IsEmpty())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Diff(tt.before, tt.after)
			require.NoError(t, err)
			tt.check(t, d)
		})
	}
}

func TestDiffDoesNotMutateInputs(t *testing.T) {
	before := &schema.Model{Tables: []schema.Table{table("users", "id", "int")}}
	after := &schema.Model{Tables: []schema.Table{table("users", "id", "bigint"), table("posts", "id", "int")}}

	d, err := Diff(before, after)
	require.NoError(t, err)

	added := d.Added()
	require.Len(t, added, 1)
	added[0].Table.Columns[0].Type = "changed"

	assert.Equal(t, "int", after.Tables[1].Columns[0].Type)
	assert.Equal(t, "int", before.Tables[0].Columns[0].Type)
}

func TestChangedProperties(t *testing.T) {
	tests := []struct {
		before string
		after  string
		want   []string
	}{
		{"int", "bigint", []string{"dataType"}},
		{"varchar(50)", "varchar(100)", []string{"typeParam"}},
		{"int", "int [pk, not null]", []string{"primaryKey", "notNull"}},
		{"text [default: 'a']", "text [default: 'b', note: 'x']", []string{"default", "note"}},
		{"int [ref: > users.id]", "int", []string{"ref"}},
		{"int [pk]", "int [primary key]", []string{"definition"}},
		{"int [pk", "int", []string{"definition"}},
	}

	for _, tt := range tests {
		t.Run(tt.before+" -> "+tt.after, func(t *testing.T) {
			got := changedProperties(
				schema.Column{Name: "c", Type: tt.before},
				schema.Column{Name: "c", Type: tt.after},
			)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeltaJSONShape(t *testing.T) {
	before := &schema.Model{Tables: []schema.Table{
		table("users", "id", "int", "email", "text"),
		table("legacy", "id", "int"),
	}}
	after := &schema.Model{Tables: []schema.Table{
		table("users", "id", "bigint"),
		table("posts", "id", "int"),
	}}

	d, err := Diff(before, after)
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 3)
	assert.JSONEq(t, `["legacy"]`, string(raw["removedTables"]))
	assert.JSONEq(t, `[{"name":"posts","columns":[{"name":"id","type":"int"}]}]`, string(raw["addedTables"]))
	assert.Contains(t, string(raw["tableChanges"]), `"diffType":"REMOVED"`)
	assert.Contains(t, string(raw["tableChanges"]), `"changedProperties":["dataType"]`)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, d, decoded)
}

func TestDeltaYAML(t *testing.T) {
	d, err := Diff(
		&schema.Model{Tables: []schema.Table{table("old", "id", "int")}},
		&schema.Model{Tables: []schema.Table{table("new", "id", "int")}},
	)
	require.NoError(t, err)

	out, err := yaml.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), "addedTables:")
	assert.Contains(t, string(out), "removedTables:")
	assert.Contains(t, string(out), "- old")

	var back Delta
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, d, &back)
}

func TestDecode(t *testing.T) {
	d, err := Decode(nil)
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())

	_, err = Decode([]byte(`{"tableChanges":{"t":[{"columnName":"a","diffType":"RENAMED"}]}}`))
	assert.Error(t, err)

	d, err = Decode([]byte(`{"tableChanges":{"t":[{"columnName":"a","diffType":"ADDED","currentType":"int"}]}}`))
	require.NoError(t, err)
	require.Len(t, d.Tables, 1)
	require.Len(t, d.Tables[0].Columns, 1)
	assert.Equal(t, Added, d.Tables[0].Columns[0].Type)

	out, err := yaml.Marshal(d.Tables[0].Columns[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), "diffType: ADDED")

	_, err = Decode([]byte(`{"addedTables":[{"columns":[]}]}`))
	assert.Error(t, err)
}

func genModel() gopter.Gen {
	return gen.SliceOf(gen.Identifier()).Map(func(names []string) *schema.Model {
		m := &schema.Model{}
		for i, n := range names {
			m.Tables = append(m.Tables, table(n, "id", "int [pk]", "c"+n, fmt.Sprintf("varchar(%d)", i+1)))
		}
		return m
	})
}

func TestDiffProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("diffing a model with itself yields no changes", prop.ForAll(
		func(m *schema.Model) bool {
			d, err := Diff(m, m)
			return err == nil && d.IsEmpty()
		},
		genModel(),
	))

	properties.Property("a table only in after is only reported as added", prop.ForAll(
		func(m *schema.Model, extra string) bool {
			name := "zz_" + extra
			after := &schema.Model{Tables: append([]schema.Table{table(name, "id", "int")}, m.Tables...)}

			d, err := Diff(m, after)
			if err != nil {
				return false
			}
			added, removed, modified := 0, 0, 0
			for _, td := range d.Tables {
				if td.Name != name {
					continue
				}
				switch td.Type {
				case Added:
					added++
				case Removed:
					removed++
				case Modified:
					modified++
				}
			}
			return added == 1 && removed == 0 && modified == 0
		},
		genModel(),
		gen.Identifier(),
	))

	properties.Property("a table only in before is only reported as removed", prop.ForAll(
		func(m *schema.Model, extra string) bool {
			name := "zz_" + extra
			before := &schema.Model{Tables: append([]schema.Table{table(name, "id", "int")}, m.Tables...)}

			d, err := Diff(before, m)
			if err != nil {
				return false
			}
			for _, td := range d.Tables {
				if td.Name == name && td.Type != Removed {
					return false
				}
			}
			return len(d.Removed()) == 1 && len(d.Removed()[0].Columns) == 0
		},
		genModel(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
