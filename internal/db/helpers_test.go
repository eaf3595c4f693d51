package db

import (
	"testing"

	"github.com/tordrt/schemadoc/internal/schema"
)

// verifyTablesExist checks that all expected tables are present in the schema
func verifyTablesExist(t *testing.T, m *schema.Model, expectedTables []string) {
	t.Helper()

	if len(m.Tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(m.Tables))
	}

	for _, tableName := range expectedTables {
		if _, ok := m.Table(tableName); !ok {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	for _, colName := range expectedColumns {
		if _, ok := table.Column(colName); !ok {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// columnSpec decomposes a column or fails the test
func columnSpec(t *testing.T, m *schema.Model, tableName, columnName string) schema.ColumnSpec {
	t.Helper()

	table, ok := m.Table(tableName)
	if !ok {
		t.Fatalf("Table %s not found", tableName)
	}
	col, ok := table.Column(columnName)
	if !ok {
		t.Fatalf("Column %s not found in table %s", columnName, tableName)
	}
	spec, err := col.Spec()
	if err != nil {
		t.Fatalf("Column %s.%s does not parse: %v", tableName, columnName, err)
	}
	return spec
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, m *schema.Model, tableName string, expectedPK []string) {
	t.Helper()

	table, ok := m.Table(tableName)
	if !ok {
		t.Fatalf("Table %s not found", tableName)
	}

	var pk []string
	for _, col := range table.Columns {
		if columnSpec(t, m, tableName, col.Name).PrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	for _, idx := range table.Indexes {
		if idx.Primary {
			for _, c := range idx.Columns {
				pk = append(pk, c.Name)
			}
		}
	}

	if len(pk) != len(expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, pk)
		return
	}
	for i := range expectedPK {
		if pk[i] != expectedPK[i] {
			t.Errorf("Expected primary key %v, got %v", expectedPK, pk)
			return
		}
	}
}

// verifyUniqueConstraint checks that a column has a unique constraint
func verifyUniqueConstraint(t *testing.T, m *schema.Model, tableName, columnName string) {
	t.Helper()

	if !columnSpec(t, m, tableName, columnName).Unique {
		t.Errorf("Expected %s column to have unique constraint", columnName)
	}
}

// verifyForeignKey checks that a foreign key relationship exists
func verifyForeignKey(t *testing.T, m *schema.Model, tableName, sourceColumn, targetTable string) {
	t.Helper()

	for _, rel := range m.RelationsFrom(tableName) {
		if rel.TargetTable == targetTable && rel.SourceColumn == sourceColumn {
			return
		}
	}

	t.Errorf("Expected foreign key relationship from %s.%s to %s not found", tableName, sourceColumn, targetTable)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, m *schema.Model, tableName, indexName string, expectedColumns []string) {
	t.Helper()

	table, ok := m.Table(tableName)
	if !ok {
		t.Fatalf("Table %s not found", tableName)
	}

	for _, idx := range table.Indexes {
		if idx.Name != indexName {
			continue
		}
		if len(idx.Columns) != len(expectedColumns) {
			t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
			return
		}
		for i, col := range expectedColumns {
			if idx.Columns[i].Name != col {
				t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
				return
			}
		}
		return
	}

	t.Errorf("Expected index %s on %s table not found", indexName, tableName)
}

// verifyEnumValues checks that an enum exists with the expected values
func verifyEnumValues(t *testing.T, m *schema.Model, enumName string, expectedValues []string) {
	t.Helper()

	for _, en := range m.Enums {
		if en.Name != enumName {
			continue
		}
		if len(en.Values) != len(expectedValues) {
			t.Errorf("Expected %d enum values for %s, got %d", len(expectedValues), enumName, len(en.Values))
			return
		}
		for i, v := range expectedValues {
			if en.Values[i].Name != v {
				t.Errorf("Expected enum %s value %d to be %q, got %q", enumName, i, v, en.Values[i].Name)
			}
		}
		return
	}

	t.Errorf("Enum %s not found", enumName)
}
