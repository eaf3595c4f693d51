package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// MySQLExtractor handles schema extraction from MySQL and MariaDB
type MySQLExtractor struct {
	client     *Client
	schemaName string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *Client, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the complete schema for specified tables
// If tables is empty, extracts all tables in the schema
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Model, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	var (
		infos []tableInfo
		enums []schema.Enum
	)
	for _, tableName := range tableNames {
		info, tableEnums, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		infos = append(infos, *info)
		enums = append(enums, tableEnums...)
	}

	return buildModel(infos, enums), nil
}

// getTableNames returns the list of tables to extract
func (e *MySQLExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// extractTable extracts all information for a single table
func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (*tableInfo, []schema.Enum, error) {
	info := &tableInfo{Name: tableName}

	columns, enums, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	info.Columns = columns

	if info.PrimaryKey, err = e.extractPrimaryKey(ctx, tableName); err != nil {
		return nil, nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	if info.ForeignKeys, err = e.extractForeignKeys(ctx, tableName); err != nil {
		return nil, nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	if info.Indexes, err = e.extractIndexes(ctx, tableName); err != nil {
		return nil, nil, fmt.Errorf("failed to extract indexes: %w", err)
	}

	return info, enums, nil
}

// extractColumns extracts column information for a table. ENUM columns are
// typed with a generated enum named <table>_<column>.
func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]columnInfo, []schema.Enum, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
					AND tc.table_name = kcu.table_name
				WHERE tc.table_schema = ?
					AND tc.table_name = ?
					AND tc.constraint_type = 'UNIQUE'
					AND kcu.column_name = c.column_name
			) THEN true ELSE false END as is_unique,
			c.data_type,
			c.extra,
			c.column_comment
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName, e.schemaName, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		columns []columnInfo
		enums   []schema.Enum
	)
	for rows.Next() {
		var (
			col        columnInfo
			columnType string
			nullable   string
			defaultVal sql.NullString
			dataType   string
			extra      string
		)

		if err := rows.Scan(&col.Name, &columnType, &nullable, &defaultVal, &col.Unique, &dataType, &extra, &col.Comment); err != nil {
			return nil, nil, err
		}

		col.Type = columnType
		col.Nullable = nullable == "YES"
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if defaultVal.Valid {
			v := mysqlDefault(defaultVal.String, dataType, extra)
			col.Default = &v
		}

		if dataType == "enum" {
			values, err := extractEnumValues(columnType)
			if err != nil {
				return nil, nil, err
			}
			en := schema.Enum{Name: tableName + "_" + col.Name}
			for _, v := range values {
				en.Values = append(en.Values, schema.EnumValue{Name: v})
			}
			enums = append(enums, en)
			col.Type = en.Name
		}

		columns = append(columns, col)
	}

	return columns, enums, rows.Err()
}

// mysqlDefault converts information_schema.columns.column_default, which
// holds string literals unquoted, into SQL text.
func mysqlDefault(v, dataType, extra string) string {
	if strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED") {
		return v
	}
	switch dataType {
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set":
		if strings.HasPrefix(v, "'") {
			return v
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return v
}

// extractEnumValues parses enum values from the column type string
// MySQL stores enum types as "enum('value1','value2','value3')"
func extractEnumValues(columnType string) ([]string, error) {
	if !strings.HasPrefix(columnType, "enum(") {
		return nil, nil
	}

	start := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("invalid enum type format: %s", columnType)
	}

	var values []string
	for _, part := range strings.Split(columnType[start+1:end], ",") {
		part = strings.TrimSpace(part)
		if len(part) >= 2 && part[0] == '\'' && part[len(part)-1] == '\'' {
			part = part[1 : len(part)-1]
		}
		values = append(values, strings.ReplaceAll(part, "''", "'"))
	}

	return values, nil
}

// extractPrimaryKey extracts primary key columns
func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk = append(pk, colName)
	}

	return pk, rows.Err()
}

// extractForeignKeys extracts foreign key columns and their targets
func (e *MySQLExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]foreignKey, error) {
	query := `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []foreignKey
	for rows.Next() {
		var fk foreignKey
		if err := rows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

// extractIndexes extracts index information
func (e *MySQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]indexInfo, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			s.index_type,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique, s.index_type
		ORDER BY s.index_name
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []indexInfo
	for rows.Next() {
		var (
			idx         indexInfo
			isUnique    int
			method      string
			columnNames string
		)

		if err := rows.Scan(&idx.Name, &isUnique, &method, &columnNames); err != nil {
			return nil, err
		}

		idx.Unique = isUnique == 1
		if !strings.EqualFold(method, "BTREE") {
			idx.Method = strings.ToLower(method)
		}
		idx.Columns = strings.Split(columnNames, ",")

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
