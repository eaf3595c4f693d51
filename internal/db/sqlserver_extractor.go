package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// SQLServerExtractor handles schema extraction from SQL Server
type SQLServerExtractor struct {
	client     *Client
	schemaName string
}

// NewSQLServerExtractor creates a new SQL Server schema extractor
func NewSQLServerExtractor(client *Client, schemaName string) *SQLServerExtractor {
	return &SQLServerExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the complete schema for specified tables
// If tables is empty, extracts all tables in the schema
func (e *SQLServerExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Model, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	var infos []tableInfo
	for _, tableName := range tableNames {
		info, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		infos = append(infos, *info)
	}

	return buildModel(infos, nil), nil
}

func (e *SQLServerExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT t.name
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1
		ORDER BY t.name
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

func (e *SQLServerExtractor) extractTable(ctx context.Context, tableName string) (*tableInfo, error) {
	info := &tableInfo{Name: tableName}

	var err error
	if info.Columns, err = e.extractColumns(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if info.PrimaryKey, info.Indexes, err = e.extractIndexes(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	if info.ForeignKeys, err = e.extractForeignKeys(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}

	for i := range info.Columns {
		for _, idx := range info.Indexes {
			if idx.Unique && len(idx.Columns) == 1 && idx.Columns[0] == info.Columns[i].Name {
				info.Columns[i].Unique = true
			}
		}
	}

	return info, nil
}

func (e *SQLServerExtractor) extractColumns(ctx context.Context, tableName string) ([]columnInfo, error) {
	query := `
		SELECT
			c.name,
			ty.name,
			c.max_length,
			c.precision,
			c.scale,
			c.is_nullable,
			c.is_identity,
			dc.definition,
			CAST(ep.value AS NVARCHAR(4000))
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.name = 'MS_Description'
		WHERE s.name = @p1 AND t.name = @p2
		ORDER BY c.column_id
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []columnInfo
	for rows.Next() {
		var (
			col              columnInfo
			typeName         string
			maxLength        int
			precision, scale int
			definition       sql.NullString
			comment          sql.NullString
		)

		if err := rows.Scan(&col.Name, &typeName, &maxLength, &precision, &scale, &col.Nullable, &col.AutoIncrement, &definition, &comment); err != nil {
			return nil, err
		}

		col.Type = sqlServerType(typeName, maxLength, precision, scale)
		col.Comment = comment.String
		if definition.Valid {
			v := stripParens(definition.String)
			col.Default = &v
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// sqlServerType renders a catalog type with its length or precision.
func sqlServerType(name string, maxLength, precision, scale int) string {
	name = strings.ToLower(name)
	switch name {
	case "nvarchar", "nchar":
		if maxLength < 0 {
			return name + "(max)"
		}
		return fmt.Sprintf("%s(%d)", name, maxLength/2)
	case "varchar", "char", "varbinary", "binary":
		if maxLength < 0 {
			return name + "(max)"
		}
		return fmt.Sprintf("%s(%d)", name, maxLength)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", name, precision, scale)
	}
	return name
}

// stripParens removes the parentheses SQL Server wraps default
// definitions in: ((0)) -> 0, (getdate()) -> getdate().
func stripParens(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' && balanced(s[1:len(s)-1]) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func balanced(s string) bool {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// extractIndexes returns the primary key columns and the remaining indexes.
func (e *SQLServerExtractor) extractIndexes(ctx context.Context, tableName string) ([]string, []indexInfo, error) {
	query := `
		SELECT
			i.name,
			i.is_primary_key,
			i.is_unique,
			i.type_desc,
			col.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1 AND t.name = @p2 AND ic.is_included_column = 0
		ORDER BY i.name, ic.key_ordinal
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		pk      []string
		indexes []indexInfo
	)
	for rows.Next() {
		var (
			name, typeDesc, column string
			primary, unique        bool
		)
		if err := rows.Scan(&name, &primary, &unique, &typeDesc, &column); err != nil {
			return nil, nil, err
		}

		if primary {
			pk = append(pk, column)
			continue
		}
		if len(indexes) == 0 || indexes[len(indexes)-1].Name != name {
			idx := indexInfo{Name: name, Unique: unique}
			if !strings.EqualFold(typeDesc, "NONCLUSTERED") {
				idx.Method = strings.ToLower(typeDesc)
			}
			indexes = append(indexes, idx)
		}
		last := &indexes[len(indexes)-1]
		last.Columns = append(last.Columns, column)
	}

	return pk, indexes, rows.Err()
}

func (e *SQLServerExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]foreignKey, error) {
	query := `
		SELECT pc.name, rt.name, rc.name
		FROM sys.foreign_key_columns fkc
		JOIN sys.tables t ON t.object_id = fkc.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE s.name = @p1 AND t.name = @p2
		ORDER BY fkc.constraint_object_id, fkc.constraint_column_id
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
