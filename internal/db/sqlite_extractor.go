package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *Client
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *Client) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema extracts the complete schema for specified tables
// If tables is empty, extracts all tables in the database
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Model, error) {
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

// getTableNames returns the list of tables to extract
func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// extractTable extracts all information for a single table
func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*tableInfo, error) {
	info := &tableInfo{Name: tableName}

	var err error
	if info.Columns, info.PrimaryKey, err = e.extractColumns(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if info.ForeignKeys, err = e.extractForeignKeys(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	if info.Indexes, err = e.extractIndexes(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
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

// extractColumns extracts column information and the primary key, ordered
// by key position.
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]columnInfo, []string, error) {
	var createSQL sql.NullString
	err := e.client.DB().QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName,
	).Scan(&createSQL)
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, err
	}
	autoincrement := strings.Contains(strings.ToUpper(createSQL.String), "AUTOINCREMENT")

	rows, err := e.client.DB().QueryContext(ctx,
		`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		columns []columnInfo
		pkByPos = make(map[int]string)
	)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			defaultValue     sql.NullString
		)

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		col := columnInfo{
			Name:     name,
			Type:     strings.ToLower(colType),
			Nullable: notNull == 0 && pk == 0,
		}
		if defaultValue.Valid {
			v := defaultValue.String
			col.Default = &v
		}
		if pk > 0 {
			pkByPos[pk] = name
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pk := make([]string, 0, len(pkByPos))
	for i := 1; i <= len(pkByPos); i++ {
		pk = append(pk, pkByPos[i])
	}

	if autoincrement && len(pk) == 1 {
		for i := range columns {
			if columns[i].Name == pk[0] {
				columns[i].AutoIncrement = true
			}
		}
	}

	return columns, pk, nil
}

// extractForeignKeys extracts foreign key columns and their targets
func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]foreignKey, error) {
	rows, err := e.client.DB().QueryContext(ctx,
		`SELECT "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []foreignKey
	for rows.Next() {
		var (
			fk foreignKey
			to sql.NullString
		)
		if err := rows.Scan(&fk.RefTable, &fk.Column, &to); err != nil {
			return nil, err
		}
		// A missing target column references the parent's primary key.
		fk.RefColumn = to.String
		if fk.RefColumn == "" {
			fk.RefColumn = "id"
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

// extractIndexes extracts index information. Indexes backing the primary
// key are skipped. Indexes backing UNIQUE constraints are kept unnamed.
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]indexInfo, error) {
	rows, err := e.client.DB().QueryContext(ctx,
		`SELECT name, "unique", origin FROM pragma_index_list(?) ORDER BY name`, tableName)
	if err != nil {
		return nil, err
	}

	type listed struct {
		name   string
		unique bool
		origin string
	}
	var list []listed
	for rows.Next() {
		var (
			l      listed
			unique int
		)
		if err := rows.Scan(&l.name, &unique, &l.origin); err != nil {
			rows.Close()
			return nil, err
		}
		l.unique = unique == 1
		if l.origin != "pk" {
			list = append(list, l)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []indexInfo
	for _, l := range list {
		columns, err := e.indexColumns(ctx, l.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}
		idx := indexInfo{Name: l.name, Unique: l.unique, Columns: columns}
		if l.origin == "u" {
			idx.Name = ""
		}
		indexes = append(indexes, idx)
	}

	return indexes, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.DB().QueryContext(ctx,
		`SELECT name FROM pragma_index_info(?) ORDER BY seqno`, indexName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var colName sql.NullString
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		// Expression indexes report NULL column names.
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}
