package ddl

import (
	"fmt"
	"strings"
)

func init() {
	Register(&Dialect{
		ID:         SQLServer,
		Name:       "sqlserver",
		Title:      "SQL Server",
		Aliases:    []string{"mssql", "sql_server", "sql-server"},
		QuoteIdent: quoteBracket,
		Terminator: ";",
		DropTable:  "DROP TABLE IF EXISTS",
		Types:      sqlServerTypes,
		Fallback:   "NVARCHAR(255)",
		Identity:   "IDENTITY(1,1)",
		BoolLiterals: map[string]string{
			"true":  "1",
			"false": "0",
		},
		AddColumns:    sqlServerAddColumns,
		ModifyColumns: sqlServerModifyColumns,
	})
}

// quoteBracket quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteBracket(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// sqlServerAddColumns renders ALTER TABLE t ADD a, b.
func sqlServerAddColumns(d *Dialect, table string, cols []columnDef) []string {
	items := make([]string, 0, len(cols))
	for _, c := range cols {
		items = append(items, d.line(c, modeAdd))
	}
	return []string{d.Statement(fmt.Sprintf("ALTER TABLE %s ADD %s", d.Quote(table), strings.Join(items, ", ")))}
}

// sqlServerModifyColumns renders one ALTER COLUMN statement per column.
// T-SQL cannot change defaults or identity through ALTER COLUMN, so only the
// type and nullability are emitted.
func sqlServerModifyColumns(d *Dialect, table string, cols []columnDef) []string {
	stmts := make([]string, 0, len(cols))
	for _, c := range cols {
		null := "NULL"
		if c.NotNull {
			null = "NOT NULL"
		}
		stmts = append(stmts, d.Statement(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s %s", d.Quote(table), c.Quoted, c.Type, null)))
	}
	return stmts
}
