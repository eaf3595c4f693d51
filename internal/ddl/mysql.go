package ddl

import (
	"fmt"
	"strings"
)

func init() {
	Register(newMySQL(MySQL, "mysql", "MySQL"))
	Register(newMySQL(MariaDB, "mariadb", "MariaDB"))
}

func newMySQL(id DialectID, name, title string) *Dialect {
	return &Dialect{
		ID:                    id,
		Name:                  name,
		Title:                 title,
		QuoteIdent:            quoteBacktick,
		Terminator:            ";",
		TableSuffix:           " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		DropTable:             "DROP TABLE IF EXISTS",
		Types:                 mysqlTypes,
		Fallback:              "VARCHAR(255)",
		Identity:              "AUTO_INCREMENT",
		InlineComment:         true,
		TableLevelForeignKeys: true,
		AddColumns:            mysqlAddColumns,
		ModifyColumns:         mysqlModifyColumns,
	}
}

// quoteBacktick quotes an identifier with backticks, doubling embedded ones.
func quoteBacktick(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// mysqlAddColumns renders ALTER TABLE t ADD COLUMN a, ADD COLUMN b. Column
// refs become ADD FOREIGN KEY clauses in the same statement.
func mysqlAddColumns(d *Dialect, table string, cols []columnDef) []string {
	items := make([]string, 0, len(cols))
	for _, c := range cols {
		items = append(items, "ADD COLUMN "+d.line(c, modeAdd))
	}
	for _, c := range cols {
		if referencing(c) {
			items = append(items, "ADD "+d.foreignKey(c))
		}
	}
	return []string{d.Statement(fmt.Sprintf("ALTER TABLE %s %s", d.Quote(table), strings.Join(items, ", ")))}
}

func mysqlModifyColumns(d *Dialect, table string, cols []columnDef) []string {
	items := make([]string, 0, len(cols))
	for _, c := range cols {
		items = append(items, "MODIFY COLUMN "+d.line(c, modeModify))
	}
	return []string{d.Statement(fmt.Sprintf("ALTER TABLE %s %s", d.Quote(table), strings.Join(items, ", ")))}
}
