package ddl

import (
	"fmt"
	"strings"
)

func init() {
	Register(&Dialect{
		ID:         Oracle,
		Name:       "oracle",
		Title:      "Oracle",
		QuoteIdent: quoteDouble,
		Terminator: "\n/",
		DropTable:  "DROP TABLE",
		Types:      oracleTypes,
		Fallback:   "VARCHAR2(255)",
		Identity:   "GENERATED BY DEFAULT AS IDENTITY",
		BoolLiterals: map[string]string{
			"true":  "1",
			"false": "0",
		},
		CommentOn:     true,
		AddColumns:    oracleAddColumns,
		ModifyColumns: oracleModifyColumns,
	})
}

// oracleAddColumns renders ALTER TABLE t ADD (a, b).
func oracleAddColumns(d *Dialect, table string, cols []columnDef) []string {
	return []string{oracleBlock(d, table, "ADD", cols, modeAdd)}
}

// oracleModifyColumns renders ALTER TABLE t MODIFY (a, b).
func oracleModifyColumns(d *Dialect, table string, cols []columnDef) []string {
	return []string{oracleBlock(d, table, "MODIFY", cols, modeModify)}
}

func oracleBlock(d *Dialect, table, verb string, cols []columnDef, mode renderMode) string {
	items := make([]string, 0, len(cols))
	for _, c := range cols {
		items = append(items, d.line(c, mode))
	}
	return d.Statement(fmt.Sprintf("ALTER TABLE %s %s (%s)", d.Quote(table), verb, strings.Join(items, ", ")))
}
