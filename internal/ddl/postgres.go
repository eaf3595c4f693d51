package ddl

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

func init() {
	Register(&Dialect{
		ID:         PostgreSQL,
		Name:       "postgresql",
		Title:      "PostgreSQL",
		Aliases:    []string{"postgres", "pg"},
		QuoteIdent: quoteDouble,
		Terminator: ";",
		DropTable:  "DROP TABLE IF EXISTS",
		Types:      postgresTypes,
		Fallback:   "VARCHAR",
		Identity:   "GENERATED BY DEFAULT AS IDENTITY",
		SerialTypes: map[string]string{
			"INTEGER":  "SERIAL",
			"BIGINT":   "BIGSERIAL",
			"SMALLINT": "SMALLSERIAL",
		},
		CommentOn:     true,
		AddColumns:    postgresAddColumns,
		ModifyColumns: postgresModifyColumns,
	})
}

// quoteDouble quotes an identifier with double quotes using pgx's sanitizer.
func quoteDouble(id string) string {
	return pgx.Identifier{id}.Sanitize()
}

func postgresAddColumns(d *Dialect, table string, cols []columnDef) []string {
	items := make([]string, 0, len(cols))
	for _, c := range cols {
		items = append(items, "ADD COLUMN "+d.line(c, modeAdd))
	}
	return []string{d.Statement(fmt.Sprintf("ALTER TABLE %s %s", d.Quote(table), strings.Join(items, ", ")))}
}

// serialBase maps serial pseudo-types onto the integer type they stand for.
// ALTER COLUMN ... TYPE only accepts the real type.
var serialBase = map[string]string{
	"SERIAL":      "INTEGER",
	"BIGSERIAL":   "BIGINT",
	"SMALLSERIAL": "SMALLINT",
}

// postgresModifyColumns renders one ALTER TABLE with per-column ALTER COLUMN
// actions for the type, nullability, default and identity.
func postgresModifyColumns(d *Dialect, table string, cols []columnDef) []string {
	var actions []string
	for _, c := range cols {
		alter := "ALTER COLUMN " + c.Quoted
		typ, increment := c.Type, c.Increment
		if base, ok := serialBase[typ]; ok {
			typ, increment = base, true
		}

		actions = append(actions, alter+" TYPE "+typ)
		if c.NotNull {
			actions = append(actions, alter+" SET NOT NULL")
		} else {
			actions = append(actions, alter+" DROP NOT NULL")
		}
		switch {
		case c.HasDefault:
			actions = append(actions, alter+" SET DEFAULT "+c.Default)
		case !increment:
			actions = append(actions, alter+" DROP DEFAULT")
		}
		// An existing sequence or identity default is left in place.
		if increment && !c.WasIncrement {
			actions = append(actions, alter+" ADD "+d.Identity)
		}
	}
	return []string{d.Statement(fmt.Sprintf("ALTER TABLE %s %s", d.Quote(table), strings.Join(actions, ", ")))}
}
