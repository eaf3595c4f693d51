package ddl

import (
	"fmt"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"
	"github.com/auxten/postgresql-parser/pkg/walk"
)

// ValidationReport summarizes a script that parsed cleanly.
type ValidationReport struct {
	Statements int
	// Tables lists tables touched by CREATE TABLE or ALTER TABLE, in order.
	Tables []string
}

// ValidatePostgres parses a generated PostgreSQL script and reports the
// statements it contains.
func ValidatePostgres(script string) (*ValidationReport, error) {
	stmts, err := parser.Parse(script)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL script: %w", err)
	}

	report := &ValidationReport{Statements: len(stmts)}
	seen := make(map[string]bool)
	note := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			report.Tables = append(report.Tables, name)
		}
	}

	w := &walk.AstWalker{
		Fn: func(ctx interface{}, node interface{}) (stop bool) {
			switch n := node.(type) {
			case *tree.CreateTable:
				note(n.Table.Table())
			case *tree.AlterTable:
				tableName := n.Table.ToTableName()
				note(string(tableName.TableName))
			}
			return false
		},
	}
	if _, err := w.Walk(stmts, nil); err != nil {
		return nil, fmt.Errorf("failed to walk PostgreSQL script: %w", err)
	}

	return report, nil
}
