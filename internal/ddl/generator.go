// Package ddl renders schema deltas and full schemas as DDL scripts for
// MySQL, MariaDB, PostgreSQL, Oracle and SQL Server.
//
// One generation skeleton serves every dialect. The differences between
// dialects (identifier quoting, statement terminator, type names, ADD and
// MODIFY block syntax) live in a *Dialect descriptor looked up from the
// registry.
package ddl

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tordrt/schemadoc/internal/diff"
	"github.com/tordrt/schemadoc/internal/parser"
	"github.com/tordrt/schemadoc/internal/schema"
)

// Tool is written into the header of every script.
const Tool = "schemadoc"

// NoChanges is the comment emitted for an empty delta.
const NoChanges = "-- No changes detected"

// Options configures a Generator.
type Options struct {
	// Logger receives per-table failures. Nil discards them.
	Logger *slog.Logger
	// Label is an optional version label written to the header.
	Label string
}

// Generator renders DDL scripts.
type Generator struct {
	logger *slog.Logger
	label  string
}

// New creates a Generator.
func New(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{logger: logger, label: opts.Label}
}

// Generate renders delta for the dialect with default options.
func Generate(delta *diff.Delta, id DialectID) (string, error) {
	return New(Options{}).Generate(delta, id)
}

// GenerateFromModel renders the full schema text for the dialect with
// default options.
func GenerateFromModel(text string, id DialectID) (string, error) {
	return New(Options{}).GenerateFromModel(text, id)
}

// Generate renders the statements that transform the "before" side of delta
// into its "after" side. Added tables come first, then removed tables, then
// modified tables.
func (g *Generator) Generate(delta *diff.Delta, id DialectID) (string, error) {
	d, err := Lookup(id)
	if err != nil {
		return "", err
	}
	return g.render(d, delta, nil)
}

// GenerateFromModel parses text and renders CREATE statements for every
// table it declares.
func (g *Generator) GenerateFromModel(text string, id DialectID) (string, error) {
	d, err := Lookup(id)
	if err != nil {
		return "", err
	}

	model, err := parser.New(g.logger).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse schema: %w", err)
	}

	return g.generateModel(d, model)
}

// GenerateModel renders CREATE statements for every table of model.
func (g *Generator) GenerateModel(model *schema.Model, id DialectID) (string, error) {
	d, err := Lookup(id)
	if err != nil {
		return "", err
	}
	return g.generateModel(d, model)
}

func (g *Generator) generateModel(d *Dialect, model *schema.Model) (string, error) {
	delta, err := diff.Diff(&schema.Model{}, model)
	if err != nil {
		return "", err
	}
	return g.render(d, delta, model)
}

func (g *Generator) render(d *Dialect, delta *diff.Delta, model *schema.Model) (string, error) {
	var b strings.Builder
	g.writeHeader(&b, d, model)

	if delta.IsEmpty() {
		b.WriteString(NoChanges)
		b.WriteString("\n")
		return b.String(), nil
	}

	groups := [][]diff.TableDiff{delta.Added(), delta.Removed(), delta.Modified()}
	for _, group := range groups {
		for _, td := range group {
			stmts, err := g.tableStatements(d, td)
			if err != nil {
				var uk *UnknownKeywordError
				if errors.As(err, &uk) {
					return "", err
				}
				g.logger.Warn("failed to generate table DDL",
					"table", td.Name,
					"dialect", d.Name,
					"error", err,
				)
				stmts = []string{errorComment(err)}
			}
			if len(stmts) == 0 {
				continue
			}
			b.WriteString(strings.Join(stmts, "\n"))
			b.WriteString("\n\n")
		}
	}

	if model != nil {
		if refs := d.modelRefs(model); len(refs) > 0 {
			b.WriteString(strings.Join(refs, "\n"))
			b.WriteString("\n\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func (g *Generator) writeHeader(b *strings.Builder, d *Dialect, model *schema.Model) {
	fmt.Fprintf(b, "-- Generated by %s\n", Tool)
	fmt.Fprintf(b, "-- Dialect: %s\n", d.Title)
	if model != nil && model.Project != "" {
		fmt.Fprintf(b, "-- Project: %s\n", model.Project)
	}
	if g.label != "" {
		fmt.Fprintf(b, "-- Version: %s\n", g.label)
	}
	b.WriteString("\n")
}

func errorComment(err error) string {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	return "-- Error generating DDL: " + msg
}

// tableStatements renders one table diff. Panics are converted to errors so
// one bad table cannot abort the script.
func (g *Generator) tableStatements(d *Dialect, td diff.TableDiff) (stmts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			stmts = nil
			err = fmt.Errorf("table %s: %v", td.Name, r)
		}
	}()

	switch td.Type {
	case diff.Added:
		return d.createTable(td)
	case diff.Removed:
		return []string{d.Statement(d.DropTable + " " + d.Quote(td.Name))}, nil
	case diff.Modified:
		return d.alterTable(td)
	default:
		return nil, fmt.Errorf("table %s: unknown change type %q", td.Name, td.Type)
	}
}

func (d *Dialect) createTable(td diff.TableDiff) ([]string, error) {
	table := td.Table
	if table == nil {
		table = &schema.Table{Name: td.Name}
		for _, cd := range td.Columns {
			table.Columns = append(table.Columns, schema.Column{Name: cd.Name, Type: cd.CurrentType})
		}
	}

	cols := make([]columnDef, 0, len(td.Columns))
	for _, cd := range td.Columns {
		col := schema.Column{Name: cd.Name, Type: cd.CurrentType}
		if cd.CurrentValue != nil {
			col = *cd.CurrentValue
		}
		c, err := translateColumn(d, td.Name, col)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}

	lines := make([]string, 0, len(cols)+2)
	var pk []string
	for _, c := range cols {
		lines = append(lines, d.line(c, modeCreate))
		if c.PrimaryKey {
			pk = append(pk, c.Quoted)
		}
	}
	if len(pk) == 0 {
		for _, idx := range table.Indexes {
			if idx.Primary {
				pk = d.indexColumns(idx)
				break
			}
		}
	}
	if len(pk) > 0 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}
	if d.TableLevelForeignKeys {
		for _, c := range cols {
			if referencing(c) {
				lines = append(lines, d.foreignKey(c))
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n  %s\n)%s", d.Quote(td.Name), strings.Join(lines, ",\n  "), d.TableSuffix)
	if d.InlineComment && table.Note != "" {
		b.WriteString(" COMMENT=" + quoteString(table.Note))
	}

	stmts := []string{d.Statement(b.String())}
	if d.CommentOn && table.Note != "" {
		stmts = append(stmts, d.Statement(fmt.Sprintf("COMMENT ON TABLE %s IS %s", d.Quote(td.Name), quoteString(table.Note))))
	}
	stmts = append(stmts, d.commentStatements(td.Name, cols)...)
	stmts = append(stmts, d.createIndexes(td.Name, table.Indexes, cols)...)

	return stmts, nil
}

func (d *Dialect) alterTable(td diff.TableDiff) ([]string, error) {
	var (
		stmts    []string
		added    []columnDef
		modified []columnDef
	)

	for _, cd := range td.ColumnsOfType(diff.Removed) {
		stmts = append(stmts, d.Statement(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.Quote(td.Name), d.QuoteIdent(cd.Name))))
	}

	for _, cd := range td.Columns {
		if cd.Type == diff.Removed {
			continue
		}
		c, err := translateColumn(d, td.Name, schema.Column{Name: cd.Name, Type: cd.CurrentType})
		if err != nil {
			return nil, err
		}
		if cd.Type == diff.Added {
			added = append(added, c)
		} else {
			c.WasIncrement = autoIncrementing(cd.BeforeType)
			modified = append(modified, c)
		}
	}

	if len(added) > 0 {
		stmts = append(stmts, d.AddColumns(d, td.Name, added)...)
		stmts = append(stmts, d.commentStatements(td.Name, added)...)
		stmts = append(stmts, d.createIndexes(td.Name, nil, added)...)
	}
	if len(modified) > 0 {
		stmts = append(stmts, d.ModifyColumns(d, td.Name, modified)...)
		stmts = append(stmts, d.commentStatements(td.Name, modified)...)
	}

	return stmts, nil
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func indexName(prefix, table string, cols []string) string {
	name := prefix + "_" + table + "_" + strings.Join(cols, "_")
	return strings.Trim(nonIdent.ReplaceAllString(name, "_"), "_")
}

func (d *Dialect) indexColumns(idx schema.Index) []string {
	out := make([]string, 0, len(idx.Columns))
	for _, c := range idx.Columns {
		col := c.Name
		if !c.Expression {
			col = d.QuoteIdent(c.Name)
		} else {
			col = "(" + col + ")"
		}
		if c.Sort != "" {
			col += " " + c.Sort
		}
		out = append(out, col)
	}
	return out
}

// createIndexes renders CREATE INDEX statements for declared indexes and
// for columns carrying the index attribute.
func (d *Dialect) createIndexes(table string, indexes []schema.Index, cols []columnDef) []string {
	var stmts []string

	for _, idx := range indexes {
		if idx.Primary || len(idx.Columns) == 0 {
			continue
		}
		names := make([]string, 0, len(idx.Columns))
		for _, c := range idx.Columns {
			names = append(names, c.Name)
		}

		name := idx.Name
		prefix := "idx"
		if idx.Unique {
			prefix = "uq"
		}
		if name == "" {
			name = indexName(prefix, table, names)
		}

		kind := "INDEX"
		if idx.Unique {
			kind = "UNIQUE INDEX"
		}

		using := ""
		if idx.Type != "" && d.ID == PostgreSQL {
			using = " USING " + strings.ToLower(idx.Type)
		}

		stmt := fmt.Sprintf("CREATE %s %s ON %s%s (%s)", kind, d.QuoteIdent(name), d.Quote(table), using, strings.Join(d.indexColumns(idx), ", "))
		if idx.Type != "" && (d.ID == MySQL || d.ID == MariaDB) {
			stmt += " USING " + strings.ToUpper(idx.Type)
		}
		stmts = append(stmts, d.Statement(stmt))
	}

	for _, c := range cols {
		if !c.Indexed {
			continue
		}
		name := indexName("idx", table, []string{c.Name})
		stmts = append(stmts, d.Statement(fmt.Sprintf("CREATE INDEX %s ON %s (%s)", d.QuoteIdent(name), d.Quote(table), c.Quoted)))
	}

	return stmts
}

// modelRefs renders foreign keys declared with model-level Ref statements.
func (d *Dialect) modelRefs(model *schema.Model) []string {
	var stmts []string
	for _, r := range model.Refs {
		from, to := r.From, r.To
		switch r.Cardinality {
		case "<":
			from, to = to, from
		case "<>":
			stmts = append(stmts, fmt.Sprintf("-- Skipped many-to-many ref %s <> %s", from.Table, to.Table))
			continue
		}
		if len(from.Columns) == 0 || len(from.Columns) != len(to.Columns) {
			stmts = append(stmts, fmt.Sprintf("-- Skipped ref %s -> %s: column count mismatch", from.Table, to.Table))
			continue
		}

		constraint := ""
		if r.Name != "" {
			constraint = "CONSTRAINT " + d.QuoteIdent(r.Name) + " "
		}
		stmts = append(stmts, d.Statement(fmt.Sprintf("ALTER TABLE %s ADD %sFOREIGN KEY (%s) REFERENCES %s (%s)",
			d.Quote(from.Table), constraint, d.quoteList(from.Columns), d.Quote(to.Table), d.quoteList(to.Columns))))
	}
	return stmts
}

func (d *Dialect) quoteList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.QuoteIdent(n)
	}
	return strings.Join(out, ", ")
}
