// Package parser turns schema text written in the DBML-like schema language
// into a schema.Model.
//
// Parsing is line oriented. Recognized top-level constructs are Project,
// Table, Enum, Ref and TableGroup blocks; anything else is skipped and
// reported at debug level. Column lines are kept structural: the name is the
// text before the first space and the remainder is stored verbatim as the
// column's raw type definition.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tordrt/schemadoc/internal/attr"
	"github.com/tordrt/schemadoc/internal/schema"
)

// SchemaParseError reports malformed block nesting or bracket and quote
// nesting inside a line.
type SchemaParseError struct {
	Line int
	Text string
	Err  error
}

func (e *SchemaParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema parse error on line %d (%q): %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("schema parse error: %v", e.Err)
}

func (e *SchemaParseError) Unwrap() error {
	return e.Err
}

type blockKind int

const (
	blockNone blockKind = iota
	blockProject
	blockTable
	blockIndexes
	blockNote
	blockEnum
	blockRef
	blockTableGroup
	blockIgnored
)

func (k blockKind) String() string {
	switch k {
	case blockProject:
		return "Project"
	case blockTable:
		return "Table"
	case blockIndexes:
		return "indexes"
	case blockNote:
		return "Note"
	case blockEnum:
		return "Enum"
	case blockRef:
		return "Ref"
	case blockTableGroup:
		return "TableGroup"
	case blockIgnored:
		return "skipped block"
	default:
		return "top level"
	}
}

// Parser parses schema text. The zero value is not usable; call New.
type Parser struct {
	logger *slog.Logger
}

// New creates a parser. A nil logger discards output.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{logger: logger}
}

// Parse parses text with a parser that discards log output.
func Parse(text string) (*schema.Model, error) {
	return New(nil).Parse(text)
}

// Parse parses text into a model. Empty input yields an empty model.
func (p *Parser) Parse(text string) (model *schema.Model, err error) {
	st := &state{
		model:  &schema.Model{},
		logger: p.logger,
	}

	defer func() {
		if r := recover(); r != nil {
			model = nil
			err = &SchemaParseError{Line: st.lineNo, Text: st.line, Err: fmt.Errorf("%v", r)}
		}
	}()

	for i, raw := range strings.Split(text, "\n") {
		st.lineNo = i + 1
		st.line = strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if st.line == "" || strings.HasPrefix(st.line, "//") {
			continue
		}
		if err := st.consume(); err != nil {
			return nil, &SchemaParseError{Line: st.lineNo, Text: st.line, Err: err}
		}
	}

	if len(st.stack) > 0 {
		open := st.stack[len(st.stack)-1]
		return nil, &SchemaParseError{
			Line: open.line,
			Text: open.text,
			Err:  fmt.Errorf("unterminated %s block", open.kind),
		}
	}

	return st.model, nil
}

type openBlock struct {
	kind blockKind
	line int
	text string
}

// state carries the in-progress model and the open block stack.
type state struct {
	model  *schema.Model
	logger *slog.Logger

	stack  []openBlock
	table  *schema.Table
	enum   *schema.Enum
	group  *schema.TableGroup
	note   []string
	lineNo int
	line   string
}

func (s *state) top() blockKind {
	if len(s.stack) == 0 {
		return blockNone
	}
	return s.stack[len(s.stack)-1].kind
}

func (s *state) push(k blockKind) {
	s.stack = append(s.stack, openBlock{kind: k, line: s.lineNo, text: s.line})
}

func (s *state) pop() blockKind {
	k := s.stack[len(s.stack)-1].kind
	s.stack = s.stack[:len(s.stack)-1]
	return k
}

func (s *state) skip(reason string) {
	s.logger.Debug("skipping schema line",
		"line", s.lineNo,
		"text", s.line,
		"reason", reason,
		"block", s.top().String(),
	)
}

func (s *state) consume() error {
	if s.line == "}" {
		return s.closeBlock()
	}

	switch s.top() {
	case blockNone:
		return s.topLevel()
	case blockProject:
		if strings.HasSuffix(s.line, "{") {
			s.push(blockNote)
			return nil
		}
		s.skip("project setting")
		return nil
	case blockTable:
		return s.tableLine()
	case blockIndexes:
		return s.indexLine()
	case blockNote:
		s.note = append(s.note, s.line)
		return nil
	case blockEnum:
		s.enumLine()
		return nil
	case blockRef:
		return s.refLine(s.line)
	case blockTableGroup:
		s.group.Tables = append(s.group.Tables, unquote(s.line))
		return nil
	case blockIgnored:
		s.skipBlock("inside skipped block")
		return nil
	}
	return nil
}

// skipBlock skips the current line, opening an ignored block when the line
// ends with a brace so the matching close stays balanced.
func (s *state) skipBlock(reason string) {
	s.skip(reason)
	if strings.HasSuffix(s.line, "{") {
		s.push(blockIgnored)
	}
}

func (s *state) closeBlock() error {
	if len(s.stack) == 0 {
		s.skip("unmatched closing brace")
		return nil
	}

	switch s.pop() {
	case blockTable:
		s.model.Tables = append(s.model.Tables, *s.table)
		s.table = nil
	case blockNote:
		if s.table != nil {
			s.table.Note = unquote(strings.Join(s.note, "\n"))
		}
		s.note = nil
	case blockEnum:
		s.model.Enums = append(s.model.Enums, *s.enum)
		s.enum = nil
	case blockTableGroup:
		s.model.TableGroups = append(s.model.TableGroups, *s.group)
		s.group = nil
	}
	return nil
}

func (s *state) topLevel() error {
	if hasKeyword(s.line, "ref") {
		return s.refHeader(s.line[len("ref"):])
	}

	keyword, rest := splitKeyword(s.line)

	switch strings.ToLower(keyword) {
	case "project":
		name := strings.TrimSpace(strings.TrimSuffix(rest, "{"))
		s.model.Project = unquote(name)
		if strings.HasSuffix(rest, "{") {
			s.push(blockProject)
		}
	case "table":
		if !strings.HasSuffix(rest, "{") {
			s.skip("table header without {")
			return nil
		}
		table := parseTableHeader(strings.TrimSuffix(rest, "{"))
		if table.Name == "" {
			s.skipBlock("table name is missing")
			return nil
		}
		s.table = table
		s.push(blockTable)
	case "enum", "tablegroup":
		if !strings.HasSuffix(rest, "{") {
			s.skip(keyword + " header without {")
			return nil
		}
		name := unquote(strings.TrimSpace(strings.TrimSuffix(rest, "{")))
		if strings.EqualFold(keyword, "enum") {
			s.enum = &schema.Enum{Name: name}
			s.push(blockEnum)
		} else {
			s.group = &schema.TableGroup{Name: name}
			s.push(blockTableGroup)
		}
	default:
		s.skipBlock("unrecognized construct")
	}
	return nil
}

func (s *state) tableLine() error {
	keyword, rest := splitKeyword(s.line)

	switch strings.ToLower(keyword) {
	case "note:":
		s.table.Note = unquote(rest)
		return nil
	case "note":
		switch {
		case strings.HasPrefix(rest, ":"):
			s.table.Note = unquote(strings.TrimPrefix(rest, ":"))
			return nil
		case rest == "{":
			s.push(blockNote)
			return nil
		}
	case "indexes":
		if rest == "{" {
			s.push(blockIndexes)
			return nil
		}
	}

	if strings.HasSuffix(s.line, "{") {
		s.skipBlock("unexpected block inside table " + s.table.Name)
		return nil
	}

	name, def := splitColumn(s.line)
	if def == "" {
		s.skip("column line without a type")
		return nil
	}

	s.table.Columns = append(s.table.Columns, schema.Column{Name: name, Type: def})
	return nil
}

func (s *state) indexLine() error {
	def, err := attr.Parse(s.line)
	if err != nil {
		return err
	}

	idx := schema.Index{}
	for _, a := range def.Attributes {
		switch a.Key {
		case "unique":
			idx.Unique = true
		case "pk", "primary key":
			idx.Primary = true
		case "name":
			idx.Name = a.Value
		case "type":
			idx.Type = a.Value
		case "note":
			idx.Note = a.Value
		}
	}

	target := def.DataType
	if strings.HasPrefix(target, "(") && strings.HasSuffix(target, ")") {
		parts, err := attr.Split(target[1 : len(target)-1])
		if err != nil {
			return err
		}
		for _, part := range parts {
			idx.Columns = append(idx.Columns, parseIndexColumn(part))
		}
	} else if target != "" {
		idx.Columns = append(idx.Columns, parseIndexColumn(target))
	}

	if len(idx.Columns) == 0 {
		s.skip("index without columns")
		return nil
	}

	s.table.Indexes = append(s.table.Indexes, idx)
	return nil
}

func (s *state) enumLine() {
	def, err := attr.Parse(s.line)
	if err != nil {
		s.skip(err.Error())
		return
	}

	v := schema.EnumValue{Name: unquote(def.DataType)}
	if note, ok := def.Get("note"); ok {
		v.Note = note.Value
	}
	s.enum.Values = append(s.enum.Values, v)
}

// refHeader handles everything after the Ref keyword: an optional name, then
// either ": <expr>" or "{".
func (s *state) refHeader(rest string) error {
	rest = strings.TrimSpace(rest)

	if strings.HasSuffix(rest, "{") {
		s.push(blockRef)
		return nil
	}

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		s.skip("ref without expression")
		return nil
	}

	name := unquote(rest[:colon])
	count := len(s.model.Refs)
	if err := s.refLine(rest[colon+1:]); err != nil {
		return err
	}
	if name != "" && len(s.model.Refs) > count {
		s.model.Refs[len(s.model.Refs)-1].Name = name
	}
	return nil
}

// refLine appends the relationship in expr. Malformed relationships are
// skipped; only bracket or quote nesting errors fail the parse.
func (s *state) refLine(expr string) error {
	ref, err := parseRef(expr)
	if err != nil {
		if pe := (*attr.ParseError)(nil); errors.As(err, &pe) {
			return err
		}
		s.skip(err.Error())
		return nil
	}
	s.model.Refs = append(s.model.Refs, ref)
	return nil
}
