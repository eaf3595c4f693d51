package parser

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemadoc/internal/attr"
	"github.com/tordrt/schemadoc/internal/schema"
)

// splitKeyword splits a line at its first whitespace.
func splitKeyword(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// hasKeyword reports whether line starts with kw (case-insensitive) followed
// by whitespace, ':' or '{'.
func hasKeyword(line, kw string) bool {
	if len(line) <= len(kw) || !strings.EqualFold(line[:len(kw)], kw) {
		return false
	}
	switch line[len(kw)] {
	case ' ', '\t', ':', '{':
		return true
	}
	return false
}

func unquote(s string) string {
	v, _ := attr.Unquote(s)
	return v
}

// parseTableHeader parses `users as U [note: 'x']`.
func parseTableHeader(h string) *schema.Table {
	h = strings.TrimSpace(h)
	t := &schema.Table{}

	if idx := strings.IndexByte(h, '['); idx >= 0 {
		if def, err := attr.Parse("table " + h[idx:]); err == nil {
			if note, ok := def.Get("note"); ok {
				t.Note = note.Value
			}
		}
		h = strings.TrimSpace(h[:idx])
	}

	tokens := headerTokens(h)
	if len(tokens) == 0 {
		return t
	}

	t.Name = unquote(tokens[0])
	if len(tokens) >= 3 && strings.EqualFold(tokens[1], "as") {
		t.Alias = unquote(tokens[2])
	}
	return t
}

// headerTokens splits on whitespace, keeping double-quoted names whole.
func headerTokens(h string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quoted bool
	)
	for _, r := range h {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case (r == ' ' || r == '\t') && !quoted:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// splitColumn splits a column line into its name and raw definition. The
// trailing comma of the definition is dropped.
func splitColumn(line string) (string, string) {
	var name, rest string

	if strings.HasPrefix(line, `"`) {
		end := strings.IndexByte(line[1:], '"')
		if end < 0 {
			return line, ""
		}
		name = line[1 : end+1]
		rest = line[end+2:]
	} else {
		idx := strings.IndexAny(line, " \t")
		if idx < 0 {
			return line, ""
		}
		name = line[:idx]
		rest = line[idx+1:]
	}

	def := strings.TrimSpace(rest)
	def = strings.TrimSpace(strings.TrimSuffix(def, ","))
	return name, def
}

func parseIndexColumn(part string) schema.IndexColumn {
	part = strings.TrimSpace(part)

	if strings.HasPrefix(part, "`") && strings.HasSuffix(part, "`") && len(part) > 1 {
		return schema.IndexColumn{Name: part[1 : len(part)-1], Expression: true}
	}

	fields := strings.Fields(part)
	col := schema.IndexColumn{Name: unquote(fields[0])}
	if len(fields) > 1 {
		switch strings.ToUpper(fields[1]) {
		case "ASC", "DESC":
			col.Sort = strings.ToUpper(fields[1])
		}
	}
	return col
}

var refOperators = []string{"<>", ">", "<", "-"}

// parseRef parses `posts.user_id > users.id [delete: cascade]`.
func parseRef(expr string) (schema.Ref, error) {
	expr = strings.TrimSpace(expr)
	if idx := strings.IndexByte(expr, '['); idx >= 0 {
		expr = strings.TrimSpace(expr[:idx])
	}

	pos, op := -1, ""
	for _, candidate := range refOperators {
		if i := strings.Index(expr, " "+candidate+" "); i >= 0 {
			pos, op = i+1, candidate
			break
		}
	}
	if pos < 0 {
		for _, candidate := range refOperators {
			if i := strings.Index(expr, candidate); i > 0 {
				pos, op = i, candidate
				break
			}
		}
	}
	if pos < 0 {
		return schema.Ref{}, fmt.Errorf("ref %q has no relationship operator", expr)
	}

	from, err := parseEndpoint(expr[:pos])
	if err != nil {
		return schema.Ref{}, err
	}
	to, err := parseEndpoint(expr[pos+len(op):])
	if err != nil {
		return schema.Ref{}, err
	}

	return schema.Ref{From: from, To: to, Cardinality: op}, nil
}

// parseEndpoint parses `users.id` or `users.(a, b)`.
func parseEndpoint(s string) (schema.RefEndpoint, error) {
	s = strings.TrimSpace(s)

	if open := strings.Index(s, ".("); open > 0 && strings.HasSuffix(s, ")") {
		parts, err := attr.Split(s[open+2 : len(s)-1])
		if err != nil {
			return schema.RefEndpoint{}, err
		}
		ep := schema.RefEndpoint{Table: unquote(s[:open])}
		for _, p := range parts {
			ep.Columns = append(ep.Columns, unquote(p))
		}
		return ep, nil
	}

	dot := strings.LastIndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return schema.RefEndpoint{}, fmt.Errorf("invalid ref endpoint %q", s)
	}
	return schema.RefEndpoint{
		Table:   unquote(s[:dot]),
		Columns: []string{unquote(s[dot+1:])},
	}, nil
}
