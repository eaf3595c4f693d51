// Package attr splits a column's raw type definition into its base data type
// and the ordered list of bracketed attributes that follow it.
//
//	varchar(50) [pk, not null, note: "login, unique", default: `now()`]
//
// Commas nested inside parentheses, brackets or quotes never split the list.
package attr

import (
	"fmt"
	"strings"
)

// FlagValue is the value stored for bare attributes such as pk or unique.
const FlagValue = "true"

// Attribute is a single column modifier.
type Attribute struct {
	// Key is lower-cased with inner whitespace collapsed ("not null").
	Key string `json:"key" yaml:"key"`
	// Value is the unquoted value, or FlagValue for bare flags.
	Value string `json:"value" yaml:"value"`
	// Flag reports whether the attribute was written without a value.
	Flag bool `json:"flag,omitempty" yaml:"flag,omitempty"`
	// Quote is the quote rune stripped from Value, or 0.
	Quote rune `json:"quote,omitempty" yaml:"quote,omitempty"`
}

// Definition is a decomposed raw type definition.
type Definition struct {
	DataType   string
	Attributes []Attribute
}

// Get returns the first attribute with the given key.
func (d Definition) Get(key string) (Attribute, bool) {
	for _, a := range d.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	return Attribute{}, false
}

// Has reports whether any of the keys is present.
func (d Definition) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := d.Get(k); ok {
			return true
		}
	}
	return false
}

// ParseError reports malformed bracket or quote nesting.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("attribute parse error at offset %d in %q: %s", e.Pos, e.Input, e.Msg)
}

// Parse splits raw into its data type and attributes. A definition without a
// bracketed list has no attributes.
func Parse(raw string) (Definition, error) {
	raw = strings.TrimSpace(raw)

	open, err := findOpenBracket(raw)
	if err != nil {
		return Definition{}, err
	}
	if open < 0 {
		return Definition{DataType: raw}, nil
	}

	end, err := matchingBracket(raw, open)
	if err != nil {
		return Definition{}, err
	}

	parts, err := Split(raw[open+1 : end])
	if err != nil {
		return Definition{}, err
	}

	def := Definition{
		DataType:   strings.TrimSpace(raw[:open]),
		Attributes: make([]Attribute, 0, len(parts)),
	}
	for _, p := range parts {
		def.Attributes = append(def.Attributes, parseAttribute(p))
	}
	return def, nil
}

// Split splits an attribute list on top-level commas. Empty items are dropped.
func Split(s string) ([]string, error) {
	var (
		parts []string
		sc    scanner
		start int
	)

	for i := 0; i < len(s); i++ {
		top, err := sc.step(s, i)
		if err != nil {
			return nil, err
		}
		if top && s[i] == ',' {
			if p := strings.TrimSpace(s[start:i]); p != "" {
				parts = append(parts, p)
			}
			start = i + 1
		}
	}
	if err := sc.finish(s); err != nil {
		return nil, err
	}

	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts, nil
}

// Unquote strips one pair of matching outer quotes and returns the quote rune.
func Unquote(s string) (string, rune) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s, 0
	}
	q := s[0]
	if (q == '"' || q == '\'' || q == '`') && s[len(s)-1] == q {
		return s[1 : len(s)-1], rune(q)
	}
	return s, 0
}

// NormalizeKey lower-cases a key and collapses inner whitespace.
func NormalizeKey(k string) string {
	return strings.Join(strings.Fields(strings.ToLower(k)), " ")
}

func parseAttribute(part string) Attribute {
	idx := topLevelIndex(part, ':')
	if idx < 0 {
		return Attribute{Key: NormalizeKey(part), Value: FlagValue, Flag: true}
	}

	value, quote := Unquote(part[idx+1:])
	return Attribute{
		Key:   NormalizeKey(part[:idx]),
		Value: value,
		Quote: quote,
	}
}

// topLevelIndex returns the index of the first c outside quotes and nesting.
func topLevelIndex(s string, c byte) int {
	var sc scanner
	for i := 0; i < len(s); i++ {
		top, err := sc.step(s, i)
		if err != nil {
			return -1
		}
		if top && s[i] == c {
			return i
		}
	}
	return -1
}

func findOpenBracket(raw string) (int, error) {
	var sc scanner
	for i := 0; i < len(raw); i++ {
		if sc.quote == 0 && sc.depth == 0 && raw[i] == '[' {
			// "int[]" is an array type, not an attribute list
			if i+1 < len(raw) && raw[i+1] == ']' {
				i++
				continue
			}
			return i, nil
		}
		if _, err := sc.step(raw, i); err != nil {
			return -1, err
		}
	}
	return -1, sc.finish(raw)
}

func matchingBracket(raw string, open int) (int, error) {
	var sc scanner
	for i := open; i < len(raw); i++ {
		if _, err := sc.step(raw, i); err != nil {
			return -1, err
		}
		if sc.quote == 0 && sc.depth == 0 {
			return i, nil
		}
	}
	return -1, &ParseError{Input: raw, Pos: open, Msg: "unterminated attribute list"}
}

// scanner tracks quote and nesting state one byte at a time.
type scanner struct {
	quote   byte
	escaped bool
	depth   int
	stack   []byte
}

// step consumes s[i] and reports whether that byte sits at the top level,
// outside any quote or nesting.
func (sc *scanner) step(s string, i int) (bool, error) {
	c := s[i]

	if sc.quote != 0 {
		switch {
		case sc.escaped:
			sc.escaped = false
		case c == '\\':
			sc.escaped = true
		case c == sc.quote:
			sc.quote = 0
		}
		return false, nil
	}

	switch c {
	case '"', '\'', '`':
		sc.quote = c
		return false, nil
	case '(', '[', '{':
		sc.stack = append(sc.stack, closerFor(c))
		sc.depth++
		return false, nil
	case ')', ']', '}':
		if sc.depth == 0 || sc.stack[len(sc.stack)-1] != c {
			return false, &ParseError{Input: s, Pos: i, Msg: fmt.Sprintf("unexpected %q", c)}
		}
		sc.stack = sc.stack[:len(sc.stack)-1]
		sc.depth--
		return false, nil
	}

	return sc.depth == 0, nil
}

func (sc *scanner) finish(s string) error {
	if sc.quote != 0 {
		return &ParseError{Input: s, Pos: len(s), Msg: fmt.Sprintf("unterminated %c quote", sc.quote)}
	}
	if sc.depth != 0 {
		return &ParseError{Input: s, Pos: len(s), Msg: fmt.Sprintf("missing %q", sc.stack[len(sc.stack)-1])}
	}
	return nil
}

func closerFor(c byte) byte {
	switch c {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}
