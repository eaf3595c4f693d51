package ddl

import "fmt"

// UnknownKeywordError reports a column attribute outside the constraint
// vocabulary. Generation stops when it occurs.
type UnknownKeywordError struct {
	Table   string
	Column  string
	Keyword string
}

func (e *UnknownKeywordError) Error() string {
	return fmt.Sprintf("unknown attribute %q on column %s.%s", e.Keyword, e.Table, e.Column)
}

// UnsupportedDialectError reports a dialect selector outside the supported set.
type UnsupportedDialectError struct {
	Value string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("unsupported dialect %q", e.Value)
}
