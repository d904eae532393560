package loader

import (
	"fmt"
	"strings"
)

// LoadError reports a source that could not be turned into a table: the
// file is missing or unreadable, its format is malformed, a required
// column is absent or a required cell cannot be parsed. It is fatal for
// the session that triggered the load.
type LoadError struct {
	URI     string
	Columns []string // missing required columns, if any
	Row     int      // 1-based data row for cell errors, 0 otherwise
	Hint    string
	Err     error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s", e.URI)
	if len(e.Columns) > 0 {
		fmt.Fprintf(&b, ": missing required column(s) %s", strings.Join(e.Columns, ", "))
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, " (%s)", e.Hint)
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }
