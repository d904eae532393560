package analytics

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// FilterError reports a malformed selection. It is never fatal: the stage
// still returns an (empty) table and callers surface the error as a warning.
type FilterError struct {
	Start civil.Date
	End   civil.Date
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid date range: end %s is before start %s", e.End, e.Start)
}

// AggregationError reports a query that cannot run against a table, most
// often because a grouping or measure column is absent.
type AggregationError struct {
	Table  string
	Column string
	Reason string
}

func (e *AggregationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("aggregate %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("aggregate %s: column %q: %s", e.Table, e.Column, e.Reason)
}
