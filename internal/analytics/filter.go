package analytics

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/coffee-dashboard/internal/domain"
)

// Selection is the user's filter state: allowed store locations and an
// inclusive date interval. Per-page category pickers narrow further with
// FilterCategory.
//
// A nil Locations slice and an empty one mean the same thing: nothing is
// allowed. Use DefaultSelection to start from "everything".
// A zero Start or End leaves that side of the interval open.
type Selection struct {
	Locations []string   `json:"locations"`
	Start     civil.Date `json:"start"`
	End       civil.Date `json:"end"`
}

// DefaultSelection selects every location and the full date span of t.
func DefaultSelection(t *Table) Selection {
	sel := Selection{Locations: t.Values(ColLocation)}
	if start, end, ok := t.DateSpan(); ok {
		sel.Start = start
		sel.End = end
	}
	return sel
}

// Validate returns a *FilterError when the interval is inverted.
func (s Selection) Validate() error {
	if s.Start.IsValid() && s.End.IsValid() && s.End.Before(s.Start) {
		return &FilterError{Start: s.Start, End: s.End}
	}
	return nil
}

// Contains reports whether a single transaction passes the selection.
func (s Selection) Contains(tx domain.Transaction) bool {
	return s.matcher().match(tx)
}

type matcher struct {
	locations  map[string]bool
	start, end civil.Date
}

func (s Selection) matcher() matcher {
	return matcher{
		locations: toSet(s.Locations),
		start:     s.Start,
		end:       s.End,
	}
}

func (m matcher) match(tx domain.Transaction) bool {
	if !m.locations[tx.StoreLocation] {
		return false
	}
	d := civil.DateOf(tx.Timestamp)
	if m.start.IsValid() && d.Before(m.start) {
		return false
	}
	if m.end.IsValid() && d.After(m.end) {
		return false
	}
	return true
}

// Apply returns the rows of t that pass sel. An inverted date interval
// yields an empty table together with a *FilterError; an empty location
// set yields an empty table and no error.
func Apply(t *Table, sel Selection) (*Table, error) {
	if err := sel.Validate(); err != nil {
		return t.derive(nil), err
	}

	m := sel.matcher()
	rows := make([]domain.Transaction, 0, t.Len())
	for _, tx := range t.rows {
		if m.match(tx) {
			rows = append(rows, tx)
		}
	}
	return t.derive(rows), nil
}

// FilterCategory narrows t to a single product category. An empty category
// returns t unchanged.
func FilterCategory(t *Table, category string) *Table {
	if category == "" {
		return t
	}
	rows := make([]domain.Transaction, 0, t.Len())
	for _, tx := range t.rows {
		if tx.ProductCategory == category {
			rows = append(rows, tx)
		}
	}
	return t.derive(rows)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
