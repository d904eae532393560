package dashboard

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
)

// Query parameter names carrying the view state.
const (
	paramLocation    = "loc"
	paramLocationSet = "loc_set"
	paramStart       = "start"
	paramEnd         = "end"
	paramCategory    = "category"
	paramOption      = "opt."
)

// ViewState is everything a request says about what to show: the page,
// the filter selection and the page's selector values.
type ViewState struct {
	Page      string              `json:"page"`
	Selection analytics.Selection `json:"selection"`
	Category  string              `json:"category,omitempty"`
	Options   map[string]string   `json:"options,omitempty"`
	Warnings  []string            `json:"-"`
}

// ParseViewState reads view state from query parameters, falling back to
// defaults for anything absent.
//
// loc may repeat. A form that submits no loc values also sends loc_set=1,
// which selects no locations rather than the default. Unparsable dates
// keep the default and add a warning.
func ParseViewState(page string, q url.Values, defaults analytics.Selection) ViewState {
	v := ViewState{
		Page:      page,
		Selection: defaults,
		Category:  strings.TrimSpace(q.Get(paramCategory)),
		Options:   make(map[string]string),
	}

	if locs, ok := q[paramLocation]; ok {
		v.Selection.Locations = nonEmpty(locs)
	} else if q.Get(paramLocationSet) != "" {
		v.Selection.Locations = []string{}
	}

	if s := strings.TrimSpace(q.Get(paramStart)); s != "" {
		if d, err := civil.ParseDate(s); err == nil {
			v.Selection.Start = d
		} else {
			v.Warnings = append(v.Warnings, fmt.Sprintf("ignoring start date %q: want YYYY-MM-DD", s))
		}
	}
	if s := strings.TrimSpace(q.Get(paramEnd)); s != "" {
		if d, err := civil.ParseDate(s); err == nil {
			v.Selection.End = d
		} else {
			v.Warnings = append(v.Warnings, fmt.Sprintf("ignoring end date %q: want YYYY-MM-DD", s))
		}
	}

	for key, vals := range q {
		if !strings.HasPrefix(key, paramOption) || len(vals) == 0 {
			continue
		}
		if name := strings.TrimPrefix(key, paramOption); name != "" {
			v.Options[name] = vals[0]
		}
	}
	return v
}

// Query encodes the state back into query parameters, so links and chart
// URLs reproduce the same view.
func (v ViewState) Query() url.Values {
	q := url.Values{}
	q.Set(paramLocationSet, "1")
	for _, loc := range v.Selection.Locations {
		q.Add(paramLocation, loc)
	}
	if v.Selection.Start.IsValid() {
		q.Set(paramStart, v.Selection.Start.String())
	}
	if v.Selection.End.IsValid() {
		q.Set(paramEnd, v.Selection.End.String())
	}
	if v.Category != "" {
		q.Set(paramCategory, v.Category)
	}
	names := make([]string, 0, len(v.Options))
	for name := range v.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		q.Set(paramOption+name, v.Options[name])
	}
	return q
}

// Option returns the value of a page selector.
func (v ViewState) Option(name string) string {
	if name == CategorySelector {
		return v.Category
	}
	return v.Options[name]
}

// SelectorParam is the query parameter carrying a selector's value.
func SelectorParam(name string) string {
	if name == CategorySelector {
		return paramCategory
	}
	return paramOption + name
}

// HasLocation reports whether loc is selected.
func (v ViewState) HasLocation(loc string) bool {
	for _, l := range v.Selection.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
