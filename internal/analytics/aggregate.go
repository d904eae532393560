package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Reduction names how a measure is folded within a group.
type Reduction string

const (
	Sum   Reduction = "sum"
	Mean  Reduction = "mean"
	Count Reduction = "count"
	Min   Reduction = "min"
	Max   Reduction = "max"
)

// Valid reports whether r is a known reduction.
func (r Reduction) Valid() bool {
	switch r {
	case Sum, Mean, Count, Min, Max:
		return true
	}
	return false
}

// Order selects how groups are sorted before Limit is applied.
type Order string

const (
	// OrderKey sorts by group key: hours and months numerically, weekdays
	// Sunday→Saturday, everything else lexically. This is the default.
	OrderKey Order = ""
	// OrderAppearance keeps groups in first-appearance order.
	OrderAppearance Order = "appearance"
	// OrderValueDesc sorts by value, largest first. Ties keep key order.
	OrderValueDesc Order = "value_desc"
	// OrderValueAsc sorts by value, smallest first. Ties keep key order.
	OrderValueAsc Order = "value_asc"
)

// Query describes one aggregation: group rows by GroupBy, reduce Measure
// with Reduction, sort by Order, keep the first Limit groups (0 = all).
type Query struct {
	GroupBy   []string  `json:"groupBy"`
	Measure   string    `json:"measure"`
	Reduction Reduction `json:"reduction"`
	Order     Order     `json:"order,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Group is one aggregated bucket.
type Group struct {
	Keys  []string `json:"keys"`
	Value float64  `json:"value"`
	Count int      `json:"count"`
}

// Label joins the group keys for display.
func (g Group) Label() string {
	if len(g.Keys) == 0 {
		return "Total"
	}
	return strings.Join(g.Keys, " / ")
}

// Result is the ordered output of Aggregate.
type Result struct {
	GroupBy   []string  `json:"groupBy"`
	Measure   string    `json:"measure"`
	Reduction Reduction `json:"reduction"`
	Groups    []Group   `json:"groups"`
}

// Empty reports whether the result has no groups.
func (r *Result) Empty() bool { return r == nil || len(r.Groups) == 0 }

// Total sums group values.
func (r *Result) Total() float64 {
	if r == nil {
		return 0
	}
	var total float64
	for _, g := range r.Groups {
		total += g.Value
	}
	return total
}

// Weekdays is the fixed weekday domain, Sunday first.
var Weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

type accumulator struct {
	keys     []string
	sum      float64
	min, max float64
	count    int
	numeric  int
}

func (a *accumulator) add(v float64, ok bool) {
	a.count++
	if !ok {
		return
	}
	if a.numeric == 0 || v < a.min {
		a.min = v
	}
	if a.numeric == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.numeric++
}

func (a *accumulator) value(r Reduction) float64 {
	switch r {
	case Sum:
		return a.sum
	case Count:
		return float64(a.count)
	case Mean:
		if a.numeric == 0 {
			return 0
		}
		return a.sum / float64(a.numeric)
	case Min:
		return a.min
	case Max:
		return a.max
	}
	return 0
}

// Aggregate groups t by q.GroupBy and reduces q.Measure. Grouping or
// reduction columns absent from t produce an *AggregationError. An empty
// table yields an empty (non-nil) result, except that a weekday grouping
// still lists all seven days with zero values.
func Aggregate(t *Table, q Query) (*Result, error) {
	if err := validateQuery(t, q); err != nil {
		return nil, err
	}

	res := &Result{
		GroupBy:   append([]string(nil), q.GroupBy...),
		Measure:   q.Measure,
		Reduction: q.Reduction,
		Groups:    []Group{},
	}

	index := make(map[string]*accumulator)
	var order []*accumulator
	for i := 0; i < t.Len(); i++ {
		keys := make([]string, len(q.GroupBy))
		for j, dim := range q.GroupBy {
			keys[j] = t.Dimension(i, dim)
		}
		if len(q.GroupBy) == 1 && q.GroupBy[0] == ColWeekday {
			keys[0] = normalizeWeekday(keys[0])
		}
		id := strings.Join(keys, "\x1f")
		acc, ok := index[id]
		if !ok {
			acc = &accumulator{keys: keys}
			index[id] = acc
			order = append(order, acc)
		}
		if q.Reduction == Count && q.Measure == "" {
			acc.add(1, true)
		} else {
			acc.add(t.Measure(i, q.Measure))
		}
	}

	for _, acc := range order {
		res.Groups = append(res.Groups, Group{
			Keys:  acc.keys,
			Value: acc.value(q.Reduction),
			Count: acc.count,
		})
	}

	if len(q.GroupBy) == 1 && q.GroupBy[0] == ColWeekday {
		res.Groups = fillWeekdays(res.Groups)
	}

	sortGroups(res.Groups, q.GroupBy, q.Order)

	if q.Limit > 0 && len(res.Groups) > q.Limit {
		res.Groups = res.Groups[:q.Limit]
	}
	return res, nil
}

func validateQuery(t *Table, q Query) error {
	name := ""
	if t != nil {
		name = t.Name()
	}
	if t == nil {
		return &AggregationError{Table: name, Reason: "no table"}
	}
	if !q.Reduction.Valid() {
		return &AggregationError{Table: name, Reason: fmt.Sprintf("unknown reduction %q", q.Reduction)}
	}
	for _, dim := range q.GroupBy {
		if !t.HasColumn(dim) {
			return &AggregationError{Table: name, Column: dim, Reason: "grouping column not in table"}
		}
	}
	if q.Measure == "" {
		if q.Reduction != Count {
			return &AggregationError{Table: name, Reason: fmt.Sprintf("reduction %q needs a measure", q.Reduction)}
		}
		return nil
	}
	if !t.HasColumn(q.Measure) {
		return &AggregationError{Table: name, Column: q.Measure, Reason: "measure column not in table"}
	}
	return nil
}

// fillWeekdays lays groups out on the fixed Sunday→Saturday domain,
// inserting zero-valued groups for absent days. Values outside the domain
// are kept after Saturday in their original order.
func fillWeekdays(groups []Group) []Group {
	byDay := make(map[string]Group, len(groups))
	var extra []Group
	for _, g := range groups {
		if weekdayIndex(g.Keys[0]) < 0 {
			extra = append(extra, g)
			continue
		}
		byDay[g.Keys[0]] = g
	}
	out := make([]Group, 0, len(Weekdays)+len(extra))
	for _, day := range Weekdays {
		if g, ok := byDay[day]; ok {
			out = append(out, g)
			continue
		}
		out = append(out, Group{Keys: []string{day}})
	}
	return append(out, extra...)
}

func sortGroups(groups []Group, dims []string, order Order) {
	if order == OrderAppearance {
		return
	}
	byKey := func(i, j int) bool { return lessKeys(dims, groups[i].Keys, groups[j].Keys) }
	sort.SliceStable(groups, byKey)

	switch order {
	case OrderValueDesc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case OrderValueAsc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	}
}

func lessKeys(dims, a, b []string) bool {
	for i := range a {
		if i >= len(b) || a[i] == b[i] {
			continue
		}
		dim := ""
		if i < len(dims) {
			dim = dims[i]
		}
		return lessKey(dim, a[i], b[i])
	}
	return false
}

func lessKey(dim, a, b string) bool {
	switch dim {
	case ColWeekday:
		ia, ib := weekdayIndex(normalizeWeekday(a)), weekdayIndex(normalizeWeekday(b))
		if ia >= 0 && ib >= 0 {
			return ia < ib
		}
		if ia >= 0 || ib >= 0 {
			return ia >= 0
		}
	case ColMonth:
		ma, mb := MonthIndex(a), MonthIndex(b)
		if ma > 0 && mb > 0 {
			return ma < mb
		}
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}

func weekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

// normalizeWeekday title-cases full or three-letter weekday names.
func normalizeWeekday(day string) string {
	d := strings.ToLower(strings.TrimSpace(day))
	for _, w := range Weekdays {
		lw := strings.ToLower(w)
		if d == lw || (len(d) == 3 && strings.HasPrefix(lw, d)) {
			return w
		}
	}
	return day
}

// MonthIndex maps "1".."12", "January", "Jan" and "2023-01" style keys to
// 1..12. It returns 0 for anything else.
func MonthIndex(month string) int {
	m := strings.TrimSpace(month)
	if n, err := strconv.Atoi(m); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	for _, layout := range []string{"January", "Jan", "2006-01", "Jan-2006"} {
		if t, err := time.Parse(layout, m); err == nil {
			return int(t.Month())
		}
	}
	return 0
}

// RoundTo2 rounds to two decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
