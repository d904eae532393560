package analytics

// Series is one named line of values aligned with Pivot.Categories.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Pivot is a result laid out for charting: one category per first-level
// key and one series per second-level key.
type Pivot struct {
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
}

// Pivot reshapes r. Single-dimension results become one series named
// seriesName. Two-dimension results become one series per second key,
// with missing cells filled with zero. Keys keep result order.
func (r *Result) Pivot(seriesName string) Pivot {
	if r == nil || len(r.Groups) == 0 {
		return Pivot{Categories: []string{}, Series: []Series{}}
	}

	if len(r.GroupBy) < 2 {
		p := Pivot{
			Categories: make([]string, 0, len(r.Groups)),
			Series:     []Series{{Name: seriesName, Values: make([]float64, 0, len(r.Groups))}},
		}
		for _, g := range r.Groups {
			p.Categories = append(p.Categories, g.Label())
			p.Series[0].Values = append(p.Series[0].Values, g.Value)
		}
		return p
	}

	catIndex := make(map[string]int)
	serIndex := make(map[string]int)
	var p Pivot
	for _, g := range r.Groups {
		cat, ser := g.Keys[0], g.Keys[1]
		if _, ok := catIndex[cat]; !ok {
			catIndex[cat] = len(p.Categories)
			p.Categories = append(p.Categories, cat)
		}
		if _, ok := serIndex[ser]; !ok {
			serIndex[ser] = len(p.Series)
			p.Series = append(p.Series, Series{Name: ser})
		}
	}
	for i := range p.Series {
		p.Series[i].Values = make([]float64, len(p.Categories))
	}
	for _, g := range r.Groups {
		p.Series[serIndex[g.Keys[1]]].Values[catIndex[g.Keys[0]]] = g.Value
	}
	return p
}
