// Package insights writes the short narrative summary shown above a
// page's charts.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/charts"
)

// Narrator describes headline figures for the current selection.
type Narrator interface {
	Narrate(ctx context.Context, k analytics.KPIs, sel analytics.Selection) (string, error)
}

// TemplateNarrator builds a deterministic sentence from the figures.
type TemplateNarrator struct {
	Currency string
}

// NewTemplateNarrator returns a TemplateNarrator, defaulting the currency
// symbol to "$".
func NewTemplateNarrator(currency string) *TemplateNarrator {
	if currency == "" {
		currency = "$"
	}
	return &TemplateNarrator{Currency: currency}
}

// Narrate implements Narrator. It never fails.
func (n *TemplateNarrator) Narrate(_ context.Context, k analytics.KPIs, sel analytics.Selection) (string, error) {
	if k.TotalOrders == 0 {
		return "No transactions match the current filters.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s, the shop took %s from %s orders (average %s per order).",
		locationPhrase(k.LocationCount), periodPhrase(sel),
		charts.MoneyDecimal(k.TotalRevenue, n.Currency),
		charts.Integer(float64(k.TotalOrders)),
		charts.MoneyDecimal(k.AverageOrderValue, n.Currency))
	if k.LocationCount > 1 && k.TopLocation != "" {
		fmt.Fprintf(&b, " %s led with %s.", k.TopLocation, charts.MoneyDecimal(k.TopLocationRevenue, n.Currency))
	}
	if k.TopProduct != "" {
		fmt.Fprintf(&b, " The best-selling product was %s.", k.TopProduct)
	}
	return b.String(), nil
}

func locationPhrase(n int) string {
	if n == 1 {
		return "At 1 location"
	}
	return fmt.Sprintf("Across %d locations", n)
}

func periodPhrase(sel analytics.Selection) string {
	switch {
	case sel.Start.IsValid() && sel.End.IsValid():
		return fmt.Sprintf("from %s to %s", sel.Start, sel.End)
	case sel.Start.IsValid():
		return fmt.Sprintf("since %s", sel.Start)
	case sel.End.IsValid():
		return fmt.Sprintf("up to %s", sel.End)
	}
	return "over the whole period"
}
