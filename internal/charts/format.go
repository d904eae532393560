package charts

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
)

var printer = message.NewPrinter(language.English)

// Money formats v with thousands separators and two decimals, e.g.
// "$698,812.33".
func Money(v float64, currency string) string {
	if v < 0 {
		return "-" + currency + printer.Sprintf("%.2f", -v)
	}
	return currency + printer.Sprintf("%.2f", v)
}

// MoneyDecimal formats an exact amount like Money.
func MoneyDecimal(d decimal.Decimal, currency string) string {
	return Money(d.Round(2).InexactFloat64(), currency)
}

// Integer formats v rounded to a whole number with thousands separators,
// e.g. "149,116".
func Integer(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

// Number formats v as an integer when it is whole, otherwise with two
// decimals.
func Number(v float64) string {
	if v == math.Trunc(v) {
		return Integer(v)
	}
	return printer.Sprintf("%.2f", v)
}

// IsMoney reports whether values of measure are currency amounts.
func IsMoney(measure string) bool {
	switch measure {
	case analytics.ColSales, analytics.ColTotalRevenue, analytics.ColUnitPrice:
		return true
	}
	return false
}

// FormatValue formats a chart value for measure: currency for revenue
// and price columns, plain numbers otherwise.
func FormatValue(v float64, measure, currency string) string {
	if IsMoney(measure) {
		return Money(v, currency)
	}
	return Number(v)
}
