package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
)

// Kind selects the column contract a source must satisfy.
type Kind string

const (
	// Transactions is the per-sale spreadsheet export.
	Transactions Kind = "transactions"
	// Enriched is the derived delimited-text table with hour/weekday/month
	// precomputed and revenue in "sales".
	Enriched Kind = "enriched"
)

// Schema lists the required and optional columns of a Kind. Columns that
// are neither are kept as free-form attributes.
type Schema struct {
	Kind     Kind
	Required []string
	Optional []string
}

var schemas = map[Kind]Schema{
	Transactions: {
		Kind: Transactions,
		Required: []string{
			analytics.ColTransactionID,
			analytics.ColDate,
			analytics.ColTime,
			analytics.ColQuantity,
			analytics.ColLocation,
			analytics.ColUnitPrice,
			analytics.ColProductCategory,
			analytics.ColProductDetail,
		},
		Optional: []string{
			analytics.ColStoreID,
			analytics.ColProductID,
			analytics.ColProductType,
			analytics.ColTotalRevenue,
		},
	},
	Enriched: {
		Kind: Enriched,
		Required: []string{
			analytics.ColTransactionID,
			analytics.ColDate,
			analytics.ColLocation,
			analytics.ColHour,
			analytics.ColWeekday,
			analytics.ColMonth,
			analytics.ColSales,
			analytics.ColProduct,
			analytics.ColCategory,
		},
		Optional: []string{
			analytics.ColTime,
			analytics.ColQuantity,
			analytics.ColUnitPrice,
			analytics.ColStoreID,
			analytics.ColProductID,
			analytics.ColProductType,
		},
	},
}

// SchemaFor returns the column contract for k.
func SchemaFor(k Kind) (Schema, error) {
	s, ok := schemas[k]
	if !ok {
		return Schema{}, fmt.Errorf("unknown source kind %q", k)
	}
	return s, nil
}

// known reports whether column has a dedicated field for this schema.
func (s Schema) known(column string) bool {
	for _, c := range s.Required {
		if c == column {
			return true
		}
	}
	for _, c := range s.Optional {
		if c == column {
			return true
		}
	}
	return false
}

// aliases pairs column names that the two source kinds spell differently.
// A missing column whose alias is present is still an error; the alias
// only feeds the hint.
var aliases = map[string]string{
	analytics.ColCategory:        analytics.ColProductCategory,
	analytics.ColProductCategory: analytics.ColCategory,
	analytics.ColProduct:         analytics.ColProductDetail,
	analytics.ColProductDetail:   analytics.ColProduct,
	analytics.ColSales:           analytics.ColTotalRevenue,
	analytics.ColTotalRevenue:    analytics.ColSales,
}

// Validate checks a normalized header against the schema. It returns the
// sorted missing columns and a hint naming present aliases.
func (s Schema) Validate(header []string) (missing []string, hint string) {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var hints []string
	for _, col := range s.Required {
		if present[col] {
			continue
		}
		missing = append(missing, col)
		if alias, ok := aliases[col]; ok && present[alias] {
			hints = append(hints, fmt.Sprintf("found %q instead of %q", alias, col))
		}
	}
	sort.Strings(missing)
	if len(hints) > 0 {
		hint = strings.Join(hints, "; ") + fmt.Sprintf(": is this a %s source?", otherKind(s.Kind))
	}
	return missing, hint
}

func otherKind(k Kind) Kind {
	if k == Transactions {
		return Enriched
	}
	return Transactions
}

// normalizeHeader lower-cases and trims a header cell and converts spaces
// and dashes to underscores, so "Store Location" matches "store_location".
func normalizeHeader(name string) string {
	n := strings.TrimPrefix(name, "\ufeff")
	n = strings.ToLower(strings.TrimSpace(n))
	n = strings.ReplaceAll(n, " ", "_")
	n = strings.ReplaceAll(n, "-", "_")
	return n
}

func normalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = normalizeHeader(h)
	}
	return out
}
