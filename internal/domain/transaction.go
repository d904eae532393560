package domain

import (
	"time"
)

// Transaction represents one sale event as loaded from a source file.
// Records are immutable once loaded; the source file stays the source of truth.
type Transaction struct {
	ID        string    // from "transaction_id"
	Timestamp time.Time // "transaction_date" + "transaction_time"; time part is zero when absent

	StoreID       string // from "store_id" or empty
	StoreLocation string // from "store_location"

	ProductID       string // from "product_id" or empty
	ProductCategory string // from "product_category" (spreadsheet) or "category" (enriched)
	ProductType     string // from "product_type" or empty
	Product         string // from "product_detail" (spreadsheet) or "product" (enriched)

	UnitPrice float64 // from "unit_price" or 0
	Quantity  float64 // from "transaction_qty" or 1
	Revenue   float64 // unit_price × qty, or "sales"/"total_revenue" when the source provides it

	Hour    int    // from "hour" or Timestamp.Hour()
	Weekday string // from "weekday" or Timestamp.Weekday()
	Month   string // from "month" or Timestamp.Month()

	// Attributes holds source columns without a dedicated field (e.g. "barista").
	Attributes map[string]string
}

// Date returns the calendar day of the transaction at midnight UTC.
func (t Transaction) Date() time.Time {
	y, m, d := t.Timestamp.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Attribute returns an extra source column value, or "" if absent.
func (t Transaction) Attribute(name string) string {
	if t.Attributes == nil {
		return ""
	}
	return t.Attributes[name]
}
