package analytics

import (
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/coffee-dashboard/internal/domain"
)

// Column names understood by the filter and aggregation stages.
const (
	ColTransactionID   = "transaction_id"
	ColDate            = "transaction_date"
	ColTime            = "transaction_time"
	ColStoreID         = "store_id"
	ColLocation        = "store_location"
	ColHour            = "hour"
	ColWeekday         = "weekday"
	ColMonth           = "month"
	ColProductID       = "product_id"
	ColProductCategory = "product_category"
	ColCategory        = "category"
	ColProductType     = "product_type"
	ColProductDetail   = "product_detail"
	ColProduct         = "product"
	ColUnitPrice       = "unit_price"
	ColQuantity        = "transaction_qty"
	ColTotalRevenue    = "total_revenue"
	ColSales           = "sales"
)

// derivedColumns are present on every table regardless of the source header:
// they are computed from the timestamp or from price × quantity.
var derivedColumns = []string{ColTransactionID, ColDate, ColHour, ColWeekday, ColMonth, ColSales, ColTotalRevenue}

// Table is an immutable, ordered set of transactions plus the set of
// columns its source provided. Filtering returns a new Table sharing the
// column set; the receiver is never modified.
type Table struct {
	name    string
	rows    []domain.Transaction
	columns map[string]bool
	order   []string
}

// NewTable builds a table from loaded rows. columns lists the normalized
// source header names; derived columns are added automatically.
func NewTable(name string, rows []domain.Transaction, columns []string) *Table {
	t := &Table{
		name:    name,
		rows:    rows,
		columns: make(map[string]bool, len(columns)+len(derivedColumns)),
	}
	for _, c := range columns {
		t.addColumn(c)
	}
	for _, c := range derivedColumns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(name string) {
	if name == "" || t.columns[name] {
		return
	}
	t.columns[name] = true
	t.order = append(t.order, name)
}

// derive returns a table with the same name and columns over a new row set.
func (t *Table) derive(rows []domain.Transaction) *Table {
	return &Table{
		name:    t.name,
		rows:    rows,
		columns: t.columns,
		order:   t.order,
	}
}

// Name returns the source name the table was loaded from.
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the i-th transaction.
func (t *Table) Row(i int) domain.Transaction { return t.rows[i] }

// Rows returns the underlying rows. Callers must not modify them.
func (t *Table) Rows() []domain.Transaction { return t.rows }

// Columns returns the column names in source order followed by derived columns.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	return t.columns[name]
}

// Dimension returns the categorical value of column name for row i.
func (t *Table) Dimension(i int, name string) string {
	tx := &t.rows[i]
	switch name {
	case ColTransactionID:
		return tx.ID
	case ColDate:
		return civil.DateOf(tx.Timestamp).String()
	case ColTime:
		return tx.Timestamp.Format("15:04:05")
	case ColStoreID:
		return tx.StoreID
	case ColLocation:
		return tx.StoreLocation
	case ColHour:
		return strconv.Itoa(tx.Hour)
	case ColWeekday:
		return tx.Weekday
	case ColMonth:
		return tx.Month
	case ColProductID:
		return tx.ProductID
	case ColProductCategory, ColCategory:
		return tx.ProductCategory
	case ColProductType:
		return tx.ProductType
	case ColProductDetail, ColProduct:
		return tx.Product
	case ColUnitPrice:
		return strconv.FormatFloat(tx.UnitPrice, 'f', -1, 64)
	case ColQuantity:
		return strconv.FormatFloat(tx.Quantity, 'f', -1, 64)
	default:
		return tx.Attribute(name)
	}
}

// Measure returns the numeric value of column name for row i. The second
// return value is false when the cell is not numeric.
func (t *Table) Measure(i int, name string) (float64, bool) {
	tx := &t.rows[i]
	switch name {
	case ColSales, ColTotalRevenue:
		return tx.Revenue, true
	case ColUnitPrice:
		return tx.UnitPrice, true
	case ColQuantity:
		return tx.Quantity, true
	case ColTransactionID:
		return 1, true
	case ColHour:
		return float64(tx.Hour), true
	default:
		v := strings.TrimSpace(tx.Attribute(name))
		if v == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// Values returns the distinct non-empty values of a dimension in
// first-appearance order.
func (t *Table) Values(name string) []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for i := range t.rows {
		v := t.Dimension(i, name)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// DateSpan returns the earliest and latest transaction dates. ok is false
// for an empty table.
func (t *Table) DateSpan() (start, end civil.Date, ok bool) {
	if t.Len() == 0 {
		return civil.Date{}, civil.Date{}, false
	}
	start = civil.DateOf(t.rows[0].Timestamp)
	end = start
	for i := 1; i < len(t.rows); i++ {
		d := civil.DateOf(t.rows[i].Timestamp)
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}
	return start, end, true
}

// IsMeasure reports whether name is one of the built-in numeric columns.
func IsMeasure(name string) bool {
	switch name {
	case ColSales, ColTotalRevenue, ColUnitPrice, ColQuantity, ColTransactionID, ColHour:
		return true
	}
	return false
}
