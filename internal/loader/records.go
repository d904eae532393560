package loader

import (
	"fmt"
	"strings"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/domain"
)

// row gives typed access to one record through the header index.
type row struct {
	cells []string
	index map[string]int
}

func (r row) get(column string) (string, bool) {
	i, ok := r.index[column]
	if !ok {
		return "", false
	}
	if i >= len(r.cells) {
		return "", true
	}
	return strings.TrimSpace(r.cells[i]), true
}

func (r row) getString(column string, required bool) (string, error) {
	v, ok := r.get(column)
	if required && (!ok || v == "") {
		return "", fmt.Errorf("missing required field %q", column)
	}
	return v, nil
}

func (r row) getFloat64(column string, required bool) (float64, bool, error) {
	v, ok := r.get(column)
	if !ok || v == "" {
		if required {
			return 0, false, fmt.Errorf("missing required field %q", column)
		}
		return 0, false, nil
	}
	f, err := parseNumber(v)
	if err != nil {
		return 0, false, fmt.Errorf("field %q: %w", column, err)
	}
	return f, true, nil
}

func (r row) empty() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// buildTable turns header-first records into a table for the given schema.
// A missing required column or an unparsable required cell is a
// *LoadError; fully blank rows are skipped.
func buildTable(uri string, schema Schema, records [][]string) (*analytics.Table, error) {
	if len(records) == 0 {
		return nil, &LoadError{URI: uri, Columns: schema.Required, Err: fmt.Errorf("no header row")}
	}

	header := normalizeHeaders(records[0])
	if missing, hint := schema.Validate(header); len(missing) > 0 {
		return nil, &LoadError{URI: uri, Columns: missing, Hint: hint}
	}

	index := make(map[string]int, len(header))
	var columns, extra []string
	for i, h := range header {
		if h == "" {
			continue
		}
		if _, dup := index[h]; dup {
			continue
		}
		index[h] = i
		columns = append(columns, h)
		if !schema.known(h) {
			extra = append(extra, h)
		}
	}

	rows := make([]domain.Transaction, 0, len(records)-1)
	for n, cells := range records[1:] {
		r := row{cells: cells, index: index}
		if r.empty() {
			continue
		}
		tx, err := schema.transaction(r, extra)
		if err != nil {
			return nil, &LoadError{URI: uri, Row: n + 1, Err: err}
		}
		rows = append(rows, tx)
	}

	return analytics.NewTable(uri, rows, columns), nil
}

// transaction converts one record into a Transaction, deriving hour,
// weekday, month and revenue where the source leaves them out.
func (s Schema) transaction(r row, extra []string) (domain.Transaction, error) {
	var tx domain.Transaction
	var err error

	id, err := r.getString(analytics.ColTransactionID, true)
	if err != nil {
		return tx, err
	}
	tx.ID = parseIdentifier(id)

	dateStr, err := r.getString(analytics.ColDate, true)
	if err != nil {
		return tx, err
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return tx, fmt.Errorf("field %q: %w", analytics.ColDate, err)
	}
	tx.Timestamp = date

	timeStr, err := r.getString(analytics.ColTime, s.Kind == Transactions)
	if err != nil {
		return tx, err
	}
	if timeStr != "" {
		clock, err := parseClock(timeStr)
		if err != nil {
			return tx, fmt.Errorf("field %q: %w", analytics.ColTime, err)
		}
		tx.Timestamp = date.Add(clock)
	}

	if tx.StoreLocation, err = r.getString(analytics.ColLocation, true); err != nil {
		return tx, err
	}
	tx.StoreID = parseIdentifier(mustString(r, analytics.ColStoreID))
	tx.ProductID = parseIdentifier(mustString(r, analytics.ColProductID))
	tx.ProductType = mustString(r, analytics.ColProductType)

	categoryCol, productCol := analytics.ColProductCategory, analytics.ColProductDetail
	if s.Kind == Enriched {
		categoryCol, productCol = analytics.ColCategory, analytics.ColProduct
	}
	if tx.ProductCategory, err = r.getString(categoryCol, true); err != nil {
		return tx, err
	}
	if tx.Product, err = r.getString(productCol, true); err != nil {
		return tx, err
	}

	qty, hasQty, err := r.getFloat64(analytics.ColQuantity, s.Kind == Transactions)
	if err != nil {
		return tx, err
	}
	tx.Quantity = 1
	if hasQty {
		tx.Quantity = qty
	}

	price, _, err := r.getFloat64(analytics.ColUnitPrice, s.Kind == Transactions)
	if err != nil {
		return tx, err
	}
	tx.UnitPrice = price

	if err := s.revenue(r, &tx); err != nil {
		return tx, err
	}
	if err := s.calendar(r, &tx); err != nil {
		return tx, err
	}

	if len(extra) > 0 {
		tx.Attributes = make(map[string]string, len(extra))
		for _, col := range extra {
			tx.Attributes[col] = mustString(r, col)
		}
	}
	return tx, nil
}

func (s Schema) revenue(r row, tx *domain.Transaction) error {
	column := analytics.ColTotalRevenue
	if s.Kind == Enriched {
		column = analytics.ColSales
	}
	rev, ok, err := r.getFloat64(column, s.Kind == Enriched)
	if err != nil {
		return err
	}
	if ok {
		tx.Revenue = rev
		return nil
	}
	tx.Revenue = roundCents(tx.UnitPrice * tx.Quantity)
	return nil
}

func (s Schema) calendar(r row, tx *domain.Transaction) error {
	tx.Hour = tx.Timestamp.Hour()
	tx.Weekday = tx.Timestamp.Weekday().String()
	tx.Month = tx.Timestamp.Month().String()

	if v, ok := r.get(analytics.ColHour); ok && v != "" {
		h, err := parseHour(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", analytics.ColHour, err)
		}
		tx.Hour = h
	}
	if v, ok := r.get(analytics.ColWeekday); ok && v != "" {
		tx.Weekday = v
	}
	if v, ok := r.get(analytics.ColMonth); ok && v != "" {
		tx.Month = v
	}
	return nil
}

func mustString(r row, column string) string {
	v, _ := r.get(column)
	return v
}
