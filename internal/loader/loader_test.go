package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
)

var transactionsHeader = []interface{}{
	"transaction_id", "transaction_date", "transaction_time", "transaction_qty",
	"store_id", "store_location", "product_id", "unit_price",
	"product_category", "product_type", "product_detail", "barista",
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	path := filepath.Join(t.TempDir(), "coffee_shop.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newLoader(t *testing.T, opts Options) *Loader {
	t.Helper()
	opts.Logger = zerolog.Nop()
	l, err := New(opts)
	require.NoError(t, err)
	return l
}

func requireLoadError(t *testing.T, err error) *LoadError {
	t.Helper()
	require.Error(t, err)
	var le *LoadError
	require.True(t, errors.As(err, &le), "want *LoadError, got %T: %v", err, err)
	return le
}

func TestLoadTransactionsWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		transactionsHeader,
		{1, "2023-01-01", "07:06:11", 2, 5, "Lower Manhattan", 32, 3.1, "Coffee", "Gourmet brewed coffee", "Ethiopia Rg", "Ana"},
		{2, 44927, 0.5, 1, 5, "Lower Manhattan", 57, 3.0, "Tea", "Brewed Chai tea", "Spicy Eye Opener Chai Lg", "Ben"},
		{},
		{3, "1/2/2023", "18:30", 1, 8, "Hell's Kitchen", 59, 4.5, "Drinking Chocolate", "Hot chocolate", "Dark chocolate Lg", ""},
	})

	l := newLoader(t, Options{})
	tbl, err := l.Load(context.Background(), path, Transactions)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	first := tbl.Row(0)
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, time.Date(2023, 1, 1, 7, 6, 11, 0, time.UTC), first.Timestamp)
	assert.Equal(t, 7, first.Hour)
	assert.Equal(t, "Sunday", first.Weekday)
	assert.Equal(t, "January", first.Month)
	assert.Equal(t, 6.2, first.Revenue)
	assert.Equal(t, "Coffee", first.ProductCategory)
	assert.Equal(t, "Ethiopia Rg", first.Product)
	assert.Equal(t, "Ana", first.Attribute("barista"))

	second := tbl.Row(1)
	assert.Equal(t, time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC), second.Timestamp)
	assert.Equal(t, 12, second.Hour)

	third := tbl.Row(2)
	assert.Equal(t, time.Date(2023, 1, 2, 18, 30, 0, 0, time.UTC), third.Timestamp)
	assert.Equal(t, "Monday", third.Weekday)
	assert.Equal(t, 4.5, third.Revenue)

	assert.True(t, tbl.HasColumn("barista"))
	assert.True(t, tbl.HasColumn(analytics.ColSales))
	assert.Equal(t, []string{"Lower Manhattan", "Hell's Kitchen"}, tbl.Values(analytics.ColLocation))
}

func TestLoadEnrichedCSV(t *testing.T) {
	path := writeFile(t, "New_data.csv", strings.Join([]string{
		"\ufefftransaction_id,transaction_date,transaction_time,store_location,hour,weekday,month,sales,product,category",
		"10,2023-03-05,08:15:00,Astoria,8,Sunday,March,7.5,Latte,Coffee",
		"11,2023-03-06,,Astoria,9,Monday,March,\"1,250.00\",Scone,Bakery",
	}, "\n"))

	l := newLoader(t, Options{})
	tbl, err := l.Load(context.Background(), path, Enriched)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	assert.Equal(t, 7.5, tbl.Row(0).Revenue)
	assert.Equal(t, 8, tbl.Row(0).Hour)
	assert.Equal(t, "Sunday", tbl.Row(0).Weekday)
	assert.Equal(t, float64(1), tbl.Row(0).Quantity)
	assert.Equal(t, 1250.0, tbl.Row(1).Revenue)
	assert.Equal(t, "Bakery", tbl.Row(1).ProductCategory)
	assert.Equal(t, "Scone", tbl.Row(1).Product)
	assert.Equal(t, 9, tbl.Row(1).Hour)
}

func TestLoadMissingColumnHint(t *testing.T) {
	path := writeFile(t, "wrong.csv", strings.Join([]string{
		"transaction_id,transaction_date,store_location,hour,weekday,month,sales,product,product_category",
		"1,2023-01-01,Astoria,7,Sunday,January,3,Latte,Coffee",
	}, "\n"))

	l := newLoader(t, Options{})
	_, err := l.Load(context.Background(), path, Enriched)
	le := requireLoadError(t, err)
	assert.Equal(t, []string{"category"}, le.Columns)
	assert.Contains(t, le.Hint, "product_category")
	assert.Contains(t, le.Error(), "missing required column(s) category")
}

func TestLoadMissingFile(t *testing.T) {
	l := newLoader(t, Options{})
	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), Transactions)
	le := requireLoadError(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NotEmpty(t, le.Hint)
}

func TestLoadUnparsableCell(t *testing.T) {
	path := writeFile(t, "bad.csv", strings.Join([]string{
		"transaction_id,transaction_date,store_location,hour,weekday,month,sales,product,category",
		"1,2023-01-01,Astoria,7,Sunday,January,3,Latte,Coffee",
		"2,not-a-date,Astoria,7,Sunday,January,3,Latte,Coffee",
	}, "\n"))

	l := newLoader(t, Options{})
	_, err := l.Load(context.Background(), path, Enriched)
	le := requireLoadError(t, err)
	assert.Equal(t, 2, le.Row)
	assert.Contains(t, le.Error(), "not-a-date")
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "data.json", "{}")
	l := newLoader(t, Options{})
	_, err := l.Load(context.Background(), path, Enriched)
	le := requireLoadError(t, err)
	assert.Contains(t, le.Error(), "unsupported file type")
}

func TestLoadUnknownKind(t *testing.T) {
	l := newLoader(t, Options{})
	_, err := l.Load(context.Background(), "x.csv", Kind("invoices"))
	requireLoadError(t, err)
}

func TestLoadCachesByVersion(t *testing.T) {
	const header = "transaction_id,transaction_date,store_location,hour,weekday,month,sales,product,category\n"
	path := writeFile(t, "New_data.csv", header+"1,2023-01-01,Astoria,7,Sunday,January,3,Latte,Coffee\n")

	l := newLoader(t, Options{CacheSize: 2})
	ctx := context.Background()

	a, err := l.Load(ctx, path, Enriched)
	require.NoError(t, err)
	b, err := l.Load(ctx, path, Enriched)
	require.NoError(t, err)
	assert.Same(t, a, b)

	require.NoError(t, os.WriteFile(path, []byte(header+
		"1,2023-01-01,Astoria,7,Sunday,January,3,Latte,Coffee\n"+
		"2,2023-01-02,Astoria,8,Monday,January,4,Mocha,Coffee\n"), 0o644))

	c, err := l.Load(ctx, path, Enriched)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, c.Len())

	l.Purge()
	d, err := l.Load(ctx, path, Enriched)
	require.NoError(t, err)
	assert.NotSame(t, c, d)
}

type fakeObjects struct {
	data       map[string][]byte
	generation int64
	fetches    int
}

func (f *fakeObjects) Fetch(_ context.Context, uri string) ([]byte, int64, error) {
	f.fetches++
	d, ok := f.data[uri]
	if !ok {
		return nil, 0, errors.New("object not found")
	}
	return d, f.generation, nil
}

func (f *fakeObjects) Generation(_ context.Context, uri string) (int64, error) {
	if _, ok := f.data[uri]; !ok {
		return 0, errors.New("object not found")
	}
	return f.generation, nil
}

func TestLoadFromObjectStore(t *testing.T) {
	const uri = "gs://coffee/New_data.csv"
	objects := &fakeObjects{
		data: map[string][]byte{
			uri: []byte("transaction_id,transaction_date,store_location,hour,weekday,month,sales,product,category\n" +
				"1,2023-01-01,Astoria,7,Sunday,January,3,Latte,Coffee\n"),
		},
		generation: 1,
	}

	l := newLoader(t, Options{Objects: objects})
	ctx := context.Background()

	tbl, err := l.Load(ctx, uri, Enriched)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	_, err = l.Load(ctx, uri, Enriched)
	require.NoError(t, err)
	assert.Equal(t, 1, objects.fetches)

	objects.generation = 2
	_, err = l.Load(ctx, uri, Enriched)
	require.NoError(t, err)
	assert.Equal(t, 2, objects.fetches)

	_, err = l.Load(ctx, "gs://coffee/missing.csv", Enriched)
	requireLoadError(t, err)
}

func TestLoadRemoteWithoutBackends(t *testing.T) {
	l := newLoader(t, Options{})
	_, err := l.Load(context.Background(), "gs://coffee/New_data.csv", Enriched)
	requireLoadError(t, err)
	_, err = l.Load(context.Background(), "bq://p/d/t", Enriched)
	requireLoadError(t, err)
}

type fakeWarehouse struct {
	records [][]string
	mod     time.Time
}

func (f *fakeWarehouse) LastModified(context.Context, string) (time.Time, error) {
	return f.mod, nil
}

func (f *fakeWarehouse) ReadRecords(context.Context, string) ([][]string, error) {
	return f.records, nil
}

func TestLoadFromWarehouse(t *testing.T) {
	wh := &fakeWarehouse{
		records: [][]string{
			{"transaction_id", "transaction_date", "transaction_time", "transaction_qty", "store_location",
				"unit_price", "product_category", "product_detail", "total_revenue"},
			{"7", "2023-02-01", "10:00:00", "3", "Astoria", "2.5", "Coffee", "Latte", "7.5"},
		},
		mod: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	l := newLoader(t, Options{Warehouse: wh})
	tbl, err := l.Load(context.Background(), "bq://proj/coffee/sales", Transactions)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, 7.5, tbl.Row(0).Revenue)
	assert.Equal(t, float64(3), tbl.Row(0).Quantity)
	assert.Equal(t, "Wednesday", tbl.Row(0).Weekday)
}
