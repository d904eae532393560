package dashboard

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/domain"
	"github.com/dvloznov/coffee-dashboard/internal/insights"
	"github.com/dvloznov/coffee-dashboard/internal/loader"
)

func sale(id, location, category, product string, price, qty float64, at string) domain.Transaction {
	ts, err := time.Parse("2006-01-02 15:04", at)
	if err != nil {
		panic(err)
	}
	return domain.Transaction{
		ID:              id,
		Timestamp:       ts,
		StoreLocation:   location,
		ProductCategory: category,
		Product:         product,
		UnitPrice:       price,
		Quantity:        qty,
		Revenue:         price * qty,
		Hour:            ts.Hour(),
		Weekday:         ts.Weekday().String(),
		Month:           ts.Month().String(),
	}
}

func fixtureRows() []domain.Transaction {
	return []domain.Transaction{
		sale("1", "Lower Manhattan", "Coffee", "Latte", 3.5, 2, "2024-01-01 08:15"),
		sale("2", "Astoria", "Tea", "Chai", 2.5, 1, "2024-01-02 09:00"),
		sale("3", "Hell's Kitchen", "Coffee", "Espresso", 3, 1, "2024-01-03 10:30"),
		sale("4", "Astoria", "Coffee", "Latte", 3.5, 1, "2024-02-10 14:45"),
	}
}

func transactionsTable() *analytics.Table {
	return analytics.NewTable("transactions.xlsx", fixtureRows(), []string{
		analytics.ColTransactionID, analytics.ColDate, analytics.ColTime, analytics.ColLocation,
		analytics.ColProductCategory, analytics.ColProductDetail, analytics.ColUnitPrice, analytics.ColQuantity,
	})
}

func enrichedTable(extra ...string) *analytics.Table {
	cols := append([]string{
		analytics.ColTransactionID, analytics.ColDate, analytics.ColLocation, analytics.ColCategory,
		analytics.ColProduct, analytics.ColQuantity, analytics.ColSales,
		analytics.ColHour, analytics.ColWeekday, analytics.ColMonth,
	}, extra...)
	return analytics.NewTable("enriched.csv", fixtureRows(), cols)
}

func fixtureSession() *Session {
	return &Session{
		CreatedAt:    time.Now(),
		Transactions: transactionsTable(),
		Enriched:     enrichedTable(),
	}
}

func viewFor(t *testing.T, sess *Session, page string, q url.Values) ViewState {
	t.Helper()
	return ParseViewState(page, q, sess.DefaultSelection())
}

func newTestRenderer() *Renderer {
	return NewRenderer(insights.NewTemplateNarrator("$"), zerolog.Nop())
}

func TestPages_Registry(t *testing.T) {
	all := Pages()
	require.Len(t, all, 8)
	assert.Equal(t, DefaultPage, all[0].Slug)

	seen := make(map[string]bool)
	for _, p := range all {
		assert.False(t, seen[p.Slug], "duplicate slug %s", p.Slug)
		seen[p.Slug] = true
		assert.NotEmpty(t, p.Panels, "page %s has no panels", p.Slug)
		for _, panel := range p.Panels {
			assert.True(t, panel.Chart.Valid(), "page %s panel %s", p.Slug, panel.ID)
			assert.True(t, panel.Query.Reduction.Valid(), "page %s panel %s", p.Slug, panel.ID)
		}
	}

	_, ok := LookupPage("nope")
	assert.False(t, ok)

	page, ok := LookupPage("customer-behaviour")
	require.True(t, ok)
	_, ok = page.Panel("barista-revenue")
	assert.True(t, ok)
}

func TestPages_ReturnsCopy(t *testing.T) {
	all := Pages()
	all[0].Slug = "changed"
	_, ok := LookupPage(DefaultPage)
	assert.True(t, ok)
}

func TestRender_EveryPageWithDefaults(t *testing.T) {
	sess := fixtureSession()
	r := newTestRenderer()
	for _, p := range Pages() {
		t.Run(p.Slug, func(t *testing.T) {
			out, err := r.Render(context.Background(), sess, viewFor(t, sess, p.Slug, nil))
			require.NoError(t, err)
			assert.Equal(t, p.Slug, out.Page.Slug)
			assert.Empty(t, out.Warnings)
			assert.NotEmpty(t, out.Panels)
			for _, panel := range out.Panels {
				require.NotNil(t, panel.Config)
				assert.False(t, panel.Result.Empty(), "panel %s", panel.ID)
			}
		})
	}
}

func TestRender_Overview(t *testing.T) {
	sess := fixtureSession()
	out, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "overview", nil))
	require.NoError(t, err)

	require.Len(t, out.Nav, 8)
	assert.True(t, out.Nav[0].Active)
	assert.False(t, out.Nav[1].Active)

	require.NotNil(t, out.KPIs)
	assert.Equal(t, 4, out.KPIs.TotalOrders)
	assert.Equal(t, "16", out.KPIs.TotalRevenue.String())
	assert.Equal(t, 3, out.KPIs.LocationCount)
	assert.Contains(t, out.Narrative, "4 orders")

	panel, ok := out.Panel("location-revenue")
	require.True(t, ok)
	assert.InDelta(t, 16.0, panel.Result.Total(), 1e-9)
}

func TestRender_LocationFilter(t *testing.T) {
	sess := fixtureSession()
	q := url.Values{"loc": {"Astoria"}}
	out, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "overview", q))
	require.NoError(t, err)

	panel, ok := out.Panel("location-revenue")
	require.True(t, ok)
	require.Len(t, panel.Result.Groups, 1)
	assert.Equal(t, []string{"Astoria"}, panel.Result.Groups[0].Keys)
	assert.InDelta(t, 6.0, panel.Result.Groups[0].Value, 1e-9)
	assert.Equal(t, 2, out.KPIs.TotalOrders)
}

func TestRender_NoLocationsSelected(t *testing.T) {
	sess := fixtureSession()
	q := url.Values{"loc_set": {"1"}}
	out, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "overview", q))
	require.NoError(t, err)
	for _, panel := range out.Panels {
		assert.True(t, panel.Result.Empty(), "panel %s", panel.ID)
		assert.True(t, panel.Config.Empty(), "panel %s", panel.ID)
	}
	assert.Equal(t, 0, out.KPIs.TotalOrders)
	assert.Equal(t, "No transactions match the current filters.", out.Narrative)
}

func TestRender_InvertedDatesWarns(t *testing.T) {
	sess := fixtureSession()
	q := url.Values{"start": {"2024-02-01"}, "end": {"2024-01-01"}}
	out, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "overview", q))
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "invalid date range")
	for _, panel := range out.Panels {
		assert.True(t, panel.Result.Empty(), "panel %s", panel.ID)
	}
}

func TestRender_BadDateWarns(t *testing.T) {
	sess := fixtureSession()
	q := url.Values{"start": {"yesterday"}}
	out, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "overview", q))
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "yesterday")
	assert.Equal(t, 4, out.KPIs.TotalOrders)
}

func TestRender_UnknownPage(t *testing.T) {
	sess := fixtureSession()
	_, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "nope", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPageNotFound))
}

func TestRender_MissingColumnFailsPage(t *testing.T) {
	sess := fixtureSession()
	q := url.Values{"opt.extra": {"Barista Revenue"}}
	_, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "customer-behaviour", q))
	require.Error(t, err)

	var pageErr *PageError
	require.True(t, errors.As(err, &pageErr))
	assert.Equal(t, "customer-behaviour", pageErr.Page)
	assert.Equal(t, "barista-revenue", pageErr.Panel)

	var aggErr *analytics.AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.Equal(t, "barista", aggErr.Column)
}

func TestRender_BaristaPanelWithColumn(t *testing.T) {
	rows := fixtureRows()
	for i := range rows {
		rows[i].Attributes = map[string]string{"barista": []string{"Ana", "Ben"}[i%2]}
	}
	sess := fixtureSession()
	sess.Enriched = analytics.NewTable("enriched.csv", rows, append(enrichedTable().Columns(), "barista"))

	q := url.Values{"opt.extra": {"Barista Revenue"}}
	out, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "customer-behaviour", q))
	require.NoError(t, err)

	panel, ok := out.Panel("barista-revenue")
	require.True(t, ok)
	require.Len(t, panel.Result.Groups, 2)
	assert.Equal(t, "Ana", panel.Result.Groups[0].Keys[0])
	assert.InDelta(t, 10.0, panel.Result.Groups[0].Value, 1e-9)
}

func TestRender_CategoryScopedPanel(t *testing.T) {
	sess := fixtureSession()
	q := url.Values{"category": {"Tea"}}
	out, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "customer-behaviour", q))
	require.NoError(t, err)

	panel, ok := out.Panel("category-sales")
	require.True(t, ok)
	assert.Equal(t, "Sales of Tea by location", panel.Title)
	require.Len(t, panel.Result.Groups, 1)
	assert.Equal(t, []string{"Astoria", "Chai"}, panel.Result.Groups[0].Keys)

	require.NotEmpty(t, out.Selectors)
	assert.Equal(t, CategorySelector, out.Selectors[0].Name)
	assert.Equal(t, "Tea", out.Selectors[0].Value)
	assert.Equal(t, []string{"Coffee", "Tea"}, out.Selectors[0].Options)
	assert.Equal(t, "Tea", out.State.Category)
}

func TestRender_SelectorDefaultsAndUnknownValue(t *testing.T) {
	sess := fixtureSession()
	r := newTestRenderer()

	out, err := r.Render(context.Background(), sess, viewFor(t, sess, "customer-behaviour", nil))
	require.NoError(t, err)
	assert.Equal(t, "Coffee", out.State.Category)
	assert.Equal(t, optionNone, out.State.Options["extra"])
	_, ok := out.Panel("barista-revenue")
	assert.False(t, ok)

	q := url.Values{"category": {"Juice"}}
	out, err = r.Render(context.Background(), sess, viewFor(t, sess, "customer-behaviour", q))
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "Juice")
	assert.Equal(t, "Coffee", out.State.Category)
}

func TestRender_ConditionalPanels(t *testing.T) {
	sess := fixtureSession()
	r := newTestRenderer()

	out, err := r.Render(context.Background(), sess, viewFor(t, sess, "pricing-strategy", nil))
	require.NoError(t, err)
	assert.Len(t, out.Panels, 2)

	q := url.Values{"opt.purchase": {"Purchase by Region"}}
	out, err = r.Render(context.Background(), sess, viewFor(t, sess, "pricing-strategy", q))
	require.NoError(t, err)
	assert.Len(t, out.Panels, 3)
	_, ok := out.Panel("purchase-by-region")
	assert.True(t, ok)
	assert.Nil(t, out.KPIs)
}

func TestRender_WeekdaysZeroFilled(t *testing.T) {
	sess := fixtureSession()
	out, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "time-trends", nil))
	require.NoError(t, err)

	panel, ok := out.Panel("weekday-orders")
	require.True(t, ok)
	require.Len(t, panel.Result.Groups, 7)
	assert.Equal(t, "Sunday", panel.Result.Groups[0].Keys[0])
	assert.Equal(t, "Monday", panel.Result.Groups[1].Keys[0])
	assert.Equal(t, 1.0, panel.Result.Groups[1].Value)
}

func TestRender_DoesNotMutateSession(t *testing.T) {
	sess := fixtureSession()
	before := sess.Transactions.Len()
	q := url.Values{"loc": {"Astoria"}}
	_, err := newTestRenderer().Render(context.Background(), sess, viewFor(t, sess, "overview", q))
	require.NoError(t, err)
	assert.Equal(t, before, sess.Transactions.Len())
}

func TestRenderPanel(t *testing.T) {
	sess := fixtureSession()
	r := newTestRenderer()

	panel, err := r.RenderPanel(context.Background(), sess, viewFor(t, sess, "overview", nil), "location-share")
	require.NoError(t, err)
	assert.Equal(t, "location-share", panel.ID)
	assert.Len(t, panel.Result.Groups, 3)

	_, err = r.RenderPanel(context.Background(), sess, viewFor(t, sess, "overview", nil), "nope")
	assert.True(t, errors.Is(err, ErrPanelNotFound))

	_, err = r.RenderPanel(context.Background(), sess, viewFor(t, sess, "customer-behaviour", nil), "barista-revenue")
	assert.True(t, errors.Is(err, ErrPanelNotFound))
}

func TestRenderPipeline_WrapsStepErrors(t *testing.T) {
	failing := stepFunc(func(context.Context, *RenderState) error { return errors.New("boom") })
	p := NewRenderPipeline(stepFunc(func(context.Context, *RenderState) error { return nil }), failing)
	err := p.Execute(context.Background(), &RenderState{})
	require.Error(t, err)
	assert.Equal(t, "render step 2 failed: boom", err.Error())
}

type stepFunc func(context.Context, *RenderState) error

func (f stepFunc) Execute(ctx context.Context, s *RenderState) error { return f(ctx, s) }

func TestParseViewState(t *testing.T) {
	defaults := analytics.Selection{
		Locations: []string{"A", "B"},
		Start:     civil.Date{Year: 2024, Month: 1, Day: 1},
		End:       civil.Date{Year: 2024, Month: 6, Day: 30},
	}

	t.Run("defaults", func(t *testing.T) {
		v := ParseViewState("overview", url.Values{}, defaults)
		assert.Equal(t, defaults, v.Selection)
		assert.Empty(t, v.Warnings)
	})

	t.Run("explicit values", func(t *testing.T) {
		q := url.Values{
			"loc":          {"B", " "},
			"start":        {"2024-02-01"},
			"end":          {"2024-03-01"},
			"category":     {"Tea"},
			"opt.purchase": {"Purchase by Region"},
		}
		v := ParseViewState("pricing-strategy", q, defaults)
		assert.Equal(t, []string{"B"}, v.Selection.Locations)
		assert.Equal(t, "2024-02-01", v.Selection.Start.String())
		assert.Equal(t, "2024-03-01", v.Selection.End.String())
		assert.Equal(t, "Tea", v.Option(CategorySelector))
		assert.Equal(t, "Purchase by Region", v.Option("purchase"))
		assert.True(t, v.HasLocation("B"))
		assert.False(t, v.HasLocation("A"))
	})

	t.Run("empty location set", func(t *testing.T) {
		v := ParseViewState("overview", url.Values{"loc_set": {"1"}}, defaults)
		assert.Empty(t, v.Selection.Locations)
		assert.NotNil(t, v.Selection.Locations)
	})

	t.Run("bad dates keep defaults", func(t *testing.T) {
		v := ParseViewState("overview", url.Values{"start": {"01/02/2024"}, "end": {"x"}}, defaults)
		assert.Equal(t, defaults.Start, v.Selection.Start)
		assert.Equal(t, defaults.End, v.Selection.End)
		assert.Len(t, v.Warnings, 2)
	})
}

func TestViewState_QueryRoundTrip(t *testing.T) {
	defaults := analytics.Selection{Locations: []string{"A", "B"}}
	v := ParseViewState("overview", url.Values{
		"loc":       {"A"},
		"start":     {"2024-01-01"},
		"category":  {"Coffee"},
		"opt.extra": {"None"},
	}, defaults)

	again := ParseViewState("overview", v.Query(), defaults)
	assert.Equal(t, v.Selection, again.Selection)
	assert.Equal(t, v.Category, again.Category)
	assert.Equal(t, v.Options, again.Options)

	none := ParseViewState("overview", url.Values{"loc_set": {"1"}}, defaults)
	assert.Empty(t, ParseViewState("overview", none.Query(), defaults).Selection.Locations)
}

func TestSession_DefaultSelection(t *testing.T) {
	rows := []domain.Transaction{sale("9", "Brooklyn", "Coffee", "Latte", 3, 1, "2023-12-31 07:00")}
	sess := fixtureSession()
	sess.Transactions = analytics.NewTable("transactions.xlsx", append(fixtureRows(), rows...), transactionsTable().Columns())

	sel := sess.DefaultSelection()
	assert.Equal(t, []string{"Lower Manhattan", "Astoria", "Hell's Kitchen", "Brooklyn"}, sel.Locations)
	assert.Equal(t, "2023-12-31", sel.Start.String())
	assert.Equal(t, "2024-02-10", sel.End.String())
}

func TestSession_Table(t *testing.T) {
	sess := fixtureSession()
	tbl, err := sess.Table(SourceEnriched)
	require.NoError(t, err)
	assert.Same(t, sess.Enriched, tbl)

	_, err = sess.Table("other")
	assert.Error(t, err)
}

func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.now = func() time.Time { return now }

	sess := fixtureSession()
	sess.ID = mustUUID(t, "4b1f5a8e-3c2d-4e5f-9a0b-1c2d3e4f5a6b")
	require.NoError(t, store.Save(sess))

	now = now.Add(30 * time.Second)
	got, err := store.Get(sess.ID.String())
	require.NoError(t, err)
	assert.Same(t, sess, got)

	// Get refreshed the idle timer.
	now = now.Add(45 * time.Second)
	_, err = store.Get(sess.ID.String())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(sess.ID.String())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_SweepAndDelete(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.now = func() time.Time { return now }

	old := fixtureSession()
	old.ID = mustUUID(t, "00000000-0000-4000-8000-000000000001")
	require.NoError(t, store.Save(old))

	now = now.Add(2 * time.Minute)
	fresh := fixtureSession()
	fresh.ID = mustUUID(t, "00000000-0000-4000-8000-000000000002")
	require.NoError(t, store.Save(fresh))

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	store.Delete(fresh.ID.String())
	assert.Equal(t, 0, store.Len())

	_, err := store.Get("not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Error(t, store.Save(&Session{}))
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

type fakeLoader struct {
	calls map[loader.Kind]int
	err   error
}

func (f *fakeLoader) Load(_ context.Context, uri string, kind loader.Kind) (*analytics.Table, error) {
	if f.calls == nil {
		f.calls = make(map[loader.Kind]int)
	}
	f.calls[kind]++
	if f.err != nil {
		return nil, &loader.LoadError{URI: uri, Err: f.err}
	}
	if kind == loader.Enriched {
		return enrichedTable(), nil
	}
	return transactionsTable(), nil
}

func TestManager_Acquire(t *testing.T) {
	fl := &fakeLoader{}
	store := NewSessionStore(time.Hour)
	m := NewManager(fl, Sources{Transactions: "tx.xlsx", Enriched: "enriched.csv"}, store, zerolog.Nop())

	sess, err := m.Acquire(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, fl.calls[loader.Transactions])
	assert.Equal(t, 1, fl.calls[loader.Enriched])

	again, err := m.Acquire(context.Background(), sess.ID.String())
	require.NoError(t, err)
	assert.Same(t, sess, again)
	assert.Equal(t, 1, fl.calls[loader.Transactions])

	other, err := m.Acquire(context.Background(), "00000000-0000-4000-8000-00000000abcd")
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, other.ID)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, "tx.xlsx", m.Sources().Transactions)
}

func TestManager_AcquireLoadError(t *testing.T) {
	fl := &fakeLoader{err: errors.New("no such file")}
	store := NewSessionStore(time.Hour)
	m := NewManager(fl, Sources{Transactions: "tx.xlsx", Enriched: "enriched.csv"}, store, zerolog.Nop())

	_, err := m.Acquire(context.Background(), "")
	require.Error(t, err)
	var loadErr *loader.LoadError
	assert.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 0, store.Len())
}
