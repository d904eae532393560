package charts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/coffee-dashboard/internal/analytics"
)

func result(groupBy []string, groups ...analytics.Group) *analytics.Result {
	return &analytics.Result{
		GroupBy:   groupBy,
		Measure:   analytics.ColSales,
		Reduction: analytics.Sum,
		Groups:    groups,
	}
}

func group(value float64, keys ...string) analytics.Group {
	return analytics.Group{Keys: keys, Value: value, Count: 1}
}

func TestBuildConfigSingleSeries(t *testing.T) {
	res := result([]string{analytics.ColLocation},
		group(10.004, "Astoria"),
		group(25, "Lower Manhattan"),
	)

	cfg := BuildConfig("Revenue by location", "Location", "Revenue", Bar, res)

	assert.Equal(t, Bar, cfg.Kind)
	assert.Equal(t, []string{"Astoria", "Lower Manhattan"}, cfg.Categories)
	require.Len(t, cfg.Series, 1)
	assert.Equal(t, "Revenue", cfg.Series[0].Name)
	assert.Equal(t, []Point{{Label: "Astoria", Value: 10}, {Label: "Lower Manhattan", Value: 25}}, cfg.Series[0].Points)
	assert.False(t, cfg.ShowLegend)
	assert.True(t, cfg.ShowGrid)
	assert.Equal(t, 35.0, cfg.Total())
	assert.False(t, cfg.Empty())
}

func TestBuildConfigMultiSeries(t *testing.T) {
	res := result([]string{analytics.ColLocation, analytics.ColProductDetail},
		group(1, "Astoria", "Latte"),
		group(2, "Astoria", "Mocha"),
		group(3, "Hell's Kitchen", "Latte"),
	)

	cfg := BuildConfig("Qty", "", "", StackedBar, res)

	assert.Equal(t, []string{"Astoria", "Hell's Kitchen"}, cfg.Categories)
	require.Len(t, cfg.Series, 2)
	assert.Equal(t, "Latte", cfg.Series[0].Name)
	assert.Equal(t, "Mocha", cfg.Series[1].Name)
	assert.Equal(t, 0.0, cfg.Series[1].Points[1].Value)
	assert.NotEqual(t, cfg.Series[0].Color, cfg.Series[1].Color)
	assert.True(t, cfg.ShowLegend)
}

func TestBuildConfigEmptyAndKPI(t *testing.T) {
	empty := BuildConfig("Nothing", "", "", Pie, result([]string{analytics.ColLocation}))
	assert.True(t, empty.Empty())
	assert.NotNil(t, empty.Categories)
	assert.NotNil(t, empty.Series)

	assert.True(t, BuildConfig("nil", "", "", Bar, nil).Empty())

	kpi := BuildConfig("Total revenue", "", "", KPI, result(nil, group(12.5), group(7.5)))
	require.Len(t, kpi.Series, 1)
	assert.Equal(t, 20.0, kpi.Total())
	assert.False(t, kpi.ShowGrid)

	unknown := BuildConfig("x", "", "", Kind("radar"), nil)
	assert.Equal(t, Bar, unknown.Kind)
}

func TestRenderSVG(t *testing.T) {
	bar := result([]string{analytics.ColLocation}, group(10, "Astoria"), group(25, "Lower Manhattan"))
	stacked := result([]string{analytics.ColLocation, analytics.ColProductDetail},
		group(1, "Astoria", "Latte"), group(2, "Astoria", "Mocha"), group(3, "Hell's Kitchen", "Latte"))

	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "bar", cfg: BuildConfig("Revenue by location", "Location", "Revenue", Bar, bar)},
		{name: "hbar", cfg: BuildConfig("Top products", "", "", HBar, bar)},
		{name: "grouped bar", cfg: BuildConfig("Qty grouped", "", "", Bar, stacked)},
		{name: "stacked", cfg: BuildConfig("Qty stacked", "", "", StackedBar, stacked)},
		{name: "line", cfg: BuildConfig("Monthly trend", "Month", "Sales", Line, bar)},
		{name: "pie", cfg: BuildConfig("Share by location", "", "", Pie, bar)},
		{name: "kpi", cfg: BuildConfig("Total revenue", "", "", KPI, bar)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := RenderSVG(&buf, tt.cfg, 0, 0, RenderOptions{Currency: "$"})
			require.NoError(t, err)
			out := buf.String()
			assert.True(t, strings.Contains(out, "<svg"), "output is not svg")
			assert.Contains(t, out, tt.cfg.Title)
			assert.NotContains(t, out, "No data")
		})
	}
}

func TestRenderSVGEmpty(t *testing.T) {
	var buf bytes.Buffer
	cfg := BuildConfig("Transactions per weekday", "", "", Line, result([]string{analytics.ColHour}))
	require.NoError(t, RenderSVG(&buf, cfg, 0, 0, RenderOptions{}))
	assert.Contains(t, buf.String(), "No data")

	assert.Error(t, RenderSVG(&buf, nil, 0, 0, RenderOptions{}))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$698,812.33", Money(698812.33, "$"))
	assert.Equal(t, "-$5.00", Money(-5, "$"))
	assert.Equal(t, "$10.50", MoneyDecimal(decimal.RequireFromString("10.499"), "$"))
	assert.Equal(t, "149,116", Integer(149116))
	assert.Equal(t, "3", Number(3))
	assert.Equal(t, "3.25", Number(3.25))
	assert.Equal(t, "$1,200.00", FormatValue(1200, analytics.ColSales, "$"))
	assert.Equal(t, "1,200", FormatValue(1200, analytics.ColQuantity, "$"))
}

func TestParseColor(t *testing.T) {
	r, g, b, a := parseColor("#4F46E5").RGBA()
	assert.Equal(t, uint32(0x4F4F), r)
	assert.Equal(t, uint32(0x4646), g)
	assert.Equal(t, uint32(0xE5E5), b)
	assert.Equal(t, uint32(0xFFFF), a)

	r, _, _, _ = parseColor("bogus").RGBA()
	assert.Equal(t, uint32(0), r)
}
