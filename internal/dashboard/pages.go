package dashboard

import (
	"github.com/dvloznov/coffee-dashboard/internal/analytics"
	"github.com/dvloznov/coffee-dashboard/internal/charts"
)

// Source names which loaded table a panel reads.
type Source string

const (
	SourceTransactions Source = "transactions"
	SourceEnriched     Source = "enriched"
)

// Condition shows a panel only while a selector holds Value.
type Condition struct {
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

// Selector is a per-page input. Options are static, or the distinct values
// of column OptionsFrom in table Source.
type Selector struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Options     []string `json:"options,omitempty"`
	OptionsFrom string   `json:"optionsFrom,omitempty"`
	Source      Source   `json:"source,omitempty"`
}

// Panel is one chart on a page: which table, which aggregation, how to draw it.
type Panel struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Source Source          `json:"source"`
	Query  analytics.Query `json:"query"`
	Chart  charts.Kind     `json:"chart"`
	XLabel string          `json:"xLabel,omitempty"`
	YLabel string          `json:"yLabel,omitempty"`

	// ShowWhen hides the panel unless the named selector has the value.
	ShowWhen *Condition `json:"showWhen,omitempty"`

	// CategoryScoped narrows the table to the page's chosen category, and
	// "{category}" in Title is replaced with it.
	CategoryScoped bool `json:"categoryScoped,omitempty"`
}

// Page is a declarative dashboard page.
type Page struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Icon        string     `json:"icon"`
	Description string     `json:"description"`
	ShowKPIs    bool       `json:"showKpis"`
	Selectors   []Selector `json:"selectors,omitempty"`
	Panels      []Panel    `json:"panels"`
}

// Panel returns the panel with the given id.
func (p Page) Panel(id string) (Panel, bool) {
	for _, panel := range p.Panels {
		if panel.ID == id {
			return panel, true
		}
	}
	return Panel{}, false
}

// CategorySelector is the name of the product-category picker used by
// category-scoped panels.
const CategorySelector = "category"

const optionNone = "None"

var pages = []Page{
	{
		Slug:        "overview",
		Title:       "Overview",
		Icon:        "📈",
		Description: "Key performance indicators and where the revenue comes from.",
		ShowKPIs:    true,
		Panels: []Panel{
			{
				ID:     "location-share",
				Title:  "Sales distribution by store location",
				Source: SourceEnriched,
				Query:  sum([]string{analytics.ColLocation}, analytics.ColSales),
				Chart:  charts.Pie,
			},
			{
				ID:     "location-revenue",
				Title:  "Total revenue by store location",
				Source: SourceTransactions,
				Query:  sum([]string{analytics.ColLocation}, analytics.ColTotalRevenue),
				Chart:  charts.Bar,
				XLabel: "Store Location",
				YLabel: "Total Revenue",
			},
			{
				ID:     "top-categories",
				Title:  "Top product categories",
				Source: SourceTransactions,
				Query:  sorted(sum([]string{analytics.ColProductCategory}, analytics.ColTotalRevenue), analytics.OrderValueDesc, 0),
				Chart:  charts.HBar,
				XLabel: "Revenue",
				YLabel: "Product Category",
			},
		},
	},
	{
		Slug:        "customer-behaviour",
		Title:       "Customer Behaviour",
		Icon:        "🧍",
		Description: "When customers buy and what they buy, by product category and store location.",
		Selectors: []Selector{
			{Name: CategorySelector, Label: "Product category", OptionsFrom: analytics.ColProductCategory, Source: SourceTransactions},
			{Name: "extra", Label: "Additional analysis", Options: []string{optionNone, "Barista Revenue"}},
		},
		Panels: []Panel{
			{
				ID:             "category-sales",
				Title:          "Sales of {category} by location",
				Source:         SourceTransactions,
				Query:          sum([]string{analytics.ColLocation, analytics.ColProductDetail}, analytics.ColQuantity),
				Chart:          charts.StackedBar,
				XLabel:         "Store Location",
				YLabel:         "Total Sales Quantity",
				CategoryScoped: true,
			},
			{
				ID:     "hourly-transactions",
				Title:  "Transactions per hour",
				Source: SourceEnriched,
				Query:  count([]string{analytics.ColHour}),
				Chart:  charts.Line,
				XLabel: "Hour",
				YLabel: "Transactions",
			},
			{
				ID:     "weekday-transactions",
				Title:  "Transactions per weekday",
				Source: SourceTransactions,
				Query:  count([]string{analytics.ColWeekday}),
				Chart:  charts.Bar,
				XLabel: "Weekday",
				YLabel: "Transactions",
			},
			{
				ID:     "monthly-transactions",
				Title:  "Transactions per month",
				Source: SourceTransactions,
				Query:  count([]string{analytics.ColMonth}),
				Chart:  charts.Line,
				XLabel: "Month",
				YLabel: "Transactions",
			},
			{
				ID:     "hourly-revenue-by-location",
				Title:  "Average revenue by hour of the day for each location",
				Source: SourceTransactions,
				Query: analytics.Query{
					GroupBy:   []string{analytics.ColHour, analytics.ColLocation},
					Measure:   analytics.ColTotalRevenue,
					Reduction: analytics.Mean,
				},
				Chart:  charts.StackedBar,
				XLabel: "Hour",
				YLabel: "Average Revenue",
			},
			{
				ID:       "barista-revenue",
				Title:    "Revenue by barista",
				Source:   SourceEnriched,
				Query:    sorted(sum([]string{"barista"}, analytics.ColSales), analytics.OrderValueDesc, 0),
				Chart:    charts.Bar,
				XLabel:   "Barista",
				YLabel:   "Revenue",
				ShowWhen: &Condition{Selector: "extra", Value: "Barista Revenue"},
			},
		},
	},
	{
		Slug:        "pricing-strategy",
		Title:       "Pricing Strategy",
		Icon:        "💸",
		Description: "Price levels per category and the products that sell least.",
		Selectors: []Selector{
			{Name: "purchase", Label: "Further analysis on purchase amount", Options: []string{optionNone, "Purchase by Region", "Purchase by Category"}},
		},
		Panels: []Panel{
			{
				ID:     "category-avg-price",
				Title:  "Average unit price by product category",
				Source: SourceTransactions,
				Query: analytics.Query{
					GroupBy:   []string{analytics.ColProductCategory},
					Measure:   analytics.ColUnitPrice,
					Reduction: analytics.Mean,
					Order:     analytics.OrderValueDesc,
				},
				Chart:  charts.Bar,
				XLabel: "Product Category",
				YLabel: "Average Unit Price",
			},
			{
				ID:     "lowest-selling",
				Title:  "Lowest-selling products",
				Source: SourceTransactions,
				Query:  sorted(sum([]string{analytics.ColProductDetail}, analytics.ColQuantity), analytics.OrderValueAsc, 10),
				Chart:  charts.HBar,
				XLabel: "Quantity Sold",
				YLabel: "Product",
			},
			{
				ID:     "purchase-by-region",
				Title:  "Average purchase amount by region",
				Source: SourceTransactions,
				Query: analytics.Query{
					GroupBy:   []string{analytics.ColLocation},
					Measure:   analytics.ColTotalRevenue,
					Reduction: analytics.Mean,
				},
				Chart:    charts.Bar,
				XLabel:   "Store Location",
				YLabel:   "Average Purchase",
				ShowWhen: &Condition{Selector: "purchase", Value: "Purchase by Region"},
			},
			{
				ID:       "purchase-by-category",
				Title:    "Purchase amount by product category",
				Source:   SourceTransactions,
				Query:    sum([]string{analytics.ColProductCategory}, analytics.ColTotalRevenue),
				Chart:    charts.Pie,
				ShowWhen: &Condition{Selector: "purchase", Value: "Purchase by Category"},
			},
		},
	},
	{
		Slug:        "future-demand",
		Title:       "Future Demand",
		Icon:        "📅",
		Description: "Revenue per location and category demand to plan stock.",
		Selectors: []Selector{
			{Name: "categories", Label: "Further analysis on categories", Options: []string{optionNone, "Category by Region", "Category by Purchase Volume"}},
		},
		Panels: []Panel{
			{
				ID:     "location-revenue",
				Title:  "Revenue analysis of each location",
				Source: SourceTransactions,
				Query:  sum([]string{analytics.ColLocation}, analytics.ColTotalRevenue),
				Chart:  charts.Bar,
				XLabel: "Store Location",
				YLabel: "Total Revenue",
			},
			{
				ID:     "category-transactions",
				Title:  "Transactions per category",
				Source: SourceEnriched,
				Query:  sorted(count([]string{analytics.ColCategory}), analytics.OrderValueDesc, 0),
				Chart:  charts.Bar,
				XLabel: "Category",
				YLabel: "Transactions",
			},
			{
				ID:     "category-avg-transaction",
				Title:  "Average transaction value per category",
				Source: SourceEnriched,
				Query: analytics.Query{
					GroupBy:   []string{analytics.ColCategory},
					Measure:   analytics.ColSales,
					Reduction: analytics.Mean,
					Order:     analytics.OrderValueDesc,
				},
				Chart:  charts.HBar,
				XLabel: "Average Sales Value",
				YLabel: "Category",
			},
			{
				ID:       "category-by-region",
				Title:    "Top categories by region",
				Source:   SourceTransactions,
				Query:    sum([]string{analytics.ColLocation, analytics.ColProductCategory}, analytics.ColTotalRevenue),
				Chart:    charts.StackedBar,
				XLabel:   "Store Location",
				YLabel:   "Revenue",
				ShowWhen: &Condition{Selector: "categories", Value: "Category by Region"},
			},
			{
				ID:       "category-by-volume",
				Title:    "Top categories by purchase volume",
				Source:   SourceTransactions,
				Query:    sorted(sum([]string{analytics.ColProductCategory}, analytics.ColQuantity), analytics.OrderValueDesc, 0),
				Chart:    charts.HBar,
				XLabel:   "Quantity Sold",
				YLabel:   "Product Category",
				ShowWhen: &Condition{Selector: "categories", Value: "Category by Purchase Volume"},
			},
		},
	},
	{
		Slug:        "sales-analysis",
		Title:       "Sales Analysis",
		Icon:        "💰",
		Description: "Monthly sales performance and sales distribution across locations.",
		Panels: []Panel{
			{
				ID:     "monthly-sales",
				Title:  "Sales by month",
				Source: SourceEnriched,
				Query:  sum([]string{analytics.ColMonth}, analytics.ColSales),
				Chart:  charts.Line,
				XLabel: "Month",
				YLabel: "Sales",
			},
			{
				ID:     "location-sales",
				Title:  "Sales by location",
				Source: SourceEnriched,
				Query:  sum([]string{analytics.ColLocation}, analytics.ColSales),
				Chart:  charts.Pie,
			},
		},
	},
	{
		Slug:        "time-trends",
		Title:       "Time Trends",
		Icon:        "⏰",
		Description: "Sales by hour of the day and day of the week to find peak times.",
		Panels: []Panel{
			{
				ID:     "hourly-orders",
				Title:  "Peak hour for sales",
				Source: SourceEnriched,
				Query:  count([]string{analytics.ColHour}),
				Chart:  charts.Line,
				XLabel: "Hour",
				YLabel: "Number of Orders",
			},
			{
				ID:     "weekday-orders",
				Title:  "Sales by day of the week",
				Source: SourceEnriched,
				Query:  count([]string{analytics.ColWeekday}),
				Chart:  charts.Bar,
				XLabel: "Weekday",
				YLabel: "Order Count",
			},
		},
	},
	{
		Slug:        "product-performance",
		Title:       "Product Performance",
		Icon:        "📦",
		Description: "Top-selling products and order value per category.",
		Panels: []Panel{
			{
				ID:     "top-products",
				Title:  "Top 10 products by revenue",
				Source: SourceEnriched,
				Query:  sorted(sum([]string{analytics.ColProduct}, analytics.ColSales), analytics.OrderValueDesc, 10),
				Chart:  charts.HBar,
				XLabel: "Revenue",
				YLabel: "Product",
			},
			{
				ID:     "category-aov",
				Title:  "Average order value by category",
				Source: SourceEnriched,
				Query: analytics.Query{
					GroupBy:   []string{analytics.ColCategory},
					Measure:   analytics.ColSales,
					Reduction: analytics.Mean,
					Order:     analytics.OrderValueDesc,
				},
				Chart:  charts.HBar,
				XLabel: "Average Sales Value",
				YLabel: "Category",
			},
		},
	},
	{
		Slug:        "regional-insights",
		Title:       "Regional Insights",
		Icon:        "📊",
		Description: "Regional trends and sales compared across stores.",
		Panels: []Panel{
			{
				ID:     "location-sales-sorted",
				Title:  "Sales by store location",
				Source: SourceEnriched,
				Query:  sorted(sum([]string{analytics.ColLocation}, analytics.ColSales), analytics.OrderValueDesc, 0),
				Chart:  charts.Bar,
				XLabel: "Store Location",
				YLabel: "Sales",
			},
		},
	},
}

func sum(groupBy []string, measure string) analytics.Query {
	return analytics.Query{GroupBy: groupBy, Measure: measure, Reduction: analytics.Sum}
}

func count(groupBy []string) analytics.Query {
	return analytics.Query{GroupBy: groupBy, Measure: analytics.ColTransactionID, Reduction: analytics.Count}
}

func sorted(q analytics.Query, order analytics.Order, limit int) analytics.Query {
	q.Order = order
	q.Limit = limit
	return q
}

// DefaultPage is the page served for "/".
const DefaultPage = "overview"

// Pages returns the built-in pages in navigation order.
func Pages() []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	return out
}

// LookupPage returns the page with the given slug.
func LookupPage(slug string) (Page, bool) {
	for _, p := range pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}
