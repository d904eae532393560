package analytics

import (
	"github.com/shopspring/decimal"
)

// KPIs are the headline figures shown on the overview page.
type KPIs struct {
	TotalRevenue       decimal.Decimal `json:"totalRevenue"`
	TotalOrders        int             `json:"totalOrders"`
	TotalQuantity      float64         `json:"totalQuantity"`
	AverageOrderValue  decimal.Decimal `json:"averageOrderValue"`
	TopLocation        string          `json:"topLocation"`
	TopLocationRevenue decimal.Decimal `json:"topLocationRevenue"`
	TopProduct         string          `json:"topProduct"`
	LocationCount      int             `json:"locationCount"`
}

// ComputeKPIs derives headline figures from t. Money is summed exactly in
// decimal. Orders are distinct transaction ids; rows without an id count
// individually. Ties for top location/product go to the first seen.
func ComputeKPIs(t *Table) KPIs {
	k := KPIs{
		TotalRevenue:       decimal.Zero,
		AverageOrderValue:  decimal.Zero,
		TopLocationRevenue: decimal.Zero,
	}
	if t.Len() == 0 {
		return k
	}

	ids := make(map[string]bool)
	byLocation := make(map[string]decimal.Decimal)
	var locations []string
	byProduct := make(map[string]decimal.Decimal)
	var products []string

	for _, tx := range t.Rows() {
		rev := decimal.NewFromFloat(tx.Revenue)
		k.TotalRevenue = k.TotalRevenue.Add(rev)
		k.TotalQuantity += tx.Quantity

		if tx.ID == "" {
			k.TotalOrders++
		} else if !ids[tx.ID] {
			ids[tx.ID] = true
			k.TotalOrders++
		}

		if _, ok := byLocation[tx.StoreLocation]; !ok {
			locations = append(locations, tx.StoreLocation)
		}
		byLocation[tx.StoreLocation] = byLocation[tx.StoreLocation].Add(rev)

		if _, ok := byProduct[tx.Product]; !ok {
			products = append(products, tx.Product)
		}
		byProduct[tx.Product] = byProduct[tx.Product].Add(rev)
	}

	k.LocationCount = len(locations)
	k.TopLocation, k.TopLocationRevenue = argmax(locations, byLocation)
	k.TopProduct, _ = argmax(products, byProduct)
	if k.TotalOrders > 0 {
		k.AverageOrderValue = k.TotalRevenue.Div(decimal.NewFromInt(int64(k.TotalOrders))).Round(2)
	}
	return k
}

func argmax(keys []string, values map[string]decimal.Decimal) (string, decimal.Decimal) {
	best := ""
	bestValue := decimal.Zero
	for i, key := range keys {
		if i == 0 || values[key].GreaterThan(bestValue) {
			best = key
			bestValue = values[key]
		}
	}
	return best, bestValue
}
