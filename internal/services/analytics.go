package services

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"vendas-dashboard/internal/currency"
	"vendas-dashboard/internal/models"
)

// Analytics runs the filter, aggregate and format stages over a loaded dataset.
type Analytics struct {
	dataset *Dataset
	logger  *slog.Logger
}

func NewAnalytics(dataset *Dataset, logger *slog.Logger) *Analytics {
	if dataset == nil {
		dataset = NewDataset(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		dataset: dataset,
		logger:  logger,
	}
}

func (a *Analytics) Years() []int {
	return a.dataset.Years()
}

// Dashboard computes everything one render of the page needs.
func (a *Analytics) Dashboard(year *int) models.Dashboard {
	records := a.dataset.Filter(year)
	summary := Aggregate(records)

	a.logger.Debug("dashboard computed",
		"year", yearLabel(year),
		"records", len(records),
		"brands", len(summary.QuantityByBrand),
		"categories", len(summary.ProfitByCategory),
	)

	return models.Dashboard{
		Year:        year,
		RecordCount: len(records),
		Metrics:     FormatMetrics(summary),
		Summary:     summary,
	}
}

func (a *Analytics) QuantityByBrand(year *int) []models.BrandQuantity {
	return Aggregate(a.dataset.Filter(year)).QuantityByBrand
}

func (a *Analytics) ProfitByCategory(year *int) []models.CategoryProfit {
	return Aggregate(a.dataset.Filter(year)).ProfitByCategory
}

func (a *Analytics) ProfitByPeriodCategory(year *int) []models.PeriodCategoryProfit {
	return Aggregate(a.dataset.Filter(year)).ProfitByPeriodCategory
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	all := Aggregate(a.dataset.Filter(nil))

	return map[string]any{
		"record_count": a.dataset.Len(),
		"unmatched":    a.dataset.Unmatched(),
		"years":        a.dataset.Years(),
		"brands":       len(all.QuantityByBrand),
		"categories":   len(all.ProfitByCategory),
		"loaded_at":    a.dataset.LoadedAt(),
	}
}

// Aggregate sums the records. Null costs and profits from unmatched sales
// count as zero in the totals; unmatched sales have no brand or category and
// are left out of the grouped views. A blank brand or category is a missing
// key too: the sale still counts in the totals but not in that view.
func Aggregate(records []models.SaleRecord) models.Summary {
	totalCost := decimal.Zero
	totalProfit := decimal.Zero
	customers := make(map[string]struct{})

	brandGroups := make(map[string]int)
	categoryGroups := make(map[string]decimal.Decimal)
	periodGroups := make(map[[2]string]decimal.Decimal)

	for _, r := range records {
		totalCost = totalCost.Add(decimal.NewFromFloat(r.CostOrZero()))
		totalProfit = totalProfit.Add(decimal.NewFromFloat(r.ProfitOrZero()))
		customers[r.CustomerID] = struct{}{}

		if !r.Matched {
			continue
		}
		if r.Brand != "" {
			brandGroups[r.Brand] += r.Quantity
		}
		if r.Category != "" {
			profit := decimal.NewFromFloat(r.Profit)
			categoryGroups[r.Category] = categoryGroups[r.Category].Add(profit)
			key := [2]string{r.Period, r.Category}
			periodGroups[key] = periodGroups[key].Add(profit)
		}
	}

	return models.Summary{
		TotalCost:              totalCost.InexactFloat64(),
		TotalProfit:            totalProfit.InexactFloat64(),
		TotalCustomers:         len(customers),
		QuantityByBrand:        sortQuantityByBrand(brandGroups),
		ProfitByCategory:       sortProfitByCategory(categoryGroups),
		ProfitByPeriodCategory: sortProfitByPeriod(periodGroups),
	}
}

// FormatMetrics renders the metric card values.
func FormatMetrics(s models.Summary) models.Metrics {
	return models.Metrics{
		TotalCost:      currency.FormatBRL(s.TotalCost),
		TotalProfit:    currency.FormatBRL(s.TotalProfit),
		TotalCustomers: s.TotalCustomers,
	}
}

func sortQuantityByBrand(groups map[string]int) []models.BrandQuantity {
	result := make([]models.BrandQuantity, 0, len(groups))
	for brand, qty := range groups {
		result = append(result, models.BrandQuantity{Brand: brand, Quantity: qty})
	}
	slices.SortFunc(result, func(a, b models.BrandQuantity) int {
		return cmp.Or(cmp.Compare(a.Quantity, b.Quantity), cmp.Compare(a.Brand, b.Brand))
	})
	return result
}

func sortProfitByCategory(groups map[string]decimal.Decimal) []models.CategoryProfit {
	result := make([]models.CategoryProfit, 0, len(groups))
	for category, profit := range groups {
		result = append(result, models.CategoryProfit{Category: category, Profit: profit.InexactFloat64()})
	}
	slices.SortFunc(result, func(a, b models.CategoryProfit) int {
		return cmp.Compare(a.Category, b.Category)
	})
	return result
}

func sortProfitByPeriod(groups map[[2]string]decimal.Decimal) []models.PeriodCategoryProfit {
	result := make([]models.PeriodCategoryProfit, 0, len(groups))
	for key, profit := range groups {
		result = append(result, models.PeriodCategoryProfit{
			Period:   key[0],
			Category: key[1],
			Profit:   profit.InexactFloat64(),
		})
	}
	slices.SortFunc(result, func(a, b models.PeriodCategoryProfit) int {
		return cmp.Or(cmp.Compare(a.Period, b.Period), cmp.Compare(a.Category, b.Category))
	})
	return result
}

func yearLabel(year *int) any {
	if year == nil {
		return "all"
	}
	return *year
}
