package models

type BrandQuantity struct {
	Brand    string `json:"brand"`
	Quantity int    `json:"quantity"`
}

type CategoryProfit struct {
	Category string  `json:"category"`
	Profit   float64 `json:"profit"`
}

type PeriodCategoryProfit struct {
	Period   string  `json:"period"`
	Category string  `json:"category"`
	Profit   float64 `json:"profit"`
}

// Summary is the aggregate view of one filtered record set.
type Summary struct {
	TotalCost              float64                `json:"total_cost"`
	TotalProfit            float64                `json:"total_profit"`
	TotalCustomers         int                    `json:"total_customers"`
	QuantityByBrand        []BrandQuantity        `json:"quantity_by_brand"`
	ProfitByCategory       []CategoryProfit       `json:"profit_by_category"`
	ProfitByPeriodCategory []PeriodCategoryProfit `json:"profit_by_period_category"`
}

// Metrics holds the three values shown on the metric cards.
type Metrics struct {
	TotalCost      string `json:"total_cost"`
	TotalProfit    string `json:"total_profit"`
	TotalCustomers int    `json:"total_customers"`
}

type Dashboard struct {
	Year        *int    `json:"year"`
	RecordCount int     `json:"record_count"`
	Metrics     Metrics `json:"metrics"`
	Summary     Summary `json:"summary"`
}
