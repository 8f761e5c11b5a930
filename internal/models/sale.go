package models

import "time"

// Sale is one row of the sales sheet.
type Sale struct {
	ProductID  string
	CustomerID string
	SaleDate   time.Time
	SaleValue  float64
	Quantity   int
}

// Product is one row of the products sheet.
type Product struct {
	ProductID string
	UnitCost  float64
	Brand     string
	Category  string
}

// SaleRecord is a sale left-joined with its product and enriched with the
// derived columns. When Matched is false the product fields, Cost and Profit
// are null and hold their zero values.
type SaleRecord struct {
	ProductID  string    `json:"product_id"`
	CustomerID string    `json:"customer_id"`
	SaleDate   time.Time `json:"sale_date"`
	SaleValue  float64   `json:"sale_value"`
	Quantity   int       `json:"quantity"`

	Matched  bool    `json:"matched"`
	UnitCost float64 `json:"unit_cost"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`

	Cost   float64 `json:"cost"`
	Profit float64 `json:"profit"`
	Period string  `json:"period"`
	Year   int     `json:"year"`
}

// CostOrZero treats a null cost as zero.
func (r SaleRecord) CostOrZero() float64 {
	if !r.Matched {
		return 0
	}
	return r.Cost
}

// ProfitOrZero treats a null profit as zero.
func (r SaleRecord) ProfitOrZero() float64 {
	if !r.Matched {
		return 0
	}
	return r.Profit
}
