package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"vendas-dashboard/internal/config"
	"vendas-dashboard/internal/models"
	"vendas-dashboard/internal/observability"
	"vendas-dashboard/internal/sources"
)

var (
	ErrSourceRead = errors.New("source read error")
	ErrSchema     = errors.New("schema error")
	ErrParse      = errors.New("parse error")
)

// Serial dates outside these years are treated as unparseable.
const (
	minSerialYear = 1900
	maxSerialYear = 9999
)

// Quantities are summed as ints; above 2^53 a float cell no longer holds an
// exact whole number.
const maxQuantity = 1 << 53

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
}

type Source struct {
	Path  string
	Sheet string
}

type LoadOptions struct {
	Sales    Source
	Products Source
	Columns  config.Columns
}

// OptionsFromConfig maps the sources section of the configuration.
func OptionsFromConfig(cfg config.SourcesConfig) LoadOptions {
	return LoadOptions{
		Sales:    Source{Path: cfg.SalesFile, Sheet: cfg.SalesSheet},
		Products: Source{Path: cfg.ProductsFile, Sheet: cfg.ProductsSheet},
		Columns:  cfg.Columns,
	}
}

// Load reads both sources, left-joins sales to products and derives the
// cost, profit, period and year columns.
func Load(ctx context.Context, opts LoadOptions, logger *slog.Logger) (*Dataset, error) {
	ctx, span := observability.StartSpan(ctx, "dataset.load")
	defer span.FinishAndLog(ctx, logger)
	span.SetTag("sales", opts.Sales.Path)
	span.SetTag("products", opts.Products.Path)

	start := time.Now()
	logger.Info("loading sources", "sales", opts.Sales.Path, "products", opts.Products.Path)

	var salesTable, productsTable *sources.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := sources.Read(gctx, opts.Sales.Path, opts.Sales.Sheet)
		if err != nil {
			return fmt.Errorf("%w: sales: %w", ErrSourceRead, err)
		}
		salesTable = t
		return nil
	})
	g.Go(func() error {
		t, err := sources.Read(gctx, opts.Products.Path, opts.Products.Sheet)
		if err != nil {
			return fmt.Errorf("%w: products: %w", ErrSourceRead, err)
		}
		productsTable = t
		return nil
	})
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	sales, err := ParseSales(salesTable, opts.Columns.Sales)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	products, err := ParseProducts(productsTable, opts.Columns.Products)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	ds := NewDataset(Enrich(sales, products))

	if n := ds.Unmatched(); n > 0 {
		logger.Warn("sales without matching product", "count", n)
	}
	logger.Info("sources loaded",
		"records", ds.Len(),
		"products", len(products),
		"years", ds.Years(),
		"duration", time.Since(start),
		"trace_id", span.TraceID,
	)

	return ds, nil
}

// ParseSales converts the sales table into typed rows.
func ParseSales(t *sources.Table, cols config.SalesColumns) ([]models.Sale, error) {
	if missing := t.Missing(cols.ProductID, cols.CustomerID, cols.SaleDate, cols.SaleValue, cols.Quantity); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: missing columns %s", ErrSchema, t.Source, strings.Join(missing, ", "))
	}

	productCol, _ := t.Column(cols.ProductID)
	customerCol, _ := t.Column(cols.CustomerID)
	dateCol, _ := t.Column(cols.SaleDate)
	valueCol, _ := t.Column(cols.SaleValue)
	qtyCol, _ := t.Column(cols.Quantity)

	sales := make([]models.Sale, 0, len(t.Rows))
	for i, row := range t.Rows {
		// header is row 1
		rowNum := i + 2

		date, err := parseDate(t.Cell(row, dateCol), t.Workbook)
		if err != nil {
			return nil, cellError(t, rowNum, cols.SaleDate, err)
		}
		value, err := parseNumber(t.Cell(row, valueCol))
		if err != nil {
			return nil, cellError(t, rowNum, cols.SaleValue, err)
		}
		qty, err := parseQuantity(t.Cell(row, qtyCol))
		if err != nil {
			return nil, cellError(t, rowNum, cols.Quantity, err)
		}

		sales = append(sales, models.Sale{
			ProductID:  normalizeID(t.Cell(row, productCol)),
			CustomerID: t.Cell(row, customerCol),
			SaleDate:   date,
			SaleValue:  value,
			Quantity:   qty,
		})
	}

	return sales, nil
}

// ParseProducts indexes the products table by product ID. A repeated ID is a
// schema error since each sale must resolve to at most one product.
func ParseProducts(t *sources.Table, cols config.ProductsColumns) (map[string]models.Product, error) {
	if missing := t.Missing(cols.ProductID, cols.UnitCost, cols.Brand, cols.Category); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: missing columns %s", ErrSchema, t.Source, strings.Join(missing, ", "))
	}

	idCol, _ := t.Column(cols.ProductID)
	costCol, _ := t.Column(cols.UnitCost)
	brandCol, _ := t.Column(cols.Brand)
	categoryCol, _ := t.Column(cols.Category)

	products := make(map[string]models.Product, len(t.Rows))
	for i, row := range t.Rows {
		rowNum := i + 2

		id := normalizeID(t.Cell(row, idCol))
		if _, dup := products[id]; dup {
			return nil, fmt.Errorf("%w: %s row %d: duplicate product id %q", ErrSchema, t.Source, rowNum, id)
		}
		cost, err := parseNumber(t.Cell(row, costCol))
		if err != nil {
			return nil, cellError(t, rowNum, cols.UnitCost, err)
		}

		// Blank brand or category cells stay empty and are left out of the
		// grouped view for that key.
		products[id] = models.Product{
			ProductID: id,
			UnitCost:  cost,
			Brand:     t.Cell(row, brandCol),
			Category:  t.Cell(row, categoryCol),
		}
	}

	return products, nil
}

// Enrich left-joins sales to products. Sales whose product is unknown are
// kept with Matched=false and null product-derived fields.
func Enrich(sales []models.Sale, products map[string]models.Product) []models.SaleRecord {
	records := make([]models.SaleRecord, 0, len(sales))
	for _, s := range sales {
		rec := models.SaleRecord{
			ProductID:  s.ProductID,
			CustomerID: s.CustomerID,
			SaleDate:   s.SaleDate,
			SaleValue:  s.SaleValue,
			Quantity:   s.Quantity,
			Period:     s.SaleDate.Format("2006-01"),
			Year:       s.SaleDate.Year(),
		}

		if p, ok := products[s.ProductID]; ok {
			cost := decimal.NewFromFloat(p.UnitCost).Mul(decimal.NewFromInt(int64(s.Quantity)))
			profit := decimal.NewFromFloat(s.SaleValue).Sub(cost)

			rec.Matched = true
			rec.UnitCost = p.UnitCost
			rec.Brand = p.Brand
			rec.Category = p.Category
			rec.Cost = cost.InexactFloat64()
			rec.Profit = profit.InexactFloat64()
		}

		records = append(records, rec)
	}
	return records
}

func cellError(t *sources.Table, row int, column string, err error) error {
	return fmt.Errorf("%w: %s row %d column %q: %w", ErrParse, t.Source, row, column, err)
}

// parseDate accepts a few text layouts and, for workbook cells, Excel serial
// numbers. A bare number in a text source such as 20230115 is rejected.
func parseDate(s string, serials bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if !serials {
			return time.Time{}, fmt.Errorf("unrecognized date %q", s)
		}
		return parseSerialDate(serial)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseSerialDate(serial float64) (time.Time, error) {
	if serial <= 0 {
		return time.Time{}, fmt.Errorf("serial date %v is not positive", serial)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	if y := t.Year(); y < minSerialYear || y > maxSerialYear {
		return time.Time{}, fmt.Errorf("serial date %v is out of range (year %d)", serial, y)
	}
	return t, nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty number")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func parseQuantity(s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	if math.Abs(v) >= maxQuantity {
		return 0, fmt.Errorf("quantity %q is out of range", s)
	}
	return int(v), nil
}

// normalizeID makes "1" and "1.0" the same join key.
func normalizeID(s string) string {
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return s
}
