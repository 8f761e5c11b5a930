package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"vendas-dashboard/internal/config"
	"vendas-dashboard/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func createWorkbook(t *testing.T, name string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func defaultOptions(salesPath, productsPath string) LoadOptions {
	return LoadOptions{
		Sales:    Source{Path: salesPath},
		Products: Source{Path: productsPath},
		Columns:  config.DefaultColumns(),
	}
}

const productsCSV = `ID Produto,Custo Unitário,Marca,Categoria
1,10,Marca A,Eletrônicos
2,5.5,Marca B,Casa
`

func TestLoad_Workbooks(t *testing.T) {
	sales := createWorkbook(t, "Vendas.xlsx", [][]any{
		{"ID Produto", "ID Cliente", "Data Venda", "Valor Venda", "Quantidade"},
		{1, "A", time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), 100, 2},
		{2, "B", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 30.5, 3},
	})
	products := createWorkbook(t, "Produtos.xlsx", [][]any{
		{"ID Produto", "Custo Unitário", "Marca", "Categoria"},
		{1, 10, "Marca A", "Eletrônicos"},
		{2, 5.5, "Marca B", "Casa"},
	})

	ds, err := Load(context.Background(), defaultOptions(sales, products), discardLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if ds.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", ds.Len())
	}

	first := ds.Records()[0]
	if first.Period != "2023-01" || first.Year != 2023 {
		t.Errorf("serial date not converted: period=%q year=%d", first.Period, first.Year)
	}
	if first.Cost != 20 || first.Profit != 80 {
		t.Errorf("cost=%v profit=%v, want 20 and 80", first.Cost, first.Profit)
	}

	second := ds.Records()[1]
	if second.Cost != 16.5 || second.Profit != 14 {
		t.Errorf("cost=%v profit=%v, want 16.5 and 14", second.Cost, second.Profit)
	}
	if second.Brand != "Marca B" || second.Category != "Casa" {
		t.Errorf("product fields not joined: %+v", second)
	}

	years := ds.Years()
	if len(years) != 2 || years[0] != 2023 || years[1] != 2024 {
		t.Errorf("Years() = %v", years)
	}
}

func TestLoad_CSVLeftJoin(t *testing.T) {
	sales := createTempFile(t, "vendas.csv", `ID Produto,ID Cliente,Data Venda,Valor Venda,Quantidade
1,A,2023-01-15,100,2
99,B,2023-02-01,40,1
1.0,A,2023-02-10,50,1
`)
	products := createTempFile(t, "produtos.csv", productsCSV)

	ds, err := Load(context.Background(), defaultOptions(sales, products), discardLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if ds.Len() != 3 {
		t.Fatalf("left join must keep every sale, got %d records", ds.Len())
	}
	if ds.Unmatched() != 1 {
		t.Errorf("expected 1 unmatched sale, got %d", ds.Unmatched())
	}

	records := ds.Records()
	orphan := records[1]
	if orphan.Matched || orphan.Brand != "" || orphan.CostOrZero() != 0 || orphan.ProfitOrZero() != 0 {
		t.Errorf("unmatched sale should carry null product fields: %+v", orphan)
	}
	if !records[2].Matched {
		t.Error("product id 1.0 should join to product 1")
	}
}

func TestLoad_Errors(t *testing.T) {
	products := createTempFile(t, "produtos.csv", productsCSV)
	header := "ID Produto,ID Cliente,Data Venda,Valor Venda,Quantidade\n"

	tests := []struct {
		name     string
		sales    string
		products string
		target   error
	}{
		{
			name:     "missing sales file",
			sales:    filepath.Join(t.TempDir(), "missing.xlsx"),
			products: products,
			target:   ErrSourceRead,
		},
		{
			name:     "unsupported products format",
			sales:    createTempFile(t, "s.csv", header+"1,A,2023-01-15,100,2\n"),
			products: createTempFile(t, "p.txt", "x"),
			target:   ErrSourceRead,
		},
		{
			name:     "missing sales column",
			sales:    createTempFile(t, "s.csv", "ID Produto,ID Cliente,Data Venda,Valor Venda\n1,A,2023-01-15,100\n"),
			products: products,
			target:   ErrSchema,
		},
		{
			name:     "missing products column",
			sales:    createTempFile(t, "s.csv", header+"1,A,2023-01-15,100,2\n"),
			products: createTempFile(t, "p.csv", "ID Produto,Marca,Categoria\n1,X,Y\n"),
			target:   ErrSchema,
		},
		{
			name:     "duplicate product id",
			sales:    createTempFile(t, "s.csv", header+"1,A,2023-01-15,100,2\n"),
			products: createTempFile(t, "p.csv", "ID Produto,Custo Unitário,Marca,Categoria\n1,1,X,Y\n1,2,X,Y\n"),
			target:   ErrSchema,
		},
		{
			name:     "invalid date",
			sales:    createTempFile(t, "s.csv", header+"1,A,not-a-date,100,2\n"),
			products: products,
			target:   ErrParse,
		},
		{
			name:     "invalid sale value",
			sales:    createTempFile(t, "s.csv", header+"1,A,2023-01-15,abc,2\n"),
			products: products,
			target:   ErrParse,
		},
		{
			name:     "fractional quantity",
			sales:    createTempFile(t, "s.csv", header+"1,A,2023-01-15,100,2.5\n"),
			products: products,
			target:   ErrParse,
		},
		{
			name:     "invalid unit cost",
			sales:    createTempFile(t, "s.csv", header+"1,A,2023-01-15,100,2\n"),
			products: createTempFile(t, "p.csv", "ID Produto,Custo Unitário,Marca,Categoria\n1,,X,Y\n"),
			target:   ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), defaultOptions(tt.sales, tt.products), discardLogger())
			if !errors.Is(err, tt.target) {
				t.Errorf("Load() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestLoad_CustomColumns(t *testing.T) {
	sales := createTempFile(t, "sales.csv", "pid,cid,date,value,qty\n1,A,2023-01-15,100,2\n")
	products := createTempFile(t, "products.csv", "pid,cost,brand,category\n1,10,X,Y\n")

	opts := defaultOptions(sales, products)
	opts.Columns = config.Columns{
		Sales:    config.SalesColumns{ProductID: "pid", CustomerID: "cid", SaleDate: "date", SaleValue: "value", Quantity: "qty"},
		Products: config.ProductsColumns{ProductID: "pid", UnitCost: "cost", Brand: "brand", Category: "category"},
	}

	ds, err := Load(context.Background(), opts, discardLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := ds.Records()[0].Profit; got != 80 {
		t.Errorf("profit = %v, want 80", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.SourcesConfig{
		SalesFile:     "v.xlsx",
		SalesSheet:    "Vendas",
		ProductsFile:  "p.xlsx",
		ProductsSheet: "Produtos",
		Columns:       config.DefaultColumns(),
	})

	if opts.Sales.Path != "v.xlsx" || opts.Sales.Sheet != "Vendas" {
		t.Errorf("sales source = %+v", opts.Sales)
	}
	if opts.Products.Path != "p.xlsx" || opts.Products.Sheet != "Produtos" {
		t.Errorf("products source = %+v", opts.Products)
	}
}

func TestEnrich_DerivedFields(t *testing.T) {
	sales := []models.Sale{
		{ProductID: "1", CustomerID: "A", SaleDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), SaleValue: 100, Quantity: 2},
		{ProductID: "2", CustomerID: "B", SaleDate: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), SaleValue: 0.3, Quantity: 3},
		{ProductID: "3", CustomerID: "C", SaleDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), SaleValue: 10, Quantity: 1},
	}
	products := map[string]models.Product{
		"1": {ProductID: "1", UnitCost: 10, Brand: "X", Category: "Y"},
		"2": {ProductID: "2", UnitCost: 0.1, Brand: "X", Category: "Z"},
	}

	records := Enrich(sales, products)
	if len(records) != len(sales) {
		t.Fatalf("expected %d records, got %d", len(sales), len(records))
	}

	want := []struct {
		cost, profit float64
		period       string
		year         int
		matched      bool
	}{
		{20, 80, "2023-01", 2023, true},
		{0.3, 0, "2023-12", 2023, true},
		{0, 0, "2024-06", 2024, false},
	}
	for i, w := range want {
		r := records[i]
		if r.Cost != w.cost || r.Profit != w.profit {
			t.Errorf("record %d: cost=%v profit=%v, want %v %v", i, r.Cost, r.Profit, w.cost, w.profit)
		}
		if r.Period != w.period || r.Year != w.year || r.Matched != w.matched {
			t.Errorf("record %d: period=%q year=%d matched=%v", i, r.Period, r.Year, r.Matched)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	inputs := []string{"2023-01-15", "2023-01-15 00:00:00", "2023-01-15T00:00:00", "2023-01-15T00:00:00Z", "15/01/2023"}

	for _, serials := range []bool{true, false} {
		for _, in := range inputs {
			got, err := parseDate(in, serials)
			if err != nil {
				t.Errorf("parseDate(%q, %v) error = %v", in, serials, err)
				continue
			}
			if !got.Equal(want) {
				t.Errorf("parseDate(%q, %v) = %v, want %v", in, serials, got, want)
			}
		}
	}

	got, err := parseDate("44941", true)
	if err != nil || !got.Equal(want) {
		t.Errorf("parseDate(44941) = %v, %v, want %v", got, err, want)
	}

	for _, bad := range []string{"", "yesterday", "2023/13/45"} {
		if _, err := parseDate(bad, true); err == nil {
			t.Errorf("parseDate(%q) should fail", bad)
		}
	}
}

func TestParseDate_RejectsImplausibleNumbers(t *testing.T) {
	tests := []struct {
		in      string
		serials bool
	}{
		{"20230115", false},
		{"2023", false},
		{"44941", false},
		{"20230115", true},
		{"0", true},
		{"-5", true},
	}
	for _, tt := range tests {
		if got, err := parseDate(tt.in, tt.serials); err == nil {
			t.Errorf("parseDate(%q, %v) = %v, want error", tt.in, tt.serials, got)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	for in, want := range map[string]int{"2": 2, "3.0": 3, "-1": -1, "9007199254740991": 1<<53 - 1} {
		got, err := parseQuantity(in)
		if err != nil || got != want {
			t.Errorf("parseQuantity(%q) = %d, %v, want %d", in, got, err, want)
		}
	}
	for _, bad := range []string{"2.5", "1e20", "-1e20", "9007199254740992", ""} {
		if got, err := parseQuantity(bad); err == nil {
			t.Errorf("parseQuantity(%q) = %d, want error", bad, got)
		}
	}
}

func TestLoad_CSVNumericDateIsParseError(t *testing.T) {
	sales := createTempFile(t, "vendas.csv", `ID Produto,ID Cliente,Data Venda,Valor Venda,Quantidade
1,A,20230115,100,2
`)
	products := createTempFile(t, "produtos.csv", productsCSV)

	_, err := Load(context.Background(), defaultOptions(sales, products), discardLogger())
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Load() error = %v, want ErrParse", err)
	}
}

func TestLoad_QuantityOutOfRangeIsParseError(t *testing.T) {
	sales := createTempFile(t, "vendas.csv", `ID Produto,ID Cliente,Data Venda,Valor Venda,Quantidade
1,A,2023-01-15,100,1e20
`)
	products := createTempFile(t, "produtos.csv", productsCSV)

	_, err := Load(context.Background(), defaultOptions(sales, products), discardLogger())
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Load() error = %v, want ErrParse", err)
	}
}

func TestLoad_CustomerIDsKeptVerbatim(t *testing.T) {
	sales := createTempFile(t, "vendas.csv", `ID Produto,ID Cliente,Data Venda,Valor Venda,Quantidade
1,007,2023-01-15,100,1
1,7,2023-01-16,100,1
1,1e3,2023-01-17,100,1
1,1000,2023-01-18,100,1
`)
	products := createTempFile(t, "produtos.csv", productsCSV)

	ds, err := Load(context.Background(), defaultOptions(sales, products), discardLogger())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	records := ds.Records()
	for i, want := range []string{"007", "7", "1e3", "1000"} {
		if records[i].CustomerID != want {
			t.Errorf("record %d customer = %q, want %q", i, records[i].CustomerID, want)
		}
	}
	if got := Aggregate(records).TotalCustomers; got != 4 {
		t.Errorf("TotalCustomers = %d, want 4", got)
	}
}

func TestNormalizeID(t *testing.T) {
	tests := map[string]string{
		"1":    "1",
		"1.0":  "1",
		"007":  "7",
		"1.5":  "1.5",
		"ABC":  "ABC",
		"":     "",
		"NaN":  "NaN",
		"-3.0": "-3",
	}
	for in, want := range tests {
		if got := normalizeID(in); got != want {
			t.Errorf("normalizeID(%q) = %q, want %q", in, got, want)
		}
	}
}
