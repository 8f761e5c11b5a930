// Package templates holds the dashboard page and the fragments patched into
// it over SSE.
package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"vendas-dashboard/internal/models"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"
	chartScript    = "https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"
)

var metricCardsTemplate = template.Must(template.New("metrics").Parse(`
<div id="metrics" class="metric-row">
<div class="metric-card"><span class="metric-label">Total Custo</span><span id="total-cost" class="metric-value">{{.TotalCost}}</span></div>
<div class="metric-card"><span class="metric-label">Total Lucro</span><span id="total-profit" class="metric-value">{{.TotalProfit}}</span></div>
<div class="metric-card"><span class="metric-label">Total Clientes</span><span id="total-customers" class="metric-value">{{.TotalCustomers}}</span></div>
</div>`))

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Dashboard de Vendas</title>
<script type="module" src="{{.DatastarScript}}"></script>
<script src="{{.ChartScript}}"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;display:flex}
aside{width:200px;padding:1rem;background:#f4f4f8;min-height:100vh}
main{flex:1;padding:1rem 2rem}
.metric-row{display:flex;gap:1rem}
.metric-card{flex:1;border-left:.5rem solid #3e4095;padding:.75rem;box-shadow:0 1px 3px #0002}
.metric-label{display:block;font-size:.9rem}
.metric-value{font-size:18px;font-weight:600}
.charts{display:grid;grid-template-columns:1fr 1fr;gap:1rem;margin-top:1rem}
.charts .wide{grid-column:1/3}
</style>
</head>
<body data-signals="{{.Signals}}">
<aside>
<label for="year">Filtrar por Ano:</label>
<select id="year" data-bind:year data-on:change="@get('/sse/dashboard')">
<option value="">Todos</option>
{{range .Years}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
</aside>
<main>
<h1>Dashboard de Vendas 📊</h1>
{{.Metrics}}
<div class="charts" data-effect="window.renderCharts && window.renderCharts($brandData, $categoryData, $periodData)">
<figure><figcaption>Total produtos vendidos por Marca</figcaption><canvas id="brand-chart"></canvas></figure>
<figure><figcaption>Lucro por Categoria</figcaption><canvas id="category-chart"></canvas></figure>
<figure class="wide"><figcaption>Lucro x Mês x Categoria</figcaption><canvas id="period-chart"></canvas></figure>
</div>
</main>
<script>
window.renderCharts = function (brands, categories, periods) {
  const palette = ["#3e4095", "#EC610C", "#8860FF"];
  const draw = (id, config) => {
    const canvas = document.getElementById(id);
    if (canvas.chart) { canvas.chart.destroy(); }
    canvas.chart = new Chart(canvas, config);
  };
  draw("brand-chart", {
    type: "bar",
    data: { labels: brands.map(b => b.brand), datasets: [{ label: "Quantidade", data: brands.map(b => b.quantity), backgroundColor: palette[0] }] },
    options: { indexAxis: "y" }
  });
  draw("category-chart", {
    type: "pie",
    data: { labels: categories.map(c => c.category), datasets: [{ data: categories.map(c => c.profit), backgroundColor: palette }] }
  });
  const periodLabels = [...new Set(periods.map(p => p.period))];
  const series = [...new Set(periods.map(p => p.category))].map((category, i) => ({
    label: category,
    borderColor: palette[i % palette.length],
    data: periodLabels.map(label => {
      const point = periods.find(p => p.period === label && p.category === category);
      return point ? point.profit : null;
    })
  }));
  draw("period-chart", { type: "line", data: { labels: periodLabels, datasets: series } });
};
</script>
</body>
</html>
`))

// ChartSignals is the Datastar signal payload that feeds the three charts.
type ChartSignals struct {
	Year         string                        `json:"year"`
	BrandData    []models.BrandQuantity        `json:"brandData"`
	CategoryData []models.CategoryProfit       `json:"categoryData"`
	PeriodData   []models.PeriodCategoryProfit `json:"periodData"`
	RecordCount  int                           `json:"recordCount"`
}

// NewChartSignals extracts the chart payload from a computed dashboard.
func NewChartSignals(d models.Dashboard) ChartSignals {
	year := ""
	if d.Year != nil {
		year = strconv.Itoa(*d.Year)
	}
	return ChartSignals{
		Year:         year,
		BrandData:    d.Summary.QuantityByBrand,
		CategoryData: d.Summary.ProfitByCategory,
		PeriodData:   d.Summary.ProfitByPeriodCategory,
		RecordCount:  d.RecordCount,
	}
}

type pageData struct {
	DatastarScript string
	ChartScript    string
	Signals        string
	Years          []int
	Metrics        template.HTML
}

// MetricCards renders the three metric cards as the #metrics element.
func MetricCards(m models.Metrics) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return metricCardsTemplate.Execute(w, m)
	})
}

// Dashboard renders the full page for the initial, unfiltered view.
func Dashboard(years []int, d models.Dashboard) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := json.Marshal(NewChartSignals(d))
		if err != nil {
			return err
		}

		metrics, err := templ.ToGoHTML(ctx, MetricCards(d.Metrics))
		if err != nil {
			return err
		}

		return dashboardTemplate.Execute(w, pageData{
			DatastarScript: datastarScript,
			ChartScript:    chartScript,
			Signals:        string(signals),
			Years:          years,
			Metrics:        metrics,
		})
	})
}
