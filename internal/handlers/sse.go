package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"vendas-dashboard/internal/errors"
	"vendas-dashboard/internal/models"
	"vendas-dashboard/internal/observability"
	"vendas-dashboard/internal/services"
	"vendas-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// dashboardSignals is the part of the client signal store this handler reads.
type dashboardSignals struct {
	Year string `json:"year"`
}

func (h *SSEHandlers) renderMetrics(r *http.Request, m models.Metrics) (string, error) {
	var buf strings.Builder
	err := templates.MetricCards(m).Render(r.Context(), &buf)
	return buf.String(), err
}

// HandleDashboard recomputes the dashboard for the selected year, patches the
// metric cards and pushes the chart data as signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid datastar signals"), requestID)
		return
	}
	year, err := ParseYear(signals.Year)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	dashboard := h.analytics.Dashboard(year)

	html, err := h.renderMetrics(r, dashboard.Metrics)
	if err != nil {
		h.logger.Error("render metric cards", "error", err, "request_id", requestID)
		return
	}

	chartData, err := json.Marshal(templates.NewChartSignals(dashboard))
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err, "request_id", requestID)
		return
	}

	sse := datastar.NewSSE(w, r)

	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch metric cards", "error", err, "request_id", requestID)
		return
	}
	if err := sse.PatchSignals(chartData); err != nil {
		h.logger.Warn("patch chart signals", "error", err, "request_id", requestID)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
