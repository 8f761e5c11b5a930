package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vendas-dashboard/internal/errors"
	"vendas-dashboard/internal/observability"
	"vendas-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// ParseYear reads the year selector. Empty or "all" selects every year.
func ParseYear(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return nil, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		return nil, errors.BadRequest("year must be a four digit number or \"all\"")
	}
	return &year, nil
}

func (h *APIHandlers) yearFilter(w http.ResponseWriter, r *http.Request) (*int, bool) {
	year, err := ParseYear(r.URL.Query().Get("year"))
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return nil, false
	}
	return year, true
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearFilter(w, r)
	if !ok {
		return
	}

	data := h.analytics.Dashboard(year)

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleYears(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Years(), map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleQuantityByBrand(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearFilter(w, r)
	if !ok {
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.QuantityByBrand(year), map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleProfitByCategory(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearFilter(w, r)
	if !ok {
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.ProfitByCategory(year), map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleProfitByPeriod(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearFilter(w, r)
	if !ok {
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.ProfitByPeriodCategory(year), map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
