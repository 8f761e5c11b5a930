package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vendas-dashboard/internal/config"
	"vendas-dashboard/internal/models"
	"vendas-dashboard/internal/services"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAnalytics() *services.Analytics {
	sales := []models.Sale{
		{ProductID: "1", CustomerID: "A", SaleDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), SaleValue: 100, Quantity: 2},
	}
	products := map[string]models.Product{
		"1": {ProductID: "1", UnitCost: 10, Brand: "Alfa", Category: "Casa"},
	}
	return services.NewAnalytics(services.NewDataset(services.Enrich(sales, products)), quietLogger())
}

func TestServer_RegistersRoutes(t *testing.T) {
	var pageHits int
	srv := NewServer(testAnalytics(), quietLogger(), &TemplateHandlers{
		Dashboard: func(w http.ResponseWriter, r *http.Request) { pageHits++ },
	})

	for _, path := range []string{
		"/",
		"/health",
		"/admin/stats",
		"/api/years",
		"/api/summary",
		"/api/quantity-by-brand",
		"/api/profit-by-category",
		"/api/profit-by-period",
		"/sse/dashboard",
	} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}

	if pageHits != 1 {
		t.Errorf("dashboard page should be hit once, got %d", pageHits)
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", w.Code)
	}
}

func testGracefulServer(t *testing.T) *GracefulServer {
	t.Helper()
	httpServer := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NotFoundHandler(),
	}
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeout: 2 * time.Second}}
	return NewGracefulServer(httpServer, quietLogger(), cfg)
}

func TestGracefulServer_ShutdownRunsHooks(t *testing.T) {
	gs := testGracefulServer(t)

	var calls atomic.Int32
	for range 2 {
		gs.RegisterShutdownHook(func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe() did not return after cancel")
	}

	if calls.Load() != 2 {
		t.Errorf("expected 2 hook calls, got %d", calls.Load())
	}
}

func TestGracefulServer_HookError(t *testing.T) {
	gs := testGracefulServer(t)
	boom := errors.New("flush failed")
	gs.RegisterShutdownHook(func(ctx context.Context) error { return boom })

	err := gs.shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("shutdown() error = %v, want %v", err, boom)
	}
}

func TestGracefulServer_ListenError(t *testing.T) {
	gs := testGracefulServer(t)
	gs.server.Addr = "256.0.0.1:bad"

	if err := gs.ListenAndServe(context.Background()); err == nil {
		t.Error("expected listen error")
	}
}
