package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"vendas-dashboard/internal/config"
	"vendas-dashboard/internal/errors"
	"vendas-dashboard/internal/middleware"
	"vendas-dashboard/internal/observability"
	"vendas-dashboard/internal/server"
	"vendas-dashboard/internal/services"
	"vendas-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	cacheMaxAge    = "public, max-age=300"
	janitorEvery   = time.Minute
	defaultVersion = "1.0.0"
)

// dashboardPage renders the unfiltered dashboard with the year selector.
func dashboardPage(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		page := templates.Dashboard(analytics.Years(), analytics.Dashboard(nil))
		if err := page.Render(ctx, w); err != nil {
			logger.Error("render dashboard", "error", err, "request_id", observability.GetRequestID(r.Context()))
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newHandler wires routes and the middleware chain around analytics.
func newHandler(cfg *config.Config, analytics *services.Analytics, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardPage(analytics, logger),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

	middlewareChain := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)

	return middlewareChain(srv)
}

// loadError classifies a dataset load failure by its sentinel.
func loadError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, services.ErrSchema):
		return errors.Wrap(err, errors.CodeSchema, "Spreadsheet is missing expected columns")
	case stderrors.Is(err, services.ErrParse):
		return errors.Wrap(err, errors.CodeParse, "Spreadsheet contains a value that cannot be parsed")
	case stderrors.Is(err, services.ErrSourceRead):
		return errors.Wrap(err, errors.CodeSourceRead, "Spreadsheet could not be read")
	default:
		return errors.Wrap(err, errors.CodeInternal, "Dataset could not be loaded")
	}
}

// loadDataset reads both spreadsheets once through the cache.
func loadDataset(cfg *config.Config, logger *slog.Logger) (*services.Dataset, error) {
	cache := services.NewCache(func(ctx context.Context) (*services.Dataset, error) {
		return services.Load(ctx, services.OptionsFromConfig(cfg.Sources), logger)
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sources.LoadTimeout)
	defer cancel()

	return cache.Get(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", defaultVersion,
		"sales_file", cfg.Sources.SalesFile,
		"products_file", cfg.Sources.ProductsFile,
	)

	start := time.Now()
	dataset, err := loadDataset(cfg, logger)
	if err != nil {
		appErr := loadError(err)
		logger.Error("failed to load sales data",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
		os.Exit(1)
	}
	logger.Info("sales data loaded",
		"records", dataset.Len(),
		"years", dataset.Years(),
		"duration", time.Since(start),
	)

	analytics := services.NewAnalytics(dataset, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go rateLimiter.Run(janitorCtx, janitorEvery)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, rateLimiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("stopping rate limiter janitor", "tracked_clients", rateLimiter.Len())
		stopJanitor()
		return nil
	})

	if err := gracefulServer.ListenAndServe(context.Background()); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
