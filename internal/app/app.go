package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/resaller-shop/internal/domain/analytics"
	"github.com/xenking/resaller-shop/internal/domain/catalog"
	"github.com/xenking/resaller-shop/internal/domain/insight"
	"github.com/xenking/resaller-shop/internal/handler"
	"github.com/xenking/resaller-shop/internal/integration/gemini"
	"github.com/xenking/resaller-shop/internal/storage/memory"
	"github.com/xenking/resaller-shop/internal/visitor"
	"github.com/xenking/resaller-shop/pkg/health"
	"github.com/xenking/resaller-shop/pkg/httpmiddleware"
)

const serviceName = "resaller-api"

// service is the assembled application, ready to serve.
type service struct {
	handler  http.Handler
	health   *health.Health
	visitors *visitor.Registry
	limiter  *httpmiddleware.Limiter
}

// newGenerator picks the text generation backend.
func newGenerator(ctx context.Context, lg *zap.Logger, cfg GeminiConfig) (insight.Generator, error) {
	if cfg.APIKey == "" {
		lg.Warn("Gemini API key not set, insights will use fallback text")
		return insight.Unavailable(), nil
	}
	client, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	lg.Info("Gemini enabled", zap.String("model", client.Model()))
	return client, nil
}

// build creates every dependency and the HTTP handler chain.
func build(ctx context.Context, lg *zap.Logger, t httpmiddleware.Telemetry, cfg *Config) (*service, error) {
	products, err := memory.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	lg.Info("Catalog loaded", zap.Int("products", products.Len()), zap.String("file", cfg.CatalogFile))

	taxRate, err := cfg.TaxRate()
	if err != nil {
		return nil, err
	}

	gen, err := newGenerator(ctx, lg, cfg.Gemini)
	if err != nil {
		return nil, err
	}
	insightSvc, err := insight.NewService(gen,
		insight.WithTracerProvider(t.TracerProvider()),
		insight.WithMeterProvider(t.MeterProvider()),
		insight.WithCallTimeout(cfg.Gemini.Timeout),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create insight service")
	}

	visitors, err := visitor.NewRegistry(visitor.Config{
		CookieName: cfg.Session.CookieName,
		IdleTTL:    cfg.Session.IdleTTL,
		Secure:     cfg.Session.Secure,
	},
		visitor.WithLogger(lg.Named("visitor")),
		visitor.WithMeterProvider(t.MeterProvider()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create visitor registry")
	}

	h, err := handler.New(handler.Config{
		ImageBaseURL:  cfg.ImageBaseURL,
		TaxRate:       decimal.NewNullDecimal(taxRate),
		MeterProvider: t.MeterProvider(),
	}, handler.Deps{
		Catalog:   catalog.NewService(products),
		Insight:   insightSvc,
		Analytics: analytics.NewService(products),
		Visitors:  visitors,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("catalog", time.Second, health.MinCountCheck("products", 1, products.Len))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second),
		health.WithFailureThreshold(3),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	return &service{
		handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Location"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(limiter),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, routeFinder, t),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
		health:   healthSvc,
		visitors: visitors,
		limiter:  limiter,
	}, nil
}

// Run creates all dependencies, starts the HTTP server and its background
// loops, and handles graceful shutdown. It is the single wiring point for the
// application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	svc, err := build(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	svc.health.Start(ctx, 10*time.Second)
	svc.health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Assistant answers wait on the generator.
		WriteTimeout:   cfg.Gemini.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler:        svc.handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.visitors.Run(gctx) })
	g.Go(func() error { return svc.limiter.Run(gctx) })

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		svc.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		svc.visitors.Close()
		svc.health.Stop()
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}
