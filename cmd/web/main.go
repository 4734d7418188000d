package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"kankou/internal/config"
	handlers "kankou/internal/http/handler"
	"kankou/internal/http/middleware"
	"kankou/internal/logger"
	"kankou/internal/otel"
	"kankou/internal/repository/rest"
	"kankou/internal/service"
	"kankou/internal/session"
	"kankou/internal/upload"
	"kankou/internal/view"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration (.env auto-loaded if present, then CONFIG_FILE, then environment)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	loc, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		log.Warn("unknown timezone, using UTC", zap.String("timezone", cfg.UI.Timezone), zap.Error(err))
		loc = time.UTC
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Client for the external document API
	api, err := rest.New(cfg.API.BaseURL,
		rest.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		rest.WithLogger(log),
		rest.WithMetrics(reg),
	)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}
	docs, types := api.Documents(), api.Types()

	// One page state per browser session
	sessions := session.NewStore(func() *service.Page {
		return service.NewPage(docs, types, log)
	}, time.Duration(cfg.Session.IdleTimeoutMin)*time.Minute, log)
	go sessions.Run(ctx, time.Duration(cfg.Session.SweepIntervalSec)*time.Second)

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		Views:                 view.Engine(),
		ErrorHandler:          handlers.ErrorHandler(log),
		BodyLimit:             upload.MaxSize + 1<<20,
		DisableStartupMessage: cfg.Env == "prod",
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID adds/propagates X-Request-ID and puts a request-scoped logger in the user context
	app.Use(middleware.RequestID(log))
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())
	app.Use(middleware.NoStore())

	handlers.RegisterRoutes(app, handlers.Deps{
		Sessions: sessions,
		Session: handlers.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Secure(),
		},
		API:      api,
		Gatherer: reg,
		View: view.Options{
			PublicURL: cfg.API.PublicURL,
			Location:  loc,
			Window:    cfg.UI.ExcerptWindow,
		},
		Logger: log,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", addr), zap.String("api_base_url", cfg.API.BaseURL))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}
	return errors.Join(errs...)
}
