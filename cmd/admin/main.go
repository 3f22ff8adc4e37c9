package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/catalogapi"
	"catalog-admin/internal/client"
	"catalog-admin/internal/config"
	"catalog-admin/internal/middleware"
	"catalog-admin/internal/querycache"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "admin"
	sessionMaxAge    = 3600
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("admin console failed", "error", err)
		os.Exit(1)
	}
	logger.Info("admin console stopped")
}

// run returns instead of exiting so the deferred cache Close always runs.
func run(logger *slog.Logger) error {
	cfg, err := config.LoadAdmin()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	apiClient, err := client.New(cfg.CatalogAPIURL, cfg.CatalogAPITimeout, logger)
	if err != nil {
		return fmt.Errorf("init catalog client: %w", err)
	}

	cacheMetrics := querycache.NewMetrics(metricsNamespace)
	duration := middleware.NewDurationHistogram(metricsNamespace)
	prometheus.MustRegister(cacheMetrics.Collectors()...)
	prometheus.MustRegister(duration)

	store := querycache.New(catalogapi.Tables(), logger, cacheMetrics)
	defer store.Close()

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	console, err := admin.New(catalogapi.New(apiClient, store), sessionStore, logger, admin.Options{
		PageWait:       cfg.PageWait,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("init console: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.Metrics(duration))
	console.RegisterRoutes(router, apiClient)

	// No WriteTimeout: the events stream stays open for the life of a page.
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	server.RegisterOnShutdown(console.Shutdown)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin console started", "addr", cfg.HTTPAddr, "catalog_api", cfg.CatalogAPIURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("graceful shutdown: %w", err))
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}
