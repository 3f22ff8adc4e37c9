package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-admin/internal/catalog"
	cataloghttp "catalog-admin/internal/catalog/http"
	"catalog-admin/internal/catalog/messaging"
	"catalog-admin/internal/catalog/repository"
	"catalog-admin/internal/catalog/service"
	"catalog-admin/internal/config"
	"catalog-admin/internal/middleware"

	_ "catalog-admin/docs"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	metricsNamespace    = "catalog"
	metricChangesTotal  = "changes_total"
	migrateSourcePrefix = "file://"
	postgresDriverName  = "postgres"
)

// @title        Catalog API
// @version      1.0
// @description  Product and category catalog with change events.
// @host         localhost:8080
// @BasePath     /
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("catalog service failed", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog service stopped")
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadCatalog()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rabbitConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer rabbitConn.Close()

	publisher, err := messaging.NewRabbitPublisher(rabbitConn, catalog.EventsQueue)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	defer publisher.Close()

	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      metricChangesTotal,
		Help:      "Total number of catalog writes by entity and event.",
	}, []string{"entity", "event"})
	duration := middleware.NewDurationHistogram(metricsNamespace)
	prometheus.MustRegister(changes, duration)

	repo := repository.NewPostgres(db)
	handler := cataloghttp.NewHandler(service.New(repo, publisher, logger, changes), cfg.MaxUploadBytes)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(logger), middleware.Metrics(duration))
	cataloghttp.RegisterRoutes(router, handler, repo)

	return serve(logger, &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, cfg.ShutdownTimeout)
}

// openDB opens the pool and fails fast when the database is unreachable.
func openDB(cfg config.Catalog) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// serve runs server until SIGINT/SIGTERM or a listen failure, then drains it
// within shutdownTimeout.
func serve(logger *slog.Logger, server *http.Server, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog service started", "addr", server.Addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("graceful shutdown: %w", err))
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

func runMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New(migrateSourcePrefix+migrationsPath, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
