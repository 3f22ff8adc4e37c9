package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-admin/internal/config"
	"catalog-admin/internal/notifications"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
)

const metricsNamespace = "notifications"

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("notifications worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("notifications worker stopped")
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadNotifications()
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))

	events := notifications.NewEventsCounter(metricsNamespace)
	prometheus.MustRegister(events)

	consumer, err := notifications.NewConsumer(conn, cfg.Queue, cfg.PrefetchCount, logger, events)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ops := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           opsRouter(conn),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", "error", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = ops.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		logger.Info("notifications worker started", "queue", cfg.Queue, "prefetch", cfg.PrefetchCount, "metrics_addr", cfg.MetricsAddr)
		done <- consumer.Listen(ctx)
	}()

	select {
	case err := <-done:
		return err
	case amqpErr := <-connClosed:
		if amqpErr == nil {
			return errors.New("rabbitmq connection closed")
		}
		return amqpErr
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Listen returns once the in-flight message is settled.
	select {
	case err := <-done:
		return err
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn("consumer shutdown timeout reached")
		return nil
	}
}

func opsRouter(conn *amqp.Connection) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if conn.IsClosed() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}
