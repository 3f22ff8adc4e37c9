package config

import (
	"fmt"
	"strconv"
	"time"
)

const (
	defaultEventsQueue   = "catalog.events"
	defaultPrefetchCount = 16
	defaultMetricsAddr   = ":9091"
)

// Notifications configures the worker that consumes catalog change events.
type Notifications struct {
	RabbitMQURL   string
	Queue         string
	PrefetchCount int
	// MetricsAddr serves /metrics and /healthz for the worker.
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

func LoadNotifications() (Notifications, error) {
	cfg := Notifications{
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		Queue:           getEnv("EVENTS_QUEUE", defaultEventsQueue),
		PrefetchCount:   defaultPrefetchCount,
		MetricsAddr:     getEnv("METRICS_ADDR", defaultMetricsAddr),
		ShutdownTimeout: defaultShutdownTimeout,
	}

	if cfg.RabbitMQURL == "" {
		return Notifications{}, fmt.Errorf("RABBITMQ_URL is required")
	}
	if raw := getEnv("PREFETCH_COUNT", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Notifications{}, fmt.Errorf("PREFETCH_COUNT must be a positive integer")
		}
		cfg.PrefetchCount = n
	}

	return cfg, nil
}
