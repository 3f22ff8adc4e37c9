package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	defaultAdminHTTPAddr     = ":3000"
	defaultCatalogAPITimeout = 10 * time.Second
	defaultPageWait          = 2 * time.Second
	minSessionSecretLen      = 32
)

// Admin configures the admin console.
type Admin struct {
	CatalogAPIURL     string
	CatalogAPITimeout time.Duration
	// PageWait is how long a page waits on a cache fetch before rendering
	// its loading state.
	PageWait          time.Duration
	SessionSecret     string
	HTTPAddr          string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	MaxUploadBytes    int64
}

func LoadAdmin() (Admin, error) {
	cfg := Admin{
		CatalogAPIURL:     getEnv("CATALOG_API_URL", ""),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		HTTPAddr:          getEnv("HTTP_ADDR", defaultAdminHTTPAddr),
		ShutdownTimeout:   defaultShutdownTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxUploadBytes:    defaultMaxUploadBytes,
	}

	if cfg.CatalogAPIURL == "" {
		return Admin{}, fmt.Errorf("CATALOG_API_URL is required")
	}
	if u, err := url.Parse(cfg.CatalogAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Admin{}, fmt.Errorf("CATALOG_API_URL must be an absolute URL")
	}
	if cfg.SessionSecret == "" {
		return Admin{}, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < minSessionSecretLen {
		return Admin{}, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}

	timeout, err := getDuration("CATALOG_API_TIMEOUT", defaultCatalogAPITimeout)
	if err != nil {
		return Admin{}, err
	}
	cfg.CatalogAPITimeout = timeout

	pageWait, err := getDuration("PAGE_WAIT", defaultPageWait)
	if err != nil {
		return Admin{}, err
	}
	cfg.PageWait = pageWait

	return cfg, nil
}
