package source

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mmcdole/crate/internal/adapter"
	"github.com/mmcdole/crate/internal/adapter/source/catalogapi"
	"github.com/mmcdole/crate/internal/domain"
)

// SourceConfig contains the configuration needed to create a RemoteSource
type SourceConfig struct {
	URL       string
	Token     string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

// NewClient creates a RemoteSource for the catalog API.
func NewClient(cfg *SourceConfig, logger *slog.Logger) (domain.RemoteSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source config is nil")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote URL is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote URL: %q", cfg.URL)
	}

	return catalogapi.NewClient(cfg.URL, cfg.Token,
		catalogapi.WithTimeout(cfg.Timeout),
		catalogapi.WithRateLimit(cfg.RateLimit, cfg.Burst),
		catalogapi.WithLogger(logger),
	), nil
}

// NewClientFromConfig creates a RemoteSource from the application config
func NewClientFromConfig(cfg *adapter.Config, logger *slog.Logger) (domain.RemoteSource, error) {
	return NewClient(&SourceConfig{
		URL:       cfg.Remote.BaseURL,
		Token:     cfg.Remote.Token,
		Timeout:   cfg.Remote.Timeout,
		RateLimit: cfg.Remote.RateLimit,
		Burst:     cfg.Remote.Burst,
	}, logger)
}
