package config

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/instrumented"
	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/memory"
	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/redis"
	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/sqlite"
	"github.com/wadjakorntonsri/custom-links/pkg/core/services"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

// OpenStore connects the configured backend. When reg is non-nil the store
// is instrumented and its collectors registered with reg. The returned
// close function releases the backend.
func OpenStore(ctx context.Context, cfg *Config, reg prometheus.Registerer) (ports.Store, func() error, error) {
	var (
		store   ports.Store
		closeFn = func() error { return nil }
	)

	switch cfg.StoreBackend {
	case "redis":
		s, err := redis.Dial(ctx, redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		store, closeFn = s, s.Close
	case "sqlite", "":
		s, err := sqlite.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		store, closeFn = s, s.Close
	case "memory":
		s, err := memory.New()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded store: %w", err)
		}
		store, closeFn = s, s.Close
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if reg != nil {
		store = instrumented.New(store, instrumented.NewMetrics(reg))
	}
	return store, closeFn, nil
}

// ServiceOptions maps the completion settings onto the link service.
func (c *Config) ServiceOptions() services.Options {
	return services.Options{
		CompleteMinLength:  c.CompleteMinLength,
		CompleteMaxResults: c.CompleteMaxResults,
		CompletePageSize:   c.CompletePageSize,
	}
}
