package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/balcao"
	"github.com/aretw0/balcao/internal/config"
	"github.com/aretw0/balcao/internal/logging"
	catalogadapter "github.com/aretw0/balcao/pkg/adapters/catalog"
	redisadapter "github.com/aretw0/balcao/pkg/adapters/redis"
	"github.com/aretw0/balcao/pkg/adapters/sqlite"
	"github.com/aretw0/balcao/pkg/cart"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/observability"
	"github.com/aretw0/balcao/pkg/session"
)

// buildEngine wires the full stack from environment configuration.
// The returned cleanup closes both storage tiers.
func buildEngine(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*balcao.Engine, func(), error) {
	logger := logging.New(parseLevel(cfg.LogLevel))

	cache, err := redisadapter.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	repo, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		_ = cache.Close()
		return nil, nil, fmt.Errorf("sqlite: %w", err)
	}

	cleanup := func() {
		_ = cache.Close()
		_ = repo.Close()
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	sessions := session.NewManager(cache, repo,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(logger),
		session.WithMetrics(metrics),
	)

	engine, err := balcao.New(sessions, cat, cat,
		balcao.WithLogger(logger),
		balcao.WithMetrics(metrics),
		balcao.WithCartOptions(cart.WithTaxRate(cfg.TaxRate)),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, cleanup, nil
}

// loadCatalog reads the YAML catalog, or falls back to a small built-in
// one so the chat command works out of the box.
func loadCatalog(path string) (*catalogadapter.Memory, error) {
	if path != "" {
		cat, err := catalogadapter.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		return cat, nil
	}
	return catalogadapter.NewMemory(
		&domain.Product{ID: "pizza", Name: "Pizza", Price: 12.50, Stock: 20, Available: true},
		&domain.Product{ID: "burger", Name: "Burger", Price: 9.90, Stock: 15, Available: true},
		&domain.Product{ID: "salad", Name: "Salad", Price: 7.00, Stock: 10, Available: true},
	), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
