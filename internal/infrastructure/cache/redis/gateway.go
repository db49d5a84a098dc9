// Package redis caches tool gateway results.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

const keyPrefix = "itinerary:gateway:"

// CachedGateway serves repeat lookups from Redis. Only successful results are
// stored and any Redis failure falls through to the wrapped gateway.
type CachedGateway struct {
	next   ports.ToolGateway
	rdb    *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.ToolGateway = (*CachedGateway)(nil)

func NewCachedGateway(next ports.ToolGateway, rdb *goredis.Client, ttl time.Duration, logger *slog.Logger) *CachedGateway {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGateway{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// Open parses a redis:// URL and checks the server answers.
func Open(ctx context.Context, rawURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (c *CachedGateway) FindRoute(ctx context.Context, origin, destination string) (domain.RouteResult, error) {
	return cached(ctx, c, "route", []any{origin, destination}, func(r domain.RouteResult) bool {
		return r.Status == domain.StatusSuccess
	}, func(ctx context.Context) (domain.RouteResult, error) {
		return c.next.FindRoute(ctx, origin, destination)
	})
}

func (c *CachedGateway) SearchLodging(ctx context.Context, query ports.LodgingQuery) ([]domain.LodgingOption, error) {
	return cached(ctx, c, "lodging", []any{query.City, query.StartDate, query.EndDate, query.MaxNightly, query.Near, query.Limit}, nonEmpty[domain.LodgingOption],
		func(ctx context.Context) ([]domain.LodgingOption, error) {
			return c.next.SearchLodging(ctx, query)
		})
}

func (c *CachedGateway) SearchLodgingFallback(ctx context.Context, query ports.LodgingFallbackQuery) ([]domain.LodgingOption, error) {
	return cached(ctx, c, "lodging_plan_b", []any{query.City, query.StartDate, query.EndDate, query.OriginalMaxPrice, query.RemainingBudget}, nonEmpty[domain.LodgingOption],
		func(ctx context.Context) ([]domain.LodgingOption, error) {
			return c.next.SearchLodgingFallback(ctx, query)
		})
}

func (c *CachedGateway) ForecastWeather(ctx context.Context, city string, start, end domain.Date) (domain.Forecast, error) {
	return cached(ctx, c, "forecast", []any{city, start, end}, func(f domain.Forecast) bool {
		return f.Status == domain.StatusSuccess
	}, func(ctx context.Context) (domain.Forecast, error) {
		return c.next.ForecastWeather(ctx, city, start, end)
	})
}

func (c *CachedGateway) SearchPlaces(ctx context.Context, query, near string, limit int) ([]domain.Place, error) {
	return cached(ctx, c, "places", []any{query, near, limit}, nonEmpty[domain.Place],
		func(ctx context.Context) ([]domain.Place, error) {
			return c.next.SearchPlaces(ctx, query, near, limit)
		})
}

func cached[T any](
	ctx context.Context,
	c *CachedGateway,
	operation string,
	args []any,
	cacheable func(T) bool,
	load func(context.Context) (T, error),
) (T, error) {
	key := cacheKey(operation, args)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var hit T
		if jsonErr := json.Unmarshal(raw, &hit); jsonErr == nil {
			c.logger.Debug("gateway_cache_hit", "operation", operation)
			return hit, nil
		}
		c.logger.Warn("gateway_cache_corrupt", "operation", operation, "key", key)
	case !errors.Is(err, goredis.Nil):
		c.logger.Warn("gateway_cache_read_failed", "operation", operation, "error", err)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if !cacheable(value) {
		return value, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("gateway_cache_write_failed", "operation", operation, "error", err)
	}
	return value, nil
}

func nonEmpty[T any](items []T) bool {
	return len(items) > 0
}

func cacheKey(operation string, args []any) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, strings.ToLower(strings.TrimSpace(fmt.Sprint(arg))))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return keyPrefix + operation + ":" + hex.EncodeToString(sum[:12])
}
