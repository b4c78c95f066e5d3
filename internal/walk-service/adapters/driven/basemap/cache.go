package basemap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/ports/driven"

	"github.com/redis/go-redis/v9"
)

// CachedFetcher keeps fetched rasters in Redis. Cache failures never fail a
// fetch.
type CachedFetcher struct {
	next driven.IBaseMapFetcher
	rdb  redis.UniversalClient
	ttl  time.Duration
	log  mylogger.Logger
}

var _ driven.IBaseMapFetcher = (*CachedFetcher)(nil)

func NewCachedFetcher(next driven.IBaseMapFetcher, rdb redis.UniversalClient, ttl time.Duration, log mylogger.Logger) *CachedFetcher {
	return &CachedFetcher{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(req model.BaseMapRequest) string {
	format := req.Format
	if format == "" {
		format = "png"
	}
	return fmt.Sprintf("basemap:%s:%d:%dx%d:%s", formatCenter(req.Center), req.Level, req.Width, req.Height, format)
}

func (c *CachedFetcher) FetchBaseMap(ctx context.Context, req model.BaseMapRequest) ([]byte, error) {
	l := c.log.Action("basemap_cache")
	key := cacheKey(req)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		l.Debug("cache hit", "key", key)
		return data, nil
	case !errors.Is(err, redis.Nil):
		l.Warn("cache read failed", "key", key, "error", err.Error())
	}

	data, err = c.next.FetchBaseMap(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		l.Warn("cache write failed", "key", key, "error", err.Error())
	}
	return data, nil
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
