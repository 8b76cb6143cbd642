package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-manage/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

// Loader reads one entity from the backing store. It returns
// shared.ErrNotFound when no row matches.
type Loader[T any] func(ctx context.Context, key string, value any) (T, error)

// cachedEntry is the JSON document stored in Redis. Misses are cached too so
// that repeated lookups of absent keys do not reach the database.
type cachedEntry[T any] struct {
	Found bool `json:"found"`
	Value T    `json:"value"`
}

// CachedOperate is an Operate that serves lookups from the versioned Redis
// cache and collapses concurrent misses on the same key.
type CachedOperate[T any] struct {
	name    string
	unique  string
	load    Loader[T]
	cache   *cache.Cache
	group   singleflight.Group
	metrics *Metrics
	logger  *slog.Logger
}

// Option customises a CachedOperate.
type Option func(*options)

type options struct {
	metrics *Metrics
	logger  *slog.Logger
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewCachedOperate builds a cached operate for the entity called name whose
// unique key field is unique.
func NewCachedOperate[T any](name, unique string, c *cache.Cache, load Loader[T], opts ...Option) *CachedOperate[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedOperate[T]{
		name:    name,
		unique:  unique,
		load:    load,
		cache:   c,
		metrics: o.metrics,
		logger:  logger.With(slog.String("entity", name)),
	}
}

// Name implements Operate.
func (o *CachedOperate[T]) Name() string { return o.name }

// Unique implements Operate.
func (o *CachedOperate[T]) Unique() string { return o.unique }

// FindWithCache implements Operate. A missing entity yields (nil, nil).
func (o *CachedOperate[T]) FindWithCache(ctx context.Context, key string, value any) (any, error) {
	entry, err := o.find(ctx, key, value)
	if err != nil {
		return nil, err
	}
	if !entry.Found {
		return nil, nil
	}
	return entry.Value, nil
}

func (o *CachedOperate[T]) find(ctx context.Context, key string, value any) (cachedEntry[T], error) {
	cacheKey, err := o.cache.BuildKey(ctx, "entity", o.name, key, fmt.Sprint(value))
	if err != nil {
		o.logger.Warn("entity cache key", slog.Any("error", err))
		return o.loadEntry(ctx, key, value)
	}
	// Every waiter on cacheKey shares this load. One caller's cancellation
	// must not fail the others.
	loadCtx := context.WithoutCancel(ctx)
	res, err, _ := o.group.Do(cacheKey, func() (any, error) {
		var entry cachedEntry[T]
		hit, err := o.cache.FetchJSON(loadCtx, cacheKey, &entry, func(ctx context.Context) (any, error) {
			return o.loadEntry(ctx, key, value)
		})
		if err != nil {
			return nil, err
		}
		o.metrics.observe(o.name, hit)
		return entry, nil
	})
	if err != nil {
		return cachedEntry[T]{}, fmt.Errorf("entity: find %s by %s: %w", o.name, key, err)
	}
	return res.(cachedEntry[T]), nil
}

func (o *CachedOperate[T]) loadEntry(ctx context.Context, key string, value any) (cachedEntry[T], error) {
	v, err := o.load(ctx, key, value)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return cachedEntry[T]{}, nil
		}
		return cachedEntry[T]{}, err
	}
	return cachedEntry[T]{Found: true, Value: v}, nil
}

var _ Operate = (*CachedOperate[struct{}])(nil)
