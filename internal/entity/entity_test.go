package entity

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-manage/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

type widget struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type widgetStore struct {
	mu    sync.Mutex
	rows  map[int64]*widget
	calls atomic.Int32
	gate  chan struct{}
}

func (s *widgetStore) load(ctx context.Context, key string, value any) (*widget, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if key != "id" {
		return nil, ErrUnsupportedKey
	}
	id, err := Int64(value)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return w, nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, "test", time.Minute)
}

func TestCachedOperateServesFromCache(t *testing.T) {
	store := &widgetStore{rows: map[int64]*widget{1: {ID: 1, Name: "gear"}}}
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	op := NewCachedOperate("widgets", "id", newTestCache(t), store.load, WithMetrics(metrics))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := op.FindWithCache(ctx, op.Unique(), int64(1))
		require.NoError(t, err)
		require.Equal(t, &widget{ID: 1, Name: "gear"}, v)
	}
	require.Equal(t, int32(1), store.calls.Load())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.lookups.WithLabelValues("widgets", "miss")))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.lookups.WithLabelValues("widgets", "hit")))
}

func TestCachedOperateCachesMisses(t *testing.T) {
	store := &widgetStore{rows: map[int64]*widget{}}
	op := NewCachedOperate("widgets", "id", newTestCache(t), store.load)
	ctx := context.Background()

	v, err := op.FindWithCache(ctx, "id", 99)
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = op.FindWithCache(ctx, "id", 99)
	require.NoError(t, err)
	require.Nil(t, v)
	require.Equal(t, int32(1), store.calls.Load())
}

func TestCachedOperateInvalidation(t *testing.T) {
	store := &widgetStore{rows: map[int64]*widget{1: {ID: 1, Name: "gear"}}}
	c := newTestCache(t)
	op := NewCachedOperate("widgets", "id", c, store.load)
	factory := NewFactory(c)
	RegisterFor[*widget](factory, op)
	ctx := context.Background()

	_, err := op.FindWithCache(ctx, "id", 1)
	require.NoError(t, err)

	store.mu.Lock()
	store.rows[1] = &widget{ID: 1, Name: "cog"}
	store.mu.Unlock()

	_, err = factory.Invalidate(ctx)
	require.NoError(t, err)

	v, err := op.FindWithCache(ctx, "id", 1)
	require.NoError(t, err)
	require.Equal(t, "cog", v.(*widget).Name)
	require.Equal(t, int32(2), store.calls.Load())
}

func TestCachedOperateCollapsesConcurrentMisses(t *testing.T) {
	store := &widgetStore{rows: map[int64]*widget{5: {ID: 5, Name: "bolt"}}, gate: make(chan struct{})}
	op := NewCachedOperate("widgets", "id", nil, store.load)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]any, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = op.FindWithCache(ctx, "id", int64(5))
		}(i)
	}
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	for i, v := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "bolt", v.(*widget).Name)
	}
	require.LessOrEqual(t, store.calls.Load(), int32(callers))
}

func TestCachedOperateWaitersSurviveFirstCallerCancel(t *testing.T) {
	gate := make(chan struct{})
	var calls atomic.Int32
	op := NewCachedOperate("widgets", "id", nil, func(ctx context.Context, _ string, _ any) (*widget, error) {
		calls.Add(1)
		<-gate
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &widget{ID: 7, Name: "nut"}, nil
	})

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstDone := make(chan error, 1)
	go func() {
		_, err := op.FindWithCache(firstCtx, "id", int64(7))
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		v   any
		err error
	}
	secondDone := make(chan result, 1)
	go func() {
		v, err := op.FindWithCache(context.Background(), "id", int64(7))
		secondDone <- result{v, err}
	}()
	time.Sleep(10 * time.Millisecond)

	cancel()
	close(gate)

	second := <-secondDone
	require.NoError(t, second.err)
	require.Equal(t, "nut", second.v.(*widget).Name)
	require.NoError(t, <-firstDone)
}

func TestCachedOperatePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	op := NewCachedOperate("widgets", "id", nil, func(context.Context, string, any) (*widget, error) {
		return nil, boom
	})
	_, err := op.FindWithCache(context.Background(), "id", 1)
	require.ErrorIs(t, err, boom)
}

func TestFactoryCreateOperate(t *testing.T) {
	factory := NewFactory(nil)
	op := NewCachedOperate[*widget]("widgets", "id", nil, nil)
	RegisterFor[*widget](factory, op)

	got, err := factory.CreateOperate(reflect.TypeOf(&widget{}))
	require.NoError(t, err)
	require.Same(t, op, got)

	_, err = factory.CreateOperate(reflect.TypeOf(widget{}))
	require.ErrorIs(t, err, ErrNoOperate)
	_, err = factory.CreateOperate(nil)
	require.ErrorIs(t, err, ErrNoOperate)
	require.Len(t, factory.Operates(), 1)
}

func TestInt64Conversion(t *testing.T) {
	for _, v := range []any{int64(3), 3, int32(3), " 3 "} {
		id, err := Int64(v)
		require.NoError(t, err)
		require.Equal(t, int64(3), id)
	}
	_, err := Int64(3.5)
	require.Error(t, err)
	_, err = Int64("x")
	require.Error(t, err)
}
