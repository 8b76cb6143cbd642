package entity

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/odyssey-erp/odyssey-manage/internal/platform/cache"
)

// Factory maps concrete entity types to their operates.
type Factory struct {
	mu       sync.RWMutex
	operates map[reflect.Type]Operate
	cache    *cache.Cache
}

// NewFactory creates an empty factory. The cache is bumped by Invalidate.
func NewFactory(c *cache.Cache) *Factory {
	return &Factory{
		operates: make(map[reflect.Type]Operate),
		cache:    c,
	}
}

// Register associates typ with op, replacing any previous registration.
func (f *Factory) Register(typ reflect.Type, op Operate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operates[typ] = op
}

// RegisterFor associates the type T with op.
func RegisterFor[T any](f *Factory, op Operate) {
	f.Register(reflect.TypeOf((*T)(nil)).Elem(), op)
}

// CreateOperate returns the operate registered for typ.
func (f *Factory) CreateOperate(typ reflect.Type) (Operate, error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: nil type", ErrNoOperate)
	}
	f.mu.RLock()
	op, ok := f.operates[typ]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoOperate, typ)
	}
	return op, nil
}

// Operates returns every registered operate.
func (f *Factory) Operates() []Operate {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ops := make([]Operate, 0, len(f.operates))
	for _, op := range f.operates {
		ops = append(ops, op)
	}
	return ops
}

// Invalidate drops every cached entity by bumping the cache version.
func (f *Factory) Invalidate(ctx context.Context) (int64, error) {
	ver, err := f.cache.Bump(ctx)
	if err != nil {
		return 0, fmt.Errorf("entity: invalidate: %w", err)
	}
	return ver, nil
}
