package menus

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-manage/internal/entity"
	"github.com/odyssey-erp/odyssey-manage/internal/platform/cache"
)

// Lookup keys served by Operate.
const (
	KeyID   = "id"
	KeyRoot = "root"
)

// Store is the persistence used by Operate and Service.
type Store interface {
	Tree(ctx context.Context) (*Menu, error)
	FindByID(ctx context.Context, id int64) (*Menu, error)
	Create(ctx context.Context, input CreateInput) (*Menu, error)
}

// Operate serves menu lookups through the entity cache.
type Operate struct {
	*entity.CachedOperate[*Menu]
}

// NewOperate wraps store in a cached operate.
func NewOperate(store Store, c *cache.Cache, opts ...entity.Option) *Operate {
	load := func(ctx context.Context, key string, value any) (*Menu, error) {
		switch key {
		case KeyRoot:
			return store.Tree(ctx)
		case KeyID:
			id, err := entity.Int64(value)
			if err != nil {
				return nil, err
			}
			return store.FindByID(ctx, id)
		default:
			return nil, fmt.Errorf("%w: menus.%s", entity.ErrUnsupportedKey, key)
		}
	}
	return &Operate{CachedOperate: entity.NewCachedOperate("menus", KeyID, c, load, opts...)}
}

// Root implements entity.RootFinder.
func (o *Operate) Root(ctx context.Context) (any, error) {
	return o.FindWithCache(ctx, KeyRoot, RootID)
}

var (
	_ entity.Operate    = (*Operate)(nil)
	_ entity.RootFinder = (*Operate)(nil)
)
