package roles

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-manage/internal/entity"
	"github.com/odyssey-erp/odyssey-manage/internal/platform/cache"
)

// Lookup keys served by the role operate.
const (
	KeyID   = "id"
	KeyName = "name"
)

// NewOperate wraps repo in a cached operate keyed by id and name.
func NewOperate(repo RepositoryPort, c *cache.Cache, opts ...entity.Option) *entity.CachedOperate[*Role] {
	load := func(ctx context.Context, key string, value any) (*Role, error) {
		switch key {
		case KeyID:
			id, err := entity.Int64(value)
			if err != nil {
				return nil, err
			}
			return repo.FindByID(ctx, id)
		case KeyName:
			name, err := entity.String(value)
			if err != nil {
				return nil, err
			}
			return repo.FindByName(ctx, name)
		default:
			return nil, fmt.Errorf("%w: roles.%s", entity.ErrUnsupportedKey, key)
		}
	}
	return entity.NewCachedOperate("roles", KeyID, c, load, opts...)
}
