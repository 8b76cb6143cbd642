package admins

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-manage/internal/entity"
	"github.com/odyssey-erp/odyssey-manage/internal/manage"
	"github.com/odyssey-erp/odyssey-manage/internal/platform/cache"
)

// NewOperate wraps repo in a cached operate keyed by id and account.
func NewOperate(repo Repository, c *cache.Cache, opts ...entity.Option) *entity.CachedOperate[*Administrator] {
	load := func(ctx context.Context, key string, value any) (*Administrator, error) {
		switch key {
		case manage.KeyID:
			id, err := entity.Int64(value)
			if err != nil {
				return nil, err
			}
			return repo.FindByID(ctx, id)
		case manage.KeyAccount:
			account, err := entity.String(value)
			if err != nil {
				return nil, err
			}
			return repo.FindByAccount(ctx, strings.TrimSpace(account))
		default:
			return nil, fmt.Errorf("%w: administrators.%s", entity.ErrUnsupportedKey, key)
		}
	}
	return entity.NewCachedOperate("administrators", manage.KeyID, c, load, opts...)
}
