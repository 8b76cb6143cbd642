package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-manage/internal/entity"
	jobmetrics "github.com/odyssey-erp/odyssey-manage/internal/jobs"
	"github.com/odyssey-erp/odyssey-manage/internal/menus"
	"github.com/odyssey-erp/odyssey-manage/internal/roles"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RoleLister lists every role.
type RoleLister interface {
	ListRoles(ctx context.Context) ([]roles.Role, error)
}

// Invalidator drops every cached entity.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// CacheWarmupJob pre-populates the entity cache so the first menu request
// after a deploy or an invalidation does not hit the database.
type CacheWarmupJob struct {
	Menus       entity.RootFinder
	Roles       entity.Operate
	RoleList    RoleLister
	Invalidator Invalidator
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// HandleWarmup processes TaskCacheWarmup tasks.
func (j *CacheWarmupJob) HandleWarmup(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("cache warmup: decode payload: %w", asynq.SkipRetry)
	}
	tracker := j.metrics().Track(TaskCacheWarmup)
	return tracker.End(j.warm(ctx, j.logger().With(slog.String("reason", payload.Reason))))
}

// HandleBust processes TaskCacheBust tasks.
func (j *CacheWarmupJob) HandleBust(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Invalidator == nil {
		return errors.New("cache bust: handler not configured")
	}
	var payload CacheBustPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("cache bust: decode payload: %w", asynq.SkipRetry)
	}
	tracker := j.metrics().Track(TaskCacheBust)
	logger := j.logger().With(slog.String("reason", payload.Reason))
	version, err := j.Invalidator.Invalidate(ctx)
	if err != nil {
		logger.Error("invalidate entity cache", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("entity cache invalidated", slog.Int64("version", version))
	if !payload.Warm {
		return tracker.End(nil)
	}
	return tracker.End(j.warm(ctx, logger))
}

func (j *CacheWarmupJob) warm(ctx context.Context, logger *slog.Logger) error {
	logger.Info("starting cache warmup")
	menuCount := 0
	if j.Menus != nil {
		v, err := j.Menus.Root(ctx)
		if err != nil {
			logger.Error("warm menu tree", slog.Any("error", err))
			return err
		}
		if root, ok := v.(*menus.Menu); ok {
			root.Walk(func(*menus.Menu) { menuCount++ })
			// The virtual root is not a stored menu.
			menuCount--
		}
	}
	j.metrics().AddWarmed("menus", menuCount)

	roleCount := 0
	if j.Roles != nil && j.RoleList != nil {
		list, err := j.RoleList.ListRoles(ctx)
		if err != nil {
			logger.Error("list roles", slog.Any("error", err))
			return err
		}
		for _, role := range list {
			if _, err := j.Roles.FindWithCache(ctx, j.Roles.Unique(), role.ID); err != nil {
				logger.Error("warm role", slog.Int64("role_id", role.ID), slog.Any("error", err))
				return err
			}
			roleCount++
		}
	}
	j.metrics().AddWarmed("roles", roleCount)
	logger.Info("cache warmup complete", slog.Int("menus", menuCount), slog.Int("roles", roleCount))
	return nil
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
