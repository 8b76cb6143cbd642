package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheWarmup loads the menu tree and every role into the entity cache.
	TaskCacheWarmup = "manage:cache:warmup"
	// TaskCacheBust invalidates the entity cache, optionally warming it again.
	TaskCacheBust = "manage:cache:bust"
)

// CacheWarmupPayload describes a warmup run.
type CacheWarmupPayload struct {
	Reason string `json:"reason,omitempty"`
}

// CacheBustPayload describes an invalidation request.
type CacheBustPayload struct {
	Reason string `json:"reason,omitempty"`
	Warm   bool   `json:"warm"`
}

// NewCacheWarmupTask constructs a warmup task.
func NewCacheWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data), nil
}

// NewCacheBustTask constructs a cache bust task.
func NewCacheBustTask(payload CacheBustPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheBust, data), nil
}
