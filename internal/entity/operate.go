// Package entity gives the management layer uniform access to entity stores.
// Each concrete entity type registers an Operate with a Factory; callers that
// only know the type (resolved from the container) look the operate up by it.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoOperate is returned when no operate is registered for a type.
	ErrNoOperate = errors.New("entity: no operate registered")
	// ErrUnsupportedKey is returned for lookups on a field the store cannot query.
	ErrUnsupportedKey = errors.New("entity: unsupported key")
)

// Operate performs lookups against the store of one entity type.
type Operate interface {
	// Name identifies the entity, e.g. "menus". It prefixes cache keys.
	Name() string
	// Unique is the name of the unique key field.
	Unique() string
	// FindWithCache returns the entity whose key field equals value, or nil
	// when there is none.
	FindWithCache(ctx context.Context, key string, value any) (any, error)
}

// RootFinder is implemented by operates whose entities form a tree with a
// well-known root.
type RootFinder interface {
	Root(ctx context.Context) (any, error)
}

// Int64 converts a lookup value to an int64 key.
func Int64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("entity: parse id %q: %w", v, err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("entity: unsupported id type %T", value)
	}
}

// String converts a lookup value to a string key.
func String(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("entity: unsupported string key type %T", value)
	}
}
