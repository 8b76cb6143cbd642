package manage

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/odyssey-erp/odyssey-manage/internal/container"
)

const (
	typesUninitialized int32 = iota
	typesInitializing
	typesInitialized
)

var errTypesIncomplete = errors.New("manage: entity type resolution did not complete")

// typeResolver runs resolve at most once. The first caller claims the work
// with a compare-and-swap; concurrent callers spin until it is published.
type typeResolver struct {
	state   atomic.Int32
	types   EntityTypes
	err     error
	resolve func() (EntityTypes, error)
}

func (r *typeResolver) load() (EntityTypes, error) {
	if r.state.Load() == typesInitialized {
		return r.types, r.err
	}
	if r.state.CompareAndSwap(typesUninitialized, typesInitializing) {
		r.err = errTypesIncomplete
		defer r.state.Store(typesInitialized)
		r.types, r.err = r.resolve()
		return r.types, r.err
	}
	for r.state.Load() != typesInitialized {
		runtime.Gosched()
	}
	return r.types, r.err
}

// resolveEntityTypes asks the container for the implementation of each
// capability. Container errors are returned unchanged.
func resolveEntityTypes(c *container.Container) (EntityTypes, error) {
	var (
		types EntityTypes
		err   error
	)
	if types.Administrator, err = container.ResolveType[Administrator](c); err != nil {
		return EntityTypes{}, err
	}
	if types.Role, err = container.ResolveType[Role](c); err != nil {
		return EntityTypes{}, err
	}
	if types.Menu, err = container.ResolveType[Menu](c); err != nil {
		return EntityTypes{}, err
	}
	if types.Log, err = container.ResolveType[Log](c); err != nil {
		return EntityTypes{}, err
	}
	return types, nil
}
