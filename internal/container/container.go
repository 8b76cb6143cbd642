// Package container resolves implementations by the capability they provide.
// It wraps go.uber.org/dig; every capability is a Go type (usually an
// interface) and at most one constructor may provide it.
package container

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/dig"
)

// ErrNilImplementation is returned when a capability resolves to a nil value.
var ErrNilImplementation = errors.New("container: capability resolved to nil")

// Container is the dependency injection container shared by the application.
type Container struct {
	container *dig.Container
}

// New creates an empty container.
func New() *Container {
	return &Container{container: dig.New()}
}

// Provide registers a constructor. Its parameters are injected from the
// container and its results become resolvable capabilities.
func (c *Container) Provide(constructor any, opts ...dig.ProvideOption) error {
	return c.container.Provide(constructor, opts...)
}

// Invoke calls fn with its parameters resolved from the container.
func (c *Container) Invoke(fn any, opts ...dig.InvokeOption) error {
	return c.container.Invoke(fn, opts...)
}

// Bind registers impl as the implementation of capability C.
func Bind[C any](c *Container, impl C) error {
	if isNil(reflect.ValueOf(impl)) {
		return fmt.Errorf("container: bind %s: %w", typeName[C](), ErrNilImplementation)
	}
	return c.Provide(func() C { return impl })
}

// Resolve returns the implementation registered for capability C. Errors
// from dig are returned as they are.
func Resolve[C any](c *Container) (C, error) {
	var out C
	err := c.Invoke(func(v C) {
		out = v
	})
	if err != nil {
		return out, err
	}
	if isNil(reflect.ValueOf(out)) {
		return out, fmt.Errorf("container: resolve %s: %w", typeName[C](), ErrNilImplementation)
	}
	return out, nil
}

// ResolveType returns the concrete type registered for capability C.
func ResolveType[C any](c *Container) (reflect.Type, error) {
	impl, err := Resolve[C](c)
	if err != nil {
		return nil, err
	}
	return reflect.TypeOf(impl), nil
}

// Dig exposes the underlying dig container.
func (c *Container) Dig() *dig.Container {
	return c.container
}

func typeName[C any]() string {
	return reflect.TypeOf((*C)(nil)).Elem().String()
}

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
