package container

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet() string
}

type english struct{ name string }

func (e *english) Greet() string { return "hello " + e.name }

type unused interface {
	Unused()
}

func TestResolveTypeReturnsConcreteType(t *testing.T) {
	c := New()
	require.NoError(t, Bind[greeter](c, &english{name: "admin"}))

	typ, err := ResolveType[greeter](c)
	require.NoError(t, err)
	require.Equal(t, reflect.TypeOf(&english{}), typ)

	g, err := Resolve[greeter](c)
	require.NoError(t, err)
	require.Equal(t, "hello admin", g.Greet())
}

func TestResolveMissingCapabilityFails(t *testing.T) {
	c := New()
	_, err := ResolveType[unused](c)
	require.Error(t, err)
}

func TestBindRejectsNil(t *testing.T) {
	c := New()
	var g greeter
	require.ErrorIs(t, Bind[greeter](c, g), ErrNilImplementation)

	var e *english
	require.ErrorIs(t, Bind[greeter](c, e), ErrNilImplementation)
}

func TestProvideInjectsDependencies(t *testing.T) {
	c := New()
	require.NoError(t, Bind[greeter](c, &english{name: "root"}))
	require.NoError(t, c.Provide(func(g greeter) string { return g.Greet() + "!" }))

	s, err := Resolve[string](c)
	require.NoError(t, err)
	require.Equal(t, "hello root!", s)
}

func TestResolveNilFromConstructor(t *testing.T) {
	c := New()
	require.NoError(t, c.Provide(func() greeter { return nil }))

	_, err := Resolve[greeter](c)
	require.ErrorIs(t, err, ErrNilImplementation)
}
