// Package manage binds the administrative entities (administrators, roles,
// menus and audit logs) to whatever concrete types the application registers
// in the container, and answers the questions the admin UI asks: who is
// signed in, and which menus may they see.
package manage

import (
	"context"
	"errors"
	"reflect"
)

// ErrNoSession is returned when the current user is changed outside a
// session-carrying request.
var ErrNoSession = errors.New("manage: no session in context")

// Administrator is a user allowed into the management UI. It carries exactly
// one role.
type Administrator interface {
	GetID() int64
	GetAccount() string
	GetRoleID() int64
	IsEnabled() bool
}

// Role is a named bundle of permitted resources.
type Role interface {
	GetID() int64
	GetName() string
	GetResources() []string
}

// Menu is a node of the menu tree. Each node is guarded by one resource.
type Menu interface {
	GetID() int64
	GetParentID() int64
	GetName() string
	GetURL() string
	GetResource() string
	GetChildren() []Menu
	// MySubMenus returns the children visible to a holder of resources.
	MySubMenus(resources []string) []Menu
}

// Log is an audit record. The provider only resolves its type.
type Log interface {
	GetCategory() string
	GetAction() string
}

// Authenticator verifies administrator credentials.
type Authenticator interface {
	Login(ctx context.Context, account, password string) (Administrator, error)
}

// EntityTypes are the concrete types registered for each capability.
type EntityTypes struct {
	Administrator reflect.Type
	Role          reflect.Type
	Menu          reflect.Type
	Log           reflect.Type
}
