package manage

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/odyssey-erp/odyssey-manage/internal/container"
	"github.com/odyssey-erp/odyssey-manage/internal/entity"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

// Lookup keys understood by the administrator operate.
const (
	KeyID      = "id"
	KeyAccount = "account"
)

// Provider is the management provider. Entity types are resolved from the
// container on first use and entity lookups go through the operate factory.
type Provider struct {
	container *container.Container
	operates  *entity.Factory
	logger    *slog.Logger

	types typeResolver

	rootMu sync.Mutex
	root   Menu
}

// NewProvider constructs a Provider. Nothing is resolved until first use.
func NewProvider(c *container.Container, operates *entity.Factory, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{container: c, operates: operates, logger: logger}
	p.types.resolve = func() (EntityTypes, error) {
		return resolveEntityTypes(c)
	}
	return p
}

// FromContainer returns the provider registered in c.
func FromContainer(c *container.Container) (*Provider, error) {
	return container.Resolve[*Provider](c)
}

// Types returns the concrete entity types, resolving them on the first call.
func (p *Provider) Types() (EntityTypes, error) {
	return p.types.load()
}

// ManageUserType is the concrete administrator type.
func (p *Provider) ManageUserType() (reflect.Type, error) {
	types, err := p.Types()
	if err != nil {
		return nil, err
	}
	return types.Administrator, nil
}

func (p *Provider) operate(pick func(EntityTypes) reflect.Type) (entity.Operate, error) {
	types, err := p.Types()
	if err != nil {
		return nil, err
	}
	return p.operates.CreateOperate(pick(types))
}

// FindByID returns the administrator with the given id, or nil.
func (p *Provider) FindByID(ctx context.Context, id int64) (Administrator, error) {
	if id < 1 {
		return nil, nil
	}
	return p.findAdministrator(ctx, KeyID, id)
}

// FindByAccount returns the administrator with the given login account, or nil.
func (p *Provider) FindByAccount(ctx context.Context, account string) (Administrator, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, nil
	}
	return p.findAdministrator(ctx, KeyAccount, account)
}

func (p *Provider) findAdministrator(ctx context.Context, key string, value any) (Administrator, error) {
	op, err := p.operate(func(t EntityTypes) reflect.Type { return t.Administrator })
	if err != nil {
		return nil, err
	}
	v, err := op.FindWithCache(ctx, key, value)
	if err != nil || v == nil {
		return nil, err
	}
	admin, ok := v.(Administrator)
	if !ok {
		return nil, fmt.Errorf("manage: %T is not an administrator", v)
	}
	return admin, nil
}

// Login verifies credentials with the registered Authenticator. On success
// the administrator becomes the current user of the request session, if any.
func (p *Provider) Login(ctx context.Context, account, password string) (Administrator, error) {
	auth, err := container.Resolve[Authenticator](p.container)
	if err != nil {
		return nil, err
	}
	admin, err := auth.Login(ctx, account, password)
	if err != nil {
		return nil, err
	}
	if sess := shared.SessionFromContext(ctx); sess != nil {
		sess.Renew()
		sess.SetUser(admin.GetID())
	}
	return admin, nil
}

// RoleOf returns the role of admin, or nil when it has none.
func (p *Provider) RoleOf(ctx context.Context, admin Administrator) (Role, error) {
	if admin == nil || admin.GetRoleID() < 1 {
		return nil, nil
	}
	op, err := p.operate(func(t EntityTypes) reflect.Type { return t.Role })
	if err != nil {
		return nil, err
	}
	v, err := op.FindWithCache(ctx, op.Unique(), admin.GetRoleID())
	if err != nil || v == nil {
		return nil, err
	}
	role, ok := v.(Role)
	if !ok {
		return nil, fmt.Errorf("manage: %T is not a role", v)
	}
	return role, nil
}

// MenuRoot returns the root of the menu tree, or nil when the menu store has
// no notion of a root. A resolved root is kept for the provider's lifetime.
func (p *Provider) MenuRoot(ctx context.Context) (Menu, error) {
	p.rootMu.Lock()
	defer p.rootMu.Unlock()
	if p.root != nil {
		return p.root, nil
	}
	op, err := p.operate(func(t EntityTypes) reflect.Type { return t.Menu })
	if err != nil {
		return nil, err
	}
	finder, ok := op.(entity.RootFinder)
	if !ok {
		return nil, nil
	}
	v, err := finder.Root(ctx)
	if err != nil || v == nil {
		return nil, err
	}
	root, ok := v.(Menu)
	if !ok {
		return nil, fmt.Errorf("manage: %T is not a menu", v)
	}
	p.root = root
	return root, nil
}

// ResetMenuRoot forgets the kept menu root so the next MenuRoot call reloads it.
func (p *Provider) ResetMenuRoot() {
	p.rootMu.Lock()
	p.root = nil
	p.rootMu.Unlock()
}

// FindByMenuID returns the menu with the given id, or nil. Non-positive ids
// never reach the store.
func (p *Provider) FindByMenuID(ctx context.Context, id int64) (Menu, error) {
	if id < 1 {
		return nil, nil
	}
	op, err := p.operate(func(t EntityTypes) reflect.Type { return t.Menu })
	if err != nil {
		return nil, err
	}
	v, err := op.FindWithCache(ctx, op.Unique(), id)
	if err != nil || v == nil {
		return nil, err
	}
	menu, ok := v.(Menu)
	if !ok {
		return nil, fmt.Errorf("manage: %T is not a menu", v)
	}
	return menu, nil
}

// GetMySubMenus returns the children of menuID (the root when menuID is not
// positive or unknown) that the current user's role may see. It returns nil
// when nobody is signed in, the user has no role, or there is no tree.
func (p *Provider) GetMySubMenus(ctx context.Context, menuID int64) ([]Menu, error) {
	admin, err := p.Current(ctx)
	if err != nil || admin == nil {
		return nil, err
	}
	role, err := p.RoleOf(ctx, admin)
	if err != nil || role == nil {
		return nil, err
	}

	var menu Menu
	if menuID > 0 {
		if menu, err = p.FindByMenuID(ctx, menuID); err != nil {
			return nil, err
		}
	}
	if menu == nil {
		if menu, err = p.MenuRoot(ctx); err != nil {
			return nil, err
		}
		if menu == nil || len(menu.GetChildren()) == 0 {
			return nil, nil
		}
	}

	return menu.MySubMenus(role.GetResources()), nil
}
