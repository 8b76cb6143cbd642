package app

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"github.com/odyssey-erp/odyssey-manage/internal/admins"
	"github.com/odyssey-erp/odyssey-manage/internal/auditlog"
	"github.com/odyssey-erp/odyssey-manage/internal/container"
	"github.com/odyssey-erp/odyssey-manage/internal/entity"
	"github.com/odyssey-erp/odyssey-manage/internal/manage"
	"github.com/odyssey-erp/odyssey-manage/internal/menus"
	"github.com/odyssey-erp/odyssey-manage/internal/observability"
	"github.com/odyssey-erp/odyssey-manage/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-manage/internal/roles"
)

// Dependencies are the process wide resources the management module needs.
type Dependencies struct {
	Pool    *pgxpool.Pool
	Cache   *cache.Cache
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Services is the wired management module.
type Services struct {
	Container *container.Container
	Factory   *entity.Factory
	Provider  *manage.Provider
	Admins    *admins.Service
	Roles     *roles.Service
	Menus     *menus.Service
	MenuOp    *menus.Operate
	RoleOp    *entity.CachedOperate[*roles.Role]
}

type services struct {
	dig.In

	Factory  *entity.Factory
	Provider *manage.Provider
	Admins   *admins.Service
	Roles    *roles.Service
	Menus    *menus.Service
	MenuOp   *menus.Operate
	RoleOp   *entity.CachedOperate[*roles.Role]
}

// Bootstrap registers the entity implementations and their stores in a new
// container and returns the resolved services.
func Bootstrap(deps Dependencies) (*Services, error) {
	c := container.New()
	if err := bindCapabilities(c); err != nil {
		return nil, err
	}

	entityMetrics := entity.NewMetrics(deps.Metrics.Registerer())
	opts := []entity.Option{entity.WithMetrics(entityMetrics), entity.WithLogger(deps.Logger)}

	constructors := []struct {
		fn   any
		opts []dig.ProvideOption
	}{
		{fn: func() *pgxpool.Pool { return deps.Pool }},
		{fn: func() *cache.Cache { return deps.Cache }},
		{fn: func() *slog.Logger { return deps.Logger }},
		{fn: entity.NewFactory},
		{fn: admins.NewRepository, opts: []dig.ProvideOption{dig.As(new(admins.Repository))}},
		{fn: roles.NewRepository, opts: []dig.ProvideOption{dig.As(new(roles.RepositoryPort))}},
		{fn: menus.NewRepository, opts: []dig.ProvideOption{dig.As(new(menus.Store))}},
		{fn: auditlog.NewLogger, opts: []dig.ProvideOption{dig.As(new(auditlog.Recorder))}},
		{fn: func(repo admins.Repository, audit auditlog.Recorder, logger *slog.Logger) *admins.Service {
			return admins.NewService(repo, audit, logger)
		}},
		{fn: func(svc *admins.Service) manage.Authenticator { return svc }},
		{fn: func(repo roles.RepositoryPort, f *entity.Factory, logger *slog.Logger) *roles.Service {
			return roles.NewService(repo, f, logger)
		}},
		{fn: func(store menus.Store, f *entity.Factory, logger *slog.Logger) *menus.Service {
			return menus.NewService(store, f, logger)
		}},
		{fn: func(repo roles.RepositoryPort, cc *cache.Cache) *entity.CachedOperate[*roles.Role] {
			return roles.NewOperate(repo, cc, opts...)
		}},
		{fn: func(store menus.Store, cc *cache.Cache) *menus.Operate {
			return menus.NewOperate(store, cc, opts...)
		}},
		{fn: func(f *entity.Factory, logger *slog.Logger) *manage.Provider {
			return manage.NewProvider(c, f, logger)
		}},
	}
	for _, ctor := range constructors {
		if err := c.Provide(ctor.fn, ctor.opts...); err != nil {
			return nil, fmt.Errorf("app: provide: %w", err)
		}
	}

	// Operates are registered against the concrete entity types so the
	// provider can find them from the types it resolved.
	err := c.Invoke(func(f *entity.Factory, adminRepo admins.Repository, roleOp *entity.CachedOperate[*roles.Role], menuOp *menus.Operate, cc *cache.Cache) {
		entity.RegisterFor[*admins.Administrator](f, admins.NewOperate(adminRepo, cc, opts...))
		entity.RegisterFor[*roles.Role](f, roleOp)
		entity.RegisterFor[*menus.Menu](f, menuOp)
	})
	if err != nil {
		return nil, fmt.Errorf("app: register operates: %w", err)
	}

	var out *Services
	err = c.Invoke(func(s services) {
		out = &Services{
			Container: c,
			Factory:   s.Factory,
			Provider:  s.Provider,
			Admins:    s.Admins,
			Roles:     s.Roles,
			Menus:     s.Menus,
			MenuOp:    s.MenuOp,
			RoleOp:    s.RoleOp,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("app: resolve services: %w", err)
	}
	if _, err := out.Provider.Types(); err != nil {
		return nil, fmt.Errorf("app: resolve entity types: %w", err)
	}
	return out, nil
}

func bindCapabilities(c *container.Container) error {
	if err := container.Bind[manage.Administrator](c, &admins.Administrator{}); err != nil {
		return err
	}
	if err := container.Bind[manage.Role](c, &roles.Role{}); err != nil {
		return err
	}
	if err := container.Bind[manage.Menu](c, &menus.Menu{}); err != nil {
		return err
	}
	return container.Bind[manage.Log](c, &auditlog.Entry{})
}
