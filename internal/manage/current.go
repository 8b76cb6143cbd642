package manage

import (
	"context"

	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

type currentKey struct{}

// WithCurrent binds admin to ctx. It takes precedence over the session user.
func WithCurrent(ctx context.Context, admin Administrator) context.Context {
	return context.WithValue(ctx, currentKey{}, admin)
}

// Current returns the signed in administrator, or nil.
func (p *Provider) Current(ctx context.Context) (Administrator, error) {
	if admin, ok := ctx.Value(currentKey{}).(Administrator); ok && admin != nil {
		return admin, nil
	}
	sess := shared.SessionFromContext(ctx)
	if sess == nil || sess.UserID() < 1 {
		return nil, nil
	}
	admin, err := p.FindByID(ctx, sess.UserID())
	if err != nil || admin == nil {
		return nil, err
	}
	// Accounts disabled after sign-in lose their session.
	if !admin.IsEnabled() {
		return nil, nil
	}
	return admin, nil
}

// SetCurrent makes admin the session user. A nil admin signs out.
func (p *Provider) SetCurrent(ctx context.Context, admin Administrator) error {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return ErrNoSession
	}
	if admin == nil {
		sess.SetUser(0)
		return nil
	}
	sess.SetUser(admin.GetID())
	return nil
}
