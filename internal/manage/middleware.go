package manage

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/odyssey-erp/odyssey-manage/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

// RequireUser rejects requests without a signed in administrator. The
// administrator is bound to the request context for downstream handlers.
func RequireUser(p *Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := p.Current(r.Context())
			if err != nil {
				p.logger.Error("resolve current user", slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			if admin == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCurrent(r.Context(), admin)))
		})
	}
}

// RequireAnyResource lets the request through when the current user's role
// grants at least one of resources.
func RequireAnyResource(p *Provider, resources ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(resources) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			admin, err := p.Current(r.Context())
			if err != nil {
				p.logger.Error("resolve current user", slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			if admin == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			role, err := p.RoleOf(r.Context(), admin)
			if err != nil {
				p.logger.Error("resolve role", slog.Int64("admin_id", admin.GetID()), slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			if role == nil || !grantsAny(role.GetResources(), resources) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func grantsAny(granted, required []string) bool {
	for _, res := range required {
		if slices.Contains(granted, res) {
			return true
		}
	}
	return false
}
