package manage

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-manage/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-manage/internal/shared"
)

// ResourceMenusView grants the unfiltered menu tree. Without it an
// administrator only sees the menus of their own role.
const ResourceMenusView = "menus.view"

// Handler exposes the provider over HTTP.
type Handler struct {
	logger    *slog.Logger
	provider  *Provider
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, provider *Provider, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		provider:  provider,
		sessions:  sessions,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers auth and menu routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/csrf", h.csrfToken)
		r.With(httprate.LimitByIP(10, time.Minute)).Post("/login", h.login)
		r.Post("/logout", h.logout)
	})
	r.Group(func(r chi.Router) {
		r.Use(RequireUser(h.provider))
		r.Get("/me", h.me)
		r.Get("/menus/{id}/mine", h.mySubMenus)
		r.With(RequireAnyResource(h.provider, ResourceMenusView)).Get("/menus/root", h.menuRoot)
		r.With(RequireAnyResource(h.provider, ResourceMenusView)).Get("/menus/{id}", h.menu)
	})
}

type loginRequest struct {
	Account  string `json:"account" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type userView struct {
	ID      int64  `json:"id"`
	Account string `json:"account"`
	RoleID  int64  `json:"role_id"`
	Role    string `json:"role,omitempty"`
}

type menuView struct {
	ID       int64      `json:"id"`
	ParentID int64      `json:"parent_id"`
	Name     string     `json:"name"`
	URL      string     `json:"url,omitempty"`
	Resource string     `json:"resource,omitempty"`
	Children []menuView `json:"children,omitempty"`
}

func toMenuView(m Menu) menuView {
	view := menuView{
		ID:       m.GetID(),
		ParentID: m.GetParentID(),
		Name:     m.GetName(),
		URL:      m.GetURL(),
		Resource: m.GetResource(),
	}
	for _, child := range m.GetChildren() {
		view.Children = append(view.Children, toMenuView(child))
	}
	return view
}

func toMenuViews(menus []Menu) []menuView {
	views := make([]menuView, 0, len(menus))
	for _, m := range menus {
		views = append(views, toMenuView(m))
	}
	return views
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrf.EnsureToken(shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed login request")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs[0].Field()+" is invalid")
			return
		}
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	admin, err := h.provider.Login(r.Context(), req.Account, req.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("login", slog.String("account", req.Account), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("administrator signed in", slog.Int64("admin_id", admin.GetID()))
	h.writeUser(w, r, admin)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	admin, err := h.provider.Current(r.Context())
	if err != nil {
		h.logger.Error("current user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.writeUser(w, r, admin)
}

func (h *Handler) writeUser(w http.ResponseWriter, r *http.Request, admin Administrator) {
	view := userView{ID: admin.GetID(), Account: admin.GetAccount(), RoleID: admin.GetRoleID()}
	role, err := h.provider.RoleOf(r.Context(), admin)
	if err != nil {
		h.logger.Warn("load role", slog.Int64("role_id", admin.GetRoleID()), slog.Any("error", err))
	} else if role != nil {
		view.Role = role.GetName()
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) menuRoot(w http.ResponseWriter, r *http.Request) {
	root, err := h.provider.MenuRoot(r.Context())
	if err != nil {
		h.logger.Error("menu root", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if root == nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, toMenuView(root))
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	id, ok := menuIDParam(w, r)
	if !ok {
		return
	}
	menu, err := h.provider.FindByMenuID(r.Context(), id)
	if err != nil {
		h.logger.Error("find menu", slog.Int64("menu_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if menu == nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, toMenuView(menu))
}

func (h *Handler) mySubMenus(w http.ResponseWriter, r *http.Request) {
	id, ok := menuIDParam(w, r)
	if !ok {
		return
	}
	menus, err := h.provider.GetMySubMenus(r.Context(), id)
	if err != nil {
		h.logger.Error("my sub menus", slog.Int64("menu_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"menus": toMenuViews(menus)})
}

func menuIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "menu id must be an integer")
		return 0, false
	}
	return id, true
}
