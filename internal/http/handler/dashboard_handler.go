package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/secure-login-portal/internal/domain"
	"github.com/sandeepkv93/secure-login-portal/internal/http/middleware"
	"github.com/sandeepkv93/secure-login-portal/internal/http/view"
	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/service"
	"github.com/sandeepkv93/secure-login-portal/internal/session"
)

type DashboardHandler struct {
	users    service.UserServiceInterface
	sessions *session.Manager
	views    *view.Renderer
}

func NewDashboardHandler(users service.UserServiceInterface, sessions *session.Manager, views *view.Renderer) *DashboardHandler {
	return &DashboardHandler{users: users, sessions: sessions, views: views}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessions.Load(r)
	if err != nil {
		h.fail(w, r, "load session", err)
		return
	}
	uid, ok := sess.GetInt64(session.KeyUserID)
	if !ok || uid <= 0 {
		observability.RecordDashboardView(ctx, "unauthenticated")
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	user, err := h.users.GetByID(ctx, uint(uid))
	if errors.Is(err, service.ErrUserNotFound) || (err == nil && !user.IsActive) {
		slog.WarnContext(ctx, "session references missing or inactive user", "user_id", uid)
		if derr := h.sessions.Destroy(ctx, w, sess); derr != nil {
			slog.ErrorContext(ctx, "destroy stale session", "error", derr)
		}
		observability.RecordDashboardView(ctx, "stale_session")
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}
	if err != nil {
		h.fail(w, r, "load user", err)
		return
	}

	profile, err := h.users.GetProfile(ctx, user.ID)
	if err != nil {
		h.fail(w, r, "load profile", err)
		return
	}

	observability.RecordDashboardView(ctx, "rendered")
	if err := h.views.Dashboard(w, http.StatusOK, middleware.CSRFToken(r), dashboardPage(user, profile)); err != nil {
		renderFailed(w, r, "dashboard", err)
	}
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	observability.RecordDashboardView(r.Context(), "errored")
	slog.ErrorContext(r.Context(), "dashboard failed", "op", op, "error", err)
	if rerr := h.views.Error(w, http.StatusInternalServerError, MsgGenericError); rerr != nil {
		renderFailed(w, r, "error", rerr)
	}
}

func dashboardPage(u *domain.User, p *domain.Profile) view.DashboardPage {
	page := view.DashboardPage{
		Email:     u.Email,
		CreatedAt: view.FormatTime(u.CreatedAt),
	}
	if u.LastLogin != nil {
		page.LastLogin = view.FormatTime(*u.LastLogin)
	}
	if p != nil {
		page.Profile = &view.ProfileView{Name: p.Name, Address: deref(p.Address), Mobile: deref(p.Mobile)}
	}
	return page
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
