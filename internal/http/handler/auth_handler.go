package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/secure-login-portal/internal/domain"
	"github.com/sandeepkv93/secure-login-portal/internal/http/middleware"
	"github.com/sandeepkv93/secure-login-portal/internal/http/view"
	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/service"
	"github.com/sandeepkv93/secure-login-portal/internal/session"
)

type AuthHandler struct {
	creds    service.CredentialServiceInterface
	sessions *session.Manager
	views    *view.Renderer
}

func NewAuthHandler(creds service.CredentialServiceInterface, sessions *session.Manager, views *view.Renderer) *AuthHandler {
	return &AuthHandler{creds: creds, sessions: sessions, views: views}
}

// loginOutcome is the terminal result of one pass through the login flow.
type loginOutcome struct {
	state   LoginState
	status  int
	message string
	reason  string
	user    *domain.User
	err     error
}

func rejected(status int, message, reason string) loginOutcome {
	return loginOutcome{state: Rejected, status: status, message: message, reason: reason}
}

func errored(reason string, err error) loginOutcome {
	return loginOutcome{state: Errored, status: http.StatusInternalServerError, message: MsgGenericError, reason: reason, err: err}
}

// LoginForm renders the empty form.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if err := h.views.Login(w, http.StatusOK, middleware.CSRFToken(r), view.LoginPage{}); err != nil {
		renderFailed(w, r, "login", err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	email := strings.TrimSpace(r.PostFormValue("Email"))
	out := h.authenticate(w, r, email, r.PostFormValue("Password"))

	ctx := r.Context()
	outcome := out.state.String()
	observability.RecordAuthLogin(ctx, outcome)
	observability.RecordAuthRequestDuration(ctx, "login", outcome, time.Since(start))

	audit := observability.AuditInput{
		EventName:  "auth.login." + auditSuffix(out.state),
		ActorEmail: email,
		Action:     "login",
		Outcome:    outcome,
		Reason:     out.reason,
	}
	if out.user != nil {
		audit.ActorUserID = strconv.FormatUint(uint64(out.user.ID), 10)
	}
	observability.EmitAudit(r, audit)

	switch out.state {
	case Authenticated:
		http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
		return
	case Errored:
		slog.ErrorContext(ctx, "login failed", "reason", out.reason, "error", out.err)
	}
	if err := h.views.Login(w, out.status, middleware.CSRFToken(r), view.LoginPage{Email: email, Message: out.message}); err != nil {
		renderFailed(w, r, "login", err)
	}
}

// authenticate drives one request from Validating to a terminal state. It
// writes only the session cookie; the caller renders the response.
func (h *AuthHandler) authenticate(w http.ResponseWriter, r *http.Request, email, password string) loginOutcome {
	if email == "" || strings.TrimSpace(password) == "" {
		return rejected(http.StatusBadRequest, MsgCredentialsRequired, "missing_credentials")
	}

	ctx := r.Context()
	user, err := h.creds.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			h.creds.BurnVerification(ctx, password)
			return rejected(http.StatusUnauthorized, MsgInvalidCredentials, "unknown_user")
		}
		return errored("user_lookup", err)
	}
	if !h.creds.VerifyPassword(ctx, password, user.PasswordHash) {
		out := rejected(http.StatusUnauthorized, MsgInvalidCredentials, "bad_password")
		out.user = user
		return out
	}

	if err := h.creds.RecordLogin(ctx, user.ID); err != nil {
		return errored("record_login", err)
	}
	sess, err := h.sessions.Load(r)
	if err != nil {
		return errored("session_load", err)
	}
	if err := h.sessions.Renew(ctx, sess); err != nil {
		return errored("session_renew", err)
	}
	sess.Set(session.KeyUserID, int64(user.ID))
	sess.Set(session.KeyUserEmail, user.Email)
	if err := h.sessions.Commit(ctx, w, sess); err != nil {
		return errored("session_commit", err)
	}
	return loginOutcome{state: Authenticated, status: http.StatusSeeOther, user: user}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	status := "success"
	defer func() {
		observability.RecordAuthLogout(ctx, status)
		observability.RecordAuthRequestDuration(ctx, "logout", status, time.Since(start))
	}()

	sess, err := h.sessions.Load(r)
	if err != nil {
		slog.ErrorContext(ctx, "load session for logout", "error", err)
		sess = session.New()
	}
	userID, _ := sess.GetInt64(session.KeyUserID)
	userEmail, _ := sess.GetString(session.KeyUserEmail)
	if err := h.sessions.Destroy(ctx, w, sess); err != nil {
		status = "store_error"
		slog.ErrorContext(ctx, "destroy session", "error", err)
	}

	in := observability.AuditInput{EventName: "auth.logout", ActorEmail: userEmail, Action: "logout", Outcome: status}
	if userID > 0 {
		in.ActorUserID = strconv.FormatInt(userID, 10)
	}
	observability.EmitAudit(r, in)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func auditSuffix(s LoginState) string {
	switch s {
	case Authenticated:
		return "success"
	case Rejected:
		return "rejected"
	default:
		return "errored"
	}
}

// renderFailed answers with a plain 500 when a page could not be rendered. The
// renderer buffers output, so nothing has been written to w yet.
func renderFailed(w http.ResponseWriter, r *http.Request, page string, err error) {
	slog.ErrorContext(r.Context(), "render page", "page", page, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
