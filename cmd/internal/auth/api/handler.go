package api

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"backoffice/cmd/admin"
	"backoffice/cmd/internal/auth/login"
	"backoffice/cmd/internal/auth/session"
	"backoffice/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler wires the HTTP auth endpoints to the login sequencer and the
// session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	dbEnabled bool
	pool      *pgxpool.Pool

	admins   admin.Store
	sessions *session.Service
	flow     *login.Service

	mailer  login.Mailer
	captcha login.CaptchaVerifier
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMailer overrides the default no-op mailer.
func WithMailer(m login.Mailer) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.mailer = m
	}
}

// WithCaptchaVerifier overrides the default no-op captcha verifier.
func WithCaptchaVerifier(v login.CaptchaVerifier) HandlerOption {
	return func(h *Handler) {
		if h == nil || v == nil {
			return
		}
		h.captcha = v
	}
}

// NewHandler constructs an auth Handler. If dbEnabled is false, handlers
// return 503.
func NewHandler(
	log *slog.Logger,
	pool *pgxpool.Pool,
	cfg Config,
	sessCfg session.Config,
	loginCfg login.Config,
	pwCfg password.Config,
	dbEnabled bool,
	opts ...HandlerOption,
) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:       log,
		cfg:       cfg,
		dbEnabled: dbEnabled,
		pool:      pool,
		mailer:    login.NoopMailer{},
		captcha:   login.NoopCaptcha{},
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	if !dbEnabled {
		return h, nil
	}
	if pool == nil {
		return nil, errors.New("auth: nil db pool")
	}

	admins, err := admin.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	h.admins = admins
	h.sessions = session.NewService(sessCfg, session.NewPostgresStore(pool))

	captcha := h.captcha
	if !cfg.EnableCaptcha {
		captcha = login.NoopCaptcha{}
	}
	flow, err := login.NewService(log, loginCfg, pwCfg, admins, h.sessions, h.mailer, captcha)
	if err != nil {
		return nil, err
	}
	h.flow = flow

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/otp", h.handleOTP)
	mux.HandleFunc("POST /auth/otp/resend", h.handleOTPResend)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /auth/me", h.handleMe)
	mux.HandleFunc("PATCH /auth/profile", h.handleProfileUpdate)
	mux.HandleFunc("GET /auth/sessions", h.handleSessionsList)
	mux.HandleFunc("DELETE /auth/sessions", h.handleSessionsRevokeOthers)
	mux.HandleFunc("DELETE /auth/sessions/{id}", h.handleSessionRevoke)
	mux.HandleFunc("POST /auth/password/change", h.handlePasswordChange)
	mux.HandleFunc("POST /auth/password/forgot", h.handlePasswordForgot)
	mux.HandleFunc("POST /auth/password/reset", h.handlePasswordReset)
}

// SessionService returns the underlying session service (nil when the DB is
// disabled). The app layer uses it for health reporting.
func (h *Handler) SessionService() *session.Service {
	if h == nil {
		return nil
	}
	return h.sessions
}

// ---- login sequence ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())
	// Deliberately no TrimSpace on username: lookup is exact-match.
	username := req.Username

	if blocked, retryAfter, err := h.checkLoginIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.login.throttle_ip.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		loginAttempts.WithLabelValues("rate_limited").Inc()
		h.auditLoginRateLimited(ctx, ip, ua, username, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	pending, err := h.flow.SubmitCredentials(ctx, now, login.Credentials{
		Username:     username,
		Password:     req.Password,
		CaptchaToken: req.Captcha,
		RemoteIP:     ipString(ip),
	})
	if err != nil {
		switch {
		case errors.Is(err, login.ErrMissingInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		case errors.Is(err, login.ErrVerificationFailed):
			loginAttempts.WithLabelValues("captcha_failed").Inc()
			h.auditLoginFailed(ctx, nil, ip, ua, username, "captcha_invalid")
			writeError(w, http.StatusForbidden, "captcha_invalid", "captcha verification failed")
		case errors.Is(err, login.ErrInvalidCredentials):
			loginAttempts.WithLabelValues("rejected").Inc()
			h.auditLoginFailed(ctx, nil, ip, ua, username, "invalid_credentials")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		default:
			h.log.Error("auth.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	exp := now.Add(h.flow.OTPTTL())
	cookie, err := h.flow.Pending().Encode(pending, now, exp)
	if err != nil {
		h.log.Error("auth.login.pending_encode.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	loginAttempts.WithLabelValues("otp_sent").Inc()
	h.auditOTPSent(ctx, pending.AdminID, ip, ua)
	h.setPendingCookie(w, cookie, exp)
	writeJSON(w, http.StatusOK, otpRequiredResponse{Status: "otp_required", ExpiresAt: exp})
}

func (h *Handler) handleOTP(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	var req otpRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	pending, err := h.flow.Pending().Decode(h.pendingCookieValue(r), now)
	if err != nil {
		otpChecks.WithLabelValues("no_pending").Inc()
		h.clearPendingCookie(w)
		writeError(w, http.StatusUnauthorized, "no_pending_login", "restart login")
		return
	}

	res, err := h.flow.SubmitOTP(ctx, now, pending, strings.TrimSpace(req.Code), ip, ua)
	if err != nil {
		switch {
		case errors.Is(err, login.ErrMissingInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "code is required")
		case errors.Is(err, login.ErrNoPendingLogin):
			otpChecks.WithLabelValues("no_pending").Inc()
			h.clearPendingCookie(w)
			writeError(w, http.StatusUnauthorized, "no_pending_login", "restart login")
		case errors.Is(err, login.ErrOTPExpired):
			otpChecks.WithLabelValues("expired").Inc()
			h.auditOTPFailed(ctx, pending.AdminID, ip, ua, "expired")
			writeError(w, http.StatusUnauthorized, "otp_expired", "one-time code expired")
		case errors.Is(err, login.ErrOTPIncorrect):
			otpChecks.WithLabelValues("incorrect").Inc()
			h.auditOTPFailed(ctx, pending.AdminID, ip, ua, "incorrect")
			writeError(w, http.StatusUnauthorized, "otp_incorrect", "one-time code incorrect")
		default:
			h.log.Error("auth.otp.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	otpChecks.WithLabelValues("ok").Inc()
	h.auditLoginSuccess(ctx, res.Administrator.ID, res.Session.Session.ID, ip, ua)
	h.clearPendingCookie(w)
	h.setSessionCookie(w, res.Session.Token)
	writeJSON(w, http.StatusOK, loginResponse{
		Admin: toAdminResponse(res.Administrator),
		Token: res.Session.Token,
	})
}

func (h *Handler) handleOTPResend(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	pending, err := h.flow.Pending().Decode(h.pendingCookieValue(r), now)
	if err != nil {
		h.clearPendingCookie(w)
		writeError(w, http.StatusUnauthorized, "no_pending_login", "restart login")
		return
	}

	if err := h.flow.ResendOTP(ctx, now, pending); err != nil {
		if errors.Is(err, login.ErrNoPendingLogin) {
			h.clearPendingCookie(w)
			writeError(w, http.StatusUnauthorized, "no_pending_login", "restart login")
			return
		}
		h.log.Error("auth.otp.resend.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditOTPSent(ctx, pending.AdminID, ip, ua)
	writeJSON(w, http.StatusOK, statusResponse{Status: "otp_sent"})
}

// ---- session surface ----

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	row, tok, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.sessions.Revoke(ctx, tok); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	sessionsRevoked.Inc()
	h.auditLogout(ctx, row.AdminID, row.ID, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	row, _, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	a, err := h.admins.GetByID(r.Context(), row.AdminID)
	if err != nil {
		if admin.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "not_found", "administrator not found")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{Admin: toAdminResponse(a)})
}

func (h *Handler) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	row, _, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req profileUpdateRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := trimPtr(req.Username)
	email := trimPtr(req.Email)
	if username == nil && email == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "nothing to update")
		return
	}

	ctx := r.Context()
	a, err := h.admins.UpdateProfile(ctx, row.AdminID, username, email)
	if err != nil {
		switch {
		case admin.IsConflict(err):
			writeError(w, http.StatusConflict, "conflict", "username or email already exists")
		case admin.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
		case admin.IsNotFound(err):
			writeError(w, http.StatusUnauthorized, "not_found", "administrator not found")
		default:
			h.log.Error("auth.profile.update.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditProfileUpdated(ctx, row.AdminID, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	writeJSON(w, http.StatusOK, meResponse{Admin: toAdminResponse(a)})
}

func (h *Handler) handleSessionsList(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	row, tok, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	rows, err := h.sessions.List(r.Context(), row.AdminID)
	if err != nil {
		h.log.Error("auth.sessions.list.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	resp := sessionsResponse{Sessions: make([]sessionResponse, 0, len(rows))}
	for _, s := range rows {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s, h.sessions.IsCurrent(s, tok)))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSessionRevoke(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	row, _, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}

	ctx := r.Context()
	if err := h.sessions.RevokeByID(ctx, row.AdminID, id); err != nil {
		h.log.Error("auth.session.revoke.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	sessionsRevoked.Inc()
	h.auditSessionRevoked(ctx, row.AdminID, id, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	if id == row.ID {
		// The caller revoked its own session.
		h.clearSessionCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSessionsRevokeOthers(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	row, tok, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	n, err := h.sessions.RevokeOthers(ctx, row.AdminID, tok)
	if err != nil {
		h.log.Error("auth.sessions.revoke_others.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	sessionsRevoked.Add(float64(n))
	h.auditSessionsRevokedOthers(ctx, row.AdminID, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()), n)
	writeJSON(w, http.StatusOK, revokedResponse{Revoked: n})
}

// ---- password lifecycle ----

func (h *Handler) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	row, tok, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	err := h.flow.ChangePassword(ctx, now, row.AdminID, req.CurrentPassword, req.NewPassword, tok)
	if err != nil {
		switch {
		case errors.Is(err, login.ErrMissingInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "current and new password are required")
		case errors.Is(err, login.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect")
		case isPolicyError(err):
			writeError(w, http.StatusBadRequest, "weak_password", err.Error())
		default:
			h.log.Error("auth.password.change.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditPasswordChanged(ctx, row.AdminID, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	writeJSON(w, http.StatusOK, statusResponse{Status: "password_changed"})
}

func (h *Handler) handlePasswordForgot(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	var req forgotPasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if err := h.flow.RequestPasswordReset(ctx, now, req.Email); err != nil {
		if errors.Is(err, login.ErrMissingInput) {
			writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
			return
		}
		h.log.Error("auth.password.forgot.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditPasswordResetRequested(ctx, ip, ua)
	// Uniform response regardless of whether the address exists.
	writeJSON(w, http.StatusOK, statusResponse{Status: "reset_requested"})
}

func (h *Handler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if !h.dbEnabled {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	err := h.flow.ResetPassword(ctx, now, strings.TrimSpace(req.Token), req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, login.ErrMissingInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "token and new password are required")
		case errors.Is(err, login.ErrResetInvalid):
			writeError(w, http.StatusBadRequest, "invalid_token", "reset token invalid or expired")
		case isPolicyError(err):
			writeError(w, http.StatusBadRequest, "weak_password", err.Error())
		default:
			h.log.Error("auth.password.reset.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditPasswordReset(ctx, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	writeJSON(w, http.StatusOK, statusResponse{Status: "password_reset"})
}

// ---- helpers ----

// requireSession authenticates the request and slides the session's activity
// window. Any validation failure is a uniform 401.
func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) (session.Row, string, bool) {
	tok := h.sessionTokenFromRequest(r)
	if tok == "" {
		sessionValidations.WithLabelValues("missing").Inc()
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session token")
		return session.Row{}, "", false
	}

	row, err := h.sessions.Validate(r.Context(), time.Now().UTC(), tok)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionExpired):
			sessionValidations.WithLabelValues("expired").Inc()
		case errors.Is(err, session.ErrSessionNotFound):
			sessionValidations.WithLabelValues("not_found").Inc()
		default:
			sessionValidations.WithLabelValues("error").Inc()
			h.log.Error("auth.session.validate.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return session.Row{}, "", false
		}
		h.clearSessionCookie(w)
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
		return session.Row{}, "", false
	}

	sessionValidations.WithLabelValues("ok").Inc()
	return row, tok, true
}

func isPolicyError(err error) bool {
	return errors.Is(err, password.ErrPasswordTooShort) ||
		errors.Is(err, password.ErrPasswordTooLong) ||
		errors.Is(err, password.ErrWeakPassword)
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
