package api

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"
)

func (h *Handler) auditLoginFailed(ctx context.Context, adminID *string, ip net.IP, ua string, username string, reason string) {
	h.insertAudit(ctx, "auth.login.failed", adminID, nil, ip, ua, map[string]any{
		"username": username,
		"reason":   reason,
	})
}

func (h *Handler) auditOTPSent(ctx context.Context, adminID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.otp.sent", &adminID, nil, ip, ua, nil)
}

func (h *Handler) auditOTPFailed(ctx context.Context, adminID string, ip net.IP, ua string, reason string) {
	h.insertAudit(ctx, "auth.otp.failed", &adminID, nil, ip, ua, map[string]any{
		"reason": reason,
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, adminID string, sessionID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.login.success", &adminID, &sessionID, ip, ua, nil)
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua string, username string, retryAfter time.Duration) {
	h.insertAudit(ctx, "auth.login.rate_limited", nil, nil, ip, ua, map[string]any{
		"username":      username,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditLogout(ctx context.Context, adminID string, sessionID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.logout", &adminID, &sessionID, ip, ua, nil)
}

func (h *Handler) auditSessionRevoked(ctx context.Context, adminID string, sessionID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.session.revoked", &adminID, &sessionID, ip, ua, nil)
}

func (h *Handler) auditSessionsRevokedOthers(ctx context.Context, adminID string, ip net.IP, ua string, count int64) {
	h.insertAudit(ctx, "auth.session.revoked_others", &adminID, nil, ip, ua, map[string]any{
		"count": count,
	})
}

func (h *Handler) auditPasswordChanged(ctx context.Context, adminID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.password.changed", &adminID, nil, ip, ua, nil)
}

func (h *Handler) auditPasswordResetRequested(ctx context.Context, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.password.reset_requested", nil, nil, ip, ua, nil)
}

func (h *Handler) auditPasswordReset(ctx context.Context, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.password.reset", nil, nil, ip, ua, nil)
}

func (h *Handler) auditProfileUpdated(ctx context.Context, adminID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.profile.updated", &adminID, nil, ip, ua, nil)
}

func (h *Handler) insertAudit(ctx context.Context, action string, adminID *string, sessionID *string, ip net.IP, ua string, meta map[string]any) {
	if h == nil || h.pool == nil || !h.dbEnabled {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var ipVal any
	if ip != nil {
		ipVal = ip.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO backoffice.audit_log (
			admin_id, session_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, adminID, sessionID, action, ipVal, trimOrNil(ua), metaVal)
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
