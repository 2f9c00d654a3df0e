package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Per-IP throttling rides on the audit log: no extra table, and restarts do
// not reset the window.

func (h *Handler) checkLoginIPThrottle(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration, error) {
	if ip == nil || h.cfg.LoginIPMax <= 0 {
		return false, 0, nil
	}
	cut := now.Add(-h.cfg.LoginIPWindow)
	count, err := countLoginFailuresByIP(ctx, h.pool, ip, cut)
	if err != nil {
		return false, 0, err
	}
	if count >= h.cfg.LoginIPMax {
		return true, h.cfg.LoginIPWindow, nil
	}
	return false, 0, nil
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}

func countLoginFailuresByIP(ctx context.Context, pool *pgxpool.Pool, ip net.IP, since time.Time) (int, error) {
	if pool == nil || ip == nil {
		return 0, nil
	}
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM backoffice.audit_log
		WHERE action IN ('auth.login.failed', 'auth.otp.failed')
		  AND ip = $1
		  AND created_at >= $2
	`, ip.String(), since).Scan(&n)
	return n, err
}
