package api

import (
	"backoffice/cmd/admin"
	"backoffice/cmd/internal/auth/session"
)

func toAdminResponse(a admin.Administrator) adminResponse {
	return adminResponse{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
}

func toSessionResponse(row session.Row, current bool) sessionResponse {
	var ip *string
	if row.IP != nil {
		s := row.IP.String()
		ip = &s
	}
	return sessionResponse{
		ID:           row.ID,
		IP:           ip,
		UserAgent:    row.UserAgent,
		CreatedAt:    row.CreatedAt,
		LastActivity: row.LastActivity,
		Current:      current,
	}
}
