package api

import "time"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}

type otpRequest struct {
	Code string `json:"code"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type profileUpdateRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

type adminResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	ID           string    `json:"id"`
	IP           *string   `json:"ip"`
	UserAgent    *string   `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Current      bool      `json:"current"`
}

// otpRequiredResponse is the step-one success payload: credentials were
// accepted and a one-time code is on its way.
type otpRequiredResponse struct {
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

type loginResponse struct {
	Admin adminResponse `json:"admin"`
	Token string        `json:"token"`
}

type meResponse struct {
	Admin adminResponse `json:"admin"`
}

type sessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type revokedResponse struct {
	Revoked int64 `json:"revoked"`
}

type statusResponse struct {
	Status string `json:"status"`
}
