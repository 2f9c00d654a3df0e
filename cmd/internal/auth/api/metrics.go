package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_login_attempts_total",
		Help: "Credential submissions by outcome.",
	}, []string{"result"})

	otpChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_otp_checks_total",
		Help: "One-time code submissions by outcome.",
	}, []string{"result"})

	sessionValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_session_validations_total",
		Help: "Session token validations by outcome.",
	}, []string{"result"})

	sessionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_sessions_revoked_total",
		Help: "Sessions removed through logout and revocation endpoints.",
	})
)
