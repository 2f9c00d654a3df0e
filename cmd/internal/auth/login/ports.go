package login

import "context"

// Mailer delivers authentication mail. Implementations must not block the
// login flow indefinitely; the sequencer passes a deadline-bearing context.
type Mailer interface {
	// SendOTP delivers the one-time code to the administrator's address.
	SendOTP(ctx context.Context, email, username, code string) error

	// SendPasswordReset delivers a password reset link token.
	SendPasswordReset(ctx context.Context, email, username, token string) error
}

// CaptchaVerifier checks a client-supplied captcha response before any
// credential work happens.
type CaptchaVerifier interface {
	Verify(ctx context.Context, response, remoteIP string) error
}

// NoopMailer drops mail. Useful in development and tests.
type NoopMailer struct{}

func (NoopMailer) SendOTP(context.Context, string, string, string) error { return nil }

func (NoopMailer) SendPasswordReset(context.Context, string, string, string) error { return nil }

// NoopCaptcha accepts every response. Deployments front the login endpoint
// with a real verifier; development runs use this.
type NoopCaptcha struct{}

func (NoopCaptcha) Verify(context.Context, string, string) error { return nil }
