package login

import (
	"context"
	"log/slog"
	mathrand "math/rand/v2"
	"net"
	"time"

	"backoffice/cmd/admin"
	"backoffice/cmd/internal/auth/session"
	"backoffice/cmd/security/password"
)

// Service sequences the two-step administrator login and the password
// lifecycle operations that hang off it.
//
// Step one checks the human-verification token, then the password. Step two
// verifies the emailed one-time code and mints a session. Every credential
// outcome is reported through the same coarse errors so the response does not
// leak which accounts exist.
type Service struct {
	log      *slog.Logger
	cfg      Config
	pw       password.Config
	admins   admin.Store
	sessions *session.Service
	mailer   Mailer
	captcha  CaptchaVerifier
	pending  *PendingCodec

	// dummyHash is verified against on unknown-username paths so that a miss
	// costs the same Argon2id work as a hit.
	dummyHash string
}

// Credentials is the step-one input.
type Credentials struct {
	Username     string
	Password     string
	CaptchaToken string
	RemoteIP     string
}

// Result is the step-two output: a live session plus the administrator it
// belongs to.
type Result struct {
	Session       session.Created
	Administrator admin.Administrator
}

// NewService wires the sequencer. The dummy password hash is derived once at
// construction time from random input.
func NewService(
	log *slog.Logger,
	cfg Config,
	pw password.Config,
	admins admin.Store,
	sessions *session.Service,
	mailer Mailer,
	captcha CaptchaVerifier,
) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if mailer == nil {
		mailer = NoopMailer{}
	}
	if captcha == nil {
		captcha = NoopCaptcha{}
	}

	codec, err := NewPendingCodec(cfg)
	if err != nil {
		return nil, err
	}

	seed, _, err := newOpaqueResetToken(32)
	if err != nil {
		return nil, err
	}
	dummy, err := pw.HashSecret(seed)
	if err != nil {
		return nil, err
	}

	return &Service{
		log:       log,
		cfg:       cfg,
		pw:        pw,
		admins:    admins,
		sessions:  sessions,
		mailer:    mailer,
		captcha:   captcha,
		pending:   codec,
		dummyHash: dummy,
	}, nil
}

// Pending exposes the pending-login codec so the transport layer can put the
// marker in a cookie and read it back.
func (s *Service) Pending() *PendingCodec { return s.pending }

// OTPTTL exposes the one-time-code validity window (cookie max-age, UI copy).
func (s *Service) OTPTTL() time.Duration { return s.cfg.OTPTTL }

// SubmitCredentials runs step one of the login sequence.
//
// Order is fixed: human verification, then password. A randomized delay is
// appended to every outcome, success and failure alike, so response timing
// carries no signal. The returned Pending marker is only issued after the
// one-time code has been stored; email delivery failures are logged, not
// surfaced, because surfacing them would confirm the account exists.
func (s *Service) SubmitCredentials(ctx context.Context, now time.Time, in Credentials) (Pending, error) {
	defer s.randomDelay(ctx)

	if in.Username == "" || in.Password == "" {
		return Pending{}, ErrMissingInput
	}

	if err := s.captcha.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
		return Pending{}, ErrVerificationFailed
	}

	auth, err := s.admins.GetAuthByUsername(ctx, in.Username)
	if err != nil {
		if admin.IsNotFound(err) {
			// Burn the same hashing cost as the known-user path.
			_, _ = s.pw.Verify(s.dummyHash, in.Password)
			return Pending{}, ErrInvalidCredentials
		}
		return Pending{}, err
	}

	ok, err := s.pw.Verify(auth.PasswordHash, in.Password)
	if err != nil || !ok {
		if ferr := s.admins.RecordLoginFailure(ctx, auth.ID, now, s.cfg.LockoutThreshold, s.cfg.LockoutDuration); ferr != nil {
			s.log.Warn("record login failure", "admin_id", auth.ID, "err", ferr)
		}
		return Pending{}, ErrInvalidCredentials
	}

	// Inactive and locked accounts fail exactly like a wrong password.
	if !auth.IsActive || auth.Locked(now) {
		return Pending{}, ErrInvalidCredentials
	}

	if err := s.admins.ResetLoginFailures(ctx, auth.ID); err != nil {
		s.log.Warn("reset login failures", "admin_id", auth.ID, "err", err)
	}

	if err := s.issueOTP(ctx, now, auth); err != nil {
		return Pending{}, err
	}

	return Pending{AdminID: auth.ID, Username: auth.Username, RequestedAt: now}, nil
}

// issueOTP generates a fresh code, overwrites the single slot and emails the
// code. Any previously issued code is dead from this point on.
func (s *Service) issueOTP(ctx context.Context, now time.Time, auth admin.Auth) error {
	code, err := newOTPCode()
	if err != nil {
		return err
	}
	hash, err := s.pw.HashSecret(code)
	if err != nil {
		return err
	}
	if err := s.admins.SetOTP(ctx, auth.ID, hash, now.Add(s.cfg.OTPTTL)); err != nil {
		return err
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := s.mailer.SendOTP(mailCtx, auth.Email, auth.Username, code); err != nil {
		s.log.Error("send one-time code", "admin_id", auth.ID, "err", err)
	}
	return nil
}

// SubmitOTP runs step two. The code slot is cleared before the session is
// created, so a code can never be consumed twice even if session creation
// fails and the client retries.
func (s *Service) SubmitOTP(ctx context.Context, now time.Time, p Pending, code string, ip net.IP, userAgent string) (Result, error) {
	if p.Zero() {
		return Result{}, ErrNoPendingLogin
	}
	if code == "" {
		return Result{}, ErrMissingInput
	}

	auth, err := s.admins.GetAuthByID(ctx, p.AdminID)
	if err != nil {
		if admin.IsNotFound(err) {
			return Result{}, ErrNoPendingLogin
		}
		return Result{}, err
	}
	if !auth.IsActive || auth.Locked(now) {
		return Result{}, ErrNoPendingLogin
	}

	if auth.OTPHash == nil || auth.OTPExpires == nil || !auth.OTPExpires.After(now) {
		return Result{}, ErrOTPExpired
	}

	ok, err := s.pw.Verify(*auth.OTPHash, code)
	if err != nil || !ok {
		return Result{}, ErrOTPIncorrect
	}

	if err := s.admins.ClearOTP(ctx, auth.ID); err != nil {
		return Result{}, err
	}

	created, err := s.sessions.Create(ctx, now, auth.ID, ip, userAgent)
	if err != nil {
		return Result{}, err
	}

	s.log.Info("administrator logged in", "admin_id", auth.ID, "session_id", created.Session.ID)
	return Result{Session: created, Administrator: auth.Administrator}, nil
}

// ResendOTP overwrites the code slot with a fresh code for an outstanding
// pending login. The previous code stops working immediately.
func (s *Service) ResendOTP(ctx context.Context, now time.Time, p Pending) error {
	defer s.randomDelay(ctx)

	if p.Zero() {
		return ErrNoPendingLogin
	}

	auth, err := s.admins.GetAuthByID(ctx, p.AdminID)
	if err != nil {
		if admin.IsNotFound(err) {
			return ErrNoPendingLogin
		}
		return err
	}
	if !auth.IsActive || auth.Locked(now) {
		return ErrNoPendingLogin
	}

	return s.issueOTP(ctx, now, auth)
}

// RequestPasswordReset issues a reset token for the account behind the email
// address. It reports success for unknown and inactive addresses too, so the
// endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, now time.Time, email string) error {
	defer s.randomDelay(ctx)

	email = admin.NormalizeEmail(email)
	if email == "" {
		return ErrMissingInput
	}

	auth, err := s.admins.GetAuthByEmail(ctx, email)
	if err != nil {
		if admin.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !auth.IsActive {
		return nil
	}

	plain, hash, err := newOpaqueResetToken(32)
	if err != nil {
		return err
	}
	if err := s.admins.SetResetToken(ctx, auth.ID, hash, now.Add(s.cfg.ResetTokenTTL)); err != nil {
		return err
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := s.mailer.SendPasswordReset(mailCtx, auth.Email, auth.Username, plain); err != nil {
		s.log.Error("send password reset", "admin_id", auth.ID, "err", err)
	}
	return nil
}

// ResetPassword consumes a reset token and installs a new password. All
// sessions of the administrator are revoked afterwards.
func (s *Service) ResetPassword(ctx context.Context, now time.Time, resetToken, newPassword string) error {
	defer s.randomDelay(ctx)

	if resetToken == "" || newPassword == "" {
		return ErrMissingInput
	}

	auth, err := s.admins.GetAuthByResetToken(ctx, hashResetToken(resetToken))
	if err != nil {
		if admin.IsNotFound(err) {
			return ErrResetInvalid
		}
		return err
	}
	if !auth.IsActive {
		return ErrResetInvalid
	}
	if auth.ResetExpires == nil || !auth.ResetExpires.After(now) {
		// An expired token can never succeed; drop it so the slot does not
		// keep a stale secret around.
		if err := s.admins.ClearResetToken(ctx, auth.ID); err != nil {
			s.log.Warn("clear expired reset token", "admin_id", auth.ID, "err", err)
		}
		return ErrResetInvalid
	}

	hash, err := s.pw.Hash(newPassword)
	if err != nil {
		return err
	}
	// UpdatePassword clears the reset slot in the same statement.
	if err := s.admins.UpdatePassword(ctx, auth.ID, hash, now); err != nil {
		return err
	}

	if n, err := s.sessions.RevokeAll(ctx, auth.ID); err != nil {
		s.log.Warn("revoke sessions after reset", "admin_id", auth.ID, "err", err)
	} else if n > 0 {
		s.log.Info("revoked sessions after password reset", "admin_id", auth.ID, "count", n)
	}
	return nil
}

// ChangePassword replaces the password of a logged-in administrator after
// re-verifying the current one, then revokes every other session.
func (s *Service) ChangePassword(ctx context.Context, now time.Time, adminID, currentPassword, newPassword, currentSessionToken string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrMissingInput
	}

	auth, err := s.admins.GetAuthByID(ctx, adminID)
	if err != nil {
		return err
	}

	ok, err := s.pw.Verify(auth.PasswordHash, currentPassword)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.pw.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.admins.UpdatePassword(ctx, adminID, hash, now); err != nil {
		return err
	}

	if n, err := s.sessions.RevokeOthers(ctx, adminID, currentSessionToken); err != nil {
		s.log.Warn("revoke other sessions after password change", "admin_id", adminID, "err", err)
	} else if n > 0 {
		s.log.Info("revoked other sessions after password change", "admin_id", adminID, "count", n)
	}
	return nil
}

// randomDelay sleeps a uniform random duration in [DelayMin, DelayMax].
// DelayMax = 0 disables it. The sleep honors context cancellation.
func (s *Service) randomDelay(ctx context.Context) {
	if s.cfg.DelayMax <= 0 {
		return
	}
	span := s.cfg.DelayMax - s.cfg.DelayMin
	d := s.cfg.DelayMin
	if span > 0 {
		d += time.Duration(mathrand.Int64N(int64(span) + 1))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
