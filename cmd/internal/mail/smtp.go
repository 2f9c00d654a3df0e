package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPMailer delivers authentication mail over SMTP. It satisfies the login
// package's Mailer port.
type SMTPMailer struct {
	cfg Config
	log *slog.Logger
}

// NewSMTPMailer constructs a mailer from the given configuration.
func NewSMTPMailer(cfg Config, log *slog.Logger) *SMTPMailer {
	if log == nil {
		log = slog.Default()
	}
	return &SMTPMailer{cfg: cfg, log: log}
}

// SendOTP emails the one-time login code. The code itself is never logged.
func (m *SMTPMailer) SendOTP(ctx context.Context, email, username, code string) error {
	subject := "Your back office login code"
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your one-time login code is:\n\n"+
			"    %s\n\n"+
			"The code expires in a few minutes and can be used once. If you did\n"+
			"not try to log in, change your password immediately.\n",
		username, code,
	)
	return m.send(ctx, email, subject, body)
}

// SendPasswordReset emails a password reset link.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, username, token string) error {
	link := token
	if m.cfg.ResetURLBase != "" {
		link = m.cfg.ResetURLBase + "?token=" + token
	}
	subject := "Back office password reset"
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"A password reset was requested for your account. Use the link below\n"+
			"to choose a new password:\n\n"+
			"    %s\n\n"+
			"The link expires shortly and can be used once. If you did not\n"+
			"request a reset, you can ignore this message.\n",
		username, link,
	)
	return m.send(ctx, email, subject, body)
}

// send delivers one message with bounded retries and linear backoff, capped.
func (m *SMTPMailer) send(ctx context.Context, recipient, subject, body string) error {
	var lastErr error

	for attempt := 1; attempt <= m.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * time.Second
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := m.deliver(ctx, recipient, subject, body)
		if err == nil {
			if attempt > 1 {
				m.log.Info("mail delivered after retry", "attempts", attempt)
			}
			return nil
		}

		lastErr = err
		m.log.Warn("mail delivery attempt failed", "attempt", attempt, "err", err)

		if !retryable(err) {
			break
		}
	}

	return lastErr
}

// deliver performs one SMTP transaction.
func (m *SMTPMailer) deliver(ctx context.Context, recipient, subject, body string) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))

	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout))
	}

	if m.cfg.UseTLS {
		conn = tls.Client(conn, &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12})
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !m.cfg.UseTLS && m.cfg.UseStartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.FromAddress); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data stream: %w", err)
	}
	if _, err := wc.Write([]byte(m.buildMessage(recipient, subject, body))); err != nil {
		wc.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close data stream: %w", err)
	}

	return client.Quit()
}

func (m *SMTPMailer) buildMessage(to, subject, body string) string {
	var b strings.Builder

	from := m.cfg.FromAddress
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)
	}

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return b.String()
}

// retryable classifies transient transport failures. Authentication and
// policy rejections are final.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"auth", "unauthorized", "5.7."} {
		if strings.Contains(msg, s) {
			return false
		}
	}
	for _, s := range []string{"connection refused", "connection reset", "timeout", "temporar", "no such host", "4."} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return true
}
