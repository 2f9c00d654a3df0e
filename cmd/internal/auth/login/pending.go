package login

import (
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Pending marks that password verification succeeded and a one-time-code
// challenge is outstanding. It is carried by the caller (PASETO v4.local
// cookie), never stored server-side; its real validity is delegated to the
// OTP expiry on the administrator row, not to the marker's own age.
type Pending struct {
	AdminID     string
	Username    string
	RequestedAt time.Time
}

// Zero reports whether no pending login is present.
func (p Pending) Zero() bool { return p.AdminID == "" }

// PendingCodec encrypts and decrypts the Pending marker as a PASETO
// v4.local token suitable for a cookie value.
type PendingCodec struct {
	key paseto.V4SymmetricKey
}

// NewPendingCodec builds a codec from the configured hex key.
func NewPendingCodec(cfg Config) (*PendingCodec, error) {
	key, err := paseto.V4SymmetricKeyFromHex(cfg.PendingKeyHex)
	if err != nil {
		return nil, ErrConfig
	}
	return &PendingCodec{key: key}, nil
}

// Encode wraps the Pending marker in an encrypted token. exp mirrors the OTP
// expiry for cookie hygiene; the administrator row stays the source of truth.
func (c *PendingCodec) Encode(p Pending, now, exp time.Time) (string, error) {
	tok := paseto.NewToken()
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	_ = tok.Set("aid", p.AdminID)
	_ = tok.Set("usr", p.Username)
	_ = tok.Set("req", p.RequestedAt.UTC().Format(time.RFC3339Nano))

	return tok.V4Encrypt(c.key, nil), nil
}

// Decode parses a pending token. Any failure (malformed, tampered, expired)
// maps to ErrNoPendingLogin: the caller restarts from credentials.
func (c *PendingCodec) Decode(raw string, now time.Time) (Pending, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 4096 {
		return Pending{}, ErrNoPendingLogin
	}

	p := paseto.NewParser()
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(now))

	parsed, err := p.ParseV4Local(c.key, raw, nil)
	if err != nil {
		return Pending{}, ErrNoPendingLogin
	}

	aid, err := parsed.GetString("aid")
	if err != nil || aid == "" {
		return Pending{}, ErrNoPendingLogin
	}
	usr, err := parsed.GetString("usr")
	if err != nil {
		return Pending{}, ErrNoPendingLogin
	}
	reqRaw, err := parsed.GetString("req")
	if err != nil {
		return Pending{}, ErrNoPendingLogin
	}
	req, err := time.Parse(time.RFC3339Nano, reqRaw)
	if err != nil {
		return Pending{}, ErrNoPendingLogin
	}

	return Pending{AdminID: aid, Username: usr, RequestedAt: req}, nil
}
