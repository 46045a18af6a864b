package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "cedb_session"

// Session is the signed payload. There is no server-side session table:
// a token stays valid until Exp even after logout.
type Session struct {
	User string           `json:"u"`
	Role string           `json:"role"`
	Exp  *jwt.NumericDate `json:"exp"`
}

// SessionManager issues and verifies tokens of the form
// base64(payload) + "." + hex(HMAC-SHA256(secret, payload)).
type SessionManager struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: secret, ttl: ttl, now: time.Now}
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

func (m *SessionManager) Issue(user, role string) (string, error) {
	if role == "" {
		role = RoleUser
	}
	payload, err := json.Marshal(Session{
		User: user,
		Role: role,
		Exp:  jwt.NewNumericDate(m.now().Add(m.ttl)),
	})
	if err != nil {
		return "", err
	}
	sig, err := HMACHex(m.secret, string(payload))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload) + "." + sig, nil
}

func (m *SessionManager) Verify(token string) (*Session, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" || strings.Contains(sig, ".") {
		return nil, ErrInvalidToken
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := VerifyHMACHex(m.secret, string(payload), sig); err != nil {
		return nil, ErrInvalidToken
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil || s.User == "" {
		return nil, ErrInvalidToken
	}
	if s.Exp == nil || m.now().After(s.Exp.Time) {
		return nil, ErrExpiredToken
	}
	if s.Role == "" {
		s.Role = RoleUser
	}
	return &s, nil
}
