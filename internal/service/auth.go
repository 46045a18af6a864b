package service

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/auth"
	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/limiter"
	"github.com/raakeshmj/coreenginedb/internal/model"
	"github.com/raakeshmj/coreenginedb/internal/reliability"
)

// Reason codes reported to callers. They intentionally do not reveal
// which credential check failed.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadCredentials = errors.New("bad_credentials")
	ErrRateLimited    = errors.New("rate_limited")
	ErrForbidden      = errors.New("forbidden")
	ErrUserNotFound   = errors.New("user_not_found")
	ErrInvalidCode    = errors.New("invalid_code")
	ErrBadRequest     = errors.New("bad_request")
)

const (
	HeaderAPIKey = "X-API-Key"
	HeaderCSRF   = "X-CSRF-Token"

	// Synthetic identities.
	UserDisabled = "disabled"
	UserAPIKey   = "apikey"
	UserBearer   = "bearer"
)

// RateLimiter counts attempts per (ip, tag).
type RateLimiter interface {
	Allow(ctx context.Context, ip, tag string) (bool, error)
}

type AuthService struct {
	docs     *docstore.Store
	sessions *auth.SessionManager
	limiter  RateLimiter
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(docs *docstore.Store, sessions *auth.SessionManager, l RateLimiter, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		docs:     docs,
		sessions: sessions,
		limiter:  l,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AuthService) Sessions() *auth.SessionManager {
	return s.sessions
}

// Resolve identifies the caller. The first matching credential wins:
// session cookie, disabled auth policy, API key, configured Basic user,
// then the first-user and superadmin records in db.json.
func (s *AuthService) Resolve(ctx context.Context, r *http.Request) auth.Identity {
	if sess := s.sessionFromCookie(r); sess != nil {
		return auth.Identity{Authenticated: true, User: sess.User, Role: sess.Role}
	}

	cfg, err := s.docs.Config(ctx)
	if err != nil {
		s.logger.Warn("read config for auth failed", "error", err)
		return auth.Identity{Reason: ErrUnauthorized.Error()}
	}
	if cfg.Auth.Disabled() {
		return auth.Identity{Authenticated: true, User: UserDisabled, Role: auth.RoleUser}
	}

	if key := r.Header.Get(HeaderAPIKey); key != "" && containsKey(cfg.APIKeys, key) {
		return auth.Identity{Authenticated: true, User: UserAPIKey, Role: auth.RoleUser}
	}
	authz := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok && containsKey(cfg.APIKeys, strings.TrimSpace(token)) {
		return auth.Identity{Authenticated: true, User: UserBearer, Role: auth.RoleUser}
	}

	user, pass, ok := ParseBasic(authz)
	if !ok || user == "" {
		return auth.Identity{Reason: ErrUnauthorized.Error()}
	}

	if cu := findConfigUser(cfg.Auth, user); cu != nil && cu.Hash != "" {
		if configUserHash(cfg.Auth, *cu).Check(pass) {
			return auth.Identity{Authenticated: true, User: user, Role: auth.RoleUser}
		}
		return s.rejectBasic(ctx, r, user)
	}

	rs, _, err := s.docs.Records(ctx)
	if err == nil {
		if role, ok := matchRecords(rs, user, pass, true); ok {
			return auth.Identity{Authenticated: true, User: user, Role: role}
		}
	}
	return s.rejectBasic(ctx, r, user)
}

// rejectBasic counts a failed Basic attempt against the user's login tag.
func (s *AuthService) rejectBasic(ctx context.Context, r *http.Request, user string) auth.Identity {
	if err := s.allow(ctx, ClientIP(r), limiter.LoginTag(user)); err != nil {
		return auth.Identity{User: user, Reason: ErrRateLimited.Error()}
	}
	return auth.Identity{User: user, Reason: ErrBadCredentials.Error()}
}

// Allow applies the write rate limit for tag. Limiter failures let the
// request through.
func (s *AuthService) Allow(ctx context.Context, r *http.Request, tag string) error {
	return s.allow(ctx, ClientIP(r), tag)
}

func (s *AuthService) allow(ctx context.Context, ip, tag string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, ip, tag)
	if errors.Is(err, limiter.ErrRateLimitExceeded) || (err == nil && !allowed) {
		return ErrRateLimited
	}
	if err != nil {
		dep := reliability.WriteLimiter
		if strings.HasPrefix(tag, "login/") {
			dep = reliability.LoginLimiter
		}
		if reliability.Allow(dep, err) {
			s.logger.Warn("rate limiter error (fail open)", "tag", tag, "error", err)
			return nil
		}
		return ErrRateLimited
	}
	return nil
}

// CheckCSRF requires a non-empty CSRF header on browser requests. Requests
// carrying an Authorization header are exempt.
func (s *AuthService) CheckCSRF(r *http.Request) error {
	if r.Header.Get("Authorization") != "" {
		return nil
	}
	if strings.TrimSpace(r.Header.Get(HeaderCSRF)) == "" {
		return ErrForbidden
	}
	return nil
}

// Login verifies a username and password and returns the role to put in
// the session. The superadmin record is checked first, then any app user
// with a password_hash or legacy plain password, then configured users.
func (s *AuthService) Login(ctx context.Context, ip, user, pass string) (string, error) {
	if user == "" || pass == "" {
		return "", ErrBadRequest
	}
	if err := s.allow(ctx, ip, limiter.LoginTag(user)); err != nil {
		return "", err
	}

	rs, _, err := s.docs.Records(ctx)
	if err != nil {
		return "", err
	}
	if role, ok := matchRecords(rs, user, pass, false); ok {
		return role, nil
	}

	cfg, err := s.docs.Config(ctx)
	if err != nil {
		return "", err
	}
	if cu := findConfigUser(cfg.Auth, user); cu != nil && configUserHash(cfg.Auth, *cu).Check(pass) {
		return auth.RoleUser, nil
	}
	return "", ErrBadCredentials
}

// IssueSession signs a session token for user.
func (s *AuthService) IssueSession(user, role string) (string, error) {
	return s.sessions.Issue(user, role)
}

// Session returns the verified session carried by the request cookie.
func (s *AuthService) Session(r *http.Request) (*auth.Session, bool) {
	sess := s.sessionFromCookie(r)
	return sess, sess != nil
}

func (s *AuthService) sessionFromCookie(r *http.Request) *auth.Session {
	if s.sessions == nil {
		return nil
	}
	c, err := r.Cookie(auth.SessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	token, err := url.PathUnescape(c.Value)
	if err != nil {
		return nil
	}
	sess, err := s.sessions.Verify(token)
	if err != nil {
		return nil
	}
	return sess
}

// ParseBasic decodes an "Authorization: Basic" header. The password is
// everything after the first colon.
func ParseBasic(header string) (user, pass string, ok bool) {
	encoded, found := strings.CutPrefix(header, "Basic ")
	if !found {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}
	user, pass, _ = strings.Cut(string(raw), ":")
	return user, pass, true
}

// ClientIP prefers the proxy-supplied client address over the socket peer.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func containsKey(keys []string, candidate string) bool {
	found := false
	for _, k := range keys {
		if auth.ConstantTimeEqual(k, candidate) {
			found = true
		}
	}
	return found
}

func findConfigUser(p model.AuthPolicy, user string) *model.ConfigUser {
	for i := range p.Users {
		if p.Users[i].Username == user {
			return &p.Users[i]
		}
	}
	return nil
}

func configUserHash(p model.AuthPolicy, u model.ConfigUser) auth.PasswordHash {
	ph := auth.PasswordHash{Salt: u.Salt, Iterations: u.Iterations, Hash: u.Hash}
	if ph.Salt == "" {
		ph.Salt = p.Salt
	}
	if ph.Salt == "" {
		ph.Salt = auth.DefaultSalt
	}
	if ph.Iterations <= 0 {
		ph.Iterations = p.Iterations
	}
	if ph.Iterations <= 0 {
		ph.Iterations = auth.DefaultIterations
	}
	return ph
}
