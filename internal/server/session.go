package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/auth"
	"github.com/raakeshmj/coreenginedb/internal/middleware"
	"github.com/raakeshmj/coreenginedb/internal/service"
)

// HeaderAdminToken carries the static token for superadmin rotation.
const HeaderAdminToken = "X-Admin-Token"

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return service.ErrBadRequest
	}
	return nil
}

func sessionCookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err, "login_error")
		return
	}
	trail := audit.FromContext(r.Context())
	trail.SetUser(req.Username)

	role, err := s.auth.Login(r.Context(), service.ClientIP(r), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err, "login_error")
		return
	}
	token, err := s.auth.IssueSession(req.Username, role)
	if err != nil {
		s.fail(w, r, err, "login_error")
		return
	}
	http.SetCookie(w, sessionCookie(token, int(s.auth.Sessions().TTL().Seconds())))
	writeOK(w, r, nil, "login_ok")
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.auth.Session(r)
	if !ok {
		middleware.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	audit.FromContext(r.Context()).SetUser(sess.User)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "role": sess.Role})
}

// handleLogout expires the cookie. The token itself stays valid until its
// expiry; there is no server-side session list.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, sessionCookie("", -1))
	audit.FromContext(r.Context()).SetReason("logout")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err, "reset_error")
		return
	}
	doc, err := s.auth.ResetPassword(r.Context(), service.ClientIP(r), req.Username, req.Code, req.NewPassword)
	if err != nil {
		s.fail(w, r, err, "reset_error")
		return
	}
	audit.FromContext(r.Context()).SetUser(req.Username)
	writeOK(w, r, doc, "reset")
}

// handleSuperadmin rotates the superadmin password. It is gated by the
// static admin token rather than by a user identity.
func (s *Server) handleSuperadmin(w http.ResponseWriter, r *http.Request) {
	if !auth.ConstantTimeEqual(r.Header.Get(HeaderAdminToken), s.cfg.AdminToken) {
		middleware.WriteError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err, "superadmin_error")
		return
	}
	doc, err := s.auth.SetSuperadminPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err, "superadmin_error")
		return
	}
	writeOK(w, r, doc, "superadmin_set")
}
