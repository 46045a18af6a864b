package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/middleware"
	"github.com/raakeshmj/coreenginedb/internal/payment"
	"github.com/raakeshmj/coreenginedb/internal/service"
	"github.com/raakeshmj/coreenginedb/internal/webhook"
)

// numberOf reads a JSON number that may also arrive as a numeric string.
func numberOf(n json.Number) float64 {
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func (s *Server) handleTopup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   json.Number `json:"amount"`
		Username string      `json:"username"`
		Kind     string      `json:"kind"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err, "topup_error")
		return
	}
	if !s.payments.Configured() {
		s.fail(w, r, payment.ErrNotConfigured, "topup_error")
		return
	}
	amount := numberOf(req.Amount)
	if amount <= 0 || req.Username == "" {
		s.fail(w, r, service.ErrBadRequest, "topup_error")
		return
	}

	cfg, err := s.docs.Config(r.Context())
	if err != nil {
		s.fail(w, r, err, "topup_error")
		return
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = s.cfg.DefaultOrigin
	}
	url, err := s.payments.CreateCheckoutSession(r.Context(), payment.CheckoutRequest{
		Username: req.Username,
		Amount:   amount,
		Kind:     req.Kind,
		PriceID:  cfg.Stripe.Prices[req.Kind],
		Origin:   origin,
	})
	if err != nil {
		s.fail(w, r, err, "topup_error")
		return
	}
	audit.FromContext(r.Context()).SetReason("topup_init")
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "url": url})
}

func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostID json.Number `json:"postId"`
		Amount json.Number `json:"amount"`
		Kind   string      `json:"kind"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err, "donate_error")
		return
	}
	postID := int64(numberOf(req.PostID))
	amount := numberOf(req.Amount)
	if postID <= 0 || amount <= 0 {
		s.fail(w, r, service.ErrBadRequest, "donate_error")
		return
	}

	id := middleware.IdentityFromContext(r.Context())
	doc, err := s.wallet.Donate(r.Context(), id.User, postID, req.Kind)
	if err != nil {
		s.fail(w, r, err, "donate_error")
		return
	}
	audit.FromContext(r.Context()).SetSize(int(amount))
	writeOK(w, r, doc, "donate")
}

// handleWebhook credits a wallet from a signed checkout event. It needs no
// caller identity; the signature is the credential.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, r, err, "webhook_error")
		return
	}
	trail := audit.FromContext(r.Context())
	trail.SetSize(len(body))

	if err := s.verifier.Verify(body, r.Header.Get(webhook.SignatureHeader)); err != nil {
		s.fail(w, r, webhook.ErrInvalidSignature, "webhook_error")
		return
	}
	ev, err := webhook.ParseEvent(body)
	if err != nil {
		s.fail(w, r, err, "webhook_error")
		return
	}
	credit, err := s.crediter.Apply(r.Context(), ev)
	if err != nil {
		s.fail(w, r, err, "webhook_error")
		return
	}
	trail.SetUser(ev.Username)
	writeOK(w, r, credit.Doc, "webhook_ok")
}
