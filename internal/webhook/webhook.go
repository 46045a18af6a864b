// Package webhook verifies payment provider callbacks and credits wallets.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/raakeshmj/coreenginedb/internal/auth"
)

// SignatureHeader carries "t=<timestamp>,v1=<hex hmac>".
const SignatureHeader = "Stripe-Signature"

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrMissingFields    = errors.New("missing_fields")
	ErrUserNotFound     = errors.New("user_not_found")
)

// Signature is a parsed signature header. A header may carry several v1
// values while the provider rotates secrets.
type Signature struct {
	Timestamp string
	V1        []string
}

// ParseSignature splits a signature header into its timestamp and v1 parts.
// Unknown schemes are ignored.
func ParseSignature(header string) Signature {
	var sig Signature
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			sig.Timestamp = v
		case "v1":
			if v != "" {
				sig.V1 = append(sig.V1, v)
			}
		}
	}
	return sig
}

type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify recomputes HMAC-SHA256(secret, t + "." + body) and compares it to
// each v1 value in constant time. An unset secret rejects everything.
func (v *Verifier) Verify(body []byte, header string) error {
	if v.secret == "" {
		return ErrInvalidSignature
	}
	sig := ParseSignature(header)
	if sig.Timestamp == "" || len(sig.V1) == 0 {
		return ErrInvalidSignature
	}
	expected, err := auth.HMACHex(v.secret, sig.Timestamp+"."+string(body))
	if err != nil {
		return ErrInvalidSignature
	}
	for _, candidate := range sig.V1 {
		if auth.ConstantTimeEqual(expected, strings.ToLower(candidate)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Event is the part of a checkout event needed to credit a wallet.
type Event struct {
	Username string
	// AmountCents is the credited amount in minor units.
	AmountCents int64
}

// Amount is the credited amount in major units.
func (e Event) Amount() float64 {
	return float64(e.AmountCents) / 100
}

type payload struct {
	Data struct {
		Object struct {
			Metadata struct {
				Username string `json:"username"`
			} `json:"metadata"`
			AmountTotal *json.Number `json:"amount_total"`
			Amount      *json.Number `json:"amount"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent extracts the username from data.object.metadata and the
// amount from amount_total, falling back to amount.
func ParseEvent(body []byte) (Event, error) {
	var p payload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return Event{}, ErrMissingFields
	}
	obj := p.Data.Object

	raw := obj.AmountTotal
	if raw == nil {
		raw = obj.Amount
	}
	var cents int64
	if raw != nil {
		if f, err := raw.Float64(); err == nil {
			cents = int64(math.Round(f))
		}
	}
	if obj.Metadata.Username == "" || cents <= 0 {
		return Event{}, ErrMissingFields
	}
	return Event{Username: obj.Metadata.Username, AmountCents: cents}, nil
}
