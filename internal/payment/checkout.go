// Package payment creates hosted checkout sessions with the payment provider.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/raakeshmj/coreenginedb/internal/circuitbreaker"
)

var (
	ErrNotConfigured = errors.New("stripe_not_configured")
	ErrProvider      = errors.New("stripe_error")
)

const (
	DefaultAPIBase = "https://api.stripe.com"
	breakerService = "stripe"
)

// Top-up kinds with configurable price ids.
var Kinds = []string{"bottle", "bucket", "case"}

// CheckoutRequest describes one wallet top-up.
type CheckoutRequest struct {
	Username string
	Amount   float64
	Kind     string
	// PriceID selects a configured price; when empty an ad-hoc price is
	// built from Amount.
	PriceID string
	// Origin is the site the provider redirects back to.
	Origin string
}

type Client struct {
	sessions session.Client
	breaker  *circuitbreaker.CircuitBreaker
}

// NewClient returns a checkout client for the API at apiBase. breaker may
// be nil.
func NewClient(secret, apiBase string, breaker *circuitbreaker.CircuitBreaker) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(strings.TrimRight(apiBase, "/")),
		HTTPClient:        &http.Client{Timeout: 15 * time.Second},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return &Client{
		sessions: session.Client{B: backend, Key: secret},
		breaker:  breaker,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.sessions.Key != ""
}

// CreateCheckoutSession creates a checkout session and returns the hosted
// payment page URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	params := checkoutParams(req)
	params.Context = ctx

	var cs *stripe.CheckoutSession
	call := func() error {
		var err error
		cs, err = c.sessions.New(params)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProvider, err)
		}
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, breakerService, call)
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			err = fmt.Errorf("%w: %v", ErrProvider, err)
		}
	} else {
		err = call()
	}
	if err != nil {
		return "", err
	}
	return cs.URL, nil
}

func checkoutParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	origin := strings.TrimRight(req.Origin, "/")
	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if req.PriceID != "" {
		item.Price = stripe.String(req.PriceID)
	} else {
		name := "Wallet Top-up"
		if req.Kind != "" {
			name = "Top-up " + req.Kind
		}
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(string(stripe.CurrencyUSD)),
			UnitAmount:  stripe.Int64(int64(math.Round(req.Amount * 100))),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(name)},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(origin + "/dashboard.html?payment=success"),
		CancelURL:          stripe.String(origin + "/dashboard.html?payment=cancel"),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{item},
	}
	params.AddMetadata("username", req.Username)
	params.AddMetadata("amount", strconv.FormatFloat(req.Amount, 'f', -1, 64))
	if req.Kind != "" {
		params.AddMetadata("kind", req.Kind)
	}
	return params
}
