package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/blob/memory"
	"github.com/raakeshmj/coreenginedb/internal/circuitbreaker"
)

func TestCreateCheckoutSession(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		got = r
		w.Write([]byte(`{"id":"cs_1","url":"https://checkout.example/cs_1"}`))
	}))
	defer srv.Close()

	c := NewClient("sk_test", srv.URL, nil)
	u, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Username: "alice",
		Amount:   12.5,
		Kind:     "bucket",
		Origin:   "https://site.example",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession failed: %v", err)
	}
	if u != "https://checkout.example/cs_1" {
		t.Errorf("unexpected url %q", u)
	}

	if got.URL.Path != "/v1/checkout/sessions" || got.Header.Get("Authorization") != "Bearer sk_test" {
		t.Errorf("unexpected request %s %v", got.URL.Path, got.Header)
	}
	for _, tc := range [][2]string{
		{"mode", "payment"},
		{"line_items[0][price_data][unit_amount]", "1250"},
		{"line_items[0][price_data][product_data][name]", "Top-up bucket"},
		{"metadata[username]", "alice"},
		{"metadata[amount]", "12.5"},
		{"metadata[kind]", "bucket"},
		{"success_url", "https://site.example/dashboard.html?payment=success"},
	} {
		if v := got.PostForm.Get(tc[0]); v != tc[1] {
			t.Errorf("%s = %q, want %q", tc[0], v, tc[1])
		}
	}
}

func TestCheckoutParams_PriceID(t *testing.T) {
	params := checkoutParams(CheckoutRequest{Username: "a", Amount: 5, Kind: "case", PriceID: "price_123", Origin: "https://o/"})
	if len(params.LineItems) != 1 {
		t.Fatalf("expected one line item, got %d", len(params.LineItems))
	}
	item := params.LineItems[0]
	if item.Price == nil || *item.Price != "price_123" {
		t.Errorf("price id missing: %+v", item)
	}
	if item.PriceData != nil {
		t.Error("ad-hoc price sent alongside price id")
	}
	if *params.CancelURL != "https://o/dashboard.html?payment=cancel" {
		t.Errorf("cancel url %q", *params.CancelURL)
	}
	if params.Metadata["kind"] != "case" || params.Metadata["username"] != "a" {
		t.Errorf("metadata %v", params.Metadata)
	}
}

func TestCreateCheckoutSession_Errors(t *testing.T) {
	if _, err := NewClient("", "", nil).CreateCheckoutSession(context.Background(), CheckoutRequest{}); err != ErrNotConfigured {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cb := circuitbreaker.New(memory.New(), 1, time.Minute)
	c := NewClient("sk", srv.URL, cb)
	if _, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{Amount: 1}); !errors.Is(err, ErrProvider) {
		t.Errorf("Expected ErrProvider, got %v", err)
	}
	// Breaker is now open; the provider is not called again.
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{Amount: 1})
	if !errors.Is(err, ErrProvider) {
		t.Errorf("Expected ErrProvider while open, got %v", err)
	}
}
