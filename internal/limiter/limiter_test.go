package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/blob/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestLimiter() (*FixedWindowLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := NewFixedWindowLimiter(memory.New(), 0, 0)
	l.now = clock.Now
	return l, clock
}

func TestAllow_SixteenthRequestLimited(t *testing.T) {
	l, clock := newTestLimiter()
	ctx := context.Background()

	for i := 1; i <= DefaultLimit; i++ {
		clock.t = clock.t.Add(time.Second)
		if ok, err := l.Allow(ctx, "203.0.113.5", "alice"); !ok || err != nil {
			t.Fatalf("request %d should pass, got ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := l.Allow(ctx, "203.0.113.5", "alice")
	if ok || !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("16th request: expected ErrRateLimitExceeded, got ok=%v err=%v", ok, err)
	}

	clock.t = clock.t.Add(DefaultWindow)
	if ok, err := l.Allow(ctx, "203.0.113.5", "alice"); !ok || err != nil {
		t.Errorf("counter did not reset after window: ok=%v err=%v", ok, err)
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < DefaultLimit; i++ {
		l.Allow(ctx, "198.51.100.1", LoginTag("bob"))
	}
	if ok, _ := l.Allow(ctx, "198.51.100.1", LoginTag("bob")); ok {
		t.Error("login tag should be exhausted")
	}
	if ok, _ := l.Allow(ctx, "198.51.100.1", "bob"); !ok {
		t.Error("write tag shares the login counter")
	}
	if ok, _ := l.Allow(ctx, "198.51.100.2", LoginTag("bob")); !ok {
		t.Error("other ip shares the counter")
	}
}

func TestStateKey(t *testing.T) {
	for _, tc := range []struct {
		ip, tag, want string
	}{
		{"1.2.3.4", "alice", "ratelimit/1.2.3.4/alice.json"},
		{"1.2.3.4", "login/alice", "ratelimit/1.2.3.4/login/alice.json"},
		{"", "", "ratelimit/unknown/anon.json"},
		{"1.2.3.4", "login/..", "ratelimit/1.2.3.4/login/_...json"},
		{"::1", "a b", "ratelimit/::1/a%20b.json"},
	} {
		if got := stateKey(tc.ip, tc.tag); got != tc.want {
			t.Errorf("stateKey(%q, %q) = %q, want %q", tc.ip, tc.tag, got, tc.want)
		}
	}
}
