// Package limiter counts requests per (ip, purpose) in fixed windows kept
// in the blob store.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/blob"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

const (
	DefaultWindow = 60 * time.Second
	DefaultLimit  = 15
)

// LoginTag is the purpose tag for credential attempts by user.
func LoginTag(user string) string {
	return "login/" + user
}

// FixedWindowLimiter allows Limit requests per Window for each key. The
// counter is read, incremented and written back without a lock, so a few
// concurrent requests from one key may slip past the limit.
type FixedWindowLimiter struct {
	blobs  blob.Store
	window time.Duration
	limit  int
	now    func() time.Time
}

func NewFixedWindowLimiter(blobs blob.Store, window time.Duration, limit int) *FixedWindowLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &FixedWindowLimiter{blobs: blobs, window: window, limit: limit, now: time.Now}
}

// Allow records one request for (ip, tag). It returns false and
// ErrRateLimitExceeded once the window's count passes the limit. Store
// errors are returned with allowed=false; callers choose whether to fail open.
func (l *FixedWindowLimiter) Allow(ctx context.Context, ip, tag string) (bool, error) {
	key := stateKey(ip, tag)
	now := l.now().UnixMilli()

	var st model.RateState
	if _, err := blob.GetJSON(ctx, l.blobs, key, &st); err != nil {
		return false, fmt.Errorf("read rate state: %w", err)
	}
	if st.TS == 0 || now-st.TS >= l.window.Milliseconds() {
		st = model.RateState{TS: now}
	}
	st.Count++

	if err := blob.PutJSON(ctx, l.blobs, key, st); err != nil {
		return false, fmt.Errorf("write rate state: %w", err)
	}
	if st.Count > l.limit {
		return false, ErrRateLimitExceeded
	}
	return true, nil
}

func stateKey(ip, tag string) string {
	if ip == "" {
		ip = "unknown"
	}
	if tag == "" {
		tag = "anon"
	}
	parts := strings.Split(tag, "/")
	for i, p := range parts {
		parts[i] = escapeSegment(p)
	}
	return "ratelimit/" + escapeSegment(ip) + "/" + strings.Join(parts, "/") + ".json"
}

// escapeSegment keeps a caller-controlled value inside one key segment.
func escapeSegment(s string) string {
	s = url.PathEscape(s)
	if s == "" || s == "." || s == ".." {
		return "_" + s
	}
	return s
}
