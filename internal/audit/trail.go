package audit

import (
	"context"
	"sync"
)

// Trail collects the parts of an activity entry only a handler knows.
// The audit middleware installs one per request and reads it afterwards.
type Trail struct {
	mu     sync.Mutex
	user   string
	reason string
	size   int
	sized  bool
}

type trailKey struct{}

func WithTrail(ctx context.Context, t *Trail) context.Context {
	return context.WithValue(ctx, trailKey{}, t)
}

// FromContext returns the request's trail, or a detached one.
func FromContext(ctx context.Context) *Trail {
	if t, ok := ctx.Value(trailKey{}).(*Trail); ok {
		return t
	}
	return &Trail{}
}

func (t *Trail) SetUser(user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.user = user
}

func (t *Trail) SetReason(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reason = reason
}

// SetSize overrides the logged size, which otherwise is the response length.
func (t *Trail) SetSize(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.size = n
	t.sized = true
}

// Values returns user, reason and the size override if one was set.
func (t *Trail) Values() (user, reason string, size int, sized bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.user, t.reason, t.size, t.sized
}
