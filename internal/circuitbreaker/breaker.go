package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/blob"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

type State int

const (
	StateClosed   State = 0
	StateOpen     State = 1
	StateHalfOpen State = 2
)

// Blob keys:
// circuit/{service}.json -> {"failures": n, "open_until": unix ms}
type persisted struct {
	Failures  int64 `json:"failures"`
	OpenUntil int64 `json:"open_until"`
}

// CircuitBreaker trips after failureThreshold consecutive failures and
// rejects calls for timeout. State lives in the blob store so every
// instance sees the same breaker.
type CircuitBreaker struct {
	blobs            blob.Store
	failureThreshold int64
	timeout          time.Duration
	now              func() time.Time
}

func New(blobs blob.Store, failureThreshold int64, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		blobs:            blobs,
		failureThreshold: failureThreshold,
		timeout:          timeout,
		now:              time.Now,
	}
}

func stateKey(serviceName string) string {
	return "circuit/" + serviceName + ".json"
}

// State reports the breaker state. An elapsed open period reads as half-open:
// the next call is let through and decides whether the breaker closes.
func (cb *CircuitBreaker) State(ctx context.Context, serviceName string) (State, error) {
	var st persisted
	if _, err := blob.GetJSON(ctx, cb.blobs, stateKey(serviceName), &st); err != nil {
		return StateClosed, err
	}
	switch {
	case st.OpenUntil == 0:
		return StateClosed, nil
	case cb.now().UnixMilli() < st.OpenUntil:
		return StateOpen, nil
	default:
		return StateHalfOpen, nil
	}
}

// Execute runs action unless the breaker is open. Store errors never block
// the action.
func (cb *CircuitBreaker) Execute(ctx context.Context, serviceName string, action func() error) error {
	key := stateKey(serviceName)

	var st persisted
	_, _ = blob.GetJSON(ctx, cb.blobs, key, &st)
	if st.OpenUntil != 0 && cb.now().UnixMilli() < st.OpenUntil {
		return ErrCircuitOpen
	}
	halfOpen := st.OpenUntil != 0

	opErr := action()

	if opErr != nil {
		// Failure
		st.Failures++
		if halfOpen || st.Failures >= cb.failureThreshold {
			// Trip Breaker
			st = persisted{OpenUntil: cb.now().Add(cb.timeout).UnixMilli()}
		}
		_ = blob.PutJSON(ctx, cb.blobs, key, st)
		return opErr
	}

	// Consecutive failures only: any success closes the breaker.
	if st.Failures != 0 || st.OpenUntil != 0 {
		_ = blob.PutJSON(ctx, cb.blobs, key, persisted{})
	}
	return nil
}
