package reliability

import (
	"errors"
	"testing"
)

func TestShouldAllow(t *testing.T) {
	boom := errors.New("store unavailable")
	tests := []struct {
		name     string
		strategy FailureStrategy
		err      error
		want     bool
	}{
		{"NoErrorOpen", FailOpen, nil, true},
		{"NoErrorClosed", FailClosed, nil, true},
		{"ErrorOpen", FailOpen, boom, true},
		{"ErrorClosed", FailClosed, boom, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAllow(tt.strategy, tt.err); got != tt.want {
				t.Errorf("ShouldAllow(%s, %v) = %v, want %v", tt.strategy, tt.err, got, tt.want)
			}
		})
	}
}

func TestAllow_PerDependency(t *testing.T) {
	boom := errors.New("store unavailable")
	if !Allow(WriteLimiter, boom) || !Allow(LoginLimiter, boom) {
		t.Error("limiters should fail open")
	}
	if Allow(Dependency("unknown"), boom) {
		t.Error("unlisted dependencies should fail closed")
	}
	if StrategyFor(Dependency("unknown")) != FailClosed {
		t.Error("expected fail_closed default")
	}
}
