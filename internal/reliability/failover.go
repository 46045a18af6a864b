package reliability

// FailureStrategy decides whether a request proceeds when a store-backed
// helper on its path returns an error.
type FailureStrategy string

const (
	FailOpen   FailureStrategy = "fail_open"
	FailClosed FailureStrategy = "fail_closed"
)

// Dependency names a helper consulted while serving a request.
type Dependency string

const (
	WriteLimiter Dependency = "write_limiter"
	LoginLimiter Dependency = "login_limiter"
)

// Both limiters fail open. Anything unlisted fails closed.
var strategies = map[Dependency]FailureStrategy{
	WriteLimiter: FailOpen,
	LoginLimiter: FailOpen,
}

// StrategyFor returns the configured strategy for dep.
func StrategyFor(dep Dependency) FailureStrategy {
	if s, ok := strategies[dep]; ok {
		return s
	}
	return FailClosed
}

// ShouldAllow determines if we should proceed given an error and a strategy
func ShouldAllow(strategy FailureStrategy, err error) bool {
	if err == nil {
		return true
	}
	return strategy == FailOpen
}

// Allow reports whether a request may continue after dep failed with err.
func Allow(dep Dependency, err error) bool {
	return ShouldAllow(StrategyFor(dep), err)
}
