package resilience

import (
	"time"
)

// QuotaRetryConfig builds the retry policy for quota-limited model calls:
// exponential doubling from initial, capped at maxBackoff, without jitter, retrying
// only quota errors.
func QuotaRetryConfig(maxAttempts int, initial, maxBackoff time.Duration) RetryConfig {
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 60 * time.Second,
		MaxBackoff:     5 * time.Minute,
		Multiplier:     2.0,
		ShouldRetry:    IsQuotaError,
	}
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initial > 0 {
		cfg.InitialBackoff = initial
	}
	if maxBackoff > 0 {
		cfg.MaxBackoff = maxBackoff
	}
	return cfg
}

// FromBreakerThreshold converts a configured failure threshold to a
// CircuitBreakerConfig.
func FromBreakerThreshold(failureThreshold int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	return cfg
}
