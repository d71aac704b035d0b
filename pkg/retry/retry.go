// Package retry implements bounded exponential backoff for transient
// database connection failures. Scans run against customer databases that
// may be mid-failover or briefly saturated; a couple of spaced attempts
// ride that out without masking real misconfiguration.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Config defines backoff behavior.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, +/- fraction of jitter per wait
}

// DefaultConfig suits connection pings: 2 retries starting at 200ms,
// doubling, capped at 5s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   2,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// DoIfRetryable executes fn, retrying with backoff only while the error
// looks transient. Permanent failures (bad credentials, unknown database)
// return immediately. A nil cfg uses DefaultConfig. Context cancellation is
// honored during waits.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(applyJitter(delay, cfg.JitterFactor)):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// retryablePatterns are substrings of transient database and network errors
// as the pgx, mysql, and mssql drivers report them.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"deadlock",
	"i/o timeout",
	"network is unreachable",
	"the database system is starting up",
	"server is not yet available",
}

// IsRetryable reports whether an error is transient and worth retrying.
// An error may declare its own retryability via an IsRetryable() method;
// otherwise known transient driver messages are matched.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
