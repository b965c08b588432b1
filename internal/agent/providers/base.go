// Package providers implements ModelPortal against OpenAI-compatible chat
// completion APIs: a generic gateway plus the DeepSeek and Zhipu (BigModel)
// variants named in the core's external interface.
package providers

import (
	"context"
	"time"
)

// BaseProvider holds the retry policy shared by every OpenAI-compatible
// provider variant.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider constructs a BaseProvider with the given name and retry
// policy.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{name: name, maxRetries: maxRetries, retryDelay: retryDelay}
}

// Name returns the provider's identifying name.
func (b BaseProvider) Name() string { return b.name }

// Retry runs op up to maxRetries times with linear backoff, stopping early
// if isRetryable reports false for the error it produced, or if ctx is
// cancelled while waiting between attempts.
func (b BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.retryDelay * time.Duration(attempt)):
			}
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
