package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// TimeoutMiddleware bounds every request by timeout. A request that runs
// out of time fails with a ProviderError of type ErrorTypeTimeout, which
// matches ports.ErrTimeout.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutLLM{next: next, timeout: timeout}
	}
}

type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

func (t *timeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if t.timeout <= 0 {
		return t.next.DoRequest(ctx, prompt, opts)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	response, in, out, err := t.next.DoRequest(callCtx, prompt, opts)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", 0, 0, NewProviderError("llm", ErrorTypeTimeout, 0,
			fmt.Sprintf("no response within %s", t.timeout), err)
	}
	return response, in, out, err
}

func (t *timeoutLLM) GetModel() string { return t.next.GetModel() }

// RetryMiddleware retries retryable failures with exponential backoff and
// jitter. Errors that are not ProviderErrors are treated as retryable unless
// they come from an open circuit or a finished context.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

type retryLLM struct {
	next       CoreLLM
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		response, in, out, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, in, out, nil
		}
		lastErr = err

		if !shouldRetry(ctx, err) || attempt == r.maxRetries {
			break
		}

		timer := time.NewTimer(r.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", 0, 0, ctx.Err()
		case <-timer.C:
		}
	}

	return "", 0, 0, fmt.Errorf("request failed after retries: %w", lastErr)
}

func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return true
}

// backoff returns baseDelay*2^attempt with +/-25% jitter, capped at maxDelay.
func (r *retryLLM) backoff(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 30)
	delay := r.baseDelay << attempt
	jitter := time.Duration(rand.Float64() * float64(delay) / 2)
	delay = delay - delay/4 + jitter
	if r.maxDelay > 0 && delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

func (r *retryLLM) GetModel() string { return r.next.GetModel() }

// RateLimitMiddleware paces requests with a token bucket. Every client built
// from the same Middleware value shares one bucket, so the registry can cap
// the whole provider rather than each model.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{next: next, limiter: limiter}
	}
}

type rateLimitedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

func (r *rateLimitedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

func (r *rateLimitedLLM) GetModel() string { return r.next.GetModel() }
