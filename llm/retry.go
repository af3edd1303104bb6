package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

const maxAttempts = 5

var errEmptyResponse = errors.New("empty response")

// sleepFn waits for d or until ctx is cancelled; returns false on cancel.
// Swapped out in tests to keep the retry ladder fast.
var sleepFn = func(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// GenerateWithRetry calls gen up to 5 times, backing off between attempts
// according to the error class. An empty successful response counts as a
// retryable failure. When all attempts are exhausted (or ctx is cancelled)
// it returns "", which callers treat as a hard failure for that stage.
func GenerateWithRetry(ctx context.Context, gen TextGenerator, prompt string) string {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := gen.Generate(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(text) != "" {
				return text
			}
			lastErr = errEmptyResponse
		} else {
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}
		d := retryDelay(attempt, lastErr)
		slog.Warn("generator attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", d),
			slog.Any("error", lastErr),
			slog.String("component", "llm"))
		if !sleepFn(ctx, d) {
			return ""
		}
	}
	slog.Error("generator exhausted all attempts",
		slog.Int("attempts", maxAttempts),
		slog.Any("error", lastErr),
		slog.String("component", "llm"))
	return ""
}

// retryDelay classifies the failure and picks the back-off:
// overload/unavailable grows with the attempt (3s, 6s, ... capped at 15s),
// rate limits wait a flat 30s, everything else a flat 2s.
func retryDelay(attempt int, err error) time.Duration {
	switch statusOf(err) {
	case 529, 503, 502:
		d := time.Duration(attempt) * 3 * time.Second
		if d > 15*time.Second {
			d = 15 * time.Second
		}
		return d
	case 429:
		return 30 * time.Second
	default:
		return 2 * time.Second
	}
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
