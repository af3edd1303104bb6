// Package llm wraps the Anthropic API behind a small text-generation
// interface with classified retry handling.
package llm

import (
	"context"
	"fmt"
)

// TextGenerator produces free-form text for a prompt. An empty string with a
// nil error is a valid (if useless) response; callers that need retries use
// GenerateWithRetry which treats it as a retryable failure.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// APIError carries the upstream HTTP status so the retry ladder can classify
// overload (529/503/502) vs rate-limit (429) vs everything else.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error: status %d: %s", e.StatusCode, e.Message)
}

// GeneratorFunc adapts a plain function to the TextGenerator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
