package ai

import (
	"context"
	"io"
	"strings"
)

// GenerationParams are the sampling parameters sent with every completion request.
type GenerationParams struct {
	Temperature     float64
	MaxOutputTokens int
}

// Provider is a hosted generative-AI model API.
// Implement this interface to add new AI providers.
type Provider interface {
	// Name identifies the provider in logs and replies.
	Name() string
	// Configured reports whether the provider has the credentials it needs.
	Configured() bool
	// Generate returns a text completion for prompt. Failures are *ProviderError.
	Generate(ctx context.Context, model, prompt string, params GenerationParams) (string, error)
}

// readSnippet reads at most n bytes of r, for error messages.
func readSnippet(r io.Reader, n int64) string {
	if r == nil || n <= 0 {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, n))
	return strings.TrimSpace(string(b))
}
