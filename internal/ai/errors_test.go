package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"provider error keeps its kind", &ProviderError{Provider: "gemini", Kind: KindSafety}, KindSafety},
		{"wrapped provider error", fmt.Errorf("calling: %w", &ProviderError{Kind: KindRateLimit}), KindRateLimit},
		{"429 text", errors.New("request failed with status 429"), KindRateLimit},
		{"quota text", errors.New("You exceeded your current quota"), KindRateLimit},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED"), KindRateLimit},
		{"safety text", errors.New("candidate was blocked due to SAFETY"), KindSafety},
		{"api key text", errors.New("API key not valid. Please pass a valid API key."), KindMissingConfig},
		{"anything else", errors.New("connection reset by peer"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, KindRateLimit, classifyStatus(http.StatusTooManyRequests, ""))
	assert.Equal(t, KindMissingConfig, classifyStatus(http.StatusUnauthorized, `{"error":"bad key"}`))
	assert.Equal(t, KindRateLimit, classifyStatus(http.StatusForbidden, `quota exceeded for project`))
	assert.Equal(t, KindMissingConfig, classifyStatus(http.StatusBadRequest, `{"error":{"status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`))
	assert.Equal(t, KindRateLimit, classifyStatus(http.StatusServiceUnavailable, `RESOURCE_EXHAUSTED`))
	assert.Equal(t, KindUnknown, classifyStatus(http.StatusInternalServerError, `internal`))
	assert.Equal(t, KindUnknown, classifyStatus(http.StatusNotFound, `models/foo is not found`))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&ProviderError{StatusCode: http.StatusNotFound}))
	assert.False(t, IsNotFound(&ProviderError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, IsNotFound(errors.New("404")))
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Provider: "groq", Kind: KindRateLimit, StatusCode: 429, Message: "slow down"}
	assert.Equal(t, "groq: rate_limit (HTTP 429): slow down", err.Error())

	inner := errors.New("dial tcp: timeout")
	err = &ProviderError{Provider: "gemini", Kind: KindUnknown, Err: inner}
	assert.Equal(t, "gemini: unknown: dial tcp: timeout", err.Error())
	assert.ErrorIs(t, err, inner)
}
