package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a provider failure. The set is closed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRateLimit
	KindSafety
	KindMissingConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindSafety:
		return "safety"
	case KindMissingConfig:
		return "missing_config"
	default:
		return "unknown"
	}
}

// ProviderError is the normalized error every provider adapter returns.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int // 0 when the failure happened before a response was received
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

var (
	rateLimitIndicators = []string{
		"429",
		"quota",
		"rate limit",
		"rate_limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}
	safetyIndicators = []string{
		"safety",
		"blocked",
	}
	missingConfigIndicators = []string{
		"api key",
		"api_key",
	}
)

// Classify returns the kind of err. Errors produced by the adapters carry
// their kind; anything else is classified by substring matching.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return classifyText(err.Error())
}

func classifyText(text string) ErrorKind {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, rateLimitIndicators):
		return KindRateLimit
	case containsAny(lower, safetyIndicators):
		return KindSafety
	case containsAny(lower, missingConfigIndicators):
		return KindMissingConfig
	}
	return KindUnknown
}

// classifyStatus maps an HTTP failure to a kind using the status code first
// and the response body second.
func classifyStatus(statusCode int, body string) ErrorKind {
	lower := strings.ToLower(body)
	switch statusCode {
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		if containsAny(lower, rateLimitIndicators) {
			return KindRateLimit
		}
		return KindMissingConfig
	case http.StatusBadRequest:
		if strings.Contains(lower, "api_key_invalid") || strings.Contains(lower, "api key not valid") {
			return KindMissingConfig
		}
	}
	if containsAny(lower, []string{"resource_exhausted", "quota"}) {
		return KindRateLimit
	}
	return KindUnknown
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a provider 404, typically an unknown or retired model.
func IsNotFound(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound
}
