package ai

import (
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// IsRateLimit reports whether an error is due to provider throttling.
// Rate-limited calls are worth retrying after a short delay.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return true
	}
	return looksLikeRateLimit(err.Error())
}

// IsContextLengthExceeded reports whether an error is due to the prompt
// exceeding the model's context window. Retrying cannot help; the
// project context has to shrink.
func IsContextLengthExceeded(err error) bool {
	if err == nil {
		return false
	}
	return looksLikeContextLengthExceeded(err.Error())
}

// IsAuthError reports whether an error indicates a bad or missing API
// key.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403
	}
	return false
}

func looksLikeRateLimit(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	needles := []string{
		"rate limit",
		"too many requests",
		"status code: 429",
		"throttle",
		"quota exceeded",
	}
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func looksLikeContextLengthExceeded(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	needles := []string{
		"context length",
		"context window",
		"maximum context",
		"too many tokens",
		"maximum number of tokens",
		"prompt is too long",
		"token limit exceeded",
	}
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
