package ai

import (
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, true},
		{&openai.APIError{HTTPStatusCode: 500, Message: "boom"}, false},
		{errors.New("Rate limit reached for gpt-4o-mini"), true},
		{errors.New("quota exceeded for this month"), true},
		{errors.New("connection refused"), false},
	}
	for _, c := range cases {
		if got := IsRateLimit(c.err); got != c.want {
			t.Errorf("IsRateLimit(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestIsRateLimitWrapped(t *testing.T) {
	err := fmt.Errorf("chat completion failed: %w", &openai.APIError{HTTPStatusCode: 429})
	if !IsRateLimit(err) {
		t.Fatal("wrapped 429 not detected")
	}
}

func TestIsContextLengthExceeded(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("this model's maximum context length is 128000 tokens"), true},
		{errors.New("prompt is too long"), true},
		{errors.New("rate limit reached"), false},
	}
	for _, c := range cases {
		if got := IsContextLengthExceeded(c.err); got != c.want {
			t.Errorf("IsContextLengthExceeded(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestIsAuthError(t *testing.T) {
	if !IsAuthError(&openai.APIError{HTTPStatusCode: 401}) {
		t.Fatal("401 not detected")
	}
	if IsAuthError(errors.New("some other failure")) {
		t.Fatal("plain error misclassified as auth failure")
	}
}
