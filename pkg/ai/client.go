// Package ai brokers conversational sessions between the editor and a
// chat-completion service, grounding them in per-project context.
package ai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries per-call completion parameters.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client is the chat-completion contract: messages in, assistant text
// out.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// OpenAIClient implements Client against an OpenAI-compatible API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client. An empty baseURL uses the official
// endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

// maxRateLimitRetries bounds retries on throttled calls.
const maxRateLimitRetries = 2

// Complete performs one chat completion call, retrying briefly when
// the provider throttles.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		if !IsRateLimit(err) || attempt >= maxRateLimitRetries {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
