package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Vic92548/VCCE-Server/pkg/config"
	"github.com/Vic92548/VCCE-Server/pkg/patch"
	"github.com/Vic92548/VCCE-Server/pkg/prompt"
	"github.com/Vic92548/VCCE-Server/pkg/workspace"
)

// ChatResult is the outcome of one aiChat call.
type ChatResult struct {
	Reply string
	Patch *patch.Entry // non-nil when the reply proposed a patch
}

// Status summarizes broker state for the aiStatus command.
type Status struct {
	HasKey         bool   `json:"hasKey"`
	Model          string `json:"model"`
	Sessions       int    `json:"sessions"`
	PendingPatches int    `json:"pendingPatches"`
}

// Broker owns the AI side of the server: API key resolution, context
// assembly, the completion call, and patch detection. It is shared by
// all connections.
type Broker struct {
	mu     sync.Mutex
	apiKey string
	client Client // pinned client, mainly for tests

	model   config.ModelConfig
	cache   *workspace.Cache
	patches *patch.Registry
}

// NewBroker creates a broker over the given cache and patch registry.
func NewBroker(model config.ModelConfig, cache *workspace.Cache, patches *patch.Registry) *Broker {
	return &Broker{
		model:   model,
		cache:   cache,
		patches: patches,
	}
}

// SetClient pins a completion client, bypassing key resolution.
func (b *Broker) SetClient(c Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = c
}

// SetAPIKey stores the key in memory and persists it to the auth file.
func (b *Broker) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key")
	}

	b.mu.Lock()
	b.apiKey = key
	b.mu.Unlock()

	return config.SaveAPIKey(b.model.Provider, key)
}

// Status reports key presence, model and table sizes.
func (b *Broker) Status() Status {
	b.mu.Lock()
	hasKey := b.apiKey != "" || b.client != nil
	b.mu.Unlock()

	if !hasKey {
		if _, err := config.ResolveAPIKey(b.model.Provider); err == nil {
			hasKey = true
		}
	}

	return Status{
		HasKey:         hasKey,
		Model:          b.model.ID,
		Sessions:       b.cache.Sessions(),
		PendingPatches: b.patches.Count(),
	}
}

// Chat runs one conversational turn for a project. The project context
// is rebuilt only when newSession is set or no cached session exists.
func (b *Broker) Chat(ctx context.Context, projectPath string, messages []Message, newSession bool) (*ChatResult, error) {
	if projectPath == "" {
		return nil, fmt.Errorf("projectPath is required")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	client, err := b.resolveClient()
	if err != nil {
		return nil, err
	}

	filesText, err := b.cache.Context(projectPath, newSession)
	if err != nil {
		return nil, fmt.Errorf("failed to build project context: %w", err)
	}

	system := prompt.NewBuilder(prompt.DefaultBase).
		SetPatchFormat(true).
		SetProject(projectPath, filesText).
		Build()

	turn := make([]Message, 0, len(messages)+1)
	turn = append(turn, Message{Role: "system", Content: system})
	turn = append(turn, messages...)

	reply, err := client.Complete(ctx, turn, Options{
		Model:       b.model.ID,
		Temperature: b.model.Temperature,
		MaxTokens:   b.model.MaxTokens,
	})
	if err != nil {
		switch {
		case IsAuthError(err):
			return nil, fmt.Errorf("API key rejected; set a valid key with setApiKey: %w", err)
		case IsContextLengthExceeded(err):
			return nil, fmt.Errorf("project context exceeds the model's window; lower the context byte budget: %w", err)
		}
		return nil, err
	}

	result := &ChatResult{Reply: reply}
	if diffText, ok := patch.Extract(reply); ok {
		entry := b.patches.Register(projectPath, diffText)
		result.Patch = &entry
	}
	return result, nil
}

// resolveClient returns the pinned client or builds one from the first
// key found in memory, environment or the auth file.
func (b *Broker) resolveClient() (Client, error) {
	b.mu.Lock()
	client := b.client
	key := b.apiKey
	b.mu.Unlock()

	if client != nil {
		return client, nil
	}
	if key == "" {
		resolved, err := config.ResolveAPIKey(b.model.Provider)
		if err != nil {
			return nil, err
		}
		key = resolved
	}
	return NewOpenAIClient(key, b.model.BaseURL), nil
}
