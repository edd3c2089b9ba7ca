// Package patch tracks AI-proposed file diffs awaiting approval and
// applies approved ones atomically.
package patch

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownPatch indicates an id with no live registry entry.
var ErrUnknownPatch = errors.New("unknown patch")

// Entry is one pending patch.
type Entry struct {
	ID          string    `json:"id"`
	ProjectPath string    `json:"projectPath"`
	Diff        string    `json:"diff"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Registry is a process-wide table of pending patches keyed by id.
// Each entry's lifecycle transition runs under the registry lock, so a
// concurrent approve and discard resolve to one winner and one
// ErrUnknownPatch.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// fencedPatch matches the first fenced code block tagged diff or patch.
var fencedPatch = regexp.MustCompile("(?s)```(?:diff|patch)[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")

// Extract returns the diff body of the first fenced patch block in an
// AI reply, or false when the reply proposes no patch.
func Extract(reply string) (string, bool) {
	m := fencedPatch.FindStringSubmatch(reply)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Register mints a fresh id and stores the patch under it.
func (r *Registry) Register(projectPath, diffText string) Entry {
	entry := Entry{
		ID:          uuid.NewString(),
		ProjectPath: projectPath,
		Diff:        diffText,
		CreatedAt:   time.Now(),
	}

	r.mu.Lock()
	r.entries[entry.ID] = entry
	r.mu.Unlock()
	return entry
}

// Get returns the entry for an id.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// Count returns the number of pending patches.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Discard removes a pending patch without applying it.
func (r *Registry) Discard(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPatch, id)
	}
	delete(r.entries, id)
	return nil
}

// Approve applies the stored diff to the project's files and removes
// the entry. Validation happens before any file is touched; a failed
// apply keeps the entry and leaves the tree unchanged. The lock is
// held across the apply so the transition is atomic with respect to a
// concurrent Discard.
func (r *Registry) Approve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPatch, id)
	}

	if err := Apply(entry.ProjectPath, entry.Diff); err != nil {
		return fmt.Errorf("failed to apply patch %s: %w", id, err)
	}

	delete(r.entries, id)
	return nil
}
