// Package workspace aggregates a project's files into a bounded
// textual snapshot used as AI conversation context, cached per
// project path.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Snapshot is one cached project context.
type Snapshot struct {
	ProjectPath string
	FilesText   string
	LastUsed    time.Time
}

// Cache holds at most one Snapshot per project path for the lifetime
// of the process. Entries are rebuilt only on explicit refresh, or when
// file watching is enabled and the project changed on disk.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Snapshot
	stale   map[string]bool
	budget  int

	watch   bool
	watcher *fsnotify.Watcher
}

// NewCache creates a cache with the given byte budget. When watch is
// true, project roots are registered with fsnotify and on-disk changes
// mark their entries stale.
func NewCache(budget int, watch bool) *Cache {
	return &Cache{
		entries: make(map[string]*Snapshot),
		stale:   make(map[string]bool),
		budget:  budget,
		watch:   watch,
	}
}

// Context returns the aggregated context for a project, building it on
// first use or when refresh is set. Otherwise the cached text is
// returned verbatim regardless of on-disk changes.
func (c *Cache) Context(projectPath string, refresh bool) (string, error) {
	c.mu.Lock()
	entry := c.entries[projectPath]
	if entry != nil && !refresh && !c.stale[projectPath] {
		entry.LastUsed = time.Now()
		text := entry.FilesText
		c.mu.Unlock()
		return text, nil
	}
	c.mu.Unlock()

	// Build outside the lock; concurrent builders for the same path
	// race with last-writer-wins semantics.
	text, err := buildContext(projectPath, c.budget)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[projectPath] = &Snapshot{
		ProjectPath: projectPath,
		FilesText:   text,
		LastUsed:    time.Now(),
	}
	delete(c.stale, projectPath)
	watch := c.watch
	c.mu.Unlock()

	if watch {
		if err := c.watchProject(projectPath); err != nil {
			return text, fmt.Errorf("context built but watch failed: %w", err)
		}
	}
	return text, nil
}

// Sessions returns the number of cached project snapshots.
func (c *Cache) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close releases the file watcher if one was started.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

// watchProject registers the project tree with the shared watcher,
// starting it on first use. fsnotify watches are not recursive, so
// every subdirectory is added; directories created later are picked up
// from their create events in consumeEvents.
func (c *Cache) watchProject(projectPath string) error {
	c.mu.Lock()
	if c.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.watcher = w
		go c.consumeEvents(w)
	}
	w := c.watcher
	c.mu.Unlock()

	return filepath.WalkDir(projectPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if vcsDirs[d.Name()] && path != projectPath {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func (c *Cache) consumeEvents(w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !vcsDirs[filepath.Base(ev.Name)] {
					w.Add(ev.Name)
				}
			}
			c.markStale(ev.Name)
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

// markStale flags every project whose root contains the changed path.
func (c *Cache) markStale(changed string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path := range c.entries {
		if within(path, changed) {
			c.stale[path] = true
		}
	}
}
