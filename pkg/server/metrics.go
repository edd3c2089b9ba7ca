package server

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects per-command and connection counters for the debug
// HTTP endpoint. All methods are safe for concurrent use.
type Metrics struct {
	mu           sync.RWMutex
	sessionStart time.Time

	connsTotal  int64
	connsActive int64
	malformed   int64

	execsStarted int64
	execsActive  int64

	commands map[string]*commandStats
}

// commandStats holds aggregated statistics for a single command.
type commandStats struct {
	CallCount       int64
	ErrorCount      int64
	TotalDurationNs int64
	LastCall        time.Time
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		sessionStart: time.Now(),
		commands:     make(map[string]*commandStats),
	}
}

func (m *Metrics) ConnOpened() {
	m.mu.Lock()
	m.connsTotal++
	m.connsActive++
	m.mu.Unlock()
}

func (m *Metrics) ConnClosed() {
	m.mu.Lock()
	m.connsActive--
	m.mu.Unlock()
}

func (m *Metrics) MalformedFrame() {
	m.mu.Lock()
	m.malformed++
	m.mu.Unlock()
}

// CommandDone records one completed value-command dispatch.
func (m *Metrics) CommandDone(cmd string, d time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.commands[cmd]
	if !ok {
		stats = &commandStats{}
		m.commands[cmd] = stats
	}
	stats.CallCount++
	if failed {
		stats.ErrorCount++
	}
	stats.TotalDurationNs += d.Nanoseconds()
	stats.LastCall = time.Now()
}

func (m *Metrics) ExecStarted() {
	m.mu.Lock()
	m.execsStarted++
	m.execsActive++
	m.mu.Unlock()
}

func (m *Metrics) ExecFinished() {
	m.mu.Lock()
	m.execsActive--
	m.mu.Unlock()
}

// CommandMetrics is the exported per-command view.
type CommandMetrics struct {
	Command           string    `json:"command"`
	CallCount         int64     `json:"callCount"`
	ErrorCount        int64     `json:"errorCount"`
	AverageDurationMs float64   `json:"averageDurationMs"`
	LastCall          time.Time `json:"lastCall"`
}

// FullMetrics is a point-in-time snapshot of all counters.
type FullMetrics struct {
	SessionStart      time.Time        `json:"sessionStart"`
	Uptime            time.Duration    `json:"uptime"`
	ConnectionsTotal  int64            `json:"connectionsTotal"`
	ConnectionsActive int64            `json:"connectionsActive"`
	MalformedFrames   int64            `json:"malformedFrames"`
	ExecsStarted      int64            `json:"execsStarted"`
	ExecsActive       int64            `json:"execsActive"`
	Commands          []CommandMetrics `json:"commands"`
}

// Snapshot returns the current counters, commands sorted by name.
func (m *Metrics) Snapshot() FullMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	full := FullMetrics{
		SessionStart:      m.sessionStart,
		Uptime:            time.Since(m.sessionStart),
		ConnectionsTotal:  m.connsTotal,
		ConnectionsActive: m.connsActive,
		MalformedFrames:   m.malformed,
		ExecsStarted:      m.execsStarted,
		ExecsActive:       m.execsActive,
	}
	for cmd, stats := range m.commands {
		cm := CommandMetrics{
			Command:    cmd,
			CallCount:  stats.CallCount,
			ErrorCount: stats.ErrorCount,
			LastCall:   stats.LastCall,
		}
		if stats.CallCount > 0 {
			cm.AverageDurationMs = float64(stats.TotalDurationNs) / float64(stats.CallCount) / 1e6
		}
		full.Commands = append(full.Commands, cm)
	}
	sort.Slice(full.Commands, func(i, j int) bool {
		return full.Commands[i].Command < full.Commands[j].Command
	})
	return full
}
