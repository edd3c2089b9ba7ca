package runner

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingSink captures events in arrival order for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []string // "stdout:<data>", "stderr:<data>", "exit:<code>"
	code   int
	exited bool
}

func (s *recordingSink) Stdout(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "stdout:"+data)
}

func (s *recordingSink) Stderr(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "stderr:"+data)
}

func (s *recordingSink) Exit(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "exit")
	s.code = code
	s.exited = true
}

func (s *recordingSink) snapshot() ([]string, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...), s.code, s.exited
}

// TestEchoOrdering tests stdout before the terminal exit, code 0.
func TestEchoOrdering(t *testing.T) {
	sink := &recordingSink{}
	Run(context.Background(), t.TempDir(), "echo hi", sink)

	events, code, exited := sink.snapshot()
	if !exited {
		t.Fatal("Expected an exit event")
	}
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
	if len(events) < 2 {
		t.Fatalf("Expected stdout and exit events, got %v", events)
	}
	if !strings.Contains(events[0], "hi") || !strings.HasPrefix(events[0], "stdout:") {
		t.Errorf("Expected first event to be stdout with 'hi', got %q", events[0])
	}
	if events[len(events)-1] != "exit" {
		t.Errorf("Expected exit to be the last event, got %v", events)
	}
}

// TestStderrAndExitCode tests stderr forwarding and a non-zero exit.
func TestStderrAndExitCode(t *testing.T) {
	sink := &recordingSink{}
	Run(context.Background(), t.TempDir(), "echo oops >&2; exit 3", sink)

	events, code, _ := sink.snapshot()
	if code != 3 {
		t.Errorf("Expected exit code 3, got %d", code)
	}
	found := false
	for _, e := range events {
		if strings.HasPrefix(e, "stderr:") && strings.Contains(e, "oops") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a stderr event containing 'oops', got %v", events)
	}
}

// TestWorkingDirectory tests that the command runs in cwd.
func TestWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	Run(context.Background(), dir, "pwd", sink)

	events, code, _ := sink.snapshot()
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	var out strings.Builder
	for _, e := range events {
		if strings.HasPrefix(e, "stdout:") {
			out.WriteString(strings.TrimPrefix(e, "stdout:"))
		}
	}
	got := strings.TrimSpace(out.String())
	// TempDir may be behind a symlink on some platforms.
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		want = dir
	}
	if got != want && got != dir {
		t.Errorf("Expected pwd output %q, got %q", want, got)
	}
}

// TestCancellationKillsChild tests that cancelling the context ends a
// long-running command with a non-zero exit.
func TestCancellationKillsChild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{}

	done := make(chan struct{})
	go func() {
		Run(ctx, t.TempDir(), "sleep 30", sink)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	_, code, exited := sink.snapshot()
	if !exited {
		t.Fatal("Expected an exit event")
	}
	if code == 0 {
		t.Error("Expected non-zero exit code for a killed process")
	}
}

// TestExitEmittedExactlyOnce tests the single terminal event guarantee.
func TestExitEmittedExactlyOnce(t *testing.T) {
	sink := &recordingSink{}
	Run(context.Background(), t.TempDir(), "true", sink)

	events, _, _ := sink.snapshot()
	exits := 0
	for _, e := range events {
		if e == "exit" {
			exits++
		}
	}
	if exits != 1 {
		t.Errorf("Expected exactly one exit event, got %d", exits)
	}
}

// TestSpawnFailure tests that a command that cannot start still
// produces a stderr message and a terminal exit with code -1.
func TestSpawnFailure(t *testing.T) {
	sink := &recordingSink{}
	Run(context.Background(), "/no/such/dir", "echo hi", sink)

	events, code, exited := sink.snapshot()
	if !exited {
		t.Fatal("Expected an exit event")
	}
	if code != -1 {
		t.Errorf("Expected exit code -1, got %d", code)
	}
	if len(events) == 0 || !strings.HasPrefix(events[0], "stderr:") {
		t.Errorf("Expected a stderr event describing the failure, got %v", events)
	}
	if events[len(events)-1] != "exit" {
		t.Errorf("Expected exit to be the last event, got %v", events)
	}
}
