// Package runner executes shell commands for stream-class requests,
// forwarding output as it arrives rather than waiting for completion.
package runner

import (
	"context"
	"io"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// readChunkSize bounds a single output event's payload.
const readChunkSize = 32 * 1024

// Sink receives the ordered output events of one exec request. It is
// scoped to a single request id; Exit is terminal and any emission
// after it is dropped by the implementation.
type Sink interface {
	Stdout(data string)
	Stderr(data string)
	Exit(code int)
}

// Run spawns command under /bin/sh in cwd and pumps stdout and stderr
// into the sink as the OS delivers them. It blocks until the process
// exits and always emits exactly one Exit event, including when the
// spawn itself fails. Cancelling ctx kills the child.
func Run(ctx context.Context, cwd, command string, sink Sink) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = cwd

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		spawnFailed(sink, err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		spawnFailed(sink, err)
		return
	}

	if err := cmd.Start(); err != nil {
		spawnFailed(sink, err)
		return
	}

	var g errgroup.Group
	g.Go(func() error { return pump(stdout, sink.Stdout) })
	g.Go(func() error { return pump(stderr, sink.Stderr) })
	_ = g.Wait()

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			sink.Exit(exitErr.ExitCode())
		} else {
			sink.Exit(-1)
		}
		return
	}
	sink.Exit(0)
}

// spawnFailed reports a failure that happened before the process ran.
func spawnFailed(sink Sink, err error) {
	sink.Stderr(err.Error() + "\n")
	sink.Exit(-1)
}

// pump forwards reads chunk by chunk, preserving the relative order
// the process produced them in on this stream.
func pump(r io.Reader, emit func(string)) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			emit(string(buf[:n]))
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
