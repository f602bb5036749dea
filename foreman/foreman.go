// Package foreman provides the process-isolation primitive. The parent
// cannot fork, so it re-executes its own binary in a child mode, hands the
// encoded descriptor over on stdin, and reaps the exit status.
package foreman

import (
	"context"

	"github.com/splitice/go-resque/job"
)

// Foreman splits job execution into a child process.
type Foreman interface {
	// Fork starts a child that will perform the descriptor. The returned
	// Child is reaped with Wait.
	Fork(ctx context.Context, d *job.Descriptor) (Child, error)
}

// Child is a running job process owned by the parent.
type Child interface {
	// Pid returns the child's process id.
	Pid() int

	// Wait blocks until the child exits and returns its exit code. A
	// negative code with a non-nil error means the child could not be
	// reaped at all.
	Wait() (int, error)

	// Kill terminates the child immediately (SIGKILL). Wait still must be
	// called to reap it.
	Kill() error
}
