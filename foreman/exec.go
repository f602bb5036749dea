package foreman

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/splitice/go-resque/errors"
	"github.com/splitice/go-resque/job"
)

// Exec is a Foreman that re-executes a binary for each job. By default it
// runs the current executable with the child-mode flag; the descriptor
// payload travels on stdin.
type Exec struct {
	executable string
	args       []string
	env        []string
	codec      *job.Codec
}

// ExecOption configures an Exec foreman.
type ExecOption func(*Exec)

// WithCommand overrides the executable and arguments the child runs.
func WithCommand(executable string, args ...string) ExecOption {
	return func(f *Exec) {
		f.executable = executable
		f.args = args
	}
}

// WithEnv sets the child environment. Defaults to the parent's.
func WithEnv(env []string) ExecOption {
	return func(f *Exec) { f.env = env }
}

// WithCodec sets the descriptor wire codec.
func WithCodec(codec *job.Codec) ExecOption {
	return func(f *Exec) { f.codec = codec }
}

// ChildFlag is the argument the default child command is invoked with. A
// binary embedding the worker checks for it before doing anything else; see
// RunChild.
const ChildFlag = "-resque-child"

// NewExec creates an Exec foreman. Without WithCommand it resolves the
// current executable; if that fails the platform cannot re-exec and the
// error wraps ErrForkUnsupported so callers can degrade to inline
// execution.
func NewExec(options ...ExecOption) (*Exec, error) {
	f := &Exec{codec: job.NewCodec()}
	for _, opt := range options {
		opt(f)
	}

	if f.executable == "" {
		executable, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrForkUnsupported, err)
		}
		f.executable = executable
		f.args = []string{ChildFlag}
	}
	return f, nil
}

// Fork starts the child process with the encoded descriptor on stdin.
func (f *Exec) Fork(ctx context.Context, d *job.Descriptor) (Child, error) {
	payload, err := f.codec.Encode(d)
	if err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}

	cmd := exec.Command(f.executable, f.args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if f.env != nil {
		cmd.Env = f.env
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start child: %w", err)
	}
	return &execChild{cmd: cmd}, nil
}

type execChild struct {
	cmd *exec.Cmd
}

func (c *execChild) Pid() int {
	return c.cmd.Process.Pid
}

func (c *execChild) Wait() (int, error) {
	err := c.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal; surface it as a plain failure.
			return 1, nil
		}
		return code, nil
	}
	return -1, err
}

func (c *execChild) Kill() error {
	return c.cmd.Process.Kill()
}
