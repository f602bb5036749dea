// Package errors provides error types and utilities for the go-resque library.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNotConnected    = errors.New("not connected")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrEmptyClassName  = errors.New("class name cannot be empty")
	ErrNilFactory      = errors.New("performer factory cannot be nil")
	ErrUnknownClass    = errors.New("no performer registered for class")
	ErrNilPerformer    = errors.New("factory produced no performer")
	ErrForkUnsupported = errors.New("child process isolation is not supported")
	ErrShutdown        = errors.New("shutting down")
)

// Kinder is implemented by errors that carry a failure-record kind. Errors
// without it are recorded with the generic kind "Error".
type Kinder interface {
	Kind() string
}

// Backtracer is implemented by errors that carry stack frames for the
// failure record.
type Backtracer interface {
	Backtrace() []string
}

// Kind returns the failure-record kind for err.
func Kind(err error) string {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "Error"
}

// Backtrace returns the recorded stack frames for err, or nil.
func Backtrace(err error) []string {
	var b Backtracer
	if errors.As(err, &b) {
		return b.Backtrace()
	}
	return nil
}

// DirtyExit reports a forked child that terminated abnormally.
type DirtyExit struct {
	Pid  int
	Code int
}

func (e *DirtyExit) Error() string {
	return fmt.Sprintf("child %d terminated with exit code %d", e.Pid, e.Code)
}

func (e *DirtyExit) Kind() string { return "dirty-exit" }

// InvalidJob reports a descriptor whose class tag cannot be resolved to a
// performer.
type InvalidJob struct {
	Class string
	Err   error
}

func (e *InvalidJob) Error() string {
	return fmt.Sprintf("invalid job %q: %v", e.Class, e.Err)
}

func (e *InvalidJob) Kind() string { return "invalid-job" }

func (e *InvalidJob) Unwrap() error { return e.Err }

// JobError wraps an error raised by a performer with an explicit kind and
// optional backtrace.
type JobError struct {
	KindName string
	Err      error
	Frames   []string
}

func (e *JobError) Error() string { return e.Err.Error() }

func (e *JobError) Kind() string { return e.KindName }

func (e *JobError) Backtrace() []string { return e.Frames }

func (e *JobError) Unwrap() error { return e.Err }

// NewJobError creates a JobError with the given kind and message.
func NewJobError(kind, format string, args ...interface{}) *JobError {
	return &JobError{KindName: kind, Err: fmt.Errorf(format, args...)}
}

// QueueError represents queue operation errors
type QueueError struct {
	Op    string // operation being performed
	Queue string // queue name (if applicable)
	Err   error  // underlying error
}

func (e *QueueError) Error() string {
	if e.Queue != "" {
		return fmt.Sprintf("queue %s on %s: %v", e.Op, e.Queue, e.Err)
	}
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *QueueError) Unwrap() error { return e.Err }

// ConnectionError represents connection-related errors
type ConnectionError struct {
	URI string // connection URI (may be redacted)
	Err error  // underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s: %v", e.URI, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NewQueueError creates a new queue error
func NewQueueError(op, queue string, err error) error {
	return &QueueError{Op: op, Queue: queue, Err: err}
}

// NewConnectionError creates a new connection error
func NewConnectionError(uri string, err error) error {
	return &ConnectionError{URI: uri, Err: err}
}
