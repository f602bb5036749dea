package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dirty-exit", Kind(&DirtyExit{Pid: 1, Code: 2}))
	assert.Equal(t, "invalid-job", Kind(&InvalidJob{Class: "X", Err: ErrUnknownClass}))
	assert.Equal(t, "RuntimeError", Kind(NewJobError("RuntimeError", "boom")))
	assert.Equal(t, "Error", Kind(stderrors.New("plain")))

	// Kind survives wrapping.
	wrapped := fmt.Errorf("outer: %w", &DirtyExit{Pid: 1, Code: 2})
	assert.Equal(t, "dirty-exit", Kind(wrapped))
}

func TestDirtyExitMessage(t *testing.T) {
	t.Parallel()

	err := &DirtyExit{Pid: 4242, Code: 2}
	assert.Contains(t, err.Error(), "exit code 2")
	assert.Contains(t, err.Error(), "4242")
}

func TestJobError(t *testing.T) {
	t.Parallel()

	err := &JobError{
		KindName: "Panic",
		Err:      stderrors.New("kaboom"),
		Frames:   []string{"frame1", "frame2"},
	}
	assert.Equal(t, "kaboom", err.Error())
	assert.Equal(t, []string{"frame1", "frame2"}, Backtrace(err))
	assert.Nil(t, Backtrace(stderrors.New("plain")))
}

func TestInvalidJobUnwrap(t *testing.T) {
	t.Parallel()

	err := &InvalidJob{Class: "X", Err: ErrUnknownClass}
	assert.ErrorIs(t, err, ErrUnknownClass)
}
