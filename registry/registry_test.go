package registry

import (
	stderrors "errors"
	"testing"

	"github.com/splitice/go-resque/errors"
	"github.com/splitice/go-resque/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Register("EchoJob", func(queue string, args []interface{}) (Performer, error) {
		return PerformFunc(func() error { return nil }), nil
	}))

	d := job.New("EchoJob", []interface{}{"hi"})
	performer, err := r.Create(d)
	require.NoError(t, err)
	assert.NoError(t, performer.Perform())
}

func TestRegistry_RegisterFunc(t *testing.T) {
	t.Parallel()

	r := New()

	var gotQueue string
	var gotArgs []interface{}
	require.NoError(t, r.RegisterFunc("EchoJob", func(queue string, args ...interface{}) error {
		gotQueue = queue
		gotArgs = args
		return nil
	}))

	d := job.New("EchoJob", []interface{}{"a", "b"})
	d.Queue = "default"

	performer, err := r.Create(d)
	require.NoError(t, err)
	require.NoError(t, performer.Perform())

	assert.Equal(t, "default", gotQueue)
	assert.Equal(t, []interface{}{"a", "b"}, gotArgs)
}

func TestRegistry_UnknownClass(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Create(job.New("Nope", nil))
	require.Error(t, err)

	var invalid *errors.InvalidJob
	require.True(t, stderrors.As(err, &invalid))
	assert.Equal(t, "invalid-job", errors.Kind(err))
	assert.Equal(t, "Nope", invalid.Class)
}

func TestRegistry_FactoryFailure(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Register("Broken", func(queue string, args []interface{}) (Performer, error) {
		return nil, stderrors.New("bad args")
	}))

	_, err := r.Create(job.New("Broken", nil))
	assert.Equal(t, "invalid-job", errors.Kind(err))
}

func TestRegistry_NilPerformer(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Register("Empty", func(queue string, args []interface{}) (Performer, error) {
		return nil, nil
	}))

	_, err := r.Create(job.New("Empty", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNilPerformer)
}

func TestRegistry_InvalidRegistrations(t *testing.T) {
	t.Parallel()

	r := New()
	assert.ErrorIs(t, r.Register("", func(queue string, args []interface{}) (Performer, error) {
		return nil, nil
	}), errors.ErrEmptyClassName)
	assert.ErrorIs(t, r.Register("X", nil), errors.ErrNilFactory)
	assert.ErrorIs(t, r.RegisterFunc("X", nil), errors.ErrNilFactory)
}

func TestRegistry_ReplaceAndRemove(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.RegisterFunc("Job", func(queue string, args ...interface{}) error {
		return stderrors.New("old")
	}))
	require.NoError(t, r.RegisterFunc("Job", func(queue string, args ...interface{}) error {
		return nil
	}))

	performer, err := r.Create(job.New("Job", nil))
	require.NoError(t, err)
	assert.NoError(t, performer.Perform(), "later registration wins")

	r.Remove("Job")
	_, err = r.Create(job.New("Job", nil))
	assert.Error(t, err)
	assert.Len(t, r.List(), 0)
}
