package failure

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/splitice/go-resque/errors"
	"github.com/splitice/go-resque/job"
	"github.com/splitice/go-resque/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_SaveAndCount(t *testing.T) {
	t.Parallel()

	backend := NewRedis(store.NewMemory(), "resque:")
	ctx := context.Background()

	count, err := backend.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	d := job.New("EchoJob", []interface{}{"hi"})
	d.Queue = "default"

	jobErr := errors.NewJobError("RuntimeError", "boom")
	require.NoError(t, backend.Save(ctx, d, jobErr, "default", "host:1:default"))

	count, err = backend.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	records, err := backend.All(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "RuntimeError", record.Exception)
	assert.Equal(t, "boom", record.Error)
	assert.Equal(t, "default", record.Queue)
	assert.Equal(t, "host:1:default", record.Worker)
	assert.NotEmpty(t, record.FailedAt)
	assert.NotNil(t, record.Backtrace)

	decoded, err := job.Decode(record.Payload)
	require.NoError(t, err)
	assert.True(t, d.Equal(decoded))
}

func TestRedis_NewestAtHead(t *testing.T) {
	t.Parallel()

	s := store.NewMemory()
	backend := NewRedis(s, "resque:")
	ctx := context.Background()

	first := job.New("FirstJob", nil)
	second := job.New("SecondJob", nil)

	require.NoError(t, backend.Save(ctx, first, errors.NewJobError("Error", "a"), "q", "w"))
	require.NoError(t, backend.Save(ctx, second, errors.NewJobError("Error", "b"), "q", "w"))

	// lpush + lindex 0 yields the most recently saved record.
	data, found, err := s.LIndex(ctx, "resque:failed", 0)
	require.NoError(t, err)
	require.True(t, found)

	var record Record
	require.NoError(t, json.Unmarshal([]byte(data), &record))

	decoded, err := job.Decode(record.Payload)
	require.NoError(t, err)
	assert.Equal(t, "SecondJob", decoded.Class)
}

func TestRedis_RepeatedSavesAppend(t *testing.T) {
	t.Parallel()

	backend := NewRedis(store.NewMemory(), "resque:")
	ctx := context.Background()

	d := job.New("EchoJob", nil)
	jobErr := errors.NewJobError("Error", "boom")

	require.NoError(t, backend.Save(ctx, d, jobErr, "q", "w"))
	require.NoError(t, backend.Save(ctx, d, jobErr, "q", "w"))

	count, err := backend.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "no deduplication")
}

func TestRedis_Clear(t *testing.T) {
	t.Parallel()

	backend := NewRedis(store.NewMemory(), "resque:")
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, job.New("EchoJob", nil), errors.NewJobError("Error", "x"), "q", "w"))
	require.NoError(t, backend.Clear(ctx))

	count, err := backend.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRedis_GenericErrorKind(t *testing.T) {
	t.Parallel()

	backend := NewRedis(store.NewMemory(), "resque:")
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, job.New("EchoJob", nil), context.DeadlineExceeded, "q", "w"))

	records, err := backend.All(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Error", records[0].Exception)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	backend := NewNoop()
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, job.New("EchoJob", nil), context.Canceled, "q", "w"))

	count, err := backend.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, backend.Clear(ctx))
}
