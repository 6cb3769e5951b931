package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	polls   atomic.Int32
	expires atomic.Int32
	lastNow atomic.Int64
	err     error
}

func (c *countingSweeper) PollVotes(context.Context) (int, error) {
	c.polls.Add(1)
	return 1, c.err
}

func (c *countingSweeper) ExpireVotes(_ context.Context, now time.Time) (int, error) {
	c.expires.Add(1)
	c.lastNow.Store(now.Unix())
	return 0, c.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegister(t *testing.T) {
	s := New(context.Background(), &countingSweeper{}, quietLogger())
	require.NoError(t, s.Register("*/5 * * * * *", ""))
	assert.Equal(t, 1, s.Jobs())
	require.NoError(t, s.Register("", "0 0 * * * *"))
	assert.Equal(t, 2, s.Jobs())
}

func TestRegisterInvalidSpec(t *testing.T) {
	s := New(context.Background(), &countingSweeper{}, quietLogger())
	err := s.Register("not a spec", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll")
}

func TestRunNow(t *testing.T) {
	sw := &countingSweeper{}
	s := New(context.Background(), sw, quietLogger())
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunNow()
	assert.Equal(t, int32(1), sw.polls.Load())
	assert.Equal(t, int32(1), sw.expires.Load())
	assert.Equal(t, fixed.Unix(), sw.lastNow.Load())
}

func TestRunNowLogsErrors(t *testing.T) {
	sw := &countingSweeper{err: errors.New("oracle down")}
	s := New(context.Background(), sw, quietLogger())
	s.RunNow()
	assert.Equal(t, int32(1), sw.polls.Load())
	assert.Equal(t, int32(1), sw.expires.Load())
}

func TestStartRunsJobs(t *testing.T) {
	sw := &countingSweeper{}
	s := New(context.Background(), sw, quietLogger())
	require.NoError(t, s.Register("* * * * * *", ""))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return sw.polls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
