package schedule

import (
	"bytes"
	"context"
	"errors"
	stdlog "log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/wreckit/internal/logging"
)

func TestParseCron(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"0 */2 * * *", "30 9 * * 1-5", "@hourly", "@every 30m"} {
		_, err := ParseCron(expr)
		assert.NoError(t, err, expr)
	}
	for _, expr := range []string{"", "* * *", "61 * * * *", "@sometimes"} {
		_, err := ParseCron(expr)
		assert.Error(t, err, expr)
	}
}

func TestScheduler_Next(t *testing.T) {
	t.Parallel()

	s, err := New("0 */2 * * *", func(context.Context) error { return nil }, logging.Discard())
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), s.Next(from))
}

func TestNew_InvalidExpression(t *testing.T) {
	t.Parallel()

	_, err := New("nope", func(context.Context) error { return nil }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid cron expression "nope"`)
}

func TestScheduler_RunImmediately(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	s, err := New("@hourly", func(context.Context) error {
		calls++
		cancel()
		return nil
	}, logging.Discard())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, true) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 1, calls)
	last, runs := s.LastRun()
	assert.Equal(t, 1, runs)
	assert.False(t, last.IsZero())
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s, err := New("@hourly", func(context.Context) error { return nil }, logging.Discard())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, false) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	_, runs := s.LastRun()
	assert.Zero(t, runs)
}

func TestScheduler_JobErrorIsLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.New()
	log.SetOutput(stdlog.New(&buf, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := New("@hourly", func(context.Context) error {
		cancel()
		return errors.New("batch exploded")
	}, log)
	require.NoError(t, err)

	require.NoError(t, s.Run(ctx, true))
	assert.Contains(t, buf.String(), "scheduled run failed")
	assert.Contains(t, buf.String(), "batch exploded")
}
