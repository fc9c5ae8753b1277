package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextWithTestDeadline_HasDeadline(t *testing.T) {
	ctx, cancel := ContextWithTestDeadline(t, 100*time.Millisecond)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok, "context should have deadline")
	assert.Greater(t, time.Until(deadline), time.Duration(0))
}

func TestContextWithTestDeadlineBuffer_HasDeadline(t *testing.T) {
	ctx, cancel := ContextWithTestDeadlineBuffer(t, 200*time.Millisecond, 50*time.Millisecond)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok, "context should have deadline")
	assert.Greater(t, time.Until(deadline), time.Duration(0))
}

func TestContextWithTimeout(t *testing.T) {
	timeout := 150 * time.Millisecond
	ctx, cancel := ContextWithTimeout(t, timeout)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.InDelta(t, timeout.Seconds(), time.Until(deadline).Seconds(), 0.1)
}

func TestAgentContext(t *testing.T) {
	ctx, cancel := AgentContext(t)
	defer cancel()

	_, ok := ctx.Deadline()
	assert.True(t, ok)
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := ContextWithTimeout(t, time.Minute)

	select {
	case <-ctx.Done():
		t.Fatal("context should not be done before cancel")
	default:
	}

	cancel()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("context should be done after cancel")
	}
}
