package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFixedWindow_Allow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(2, 5*time.Second)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = rl.Allow("1.2.3.4")
	assert.True(t, ok)

	ok, retry := rl.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 5*time.Second, retry)

	ok, _ = rl.Allow("5.6.7.8")
	assert.True(t, ok, "clients are counted separately")

	now = now.Add(3 * time.Second)
	_, retry = rl.Allow("1.2.3.4")
	assert.Equal(t, 2*time.Second, retry)

	now = now.Add(2 * time.Second)
	ok, _ = rl.Allow("1.2.3.4")
	assert.True(t, ok, "a new window starts once the old one has elapsed")
}

func TestFixedWindow_Sweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(1, time.Second)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(500 * time.Millisecond)
	rl.Allow("b")

	now = now.Add(600 * time.Millisecond)
	rl.sweep()
	assert.Equal(t, 1, rl.size())
}

func TestFixedWindow_RunStopsWithContext(t *testing.T) {
	rl := NewFixedWindowLimiter(1, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
