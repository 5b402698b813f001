package mcn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSignalCoalesces(t *testing.T) {
	ev := NewEvent()

	ev.Signal()
	ev.Signal()
	ev.Signal()

	assert.True(t, ev.WaitTimeout(0), "one pending wakeup expected")
	assert.False(t, ev.WaitTimeout(0), "signals must coalesce into one wakeup")
}

func TestEventWaitTimeoutExpires(t *testing.T) {
	ev := NewEvent()

	start := time.Now()
	got := ev.WaitTimeout(20 * time.Millisecond)
	assert.False(t, got)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestEventWaitForever(t *testing.T) {
	ev := NewEvent()
	done := make(chan bool, 1)

	go func() {
		done <- ev.WaitTimeout(-1)
	}()

	time.Sleep(10 * time.Millisecond)
	ev.Signal()

	select {
	case got := <-done:
		require.True(t, got)
	case <-time.After(time.Second):
		t.Fatal("waiter did not wake up")
	}
}

func TestEventZeroTimeoutAfterSignal(t *testing.T) {
	ev := NewEvent()
	ev.Signal()
	assert.True(t, ev.WaitTimeout(0))
}
