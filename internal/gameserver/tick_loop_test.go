package gameserver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTicker struct {
	ticks  atomic.Int64
	paused atomic.Bool
}

func (c *countingTicker) Tick() bool {
	if c.paused.Load() {
		return false
	}
	c.ticks.Add(1)
	return true
}

func TestTickLoop_TicksUntilCancelled(t *testing.T) {
	target := &countingTicker{}
	loop := NewTickLoop(10*time.Millisecond, target, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool { return target.ticks.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestTickLoop_CountsSkippedTicks(t *testing.T) {
	target := &countingTicker{}
	target.paused.Store(true)
	loop := NewTickLoop(5*time.Millisecond, target, nil)
	go func() { _ = loop.Run(context.Background()) }()

	require.Eventually(t, func() bool { return loop.Skipped() >= 2 }, time.Second, 5*time.Millisecond)
	loop.Stop()
	loop.Stop()
	assert.Zero(t, target.ticks.Load())
}

func TestTickLoop_StopBeforeRun(t *testing.T) {
	loop := NewTickLoop(time.Millisecond, &countingTicker{}, nil)
	loop.Stop()
	assert.NoError(t, loop.Run(context.Background()))
}

func TestNewTickLoop_RejectsZeroInterval(t *testing.T) {
	assert.Panics(t, func() { NewTickLoop(0, &countingTicker{}, nil) })
}
