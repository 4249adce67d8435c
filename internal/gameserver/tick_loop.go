package gameserver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ticker is advanced once per interval by a TickLoop.
type Ticker interface {
	// Tick returns false when the tick was skipped (paused).
	Tick() bool
}

// TickLoop drives a Ticker at a fixed interval.
//
// Invariant: Tick is invoked at most once per interval and never concurrently.
type TickLoop struct {
	interval time.Duration
	target   Ticker
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	skipped uint64
	stopped bool
}

// NewTickLoop returns a stopped loop that ticks target every interval.
//
// Precondition: interval must be > 0; target must be non-nil.
func NewTickLoop(interval time.Duration, target Ticker, logger *zap.Logger) *TickLoop {
	if interval <= 0 {
		panic("gameserver.NewTickLoop: interval must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickLoop{interval: interval, target: target, logger: logger}
}

// Run ticks until ctx is cancelled or Stop is called. It blocks.
func (l *TickLoop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		cancel()
		return nil
	}
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()
	defer close(done)
	defer cancel()

	l.logger.Info("tick loop started", zap.Duration("interval", l.interval))
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("tick loop stopped", zap.Uint64("skipped", l.Skipped()))
			return nil
		case <-ticker.C:
			if !l.target.Tick() {
				l.mu.Lock()
				l.skipped++
				l.mu.Unlock()
			}
		}
	}
}

// Stop ends the loop and waits for a running Run to return. A Run started
// after Stop returns immediately. Stop is idempotent.
func (l *TickLoop) Stop() {
	l.mu.Lock()
	l.stopped = true
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Skipped returns the number of ticks the target skipped while paused.
func (l *TickLoop) Skipped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.skipped
}
