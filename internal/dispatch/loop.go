package dispatch

import (
	"context"
	"time"

	"github.com/bhandras/avatarctl/internal/logger"
)

// Ticker receives per-tick work after the queue has been drained.
type Ticker interface {
	Tick(dt time.Duration)
}

// TickerFunc adapts a function to Ticker.
type TickerFunc func(dt time.Duration)

// Tick implements Ticker.
func (f TickerFunc) Tick(dt time.Duration) { f(dt) }

// Loop is the owner execution context. It is the only goroutine allowed to
// run commands and mutate engine state.
type Loop struct {
	queue    *Queue
	interval time.Duration
	tickers  []Ticker
	now      func() time.Time
}

// NewLoop creates an owner loop draining queue every interval. Tickers run in
// order after each drain.
func NewLoop(queue *Queue, interval time.Duration, tickers ...Ticker) *Loop {
	return &Loop{
		queue:    queue,
		interval: interval,
		tickers:  tickers,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled. Commands still queued at cancellation are
// not executed.
func (l *Loop) Run(ctx context.Context) {
	t := time.NewTicker(l.interval)
	defer t.Stop()

	last := l.now()
	logger.Debugf("[owner] loop started (interval=%s)", l.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Debugf("[owner] loop stopped; %d command(s) left queued", l.queue.Len())
			return
		case <-t.C:
			now := l.now()
			l.Step(now.Sub(last))
			last = now
		}
	}
}

// Step performs one tick synchronously: drain the queue once, then run the
// tickers with the elapsed time dt.
func (l *Loop) Step(dt time.Duration) {
	if n := l.queue.DrainOnce(); n > 0 {
		logger.Debugf("[owner] drained %d command(s)", n)
	}
	for _, tk := range l.tickers {
		tk.Tick(dt)
	}
}
