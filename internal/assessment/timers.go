package assessment

import (
	"context"
	"sync"
	"time"
)

// Timers owns the server-side countdowns of open attempts, keyed by
// submission id. Countdowns run under the registry's context, not the
// request that armed them.
type Timers struct {
	ctx      context.Context
	interval time.Duration

	mu     sync.Mutex
	timers map[string]*Countdown
}

func NewTimers(ctx context.Context, interval time.Duration) *Timers {
	return &Timers{
		ctx:      ctx,
		interval: interval,
		timers:   make(map[string]*Countdown),
	}
}

// Arm starts a countdown for key, or re-arms the existing one with the new
// remaining duration. onDone runs once when the countdown reaches zero.
func (t *Timers) Arm(key string, remaining time.Duration, onDone func()) {
	t.mu.Lock()
	if c, ok := t.timers[key]; ok {
		t.mu.Unlock()
		c.Reset(remaining)
		return
	}
	c := NewCountdown(remaining, t.interval, onDone)
	t.timers[key] = c
	t.mu.Unlock()

	c.Start(t.ctx)
}

// Cancel stops and forgets the countdown for key. It reports whether a
// countdown existed and whether it had already run out.
func (t *Timers) Cancel(key string) (found, expired bool) {
	t.mu.Lock()
	c, ok := t.timers[key]
	delete(t.timers, key)
	t.mu.Unlock()

	if !ok {
		return false, false
	}
	c.Stop()
	return true, c.Done()
}

func (t *Timers) Remaining(key string) (time.Duration, bool) {
	t.mu.Lock()
	c, ok := t.timers[key]
	t.mu.Unlock()
	if !ok {
		return 0, false
	}
	return c.Remaining(), true
}

func (t *Timers) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// StopAll halts every countdown without firing callbacks.
func (t *Timers) StopAll() {
	t.mu.Lock()
	timers := t.timers
	t.timers = make(map[string]*Countdown)
	t.mu.Unlock()

	for _, c := range timers {
		c.Stop()
	}
}
