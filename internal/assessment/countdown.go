package assessment

import (
	"context"
	"sync"
	"time"
)

// Step is how much time one tick takes off the countdown.
const Step = 1000 * time.Millisecond

// Countdown counts a remaining duration down in one-second steps and calls
// onDone exactly once when it reaches zero. It holds no persistent state:
// callers recompute the remaining duration from a fixed deadline and Reset.
type Countdown struct {
	mu        sync.Mutex
	remaining time.Duration
	interval  time.Duration
	onDone    func()
	fired     bool
	ticks     int

	ctx  context.Context
	stop chan struct{}
}

// NewCountdown creates a stopped countdown. interval is the wall-clock time
// between ticks; production uses one second.
func NewCountdown(remaining, interval time.Duration, onDone func()) *Countdown {
	if interval <= 0 {
		interval = Step
	}
	return &Countdown{
		remaining: remaining,
		interval:  interval,
		onDone:    onDone,
	}
}

// Start begins ticking until zero, Stop, or ctx cancellation. A countdown
// that is already at zero completes immediately.
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return
	}
	c.ctx = ctx
	if c.remaining <= 0 {
		c.remaining = 0
		done := c.complete()
		c.mu.Unlock()
		if done != nil {
			done()
		}
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(ctx, stop)
}

func (c *Countdown) run(ctx context.Context, stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if c.tick(stop) {
				return
			}
		}
	}
}

// Tick takes one Step off the countdown and reports whether it has finished.
// The tick that reaches zero runs onDone; later ticks are no-ops.
func (c *Countdown) Tick() bool {
	return c.tick(nil)
}

// tick is Tick for the goroutine owning arm; ticks from a superseded arm are
// dropped.
func (c *Countdown) tick(arm chan struct{}) bool {
	c.mu.Lock()
	if arm != nil && c.stop != arm {
		c.mu.Unlock()
		return true
	}
	if c.fired {
		c.mu.Unlock()
		return true
	}
	c.ticks++
	c.remaining -= Step
	var done func()
	if c.remaining <= 0 {
		c.remaining = 0
		done = c.complete()
	}
	finished := c.fired
	c.mu.Unlock()

	if done != nil {
		done()
	}
	return finished
}

// complete marks the countdown finished and returns the callback to run
// outside the lock. Must be called with mu held.
func (c *Countdown) complete() func() {
	if c.fired {
		return nil
	}
	c.fired = true
	c.stop = nil
	if c.onDone == nil {
		return func() {}
	}
	return c.onDone
}

// Reset re-arms the countdown with a new remaining duration, including one
// that already finished. A started countdown keeps ticking from the new value
// and will call onDone again when it reaches zero.
func (c *Countdown) Reset(remaining time.Duration) {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.remaining = remaining
	c.fired = false
	c.ticks = 0
	ctx := c.ctx
	c.mu.Unlock()

	if ctx != nil {
		c.Start(ctx)
	}
}

// Stop halts ticking without running onDone.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = nil
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) Ticks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

func (c *Countdown) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}
