package capture

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// RecordingClock counts whole seconds since recording start. It starts
// at zero on Start, advances by one per elapsed second while running,
// and freezes the instant Stop is called. Start resets a previous run.
type RecordingClock struct {
	clk clock.WithTicker

	mu      sync.Mutex
	seconds int
	running bool
	done    chan struct{}
}

// NewRecordingClock builds a clock on the given time source; nil uses
// the real clock.
func NewRecordingClock(clk clock.WithTicker) *RecordingClock {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &RecordingClock{clk: clk}
}

// Start resets the counter to zero and begins ticking.
func (c *RecordingClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.seconds = 0
	c.running = true
	c.done = make(chan struct{})
	// Register the ticker before Start returns so a tick source stepped
	// immediately afterwards is not missed by the loop goroutine.
	ticker := c.clk.NewTicker(time.Second)
	go c.run(ticker, c.done)
}

func (c *RecordingClock) run(ticker clock.Ticker, done chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			c.mu.Lock()
			if c.running {
				c.seconds++
			}
			c.mu.Unlock()
		case <-done:
			return
		}
	}
}

// Stop freezes the counter without resetting it. Idempotent.
func (c *RecordingClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.done)
}

// Reset stops the clock and returns the counter to zero, for leaving
// a session without starting a new one.
func (c *RecordingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.running = false
		close(c.done)
	}
	c.seconds = 0
}

// Seconds returns the current elapsed-seconds value.
func (c *RecordingClock) Seconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seconds
}

// Running reports whether the clock is advancing.
func (c *RecordingClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
