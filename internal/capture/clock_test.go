package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

// step advances the fake clock by whole seconds, waiting for the
// ticker goroutine to absorb each tick.
func step(t *testing.T, fc *clocktesting.FakeClock, c *RecordingClock, seconds int) {
	t.Helper()
	for i := 0; i < seconds; i++ {
		want := c.Seconds() + 1
		fc.Step(time.Second)
		require.Eventually(t, func() bool {
			return c.Seconds() >= want
		}, time.Second, time.Millisecond)
	}
}

func TestRecordingClockCounts(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	c := NewRecordingClock(fc)

	assert.Equal(t, 0, c.Seconds())
	c.Start()
	step(t, fc, c, 3)
	assert.Equal(t, 3, c.Seconds())
	c.Stop()
}

func TestRecordingClockFreezesOnStop(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	c := NewRecordingClock(fc)

	c.Start()
	step(t, fc, c, 2)
	c.Stop()
	assert.False(t, c.Running())

	// Ticks after stop must not move the frozen value.
	fc.Step(5 * time.Second)
	assert.Equal(t, 2, c.Seconds())

	// Idempotent.
	c.Stop()
	assert.Equal(t, 2, c.Seconds())
}

func TestRecordingClockResetZeroes(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	c := NewRecordingClock(fc)

	c.Start()
	step(t, fc, c, 2)
	c.Stop()
	require.Equal(t, 2, c.Seconds())

	c.Reset()
	assert.Equal(t, 0, c.Seconds())
	assert.False(t, c.Running())

	// Reset while running stops the clock too.
	c.Start()
	step(t, fc, c, 1)
	c.Reset()
	assert.Equal(t, 0, c.Seconds())
	assert.False(t, c.Running())
}

func TestRecordingClockRestartResets(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	c := NewRecordingClock(fc)

	c.Start()
	step(t, fc, c, 4)
	c.Stop()
	require.Equal(t, 4, c.Seconds())

	c.Start()
	assert.Equal(t, 0, c.Seconds())
	step(t, fc, c, 1)
	assert.Equal(t, 1, c.Seconds())
	c.Stop()
}
