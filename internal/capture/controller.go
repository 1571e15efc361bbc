package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Preview is the single previewable handle exposed to a UI: the live
// session while recording, or the finalized artifact, never both.
type Preview struct {
	Live     *MediaSession
	Artifact *Artifact
}

// Controller is the top-level capture session controller consumed by
// the UI layer. It owns exactly one recorder and at most one live
// acquisition at any time.
type Controller struct {
	rec    *Recorder
	logger *slog.Logger

	mu          sync.Mutex
	cfg         Config
	cancelStart context.CancelFunc
	startGen    uint64
	closed      bool
}

// NewController wires a controller over the given capture provider.
func NewController(provider Provider, opts ...RecorderOption) *Controller {
	mgr := NewManager(provider)
	return &Controller{
		rec:    NewRecorder(mgr, opts...),
		logger: slog.With("component", "capture_controller"),
		cfg:    Config{Source: SourceScreen},
	}
}

// Config returns the currently selected capture configuration.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetSource selects the capture source for the next session. Rejected
// (a logged no-op) while recording. Selecting a source clears any
// previous artifact or error and abandons an acquisition still waiting
// on the permission prompt.
func (c *Controller) SetSource(source Source, includeMic bool) {
	state := c.rec.State()
	if state == StateRecording || state == StateStopping {
		c.logger.Warn("Source change rejected while recording", "requested", source)
		return
	}

	c.mu.Lock()
	if c.cancelStart != nil {
		// Abandon an in-flight acquisition; the acquire path releases
		// any tracks that still land after the switch.
		c.cancelStart()
		c.cancelStart = nil
	}
	c.cfg = Config{Source: source, IncludeMic: includeMic}
	c.mu.Unlock()

	if err := c.rec.Reset(); err != nil {
		c.logger.Debug("Recorder not resettable on source change", "error", err)
	}
	c.logger.Info("Capture source selected", "source", source, "mic", includeMic)
}

// Start begins a recording session with the selected configuration.
// Rejected while an earlier start is still waiting on acquisition.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("controller closed")
	}
	if c.cancelStart != nil {
		c.mu.Unlock()
		return fmt.Errorf("start rejected: acquisition already in progress")
	}
	cfg := c.cfg
	ctx, cancel := context.WithCancel(ctx)
	c.startGen++
	gen := c.startGen
	c.cancelStart = cancel
	c.mu.Unlock()

	err := c.rec.Start(ctx, cfg)

	c.mu.Lock()
	// Clear only our own cancel; SetSource or Close may have cancelled
	// this start and a newer one may already be pending.
	if c.startGen == gen {
		c.cancelStart = nil
	}
	closed := c.closed
	c.mu.Unlock()
	cancel()

	if err == nil && closed {
		// Close raced the start and its Stop ran before we reached
		// Recording. Finish the teardown here.
		c.rec.Stop()
		return fmt.Errorf("controller closed")
	}
	return err
}

// Stop ends the active recording and finalizes the artifact.
func (c *Controller) Stop() error {
	return c.rec.Stop()
}

// State exposes the recorder's lifecycle state.
func (c *Controller) State() State {
	return c.rec.State()
}

// Artifact returns the finalized artifact, defined only once the
// recorder is Finalized.
func (c *Controller) Artifact() (*Artifact, bool) {
	return c.rec.Artifact()
}

// Err returns the last classified capture error, if any.
func (c *Controller) Err() *Error {
	return c.rec.Err()
}

// ElapsedSeconds returns the recording clock value.
func (c *Controller) ElapsedSeconds() int {
	return c.rec.ElapsedSeconds()
}

// Preview returns the current previewable handle. Exactly one of the
// fields is set while recording or finalized; both are nil otherwise.
func (c *Controller) Preview() Preview {
	if session := c.rec.Session(); session != nil {
		return Preview{Live: session}
	}
	if artifact, ok := c.rec.Artifact(); ok {
		return Preview{Artifact: artifact}
	}
	return Preview{}
}

// SubscribeChunks exposes the recorder's live chunk feed.
func (c *Controller) SubscribeChunks(id string, bufferSize int) <-chan []byte {
	return c.rec.SubscribeChunks(id, bufferSize)
}

// UnsubscribeChunks removes a live chunk subscriber.
func (c *Controller) UnsubscribeChunks(id string) {
	c.rec.UnsubscribeChunks(id)
}

// Close tears the controller down unconditionally: a pending
// acquisition is cancelled, an active recording is stopped and
// released, timers are cleared. Safe to call regardless of state and
// must not depend on the user having pressed stop.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancelStart != nil {
		c.cancelStart()
		c.cancelStart = nil
	}
	c.mu.Unlock()

	err := c.rec.Stop()
	c.logger.Info("Capture controller closed")
	return err
}
