package capture

import (
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4/pkg/media"
)

// TrackKind distinguishes video and audio tracks.
type TrackKind string

const (
	TrackKindVideo TrackKind = "video"
	TrackKindAudio TrackKind = "audio"
)

// ReadyState reports whether a track still delivers samples.
type ReadyState string

const (
	ReadyStateLive  ReadyState = "live"
	ReadyStateEnded ReadyState = "ended"
)

// Track is one live hardware media track. Samples arrive in capture
// order on the channel returned by Samples; the channel is closed when
// the track ends, whichever side initiated it.
type Track interface {
	Kind() TrackKind
	Label() string
	ReadyState() ReadyState

	// Samples delivers encoded media samples in strict capture order.
	Samples() <-chan media.Sample

	// Stop ends the track from our side. Idempotent.
	Stop()

	// OnEnded registers a handler fired when the track ends out-of-band,
	// e.g. the platform's own "stop sharing" affordance. Handlers are
	// not fired for a local Stop.
	OnEnded(fn func())
}

// SampleTrack is the channel-backed Track used by providers. The
// producer side pushes samples; the single consumer reads them from
// Samples until the track ends.
type SampleTrack struct {
	kind  TrackKind
	label string

	mu       sync.Mutex
	state    ReadyState
	external bool
	width    int
	height   int
	samples  chan media.Sample
	onEnded  []func()
	onStop   func()
	logger   *slog.Logger
}

// NewSampleTrack creates a live track with the given sample buffer size.
func NewSampleTrack(kind TrackKind, label string, bufferSize int) *SampleTrack {
	return &SampleTrack{
		kind:    kind,
		label:   label,
		state:   ReadyStateLive,
		samples: make(chan media.Sample, bufferSize),
		logger:  slog.With("component", "track", "kind", kind, "label", label),
	}
}

func (t *SampleTrack) Kind() TrackKind { return t.kind }

func (t *SampleTrack) Label() string { return t.label }

func (t *SampleTrack) ReadyState() ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *SampleTrack) Samples() <-chan media.Sample { return t.samples }

// SetDimensions records the frame size the source actually delivers,
// for container metadata. Meaningful on video tracks only.
func (t *SampleTrack) SetDimensions(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.width, t.height = width, height
}

// Dimensions returns the reported frame size; zero when unknown.
func (t *SampleTrack) Dimensions() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// SetStopFunc installs the provider teardown hook invoked exactly once
// when the track ends, regardless of which side ended it.
func (t *SampleTrack) SetStopFunc(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// Push delivers a sample to the consumer. Returns false once the track
// has ended. A full buffer drops the sample rather than blocking the
// producer.
func (t *SampleTrack) Push(s media.Sample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != ReadyStateLive {
		return false
	}

	select {
	case t.samples <- s:
	default:
		t.logger.Warn("Sample buffer full, dropping sample", "size", len(s.Data))
	}
	return true
}

// Stop ends the track from the consumer side. Idempotent.
func (t *SampleTrack) Stop() {
	t.end(false)
}

// End marks the track ended by the platform (source went away). Fires
// OnEnded handlers. Idempotent.
func (t *SampleTrack) End() {
	t.end(true)
}

func (t *SampleTrack) end(external bool) {
	t.mu.Lock()
	if t.state == ReadyStateEnded {
		t.mu.Unlock()
		return
	}
	t.state = ReadyStateEnded
	t.external = external
	close(t.samples)
	handlers := t.onEnded
	stop := t.onStop
	t.mu.Unlock()

	if stop != nil {
		stop()
	}
	if external {
		t.logger.Info("Track ended by platform")
		for _, fn := range handlers {
			fn()
		}
	}
}

// OnEnded registers fn for an out-of-band track end. A handler
// registered after the track already ended externally fires at once,
// so a registration racing the end is never lost.
func (t *SampleTrack) OnEnded(fn func()) {
	t.mu.Lock()
	if t.state == ReadyStateEnded {
		external := t.external
		t.mu.Unlock()
		if external {
			fn()
		}
		return
	}
	t.onEnded = append(t.onEnded, fn)
	t.mu.Unlock()
}
