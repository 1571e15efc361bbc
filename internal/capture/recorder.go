package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"k8s.io/utils/clock"
)

// State is the recorder's tagged lifecycle state. Illegal flag
// combinations of the implicit recording/hasRecording/error style are
// unrepresentable here.
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateFinalized State = "finalized"
	StateErrored   State = "errored"
)

// Recorder drives one recording at a time through
// Idle → Starting → Recording → Stopping → Finalized, with Errored
// reachable from Starting and Recording. It owns the chunk buffer and
// the elapsed-seconds clock, and guarantees track release on every
// exit path.
type Recorder struct {
	mgr        *Manager
	newEncoder EncoderFactory
	clk        *RecordingClock
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	buf      *Buffer
	enc      Encoder
	acq      *Acquisition
	source   Source
	artifact *Artifact
	lastErr  *Error

	subMu sync.RWMutex
	subs  map[string]chan []byte
}

// RecorderOption customizes recorder construction.
type RecorderOption func(*Recorder)

// WithClock substitutes the time source backing the recording clock.
func WithClock(clk clock.WithTicker) RecorderOption {
	return func(r *Recorder) { r.clk = NewRecordingClock(clk) }
}

// WithEncoderFactory substitutes the encoder constructor.
func WithEncoderFactory(f EncoderFactory) RecorderOption {
	return func(r *Recorder) { r.newEncoder = f }
}

// NewRecorder creates an idle recorder over the given device manager.
func NewRecorder(mgr *Manager, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		mgr:        mgr,
		newEncoder: NewEncoder,
		clk:        NewRecordingClock(nil),
		logger:     slog.With("component", "recorder"),
		state:      StateIdle,
		subs:       make(map[string]chan []byte),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Artifact returns the finalized artifact. Defined only in Finalized.
func (r *Recorder) Artifact() (*Artifact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateFinalized || r.artifact == nil {
		return nil, false
	}
	return r.artifact, true
}

// Err returns the classified error after a failed start, if any.
func (r *Recorder) Err() *Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// ElapsedSeconds returns the recording clock value: live while
// recording, frozen after stop, zero outside a session.
func (r *Recorder) ElapsedSeconds() int {
	return r.clk.Seconds()
}

// Session returns the live primary session while recording, for
// preview wiring. Nil in any other state.
func (r *Recorder) Session() *MediaSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording || r.acq == nil {
		return nil
	}
	return r.acq.Primary
}

// Start drives Idle/Errored/Finalized into Starting and, on success,
// Recording. Any acquisition or encoder failure releases everything
// acquired so far and lands in Errored with a classified error.
func (r *Recorder) Start(ctx context.Context, cfg Config) error {
	r.mu.Lock()
	switch r.state {
	case StateIdle, StateErrored, StateFinalized:
	default:
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("start rejected: recorder is %s", state)
	}
	r.state = StateStarting
	r.source = cfg.Source
	r.artifact = nil
	r.lastErr = nil
	r.buf = NewBuffer()
	r.mu.Unlock()

	r.logger.Info("Starting recording", "source", cfg.Source, "mic", cfg.IncludeMic)

	// Suspension point: device permission prompt + hardware negotiation.
	acq, err := r.mgr.Acquire(ctx, cfg)
	if err != nil {
		return r.failStart(err)
	}
	if err := ctx.Err(); err != nil {
		// The start was abandoned while the prompt was open; whatever
		// landed must not stay live.
		acq.Release()
		return r.failStart(err)
	}

	if acq.Mic != nil {
		micTracks := acq.Mic.AudioTracks()
		if len(micTracks) == 0 {
			acq.Release()
			return r.failStart(NewError(KindDeviceNotFound, "combine", fmt.Errorf("microphone session has no audio track")))
		}
		if err := Combine(acq.Primary, micTracks[0]); err != nil {
			acq.Release()
			return r.failStart(classify("combine", err))
		}
	}

	mimeType := NegotiateMimeType(cfg.HasVideo(), SupportsMimeType)
	enc, err := r.newEncoder(mimeType)
	if err != nil {
		acq.Release()
		return r.failStart(classify("encoder", err))
	}
	// The buffer is bound to the encoder by closure so a chunk can
	// never land in a later session's buffer.
	buf := r.buf
	emit := func(chunk []byte) {
		buf.Append(chunk)
		r.publishChunk(chunk)
	}
	if err := enc.Start(acq.Primary, emit); err != nil {
		acq.Release()
		return r.failStart(classify("encoder", err))
	}

	r.mu.Lock()
	r.acq = acq
	r.enc = enc
	r.state = StateRecording
	r.mu.Unlock()

	// The platform ending the primary video track (screen share
	// stopped from outside) routes through the same stop path as a
	// manual stop.
	for _, t := range acq.Primary.VideoTracks() {
		t.OnEnded(func() {
			r.logger.Info("Primary track ended by platform, stopping recording")
			if err := r.Stop(); err != nil {
				r.logger.Warn("Stop after platform track end failed", "error", err)
			}
		})
	}

	r.clk.Start()
	r.logger.Info("Recording", "source", cfg.Source, "mime", enc.MimeType())
	return nil
}

// failStart transitions into Errored with a classified error. Tracks
// are already released by the caller. A cancelled acquisition is an
// abandonment, not a failure: the recorder returns to a neutral Idle.
func (r *Recorder) failStart(err error) error {
	if errors.Is(err, context.Canceled) {
		r.mu.Lock()
		r.state = StateIdle
		r.lastErr = nil
		r.mu.Unlock()
		r.clk.Reset()
		r.logger.Info("Recording start abandoned")
		return err
	}

	cerr := classify("start", err)
	r.mu.Lock()
	r.state = StateErrored
	r.lastErr = cerr
	r.mu.Unlock()
	// The clock never started this session; a stale frozen value must
	// not survive into Errored.
	r.clk.Reset()
	r.logger.Error("Recording start failed", "kind", cerr.Kind, "error", cerr)
	return cerr
}

// Stop drives Recording → Stopping → Finalized. The clock freezes the
// instant stopping begins; track release always runs, even when
// finalization partially fails. A stop in any other state is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil
	}
	r.state = StateStopping
	enc := r.enc
	acq := r.acq
	buf := r.buf
	source := r.source
	r.mu.Unlock()

	r.clk.Stop()

	// Cleanup always runs: tracks are released and the terminal state
	// is reached regardless of encoder finalization errors.
	defer func() {
		acq.Release()
		r.mu.Lock()
		r.acq = nil
		r.enc = nil
		r.state = StateFinalized
		r.mu.Unlock()
	}()

	encErr := enc.Stop()
	if encErr != nil {
		r.logger.Warn("Encoder finalization failed, keeping accumulated chunks", "error", encErr)
	}

	data := buf.Seal()
	artifact := &Artifact{
		Bytes:    data,
		MimeType: enc.MimeType(),
		FileName: FileNameFor(source, enc.MimeType()),
	}

	r.mu.Lock()
	r.artifact = artifact
	r.mu.Unlock()

	r.logger.Info("Recording finalized",
		"file", artifact.FileName, "bytes", len(data), "seconds", r.clk.Seconds())
	return encErr
}

// SubscribeChunks returns a channel receiving copies of each encoded
// chunk as it is produced, for live preview feeds. Slow subscribers
// drop chunks rather than stall the encoder.
func (r *Recorder) SubscribeChunks(id string, bufferSize int) <-chan []byte {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	ch := make(chan []byte, bufferSize)
	r.subs[id] = ch
	r.logger.Debug("Chunk subscriber added", "id", id, "total", len(r.subs))
	return ch
}

// UnsubscribeChunks removes a subscriber and closes its channel.
func (r *Recorder) UnsubscribeChunks(id string) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if ch, ok := r.subs[id]; ok {
		close(ch)
		delete(r.subs, id)
		r.logger.Debug("Chunk subscriber removed", "id", id, "total", len(r.subs))
	}
}

func (r *Recorder) publishChunk(chunk []byte) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	if len(r.subs) == 0 {
		return
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	for id, ch := range r.subs {
		select {
		case ch <- c:
		default:
			r.logger.Warn("Chunk channel full, dropping chunk", "subscriber", id)
		}
	}
}

// Reset returns an Errored or Finalized recorder to Idle, clearing the
// previous artifact and error. Rejected while a session is active.
func (r *Recorder) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateIdle:
		r.clk.Reset()
		return nil
	case StateErrored, StateFinalized:
		r.state = StateIdle
		r.artifact = nil
		r.lastErr = nil
		r.buf = nil
		r.clk.Reset()
		return nil
	default:
		return fmt.Errorf("reset rejected: recorder is %s", r.state)
	}
}
