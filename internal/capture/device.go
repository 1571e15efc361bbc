package capture

import (
	"context"
	"fmt"
	"log/slog"
)

// UserMediaRequest asks a provider for camera and/or microphone tracks
// as one joint acquisition.
type UserMediaRequest struct {
	Video       bool
	VideoWidth  int
	VideoHeight int
	Audio       bool
}

// DisplayMediaRequest asks a provider for a display-capture video track
// plus whatever system audio the platform grants in the same request.
type DisplayMediaRequest struct {
	Width     int
	Height    int
	FrameRate int
	Audio     bool
}

// Provider is the platform capture capability surface. Implementations
// return sessions whose tracks deliver encoded samples, and classify
// their failures with the Kind taxonomy where they can.
type Provider interface {
	Name() string

	// Supported reports whether capture is available at all in this
	// environment. Acquisition must not be attempted when false.
	Supported() bool

	AcquireUserMedia(ctx context.Context, req UserMediaRequest) (*MediaSession, error)
	AcquireDisplayMedia(ctx context.Context, req DisplayMediaRequest) (*MediaSession, error)
}

// Acquisition is the result of acquiring devices for one Config. For a
// screen capture with microphone the mic arrives as a second session,
// since display and user media are separate platform requests.
type Acquisition struct {
	Primary *MediaSession
	Mic     *MediaSession
}

// Release releases every session in the acquisition. Idempotent.
func (a *Acquisition) Release() {
	if a == nil {
		return
	}
	if a.Primary != nil {
		a.Primary.Release()
	}
	if a.Mic != nil {
		a.Mic.Release()
	}
}

// LiveTrackCount sums live tracks across the acquisition's sessions.
func (a *Acquisition) LiveTrackCount() int {
	if a == nil {
		return 0
	}
	n := 0
	if a.Primary != nil {
		n += a.Primary.LiveTrackCount()
	}
	if a.Mic != nil {
		n += a.Mic.LiveTrackCount()
	}
	return n
}

// Manager is the device session manager: it acquires sessions for a
// Config and guarantees that a failed or abandoned acquisition never
// leaves a track live.
type Manager struct {
	provider Provider
	logger   *slog.Logger
}

// NewManager creates a manager over the given capture provider.
func NewManager(provider Provider) *Manager {
	return &Manager{
		provider: provider,
		logger:   slog.With("component", "device_manager", "provider", provider.Name()),
	}
}

// Acquire obtains the sessions required by cfg. On any failure every
// track that already landed is released before the classified error is
// returned.
func (m *Manager) Acquire(ctx context.Context, cfg Config) (*Acquisition, error) {
	if !m.provider.Supported() {
		return nil, NewError(KindUnsupported, "acquire", fmt.Errorf("provider %s reports no capture capability", m.provider.Name()))
	}

	switch cfg.Source {
	case SourceCamera:
		session, err := m.provider.AcquireUserMedia(ctx, UserMediaRequest{
			Video:       true,
			VideoWidth:  CameraWidth,
			VideoHeight: CameraHeight,
			Audio:       cfg.IncludeMic,
		})
		if err != nil {
			return nil, classify("acquire camera", err)
		}
		m.logger.Debug("Camera session acquired", "session", session.ID(), "mic", cfg.IncludeMic)
		return &Acquisition{Primary: session}, nil

	case SourceScreen:
		primary, err := m.provider.AcquireDisplayMedia(ctx, DisplayMediaRequest{
			Width:     ScreenWidth,
			Height:    ScreenHeight,
			FrameRate: ScreenFrameRate,
			Audio:     true,
		})
		if err != nil {
			return nil, classify("acquire screen", err)
		}

		acq := &Acquisition{Primary: primary}
		if cfg.IncludeMic {
			// Microphone is a separate platform request; a failure here
			// must not leave the display tracks live.
			mic, err := m.provider.AcquireUserMedia(ctx, UserMediaRequest{Audio: true})
			if err != nil {
				acq.Release()
				return nil, classify("acquire microphone", err)
			}
			acq.Mic = mic
		}
		m.logger.Debug("Screen session acquired", "session", primary.ID(), "mic", cfg.IncludeMic)
		return acq, nil

	case SourceAudio:
		session, err := m.provider.AcquireUserMedia(ctx, UserMediaRequest{Audio: true})
		if err != nil {
			return nil, classify("acquire microphone", err)
		}
		m.logger.Debug("Audio session acquired", "session", session.ID())
		return &Acquisition{Primary: session}, nil

	default:
		return nil, NewError(KindUnknown, "acquire", fmt.Errorf("unknown capture source %q", cfg.Source))
	}
}

// Release stops every track the acquisition owns. Safe to call more
// than once.
func (m *Manager) Release(acq *Acquisition) {
	acq.Release()
}
