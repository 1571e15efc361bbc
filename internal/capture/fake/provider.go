// Package fake provides an in-memory capture provider for tests and
// for running the studio without real capture hardware.
package fake

import (
	"context"
	"sync"

	"github.com/capscribe/capscribe/internal/capture"
)

// Provider implements capture.Provider with scripted tracks. Tests
// push samples into the tracks it hands out and trigger platform-side
// track endings.
type Provider struct {
	mu        sync.Mutex
	supported bool

	userErr    error
	displayErr error

	// Prompt, when set, simulates the permission prompt: acquisition
	// blocks until the channel is closed or the context is cancelled.
	Prompt chan struct{}

	videoTracks []*capture.SampleTrack
	audioTracks []*capture.SampleTrack
	sessions    []*capture.MediaSession

	lastUserReq    capture.UserMediaRequest
	lastDisplayReq capture.DisplayMediaRequest
}

// NewProvider returns a supported provider that fulfils every request.
func NewProvider() *Provider {
	return &Provider{supported: true}
}

func (p *Provider) Name() string { return "fake" }

func (p *Provider) Supported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supported
}

// SetSupported toggles the capability report.
func (p *Provider) SetSupported(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.supported = v
}

// FailUserMedia makes user-media acquisitions fail with err.
func (p *Provider) FailUserMedia(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userErr = err
}

// FailDisplayMedia makes display-media acquisitions fail with err.
func (p *Provider) FailDisplayMedia(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.displayErr = err
}

func (p *Provider) AcquireUserMedia(ctx context.Context, req capture.UserMediaRequest) (*capture.MediaSession, error) {
	p.mu.Lock()
	p.lastUserReq = req
	err := p.userErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var tracks []capture.Track
	var created []*capture.SampleTrack
	if req.Video {
		t := capture.NewSampleTrack(capture.TrackKindVideo, "fake-camera", 64)
		t.SetDimensions(req.VideoWidth, req.VideoHeight)
		tracks = append(tracks, t)
		created = append(created, t)
	}
	if req.Audio {
		t := capture.NewSampleTrack(capture.TrackKindAudio, "fake-microphone", 64)
		tracks = append(tracks, t)
		created = append(created, t)
	}

	if err := p.awaitPrompt(ctx, created); err != nil {
		return nil, err
	}
	return p.register(tracks, created), nil
}

func (p *Provider) AcquireDisplayMedia(ctx context.Context, req capture.DisplayMediaRequest) (*capture.MediaSession, error) {
	p.mu.Lock()
	p.lastDisplayReq = req
	err := p.displayErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	video := capture.NewSampleTrack(capture.TrackKindVideo, "fake-display", 64)
	video.SetDimensions(req.Width, req.Height)
	tracks := []capture.Track{video}
	created := []*capture.SampleTrack{video}
	if req.Audio {
		t := capture.NewSampleTrack(capture.TrackKindAudio, "fake-system-audio", 64)
		tracks = append(tracks, t)
		created = append(created, t)
	}

	if err := p.awaitPrompt(ctx, created); err != nil {
		return nil, err
	}
	return p.register(tracks, created), nil
}

// awaitPrompt blocks on the scripted permission prompt. A cancelled
// context releases the tracks that already landed and aborts.
func (p *Provider) awaitPrompt(ctx context.Context, created []*capture.SampleTrack) error {
	p.mu.Lock()
	prompt := p.Prompt
	p.mu.Unlock()
	if prompt == nil {
		return nil
	}
	select {
	case <-prompt:
		return nil
	case <-ctx.Done():
		for _, t := range created {
			t.Stop()
		}
		return ctx.Err()
	}
}

func (p *Provider) register(tracks []capture.Track, created []*capture.SampleTrack) *capture.MediaSession {
	session := capture.NewMediaSession(tracks...)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = append(p.sessions, session)
	for _, t := range created {
		if t.Kind() == capture.TrackKindVideo {
			p.videoTracks = append(p.videoTracks, t)
		} else {
			p.audioTracks = append(p.audioTracks, t)
		}
	}
	return session
}

// VideoTracks returns every video track handed out, in order.
func (p *Provider) VideoTracks() []*capture.SampleTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*capture.SampleTrack(nil), p.videoTracks...)
}

// AudioTracks returns every audio track handed out, in order.
func (p *Provider) AudioTracks() []*capture.SampleTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*capture.SampleTrack(nil), p.audioTracks...)
}

// Sessions returns every session handed out, in order.
func (p *Provider) Sessions() []*capture.MediaSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*capture.MediaSession(nil), p.sessions...)
}

// LiveTrackCount reports how many handed-out tracks are still live.
func (p *Provider) LiveTrackCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.videoTracks {
		if t.ReadyState() == capture.ReadyStateLive {
			n++
		}
	}
	for _, t := range p.audioTracks {
		if t.ReadyState() == capture.ReadyStateLive {
			n++
		}
	}
	return n
}

// LastUserMediaRequest returns the most recent user-media request.
func (p *Provider) LastUserMediaRequest() capture.UserMediaRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUserReq
}

// LastDisplayMediaRequest returns the most recent display request.
func (p *Provider) LastDisplayMediaRequest() capture.DisplayMediaRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastDisplayReq
}
