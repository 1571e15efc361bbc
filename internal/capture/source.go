package capture

import "fmt"

// Source identifies the logical origin of a recording.
type Source string

const (
	SourceCamera Source = "camera"
	SourceScreen Source = "screen"
	SourceAudio  Source = "audio"
)

// ParseSource converts a user-supplied string into a Source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceCamera, SourceScreen, SourceAudio:
		return Source(s), nil
	default:
		return "", fmt.Errorf("unknown capture source %q (expected camera, screen or audio)", s)
	}
}

// Config selects the acquisition path for one recording session.
// IncludeMic is only meaningful for camera and screen sources; an
// audio-only session always records the microphone.
type Config struct {
	Source     Source
	IncludeMic bool
}

// HasVideo reports whether the configured source produces a video track.
func (c Config) HasVideo() bool {
	return c.Source == SourceCamera || c.Source == SourceScreen
}

// Preferred device constraints. The camera path asks for 720p, the
// screen path for 1080p at 30 fps; providers are free to hand back
// whatever the hardware actually supports.
const (
	CameraWidth  = 1280
	CameraHeight = 720

	ScreenWidth     = 1920
	ScreenHeight    = 1080
	ScreenFrameRate = 30
)
