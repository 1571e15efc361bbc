package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// MediaSession represents one live acquisition. It owns its tracks
// exclusively: no other component may stop them directly, and none may
// remain live after Release returns.
type MediaSession struct {
	id     string
	logger *slog.Logger

	mu       sync.Mutex
	tracks   []Track
	composed bool
	released bool
}

// NewMediaSession creates a session owning the given live tracks.
func NewMediaSession(tracks ...Track) *MediaSession {
	id := uuid.NewString()
	return &MediaSession{
		id:     id,
		tracks: tracks,
		logger: slog.With("component", "media_session", "session", id),
	}
}

func (s *MediaSession) ID() string { return s.id }

// Tracks returns the session's current track set.
func (s *MediaSession) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// VideoTracks returns the video tracks owned by the session.
func (s *MediaSession) VideoTracks() []Track {
	return s.tracksOfKind(TrackKindVideo)
}

// AudioTracks returns the audio tracks owned by the session.
func (s *MediaSession) AudioTracks() []Track {
	return s.tracksOfKind(TrackKindAudio)
}

func (s *MediaSession) tracksOfKind(kind TrackKind) []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// AddTrack transfers ownership of an extra track into the session
// without disturbing already-attached tracks.
func (s *MediaSession) AddTrack(t Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("session %s already released", s.id)
	}
	s.tracks = append(s.tracks, t)
	return nil
}

// LiveTrackCount returns how many owned tracks are still live.
func (s *MediaSession) LiveTrackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tracks {
		if t.ReadyState() == ReadyStateLive {
			n++
		}
	}
	return n
}

// Release stops every owned track. Idempotent: releasing twice, or a
// session whose tracks already ended, is a no-op.
func (s *MediaSession) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	tracks := s.tracks
	s.mu.Unlock()

	for _, t := range tracks {
		t.Stop()
	}
	s.logger.Debug("Session released", "tracks", len(tracks))
}
