package capture

import "fmt"

// Combine merges a separately acquired microphone track into the
// primary session's track set. Display and microphone audio are
// different capture paths that cannot be requested atomically, so the
// merge happens here, after both acquisitions succeeded.
//
// A session may be composed at most once; the composed session is what
// gets handed to the recorder.
func Combine(primary *MediaSession, micTrack Track) error {
	if primary == nil {
		return fmt.Errorf("combine: nil primary session")
	}
	if micTrack == nil {
		return fmt.Errorf("combine: nil microphone track")
	}
	if micTrack.Kind() != TrackKindAudio {
		return fmt.Errorf("combine: track kind %s is not audio", micTrack.Kind())
	}

	primary.mu.Lock()
	if primary.composed {
		primary.mu.Unlock()
		return fmt.Errorf("combine: session %s already composed", primary.id)
	}
	if primary.released {
		primary.mu.Unlock()
		return fmt.Errorf("combine: session %s already released", primary.id)
	}
	primary.composed = true
	primary.tracks = append(primary.tracks, micTrack)
	primary.mu.Unlock()

	return nil
}
