package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineAddsMicTrack(t *testing.T) {
	display := NewSampleTrack(TrackKindVideo, "display", 1)
	primary := NewMediaSession(display)
	mic := NewSampleTrack(TrackKindAudio, "microphone", 1)

	require.NoError(t, Combine(primary, mic))
	require.Len(t, primary.AudioTracks(), 1)
	assert.Equal(t, "microphone", primary.AudioTracks()[0].Label())

	// Release of the composed session covers the merged track too.
	primary.Release()
	assert.Equal(t, ReadyStateEnded, mic.ReadyState())
}

func TestCombineRejectsSecondCompose(t *testing.T) {
	primary := NewMediaSession(NewSampleTrack(TrackKindVideo, "display", 1))
	require.NoError(t, Combine(primary, NewSampleTrack(TrackKindAudio, "a", 1)))

	err := Combine(primary, NewSampleTrack(TrackKindAudio, "b", 1))
	assert.ErrorContains(t, err, "already composed")
}

func TestCombineRejectsNonAudioTrack(t *testing.T) {
	primary := NewMediaSession(NewSampleTrack(TrackKindVideo, "display", 1))
	err := Combine(primary, NewSampleTrack(TrackKindVideo, "cam", 1))
	assert.ErrorContains(t, err, "not audio")
}

func TestCombineRejectsReleasedSession(t *testing.T) {
	primary := NewMediaSession(NewSampleTrack(TrackKindVideo, "display", 1))
	primary.Release()
	err := Combine(primary, NewSampleTrack(TrackKindAudio, "a", 1))
	assert.ErrorContains(t, err, "already released")
}
