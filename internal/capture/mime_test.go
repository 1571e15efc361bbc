package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionForMime(t *testing.T) {
	assert.Equal(t, ".webm", ExtensionForMime(MimeVideoWebM))
	assert.Equal(t, ".webm", ExtensionForMime(MimeVideoWebMCodecs))
	assert.Equal(t, ".weba", ExtensionForMime(MimeAudioWebMCodecs))
	assert.Equal(t, ".bin", ExtensionForMime("application/octet-stream"))
}

func TestMimeForExtension(t *testing.T) {
	mime, ok := MimeForExtension(".webm")
	assert.True(t, ok)
	assert.Equal(t, MimeVideoWebM, mime)

	_, ok = MimeForExtension(".mp4")
	assert.False(t, ok)
}

func TestFileNameFor(t *testing.T) {
	assert.Equal(t, "camera-recording.webm", FileNameFor(SourceCamera, MimeVideoWebMCodecs))
	assert.Equal(t, "screen-recording.webm", FileNameFor(SourceScreen, MimeVideoWebM))
	assert.Equal(t, "audio-recording.weba", FileNameFor(SourceAudio, MimeAudioWebMCodecs))
}

func TestNegotiateMimeTypePrefersCodecQualified(t *testing.T) {
	got := NegotiateMimeType(true, func(string) bool { return true })
	assert.Equal(t, MimeVideoWebMCodecs, got)

	got = NegotiateMimeType(false, func(string) bool { return true })
	assert.Equal(t, MimeAudioWebMCodecs, got)
}

func TestNegotiateMimeTypeSilentFallback(t *testing.T) {
	// The fallback is the bare container, not an error.
	got := NegotiateMimeType(true, func(string) bool { return false })
	assert.Equal(t, MimeVideoWebM, got)

	got = NegotiateMimeType(false, func(mime string) bool { return mime == MimeAudioWebM })
	assert.Equal(t, MimeAudioWebM, got)
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("screen")
	assert.NoError(t, err)
	assert.Equal(t, SourceScreen, src)

	_, err = ParseSource("window")
	assert.Error(t, err)
}
