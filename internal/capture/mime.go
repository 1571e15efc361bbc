package capture

import (
	"log/slog"
	"strings"

	"github.com/vishalkuo/bimap"
)

// MIME types the pipeline negotiates between. The codec-qualified
// variants are preferred; the bare containers are the platform-default
// fallback when the preferred codec is unavailable.
const (
	MimeVideoWebMCodecs = `video/webm;codecs="h264,opus"`
	MimeVideoWebM       = "video/webm"
	MimeAudioWebMCodecs = `audio/webm;codecs="opus"`
	MimeAudioWebM       = "audio/webm"
)

// extensionTable maps container MIME types to file extensions in both
// directions; the reverse direction serves uploaded-file sniffing in
// the service clients.
var extensionTable = func() *bimap.BiMap[string, string] {
	m := bimap.NewBiMap[string, string]()
	m.Insert(MimeVideoWebM, ".webm")
	m.Insert(MimeAudioWebM, ".weba")
	m.MakeImmutable()
	return m
}()

// ExtensionForMime returns the file extension for a MIME type,
// ignoring any codec parameters. Unknown types get ".bin".
func ExtensionForMime(mimeType string) string {
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if ext, ok := extensionTable.Get(base); ok {
		return ext
	}
	return ".bin"
}

// MimeForExtension returns the container MIME type for a file
// extension, if known.
func MimeForExtension(ext string) (string, bool) {
	return extensionTable.GetInverse(strings.ToLower(ext))
}

// FileNameFor derives the deterministic artifact file name for a
// source and negotiated MIME type.
func FileNameFor(source Source, mimeType string) string {
	var stem string
	switch source {
	case SourceCamera:
		stem = "camera-recording"
	case SourceScreen:
		stem = "screen-recording"
	default:
		stem = "audio-recording"
	}
	return stem + ExtensionForMime(mimeType)
}

// NegotiateMimeType picks the recording MIME type for a session shape.
// The preferred codec-qualified type wins when the encoder supports
// it; otherwise the default container is used silently, never surfaced
// as an error.
func NegotiateMimeType(hasVideo bool, supports func(string) bool) string {
	preferred, fallback := MimeAudioWebMCodecs, MimeAudioWebM
	if hasVideo {
		preferred, fallback = MimeVideoWebMCodecs, MimeVideoWebM
	}
	if supports(preferred) {
		return preferred
	}
	slog.Debug("Preferred codec unsupported, falling back to default container",
		"preferred", preferred, "fallback", fallback)
	return fallback
}
