package capture

// Encoder is the streaming encoder capability surface: it consumes a
// session's track samples and emits container chunks, in order, until
// stopped.
type Encoder interface {
	// MimeType returns the container type this encoder produces.
	MimeType() string

	// Start begins encoding the session's tracks. emit is called with
	// each container chunk in output order; it must not be called again
	// after Stop returns.
	Start(session *MediaSession, emit func(chunk []byte)) error

	// Stop drains buffered samples, finalizes the container (emitting
	// any trailing chunks) and releases encoder resources. Idempotent.
	Stop() error
}

// EncoderFactory constructs an encoder for a negotiated MIME type.
type EncoderFactory func(mimeType string) (Encoder, error)

// SupportsMimeType reports whether the built-in encoder can produce
// the given MIME type, codec parameters included.
func SupportsMimeType(mimeType string) bool {
	switch mimeType {
	case MimeVideoWebMCodecs, MimeVideoWebM, MimeAudioWebMCodecs, MimeAudioWebM:
		return true
	default:
		return false
	}
}
