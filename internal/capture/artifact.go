package capture

// Artifact is the terminal output of a finished recording session.
// Immutable once produced; the sole hand-off to transcription and
// guide generation.
type Artifact struct {
	Bytes    []byte
	MimeType string
	FileName string
}

// Empty reports whether the artifact carries no media data. A
// zero-chunk recording finalizes into an empty but valid artifact.
func (a *Artifact) Empty() bool {
	return len(a.Bytes) == 0
}
