package capture

import "sync"

// Buffer accumulates encoded chunks during one active recording.
// Append-only, strictly in arrival order, and sealed exactly once at
// finalization; a chunk arriving after the seal belongs to no
// recording and is dropped.
type Buffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
	sealed bool
}

// NewBuffer returns an empty buffer for a new session.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds a chunk at the end of the buffer. The chunk is copied so
// callers may reuse their slice. Appends after Seal are ignored.
func (b *Buffer) Append(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	b.chunks = append(b.chunks, c)
	b.size += len(c)
}

// ChunkCount returns the number of chunks appended so far.
func (b *Buffer) ChunkCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Size returns the total byte size accumulated so far.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Seal closes the buffer and concatenates its chunks into one blob,
// preserving append order byte for byte. Zero chunks seal into an
// empty, valid blob. Further appends become no-ops.
func (b *Buffer) Seal() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true

	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}
