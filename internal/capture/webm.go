package capture

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Default block durations when a sample carries none.
const (
	defaultAudioFrameDuration = 20 * time.Millisecond
	defaultVideoFrameDuration = 33 * time.Millisecond
)

// WebMEncoder encodes a session's tracks into a WebM container,
// emitting container bytes as ordered chunks. H.264 video and Opus
// audio, matching the codec-qualified MIME types it negotiates.
type WebMEncoder struct {
	mimeType string
	width    int
	height   int
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	writers []webm.BlockWriteCloser
	sink    *chunkSink
}

// NewWebMEncoder creates an encoder for the given negotiated MIME
// type. Video dimensions default to 1080p when the source does not
// say otherwise.
func NewWebMEncoder(mimeType string) (*WebMEncoder, error) {
	if !SupportsMimeType(mimeType) {
		return nil, NewError(KindEncodingUnsupported, "encoder", fmt.Errorf("unsupported mime type %q", mimeType))
	}
	return &WebMEncoder{
		mimeType: mimeType,
		width:    ScreenWidth,
		height:   ScreenHeight,
		logger:   slog.With("component", "webm_encoder", "mime", mimeType),
	}, nil
}

// NewEncoder is the default EncoderFactory.
func NewEncoder(mimeType string) (Encoder, error) {
	return NewWebMEncoder(mimeType)
}

func (e *WebMEncoder) MimeType() string { return e.mimeType }

// chunkSink forwards each container write as one chunk to the emit
// callback, marking itself closed once the encoder finishes.
type chunkSink struct {
	emit   func([]byte)
	logger *slog.Logger
	closed bool
}

func (cs *chunkSink) Write(p []byte) (int, error) {
	if cs.closed {
		return 0, io.ErrClosedPipe
	}
	cs.emit(p)
	return len(p), nil
}

func (cs *chunkSink) Close() error {
	cs.closed = true
	return nil
}

// Start begins encoding. One pump goroutine per track feeds the
// container writers; block order within a track follows sample order.
func (e *WebMEncoder) Start(session *MediaSession, emit func(chunk []byte)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("encoder already started")
	}

	videoTracks := session.VideoTracks()
	audioTracks := session.AudioTracks()

	wantVideo := strings.HasPrefix(e.mimeType, "video/")
	if wantVideo && len(videoTracks) == 0 {
		return NewError(KindEncodingUnsupported, "encoder", fmt.Errorf("mime type %s requires a video track", e.mimeType))
	}
	if !wantVideo {
		videoTracks = nil
	}
	if len(videoTracks) == 0 && len(audioTracks) == 0 {
		return fmt.Errorf("session %s has no tracks to encode", session.ID())
	}

	var entries []webm.TrackEntry
	trackNum := uint64(1)
	for _, t := range videoTracks {
		entries = append(entries, e.videoEntry(t, trackNum))
		trackNum++
	}
	for range audioTracks {
		entries = append(entries, webm.TrackEntry{
			Name:            "Audio",
			TrackNumber:     trackNum,
			TrackUID:        trackNum,
			CodecID:         "A_OPUS",
			TrackType:       2,
			DefaultDuration: uint64(defaultAudioFrameDuration.Nanoseconds()),
			Audio: &webm.Audio{
				SamplingFrequency: 48000.0,
				Channels:          2,
			},
		})
		trackNum++
	}

	e.sink = &chunkSink{emit: emit, logger: e.logger}
	writers, err := webm.NewSimpleBlockWriter(e.sink, entries, mkvcore.WithOnFatalHandler(func(err error) {
		e.logger.Warn("WebM container error", "error", err)
	}))
	if err != nil {
		return NewError(KindEncodingUnsupported, "encoder", fmt.Errorf("create webm writer: %w", err))
	}

	e.writers = writers
	e.stopCh = make(chan struct{})
	e.started = true

	idx := 0
	for _, t := range videoTracks {
		e.wg.Add(1)
		go e.pump(t, writers[idx], defaultVideoFrameDuration, true)
		idx++
	}
	for _, t := range audioTracks {
		e.wg.Add(1)
		go e.pump(t, writers[idx], defaultAudioFrameDuration, false)
		idx++
	}

	e.logger.Debug("Encoder started",
		"session", session.ID(), "video_tracks", len(videoTracks), "audio_tracks", len(audioTracks))
	return nil
}

// videoEntry builds the container metadata for one video track. The
// source's reported frame size wins over the encoder default so a
// camera session is not stamped with screen dimensions.
func (e *WebMEncoder) videoEntry(t Track, trackNum uint64) webm.TrackEntry {
	width, height := e.width, e.height
	if st, ok := t.(*SampleTrack); ok {
		if w, h := st.Dimensions(); w > 0 && h > 0 {
			width, height = w, h
		}
	}
	return webm.TrackEntry{
		Name:            "Video",
		TrackNumber:     trackNum,
		TrackUID:        trackNum,
		CodecID:         "V_MPEG4/ISO/AVC",
		TrackType:       1,
		DefaultDuration: uint64(defaultVideoFrameDuration.Nanoseconds()),
		Video: &webm.Video{
			PixelWidth:  uint64(width),
			PixelHeight: uint64(height),
		},
	}
}

// pump writes one track's samples into its container writer until the
// track ends or the encoder stops. On stop it drains samples already
// buffered before returning.
func (e *WebMEncoder) pump(t Track, bw webm.BlockWriteCloser, defaultDur time.Duration, isVideo bool) {
	defer e.wg.Done()

	var elapsed time.Duration
	for {
		select {
		case s, ok := <-t.Samples():
			if !ok {
				return
			}
			elapsed = e.writeSample(bw, s, elapsed, defaultDur, isVideo)
		case <-e.stopCh:
			for {
				select {
				case s, ok := <-t.Samples():
					if !ok {
						return
					}
					elapsed = e.writeSample(bw, s, elapsed, defaultDur, isVideo)
				default:
					return
				}
			}
		}
	}
}

func (e *WebMEncoder) writeSample(bw webm.BlockWriteCloser, s media.Sample, elapsed, defaultDur time.Duration, isVideo bool) time.Duration {
	if len(s.Data) == 0 {
		return elapsed
	}

	keyframe := true
	if isVideo {
		keyframe = isKeyframe(s.Data)
	}

	if _, err := bw.Write(keyframe, int64(elapsed/time.Millisecond), s.Data); err != nil {
		e.logger.Warn("Failed to write sample", "error", err, "video", isVideo, "size", len(s.Data))
	}

	dur := s.Duration
	if dur <= 0 {
		dur = defaultDur
	}
	return elapsed + dur
}

// isKeyframe detects an IDR access unit in Annex-B H.264 data.
func isKeyframe(data []byte) bool {
	var ab h264.AnnexB
	if ab.Unmarshal(data) == nil {
		for _, nalu := range ab {
			if len(nalu) > 0 && h264.NALUType(nalu[0]&0x1F) == h264.NALUTypeIDR {
				return true
			}
		}
	}
	return false
}

// Stop drains buffered samples, finalizes the container and stops the
// encoder. No chunk is emitted after Stop returns. Idempotent.
func (e *WebMEncoder) Stop() error {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()

	// Wait for pumps to drain, then close writers so the container
	// trailer lands in the chunk stream.
	e.wg.Wait()

	var firstErr error
	for _, w := range e.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.sink.Close()

	e.logger.Debug("Encoder stopped")
	return firstErr
}
