package proc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/capscribe/capscribe/internal/capture"
	procgroup "github.com/capscribe/capscribe/internal/proc_group"
)

// Helper exit codes mapped to the capture error taxonomy.
const (
	exitPermissionDenied = 2
	exitDeviceNotFound   = 3
	exitUnsupported      = 4
)

const exitWaitTimeout = 2 * time.Second

// Default sample durations used until the PTS delta is known.
const (
	defaultVideoDuration = 33 * time.Millisecond
	defaultAudioDuration = 20 * time.Millisecond
)

// Provider acquires media by spawning the platform capture helper, one
// process per acquisition. The helper emits one packet stream per
// track: the primary stream on stdout and, when the acquisition has a
// second track, the audio stream on fd 3.
type Provider struct {
	helper string
	logger *slog.Logger
}

// NewProvider creates a provider running the given helper command.
func NewProvider(helperCmd string) *Provider {
	return &Provider{
		helper: helperCmd,
		logger: slog.With("component", "proc_provider", "helper", helperCmd),
	}
}

func (p *Provider) Name() string { return "proc" }

// Supported reports whether the helper command resolves to an
// executable.
func (p *Provider) Supported() bool {
	if p.helper == "" {
		return false
	}
	_, err := exec.LookPath(p.helper)
	return err == nil
}

func (p *Provider) AcquireUserMedia(ctx context.Context, req capture.UserMediaRequest) (*capture.MediaSession, error) {
	if !req.Video && !req.Audio {
		return nil, fmt.Errorf("user media request selects no tracks")
	}

	args := []string{"user"}
	if req.Video {
		args = append(args, fmt.Sprintf("--video=%dx%d", req.VideoWidth, req.VideoHeight))
	}
	if req.Audio {
		args = append(args, "--audio")
	}

	spec := streamSpec{}
	if req.Video {
		spec.video = "camera"
	}
	if req.Audio {
		spec.audio = "microphone"
	}
	return p.spawn(ctx, args, spec)
}

func (p *Provider) AcquireDisplayMedia(ctx context.Context, req capture.DisplayMediaRequest) (*capture.MediaSession, error) {
	args := []string{
		"display",
		fmt.Sprintf("--size=%dx%d", req.Width, req.Height),
		fmt.Sprintf("--fps=%d", req.FrameRate),
	}
	if req.Audio {
		args = append(args, "--audio")
	}

	spec := streamSpec{video: "display"}
	if req.Audio {
		spec.audio = "system-audio"
	}
	return p.spawn(ctx, args, spec)
}

// streamSpec names the tracks one helper invocation delivers. An empty
// label means the track is not requested.
type streamSpec struct {
	video string
	audio string
}

// spawn starts the helper and turns its streams into a session. On any
// failure before both stream headers arrive the process is killed and
// nothing stays live.
func (p *Provider) spawn(ctx context.Context, args []string, spec streamSpec) (*capture.MediaSession, error) {
	cmd := exec.Command(p.helper, args...)
	procgroup.SetProcGrp(cmd)

	// Manual pipes instead of StdoutPipe so cmd.Wait never races the
	// stream readers.
	primaryR, primaryW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create helper pipe: %w", err)
	}
	cmd.Stdout = primaryW

	var audioR, audioW *os.File
	if spec.video != "" && spec.audio != "" {
		audioR, audioW, err = os.Pipe()
		if err != nil {
			primaryR.Close()
			primaryW.Close()
			return nil, fmt.Errorf("failed to create helper pipe: %w", err)
		}
		cmd.ExtraFiles = []*os.File{audioW}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		closeAll(primaryR, primaryW, audioR, audioW)
		return nil, fmt.Errorf("failed to create helper stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		closeAll(primaryR, primaryW, audioR, audioW)
		return nil, fmt.Errorf("failed to start capture helper: %w", err)
	}
	// Parent holds only the read ends from here on.
	primaryW.Close()
	if audioW != nil {
		audioW.Close()
	}

	h := &helperProc{
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: p.logger.With("pid", cmd.Process.Pid),
	}
	go h.wait()
	go h.drainStderr(stderr)

	var tracks []capture.Track

	if spec.video != "" {
		hdr, err := h.readHeader(ctx, primaryR)
		if err != nil {
			h.kill()
			primaryR.Close()
			if audioR != nil {
				audioR.Close()
			}
			return nil, h.classifyStartFailure("acquire video stream", err)
		}
		if hdr.Codec != CodecH264 {
			h.kill()
			primaryR.Close()
			if audioR != nil {
				audioR.Close()
			}
			return nil, fmt.Errorf("unexpected video codec %#08x", hdr.Codec)
		}
		track := capture.NewSampleTrack(capture.TrackKindVideo, spec.video, 64)
		track.SetDimensions(int(hdr.Width), int(hdr.Height))
		track.SetStopFunc(h.kill)
		go h.readTrack(primaryR, track, maxVideoPacketSize, defaultVideoDuration)
		tracks = append(tracks, track)
		h.logger.Debug("Video stream started", "label", spec.video, "width", hdr.Width, "height", hdr.Height)
	}

	if spec.audio != "" {
		r := primaryR
		if audioR != nil {
			r = audioR
		}
		hdr, err := h.readHeader(ctx, r)
		if err != nil {
			h.kill()
			for _, t := range tracks {
				t.Stop()
			}
			r.Close()
			return nil, h.classifyStartFailure("acquire audio stream", err)
		}
		if hdr.Codec != CodecOpus {
			h.kill()
			for _, t := range tracks {
				t.Stop()
			}
			r.Close()
			return nil, fmt.Errorf("unexpected audio codec %#08x", hdr.Codec)
		}
		track := capture.NewSampleTrack(capture.TrackKindAudio, spec.audio, 64)
		track.SetStopFunc(h.kill)
		go h.readTrack(r, track, maxAudioPacketSize, defaultAudioDuration)
		tracks = append(tracks, track)
		h.logger.Debug("Audio stream started", "label", spec.audio)
	}

	session := capture.NewMediaSession(tracks...)
	h.logger.Info("Capture helper acquired", "session", session.ID(), "tracks", len(tracks))
	return session, nil
}

// helperProc owns one running helper process.
type helperProc struct {
	cmd    *exec.Cmd
	logger *slog.Logger

	done     chan struct{}
	exitCode int

	killOnce sync.Once
}

func (h *helperProc) wait() {
	err := h.cmd.Wait()
	h.exitCode = h.cmd.ProcessState.ExitCode()
	if err != nil {
		h.logger.Debug("Capture helper exited", "code", h.exitCode, "error", err)
	} else {
		h.logger.Debug("Capture helper exited", "code", h.exitCode)
	}
	close(h.done)
}

// kill terminates the helper. Installed as the track stop func, so a
// consumer-side Stop on any track tears down the whole process.
func (h *helperProc) kill() {
	h.killOnce.Do(func() {
		if h.cmd.Process != nil {
			h.cmd.Process.Kill()
		}
	})
}

func (h *helperProc) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		h.logger.Debug("helper: " + scanner.Text())
	}
}

// readHeader reads a stream header, honoring context cancellation. A
// cancelled context kills the helper so the pending read unblocks.
func (h *helperProc) readHeader(ctx context.Context, r io.Reader) (*StreamHeader, error) {
	type result struct {
		hdr *StreamHeader
		err error
	}
	ch := make(chan result, 1)
	go func() {
		hdr, err := ReadStreamHeader(r)
		ch <- result{hdr, err}
	}()

	select {
	case <-ctx.Done():
		h.kill()
		<-ch
		return nil, ctx.Err()
	case res := <-ch:
		return res.hdr, res.err
	}
}

// classifyStartFailure maps a helper that died before delivering its
// stream header onto the error taxonomy via its exit code.
func (h *helperProc) classifyStartFailure(op string, err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return err
	}
	if err != io.EOF {
		return capture.NewError(capture.KindUnknown, op, err)
	}

	select {
	case <-h.done:
	case <-time.After(exitWaitTimeout):
		return capture.NewError(capture.KindUnknown, op, fmt.Errorf("helper closed stream without exiting"))
	}

	switch h.exitCode {
	case exitPermissionDenied:
		return capture.NewError(capture.KindPermissionDenied, op, fmt.Errorf("helper exit code %d", h.exitCode))
	case exitDeviceNotFound:
		return capture.NewError(capture.KindDeviceNotFound, op, fmt.Errorf("helper exit code %d", h.exitCode))
	case exitUnsupported:
		return capture.NewError(capture.KindUnsupported, op, fmt.Errorf("helper exit code %d", h.exitCode))
	default:
		return capture.NewError(capture.KindUnknown, op, fmt.Errorf("helper exit code %d", h.exitCode))
	}
}

// readTrack pumps packets from one stream into a track until the
// stream ends. EOF is the platform-initiated stop: the track ends and
// its OnEnded handlers fire.
func (h *helperProc) readTrack(r io.ReadCloser, track *capture.SampleTrack, maxSize uint32, defaultDur time.Duration) {
	defer r.Close()

	var pendingConfig []byte
	var lastPTS uint64
	havePTS := false

	for {
		pkt, err := ReadPacket(r, maxSize)
		if err != nil {
			if err == io.EOF {
				h.logger.Info("Track stream ended", "label", track.Label())
			} else if track.ReadyState() == capture.ReadyStateLive {
				h.logger.Error("Failed to read track packet", "label", track.Label(), "error", err)
			}
			track.End()
			return
		}

		// Parameter sets are not stand-alone samples; prepend them to
		// the next frame so decoders see them in-band.
		if pkt.IsConfig {
			pendingConfig = append([]byte{}, pkt.Data...)
			continue
		}

		data := pkt.Data
		if pendingConfig != nil {
			data = append(append([]byte{}, pendingConfig...), data...)
			pendingConfig = nil
		}

		dur := defaultDur
		if havePTS && pkt.PTS > lastPTS {
			dur = time.Duration(pkt.PTS-lastPTS) * time.Microsecond
		}
		lastPTS = pkt.PTS
		havePTS = true

		if !track.Push(media.Sample{Data: data, Duration: dur, Timestamp: time.Now()}) {
			return
		}
	}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
