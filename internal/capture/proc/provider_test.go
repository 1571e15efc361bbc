//go:build !windows

package proc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capscribe/capscribe/internal/capture"
)

// writeHelperScript creates an executable helper that runs the given
// shell body.
func writeHelperScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture-helper")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// buildAudioStream renders a valid single-track opus stream.
func buildAudioStream(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteStreamHeader(&buf, &StreamHeader{Codec: CodecOpus}))
	for i, p := range payloads {
		require.NoError(t, WritePacket(&buf, &Packet{PTS: uint64(i) * 20000, Data: p}))
	}
	return buf.Bytes()
}

func TestProviderSupported(t *testing.T) {
	assert.False(t, NewProvider("").Supported())
	assert.False(t, NewProvider("/nonexistent/capture-helper").Supported())

	helper := writeHelperScript(t, "exit 0")
	assert.True(t, NewProvider(helper).Supported())
}

func TestAcquireAudioDeliversSamples(t *testing.T) {
	stream := buildAudioStream(t, []byte{0x01, 0x02}, []byte{0x03})
	streamFile := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(streamFile, stream, 0o644))

	helper := writeHelperScript(t, fmt.Sprintf("cat %s", streamFile))
	p := NewProvider(helper)

	session, err := p.AcquireUserMedia(context.Background(), capture.UserMediaRequest{Audio: true})
	require.NoError(t, err)

	tracks := session.AudioTracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, "microphone", tracks[0].Label())

	var got [][]byte
	for s := range tracks[0].Samples() {
		got = append(got, s.Data)
	}
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0x01, 0x02}, got[0])
	assert.Equal(t, []byte{0x03}, got[1])

	// EOF must end the track on the platform side.
	assert.Eventually(t, func() bool {
		return tracks[0].ReadyState() == capture.ReadyStateEnded
	}, time.Second, 10*time.Millisecond)
}

func TestAcquireVideoCarriesHeaderDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStreamHeader(&buf, &StreamHeader{Codec: CodecH264, Width: 640, Height: 480}))
	require.NoError(t, WritePacket(&buf, &Packet{Data: []byte{0x00, 0x00, 0x00, 0x01, 0x65}, IsKeyFrame: true}))
	streamFile := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(streamFile, buf.Bytes(), 0o644))

	helper := writeHelperScript(t, fmt.Sprintf("cat %s", streamFile))
	p := NewProvider(helper)

	session, err := p.AcquireDisplayMedia(context.Background(), capture.DisplayMediaRequest{
		Width:     1920,
		Height:    1080,
		FrameRate: 30,
	})
	require.NoError(t, err)
	defer session.Release()

	tracks := session.VideoTracks()
	require.Len(t, tracks, 1)

	st, ok := tracks[0].(*capture.SampleTrack)
	require.True(t, ok)
	w, h := st.Dimensions()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestAcquireEOFFiresOnEnded(t *testing.T) {
	stream := buildAudioStream(t, []byte{0xaa})
	streamFile := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(streamFile, stream, 0o644))

	helper := writeHelperScript(t, fmt.Sprintf("cat %s", streamFile))
	p := NewProvider(helper)

	session, err := p.AcquireUserMedia(context.Background(), capture.UserMediaRequest{Audio: true})
	require.NoError(t, err)

	ended := make(chan struct{})
	track := session.AudioTracks()[0]
	track.OnEnded(func() { close(ended) })

	for range track.Samples() {
	}

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("OnEnded not fired after stream EOF")
	}
}

func TestAcquireClassifiesExitCodes(t *testing.T) {
	cases := []struct {
		code int
		kind capture.Kind
	}{
		{exitPermissionDenied, capture.KindPermissionDenied},
		{exitDeviceNotFound, capture.KindDeviceNotFound},
		{exitUnsupported, capture.KindUnsupported},
		{1, capture.KindUnknown},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("exit_%d", tc.code), func(t *testing.T) {
			helper := writeHelperScript(t, fmt.Sprintf("exit %d", tc.code))
			p := NewProvider(helper)

			_, err := p.AcquireUserMedia(context.Background(), capture.UserMediaRequest{Audio: true})
			require.Error(t, err)
			assert.Equal(t, tc.kind, capture.KindOf(err))
		})
	}
}

func TestAcquireCancelledDuringPrompt(t *testing.T) {
	// Helper that produces nothing, simulating a permission prompt the
	// user never answers.
	helper := writeHelperScript(t, "sleep 30")
	p := NewProvider(helper)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := p.AcquireUserMedia(ctx, capture.UserMediaRequest{Audio: true})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadStreamHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, StreamHeaderSize)
	_, err := ReadStreamHeader(bytes.NewReader(buf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad stream magic")
}

func TestReadPacketRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, &Packet{Data: bytes.Repeat([]byte{0}, 2048)}))

	_, err := ReadPacket(&buf, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "packet size too large")
}

func TestConfigPacketPrependedToNextSample(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStreamHeader(&buf, &StreamHeader{Codec: CodecOpus}))
	require.NoError(t, WritePacket(&buf, &Packet{Data: []byte{0xc0, 0xc1}, IsConfig: true}))
	require.NoError(t, WritePacket(&buf, &Packet{PTS: 20000, Data: []byte{0x05}}))

	streamFile := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(streamFile, buf.Bytes(), 0o644))

	helper := writeHelperScript(t, fmt.Sprintf("cat %s", streamFile))
	p := NewProvider(helper)

	session, err := p.AcquireUserMedia(context.Background(), capture.UserMediaRequest{Audio: true})
	require.NoError(t, err)

	track := session.AudioTracks()[0]
	var got [][]byte
	for s := range track.Samples() {
		got = append(got, s.Data)
	}
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0xc0, 0xc1, 0x05}, got[0])
}
