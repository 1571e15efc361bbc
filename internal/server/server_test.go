package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/stretchr/testify/require"

	"github.com/capscribe/capscribe/internal/capture"
	"github.com/capscribe/capscribe/internal/capture/fake"
	"github.com/capscribe/capscribe/internal/server"
)

var ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// idrSample is a minimal Annex B access unit containing an IDR NALU,
// enough for the encoder to treat the sample as a keyframe.
var idrSample = []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x84, 0x00}

func newTestServer(t *testing.T) (*server.StudioServer, *fake.Provider, *httptest.Server) {
	t.Helper()
	provider := fake.NewProvider()
	ctrl := capture.NewController(provider)
	srv := server.NewStudioServer(0, ctrl)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	return srv, provider, ts
}

type stateBody struct {
	State          string `json:"state"`
	Source         string `json:"source"`
	IncludeMic     bool   `json:"includeMic"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Error          *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
	Artifact *struct {
		FileName string `json:"fileName"`
		MimeType string `json:"mimeType"`
		Size     int    `json:"size"`
	} `json:"artifact"`
}

func getState(t *testing.T, ts *httptest.Server) stateBody {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeState(t, resp)
}

func decodeState(t *testing.T, resp *http.Response) stateBody {
	t.Helper()
	var body stateBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, ts *httptest.Server, path string, payload any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	resp, err := http.Post(ts.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func startRecording(t *testing.T, ts *httptest.Server) stateBody {
	t.Helper()
	resp := postJSON(t, ts, "/api/record/start", struct{}{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeState(t, resp)
	require.Equal(t, "recording", state.State)
	return state
}

func stopRecording(t *testing.T, ts *httptest.Server) stateBody {
	t.Helper()
	resp := postJSON(t, ts, "/api/record/stop", struct{}{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeState(t, resp)
}

func TestIndexServesStudioPage(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Capscribe Studio")
}

func TestStateDefaults(t *testing.T) {
	_, _, ts := newTestServer(t)

	state := getState(t, ts)
	require.Equal(t, "idle", state.State)
	require.Equal(t, "screen", state.Source)
	require.False(t, state.IncludeMic)
	require.Zero(t, state.ElapsedSeconds)
	require.Nil(t, state.Error)
	require.Nil(t, state.Artifact)
}

func TestSetSource(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/source", map[string]any{"source": "camera", "includeMic": true})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeState(t, resp)
	require.Equal(t, "camera", state.Source)
	require.True(t, state.IncludeMic)
}

func TestSetSourceInvalid(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/source", map[string]any{"source": "hologram"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Post(ts.URL+"/api/source", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestSetSourceRejectedWhileRecording(t *testing.T) {
	_, _, ts := newTestServer(t)

	startRecording(t, ts)

	resp := postJSON(t, ts, "/api/source", map[string]any{"source": "audio"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// The selection must be untouched.
	require.Equal(t, "screen", getState(t, ts).Source)
}

func TestRecordLifecycle(t *testing.T) {
	_, _, ts := newTestServer(t)

	startRecording(t, ts)

	state := stopRecording(t, ts)
	require.Equal(t, "finalized", state.State)
	require.NotNil(t, state.Artifact)
	require.Equal(t, "screen-recording.webm", state.Artifact.FileName)
	require.Contains(t, state.Artifact.MimeType, "video/webm")
	require.Greater(t, state.Artifact.Size, 0)

	resp, err := http.Get(ts.URL + "/api/artifact")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "video/webm")
	require.Contains(t, resp.Header.Get("Content-Disposition"), "screen-recording.webm")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Equal(t, state.Artifact.Size, buf.Len())
	require.True(t, bytes.HasPrefix(buf.Bytes(), ebmlMagic))
}

func TestStartWhileRecordingConflict(t *testing.T) {
	_, _, ts := newTestServer(t)

	startRecording(t, ts)

	resp := postJSON(t, ts, "/api/record/start", struct{}{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStartFailureReportsKind(t *testing.T) {
	_, provider, ts := newTestServer(t)
	provider.FailDisplayMedia(capture.NewError(capture.KindPermissionDenied, "prompt", errors.New("denied by user")))

	resp := postJSON(t, ts, "/api/record/start", struct{}{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	state := decodeState(t, resp)
	require.Equal(t, "errored", state.State)
	require.NotNil(t, state.Error)
	require.Equal(t, "permission_denied", state.Error.Kind)
	require.NotEmpty(t, state.Error.Message)
}

func TestArtifactNotFound(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/artifact")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStopNoopWhenIdle(t *testing.T) {
	_, _, ts := newTestServer(t)

	state := stopRecording(t, ts)
	require.Equal(t, "idle", state.State)
	require.Nil(t, state.Artifact)
}

func TestPreviewStream(t *testing.T) {
	_, provider, ts := newTestServer(t)

	startRecording(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/preview"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Frames pushed while a preview client is subscribed stream out as
	// binary messages.
	track := provider.VideoTracks()[0]
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			time.Sleep(20 * time.Millisecond)
			track.Push(media.Sample{Data: idrSample, Duration: 33 * time.Millisecond})
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msgType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	require.NotEmpty(t, payload)
	<-done

	// Stopping hands the client over to the artifact with a single
	// control message after any remaining binary frames.
	state := stopRecording(t, ts)
	require.Equal(t, "finalized", state.State)

	var control []byte
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		msgType, payload, err = conn.ReadMessage()
		require.NoError(t, err)
		if msgType == websocket.TextMessage {
			control = payload
			break
		}
		require.Equal(t, websocket.BinaryMessage, msgType)
	}
	require.JSONEq(t, `{"event":"finalized"}`, string(control))

	// The server closes the feed after the handoff.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}

func TestStopClosesController(t *testing.T) {
	srv, provider, ts := newTestServer(t)

	startRecording(t, ts)
	require.NoError(t, srv.Stop())

	// The recording was torn down and the controller rejects new work.
	require.Zero(t, provider.LiveTrackCount())
	resp := postJSON(t, ts, "/api/record/start", struct{}{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	require.NoError(t, srv.Stop())
}

func TestAddr(t *testing.T) {
	srv := server.NewStudioServer(8321, capture.NewController(fake.NewProvider()))
	require.Equal(t, ":8321", srv.Addr())
}
