package server

import (
	"net/http"
	"time"

	"github.com/dchest/uniuri"
	"github.com/gorilla/websocket"

	"github.com/capscribe/capscribe/internal/capture"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The studio server binds to localhost only.
		return true
	},
}

// finalizedEvent is the control message that tells the preview client
// to switch from the live feed to the artifact URL.
const finalizedEvent = `{"event":"finalized"}`

const statePollInterval = 200 * time.Millisecond

// handlePreview streams encoded chunks over a websocket while a
// recording is live. Once the recording finalizes the client gets one
// JSON control message and the connection closes; the live feed and
// the artifact are never served at the same time.
func (s *StudioServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade preview connection", "error", err)
		return
	}
	defer conn.Close()

	subID := "preview-" + uniuri.NewLen(8)
	chunks := s.ctrl.SubscribeChunks(subID, 100)
	defer s.ctrl.UnsubscribeChunks(subID)

	s.logger.Info("Preview client connected", "subscriber", subID)

	// Discard client reads so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-r.Context().Done():
			return

		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.logger.Debug("Preview write failed", "subscriber", subID, "error", err)
				return
			}

		case <-ticker.C:
			state := s.ctrl.State()
			if state != capture.StateFinalized && state != capture.StateErrored {
				continue
			}
			// Flush chunks that landed before the state flipped, then
			// hand the client over to the artifact.
			for {
				select {
				case chunk, ok := <-chunks:
					if !ok {
						return
					}
					if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			if state == capture.StateFinalized {
				conn.WriteMessage(websocket.TextMessage, []byte(finalizedEvent))
			}
			s.logger.Info("Preview client handed off", "subscriber", subID, "state", state)
			return
		}
	}
}
