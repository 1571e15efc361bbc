package server

import (
	_ "embed"
	"net/http"
)

//go:embed studio.html
var studioHTML []byte

// handleIndex serves the embedded studio page. The page drives the
// /api endpoints and attaches to /ws/preview for the live feed.
func (s *StudioServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(studioHTML)
}
