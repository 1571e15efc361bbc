package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/capscribe/capscribe/internal/capture"
)

// stateResponse is the /api/state payload.
type stateResponse struct {
	State          capture.State     `json:"state"`
	Source         capture.Source    `json:"source"`
	IncludeMic     bool              `json:"includeMic"`
	ElapsedSeconds int               `json:"elapsedSeconds"`
	Error          *errorResponse    `json:"error,omitempty"`
	Artifact       *artifactResponse `json:"artifact,omitempty"`
}

type errorResponse struct {
	Kind    capture.Kind `json:"kind"`
	Message string       `json:"message"`
}

type artifactResponse struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
}

func (s *StudioServer) currentState() stateResponse {
	cfg := s.ctrl.Config()
	resp := stateResponse{
		State:          s.ctrl.State(),
		Source:         cfg.Source,
		IncludeMic:     cfg.IncludeMic,
		ElapsedSeconds: s.ctrl.ElapsedSeconds(),
	}
	if cerr := s.ctrl.Err(); cerr != nil {
		resp.Error = &errorResponse{Kind: cerr.Kind, Message: cerr.Message()}
	}
	if artifact, ok := s.ctrl.Artifact(); ok {
		resp.Artifact = &artifactResponse{
			FileName: artifact.FileName,
			MimeType: artifact.MimeType,
			Size:     len(artifact.Bytes),
		}
	}
	return resp
}

func (s *StudioServer) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentState())
}

type setSourceRequest struct {
	Source     string `json:"source"`
	IncludeMic bool   `json:"includeMic"`
}

func (s *StudioServer) handleSetSource(w http.ResponseWriter, r *http.Request) {
	var req setSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	source, err := capture.ParseSource(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := s.ctrl.State()
	if state == capture.StateRecording || state == capture.StateStopping {
		writeError(w, http.StatusConflict, "cannot change source while recording")
		return
	}

	s.ctrl.SetSource(source, req.IncludeMic)
	writeJSON(w, http.StatusOK, s.currentState())
}

func (s *StudioServer) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	// Tied to the server's lifetime, not the request's: the recording
	// outlives this HTTP call.
	if err := s.ctrl.Start(s.ctx); err != nil {
		if cerr, ok := capture.AsError(err); ok {
			writeJSON(w, http.StatusInternalServerError, stateResponse{
				State:  s.ctrl.State(),
				Source: s.ctrl.Config().Source,
				Error:  &errorResponse{Kind: cerr.Kind, Message: cerr.Message()},
			})
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.currentState())
}

func (s *StudioServer) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(); err != nil {
		s.logger.Warn("Stop returned an error, artifact may be partial", "error", err)
	}
	writeJSON(w, http.StatusOK, s.currentState())
}

func (s *StudioServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	artifact, ok := s.ctrl.Artifact()
	if !ok {
		writeError(w, http.StatusNotFound, "no finalized artifact")
		return
	}

	w.Header().Set("Content-Type", artifact.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Bytes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
