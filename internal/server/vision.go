package server

import (
	"net/http"

	"github.com/koscakluka/vocalis/core/scoring"
)

type processFrameRequest struct {
	Frame string `json:"frame"`
}

// handleProcessFrame calibrates one camera frame. Frames that can not be
// processed answer null, the client simply sends the next one.
func (s *Server) handleProcessFrame(w http.ResponseWriter, r *http.Request) {
	if s.deps.Calibration == nil {
		writeError(w, http.StatusServiceUnavailable, "calibration is not configured")
		return
	}

	var req processFrameRequest
	if err := decodeJSON(w, r, s.maxMessageBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Frame == "" {
		writeError(w, http.StatusUnprocessableEntity, "frame is required")
		return
	}

	result, err := s.deps.Calibration.Process(r.Context(), req.Frame)
	if err != nil {
		s.logger.DebugContext(r.Context(), "frame not calibrated", "error", err)
		s.metrics.RecordCalibration("failed")
		writeJSON(w, http.StatusOK, nil)
		return
	}

	s.metrics.RecordCalibration(result.Status.Label())
	writeJSON(w, http.StatusOK, result)
}

type scoreRequest struct {
	ReferenceText       string   `json:"reference_text"`
	ObservedText        string   `json:"observed_text"`
	BehavioralStability *float64 `json:"behavioral_stability"`
	MovementScore       *float64 `json:"movement_score"`
}

// handleScore combines the reading accuracy of the observed text with the
// behavioral components into a composite score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(w, r, s.maxMessageBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BehavioralStability == nil || req.MovementScore == nil {
		writeError(w, http.StatusUnprocessableEntity, "behavioral_stability and movement_score are required")
		return
	}
	if err := scoring.ValidateComponent("behavioral_stability", *req.BehavioralStability); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := scoring.ValidateComponent("movement_score", *req.MovementScore); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	accuracy := scoring.ReadingAccuracy(req.ReferenceText, req.ObservedText)
	writeJSON(w, http.StatusOK, scoring.Score(accuracy, *req.BehavioralStability, *req.MovementScore))
}
