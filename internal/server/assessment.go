package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/koscakluka/vocalis/core/assessment"
	"github.com/koscakluka/vocalis/core/classifier"
	"github.com/koscakluka/vocalis/core/documents"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := assessment.GenerateReport(s.dataset)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to generate report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	decision, err := assessment.Decide(s.dataset)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to decide assistant", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to decide assistant")
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type analyzeResponse struct {
	Status          string              `json:"status"`
	Analysis        classifier.Analysis `json:"analysis"`
	AssistantToLoad string              `json:"assistant_to_load"`
}

// handleAnalyzeReport extracts the text of an uploaded medical report and
// classifies it.
func (s *Server) handleAnalyzeReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Documents == nil || s.deps.Classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "report analysis is not configured")
		return
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		detail := "No file uploaded"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			detail = "File too large"
		}
		s.metrics.RecordReportAnalysis("rejected")
		writeError(w, http.StatusBadRequest, detail)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		s.metrics.RecordReportAnalysis("rejected")
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes {
		s.metrics.RecordReportAnalysis("rejected")
		writeError(w, http.StatusBadRequest, "File too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.metrics.RecordReportAnalysis("rejected")
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	kind := documents.DetectKind(data, header.Filename)
	if kind != documents.KindPDF && kind != documents.KindImage {
		s.metrics.RecordReportAnalysis("rejected")
		writeError(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	text, err := s.extractReport(ctx, data, kind)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to extract report text",
			"error", err, "kind", kind, "filename", header.Filename)
		s.metrics.RecordReportAnalysis("extract_failed")
		writeError(w, http.StatusInternalServerError, "failed to extract text from report")
		return
	}

	analysis, err := s.classifyReport(ctx, text)
	outcome := "classified"
	if err != nil {
		s.logger.WarnContext(ctx, "report classification fell back to default", "error", err)
		analysis = classifier.Fallback()
		outcome = "fallback"
	}
	s.metrics.RecordReportAnalysis(outcome)

	writeJSON(w, http.StatusOK, analyzeResponse{
		Status:          "success",
		Analysis:        analysis,
		AssistantToLoad: analysis.AssistantToLoad,
	})
}

func (s *Server) extractReport(ctx context.Context, data []byte, kind documents.Kind) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Documents)
	defer cancel()
	return s.deps.Documents.Extract(ctx, data, kind)
}

func (s *Server) classifyReport(ctx context.Context, text string) (classifier.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.LLM)
	defer cancel()
	return s.deps.Classifier.Classify(ctx, text)
}
