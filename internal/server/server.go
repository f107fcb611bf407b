// Package server exposes the assistant session and the assessment endpoints
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/vocalis/core"
	"github.com/koscakluka/vocalis/core/assessment"
	"github.com/koscakluka/vocalis/core/calibration"
	"github.com/koscakluka/vocalis/core/classifier"
	"github.com/koscakluka/vocalis/core/documents"
	"github.com/koscakluka/vocalis/core/speechtotext"
	"github.com/koscakluka/vocalis/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultMaxMessageBytes = 32 << 20
	DefaultMaxUploadBytes  = 10 << 20
	DefaultWriteTimeout    = 10 * time.Second

	// multipartOverhead leaves room for boundaries and headers around an
	// upload of the maximum size.
	multipartOverhead = 1 << 20
)

type FrameCalibrator interface {
	Process(ctx context.Context, encodedFrame string) (*calibration.Result, error)
}

type ReportClassifier interface {
	Classify(ctx context.Context, reportText string) (classifier.Analysis, error)
}

type DocumentExtractor interface {
	orchestration.DocumentReader
	Extract(ctx context.Context, data []byte, kind documents.Kind) (string, error)
}

// Dependencies are the collaborators shared by all requests. Nil collaborators
// disable the features that need them.
type Dependencies struct {
	SpeechToText         orchestration.SpeechToText
	TranscriptionOptions []speechtotext.TranscriptionOption
	LLM                  orchestration.LLM
	TextToSpeech         orchestration.TextToSpeech
	SynthesisOptions     []texttospeech.SynthesisOption
	Describer            orchestration.ImageDescriber
	Documents            DocumentExtractor
	Calibration          FrameCalibrator
	Classifier           ReportClassifier

	// Dataset backs the assessment endpoints, nil uses the built-in one.
	Dataset      assessment.Dataset
	SystemPrompt string
	Timeouts     orchestration.Timeouts
}

type Server struct {
	deps     Dependencies
	dataset  assessment.Dataset
	timeouts orchestration.Timeouts

	logger          *slog.Logger
	metrics         *Metrics
	metricsPath     string
	allowedOrigins  []string
	maxMessageBytes int64
	maxUploadBytes  int64
	writeTimeout    time.Duration

	upgrader websocket.Upgrader
	handler  http.Handler
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMetricsPath sets where metrics are served. An empty path disables the
// endpoint, metrics are still collected.
func WithMetricsPath(path string) Option {
	return func(s *Server) {
		s.metricsPath = path
	}
}

func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithMaxMessageBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxMessageBytes = n
		}
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

func New(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		dataset:         deps.Dataset,
		timeouts:        deps.Timeouts.WithDefaults(),
		logger:          slog.Default(),
		metricsPath:     "/metrics",
		allowedOrigins:  []string{"*"},
		maxMessageBytes: DefaultMaxMessageBytes,
		maxUploadBytes:  DefaultMaxUploadBytes,
		writeTimeout:    DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.dataset == nil {
		s.dataset = assessment.DefaultDataset()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics("vocalis")
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(s.allowedOrigins, r.Header.Get("Origin"))
		},
	}

	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, s.metrics.Handler())
	}

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("POST /vision/process-frame", s.handleProcessFrame)
	mux.HandleFunc("POST /vision/score", s.handleScore)

	mux.HandleFunc("GET /assessment/report", s.handleReport)
	mux.HandleFunc("GET /assessment/assistant", s.handleAssistant)
	mux.HandleFunc("POST /analyze-report", s.handleAnalyzeReport)

	var handler http.Handler = mux
	handler = allowCORS(s.allowedOrigins, handler)
	handler = logRequests(s.logger, s.metrics, handler)
	handler = recoverPanics(s.logger, handler)
	return otelhttp.NewHandler(handler, "vocalis",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. Websocket sessions are bound to ctx and end with it.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", listener.Addr().String())
		errs <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"features": map[string]bool{
			"speech_to_text": s.deps.SpeechToText != nil,
			"llm":            s.deps.LLM != nil,
			"text_to_speech": s.deps.TextToSpeech != nil,
			"vision":         s.deps.Describer != nil,
			"documents":      s.deps.Documents != nil,
			"calibration":    s.deps.Calibration != nil,
			"classifier":     s.deps.Classifier != nil,
		},
	})
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
