package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/vocalis/core"
	"github.com/koscakluka/vocalis/core/calibration"
	"github.com/koscakluka/vocalis/core/classifier"
	"github.com/koscakluka/vocalis/core/documents"
	"github.com/koscakluka/vocalis/core/events"
	"github.com/koscakluka/vocalis/core/llms"
	"github.com/koscakluka/vocalis/core/speechtotext"
	"github.com/koscakluka/vocalis/core/texttospeech"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSpeechToText struct{ transcript string }

func (s stubSpeechToText) Transcribe(context.Context, []byte, ...speechtotext.TranscriptionOption) (string, error) {
	return s.transcript, nil
}

type stubLLM struct{ reply string }

func (s stubLLM) Prompt(context.Context, string, ...llms.PromptOption) (*llms.Response, error) {
	return &llms.Response{Content: s.reply}, nil
}

type stubTextToSpeech struct{ speech []byte }

func (s stubTextToSpeech) Synthesize(context.Context, string, ...texttospeech.SynthesisOption) ([]byte, error) {
	return s.speech, nil
}

type stubCalibrator struct {
	result *calibration.Result
	err    error
}

func (s stubCalibrator) Process(context.Context, string) (*calibration.Result, error) {
	return s.result, s.err
}

type stubExtractor struct {
	text string
	err  error

	kinds []documents.Kind
}

func (s *stubExtractor) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	return s.Extract(ctx, data, documents.KindPDF)
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, kind documents.Kind) (string, error) {
	s.kinds = append(s.kinds, kind)
	return s.text, s.err
}

type stubClassifier struct {
	analysis classifier.Analysis
	err      error
	texts    []string
}

func (s *stubClassifier) Classify(_ context.Context, text string) (classifier.Analysis, error) {
	s.texts = append(s.texts, text)
	return s.analysis, s.err
}

func newTestServer(t *testing.T, deps Dependencies, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(deps, append([]Option{WithLogger(logger)}, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialSession(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.ServerEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	event, err := events.DecodeServerEvent(data)
	require.NoError(t, err)
	return event
}

func sendEvent(t *testing.T, conn *websocket.Conn, event events.ClientEvent) {
	t.Helper()

	data, err := events.EncodeClientEvent(event)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestWebSocketSession_AudioRoundTrip(t *testing.T) {
	speech := bytes.Repeat([]byte{7}, 5000)
	srv, ts := newTestServer(t, Dependencies{
		SpeechToText: stubSpeechToText{transcript: "hello"},
		LLM:          stubLLM{reply: "hi there"},
		TextToSpeech: stubTextToSpeech{speech: speech},
	})
	conn := dialSession(t, ts, nil)

	assert.Equal(t, events.Status{Message: "Connected to Vocalis"}, readEvent(t, conn))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().SessionsTotal))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	sendEvent(t, conn, events.Ping{})
	sendEvent(t, conn, events.Audio{Data: base64.StdEncoding.EncodeToString([]byte("pcm"))})

	assert.Equal(t, events.Status{Message: "Transcribing..."}, readEvent(t, conn))
	assert.Equal(t, events.Transcription{Text: "hello"}, readEvent(t, conn))
	assert.Equal(t, events.Status{Message: "Thinking..."}, readEvent(t, conn))
	assert.Equal(t, events.LLMResponse{Text: "hi there"}, readEvent(t, conn))
	assert.Equal(t, events.TTSStart{}, readEvent(t, conn))

	var received []byte
	for range 2 {
		chunk, ok := readEvent(t, conn).(events.TTSChunk)
		require.True(t, ok)
		received = append(received, chunk.Audio...)
	}
	assert.Equal(t, speech, received)
	assert.Equal(t, events.TTSEnd{}, readEvent(t, conn))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(srv.Metrics().EventsTotal.WithLabelValues("audio", "handled")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().EventsTotal.WithLabelValues(string(orchestration.KindInvalid), "dropped")))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(srv.Metrics().SessionsActive) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketSession_ErrorEventKeepsSessionOpen(t *testing.T) {
	_, ts := newTestServer(t, Dependencies{})
	conn := dialSession(t, ts, nil)
	readEvent(t, conn)

	sendEvent(t, conn, events.VisionImage{Image: "AAAA"})
	assert.Equal(t, events.Status{Message: "Analyzing image..."}, readEvent(t, conn))
	assert.Equal(t, events.Error{Message: "Sorry, image analysis is not available."}, readEvent(t, conn))

	sendEvent(t, conn, events.Greeting{})
	assert.Equal(t, events.LLMResponse{Text: orchestration.GreetingText}, readEvent(t, conn))
}

func TestWebSocket_RejectsUnknownOrigin(t *testing.T) {
	_, ts := newTestServer(t, Dependencies{}, WithAllowedOrigins("http://allowed.example"))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestProcessFrame(t *testing.T) {
	t.Run("calibrated", func(t *testing.T) {
		_, ts := newTestServer(t, Dependencies{Calibration: stubCalibrator{result: &calibration.Result{
			ProcessedFrame: "data:image/jpeg;base64,AAAA",
			Distance:       52.3,
			Status:         calibration.StatusComplete,
		}}})

		resp := postJSON(t, ts, "/vision/process-frame", map[string]string{"frame": "data:image/jpeg;base64,AAAA"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "data:image/jpeg;base64,AAAA", body["processed_frame"])
		assert.Equal(t, 52.3, body["distance"])
		assert.Equal(t, "Calibration complete", body["calibration_status"])
	})

	t.Run("unprocessable frame answers null", func(t *testing.T) {
		srv, ts := newTestServer(t, Dependencies{Calibration: stubCalibrator{err: errors.New("no landmarks")}})

		resp := postJSON(t, ts, "/vision/process-frame", map[string]string{"frame": "garbage"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "null", strings.TrimSpace(string(raw)))
		assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().CalibrationsTotal.WithLabelValues("failed")))
	})

	t.Run("missing frame", func(t *testing.T) {
		_, ts := newTestServer(t, Dependencies{Calibration: stubCalibrator{}})

		resp := postJSON(t, ts, "/vision/process-frame", map[string]string{})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("not configured", func(t *testing.T) {
		_, ts := newTestServer(t, Dependencies{})

		resp := postJSON(t, ts, "/vision/process-frame", map[string]string{"frame": "AAAA"})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestScore(t *testing.T) {
	_, ts := newTestServer(t, Dependencies{})

	resp := postJSON(t, ts, "/vision/score", map[string]any{
		"reference_text":       "The quick brown fox",
		"observed_text":        "the quick brown fox",
		"behavioral_stability": 80,
		"movement_score":       70,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, 100.0, body["reading_accuracy"])
	assert.Equal(t, 88.0, body["final_score"])
	assert.Equal(t, "Mild visual difficulty. Reading accuracy or stability shows slight deviations from baseline.", body["interpretation"])

	resp = postJSON(t, ts, "/vision/score", map[string]any{"reference_text": "a", "observed_text": "a"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postJSON(t, ts, "/vision/score", map[string]any{"behavioral_stability": 120, "movement_score": 50})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAssessmentEndpoints(t *testing.T) {
	_, ts := newTestServer(t, Dependencies{})

	resp, err := http.Get(ts.URL + "/assessment/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := decodeBody(t, resp)
	assert.Equal(t, map[string]any{"vision": 74.6, "hearing": 63.25, "cognitive": 75.0}, report["domain_scores"])
	assert.Contains(t, report["detailed_scores"], "vision")

	resp, err = http.Get(ts.URL + "/assessment/assistant")
	require.NoError(t, err)
	defer resp.Body.Close()

	decision := decodeBody(t, resp)
	assert.Equal(t, "Hearing Assistant", decision["assistant"])
}

func uploadReport(t *testing.T, ts *httptest.Server, filename string, content []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(ts.URL+"/analyze-report", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAnalyzeReport(t *testing.T) {
	extractor := &stubExtractor{text: "Diagnosis: bilateral sensorineural hearing loss."}
	reportClassifier := &stubClassifier{analysis: classifier.Analysis{
		PrimaryDisability: classifier.DisabilityHearing,
		Confidence:        88,
		Summary:           "Hearing loss",
		AssistantToLoad:   classifier.AssistantSpeech,
	}}
	srv, ts := newTestServer(t, Dependencies{Documents: extractor, Classifier: reportClassifier}, WithMaxUploadBytes(1024))

	resp := uploadReport(t, ts, "report.pdf", []byte("%PDF-1.4\nreport"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "speech_assistant", body["assistant_to_load"])
	analysis := body["analysis"].(map[string]any)
	assert.Equal(t, "hearing", analysis["primary_disability"])
	assert.Equal(t, 88.0, analysis["confidence"])

	assert.Equal(t, []documents.Kind{documents.KindPDF}, extractor.kinds)
	assert.Equal(t, []string{"Diagnosis: bilateral sensorineural hearing loss."}, reportClassifier.texts)
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().ReportAnalysesTotal.WithLabelValues("classified")))

	t.Run("unsupported type", func(t *testing.T) {
		resp := uploadReport(t, ts, "notes.txt", []byte("plain text notes"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Unsupported file type", decodeBody(t, resp)["detail"])
	})

	t.Run("too large", func(t *testing.T) {
		resp := uploadReport(t, ts, "big.pdf", append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 2048)...))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "File too large", decodeBody(t, resp)["detail"])
	})

	t.Run("no file", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/analyze-report", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("extraction failure", func(t *testing.T) {
		extractor.err = errors.New("pdftotext exited with status 1")
		defer func() { extractor.err = nil }()

		resp := uploadReport(t, ts, "broken.pdf", []byte("%PDF-1.4\nbroken"))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, decodeBody(t, resp)["detail"], "pdftotext")
	})
}

func TestAnalyzeReport_ClassifierFallback(t *testing.T) {
	reportClassifier := &stubClassifier{analysis: classifier.Fallback(), err: errors.New("no JSON object in model output")}
	_, ts := newTestServer(t, Dependencies{Documents: &stubExtractor{text: "x"}, Classifier: reportClassifier})

	resp := uploadReport(t, ts, "scan.png", []byte("\x89PNG\r\n\x1a\n0000"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "none", body["assistant_to_load"])
	assert.Equal(t, "Could not classify report", body["analysis"].(map[string]any)["summary"])
}

// blockingCollaborator stalls until its context ends, like a hung model
// call or OCR process.
type blockingCollaborator struct{}

func (blockingCollaborator) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(3 * time.Second):
		return errors.New("collaborator was never cancelled")
	}
}

func (b blockingCollaborator) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	return b.Extract(ctx, data, documents.KindPDF)
}

func (b blockingCollaborator) Extract(ctx context.Context, _ []byte, _ documents.Kind) (string, error) {
	return "", b.wait(ctx)
}

func (b blockingCollaborator) Classify(ctx context.Context, _ string) (classifier.Analysis, error) {
	return classifier.Analysis{}, b.wait(ctx)
}

func TestAnalyzeReport_Timeouts(t *testing.T) {
	timeouts := orchestration.Timeouts{LLM: 50 * time.Millisecond, Documents: 50 * time.Millisecond}

	t.Run("stalled classification falls back", func(t *testing.T) {
		srv, ts := newTestServer(t, Dependencies{
			Documents:  &stubExtractor{text: "Diagnosis: low vision."},
			Classifier: blockingCollaborator{},
			Timeouts:   timeouts,
		})

		start := time.Now()
		resp := uploadReport(t, ts, "report.pdf", []byte("%PDF-1.4\nreport"))
		assert.Less(t, time.Since(start), time.Second)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "none", body["assistant_to_load"])
		assert.Equal(t, "Could not classify report", body["analysis"].(map[string]any)["summary"])
		assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().ReportAnalysesTotal.WithLabelValues("fallback")))
	})

	t.Run("stalled extraction fails", func(t *testing.T) {
		reportClassifier := &stubClassifier{analysis: classifier.Fallback()}
		srv, ts := newTestServer(t, Dependencies{
			Documents:  blockingCollaborator{},
			Classifier: reportClassifier,
			Timeouts:   timeouts,
		})

		start := time.Now()
		resp := uploadReport(t, ts, "report.pdf", []byte("%PDF-1.4\nreport"))
		assert.Less(t, time.Since(start), time.Second)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Empty(t, reportClassifier.texts)
		assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().ReportAnalysesTotal.WithLabelValues("extract_failed")))
	})
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, Dependencies{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/vision/score", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, Dependencies{LLM: stubLLM{}})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	health := decodeBody(t, resp)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["features"].(map[string]any)["llm"])
	assert.Equal(t, false, health["features"].(map[string]any)["vision"])

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `vocalis_http_requests_total{code="200",route="GET /healthz"} 1`)
}
