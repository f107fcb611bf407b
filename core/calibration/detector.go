package calibration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// Frame is one decoded camera frame handed to a detector.
type Frame struct {
	// Data is the frame as it was received (JPEG or PNG).
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Detector finds face landmarks in a frame. Only the first face is returned,
// an empty slice means no face was found.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Landmark, error)
}

// RemoteDetector calls a face landmark service over HTTP. The service
// receives the encoded frame as the request body and answers with
// {"faces": [[{"x":..,"y":..,"z":..}, ...], ...]}.
type RemoteDetector struct {
	url        string
	httpClient *http.Client
}

func NewRemoteDetector(url string, httpClient *http.Client) *RemoteDetector {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &RemoteDetector{url: url, httpClient: httpClient}
}

type detectResponse struct {
	Faces [][]Landmark `json:"faces"`
}

const maxDetectorErrorBody = 1 << 10

func (d *RemoteDetector) Detect(ctx context.Context, frame Frame) ([]Landmark, error) {
	ctx, span := tracer.Start(ctx, "detect landmarks")
	defer span.End()
	span.SetAttributes(
		attribute.Int("request.width", frame.Width),
		attribute.Int("request.height", frame.Height),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fail(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", frame.ContentType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fail(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetectorErrorBody))
		return nil, fail(span, fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, bytes.TrimSpace(body)))
	}

	var body detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fail(span, fmt.Errorf("error unmarshalling response: %w", err))
	}

	span.SetAttributes(attribute.Int("response.faces", len(body.Faces)))
	if len(body.Faces) == 0 {
		return nil, nil
	}
	return body.Faces[0], nil
}
