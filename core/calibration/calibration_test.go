package calibration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// faceLandmarks builds a full mesh with the nose at noseX and the face edges
// placed so the estimated distance equals distance for any frame width.
func faceLandmarks(noseX, distance float64) []Landmark {
	landmarks := make([]Landmark, 478)
	for i := range landmarks {
		landmarks[i] = Landmark{X: 0.5, Y: 0.5}
	}
	halfWidth := DistanceConstant / distance / 2
	landmarks[LandmarkLeftEdge] = Landmark{X: 0.5 - halfWidth, Y: 0.5}
	landmarks[LandmarkRightEdge] = Landmark{X: 0.5 + halfWidth, Y: 0.5}
	landmarks[LandmarkNoseTip] = Landmark{X: noseX, Y: 0.5}
	return landmarks
}

func TestMeasure(t *testing.T) {
	testCases := []struct {
		name      string
		landmarks []Landmark
		want      Status
	}{
		{name: "no face", landmarks: nil, want: StatusNoFace},
		{name: "centered at 50", landmarks: faceLandmarks(0.5, 50), want: StatusComplete},
		{name: "nose left", landmarks: faceLandmarks(0.3, 50), want: StatusMisaligned},
		{name: "misaligned wins over distance", landmarks: faceLandmarks(0.7, 20), want: StatusMisaligned},
		{name: "band is open", landmarks: faceLandmarks(0.4, 50), want: StatusMisaligned},
		{name: "too close to camera", landmarks: faceLandmarks(0.5, 30), want: StatusTooFar},
		{name: "too far from camera", landmarks: faceLandmarks(0.5, 80), want: StatusTooClose},
		{name: "lower bound", landmarks: faceLandmarks(0.5, 46), want: StatusComplete},
		{name: "upper bound", landmarks: faceLandmarks(0.5, 64), want: StatusComplete},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			distance, status, err := Measure(tc.landmarks, 640)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tc.want {
				t.Fatalf("expected %q, got %q (distance %v)", tc.want, status, distance)
			}
			if tc.landmarks == nil && distance != 0 {
				t.Fatalf("expected zero distance without a face, got %v", distance)
			}
		})
	}
}

func TestMeasureDistance(t *testing.T) {
	distance, _, err := Measure(faceLandmarks(0.5, 50), 1280)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(distance-50) > 1e-3 {
		t.Fatalf("expected distance close to 50, got %v", distance)
	}
	if roundDistance(distance) != 50 {
		t.Fatalf("expected rounded distance 50, got %v", roundDistance(distance))
	}
}

func TestMeasureRejectsShortLandmarkSets(t *testing.T) {
	if _, _, err := Measure(make([]Landmark, 100), 640); err == nil {
		t.Fatalf("expected error for a landmark set without the face edges")
	}
}

func TestStatusLabels(t *testing.T) {
	for _, status := range []Status{StatusNoFace, StatusMisaligned, StatusTooFar, StatusTooClose, StatusComplete} {
		if status.Label() == "unknown" {
			t.Fatalf("expected a label for %q", status)
		}
	}
}

type stubDetector struct {
	landmarks []Landmark
	err       error
	frames    []Frame
	deadline  bool
}

func (s *stubDetector) Detect(ctx context.Context, frame Frame) ([]Landmark, error) {
	s.frames = append(s.frames, frame)
	_, s.deadline = ctx.Deadline()
	return s.landmarks, s.err
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessDataURLFrame(t *testing.T) {
	detector := &stubDetector{landmarks: faceLandmarks(0.5, 50)}
	engine := NewEngine(detector, WithTimeout(time.Second))

	frame := "data:image/png;base64," + base64.StdEncoding.EncodeToString(encodePNG(t, 64, 48))
	result, err := engine.Process(context.Background(), frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusComplete || result.Distance != 50 {
		t.Fatalf("unexpected result status %q distance %v", result.Status, result.Distance)
	}
	if !strings.HasPrefix(result.ProcessedFrame, "data:image/jpeg;base64,") {
		t.Fatalf("expected jpeg data url, got %.40q", result.ProcessedFrame)
	}
	if !detector.deadline {
		t.Fatalf("expected detector to run with a deadline")
	}
	if got := detector.frames[0]; got.Width != 64 || got.Height != 48 || got.ContentType != "image/png" {
		t.Fatalf("unexpected frame passed to detector %+v", got)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result.ProcessedFrame, "data:image/jpeg;base64,"))
	if err != nil {
		t.Fatalf("failed to decode processed frame: %v", err)
	}
	annotated, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("processed frame is not a jpeg: %v", err)
	}
	r, g, b, _ := annotated.At(32, 24).RGBA()
	if g>>8 < 128 || r>>8 > 128 || b>>8 > 128 {
		t.Fatalf("expected a green marker at the nose, got rgb(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestProcessRawBase64KeepsFormat(t *testing.T) {
	engine := NewEngine(&stubDetector{})

	result, err := engine.Process(context.Background(), base64.StdEncoding.EncodeToString(encodePNG(t, 8, 8)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.HasPrefix(result.ProcessedFrame, "data:") {
		t.Fatalf("expected bare base64 output for bare base64 input")
	}
	if result.Status != StatusNoFace || result.Distance != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestProcessFailures(t *testing.T) {
	pngFrame := base64.StdEncoding.EncodeToString(encodePNG(t, 8, 8))
	testCases := []struct {
		name     string
		detector *stubDetector
		frame    string
	}{
		{name: "not base64", detector: &stubDetector{}, frame: "data:image/png;base64,@@@"},
		{name: "not an image", detector: &stubDetector{}, frame: base64.StdEncoding.EncodeToString([]byte("GIF89a-but-broken"))},
		{name: "detector error", detector: &stubDetector{err: errors.New("model crashed")}, frame: pngFrame},
		{name: "short landmark set", detector: &stubDetector{landmarks: make([]Landmark, 10)}, frame: pngFrame},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewEngine(tc.detector).Process(context.Background(), tc.frame)
			if err == nil || result != nil {
				t.Fatalf("expected no result, got %+v %v", result, err)
			}
		})
	}
}

func TestRemoteDetector(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(detectResponse{Faces: [][]Landmark{{{X: 0.1, Y: 0.2}}, {{X: 0.9, Y: 0.9}}}})
	}))
	defer server.Close()

	detector := NewRemoteDetector(server.URL, nil)
	landmarks, err := detector.Detect(context.Background(), Frame{Data: []byte("frame"), ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(landmarks) != 1 || landmarks[0].X != 0.1 {
		t.Fatalf("expected only the first face, got %+v", landmarks)
	}
	if gotContentType != "image/jpeg" || string(gotBody) != "frame" {
		t.Fatalf("unexpected request %q %q", gotContentType, gotBody)
	}
}

func TestRemoteDetectorNoFacesAndErrors(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"faces": []}`))
	}))
	defer server.Close()

	detector := NewRemoteDetector(server.URL, nil)
	landmarks, err := detector.Detect(context.Background(), Frame{Data: []byte("x")})
	if err != nil || len(landmarks) != 0 {
		t.Fatalf("expected no landmarks and no error, got %v %v", landmarks, err)
	}

	status = http.StatusInternalServerError
	if _, err := detector.Detect(context.Background(), Frame{Data: []byte("x")}); err == nil {
		t.Fatalf("expected error on non-OK status")
	}
}
