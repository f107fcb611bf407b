package calibration

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/koscakluka/vocalis/core/vision"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout = 5 * time.Second
	// jpegQuality matches the usual browser and OpenCV default.
	jpegQuality  = 95
	markerRadius = 1
)

var markerColor = color.RGBA{G: 255, A: 255}

// Result is the outcome of calibrating one frame.
type Result struct {
	ProcessedFrame string  `json:"processed_frame"`
	Distance       float64 `json:"distance"`
	Status         Status  `json:"calibration_status"`
}

// Engine measures face distance and alignment from camera frames.
// It holds no per-frame state and is safe for concurrent use.
type Engine struct {
	detector Detector
	timeout  time.Duration
	logger   *slog.Logger
}

type EngineOption func(*Engine)

func NewEngine(detector Detector, opts ...EngineOption) *Engine {
	e := &Engine{detector: detector, timeout: DefaultTimeout, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithTimeout bounds each detector call.
func WithTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Process calibrates one encoded frame (data URL or bare base64). Any error
// means there is no result for this frame, the caller is expected to carry
// on with the next one.
func (e *Engine) Process(ctx context.Context, encodedFrame string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "calibrate frame")
	defer span.End()

	encoded, err := vision.DecodeImage(encodedFrame)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to decode frame: %w", err))
	}
	decoded, _, err := image.Decode(bytes.NewReader(encoded.Data))
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to decode frame image: %w", err))
	}

	bounds := decoded.Bounds()
	span.SetAttributes(
		attribute.Int("frame.width", bounds.Dx()),
		attribute.Int("frame.height", bounds.Dy()),
	)

	detectCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	landmarks, err := e.detector.Detect(detectCtx, Frame{
		Data:        encoded.Data,
		ContentType: encoded.ContentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	})
	if err != nil {
		return nil, fail(span, fmt.Errorf("landmark detection failed: %w", err))
	}

	distance, status, err := Measure(landmarks, bounds.Dx())
	if err != nil {
		return nil, fail(span, err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), decoded, bounds.Min, draw.Src)
	drawLandmarks(canvas, landmarks)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fail(span, fmt.Errorf("failed to encode frame: %w", err))
	}

	processed := base64.StdEncoding.EncodeToString(out.Bytes())
	if encoded.IsDataURL {
		processed = vision.DataURL("image/jpeg", out.Bytes())
	}

	span.SetAttributes(
		attribute.String("calibration.status", status.Label()),
		attribute.Float64("calibration.distance", distance),
	)
	e.logger.DebugContext(ctx, "frame calibrated",
		"status", status.Label(), "distance", roundDistance(distance), "landmarks", len(landmarks))
	return &Result{
		ProcessedFrame: processed,
		Distance:       roundDistance(distance),
		Status:         status,
	}, nil
}

// drawLandmarks marks every landmark with a small filled dot.
func drawLandmarks(img *image.RGBA, landmarks []Landmark) {
	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	for _, lm := range landmarks {
		cx, cy := int(lm.X*w), int(lm.Y*h)
		for dy := -markerRadius; dy <= markerRadius; dy++ {
			for dx := -markerRadius; dx <= markerRadius; dx++ {
				if dx*dx+dy*dy > markerRadius*markerRadius {
					continue
				}
				if p := image.Pt(cx+dx, cy+dy); p.In(bounds) {
					img.SetRGBA(p.X, p.Y, markerColor)
				}
			}
		}
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
