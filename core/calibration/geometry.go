package calibration

import (
	"fmt"
	"math"

	"github.com/koscakluka/vocalis/core/scoring"
)

// Landmark indices of the face mesh used for calibration.
const (
	LandmarkNoseTip   = 1
	LandmarkLeftEdge  = 234
	LandmarkRightEdge = 454
)

const (
	// DistanceConstant converts the face width ratio into an approximate
	// distance in centimetres.
	DistanceConstant = 15.0
	epsilon          = 1e-6

	MinDistance = 45.0
	MaxDistance = 65.0

	MinNoseX = 0.4
	MaxNoseX = 0.6
)

// Landmark is a face mesh point in coordinates normalized to the frame.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

type Status string

const (
	StatusNoFace     Status = "No face detected"
	StatusMisaligned Status = "Align your face"
	StatusTooFar     Status = "Move back"
	StatusTooClose   Status = "Move closer"
	StatusComplete   Status = "Calibration complete"
)

// Label is a short identifier for metrics and logs.
func (s Status) Label() string {
	switch s {
	case StatusNoFace:
		return "no_face"
	case StatusMisaligned:
		return "misaligned"
	case StatusTooFar:
		return "too_far"
	case StatusTooClose:
		return "too_close"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Measure estimates the distance of the face from the camera and classifies
// the calibration state. No landmarks means no face. The distance is not
// rounded.
func Measure(landmarks []Landmark, frameWidth int) (float64, Status, error) {
	if len(landmarks) == 0 {
		return 0, StatusNoFace, nil
	}
	if len(landmarks) <= LandmarkRightEdge {
		return 0, "", fmt.Errorf("expected at least %d landmarks, got %d", LandmarkRightEdge+1, len(landmarks))
	}
	if frameWidth <= 0 {
		return 0, "", fmt.Errorf("invalid frame width %d", frameWidth)
	}

	left, right := landmarks[LandmarkLeftEdge], landmarks[LandmarkRightEdge]
	width := float64(frameWidth)
	faceWidth := math.Hypot(left.X-right.X, left.Y-right.Y) * width
	distance := width * DistanceConstant / (faceWidth + epsilon)

	nose := landmarks[LandmarkNoseTip]
	switch {
	case !(nose.X > MinNoseX && nose.X < MaxNoseX):
		return distance, StatusMisaligned, nil
	case distance < MinDistance:
		return distance, StatusTooFar, nil
	case distance > MaxDistance:
		return distance, StatusTooClose, nil
	default:
		return distance, StatusComplete, nil
	}
}

func roundDistance(distance float64) float64 {
	return scoring.Round(distance, 1)
}
