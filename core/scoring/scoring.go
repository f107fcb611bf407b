package scoring

import (
	"fmt"
	"math"
)

const (
	AccuracyWeight  = 0.5
	StabilityWeight = 0.3
	MovementWeight  = 0.2

	MinScore = 0.0
	MaxScore = 100.0
)

// CompositeScore is the result of scoring one vision assessment.
type CompositeScore struct {
	ReadingAccuracy     float64 `json:"reading_accuracy"`
	BehavioralStability float64 `json:"behavioral_stability"`
	MovementScore       float64 `json:"movement_score"`
	FinalScore          float64 `json:"final_score"`
	Interpretation      string  `json:"interpretation"`
}

// Score combines reading accuracy, behavioral stability and movement into the
// final score, clamped to [0, 100] and rounded to two decimals.
func Score(accuracy, stability, movement float64) CompositeScore {
	final := AccuracyWeight*accuracy + StabilityWeight*stability + MovementWeight*movement
	final = Round(Clamp(final), 2)

	return CompositeScore{
		ReadingAccuracy:     accuracy,
		BehavioralStability: stability,
		MovementScore:       movement,
		FinalScore:          final,
		Interpretation:      Interpret(final),
	}
}

type band struct {
	min            float64
	interpretation string
}

// bands are ordered from the highest lower bound down, the lower bound is
// inclusive.
var bands = []band{
	{90, "Minimal to no visual impairment detected. Excellent reading performance and behavioral stability."},
	{75, "Mild visual difficulty. Reading accuracy or stability shows slight deviations from baseline."},
	{50, "Moderate visual impairment. Noticeable difficulty in reading consistency and maintaining stable head position."},
	{25, "Significant visual impairment. Marked difficulty in reading accuracy and behavioral tracking."},
}

const severeInterpretation = "Severe visual impairment. Critical difficulty in visual engagement and information processing."

// Interpret maps a final score to its interpretation band.
func Interpret(score float64) string {
	for _, b := range bands {
		if score >= b.min {
			return b.interpretation
		}
	}
	return severeInterpretation
}

// ValidateComponent reports whether a measurement is a usable score input.
func ValidateComponent(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s must be a finite number", name)
	}
	if value < MinScore || value > MaxScore {
		return fmt.Errorf("%s must be between %v and %v, got %v", name, MinScore, MaxScore, value)
	}
	return nil
}

func Clamp(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}

// Round rounds half away from zero to the given number of decimals.
func Round(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}
