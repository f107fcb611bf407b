package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
)

const (
	DisabilityVisual    = "visual"
	DisabilityHearing   = "hearing"
	DisabilityCognitive = "cognitive"
	DisabilityMultiple  = "multiple"
	DisabilityNone      = "none"

	AssistantVisual   = "visual_assistant"
	AssistantSpeech   = "speech_assistant"
	AssistantLearning = "learning_assistant"
	AssistantNone     = "none"
)

var (
	disabilities = []string{DisabilityVisual, DisabilityHearing, DisabilityCognitive, DisabilityMultiple, DisabilityNone}
	assistants   = []string{AssistantVisual, AssistantSpeech, AssistantLearning, AssistantNone}
)

// Analysis is the classification of one medical report.
type Analysis struct {
	PrimaryDisability string `json:"primary_disability" jsonschema:"enum=visual,enum=hearing,enum=cognitive,enum=multiple,enum=none"`
	Confidence        int    `json:"confidence" jsonschema:"minimum=0,maximum=100"`
	Summary           string `json:"summary"`
	AssistantToLoad   string `json:"assistant_to_load" jsonschema:"enum=visual_assistant,enum=speech_assistant,enum=learning_assistant,enum=none"`
}

// Fallback is returned whenever the model output cannot be used.
func Fallback() Analysis {
	return Analysis{
		PrimaryDisability: DisabilityNone,
		Confidence:        0,
		Summary:           "Could not classify report",
		AssistantToLoad:   AssistantNone,
	}
}

var ErrNoJSON = errors.New("no JSON object in model output")

// jsonObject matches from the first opening brace to the last closing one so
// prose or code fences around the object are ignored.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// rawAnalysis tolerates the loose typing models produce, confidence can be a
// number, a numeric string or missing.
type rawAnalysis struct {
	PrimaryDisability string `json:"primary_disability"`
	Confidence        any    `json:"confidence" copier:"-"`
	Summary           string `json:"summary"`
	AssistantToLoad   string `json:"assistant_to_load"`
}

// ParseAnalysis extracts an Analysis from free form model output.
func ParseAnalysis(output string) (Analysis, error) {
	match := jsonObject.FindString(output)
	if match == "" {
		return Analysis{}, ErrNoJSON
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return Analysis{}, fmt.Errorf("invalid JSON in model output: %w", err)
	}

	var analysis Analysis
	if err := copier.Copy(&analysis, &raw); err != nil {
		return Analysis{}, fmt.Errorf("copying analysis: %w", err)
	}

	confidence, err := parseConfidence(raw.Confidence)
	if err != nil {
		return Analysis{}, err
	}
	analysis.Confidence = confidence
	analysis.PrimaryDisability = normalizeChoice(analysis.PrimaryDisability, disabilities, DisabilityNone)
	analysis.AssistantToLoad = normalizeChoice(analysis.AssistantToLoad, assistants, AssistantNone)
	analysis.Summary = strings.TrimSpace(analysis.Summary)

	return analysis, nil
}

// parseConfidence truncates to an integer and clamps to [0, 100]. A missing
// confidence counts as 0.
func parseConfidence(value any) (int, error) {
	var f float64
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid confidence %q: %w", v, err)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("invalid confidence of type %T", value)
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("invalid confidence NaN")
	}

	return int(math.Max(0, math.Min(100, f))), nil
}

func normalizeChoice(value string, allowed []string, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if slices.Contains(allowed, value) {
		return value
	}
	return fallback
}
