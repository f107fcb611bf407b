package scoring

import (
	"math"
	"testing"
)

func TestScoreWeightsAndRounding(t *testing.T) {
	testCases := []struct {
		name                          string
		accuracy, stability, movement float64
		want                          float64
	}{
		{name: "all perfect", accuracy: 100, stability: 100, movement: 100, want: 100},
		{name: "all zero", accuracy: 0, stability: 0, movement: 0, want: 0},
		{name: "weighted", accuracy: 80, stability: 60, movement: 50, want: 68},
		{name: "rounded", accuracy: 33.333, stability: 66.667, movement: 12.345, want: 39.14},
		{name: "clamped high", accuracy: 150, stability: 150, movement: 150, want: 100},
		{name: "clamped low", accuracy: -20, stability: 0, movement: 0, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.accuracy, tc.stability, tc.movement)
			if got.FinalScore != tc.want {
				t.Fatalf("expected final score %v, got %v", tc.want, got.FinalScore)
			}
			if got.ReadingAccuracy != tc.accuracy || got.BehavioralStability != tc.stability || got.MovementScore != tc.movement {
				t.Fatalf("expected inputs to be echoed, got %+v", got)
			}
			if got.Interpretation != Interpret(got.FinalScore) {
				t.Fatalf("interpretation does not match final score: %+v", got)
			}
		})
	}
}

func TestScoreStaysInBounds(t *testing.T) {
	for a := 0.0; a <= 100; a += 12.5 {
		for s := 0.0; s <= 100; s += 12.5 {
			for m := 0.0; m <= 100; m += 12.5 {
				got := Score(a, s, m).FinalScore
				if got < 0 || got > 100 {
					t.Fatalf("score(%v, %v, %v) = %v out of bounds", a, s, m, got)
				}
				want := math.Round((0.5*a+0.3*s+0.2*m)*100) / 100
				if math.Abs(got-want) > 0.005 {
					t.Fatalf("score(%v, %v, %v) = %v, want %v", a, s, m, got, want)
				}
			}
		}
	}
}

func TestInterpretBoundaries(t *testing.T) {
	testCases := []struct {
		score float64
		want  string
	}{
		{100, bands[0].interpretation},
		{90, bands[0].interpretation},
		{89.99, bands[1].interpretation},
		{75, bands[1].interpretation},
		{74.99, bands[2].interpretation},
		{50, bands[2].interpretation},
		{49.99, bands[3].interpretation},
		{25, bands[3].interpretation},
		{24.99, severeInterpretation},
		{0, severeInterpretation},
	}

	for _, tc := range testCases {
		if got := Interpret(tc.score); got != tc.want {
			t.Fatalf("Interpret(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestInterpretationTextsAreStable(t *testing.T) {
	if got := Interpret(95); got != "Minimal to no visual impairment detected. Excellent reading performance and behavioral stability." {
		t.Fatalf("unexpected interpretation %q", got)
	}
	if got := Interpret(10); got != "Severe visual impairment. Critical difficulty in visual engagement and information processing." {
		t.Fatalf("unexpected interpretation %q", got)
	}
}

func TestValidateComponent(t *testing.T) {
	for _, ok := range []float64{0, 50, 100} {
		if err := ValidateComponent("x", ok); err != nil {
			t.Fatalf("expected %v to be valid, got %v", ok, err)
		}
	}
	for _, bad := range []float64{-0.1, 100.1, math.NaN(), math.Inf(1)} {
		if err := ValidateComponent("x", bad); err == nil {
			t.Fatalf("expected %v to be rejected", bad)
		}
	}
}

func TestReadingAccuracy(t *testing.T) {
	testCases := []struct {
		name                string
		reference, observed string
		want                float64
	}{
		{name: "identical", reference: "The quick brown fox", observed: "The quick brown fox", want: 100},
		{name: "case insensitive", reference: "The Quick Brown Fox", observed: "the quick brown fox", want: 100},
		{name: "empty reference", reference: "", observed: "anything", want: 0},
		{name: "empty observed", reference: "abc", observed: "", want: 0},
		{name: "disjoint", reference: "abc", observed: "xyz", want: 0},
		// matching blocks "ab" and "d" give 2*3/8
		{name: "partial", reference: "abcd", observed: "abxd", want: 75},
		{name: "one extra", reference: "abc", observed: "abcd", want: 85.71},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReadingAccuracy(tc.reference, tc.observed); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestReadingAccuracyIsSymmetricForSimpleInputs(t *testing.T) {
	a, b := "reading test", "reding tests"
	if ReadingAccuracy(a, b) != ReadingAccuracy(b, a) {
		t.Fatalf("expected symmetric ratio, got %v and %v", ReadingAccuracy(a, b), ReadingAccuracy(b, a))
	}
}
