// Package assessment aggregates per-test assessment results into domain
// scores and decides which assistant a user needs.
package assessment

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/koscakluka/vocalis/core/scoring"
)

type Domain string

const (
	DomainVision    Domain = "vision"
	DomainHearing   Domain = "hearing"
	DomainCognitive Domain = "cognitive"
)

// Domains lists the domains a decision is made on, in report order.
var Domains = []Domain{DomainVision, DomainHearing, DomainCognitive}

// NeedThreshold is the domain score below which the domain's assistant is
// needed.
const NeedThreshold = 70.0

const (
	AssistantVision    = "Vision Assistant"
	AssistantHearing   = "Hearing Assistant"
	AssistantCognitive = "Cognitive Assistant"
	AssistantNone      = "No Assistant Needed"
	AssistantMulti     = "Multi-Assist Mode"
)

var domainAssistants = map[Domain]string{
	DomainVision:    AssistantVision,
	DomainHearing:   AssistantHearing,
	DomainCognitive: AssistantCognitive,
}

var ErrNoTests = errors.New("domain has no tests")

// Dataset holds individual test scores grouped by domain.
type Dataset map[Domain]map[string]float64

// DomainScores is the mean test score of each domain.
type DomainScores map[Domain]float64

// Report is the full assessment report.
type Report struct {
	DomainScores   DomainScores `json:"domain_scores"`
	DetailedScores Dataset      `json:"detailed_scores"`
}

// Decision is the assistant chosen for a set of domain scores.
type Decision struct {
	Assistant    string       `json:"assistant"`
	DomainScores DomainScores `json:"domain_scores"`
}

// CalculateDomainScores averages each domain's tests, rounded to two
// decimals.
func CalculateDomainScores(data Dataset) (DomainScores, error) {
	scores := make(DomainScores, len(data))
	for domain, tests := range data {
		if len(tests) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoTests, domain)
		}
		sum := 0.0
		for _, score := range tests {
			sum += score
		}
		scores[domain] = scoring.Round(sum/float64(len(tests)), 2)
	}
	return scores, nil
}

func GenerateReport(data Dataset) (Report, error) {
	scores, err := CalculateDomainScores(data)
	if err != nil {
		return Report{}, err
	}
	return Report{DomainScores: scores, DetailedScores: data}, nil
}

// DecideAssistant picks the assistant for domain scores holding exactly the
// vision, hearing and cognitive domains.
func DecideAssistant(scores DomainScores) (string, error) {
	if err := validateDomains(scores); err != nil {
		return "", err
	}

	var needed []string
	for _, domain := range Domains {
		if scores[domain] < NeedThreshold {
			needed = append(needed, domainAssistants[domain])
		}
	}

	switch len(needed) {
	case 0:
		return AssistantNone, nil
	case 1:
		return needed[0], nil
	default:
		return AssistantMulti, nil
	}
}

// Decide computes the domain scores of data and the assistant for them.
func Decide(data Dataset) (Decision, error) {
	scores, err := CalculateDomainScores(data)
	if err != nil {
		return Decision{}, err
	}
	assistant, err := DecideAssistant(scores)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Assistant: assistant, DomainScores: scores}, nil
}

func validateDomains(scores DomainScores) error {
	for _, domain := range Domains {
		if _, ok := scores[domain]; !ok {
			return fmt.Errorf("missing domain %q", domain)
		}
	}
	if len(scores) != len(Domains) {
		extra := slices.DeleteFunc(slices.Sorted(maps.Keys(scores)), func(d Domain) bool {
			return slices.Contains(Domains, d)
		})
		return fmt.Errorf("unexpected domains %v", extra)
	}
	return nil
}
