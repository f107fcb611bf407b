package orchestration

import (
	"time"

	"github.com/koscakluka/vocalis/core/events"
)

// Outcome is the result of handling one inbound event.
type Outcome string

const (
	OutcomeHandled Outcome = "handled"
	OutcomeDropped Outcome = "dropped"
	OutcomeFailed  Outcome = "failed"
)

// KindInvalid labels inbound frames that did not decode to an event.
const KindInvalid events.Kind = "invalid"

// Observer receives session lifecycle and pipeline measurements. Calls come
// from the session goroutine; implementations shared across sessions must be
// safe for concurrent use.
type Observer interface {
	SessionStarted()
	SessionEnded()
	EventHandled(kind events.Kind, outcome Outcome)
	StageCompleted(stage Stage, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) SessionStarted()                            {}
func (noopObserver) SessionEnded()                              {}
func (noopObserver) EventHandled(events.Kind, Outcome)          {}
func (noopObserver) StageCompleted(Stage, time.Duration, error) {}
