package orchestration

import (
	"slices"

	"github.com/koscakluka/vocalis/core/llms"
)

// Turns is the ordered conversation history of one session. It is not safe
// for concurrent use; a session only touches it from its own goroutine.
type Turns struct {
	turns []llms.Turn
}

// Push adds new turns to the end of the history
func (t *Turns) Push(turns ...llms.Turn) {
	t.turns = append(t.turns, turns...)
}

// Clear removes all stored turns
func (t *Turns) Clear() {
	t.turns = nil
}

// Len returns the number of stored turns
func (t *Turns) Len() int {
	return len(t.turns)
}

// Values is an iterator that goes over all the stored turns starting from the
// earliest towards the latest
func (t *Turns) Values(yield func(llms.Turn) bool) {
	for _, turn := range t.turns {
		if !yield(turn) {
			return
		}
	}
}

// Snapshot returns a copy of the stored turns that is safe to hand to
// collaborators.
func (t *Turns) Snapshot() []llms.Turn {
	return slices.Clone(t.turns)
}
