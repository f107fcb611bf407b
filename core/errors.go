package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/koscakluka/vocalis/core/documents"
)

// Stage names a step of the response pipeline.
type Stage string

const (
	StageDecode     Stage = "decode"
	StageTranscribe Stage = "transcribe"
	StagePrompt     Stage = "prompt"
	StageSynthesize Stage = "synthesize"
	StageDescribe   Stage = "describe"
	StageExtract    Stage = "extract"
)

var (
	// ErrNotConfigured is returned when an event needs a collaborator the
	// session was created without.
	ErrNotConfigured = errors.New("collaborator not configured")
	// ErrChannelClosed is returned by a Channel once the peer went away.
	ErrChannelClosed = errors.New("channel closed")

	errEmptyResponse = errors.New("empty response")
)

// StageError is a failure of a single pipeline step. It ends the current
// cycle, the session keeps going.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

var failureMessages = map[Stage]string{
	StageDecode:     "Sorry, I couldn't read that message.",
	StageTranscribe: "Sorry, I couldn't understand that audio.",
	StagePrompt:     "Sorry, I couldn't come up with a response.",
	StageSynthesize: "Sorry, I couldn't speak the response.",
	StageDescribe:   "Sorry, I couldn't analyze that image.",
	StageExtract:    "Sorry, I couldn't read that PDF.",
}

var timeoutMessages = map[Stage]string{
	StageTranscribe: "Sorry, transcribing took too long.",
	StagePrompt:     "Sorry, the assistant took too long to respond.",
	StageSynthesize: "Sorry, speaking the response took too long.",
	StageDescribe:   "Sorry, analyzing the image took too long.",
	StageExtract:    "Sorry, reading the PDF took too long.",
}

var unavailableMessages = map[Stage]string{
	StageTranscribe: "Sorry, speech recognition is not available.",
	StagePrompt:     "Sorry, the assistant is not available.",
	StageSynthesize: "Sorry, speech is not available.",
	StageDescribe:   "Sorry, image analysis is not available.",
	StageExtract:    "Sorry, reading documents is not available.",
}

const (
	genericFailureMessage = "Sorry, something went wrong. Please try again."
	emptyPDFMessage       = "Sorry, I couldn't find any text in that PDF."
)

// UserMessage returns the fixed text shown to the user for this failure.
// Raw collaborator errors never reach the client.
func (e *StageError) UserMessage() string {
	var (
		message string
		ok      bool
	)
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		message, ok = timeoutMessages[e.Stage]
	case errors.Is(e.Err, ErrNotConfigured):
		message, ok = unavailableMessages[e.Stage]
	case e.Stage == StageExtract && errors.Is(e.Err, documents.ErrEmptyDocument):
		message, ok = emptyPDFMessage, true
	default:
		message, ok = failureMessages[e.Stage]
	}
	if !ok {
		return genericFailureMessage
	}
	return message
}

// TransportError is a failure to read from or write to the session channel.
// It ends the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func isDisconnect(err error) bool {
	return errors.Is(err, ErrChannelClosed) || errors.Is(err, io.EOF)
}

func userMessage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.UserMessage()
	}
	return genericFailureMessage
}
