package orchestration

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/koscakluka/vocalis/core/events"
	"github.com/koscakluka/vocalis/core/llms"
	"go.opentelemetry.io/otel/attribute"
)

// greet starts a fresh conversation and speaks the welcome text. It touches
// neither speech recognition nor the LLM.
func (s *Session) greet(ctx context.Context) error {
	s.history.Clear()
	return s.say(ctx, GreetingText)
}

func (s *Session) handleAudio(ctx context.Context, event events.Audio) error {
	audio, err := base64.StdEncoding.DecodeString(event.Data)
	if err != nil {
		return &StageError{Stage: StageDecode, Err: fmt.Errorf("invalid audio data: %w", err)}
	}

	if err := s.emitStatus(ctx, statusTranscribing); err != nil {
		return err
	}

	transcript, err := s.transcribe(ctx, audio)
	if err != nil {
		return err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return s.emitStatus(ctx, statusListening)
	}

	if err := s.emit(ctx, events.Transcription{Text: transcript}); err != nil {
		return err
	}

	return s.respond(ctx, transcript)
}

// respond runs the prompt and speak steps for one user turn. The turn and the
// reply enter the history only once the LLM answered.
func (s *Session) respond(ctx context.Context, prompt string) error {
	if err := s.emitStatus(ctx, statusThinking); err != nil {
		return err
	}

	reply, err := s.prompt(ctx, prompt)
	if err != nil {
		return err
	}
	s.history.Push(llms.UserTurn(prompt), llms.AssistantTurn(reply))

	return s.say(ctx, reply)
}

// call runs one collaborator request under its own timeout.
func (s *Session) call(ctx context.Context, stage Stage, timeout time.Duration, run func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, string(stage))
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := run(ctx)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int64("response.duration_ms", elapsed.Milliseconds()))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
	}
	s.observer.StageCompleted(stage, elapsed, err)
	if err != nil {
		return fail(span, &StageError{Stage: stage, Err: err})
	}
	return nil
}
