package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/koscakluka/vocalis/core/events"
	"github.com/koscakluka/vocalis/core/llms"
	"github.com/koscakluka/vocalis/core/speechtotext"
	"github.com/koscakluka/vocalis/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Phase is the lifecycle state of a session.
type Phase int32

const (
	PhaseConnected Phase = iota
	PhaseAwaitingEvent
	PhaseDispatching
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseConnected:
		return "connected"
	case PhaseAwaitingEvent:
		return "awaiting_event"
	case PhaseDispatching:
		return "dispatching"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Session is one connected client. It reads events from its channel one at a
// time and writes the complete response of an event before reading the next
// one, so at most one collaborator call is in flight per session.
type Session struct {
	id      string
	channel Channel
	history Turns
	phase   atomic.Int32

	speechToText SpeechToText
	llm          LLM
	textToSpeech TextToSpeech
	describer    ImageDescriber
	documents    DocumentReader

	transcriptionOptions []speechtotext.TranscriptionOption
	synthesisOptions     []texttospeech.SynthesisOption

	systemPrompt string
	timeouts     Timeouts
	logger       *slog.Logger
	observer     Observer
}

func NewSession(channel Channel, opts ...SessionOption) *Session {
	s := &Session{
		id:           uuid.NewString(),
		channel:      channel,
		systemPrompt: DefaultSystemPrompt,
		timeouts:     DefaultTimeouts(),
		logger:       logger,
		observer:     noopObserver{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Session) setPhase(phase Phase) {
	s.phase.Store(int32(phase))
}

// History returns a copy of the conversation so far.
func (s *Session) History() []llms.Turn {
	return s.history.Snapshot()
}

// Run serves the session until the peer disconnects, the context is done or
// the channel fails. A clean disconnect returns nil; every other reason is
// returned as an error.
func (s *Session) Run(ctx context.Context) error {
	if s.channel == nil {
		return fmt.Errorf("session channel is required")
	}

	s.observer.SessionStarted()
	defer func() {
		s.setPhase(PhaseDisconnected)
		s.observer.SessionEnded()
		s.logger.Info("session disconnected")
	}()

	s.setPhase(PhaseConnected)
	s.logger.Info("session connected")
	if err := s.emitStatus(ctx, statusConnected); err != nil {
		return err
	}

	for {
		s.setPhase(PhaseAwaitingEvent)
		data, err := s.channel.Read(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if isDisconnect(err) {
				return nil
			}
			return &TransportError{Op: "read", Err: err}
		}

		s.setPhase(PhaseDispatching)
		if err := s.dispatch(ctx, data); err != nil {
			return err
		}
	}
}

// dispatch handles one inbound frame. Only transport failures are returned,
// everything else is reported to the client or dropped.
func (s *Session) dispatch(ctx context.Context, data []byte) error {
	event, err := events.DecodeClientEvent(data)
	if err != nil {
		s.logger.Warn("dropping inbound frame", "error", err, "bytes", len(data))
		s.observer.EventHandled(KindInvalid, OutcomeDropped)
		return nil
	}

	ctx, span := tracer.Start(ctx, "handle session event",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("event.kind", string(event.Kind())),
		),
	)
	defer span.End()

	err = panicSafeNamedHandler(string(event.Kind()), func(ctx context.Context) error {
		return s.handle(ctx, event)
	})(ctx)
	if err == nil {
		s.observer.EventHandled(event.Kind(), OutcomeHandled)
		return nil
	}

	s.observer.EventHandled(event.Kind(), OutcomeFailed)
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return fail(span, err)
	}

	fail(span, err)
	s.logger.Error("failed to handle event", "kind", event.Kind(), "error", err)
	return s.emit(ctx, events.Error{Message: userMessage(err)})
}

func (s *Session) handle(ctx context.Context, event events.ClientEvent) error {
	switch e := event.(type) {
	case events.Ping:
		return nil
	case events.Greeting:
		return s.greet(ctx)
	case events.Audio:
		return s.handleAudio(ctx, e)
	case events.VisionImage:
		return s.handleImage(ctx, e)
	case events.PDFUpload:
		return s.handlePDF(ctx, e)
	default:
		return fmt.Errorf("unhandled event kind %q", event.Kind())
	}
}
