package orchestration

import (
	"context"
	"log/slog"
	"time"

	"github.com/koscakluka/vocalis/core/llms"
	"github.com/koscakluka/vocalis/core/speechtotext"
	"github.com/koscakluka/vocalis/core/texttospeech"
)

type SessionOption func(*Session)

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) (string, error)
}

func WithSpeechToTextClient(client SpeechToText, opts ...speechtotext.TranscriptionOption) SessionOption {
	return func(s *Session) {
		s.speechToText = client
		s.transcriptionOptions = opts
	}
}

type LLM interface {
	Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error)
}

func WithLLM(client LLM) SessionOption {
	return func(s *Session) {
		s.llm = client
	}
}

type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error)
}

// WithTextToSpeechClient enables spoken replies. Without it the session only
// sends reply text.
func WithTextToSpeechClient(client TextToSpeech, opts ...texttospeech.SynthesisOption) SessionOption {
	return func(s *Session) {
		s.textToSpeech = client
		s.synthesisOptions = opts
	}
}

type ImageDescriber interface {
	Describe(ctx context.Context, encodedImage string) (string, error)
}

func WithImageDescriber(describer ImageDescriber) SessionOption {
	return func(s *Session) {
		s.describer = describer
	}
}

type DocumentReader interface {
	ExtractPDF(ctx context.Context, data []byte) (string, error)
}

func WithDocumentReader(reader DocumentReader) SessionOption {
	return func(s *Session) {
		s.documents = reader
	}
}

func WithSystemPrompt(prompt string) SessionOption {
	return func(s *Session) {
		s.systemPrompt = prompt
	}
}

// Timeouts bound every collaborator call. A zero field keeps the default.
type Timeouts struct {
	SpeechToText time.Duration
	LLM          time.Duration
	TextToSpeech time.Duration
	Vision       time.Duration
	Documents    time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		SpeechToText: 30 * time.Second,
		LLM:          60 * time.Second,
		TextToSpeech: 30 * time.Second,
		Vision:       60 * time.Second,
		Documents:    60 * time.Second,
	}
}

// WithDefaults fills every zero field from DefaultTimeouts.
func (t Timeouts) WithDefaults() Timeouts {
	return DefaultTimeouts().merge(t)
}

func (t Timeouts) merge(override Timeouts) Timeouts {
	pick := func(current, next time.Duration) time.Duration {
		if next > 0 {
			return next
		}
		return current
	}

	return Timeouts{
		SpeechToText: pick(t.SpeechToText, override.SpeechToText),
		LLM:          pick(t.LLM, override.LLM),
		TextToSpeech: pick(t.TextToSpeech, override.TextToSpeech),
		Vision:       pick(t.Vision, override.Vision),
		Documents:    pick(t.Documents, override.Documents),
	}
}

func WithTimeouts(timeouts Timeouts) SessionOption {
	return func(s *Session) {
		s.timeouts = s.timeouts.merge(timeouts)
	}
}

func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// WithObserver registers a sink for session metrics.
func WithObserver(observer Observer) SessionOption {
	return func(s *Session) {
		s.observer = observer
	}
}
