package orchestration

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/koscakluka/vocalis/core/events"
	"github.com/koscakluka/vocalis/core/llms"
	"github.com/koscakluka/vocalis/core/speechtotext"
	"github.com/koscakluka/vocalis/core/texttospeech"
)

// scriptedChannel replays inbound frames and records everything written.
// Reads and writes are logged in a single sequence so tests can check that a
// frame is only read after the previous response was written.
type scriptedChannel struct {
	mu      sync.Mutex
	inbound [][]byte
	log     []string
	written []events.ServerEvent

	failWritesAfter int
}

func newScriptedChannel(t *testing.T, inbound ...events.ClientEvent) *scriptedChannel {
	t.Helper()

	ch := &scriptedChannel{failWritesAfter: -1}
	for _, event := range inbound {
		data, err := events.EncodeClientEvent(event)
		if err != nil {
			t.Fatalf("failed to encode %T: %v", event, err)
		}
		ch.inbound = append(ch.inbound, data)
	}
	return ch
}

func (c *scriptedChannel) pushRaw(frames ...string) {
	for _, frame := range frames {
		c.inbound = append(c.inbound, []byte(frame))
	}
}

func (c *scriptedChannel) Read(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.inbound) == 0 {
		return nil, ErrChannelClosed
	}
	frame := c.inbound[0]
	c.inbound = c.inbound[1:]
	c.log = append(c.log, "read")
	return frame, nil
}

func (c *scriptedChannel) Write(ctx context.Context, event events.ServerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failWritesAfter >= 0 && len(c.written) >= c.failWritesAfter {
		return errors.New("connection reset by peer")
	}

	data, err := events.EncodeServerEvent(event)
	if err != nil {
		return err
	}
	decoded, err := events.DecodeServerEvent(data)
	if err != nil {
		return err
	}

	c.written = append(c.written, decoded)
	c.log = append(c.log, string(event.Kind()))
	return nil
}

func (c *scriptedChannel) events() []events.ServerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.ServerEvent(nil), c.written...)
}

func (c *scriptedChannel) kinds() []string {
	written := c.events()
	kinds := make([]string, 0, len(written))
	for _, event := range written {
		kind := string(event.Kind())
		if status, ok := event.(events.Status); ok {
			kind += ":" + status.Message
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

type stubSpeechToText struct {
	transcript string
	err        error
	calls      atomic.Int32

	received [][]byte
}

func (s *stubSpeechToText) Transcribe(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) (string, error) {
	s.calls.Add(1)
	s.received = append(s.received, append([]byte(nil), audio...))
	return s.transcript, s.err
}

type promptCall struct {
	prompt  string
	options llms.PromptOptions
}

type stubLLM struct {
	reply func(ctx context.Context, prompt string) (string, error)

	mu        sync.Mutex
	calls     []promptCall
	active    atomic.Int32
	maxActive atomic.Int32
}

func replyWith(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, nil }
}

func (s *stubLLM) Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error) {
	active := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		current := s.maxActive.Load()
		if active <= current || s.maxActive.CompareAndSwap(current, active) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, promptCall{prompt: prompt, options: llms.NewPromptOptions(opts...)})
	s.mu.Unlock()

	reply, err := s.reply(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &llms.Response{Content: reply, FinishReason: "stop"}, nil
}

func (s *stubLLM) recorded() []promptCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]promptCall(nil), s.calls...)
}

type stubTextToSpeech struct {
	speech []byte
	err    error
	texts  []string
}

func (s *stubTextToSpeech) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error) {
	s.texts = append(s.texts, text)
	return s.speech, s.err
}

type stubDescriber struct {
	description string
	err         error
}

func (s *stubDescriber) Describe(ctx context.Context, encodedImage string) (string, error) {
	return s.description, s.err
}

type stubDocumentReader struct {
	text string
	err  error
}

func (s *stubDocumentReader) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	return s.text, s.err
}

func audioEvent(data []byte) events.Audio {
	return events.Audio{Data: base64.StdEncoding.EncodeToString(data)}
}

func speechOfLength(n int) []byte {
	speech := make([]byte, n)
	for i := range speech {
		speech[i] = byte(i % 251)
	}
	return speech
}
