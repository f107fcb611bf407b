package orchestration

import (
	"context"

	"github.com/koscakluka/vocalis/core/audio"
	"github.com/koscakluka/vocalis/core/events"
)

// say sends text as the assistant reply followed by its speech. Speech is
// synthesized before tts_start is sent, so a failed synthesis never leaves an
// unterminated utterance on the channel.
func (s *Session) say(ctx context.Context, text string) error {
	if err := s.emit(ctx, events.LLMResponse{Text: text}); err != nil {
		return err
	}
	if s.textToSpeech == nil {
		return nil
	}

	speech, err := s.synthesize(ctx, text)
	if err != nil {
		return err
	}

	if err := s.emit(ctx, events.TTSStart{}); err != nil {
		return err
	}
	for chunk := range audio.Chunks(speech, audio.ChunkSize) {
		if err := s.emit(ctx, events.TTSChunk{Audio: chunk}); err != nil {
			return err
		}
	}
	return s.emit(ctx, events.TTSEnd{})
}

func (s *Session) synthesize(ctx context.Context, text string) ([]byte, error) {
	var speech []byte
	err := s.call(ctx, StageSynthesize, s.timeouts.TextToSpeech, func(ctx context.Context) error {
		var err error
		speech, err = s.textToSpeech.Synthesize(ctx, text, s.synthesisOptions...)
		if err != nil {
			return err
		}
		if len(speech) == 0 {
			return errEmptyResponse
		}
		return nil
	})
	return speech, err
}
