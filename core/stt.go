package orchestration

import (
	"context"
)

func (s *Session) transcribe(ctx context.Context, audio []byte) (string, error) {
	if s.speechToText == nil {
		return "", &StageError{Stage: StageTranscribe, Err: ErrNotConfigured}
	}

	var transcript string
	err := s.call(ctx, StageTranscribe, s.timeouts.SpeechToText, func(ctx context.Context) error {
		var err error
		transcript, err = s.speechToText.Transcribe(ctx, audio, s.transcriptionOptions...)
		return err
	})
	return transcript, err
}
