package speechtotext

import "github.com/koscakluka/vocalis/core/audio"

type TranscriptionOptions struct {
	// EncodingInfo describes raw audio. Leave it zero for containerized audio
	// (wav, webm, ogg) so the engine can detect the format itself.
	EncodingInfo audio.EncodingInfo
	Language     string

	PartialTranscriptionCallback func(transcript string)
}

type TranscriptionOption func(*TranscriptionOptions)

func NewTranscriptionOptions(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{PartialTranscriptionCallback: func(string) {}}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

// WithPartialTranscriptionCallback is called for every finalized segment as
// it arrives, before the whole transcript is returned.
func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if callback != nil {
			o.PartialTranscriptionCallback = callback
		}
	}
}
