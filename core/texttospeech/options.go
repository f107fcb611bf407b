package texttospeech

import "github.com/koscakluka/vocalis/core/audio"

type SynthesisOptions struct {
	// EncodingInfo is the format of the produced audio. Zero means the
	// engine default.
	EncodingInfo audio.EncodingInfo
	// Voice overrides the voice the client was created with.
	Voice string

	// SpeechAudioCallback is called with every audio fragment as it is
	// produced, in addition to the audio being part of the full buffer.
	SpeechAudioCallback func(audio []byte)
}

type SynthesisOption func(*SynthesisOptions)

func NewSynthesisOptions(opts ...SynthesisOption) SynthesisOptions {
	options := SynthesisOptions{SpeechAudioCallback: func([]byte) {}}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		o.EncodingInfo = encodingInfo
	}
}

func WithVoice(voice string) SynthesisOption {
	return func(o *SynthesisOptions) {
		o.Voice = voice
	}
}

func WithSpeechAudioCallback(callback func([]byte)) SynthesisOption {
	return func(o *SynthesisOptions) {
		if callback != nil {
			o.SpeechAudioCallback = callback
		}
	}
}
