package deepgram

import (
	"fmt"

	"github.com/koscakluka/vocalis/core/audio"
)

type encodingInfo struct {
	SampleRate int
	Format     string
}

// convertEncoding maps raw audio encodings to the listen endpoint parameters.
// A zero encoding is passed through as nil, the audio is then expected to
// carry its own container header.
func convertEncoding(encoding audio.EncodingInfo) (*encodingInfo, error) {
	if encoding.IsZero() {
		return nil, nil
	}

	deepgramEncoding := encodingInfo{}
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		deepgramEncoding.SampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
	case audio.EncodingALaw, audio.EncodingMulaw:
		if deepgramEncoding.SampleRate != 8000 {
			return nil, fmt.Errorf("unsupported sample rate for %s encoding", encoding.Format.Name())
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}
	deepgramEncoding.Format = encoding.Format.Name()

	return &deepgramEncoding, nil
}
