package audio

import "fmt"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

// EncodingInfo describes raw PCM audio exchanged with the speech engines.
// Audio itself is never transcoded, the info is only forwarded so engines can
// interpret the bytes.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)

// ParseEncodingInfo builds an EncodingInfo from configuration values.
func ParseEncodingInfo(format string, sampleRate int) (EncodingInfo, error) {
	f := encodingFormat(format)
	if f.ByteSize() < 0 {
		return EncodingInfo{}, fmt.Errorf("unsupported audio encoding %q", format)
	}
	if sampleRate <= 0 {
		return EncodingInfo{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	return EncodingInfo{SampleRate: sampleRate, Format: f}, nil
}
