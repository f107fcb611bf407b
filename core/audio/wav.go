package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	wavHeaderSize  = 44
	wavFormatPCM   = 1
	wavFormatALaw  = 6
	wavFormatMuLaw = 7
)

// WAV wraps raw mono audio in a RIFF/WAVE container so speech engines can
// detect its encoding on their own.
func WAV(pcm []byte, info EncodingInfo) ([]byte, error) {
	if info.IsZero() {
		return nil, fmt.Errorf("encoding info is required")
	}

	var formatTag uint16
	switch info.Format {
	case EncodingLinear16:
		formatTag = wavFormatPCM
	case EncodingALaw:
		formatTag = wavFormatALaw
	case EncodingMulaw:
		formatTag = wavFormatMuLaw
	default:
		return nil, fmt.Errorf("unsupported audio encoding %q", info.Format)
	}

	const channels = 1
	sampleBytes := info.Format.ByteSize()
	blockAlign := channels * sampleBytes
	byteRate := info.SampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, formatTag)
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(info.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(sampleBytes*8))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), nil
}
