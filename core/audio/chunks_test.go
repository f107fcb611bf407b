package audio

import (
	"bytes"
	"testing"
)

func TestChunksReassembleToOriginalBuffer(t *testing.T) {
	testCases := []struct {
		name string
		size int
	}{
		{name: "empty", size: 0},
		{name: "smaller than a chunk", size: 100},
		{name: "exactly one chunk", size: ChunkSize},
		{name: "one byte over", size: ChunkSize + 1},
		{name: "several chunks with tail", size: 3*ChunkSize + 17},
		{name: "several exact chunks", size: 5 * ChunkSize},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			buf := make([]byte, testCase.size)
			for i := range buf {
				buf[i] = byte(i % 251)
			}

			var reassembled []byte
			count := 0
			var sizes []int
			for chunk := range Chunks(buf, ChunkSize) {
				count++
				sizes = append(sizes, len(chunk))
				reassembled = append(reassembled, chunk...)
			}

			if !bytes.Equal(reassembled, buf) {
				t.Fatalf("expected reassembled chunks to equal original buffer")
			}
			if want := ChunkCount(len(buf), ChunkSize); count != want {
				t.Fatalf("expected %d chunks, got %d", want, count)
			}
			for i, size := range sizes {
				if i < len(sizes)-1 && size != ChunkSize {
					t.Fatalf("expected chunk %d to be %d bytes, got %d", i, ChunkSize, size)
				}
				if size == 0 || size > ChunkSize {
					t.Fatalf("chunk %d has invalid size %d", i, size)
				}
			}
		})
	}
}

func TestChunksStopsWhenConsumerStops(t *testing.T) {
	buf := make([]byte, 10*ChunkSize)
	seen := 0
	for range Chunks(buf, ChunkSize) {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("expected iteration to stop after 2 chunks, got %d", seen)
	}
}

func TestChunksDoNotAliasBeyondTheirLength(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	for chunk := range Chunks(buf, 2) {
		if cap(chunk) != len(chunk) {
			t.Fatalf("expected chunk capacity %d to equal its length %d", cap(chunk), len(chunk))
		}
	}
}

func TestParseEncodingInfo(t *testing.T) {
	info, err := ParseEncodingInfo("linear16", 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Format != EncodingLinear16 || info.SampleRate != 16000 {
		t.Fatalf("unexpected encoding info %+v", info)
	}

	if _, err := ParseEncodingInfo("opus", 16000); err == nil {
		t.Fatalf("expected unsupported encoding to fail")
	}
	if _, err := ParseEncodingInfo("mulaw", 0); err == nil {
		t.Fatalf("expected zero sample rate to fail")
	}
}
