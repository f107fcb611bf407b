package audio

import "iter"

// ChunkSize is the number of bytes carried by a single outbound speech chunk.
const ChunkSize = 4096

// Chunks yields consecutive slices of buf of at most size bytes. Every chunk
// except possibly the last one is exactly size bytes long. Chunks share memory
// with buf.
func Chunks(buf []byte, size int) iter.Seq[[]byte] {
	if size <= 0 {
		size = ChunkSize
	}

	return func(yield func([]byte) bool) {
		for start := 0; start < len(buf); start += size {
			end := min(start+size, len(buf))
			if !yield(buf[start:end:end]) {
				return
			}
		}
	}
}

// ChunkCount returns how many chunks Chunks yields for a buffer of n bytes.
func ChunkCount(n, size int) int {
	if size <= 0 {
		size = ChunkSize
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
