package chunk

import (
	"bytes"

	"github.com/example/stationstats/internal/fault"
)

// SplitRegion cuts an in-memory region, typically a file mapping, into
// windows of at most size bytes, each ending at the last newline inside the
// window. The chunks passed to emit alias data and are capped so appending to
// them cannot reach the next chunk. An error from emit stops the walk and is
// returned unchanged.
func SplitRegion(data []byte, size int, emit func([]byte) error) error {
	if size <= 0 {
		size = DefaultBufferSize
	}
	for start := 0; start < len(data); {
		end := min(start+size, len(data))
		i := bytes.LastIndexByte(data[start:end], '\n')
		if i < 0 {
			if end == len(data) {
				return fault.Newf(fault.KindParse, "split", "%d trailing bytes: %w", end-start, ErrUnterminated)
			}
			return fault.Newf(fault.KindCapacity, "split", "window of %d bytes at offset %d: %w", size, start, ErrBufferTooSmall)
		}
		cut := start + i + 1
		if err := emit(data[start:cut:cut]); err != nil {
			return err
		}
		start = cut
	}
	return nil
}
