// Package chunk cuts an input byte stream into chunks that hold only whole
// records.
//
// Every chunk ends with '\n'. Concatenating the chunks in the order they are
// produced gives back the input exactly.
package chunk

import (
	"bytes"
	"errors"
	"io"

	"github.com/example/stationstats/internal/fault"
)

const DefaultBufferSize = 128 * 1024

var (
	// ErrBufferTooSmall means a single record is longer than the read buffer.
	ErrBufferTooSmall = errors.New("no newline within a full buffer, record exceeds buffer size")
	// ErrUnterminated means the input ends without a final newline.
	ErrUnterminated = errors.New("input does not end with a newline")
)

// maxEmptyReads bounds consecutive (0, nil) reads, as bufio does.
const maxEmptyReads = 100

// Splitter reads from r into one reusable buffer and hands out each filled
// region up to its last newline as a freshly allocated chunk. Bytes after that
// newline are moved to the front of the buffer and completed by the next read.
type Splitter struct {
	r       io.Reader
	buf     []byte
	pending int
	chunk   []byte
	err     error
	eof     bool
	done    bool
	stalls  int

	// OnStall, if set, is called whenever a read adds no newline; buffered is
	// the number of bytes now waiting in the buffer.
	OnStall func(buffered int)
}

func NewSplitter(r io.Reader, size int) *Splitter {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Splitter{r: r, buf: make([]byte, size)}
}

// Next advances to the next chunk. It returns false at the end of the input
// or on the first error; Err tells the two apart.
func (s *Splitter) Next() bool {
	if s.done {
		return false
	}
	empty := 0
	for {
		if s.eof {
			s.done = true
			if s.pending > 0 {
				s.err = fault.Newf(fault.KindParse, "split", "%d trailing bytes: %w", s.pending, ErrUnterminated)
			}
			return false
		}
		if s.pending == len(s.buf) {
			s.done = true
			s.err = fault.Newf(fault.KindCapacity, "split", "buffer of %d bytes: %w", len(s.buf), ErrBufferTooSmall)
			return false
		}

		n, err := s.r.Read(s.buf[s.pending:])
		switch {
		case err == io.EOF:
			s.eof = true
		case err != nil:
			s.done = true
			s.err = fault.New(fault.KindInput, "read", err)
			return false
		}
		if n == 0 {
			if !s.eof {
				if empty++; empty >= maxEmptyReads {
					s.done = true
					s.err = fault.New(fault.KindInput, "read", io.ErrNoProgress)
					return false
				}
			}
			continue
		}
		empty = 0

		filled := s.pending + n
		// The carried-over prefix has no newline, only the new bytes are searched.
		i := bytes.LastIndexByte(s.buf[s.pending:filled], '\n')
		if i < 0 {
			s.pending = filled
			s.stalls++
			if s.OnStall != nil {
				s.OnStall(filled)
			}
			continue
		}

		end := s.pending + i + 1
		s.chunk = bytes.Clone(s.buf[:end])
		s.pending = copy(s.buf, s.buf[end:filled])
		return true
	}
}

// Chunk returns the current chunk. The caller owns it; the Splitter never
// touches it again.
func (s *Splitter) Chunk() []byte { return s.chunk }

func (s *Splitter) Err() error { return s.err }

// Stalls is the number of reads that ended without a newline.
func (s *Splitter) Stalls() int { return s.stalls }
