// Package source opens the measurement input: a plain file read
// incrementally, a memory-mapped file, or an object in S3-compatible storage.
package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/example/stationstats/internal/fault"
)

// Source is an opened input. Reads go through Read; mapped sources also expose
// their whole content through Mapped.
type Source struct {
	Name string
	// Size is the input length in bytes, -1 if unknown.
	Size int64

	r     io.Reader
	data  []byte
	close func() error
}

func (s *Source) Read(p []byte) (int, error) { return s.r.Read(p) }

// Mapped returns the content of a mapped source. The slice is only valid
// until Close.
func (s *Source) Mapped() ([]byte, bool) {
	return s.data, s.data != nil
}

func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	err := s.close()
	s.close = nil
	return err
}

type Options struct {
	// Mmap maps local files into memory instead of reading them.
	Mmap   bool
	Object ObjectConfig
}

// Stdin is the location that reads standard input.
const Stdin = "-"

// Open picks the right opener for location: "-" is standard input,
// s3://bucket/key goes to object storage, anything else is a local path.
func Open(ctx context.Context, location string, opts Options) (*Source, error) {
	if location == Stdin {
		return FromReader("stdin", os.Stdin), nil
	}
	if bucket, key, ok := ParseLocation(location); ok {
		return OpenObject(ctx, opts.Object, bucket, key)
	}
	if opts.Mmap {
		return MapFile(location)
	}
	return OpenFile(location)
}

// ParseLocation splits an s3://bucket/key location.
func ParseLocation(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func OpenFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.New(fault.KindInput, "open", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fault.New(fault.KindInput, "stat", err)
	}
	return &Source{Name: path, Size: fi.Size(), r: f, close: f.Close}, nil
}

// FromReader wraps a stream of unknown length. Closing the Source does not
// close r.
func FromReader(name string, r io.Reader) *Source {
	return &Source{Name: name, Size: -1, r: r}
}

func fromBytes(name string, data []byte, closeFn func() error) *Source {
	return &Source{
		Name:  name,
		Size:  int64(len(data)),
		r:     bytes.NewReader(data),
		data:  data,
		close: closeFn,
	}
}
