package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/example/stationstats/internal/fault"
)

func collect(t *testing.T, s *Splitter) ([][]byte, error) {
	t.Helper()
	var chunks [][]byte
	for s.Next() {
		chunks = append(chunks, s.Chunk())
	}
	return chunks, s.Err()
}

func checkChunks(t *testing.T, input []byte, chunks [][]byte) {
	t.Helper()
	for i, c := range chunks {
		if len(c) == 0 || c[len(c)-1] != '\n' {
			t.Fatalf("chunk %d does not end with a newline: %q", i, c)
		}
	}
	if got := bytes.Join(chunks, nil); !bytes.Equal(got, input) {
		t.Fatalf("concatenated chunks differ from input\n got: %q\nwant: %q", got, input)
	}
}

func randomInput(r *rand.Rand, lines int) []byte {
	names := []string{"Abha", "Zurich", "St. John's", "Ürümqi", "Hamburg", "Xi"}
	var b strings.Builder
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&b, "%s;%.1f\n", names[r.Intn(len(names))], float64(r.Intn(1999)-999)/10)
	}
	return []byte(b.String())
}

func TestSplitterRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	input := randomInput(r, 2000)

	readers := map[string]func(io.Reader) io.Reader{
		"plain":    func(r io.Reader) io.Reader { return r },
		"one-byte": iotest.OneByteReader,
		"half":     iotest.HalfReader,
		"data-err": iotest.DataErrReader,
	}
	for name, wrap := range readers {
		for _, size := range []int{32, 64, 1000, 1 << 16} {
			t.Run(fmt.Sprintf("%s/%d", name, size), func(t *testing.T) {
				s := NewSplitter(wrap(bytes.NewReader(input)), size)
				chunks, err := collect(t, s)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				checkChunks(t, input, chunks)
			})
		}
	}
}

func TestSplitterChunksAreOwned(t *testing.T) {
	input := []byte("a;1.0\nb;2.0\nc;3.0\n")
	s := NewSplitter(iotest.OneByteReader(bytes.NewReader(input)), 8)
	chunks, err := collect(t, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("want several chunks, got %d", len(chunks))
	}
	// Earlier chunks must survive later reads into the shared buffer.
	checkChunks(t, input, chunks)
}

func TestSplitterEmpty(t *testing.T) {
	chunks, err := collect(t, NewSplitter(bytes.NewReader(nil), 16))
	if err != nil || len(chunks) != 0 {
		t.Fatalf("got %d chunks, err %v; want none", len(chunks), err)
	}
}

func TestSplitterUnterminated(t *testing.T) {
	s := NewSplitter(bytes.NewReader([]byte("A;10.0\nA;20.0")), 64)
	chunks, err := collect(t, s)
	if !errors.Is(err, ErrUnterminated) {
		t.Fatalf("err = %v, want ErrUnterminated", err)
	}
	if fault.KindOf(err) != fault.KindParse {
		t.Errorf("kind = %v, want parse", fault.KindOf(err))
	}
	// The complete record before the tail was still emitted.
	if len(chunks) != 1 || string(chunks[0]) != "A;10.0\n" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestSplitterBufferTooSmall(t *testing.T) {
	input := []byte("short;1.0\n" + strings.Repeat("x", 40) + ";2.0\n")
	var stalls []int
	s := NewSplitter(iotest.HalfReader(bytes.NewReader(input)), 16)
	s.OnStall = func(buffered int) { stalls = append(stalls, buffered) }
	_, err := collect(t, s)
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("err = %v, want ErrBufferTooSmall", err)
	}
	if fault.KindOf(err) != fault.KindCapacity {
		t.Errorf("kind = %v, want capacity", fault.KindOf(err))
	}
	if s.Stalls() == 0 || len(stalls) != s.Stalls() {
		t.Errorf("stalls = %d, callbacks = %v", s.Stalls(), stalls)
	}
}

func TestSplitterRecoversFromStall(t *testing.T) {
	// A record longer than one short read but shorter than the buffer.
	input := []byte(strings.Repeat("y", 20) + ";1.0\n")
	s := NewSplitter(iotest.OneByteReader(bytes.NewReader(input)), 64)
	chunks, err := collect(t, s)
	if err != nil {
		t.Fatal(err)
	}
	checkChunks(t, input, chunks)
	if s.Stalls() == 0 {
		t.Error("expected stalls to be counted")
	}
}

func TestSplitterReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := collect(t, NewSplitter(iotest.ErrReader(boom), 16))
	if !errors.Is(err, boom) || fault.KindOf(err) != fault.KindInput {
		t.Fatalf("err = %v (kind %v), want input error wrapping cause", err, fault.KindOf(err))
	}
}

type stuckReader struct{}

func (stuckReader) Read([]byte) (int, error) { return 0, nil }

func TestSplitterNoProgress(t *testing.T) {
	_, err := collect(t, NewSplitter(stuckReader{}, 16))
	if !errors.Is(err, io.ErrNoProgress) {
		t.Fatalf("err = %v, want io.ErrNoProgress", err)
	}
}
