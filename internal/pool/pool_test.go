package pool

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/stationstats/internal/fault"
	"github.com/example/stationstats/internal/record"
	"github.com/example/stationstats/internal/station"
)

func sliceFeed(chunks ...string) Feed {
	return func(ctx context.Context, send func([]byte) error) error {
		for _, c := range chunks {
			if err := send([]byte(c)); err != nil {
				return err
			}
		}
		return nil
	}
}

func randomChunks(r *rand.Rand, n int) ([]string, string) {
	names := []string{"Abha", "Zurich", "Oslo", "Xi"}
	chunks := make([]string, n)
	var all strings.Builder
	for i := range chunks {
		var b strings.Builder
		for j, n := 0, 1+r.Intn(50); j < n; j++ {
			fmt.Fprintf(&b, "%s;%.1f\n", names[r.Intn(len(names))], float64(r.Intn(station.Buckets)+station.MinTenths)/10)
		}
		chunks[i] = b.String()
		all.WriteString(chunks[i])
	}
	return chunks, all.String()
}

func single[A station.Aggregator[A]](t *testing.T, newAgg func() A, input string) station.Table {
	t.Helper()
	a := newAgg()
	p := record.NewParser([]byte(input))
	for p.Next() {
		if err := a.Observe(p.Name(), p.Value()); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Err(); err != nil {
		t.Fatal(err)
	}
	return a.Finalize()
}

func TestRunMatchesSingleWorker(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	chunks, all := randomChunks(r, 200)
	want := single(t, station.NewMedian, all)

	for _, workers := range []int{1, 2, 7, 16} {
		t.Run(fmt.Sprint(workers), func(t *testing.T) {
			parts, err := Run(context.Background(), sliceFeed(chunks...), station.NewMedian, Options{Workers: workers, QueueSize: 4})
			if err != nil {
				t.Fatal(err)
			}
			if len(parts) != workers {
				t.Fatalf("got %d partials, want %d", len(parts), workers)
			}
			got := Reduce(parts, station.NewMedian).Finalize()
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %v\nwant %v", got, want)
			}
		})
	}
}

func TestRunNoChunks(t *testing.T) {
	parts, err := Run(context.Background(), sliceFeed(), station.NewMean, Options{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got := Reduce(parts, station.NewMean).Finalize(); len(got) != 0 {
		t.Errorf("got %v, want empty table", got)
	}
}

func TestRunDefaults(t *testing.T) {
	parts, err := Run(context.Background(), sliceFeed("A;1.0\n"), station.NewMean, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) < 1 {
		t.Fatal("no workers started")
	}
}

func TestRunWorkerErrorAborts(t *testing.T) {
	chunks := []string{"A;1.0\n", "B;oops\n"}
	for i := 0; i < 2000; i++ {
		chunks = append(chunks, "C;2.0\n")
	}
	parts, err := Run(context.Background(), sliceFeed(chunks...), station.NewMean, Options{Workers: 4, QueueSize: 1})
	if !errors.Is(err, record.ErrBadValue) {
		t.Fatalf("err = %v, want ErrBadValue", err)
	}
	if fault.KindOf(err) != fault.KindParse {
		t.Errorf("kind = %v, want parse", fault.KindOf(err))
	}
	if parts != nil {
		t.Error("partial results returned alongside an error")
	}
}

func TestRunDomainErrorAborts(t *testing.T) {
	_, err := Run(context.Background(), sliceFeed("A;1.0\n", "A;500.0\n"), station.NewMedian, Options{Workers: 2})
	if !errors.Is(err, station.ErrOutOfRange) || fault.KindOf(err) != fault.KindDomain {
		t.Fatalf("err = %v, want domain error", err)
	}
}

func TestRunFeedError(t *testing.T) {
	boom := errors.New("boom")
	feed := func(ctx context.Context, send func([]byte) error) error {
		if err := send([]byte("A;1.0\n")); err != nil {
			return err
		}
		return boom
	}
	if _, err := Run(context.Background(), feed, station.NewMean, Options{Workers: 2}); err != boom {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := func(ctx context.Context, send func([]byte) error) error {
		for {
			if err := send([]byte("A;1.0\n")); err != nil {
				return err
			}
			cancel()
		}
	}
	if _, err := Run(ctx, feed, station.NewMean, Options{Workers: 2, QueueSize: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// gated blocks every Observe until release is closed.
type gated struct {
	release <-chan struct{}
	*station.Mean
}

func (g gated) Observe(name []byte, v float64) error {
	<-g.release
	return g.Mean.Observe(name, v)
}

func (g gated) Merge(o gated) { g.Mean.Merge(o.Mean) }

func TestRunBackpressure(t *testing.T) {
	release := make(chan struct{})
	var sent atomic.Int64
	feed := func(ctx context.Context, send func([]byte) error) error {
		for i := 0; i < 10; i++ {
			if err := send([]byte("A;1.0\n")); err != nil {
				return err
			}
			sent.Add(1)
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		newAgg := func() gated { return gated{release, station.NewMean()} }
		parts, err := Run(context.Background(), feed, newAgg, Options{Workers: 1, QueueSize: 2})
		if err == nil && Reduce(parts, newAgg).Finalize()["A"].Count != 10 {
			err = errors.New("lost records")
		}
		done <- err
	}()

	// One chunk held by the stalled worker plus two queued.
	deadline := time.Now().Add(5 * time.Second)
	for sent.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if got := sent.Load(); got != 3 {
		t.Errorf("producer sent %d chunks past a full queue, want 3", got)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
