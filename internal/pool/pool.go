// Package pool runs the parallel phase: one producer feeding chunks through a
// bounded queue to a fixed set of workers, each with a private aggregator.
package pool

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/example/stationstats/internal/record"
	"github.com/example/stationstats/internal/station"
)

const DefaultQueueSize = 1000

type Options struct {
	// Workers defaults to runtime.NumCPU().
	Workers int
	// QueueSize is the number of chunks that may wait for a worker before the
	// producer blocks.
	QueueSize int
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = max(runtime.NumCPU(), 1)
	}
	if o.QueueSize < 1 {
		o.QueueSize = DefaultQueueSize
	}
	return o
}

// Feed pushes every chunk of the input through send. send blocks while the
// queue is full and fails once the run is aborted; Feed should return that
// error as is. Chunks handed to send belong to the pool.
type Feed func(ctx context.Context, send func(chunk []byte) error) error

// Run starts the producer and the workers and waits for all of them. On
// success it returns one aggregator per worker. The first error from any
// goroutine aborts the rest and is returned alone; partial aggregates are
// dropped.
func Run[A station.Aggregator[A]](ctx context.Context, feed Feed, newAgg func() A, opts Options) ([]A, error) {
	opts = opts.withDefaults()
	g, ctx := errgroup.WithContext(ctx)
	queue := make(chan []byte, opts.QueueSize)

	g.Go(func() error {
		defer close(queue)
		return feed(ctx, func(chunk []byte) error {
			select {
			case queue <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	parts := make([]A, opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		w := w
		agg := newAgg()
		parts[w] = agg
		g.Go(func() error {
			if err := work(ctx, queue, agg); err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

func work[A station.Aggregator[A]](ctx context.Context, queue <-chan []byte, agg A) error {
	var p record.Parser
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-queue:
			if !ok {
				return nil
			}
			p.Reset(chunk)
			for p.Next() {
				if err := agg.Observe(p.Name(), p.Value()); err != nil {
					return err
				}
			}
			if err := p.Err(); err != nil {
				return err
			}
		}
	}
}

// Reduce folds every partial aggregate into parts[0] and returns it. It must
// only be called once the workers are gone, which Run guarantees.
func Reduce[A station.Aggregator[A]](parts []A, newAgg func() A) A {
	if len(parts) == 0 {
		return newAgg()
	}
	acc := parts[0]
	for _, p := range parts[1:] {
		acc.Merge(p)
	}
	return acc
}
