// Package pipeline runs one aggregation end to end: split the source into
// chunks, aggregate them in the worker pool, merge the partials and finalize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/example/stationstats/internal/chunk"
	"github.com/example/stationstats/internal/fault"
	"github.com/example/stationstats/internal/pool"
	"github.com/example/stationstats/internal/source"
	"github.com/example/stationstats/internal/station"
)

type Options struct {
	Strategy   station.Strategy
	BufferSize int
	Pool       pool.Options
	// Logger receives progress messages; nil discards them.
	Logger *log.Logger
}

// Stats describes a finished run.
type Stats struct {
	Chunks   int
	Bytes    int64
	Stalls   int
	Stations int
	Records  uint64
	Elapsed  time.Duration
}

// Compute aggregates src with the configured strategy. Any failure aborts the
// whole run and no table is returned.
func Compute(ctx context.Context, src *source.Source, opts Options) (station.Table, Stats, error) {
	switch opts.Strategy {
	case station.StrategyMean, "":
		return compute(ctx, src, station.NewMean, opts)
	case station.StrategyMedian:
		return compute(ctx, src, station.NewMedian, opts)
	}
	return nil, Stats{}, fmt.Errorf("unknown strategy %q", opts.Strategy)
}

func compute[A station.Aggregator[A]](ctx context.Context, src *source.Source, newAgg func() A, opts Options) (station.Table, Stats, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	var stats Stats
	feed := func(ctx context.Context, send func([]byte) error) error {
		emit := func(c []byte) error {
			stats.Chunks++
			stats.Bytes += int64(len(c))
			return send(c)
		}
		if data, ok := src.Mapped(); ok {
			return chunk.SplitRegion(data, opts.BufferSize, emit)
		}

		s := chunk.NewSplitter(src, opts.BufferSize)
		s.OnStall = func(buffered int) {
			logger.Printf("progress stall: no newline in %d buffered bytes", buffered)
		}
		for s.Next() {
			if err := emit(s.Chunk()); err != nil {
				return err
			}
		}
		stats.Stalls = s.Stalls()
		return s.Err()
	}

	parts, err := pool.Run(ctx, feed, newAgg, opts.Pool)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fault.Newf(fault.KindInput, "run", "%s interrupted: %w", src.Name, err)
		}
		return nil, stats, err
	}
	logger.Printf("%s: %d chunks, %d bytes, %d workers done", src.Name, stats.Chunks, stats.Bytes, len(parts))

	table := pool.Reduce(parts, newAgg).Finalize()
	stats.Stations = len(table)
	stats.Records = table.Records()
	stats.Elapsed = time.Since(start)
	logger.Printf("%s: %d records, %d stations, took %v", src.Name, stats.Records, stats.Stations, stats.Elapsed)
	return table, stats, nil
}
