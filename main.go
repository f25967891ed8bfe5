package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/example/stationstats/internal/config"
	"github.com/example/stationstats/internal/fault"
	"github.com/example/stationstats/internal/pipeline"
	"github.com/example/stationstats/internal/pool"
	"github.com/example/stationstats/internal/report"
	"github.com/example/stationstats/internal/source"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit status: 0 on success, 1 for a failed run and
// 2 for bad usage.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.Verbose {
		logger = log.New(stderr, "stationstats: ", log.LstdFlags|log.Lmicroseconds)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := source.Open(ctx, cfg.Input, source.Options{Mmap: cfg.Mmap, Object: cfg.Object})
	if err != nil {
		return fail(stderr, err)
	}
	defer src.Close()

	logger.Printf("input=%s size=%d strategy=%s workers=%d queue=%d buffer=%d mmap=%v",
		src.Name, src.Size, cfg.Strategy, cfg.Workers, cfg.QueueSize, cfg.BufferSize, cfg.Mmap)

	table, _, err := pipeline.Compute(ctx, src, pipeline.Options{
		Strategy:   cfg.Strategy,
		BufferSize: cfg.BufferSize,
		Pool:       pool.Options{Workers: cfg.Workers, QueueSize: cfg.QueueSize},
		Logger:     logger,
	})
	if err != nil {
		return fail(stderr, err)
	}

	if err := report.Render(stdout, table); err != nil {
		return fail(stderr, err)
	}
	return 0
}

func fail(stderr io.Writer, err error) int {
	if kind := fault.KindOf(err); kind != fault.KindUnknown {
		fmt.Fprintf(stderr, "%s error: %v\n", kind, err)
	} else {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return 1
}
