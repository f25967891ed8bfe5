// Package config assembles the run configuration from flags, the process
// environment and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/example/stationstats/internal/chunk"
	"github.com/example/stationstats/internal/pool"
	"github.com/example/stationstats/internal/source"
	"github.com/example/stationstats/internal/station"
)

const EnvFile = ".env"

// MinBufferSize is the smallest read buffer accepted.
const MinBufferSize = 64

// ErrUsage marks configuration mistakes made by the caller.
var ErrUsage = errors.New("usage")

type Config struct {
	Input      string
	Strategy   station.Strategy
	Workers    int
	QueueSize  int
	BufferSize int
	Mmap       bool
	Verbose    bool
	Object     source.ObjectConfig
}

// LookupFunc reports the value of an environment key.
type LookupFunc func(key string) (string, bool)

// Load is Parse with the process environment backed by EnvFile, if present.
func Load(args []string, stderr io.Writer) (Config, error) {
	file, err := godotenv.Read(EnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrUsage, EnvFile, err)
	}
	return Parse(args, func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}, stderr)
}

func Parse(args []string, lookup LookupFunc, stderr io.Writer) (Config, error) {
	cfg := Config{
		Strategy:   station.StrategyMean,
		Workers:    runtime.NumCPU(),
		QueueSize:  pool.DefaultQueueSize,
		BufferSize: chunk.DefaultBufferSize,
	}
	strategy := string(cfg.Strategy)

	e := envReader{lookup: lookup}
	e.stringVar("BRC_STRATEGY", &strategy)
	e.intVar("BRC_WORKERS", &cfg.Workers)
	e.intVar("BRC_QUEUE_SIZE", &cfg.QueueSize)
	e.intVar("BRC_BUFFER_SIZE", &cfg.BufferSize)
	e.boolVar("BRC_MMAP", &cfg.Mmap)
	e.boolVar("BRC_VERBOSE", &cfg.Verbose)
	e.stringVar("S3_ENDPOINT", &cfg.Object.Endpoint)
	e.stringVar("S3_ACCESS_KEY", &cfg.Object.AccessKey)
	e.stringVar("S3_SECRET_KEY", &cfg.Object.SecretKey)
	e.boolVar("S3_SECURE", &cfg.Object.Secure)
	if e.err != nil {
		return Config{}, e.err
	}

	fset := flag.NewFlagSet("stationstats", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprintf(stderr, "Usage: stationstats [flags] <measurements-file | s3://bucket/key>\n")
		fset.PrintDefaults()
	}
	fset.StringVar(&strategy, "strategy", strategy, "central tendency: mean or median")
	fset.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of parallel workers")
	fset.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "chunks buffered between reader and workers")
	fset.IntVar(&cfg.BufferSize, "buffer", cfg.BufferSize, "read buffer size in bytes, must exceed the longest record")
	fset.BoolVar(&cfg.Mmap, "mmap", cfg.Mmap, "memory-map local input files")
	fset.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "log progress to stderr")
	fset.StringVar(&cfg.Object.Endpoint, "s3-endpoint", cfg.Object.Endpoint, "S3-compatible endpoint for s3:// inputs")
	fset.StringVar(&cfg.Object.AccessKey, "s3-access-key", cfg.Object.AccessKey, "S3 access key")
	fset.StringVar(&cfg.Object.SecretKey, "s3-secret-key", cfg.Object.SecretKey, "S3 secret key")
	fset.BoolVar(&cfg.Object.Secure, "s3-secure", cfg.Object.Secure, "use TLS for the S3 endpoint")

	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fset.NArg() != 1 {
		fset.Usage()
		return Config{}, fmt.Errorf("%w: expected exactly one input, got %d", ErrUsage, fset.NArg())
	}
	cfg.Input = fset.Arg(0)

	s, err := station.ParseStrategy(strategy)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	cfg.Strategy = s

	switch {
	case cfg.Workers < 1:
		return Config{}, fmt.Errorf("%w: workers must be at least 1, got %d", ErrUsage, cfg.Workers)
	case cfg.QueueSize < 1:
		return Config{}, fmt.Errorf("%w: queue must be at least 1, got %d", ErrUsage, cfg.QueueSize)
	case cfg.BufferSize < MinBufferSize:
		return Config{}, fmt.Errorf("%w: buffer must be at least %d bytes, got %d", ErrUsage, MinBufferSize, cfg.BufferSize)
	}
	return cfg, nil
}

// envReader applies environment overrides, keeping the first failure.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(key)
	return v, ok && v != ""
}

func (e *envReader) stringVar(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("%w: invalid %s value %q", ErrUsage, key, v)
		return
	}
	*dst = n
}

func (e *envReader) boolVar(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("%w: invalid %s value %q", ErrUsage, key, v)
		return
	}
	*dst = b
}
