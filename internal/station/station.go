// Package station aggregates per-station statistics.
//
// Two strategies share the Aggregator contract: Mean keeps O(1) state per
// station and reports the arithmetic mean; Median keeps a fixed histogram per
// station and reports the exact median. One run uses exactly one of them.
package station

import (
	"fmt"
	"math"
	"slices"
	"unsafe"

	"golang.org/x/exp/maps"
)

// Aggregator is implemented by *Mean and *Median. Merge folds other into the
// receiver as if the receiver had observed other's input too; it is
// associative and commutative per station and leaves other unchanged.
type Aggregator[A any] interface {
	Observe(name []byte, value float64) error
	Merge(other A)
	Finalize() Table
	Len() int
}

type Strategy string

const (
	StrategyMean   Strategy = "mean"
	StrategyMedian Strategy = "median"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMean, StrategyMedian:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q, want %q or %q", s, StrategyMean, StrategyMedian)
}

// Result is the finalized summary of one station, every value rounded to one
// decimal place.
type Result struct {
	Min    float64
	Center float64
	Max    float64
	Count  uint64
}

// Table maps raw station names to their results.
type Table map[string]Result

// Names returns the station names in byte-wise ascending order.
func (t Table) Names() []string {
	names := maps.Keys(t)
	slices.Sort(names)
	return names
}

// Records is the total number of observations behind the table.
func (t Table) Records() uint64 {
	var n uint64
	for _, r := range t {
		n += r.Count
	}
	return n
}

// Round rounds x to one decimal place, halves away from zero. Negative zero
// comes back as zero so it never renders as "-0.0".
func Round(x float64) float64 {
	return fromTenths(math.Round(x * 10))
}

func fromTenths(t float64) float64 {
	if t == 0 {
		return 0
	}
	return t / 10
}

// initialStations sizes the per-worker maps; the usual station set is a few
// hundred names.
const initialStations = 1024

// lookupKey views b as a string without copying, for map lookups only.
func lookupKey(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
