package station

import (
	"errors"
	"math"
)

// The histogram grid: every one-decimal value from -99.9 to 99.9.
const (
	MinTenths = -999
	MaxTenths = 999
	Buckets   = MaxTenths - MinTenths + 1
)

var (
	ErrOutOfRange = errors.New("value outside -99.9..99.9")
	ErrOffGrid    = errors.New("value not on the 0.1 grid")
)

// gridTolerance absorbs the representation error of v*10 for one-decimal v.
const gridTolerance = 1e-6

// Quantize returns the histogram bucket of v.
func Quantize(v float64) (int, error) {
	t := math.Round(v * 10)
	if t < MinTenths || t > MaxTenths {
		return 0, ErrOutOfRange
	}
	// Written so that NaN fails too.
	if !(math.Abs(v*10-t) <= gridTolerance) {
		return 0, ErrOffGrid
	}
	return int(t) - MinTenths, nil
}

// BucketTenths is the value of bucket i in tenths.
func BucketTenths(i int) int64 { return int64(i + MinTenths) }

// Histogram counts occurrences per grid value, indexed by Quantize.
type Histogram [Buckets]uint64

func (h *Histogram) Add(i int) { h[i]++ }

func (h *Histogram) Merge(o *Histogram) {
	for i, c := range o {
		h[i] += c
	}
}

func (h *Histogram) Total() uint64 {
	var n uint64
	for _, c := range h {
		n += c
	}
	return n
}

// Middle returns, in tenths, the order statistics (n-1)/2 and n/2 (0-indexed
// ascending) of a histogram holding n values. They coincide for odd n. Both
// are found in one ascending walk over the buckets.
func (h *Histogram) Middle(n uint64) (lo, hi int64) {
	if n == 0 {
		return 0, 0
	}
	kLo, kHi := (n-1)/2, n/2
	var cum uint64
	found := false
	for i, c := range h {
		if c == 0 {
			continue
		}
		cum += c
		if !found && cum > kLo {
			lo, found = BucketTenths(i), true
		}
		if cum > kHi {
			return lo, BucketTenths(i)
		}
	}
	return lo, lo
}

// Median is the exact median of n values in tenths, rounded half away from
// zero to a whole tenth.
func (h *Histogram) Median(n uint64) int64 {
	lo, hi := h.Middle(n)
	return halveAway(lo + hi)
}

func halveAway(s int64) int64 {
	switch {
	case s%2 == 0:
		return s / 2
	case s > 0:
		return (s + 1) / 2
	default:
		return (s - 1) / 2
	}
}
