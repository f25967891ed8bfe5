package station

import (
	"math"

	"github.com/dolthub/swiss"
)

type meanStats struct {
	min   float64
	max   float64
	sum   int64 // tenths
	count uint64
}

// Mean is the streaming-mean strategy. Sums are kept in integer tenths, which
// is exact for one-decimal input and makes merging order-independent.
type Mean struct {
	stats *swiss.Map[string, *meanStats]
}

func NewMean() *Mean {
	return &Mean{stats: swiss.NewMap[string, *meanStats](initialStations)}
}

func (a *Mean) Observe(name []byte, value float64) error {
	s, ok := a.stats.Get(lookupKey(name))
	if !ok {
		s = &meanStats{min: value, max: value}
		// The name is copied once, when the station first shows up.
		a.stats.Put(string(name), s)
	}
	if value < s.min {
		s.min = value
	}
	if value > s.max {
		s.max = value
	}
	s.sum += int64(math.Round(value * 10))
	s.count++
	return nil
}

func (a *Mean) Merge(other *Mean) {
	other.stats.Iter(func(name string, o *meanStats) bool {
		s, ok := a.stats.Get(name)
		if !ok {
			cp := *o
			a.stats.Put(name, &cp)
			return false
		}
		s.min = min(s.min, o.min)
		s.max = max(s.max, o.max)
		s.sum += o.sum
		s.count += o.count
		return false
	})
}

func (a *Mean) Finalize() Table {
	t := make(Table, a.stats.Count())
	a.stats.Iter(func(name string, s *meanStats) bool {
		t[name] = Result{
			Min:    Round(s.min),
			Center: fromTenths(math.Round(float64(s.sum) / float64(s.count))),
			Max:    Round(s.max),
			Count:  s.count,
		}
		return false
	})
	return t
}

func (a *Mean) Len() int { return a.stats.Count() }
