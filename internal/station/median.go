package station

import (
	"github.com/dolthub/swiss"

	"github.com/example/stationstats/internal/fault"
)

type medianStats struct {
	min   float64
	max   float64
	count uint64
	hist  Histogram
}

// Median is the exact-median strategy. Every observed value must sit on the
// histogram grid; anything else is a domain error raised by Observe.
type Median struct {
	stats *swiss.Map[string, *medianStats]
}

func NewMedian() *Median {
	return &Median{stats: swiss.NewMap[string, *medianStats](initialStations)}
}

func (a *Median) Observe(name []byte, value float64) error {
	i, err := Quantize(value)
	if err != nil {
		return fault.Newf(fault.KindDomain, "observe", "station %q value %v: %w", name, value, err)
	}
	s, ok := a.stats.Get(lookupKey(name))
	if !ok {
		s = &medianStats{min: value, max: value}
		a.stats.Put(string(name), s)
	}
	if value < s.min {
		s.min = value
	}
	if value > s.max {
		s.max = value
	}
	s.hist.Add(i)
	s.count++
	return nil
}

func (a *Median) Merge(other *Median) {
	other.stats.Iter(func(name string, o *medianStats) bool {
		s, ok := a.stats.Get(name)
		if !ok {
			cp := *o
			a.stats.Put(name, &cp)
			return false
		}
		s.min = min(s.min, o.min)
		s.max = max(s.max, o.max)
		s.hist.Merge(&o.hist)
		s.count += o.count
		return false
	})
}

func (a *Median) Finalize() Table {
	t := make(Table, a.stats.Count())
	a.stats.Iter(func(name string, s *medianStats) bool {
		t[name] = Result{
			Min:    Round(s.min),
			Center: fromTenths(float64(s.hist.Median(s.count))),
			Max:    Round(s.max),
			Count:  s.count,
		}
		return false
	})
	return t
}

func (a *Median) Len() int { return a.stats.Count() }
