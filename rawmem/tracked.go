package rawmem

import "sync/atomic"

// Stats is a snapshot of the counters kept by Tracked.
type Stats struct {
	Allocs      int64 // successful Alloc calls that returned a live region
	Grows       int64 // successful Grow calls on a live region to a non-zero capacity
	InPlace     int64 // grows that kept the region address
	Moves       int64 // grows that relocated the region
	Frees       int64 // regions released through Free or Grow to 0
	Failures    int64 // Alloc and Grow calls that returned an error
	LiveRegions int64
	LiveBytes   int64 // sum of Cap() over live regions
}

// Tracked counts the calls that pass through an allocator. It is safe for concurrent
// use as long as the wrapped allocator is.
type Tracked struct {
	inner Allocator

	allocs, grows, inPlace, moves, frees, failures atomic.Int64
	liveRegions, liveBytes                         atomic.Int64
}

// NewTracked wraps a. A nil a wraps Default.
func NewTracked(a Allocator) *Tracked {
	if a == nil {
		a = Default
	}
	return &Tracked{inner: a}
}

// Unwrap returns the wrapped allocator.
func (t *Tracked) Unwrap() Allocator {
	return t.inner
}

func (t *Tracked) Alloc(capacity int) (Region, error) {
	r, err := t.inner.Alloc(capacity)
	if err != nil {
		t.failures.Add(1)
		return r, err
	}
	t.born(r)
	return r, nil
}

func (t *Tracked) Grow(r Region, oldCap, newCap int) (Region, error) {
	n, err := t.inner.Grow(r, oldCap, newCap)
	if err != nil {
		t.failures.Add(1)
		return n, err
	}
	switch {
	case r.IsNull():
		t.born(n)
	case n.IsNull():
		t.died(r)
	default:
		t.grows.Add(1)
		if n.Addr() == r.Addr() {
			t.inPlace.Add(1)
		} else {
			t.moves.Add(1)
		}
		t.liveBytes.Add(int64(n.Cap() - r.Cap()))
	}
	return n, nil
}

func (t *Tracked) Free(r Region) {
	t.inner.Free(r)
	t.died(r)
}

// Stats returns the current counters.
func (t *Tracked) Stats() Stats {
	return Stats{
		Allocs:      t.allocs.Load(),
		Grows:       t.grows.Load(),
		InPlace:     t.inPlace.Load(),
		Moves:       t.moves.Load(),
		Frees:       t.frees.Load(),
		Failures:    t.failures.Load(),
		LiveRegions: t.liveRegions.Load(),
		LiveBytes:   t.liveBytes.Load(),
	}
}

func (t *Tracked) born(r Region) {
	if r.IsNull() {
		return
	}
	t.allocs.Add(1)
	t.liveRegions.Add(1)
	t.liveBytes.Add(int64(r.Cap()))
}

func (t *Tracked) died(r Region) {
	if r.IsNull() {
		return
	}
	t.frees.Add(1)
	t.liveRegions.Add(-1)
	t.liveBytes.Add(-int64(r.Cap()))
}
