package rawmem

import (
	"fmt"
	"runtime"
)

// Heap allocates regions on the Go heap.
//
// Heap regions are managed by the garbage collector, so Free only drops the reference.
// Their addresses must not be retained by foreign code across calls.
type Heap struct{}

func (Heap) Alloc(capacity int) (Region, error) {
	checkSize("alloc", capacity)
	if capacity == 0 {
		return Region{}, nil
	}
	mem, err := heapMake(capacity)
	if err != nil {
		return Region{}, err
	}
	return Region{mem: mem, size: capacity}, nil
}

func (h Heap) Grow(r Region, oldCap, newCap int) (Region, error) {
	checkSize("grow", oldCap)
	checkSize("grow", newCap)
	switch {
	case r.IsNull():
		return h.Alloc(newCap)
	case newCap == 0:
		return Region{}, nil
	case r.fits(newCap):
		return r.resize(newCap), nil
	}
	mem, err := heapMake(newCap)
	if err != nil {
		return r, err
	}
	copy(mem, r.preserved(oldCap, newCap))
	return Region{mem: mem, size: newCap}, nil
}

func (Heap) Free(Region) {}

// heapMake turns the runtime's "len out of range" panic into an error. A genuine
// out-of-memory condition still aborts the process.
func heapMake(n int) (mem []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			if _, ok := p.(runtime.Error); !ok {
				panic(p)
			}
			mem, err = nil, fmt.Errorf("%w: heap %d bytes: %v", ErrAllocationFailure, n, p)
		}
	}()
	return make([]byte, n), nil
}
