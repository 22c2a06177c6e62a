//go:build linux

package rawmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// System allocates anonymous private mappings and resizes them with mremap(2), which
// extends the mapping in place when the following address range is free and moves the
// pages otherwise.
type System struct{}

func (System) Alloc(capacity int) (Region, error) {
	checkSize("alloc", capacity)
	if capacity == 0 {
		return Region{}, nil
	}
	return mapAnon(capacity)
}

func (s System) Grow(r Region, oldCap, newCap int) (Region, error) {
	checkSize("grow", oldCap)
	checkSize("grow", newCap)
	switch {
	case r.IsNull():
		return s.Alloc(newCap)
	case newCap == 0:
		unmap(r)
		return Region{}, nil
	case r.fits(newCap):
		return r.resize(newCap), nil
	}
	size, err := pageAlign(newCap)
	if err != nil {
		return r, err
	}
	mem, err := unix.Mremap(r.mem, size, unix.MREMAP_MAYMOVE)
	if err != nil {
		return r, fmt.Errorf("%w: mremap %d to %d bytes: %w", ErrAllocationFailure, len(r.mem), size, err)
	}
	return Region{mem: mem, size: newCap}, nil
}

func (System) Free(r Region) {
	unmap(r)
}
