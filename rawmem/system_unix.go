//go:build unix && !linux

package rawmem

// System allocates anonymous private mappings. Without mremap a grow past the reserved
// pages maps a new block, copies the preserved bytes and unmaps the old block.
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
	n, err := mapAnon(newCap)
	if err != nil {
		return r, err
	}
	copy(n.mem, r.preserved(oldCap, newCap))
	unmap(r)
	return n, nil
}

func (System) Free(r Region) {
	unmap(r)
}
