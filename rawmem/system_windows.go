//go:build windows

package rawmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// System allocates committed pages with VirtualAlloc. A grow past the reserved pages
// allocates a new block, copies the preserved bytes and releases the old block.
type System struct{}

func (System) Alloc(capacity int) (Region, error) {
	checkSize("alloc", capacity)
	if capacity == 0 {
		return Region{}, nil
	}
	size, err := pageAlign(capacity)
	if err != nil {
		return Region{}, err
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return Region{}, fmt.Errorf("%w: VirtualAlloc %d bytes: %w", ErrAllocationFailure, size, err)
	}
	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return Region{mem: mem, size: capacity}, nil
}

func (s System) Grow(r Region, oldCap, newCap int) (Region, error) {
	checkSize("grow", oldCap)
	checkSize("grow", newCap)
	switch {
	case r.IsNull():
		return s.Alloc(newCap)
	case newCap == 0:
		s.Free(r)
		return Region{}, nil
	case r.fits(newCap):
		return r.resize(newCap), nil
	}
	n, err := s.Alloc(newCap)
	if err != nil {
		return r, err
	}
	copy(n.mem, r.preserved(oldCap, newCap))
	s.Free(r)
	return n, nil
}

func (System) Free(r Region) {
	if r.IsNull() {
		return
	}
	if err := windows.VirtualFree(r.Addr(), 0, windows.MEM_RELEASE); err != nil {
		panic(fmt.Sprintf("rawmem: VirtualFree %s: %v", r, err))
	}
}
