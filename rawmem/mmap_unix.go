//go:build unix

package rawmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mapAnon reserves whole pages for a region of capacity bytes.
func mapAnon(capacity int) (Region, error) {
	size, err := pageAlign(capacity)
	if err != nil {
		return Region{}, err
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return Region{}, fmt.Errorf("%w: mmap %d bytes: %w", ErrAllocationFailure, size, err)
	}
	return Region{mem: mem, size: capacity}, nil
}

// unmap releases the pages of r. It panics if they are not mapped, which is how a
// second Free of the same region shows up.
func unmap(r Region) {
	if r.IsNull() {
		return
	}
	if err := unix.Munmap(r.mem); err != nil {
		panic(fmt.Sprintf("rawmem: munmap %s: %v", r, err))
	}
}
