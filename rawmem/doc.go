//go:generate mockgen -destination mock_rawmem/mock_allocator.go github.com/joshuapare/growbuf/rawmem Allocator

// Package rawmem provides raw memory regions that live outside the Go heap.
//
// # Overview
//
// A Region is an owning handle to a contiguous block of bytes plus its capacity. It
// carries no notion of how many bytes are meaningful; that bookkeeping belongs to the
// owner (see package bytebuf). Regions are created by Allocator.Alloc, resized by
// Allocator.Grow and destroyed by Allocator.Free.
//
// # Allocators
//
// System is the platform allocator and the value of Default:
//
//   - Linux: anonymous private mmap, resized with mremap(MREMAP_MAYMOVE)
//   - Other unix: anonymous private mmap, resized by map + copy + unmap
//   - Windows: VirtualAlloc, resized by alloc + copy + VirtualFree
//   - Everything else: the Go heap
//
// On every platform a Grow whose new capacity still fits inside the pages already
// reserved for the region is served in place without a system call.
//
// Heap keeps regions on the Go heap. It is used where no system allocator exists and in
// tests. Tracked wraps any allocator and counts what passes through it.
//
// # Ownership
//
// A Region value must have exactly one owner. After Grow the old value is invalid
// whether or not the address changed; after Free it must not be used again. Allocators
// do not track freed regions, so owners zero their copy right after Free:
//
//	r, err := rawmem.Default.Alloc(64)
//	if err != nil {
//	    return err
//	}
//	r, err = rawmem.Default.Grow(r, r.Cap(), 256)
//	if err != nil {
//	    return err // r is still the 64 byte region
//	}
//	rawmem.Default.Free(r)
//	r = rawmem.Region{}
package rawmem
