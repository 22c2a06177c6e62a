package rawmem

// Allocator is the contract for raw memory primitives.
//
// Implementations:
//   - System: platform allocator (mmap, mremap, VirtualAlloc)
//   - Heap: Go heap backed regions
//   - Tracked: counting wrapper around another Allocator
type Allocator interface {
	// Alloc returns a region of exactly capacity bytes. Alloc(0) returns the null
	// region. The content of the region is unspecified.
	Alloc(capacity int) (Region, error)

	// Grow resizes r to newCap bytes, keeping the first min(oldCap, newCap) bytes.
	// The returned region replaces r, which must not be used afterwards. On error r
	// is returned unchanged and stays valid.
	//
	// Growing the null region is Alloc(newCap); growing to 0 frees r and returns
	// the null region.
	Grow(r Region, oldCap, newCap int) (Region, error)

	// Free releases r. Freeing the null region is a no-op. Freeing the same region
	// twice is undefined; owners must forget r right after the call.
	Free(r Region)
}

// Default is the allocator used when none is configured.
var Default Allocator = System{}
