//go:build !unix && !windows

package rawmem

// System falls back to the Go heap where no system allocator is wired.
type System struct {
	Heap
}
