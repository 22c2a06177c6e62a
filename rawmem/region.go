package rawmem

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/joshuapare/growbuf/internal/buf"
)

var pageSize = os.Getpagesize()

// Region is an owning handle to a raw memory block. The zero value is the null region.
type Region struct {
	// mem spans everything reserved for the region, usually whole pages.
	mem []byte
	// size is the capacity requested by the owner, size <= len(mem).
	size int
}

// IsNull reports whether r refers to no allocation.
func (r Region) IsNull() bool {
	return r.mem == nil
}

// Cap returns the capacity of the region in bytes.
func (r Region) Cap() int {
	return r.size
}

// Reserved returns the number of bytes backing the region, which may exceed Cap.
func (r Region) Reserved() int {
	return len(r.mem)
}

// Addr returns the address of the first byte, or 0 for the null region.
//
// The value is meant for handing to a foreign runtime; it stays valid until the region
// is grown or freed.
func (r Region) Addr() uintptr {
	if r.mem == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.mem)))
}

// Bytes returns the Cap() bytes of the region. Content past what the owner wrote is
// unspecified.
func (r Region) Bytes() []byte {
	return r.mem[:r.size:r.size]
}

// String implements fmt.Stringer.
func (r Region) String() string {
	if r.IsNull() {
		return "region(null)"
	}
	return fmt.Sprintf("region(0x%x, cap=%d, reserved=%d)", r.Addr(), r.size, len(r.mem))
}

// fits reports whether capacity n can be served by the pages already reserved.
func (r Region) fits(n int) bool {
	return r.mem != nil && n <= len(r.mem)
}

// resize changes the capacity inside the existing reservation.
func (r Region) resize(n int) Region {
	r.size = n
	return r
}

// preserved returns the bytes that must survive a grow from oldCap to newCap.
func (r Region) preserved(oldCap, newCap int) []byte {
	return r.mem[:min(oldCap, newCap, r.size)]
}

func pageAlign(n int) (int, error) {
	size, ok := buf.AlignUp(n, pageSize)
	if !ok {
		return 0, fmt.Errorf("%w: %d bytes exceeds the address space", ErrAllocationFailure, n)
	}
	return size, nil
}

func checkSize(op string, n int) {
	if n < 0 {
		panic(fmt.Sprintf("rawmem: %s: negative size %d", op, n))
	}
}
