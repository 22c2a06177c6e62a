package bytebuf

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/joshuapare/growbuf/internal/buf"
	"github.com/joshuapare/growbuf/rawmem"
)

// Buffer is a growable byte buffer backed by a rawmem.Region.
//
// The zero value is an empty buffer that allocates from rawmem.Default.
type Buffer struct {
	own *owner
	// n is the number of bytes written, n <= own.reg.Cap().
	n int
}

// owner holds the region apart from the Buffer so a runtime cleanup can free it
// once the Buffer is unreachable.
type owner struct {
	alloc rawmem.Allocator
	reg   rawmem.Region
}

func (o *owner) free() {
	if o.reg.IsNull() {
		return
	}
	o.alloc.Free(o.reg)
	o.reg = rawmem.Region{}
}

// View describes the raw storage of a buffer at one point in time.
type View struct {
	Addr uintptr // address of the first byte, 0 when unallocated
	Len  int     // bytes written
	Cap  int     // bytes allocated
}

// New returns an empty buffer that allocates from rawmem.Default.
func New() *Buffer {
	return &Buffer{}
}

// NewWithAllocator returns an empty buffer that allocates from a. A nil a means
// rawmem.Default.
func NewWithAllocator(a rawmem.Allocator) *Buffer {
	b := &Buffer{}
	b.attach(a)
	return b
}

// Allocator returns the allocator backing b.
func (b *Buffer) Allocator() rawmem.Allocator {
	return b.ensureOwner().alloc
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the number of bytes allocated.
func (b *Buffer) Cap() int {
	if b.own == nil {
		return 0
	}
	return b.own.reg.Cap()
}

// Append copies data to the end of the buffer.
//
// On error the buffer is left exactly as it was before the call.
func (b *Buffer) Append(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := b.reserve(len(data)); err != nil {
		return err
	}
	b.n += copy(b.own.reg.Bytes()[b.n:], data)
	return nil
}

// Grow makes room for at least n more bytes without changing the length, using the
// same growth rule as Append. It panics if n is negative.
func (b *Buffer) Grow(n int) error {
	if n < 0 {
		panic("bytebuf.Buffer.Grow: negative count")
	}
	if n == 0 {
		return nil
	}
	return b.reserve(n)
}

// View returns the current address, length and capacity. The address is valid until
// the next call that appends to, releases or detaches the buffer, and only while b is
// reachable: once b is garbage the storage is freed. Callers handing the address on
// must keep b alive (runtime.KeepAlive) until the receiver is done with it.
func (b *Buffer) View() View {
	if b.own == nil {
		return View{}
	}
	return View{Addr: b.own.reg.Addr(), Len: b.n, Cap: b.own.reg.Cap()}
}

// Bytes returns the written bytes. The slice aliases the buffer storage and is valid
// until the next call that appends to, releases or detaches the buffer. The slice does
// not keep b alive: the storage is freed once b is unreachable, so b must outlive every
// use of the slice.
func (b *Buffer) Bytes() []byte {
	if b.own == nil || b.own.reg.IsNull() {
		return nil
	}
	return b.own.reg.Bytes()[:b.n:b.n]
}

// String returns a copy of the written bytes as a string.
func (b *Buffer) String() string {
	s := string(b.Bytes())
	runtime.KeepAlive(b)
	return s
}

// AppendBytes appends the written bytes to dst and returns the extended slice.
func (b *Buffer) AppendBytes(dst []byte) []byte {
	dst = append(dst, b.Bytes()...)
	runtime.KeepAlive(b)
	return dst
}

// AppendString appends the written bytes to dst and returns the result.
func (b *Buffer) AppendString(dst string) string {
	dst += string(b.Bytes())
	runtime.KeepAlive(b)
	return dst
}

// Reset sets the length to zero and keeps the allocation for reuse.
func (b *Buffer) Reset() {
	b.n = 0
}

// Release frees the storage and returns the buffer to its empty state. Calling it on
// an empty buffer does nothing. The buffer may be appended to again afterwards.
func (b *Buffer) Release() {
	if b.own != nil {
		b.own.free()
	}
	b.n = 0
}

// Detach transfers ownership of the storage to the caller and returns it with the
// number of bytes written. The buffer is left empty. The caller must eventually pass
// the region to Allocator().Free.
func (b *Buffer) Detach() (rawmem.Region, int) {
	if b.own == nil {
		return rawmem.Region{}, 0
	}
	r, n := b.own.reg, b.n
	b.own.reg = rawmem.Region{}
	b.n = 0
	return r, n
}

// reserve makes sure n more bytes fit, growing the region if needed. The region is
// replaced only after the allocator succeeds.
func (b *Buffer) reserve(n int) error {
	o := b.ensureOwner()
	capacity := o.reg.Cap()
	need, ok := buf.AddOverflowSafe(b.n, n)
	if !ok {
		return fmt.Errorf("%w: length %d + %d overflows", ErrAllocationFailure, b.n, n)
	}
	if need <= capacity {
		return nil
	}
	next, ok := nextCapacity(capacity, need)
	if !ok {
		return fmt.Errorf("%w: capacity for %d bytes overflows", ErrAllocationFailure, need)
	}

	var (
		reg rawmem.Region
		err error
	)
	if o.reg.IsNull() {
		reg, err = o.alloc.Alloc(next)
	} else {
		reg, err = o.alloc.Grow(o.reg, capacity, next)
	}
	if err != nil {
		return allocFailure(err, capacity, next)
	}
	o.reg = reg
	return nil
}

func (b *Buffer) ensureOwner() *owner {
	if b.own == nil {
		return b.attach(nil)
	}
	return b.own
}

func (b *Buffer) attach(a rawmem.Allocator) *owner {
	if a == nil {
		a = rawmem.Default
	}
	o := &owner{alloc: a}
	b.own = o
	runtime.AddCleanup(b, (*owner).free, o)
	return o
}

func allocFailure(err error, from, to int) error {
	if errors.Is(err, ErrAllocationFailure) {
		return fmt.Errorf("bytebuf: grow %d to %d bytes: %w", from, to, err)
	}
	return fmt.Errorf("bytebuf: grow %d to %d bytes: %w: %w", from, to, ErrAllocationFailure, err)
}
