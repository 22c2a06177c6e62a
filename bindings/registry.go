// Package bindings exposes buffers to a host runtime through opaque integer handles.
//
// The host never sees Go pointers: it holds a Handle, copies data in with Write and
// reads the raw storage back as an (address, length, capacity) triple with Bytes. The
// triple is a snapshot, valid until the next Write, Release, Detach or Destroy on the
// same handle.
//
// Calls on distinct handles may run concurrently. Calls on the same handle must be
// serialized by the host.
package bindings

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/joshuapare/growbuf/bytebuf"
	"github.com/joshuapare/growbuf/rawmem"
)

// Handle identifies a buffer owned by a Registry. Zero is never a valid handle.
type Handle uint64

// View is the raw storage triple handed to the host.
type View = bytebuf.View

var (
	// ErrAllocationFailure is returned by Write when the buffer could not grow.
	ErrAllocationFailure = bytebuf.ErrAllocationFailure

	// ErrUnknownHandle indicates a handle that was never issued or was destroyed.
	ErrUnknownHandle = errors.New("bindings: unknown buffer handle")

	// ErrNegativeSize indicates a negative length coming from the host.
	ErrNegativeSize = errors.New("bindings: negative size")
)

// Status codes returned across the C boundary.
const (
	StatusOK int32 = iota
	StatusBadAlloc
	StatusUnknownHandle
	StatusNegativeSize
)

// Status maps an error returned by this package to its boundary status code.
func Status(err error) int32 {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrUnknownHandle):
		return StatusUnknownHandle
	case errors.Is(err, ErrNegativeSize):
		return StatusNegativeSize
	default:
		return StatusBadAlloc
	}
}

// Registry owns the buffers handed out to a host.
type Registry struct {
	alloc rawmem.Allocator

	mu       sync.Mutex
	next     Handle
	bufs     map[Handle]*bytebuf.Buffer
	detached map[uintptr]detachedRegion
}

type detachedRegion struct {
	alloc rawmem.Allocator
	reg   rawmem.Region
}

// Default is the registry used by the C exports.
var Default = NewRegistry(nil)

// NewRegistry returns an empty registry whose buffers allocate from a. A nil a means
// rawmem.Default.
func NewRegistry(a rawmem.Allocator) *Registry {
	if a == nil {
		a = rawmem.Default
	}
	return &Registry{
		alloc:    a,
		bufs:     make(map[Handle]*bytebuf.Buffer),
		detached: make(map[uintptr]detachedRegion),
	}
}

// New creates an empty buffer and returns its handle.
func (r *Registry) New() Handle {
	b := bytebuf.NewWithAllocator(r.alloc)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.bufs[r.next] = b
	return r.next
}

// Write copies data into the buffer behind h. data is not retained.
func (r *Registry) Write(h Handle, data []byte) error {
	b, err := r.lookup(h)
	if err != nil {
		return err
	}
	return b.Append(data)
}

// maxWrite bounds a single host write. The buffer would have to double anything
// larger, which no address space can hold.
const maxWrite = min(math.MaxInt>>1, 1<<46)

// WriteRaw is Write for a host supplied pointer and length. A negative n is rejected
// before it can be read as a huge unsigned size, and an n above maxWrite fails as an
// allocation failure before any memory is touched. data may be nil when n is 0.
func (r *Registry) WriteRaw(h Handle, data unsafe.Pointer, n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: write of %d bytes", ErrNegativeSize, n)
	}
	if n > maxWrite {
		return fmt.Errorf("%w: write of %d bytes", ErrAllocationFailure, n)
	}
	if n == 0 {
		_, err := r.lookup(h)
		return err
	}
	return r.Write(h, unsafe.Slice((*byte)(data), n))
}

// Bytes returns the current storage triple of the buffer behind h.
func (r *Registry) Bytes(h Handle) (View, error) {
	b, err := r.lookup(h)
	if err != nil {
		return View{}, err
	}
	return b.View(), nil
}

// Release frees the storage of the buffer behind h and keeps the handle usable.
// Unknown handles are ignored.
func (r *Registry) Release(h Handle) {
	if b, err := r.lookup(h); err == nil {
		b.Release()
	}
}

// Destroy releases the buffer behind h and retires the handle. Unknown handles are
// ignored.
func (r *Registry) Destroy(h Handle) {
	r.mu.Lock()
	b, ok := r.bufs[h]
	delete(r.bufs, h)
	r.mu.Unlock()
	if ok {
		b.Release()
	}
}

// Detach hands the storage of the buffer behind h to the host. The buffer is left
// empty and the host must return the storage with FreeDetached.
func (r *Registry) Detach(h Handle) (View, error) {
	b, err := r.lookup(h)
	if err != nil {
		return View{}, err
	}
	reg, n := b.Detach()
	if reg.IsNull() {
		return View{}, nil
	}
	v := View{Addr: reg.Addr(), Len: n, Cap: reg.Cap()}

	r.mu.Lock()
	r.detached[v.Addr] = detachedRegion{alloc: b.Allocator(), reg: reg}
	r.mu.Unlock()
	return v, nil
}

// FreeDetached frees storage previously returned by Detach. Unknown addresses,
// including 0, are ignored.
func (r *Registry) FreeDetached(addr uintptr) {
	r.mu.Lock()
	d, ok := r.detached[addr]
	delete(r.detached, addr)
	r.mu.Unlock()
	if ok {
		d.alloc.Free(d.reg)
	}
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bufs)
}

func (r *Registry) lookup(h Handle) (*bytebuf.Buffer, error) {
	r.mu.Lock()
	b, ok := r.bufs[h]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return b, nil
}
