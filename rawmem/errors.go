package rawmem

import "errors"

// ErrAllocationFailure indicates that the underlying allocator could not satisfy an
// Alloc or Grow request. The region passed to a failed Grow is left untouched.
var ErrAllocationFailure = errors.New("rawmem: allocation failure")
