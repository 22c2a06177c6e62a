// Package bytebuf provides Buffer, a growable byte buffer whose storage is a raw
// region from package rawmem rather than Go heap memory.
//
// # Growth
//
// Appending n bytes to a buffer holding length bytes in capacity bytes:
//
//   - n == 0: nothing happens, nothing is allocated
//   - length+n <= capacity: bytes are copied in place
//   - otherwise: the region grows to 2*max(capacity, length+n), then bytes are copied
//
// For an empty buffer the rule yields 2*n, leaving room for one more append of the same
// size. Doubling relative to the larger of capacity and required size keeps the number
// of grows logarithmic in the total number of bytes appended.
//
// Appends are all-or-nothing: when the allocator fails, Append returns an error
// matching ErrAllocationFailure and length, capacity and content are unchanged.
//
// # Ownership
//
// A Buffer exclusively owns its region. View and Bytes expose the storage without
// transferring ownership and become invalid on the next mutating call. Release frees the
// region and returns the buffer to its empty state; Detach hands the region to the
// caller instead. A buffer that becomes unreachable while still holding a region has
// it freed by a runtime cleanup.
//
// A Buffer is not safe for concurrent use and must not be copied after first use.
//
// # Usage Example
//
//	b := bytebuf.New()
//	defer b.Release()
//
//	if err := b.Append([]byte{1, 2, 3}); err != nil {
//	    return err
//	}
//	v := b.View() // {Addr: 0x7f..., Len: 3, Cap: 6}
package bytebuf
