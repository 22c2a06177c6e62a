package bytebuf

import (
	"errors"

	"github.com/joshuapare/growbuf/rawmem"
)

var (
	// ErrAllocationFailure indicates that the allocator could not provide the storage
	// an operation needed. It is the same value as rawmem.ErrAllocationFailure.
	ErrAllocationFailure = rawmem.ErrAllocationFailure

	// ErrNegativeRead indicates that an io.Reader returned a negative count.
	ErrNegativeRead = errors.New("bytebuf: reader returned negative count from Read")

	// ErrNilMarshaler indicates WriteMarshalerTo was called with a nil marshaler.
	ErrNilMarshaler = errors.New("bytebuf: marshaler is nil")

	// ErrMarshalerCount indicates MarshalTo reported more bytes than Size promised, or
	// a negative count.
	ErrMarshalerCount = errors.New("bytebuf: marshaler count out of range")
)
