package bytebuf

import (
	"fmt"
	"io"
	"runtime"
	"unsafe"
)

// minRead is the smallest free space ReadFrom offers to a reader.
const minRead = 512

// MarshalerTo is implemented by types that can serialize themselves into a
// preallocated slice, such as gogo/protobuf messages.
type MarshalerTo interface {
	Size() int
	MarshalTo(data []byte) (int, error)
}

var (
	_ io.Writer       = (*Buffer)(nil)
	_ io.ByteWriter   = (*Buffer)(nil)
	_ io.StringWriter = (*Buffer)(nil)
	_ io.ReaderFrom   = (*Buffer)(nil)
	_ io.WriterTo     = (*Buffer)(nil)
)

// Write implements io.Writer. It writes all of p or nothing.
func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.Append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (b *Buffer) WriteByte(c byte) error {
	one := [1]byte{c}
	return b.Append(one[:])
}

// WriteString implements io.StringWriter without converting s to a byte slice.
func (b *Buffer) WriteString(s string) (int, error) {
	return b.Write(unsafe.Slice(unsafe.StringData(s), len(s)))
}

// ReadFrom implements io.ReaderFrom. It appends from r until io.EOF, growing by the
// usual rule whenever less than minRead bytes are free.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	for {
		if err := b.reserve(minRead); err != nil {
			return n, err
		}
		m, e := r.Read(b.own.reg.Bytes()[b.n:])
		if m < 0 {
			return n, ErrNegativeRead
		}
		b.n += m
		n += int64(m)
		if e == io.EOF {
			return n, nil
		}
		if e != nil {
			return n, e
		}
	}
}

// WriteTo implements io.WriterTo. The buffer content is left in place.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes())
	// w reads raw storage that the cleanup of b would unmap.
	runtime.KeepAlive(b)
	return int64(n), err
}

// WriteMarshalerTo reserves m.Size() bytes and lets m marshal itself into them. If
// marshaling fails, or m reports a count outside [0, m.Size()], the length is
// unchanged.
func (b *Buffer) WriteMarshalerTo(m MarshalerTo) (int, error) {
	if m == nil {
		return 0, ErrNilMarshaler
	}
	size := m.Size()
	if err := b.Grow(size); err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	n, err := m.MarshalTo(b.own.reg.Bytes()[b.n : b.n+size])
	if err != nil {
		return 0, err
	}
	if n < 0 || n > size {
		return 0, fmt.Errorf("%w: %d bytes written into %d", ErrMarshalerCount, n, size)
	}
	b.n += n
	return n, nil
}
