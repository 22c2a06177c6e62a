package bytebuf

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/growbuf/rawmem"
)

func TestWriteString(t *testing.T) {
	b := New()
	defer b.Release()

	n, err := b.WriteString("foo")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	n, err = b.WriteString("")
	require.NoError(t, err)
	require.Zero(t, n)
	_, err = b.WriteString("bar")
	require.NoError(t, err)
	require.Equal(t, "foobar", b.String())
}

func TestReadFrom(t *testing.T) {
	b := NewWithAllocator(rawmem.Heap{})
	defer b.Release()

	require.NoError(t, b.Append([]byte("> ")))
	n, err := b.ReadFrom(bytes.NewReader(expectedLong))
	require.NoError(t, err)
	require.Equal(t, int64(len(expectedLong)), n)
	require.Equal(t, append([]byte("> "), expectedLong...), b.Bytes())
	require.GreaterOrEqual(t, b.Cap(), b.Len())
}

type negativeReader struct{}

func (negativeReader) Read([]byte) (int, error) { return -1, nil }

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestReadFrom_Errors(t *testing.T) {
	b := NewWithAllocator(rawmem.Heap{})
	defer b.Release()

	_, err := b.ReadFrom(negativeReader{})
	require.ErrorIs(t, err, ErrNegativeRead)

	b.Reset()
	boom := errors.New("connection reset")
	n, err := b.ReadFrom(&failingReader{data: []byte("partial"), err: boom})
	require.ErrorIs(t, err, boom)
	require.Equal(t, int64(7), n)
	require.Equal(t, "partial", b.String())
}

func TestWriteTo(t *testing.T) {
	b := New()
	defer b.Release()

	_, _ = b.Write(source)
	var out strings.Builder
	n, err := b.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(len(source)), n)
	require.Equal(t, string(source), out.String())
	require.Equal(t, len(source), b.Len(), "WriteTo does not consume")

	var empty Buffer
	n, err = empty.WriteTo(io.Discard)
	require.NoError(t, err)
	require.Zero(t, n)
}

// collectingWriter runs the collector before reading p, so storage that is no
// longer reachable gets freed under it.
type collectingWriter struct {
	got []byte
}

func (w *collectingWriter) Write(p []byte) (int, error) {
	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	w.got = append(w.got, p...)
	return len(p), nil
}

// writeDropped writes a buffer that nothing references after WriteTo starts.
func writeDropped(t *testing.T, w io.Writer) int64 {
	b := NewWithAllocator(rawmem.System{})
	require.NoError(t, b.Append(source))
	n, err := b.WriteTo(w)
	require.NoError(t, err)
	return n
}

func TestWriteTo_BufferDroppedDuringWrite(t *testing.T) {
	var w collectingWriter
	n := writeDropped(t, &w)
	require.Equal(t, int64(len(source)), n)
	require.Equal(t, source, w.got)
}

func TestCopies_BufferDroppedAfterCall(t *testing.T) {
	dropped := func() *Buffer {
		b := NewWithAllocator(rawmem.System{})
		require.NoError(t, b.Append(source))
		return b
	}
	for i := 0; i < 3; i++ {
		require.Equal(t, string(source), dropped().String())
		require.Equal(t, source, dropped().AppendBytes(nil))
		require.Equal(t, "> "+string(source), dropped().AppendString("> "))
		runtime.GC()
	}
}

// fixedMarshaler writes payload, or fails after scribbling over the tail.
type fixedMarshaler struct {
	payload []byte
	fail    bool
}

func (m fixedMarshaler) Size() int { return len(m.payload) }

func (m fixedMarshaler) MarshalTo(data []byte) (int, error) {
	n := copy(data, m.payload)
	if m.fail {
		return 0, errors.New("marshal failed")
	}
	return n, nil
}

func TestWriteMarshalerTo(t *testing.T) {
	b := NewWithAllocator(rawmem.Heap{})
	defer b.Release()

	_, err := b.WriteMarshalerTo(nil)
	require.ErrorIs(t, err, ErrNilMarshaler)

	require.NoError(t, b.Append([]byte("hdr:")))
	n, err := b.WriteMarshalerTo(fixedMarshaler{payload: []byte("message")})
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, "hdr:message", b.String())

	_, err = b.WriteMarshalerTo(fixedMarshaler{payload: []byte("broken"), fail: true})
	require.Error(t, err)
	require.Equal(t, "hdr:message", b.String())

	n, err = b.WriteMarshalerTo(fixedMarshaler{})
	require.NoError(t, err)
	require.Zero(t, n)
}

// lyingMarshaler reports count regardless of how much room it was given.
type lyingMarshaler struct {
	size, count int
}

func (m lyingMarshaler) Size() int { return m.size }

func (m lyingMarshaler) MarshalTo(data []byte) (int, error) {
	copy(data, "xxxxxxxx")
	return m.count, nil
}

func TestWriteMarshalerTo_CountOutOfRange(t *testing.T) {
	b := NewWithAllocator(rawmem.Heap{})
	defer b.Release()
	require.NoError(t, b.Append([]byte("ab")))

	for _, m := range []lyingMarshaler{{size: 4, count: 100}, {size: 4, count: 5}, {size: 4, count: -1}} {
		n, err := b.WriteMarshalerTo(m)
		require.ErrorIs(t, err, ErrMarshalerCount)
		require.Zero(t, n)
		require.Equal(t, 2, b.Len())
		require.LessOrEqual(t, b.Len(), b.Cap())
		require.Equal(t, "ab", b.String())
	}

	n, err := b.WriteMarshalerTo(lyingMarshaler{size: 4, count: 4})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "abxxxx", b.String())
}

func BenchmarkBuffer_ReadFrom(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := New()
		_, _ = buf.ReadFrom(bytes.NewReader(expectedLong))
		buf.Release()
	}
}
