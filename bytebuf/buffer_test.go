package bytebuf

import (
	"bytes"
	"errors"
	"math/bits"
	"runtime"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/growbuf/rawmem"
	"github.com/joshuapare/growbuf/rawmem/mock_rawmem"
)

var (
	source = []byte("Lorem ipsum dolor sit amet, consectetur adipiscing elit. Pellentesque euismod ante non arcu " +
		"commodo tempor. Praesent quis nulla sed urna dictum iaculis. Pellentesque malesuada lacinia leo, eu " +
		"hendrerit tellus sodales sit amet. Sed ut finibus purus, ac lacinia metus. Nam tortor nunc, gravida " +
		"hendrerit posuere eu, tristique id elit. Proin id blandit purus. Donec aliquam quam nec erat sodales, eu " +
		"aliquet elit vestibulum. Morbi cursus vehicula semper. Sed dolor lorem, mattis et erat a, elementum " +
		"tincidunt purus. Integer sit amet porta mauris. Curabitur eu est sed augue rutrum tristique et a augue.")
	space        = []byte(" ")
	expected     = append(bytes.Clone(source), space...)
	expectedLong = bytes.Repeat(source, 1000)
	parts        = bytes.Split(source, space)
)

// TestAppend_Scenario walks the canonical sequence: 3 bytes, 10 more, release.
func TestAppend_Scenario(t *testing.T) {
	b := New()
	defer b.Release()

	require.NoError(t, b.Append([]byte{1, 2, 3}))
	require.Equal(t, 3, b.Len())
	require.Equal(t, 6, b.Cap())
	require.Equal(t, []byte{1, 2, 3}, b.Bytes())

	more := []byte{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	require.NoError(t, b.Append(more))
	require.Equal(t, 13, b.Len())
	require.Equal(t, 26, b.Cap(), "2*max(6, 13)")
	require.Equal(t, append([]byte{1, 2, 3}, more...), b.Bytes())

	b.Release()
	require.Equal(t, 0, b.Len())
	require.Equal(t, 0, b.Cap())
	require.Equal(t, View{}, b.View())
}

func TestAppend_FitsWithoutAllocating(t *testing.T) {
	tr := rawmem.NewTracked(rawmem.Heap{})
	b := NewWithAllocator(tr)
	defer b.Release()

	require.NoError(t, b.Append([]byte("abcd"))) // cap 8
	require.NoError(t, b.Append([]byte("efgh")))
	require.Equal(t, 8, b.Cap())
	require.Equal(t, "abcdefgh", b.String())

	st := tr.Stats()
	require.Equal(t, int64(1), st.Allocs)
	require.Zero(t, st.Grows)
}

func TestAppend_PreservesPriorContent(t *testing.T) {
	for _, tc := range []struct {
		name  string
		alloc rawmem.Allocator
	}{
		{"system", rawmem.System{}},
		{"heap", rawmem.Heap{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := NewWithAllocator(tc.alloc)
			defer b.Release()

			for _, part := range parts {
				require.NoError(t, b.Append(part))
				require.NoError(t, b.Append(space))
			}
			require.True(t, bytes.Equal(expected, b.Bytes()), "not equal")

			b.Release()
			for i := 0; i < 1000; i++ {
				require.NoError(t, b.Append(source))
			}
			require.True(t, bytes.Equal(expectedLong, b.Bytes()), "not equal")
		})
	}
}

func TestAppend_CapacityNeverShrinks(t *testing.T) {
	b := NewWithAllocator(rawmem.Heap{})
	defer b.Release()

	prev := 0
	for i := 1; i < 200; i++ {
		require.NoError(t, b.Append(bytes.Repeat([]byte{byte(i)}, i%17+1)))
		require.GreaterOrEqual(t, b.Cap(), b.Len())
		require.GreaterOrEqual(t, b.Cap(), prev)
		prev = b.Cap()
	}
}

func TestAppend_ZeroLengthIsNoop(t *testing.T) {
	tr := rawmem.NewTracked(rawmem.Heap{})
	b := NewWithAllocator(tr)

	require.NoError(t, b.Append(nil))
	require.NoError(t, b.Append([]byte{}))
	require.Equal(t, View{}, b.View())
	require.Equal(t, rawmem.Stats{}, tr.Stats())

	require.NoError(t, b.Append([]byte("xyz")))
	before := b.View()
	require.NoError(t, b.Append(nil))
	require.Equal(t, before, b.View())
	require.Equal(t, "xyz", b.String())
	b.Release()
}

func TestAppend_AmortizedGrows(t *testing.T) {
	const total = 1 << 16

	tr := rawmem.NewTracked(rawmem.Heap{})
	b := NewWithAllocator(tr)
	defer b.Release()

	for i := 0; i < total; i++ {
		require.NoError(t, b.WriteByte(byte(i)))
	}
	require.Equal(t, total, b.Len())

	st := tr.Stats()
	require.Equal(t, int64(1), st.Allocs)
	require.LessOrEqual(t, st.Grows, int64(bits.Len(total)),
		"%d grows for %d single-byte appends", st.Grows, total)
}

func TestRelease_IdempotentAndReusable(t *testing.T) {
	tr := rawmem.NewTracked(rawmem.Heap{})
	b := NewWithAllocator(tr)

	b.Release() // empty buffer
	require.NoError(t, b.Append([]byte{1, 2, 3}))
	b.Release()
	b.Release()
	require.Equal(t, 0, b.Len())
	require.Equal(t, 0, b.Cap())
	require.Equal(t, int64(1), tr.Stats().Frees)

	require.NoError(t, b.Append([]byte{4, 5, 6}))
	require.Equal(t, 3, b.Len())
	require.Equal(t, 6, b.Cap())
	require.Equal(t, []byte{4, 5, 6}, b.Bytes())
	b.Release()
	require.Zero(t, tr.Stats().LiveRegions)
}

func TestAppend_GrowFailureIsAtomic(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mock_rawmem.NewMockAllocator(ctrl)

	reg, err := rawmem.Heap{}.Alloc(6)
	require.NoError(t, err)
	boom := errors.New("out of pages")

	gomock.InOrder(
		m.EXPECT().Alloc(6).Return(reg, nil),
		m.EXPECT().Grow(reg, 6, 26).Return(reg, boom),
		m.EXPECT().Free(reg),
	)

	b := NewWithAllocator(m)
	require.NoError(t, b.Append([]byte{1, 2, 3}))
	before := b.View()

	err = b.Append(make([]byte, 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllocationFailure), "got %v", err)
	assert.True(t, errors.Is(err, boom), "got %v", err)

	assert.Equal(t, before, b.View())
	assert.Equal(t, []byte{1, 2, 3}, b.Bytes())

	b.Release()
}

func TestAppend_AllocFailureLeavesEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mock_rawmem.NewMockAllocator(ctrl)
	m.EXPECT().Alloc(8).Return(rawmem.Region{}, rawmem.ErrAllocationFailure)

	b := NewWithAllocator(m)
	err := b.Append([]byte("four"))
	require.ErrorIs(t, err, ErrAllocationFailure)
	require.Equal(t, View{}, b.View())
	require.Nil(t, b.Bytes())

	b.Release() // nothing to free, no Free call expected
}

func TestGrow_Reserves(t *testing.T) {
	b := NewWithAllocator(rawmem.Heap{})
	defer b.Release()

	require.NoError(t, b.Grow(0))
	require.Equal(t, 0, b.Cap())

	require.NoError(t, b.Grow(10))
	require.Equal(t, 20, b.Cap())
	require.Equal(t, 0, b.Len())

	require.NoError(t, b.Append(make([]byte, 20)))
	require.Equal(t, 20, b.Cap(), "reserved room must be used without growing")

	require.Panics(t, func() { _ = b.Grow(-1) })
}

func TestView_TracksStorage(t *testing.T) {
	b := NewWithAllocator(rawmem.Heap{})
	defer b.Release()

	require.Equal(t, View{}, b.View())
	require.NoError(t, b.Append([]byte("hello")))

	v := b.View()
	require.NotZero(t, v.Addr)
	require.Equal(t, 5, v.Len)
	require.Equal(t, 10, v.Cap)
}

func TestReset_KeepsAllocation(t *testing.T) {
	b := NewWithAllocator(rawmem.Heap{})
	defer b.Release()

	require.NoError(t, b.Append([]byte("hello")))
	b.Reset()
	require.Equal(t, 0, b.Len())
	require.Equal(t, 10, b.Cap())
	require.Empty(t, b.Bytes())

	require.NoError(t, b.Append([]byte("world")))
	require.Equal(t, "world", b.String())
	require.Equal(t, 10, b.Cap())
}

func TestDetach_TransfersOwnership(t *testing.T) {
	tr := rawmem.NewTracked(rawmem.Heap{})
	b := NewWithAllocator(tr)

	require.NoError(t, b.Append([]byte("abc")))
	r, n := b.Detach()
	require.Equal(t, 3, n)
	require.Equal(t, 6, r.Cap())
	require.Equal(t, []byte("abc"), r.Bytes()[:n])

	require.Equal(t, View{}, b.View())
	b.Release()
	require.Equal(t, int64(0), tr.Stats().Frees, "released buffer must not free a detached region")

	b.Allocator().Free(r)
	require.Equal(t, int64(1), tr.Stats().Frees)

	empty := New()
	r, n = empty.Detach()
	require.True(t, r.IsNull())
	require.Zero(t, n)
}

func TestAppendBytesAndString(t *testing.T) {
	b := New()
	defer b.Release()

	for _, part := range parts {
		_, _ = b.Write(part)
		_ = b.WriteByte(' ')
	}
	require.Equal(t, expected, b.AppendBytes(nil))
	require.Equal(t, "> "+string(expected), b.AppendString("> "))
}

func TestZeroValueBuffer(t *testing.T) {
	var b Buffer
	require.Equal(t, 0, b.Cap())
	require.NoError(t, b.Append([]byte{1}))
	require.Equal(t, 2, b.Cap())
	require.Equal(t, rawmem.Default, b.Allocator())
	b.Release()
}

func TestUnreachableBufferIsFreed(t *testing.T) {
	tr := rawmem.NewTracked(rawmem.Heap{})
	func() {
		b := NewWithAllocator(tr)
		require.NoError(t, b.Append(source))
	}()
	require.EqualValues(t, 1, tr.Stats().LiveRegions)

	require.Eventually(t, func() bool {
		runtime.GC()
		return tr.Stats().Frees == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, tr.Stats().LiveRegions)
}

func TestReleasedBufferIsNotFreedAgain(t *testing.T) {
	tr := rawmem.NewTracked(rawmem.Heap{})
	func() {
		b := NewWithAllocator(tr)
		require.NoError(t, b.Append(source))
		b.Release()
	}()
	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	assert.EqualValues(t, 1, tr.Stats().Frees)
}

func BenchmarkBuffer_Write(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := New()
		for _, part := range parts {
			_, _ = buf.Write(part)
			_, _ = buf.Write(space)
		}
		if !bytes.Equal(buf.Bytes(), expected) {
			b.Error("not equal")
		}
		buf.Release()
	}
}

func BenchmarkBuffer_WriteLong(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := New()
		for j := 0; j < 1000; j++ {
			_, _ = buf.Write(source)
		}
		if !bytes.Equal(buf.Bytes(), expectedLong) {
			b.Error("not equal")
		}
		buf.Release()
	}
}

func BenchmarkByteSlice_AppendLong(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := make([]byte, 0)
		for j := 0; j < 1000; j++ {
			buf = append(buf, source...)
		}
		if !bytes.Equal(buf, expectedLong) {
			b.Error("not equal")
		}
	}
}
