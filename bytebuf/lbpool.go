package bytebuf

import (
	"math/rand/v2"
	"sync"

	"github.com/joshuapare/growbuf/rawmem"
)

const defaultLBPoolSize = 1000

// LBPool is a leaky bucket of buffers. It keeps at most Size idle buffers and
// releases the storage of every buffer it cannot keep, so an idle pool holds a
// bounded amount of raw memory. Unlike Pool it is never emptied by the garbage
// collector.
type LBPool struct {
	// Size is the number of idle buffers kept. Zero means 1000. Read once, on first use.
	Size uint
	// ReleaseFactor is the probability, in [0, 1], that a returned buffer is released
	// even though there is room for it. It lets a pool shrink after a burst.
	ReleaseFactor float32
	// Allocator backs buffers created by the pool. Nil means rawmem.Default.
	Allocator rawmem.Allocator
	// Metrics receives acquire and release events. Nil means the registered handler.
	Metrics MetricsWriter

	once sync.Once
	idle chan *Buffer
}

// LBP is the default leaky bucket pool. Use LBAcquire and LBRelease.
var LBP = LBPool{Size: defaultLBPoolSize}

// Get returns an idle buffer with zero length, or a new empty buffer.
func (p *LBPool) Get() *Buffer {
	select {
	case b := <-p.bucket():
		p.metrics().PoolAcquire(uint64(b.Cap()))
		return b
	default:
		return NewWithAllocator(p.Allocator)
	}
}

// Put resets b and keeps it if the bucket has room. It reports whether b was kept.
// A buffer that is not kept has its storage released. Buffers without an allocation
// are dropped. b and any slice obtained from it must not be used afterwards.
func (p *LBPool) Put(b *Buffer) bool {
	if b == nil || b.Cap() == 0 {
		return false
	}
	if p.ReleaseFactor > 0 && rand.Float32() < p.ReleaseFactor {
		b.Release()
		return false
	}
	b.Reset()
	capacity := b.Cap()
	select {
	case p.bucket() <- b:
		p.metrics().PoolRelease(uint64(capacity))
		return true
	default:
		b.Release()
		return false
	}
}

// Len returns the number of idle buffers.
func (p *LBPool) Len() int {
	return len(p.bucket())
}

func (p *LBPool) bucket() chan *Buffer {
	p.once.Do(func() {
		if p.Size == 0 {
			p.Size = defaultLBPoolSize
		}
		p.idle = make(chan *Buffer, p.Size)
	})
	return p.idle
}

func (p *LBPool) metrics() MetricsWriter {
	if p.Metrics != nil {
		return p.Metrics
	}
	return metricsHandler
}

// LBAcquire gets a buffer from LBP.
func LBAcquire() *Buffer {
	return LBP.Get()
}

// LBRelease puts b back into LBP.
func LBRelease(b *Buffer) {
	LBP.Put(b)
}
