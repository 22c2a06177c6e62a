package bytebuf

import (
	"math/rand/v2"
	"sync"

	"github.com/joshuapare/growbuf/rawmem"
)

// Pool recycles buffers together with their allocations.
//
// Buffers dropped by the underlying sync.Pool are freed by their runtime cleanup.
type Pool struct {
	// Allocator backs buffers created by the pool. Nil means rawmem.Default.
	Allocator rawmem.Allocator
	// Metrics receives acquire and release events. Nil means the registered handler.
	Metrics MetricsWriter

	p sync.Pool
}

// P is the default pool. Use Acquire and Recycle.
var P Pool

// Get returns a pooled buffer with zero length, or a new empty buffer.
func (p *Pool) Get() *Buffer {
	if v := p.p.Get(); v != nil {
		b := v.(*Buffer)
		p.metrics().PoolAcquire(uint64(b.Cap()))
		return b
	}
	return NewWithAllocator(p.Allocator)
}

// Put resets b and returns it to the pool. Buffers without an allocation are dropped.
// b and any slice obtained from it must not be used afterwards.
func (p *Pool) Put(b *Buffer) {
	if b == nil || b.Cap() == 0 {
		return
	}
	b.Reset()
	capacity := b.Cap()
	p.p.Put(b)
	p.metrics().PoolRelease(uint64(capacity))
}

func (p *Pool) metrics() MetricsWriter {
	if p.Metrics != nil {
		return p.Metrics
	}
	return metricsHandler
}

// Acquire gets a buffer from P.
func Acquire() *Buffer {
	return P.Get()
}

// Recycle puts b back into P.
func Recycle(b *Buffer) {
	P.Put(b)
}

const defaultMultiPoolSize = 16

// MultiPool spreads buffers over several pools picked at random, which reduces
// contention under heavy concurrent use.
type MultiPool struct {
	// Size is the number of shards. Zero means 16.
	Size      uint
	Allocator rawmem.Allocator
	Metrics   MetricsWriter

	once sync.Once
	p    []Pool
}

// MP is the default multi-pool.
var MP MultiPool

// Get returns a buffer from one of the shards.
func (m *MultiPool) Get() *Buffer {
	return m.shard().Get()
}

// Put returns b to one of the shards.
func (m *MultiPool) Put(b *Buffer) {
	m.shard().Put(b)
}

func (m *MultiPool) shard() *Pool {
	m.once.Do(func() {
		if m.Size == 0 {
			m.Size = defaultMultiPoolSize
		}
		m.p = make([]Pool, m.Size)
		for i := range m.p {
			m.p[i].Allocator = m.Allocator
			m.p[i].Metrics = m.Metrics
		}
	})
	return &m.p[rand.IntN(len(m.p))]
}
