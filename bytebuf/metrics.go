package bytebuf

// MetricsWriter receives pool events. Implementations must be safe for concurrent use.
type MetricsWriter interface {
	// PoolAcquire registers a buffer of the given capacity taken from a pool.
	PoolAcquire(capacity uint64)
	// PoolRelease registers a buffer of the given capacity returned to a pool.
	PoolRelease(capacity uint64)
}

// NopMetrics discards all events.
type NopMetrics struct{}

func (NopMetrics) PoolAcquire(uint64) {}

func (NopMetrics) PoolRelease(uint64) {}

var metricsHandler MetricsWriter = NopMetrics{}

// RegisterMetricsHandler sets the writer used by pools without their own. It is meant
// to be called during program initialization. A nil handler restores NopMetrics.
func RegisterMetricsHandler(handler MetricsWriter) {
	if handler == nil {
		handler = NopMetrics{}
	}
	metricsHandler = handler
}
