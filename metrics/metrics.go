// Package metrics exports buffer pool and allocator activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/joshuapare/growbuf/bytebuf"
	"github.com/joshuapare/growbuf/rawmem"
)

const namespace = "growbuf"

// PoolMetrics implements bytebuf.MetricsWriter.
type PoolMetrics struct {
	acquired prometheus.Counter
	released prometheus.Counter
	capacity prometheus.Histogram
}

var _ bytebuf.MetricsWriter = (*PoolMetrics)(nil)

// NewPoolMetrics registers the pool metrics with r. A nil r leaves them unregistered.
func NewPoolMetrics(r prometheus.Registerer) *PoolMetrics {
	return &PoolMetrics{
		acquired: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "acquired_total",
			Help:      "Buffers handed out from a pool.",
		}),
		released: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "released_total",
			Help:      "Buffers returned to a pool.",
		}),
		capacity: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "released_capacity_bytes",
			Help:      "Capacity of buffers returned to a pool.",
			// 64 bytes up to 16 MiB.
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}
}

func (m *PoolMetrics) PoolAcquire(uint64) {
	m.acquired.Inc()
}

func (m *PoolMetrics) PoolRelease(capacity uint64) {
	m.released.Inc()
	m.capacity.Observe(float64(capacity))
}

// AllocatorCollector reads the counters of a rawmem.Tracked allocator at scrape time.
type AllocatorCollector struct {
	src *rawmem.Tracked

	allocs      *prometheus.Desc
	grows       *prometheus.Desc
	frees       *prometheus.Desc
	failures    *prometheus.Desc
	liveRegions *prometheus.Desc
	liveBytes   *prometheus.Desc
}

var _ prometheus.Collector = (*AllocatorCollector)(nil)

// NewAllocatorCollector returns a collector for src. name becomes the "allocator"
// label so several allocators can share a registry.
func NewAllocatorCollector(src *rawmem.Tracked, name string) *AllocatorCollector {
	labels := prometheus.Labels{"allocator": name}
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "allocator", metric), help, variable, labels)
	}
	return &AllocatorCollector{
		src:         src,
		allocs:      desc("allocs_total", "Regions allocated."),
		grows:       desc("grows_total", "Regions grown, by whether the address was kept.", "mode"),
		frees:       desc("frees_total", "Regions freed."),
		failures:    desc("failures_total", "Allocation requests that failed."),
		liveRegions: desc("live_regions", "Regions currently allocated."),
		liveBytes:   desc("live_bytes", "Capacity of regions currently allocated."),
	}
}

func (c *AllocatorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocs
	ch <- c.grows
	ch <- c.frees
	ch <- c.failures
	ch <- c.liveRegions
	ch <- c.liveBytes
}

func (c *AllocatorCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.allocs, prometheus.CounterValue, float64(st.Allocs))
	ch <- prometheus.MustNewConstMetric(c.grows, prometheus.CounterValue, float64(st.InPlace), "in_place")
	ch <- prometheus.MustNewConstMetric(c.grows, prometheus.CounterValue, float64(st.Moves), "moved")
	ch <- prometheus.MustNewConstMetric(c.frees, prometheus.CounterValue, float64(st.Frees))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(st.Failures))
	ch <- prometheus.MustNewConstMetric(c.liveRegions, prometheus.GaugeValue, float64(st.LiveRegions))
	ch <- prometheus.MustNewConstMetric(c.liveBytes, prometheus.GaugeValue, float64(st.LiveBytes))
}
