// Package prom adapts the cache subsystem's statistics snapshots to
// Prometheus collectors, generalizing the teacher's hits/misses/evictions/
// size adapter to every tier and cross-cutting component this module adds:
// disk compression ratio, coherence dispatch counters, and warming-run
// duration.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voltcache/corecache/coherence"
	"github.com/voltcache/corecache/evictreason"
	"github.com/voltcache/corecache/stats"
	"github.com/voltcache/corecache/warming"
)

// Adapter exports a single cache's (or tier's) statistics as Prometheus
// counters/gauges. Safe for concurrent use; all Prometheus metric types are
// goroutine-safe.
type Adapter struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	evicts   *prometheus.CounterVec
	expired  prometheus.Counter
	sizeEnt  prometheus.Gauge
	sizeCost prometheus.Gauge
	hitRatio prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "expired_total",
			Help:        "Entries removed for having expired",
			ConstLabels: constLabels,
		}),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
		sizeCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_bytes",
			Help:        "Total resident size in bytes",
			ConstLabels: constLabels,
		}),
		hitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hit_ratio",
			Help:        "Hits / (hits + misses) over the cache's lifetime",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.expired, a.sizeEnt, a.sizeCost, a.hitRatio)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r evictreason.Reason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Expired increments the expiry counter.
func (a *Adapter) Expired() { a.expired.Inc() }

// Size updates gauges for the number of entries and total size.
func (a *Adapter) Size(entries int, sizeBytes int64) {
	a.sizeEnt.Set(float64(entries))
	a.sizeCost.Set(float64(sizeBytes))
}

// Observe sets the entry-count, size and hit-ratio gauges from a
// stats.Snapshot in one call, for components that only expose periodic
// snapshots rather than per-operation callbacks (e.g. a polling collector
// over memtier.Cache.Statistics()). The hit, miss, eviction and expiry
// counters are not updated from the snapshot.
func (a *Adapter) Observe(s stats.Snapshot) {
	a.sizeEnt.Set(float64(s.CurrentCount))
	a.sizeCost.Set(float64(s.CurrentSizeBytes))
	a.hitRatio.Set(s.HitRatio)
}

// reason maps evictreason.Reason to a stable Prometheus label value.
func reason(r evictreason.Reason) string {
	switch r {
	case evictreason.TTL:
		return "ttl"
	case evictreason.Capacity:
		return "capacity"
	case evictreason.Demotion:
		return "demotion"
	default:
		return "policy"
	}
}

// DiskAdapter exports the disk tier's compression effectiveness (spec
// §4.5), which has no counterpart in the in-memory tier.
type DiskAdapter struct {
	compressionRatio prometheus.Gauge
	orphanedBytes    prometheus.Gauge
}

// NewDiskAdapter constructs a Prometheus adapter for disk-tier-specific
// gauges.
func NewDiskAdapter(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *DiskAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	d := &DiskAdapter{
		compressionRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "compression_ratio",
			Help:        "compressed_bytes / uncompressed_bytes observed for the most recent write",
			ConstLabels: constLabels,
		}),
		orphanedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "orphaned_bytes",
			Help:        "Bytes occupied by on-disk files with no reconstructed index entry",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(d.compressionRatio, d.orphanedBytes)
	return d
}

// ObserveCompression records compressed_bytes/uncompressed_bytes for one
// write. Callers should skip this when uncompressedBytes is zero.
func (d *DiskAdapter) ObserveCompression(compressedBytes, uncompressedBytes int64) {
	if uncompressedBytes <= 0 {
		return
	}
	d.compressionRatio.Set(float64(compressedBytes) / float64(uncompressedBytes))
}

// ObserveOrphanedBytes records disktier.Tier.OrphanedBytes().
func (d *DiskAdapter) ObserveOrphanedBytes(n int64) { d.orphanedBytes.Set(float64(n)) }

// CoherenceAdapter exports cross-instance coherence dispatch counters (spec
// §4.7).
type CoherenceAdapter struct {
	registered prometheus.Gauge
	ops        *prometheus.CounterVec
	duration   prometheus.Gauge
}

// NewCoherenceAdapter constructs a Prometheus adapter over a
// coherence.Manager's stats.
func NewCoherenceAdapter(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *CoherenceAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &CoherenceAdapter{
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "coherence_peers",
			Help:        "Number of registered peer caches",
			ConstLabels: constLabels,
		}),
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "coherence_operations_total",
				Help:        "Coherence operations dispatched, by type",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "coherence_dispatch_seconds_total",
			Help:        "Cumulative time spent dispatching coherence operations",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(c.registered, c.ops, c.duration)
	return c
}

// Observe snapshots a coherence.Stats value onto the adapter's collectors.
func (c *CoherenceAdapter) Observe(s coherence.Stats) {
	c.registered.Set(float64(s.RegisteredCount))
	c.ops.WithLabelValues("put").Add(float64(s.PutOperations))
	c.ops.WithLabelValues("remove").Add(float64(s.RemoveOperations))
	c.ops.WithLabelValues("clear").Add(float64(s.ClearOperations))
	c.duration.Set(s.TotalDuration.Seconds())
}

// WarmingAdapter exports cache-warming run outcomes (spec §4.8).
type WarmingAdapter struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	warmed   prometheus.Gauge
}

// NewWarmingAdapter constructs a Prometheus adapter over warming.Event
// values.
func NewWarmingAdapter(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *WarmingAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	w := &WarmingAdapter{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "warming_runs_total",
				Help:        "Cache warming runs, by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "warming_run_duration_seconds",
			Help:        "Wall-clock duration of a warming run",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		warmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "warming_items_last_run",
			Help:        "Items warmed during the most recent run",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(w.runs, w.duration, w.warmed)
	return w
}

// Observe records one warming.Event.
func (w *WarmingAdapter) Observe(e warming.Event) {
	w.runs.WithLabelValues(outcome(e.Kind)).Inc()
	w.duration.Observe(e.Duration.Seconds())
	w.warmed.Set(float64(e.WarmedCount))
}

func outcome(k warming.EventKind) string {
	switch k {
	case warming.Completed:
		return "completed"
	case warming.Cancelled:
		return "cancelled"
	case warming.Failed:
		return "failed"
	default:
		return "unknown"
	}
}
