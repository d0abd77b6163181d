// Package metrics exposes the run queue's state transitions as Prometheus
// series. Metrics are registered eagerly in init, the way
// telemetry/churn/prom_counters.go does: if nothing ever scrapes /metrics
// the registration is harmless, and there is no enable/disable switch to
// thread through call sites.
package metrics

import (
	"eevdf/pkg/eevdf"
	"eevdf/pkg/eevdf/fixed"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	placesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eevdf_places_total",
		Help: "Total number of entities placed into a run queue.",
	}, []string{"rq"})

	dequeuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eevdf_dequeues_total",
		Help: "Total number of entities removed from a run queue.",
	}, []string{"rq"})

	picksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eevdf_picks_total",
		Help: "Total number of Pick operations.",
	}, []string{"rq"})

	reissuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eevdf_deadline_reissues_total",
		Help: "Total number of times an entity's request was reissued after its slice was consumed.",
	}, []string{"rq"})

	reweightsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eevdf_reweights_total",
		Help: "Total number of ChangeWeight calls.",
	}, []string{"rq"})

	missingCurrentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eevdf_missing_current_total",
		Help: "Total number of Tick calls made with no current entity.",
	}, []string{"rq"})

	lagOnDeparture = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eevdf_lag_on_departure",
		Help:    "Distribution of lag (as a float64) carried by an entity at the moment it is dequeued.",
		Buckets: prometheus.DefBuckets,
	}, []string{"rq"})

	virtualTime = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eevdf_virtual_time",
		Help: "V clock value for a run queue as of its most recent Tick, as a float64.",
	}, []string{"rq"})
)

func init() {
	prometheus.MustRegister(
		placesTotal,
		dequeuesTotal,
		picksTotal,
		reissuesTotal,
		reweightsTotal,
		missingCurrentTotal,
		lagOnDeparture,
		virtualTime,
	)
}

// Observer adapts a named run queue's transitions to the package-level
// Prometheus series above. It embeds eevdf.NoopObserver so new Observer
// methods added to the core interface default to a no-op here rather than
// failing to compile.
type Observer struct {
	eevdf.NoopObserver
	rq string
}

// NewObserver returns an Observer that labels every series with rq, the
// caller's name for the run queue it is attached to (for example a shard
// index from internal/shardedrq).
func NewObserver(rq string) *Observer {
	return &Observer{rq: rq}
}

func (o *Observer) OnPlace(*eevdf.Entity, fixed.Q) {
	placesTotal.WithLabelValues(o.rq).Inc()
}

func (o *Observer) OnDequeue(_ *eevdf.Entity, lag fixed.Q) {
	dequeuesTotal.WithLabelValues(o.rq).Inc()
	lagOnDeparture.WithLabelValues(o.rq).Observe(lag.Float64())
}

func (o *Observer) OnTick(_ fixed.Q, v fixed.Q) {
	virtualTime.WithLabelValues(o.rq).Set(v.Float64())
}

func (o *Observer) OnNewRequest(*eevdf.Entity, eevdf.Request) {
	reissuesTotal.WithLabelValues(o.rq).Inc()
}

func (o *Observer) OnPick(*eevdf.Entity) {
	picksTotal.WithLabelValues(o.rq).Inc()
}

func (o *Observer) OnChangeWeight(*eevdf.Entity, int64, int64) {
	reweightsTotal.WithLabelValues(o.rq).Inc()
}

func (o *Observer) OnMissingCurrent() {
	missingCurrentTotal.WithLabelValues(o.rq).Inc()
}
