package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angeraphael/parrainage/core/referral"
	inmemdb "github.com/angeraphael/parrainage/storage/inmem"
)

const metricsNamespace = "parrainage"

type metrics struct {
	treeLoads   *prometheus.CounterVec
	treeMembers prometheus.Histogram
	toggles     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, sessions *inmemdb.SessionStore) *metrics {
	m := &metrics{
		treeLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tree_loads_total",
			Help:      "Referral tree loads, by result (ok, error, superseded).",
		}, []string{"result"}),
		treeMembers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "tree_members",
			Help:      "Total members of the loaded referral trees.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		toggles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "node_toggles_total",
			Help:      "Expand/collapse toggles of referral tree nodes.",
		}),
	}
	reg.MustRegister(m.treeLoads, m.treeMembers, m.toggles)
	if sessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "tree_sessions",
			Help:      "Tree sessions currently held in memory.",
		}, func() float64 { return float64(sessions.Len()) }))
	}
	return m
}

func (m *metrics) observeLoad(snap *referral.Snapshot, err error) {
	switch {
	case err == nil:
		m.treeLoads.WithLabelValues("ok").Inc()
		m.treeMembers.Observe(float64(snap.Stats.TotalMembers))
	case errors.Is(err, referral.ErrSuperseded):
		m.treeLoads.WithLabelValues("superseded").Inc()
	default:
		m.treeLoads.WithLabelValues("error").Inc()
	}
}

func metricsHandler(gatherer prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
