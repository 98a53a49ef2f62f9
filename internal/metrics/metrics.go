// Package metrics exposes Prometheus counters for the sync engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync records sync activity. All methods are safe on a nil receiver.
type Sync struct {
	registry     *prometheus.Registry
	handler      http.Handler
	cycles       *prometheus.CounterVec
	salesSynced  prometheus.Counter
	queueItems   *prometheus.CounterVec
	pullRecords  *prometheus.CounterVec
	pendingSales prometheus.Gauge
	queueDepth   prometheus.Gauge
}

func New() *Sync {
	registry := prometheus.NewRegistry()
	m := &Sync{
		registry: registry,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorpos_sync_cycles_total",
			Help: "Sync cycles by kind (push|pull) and result (ok|skipped|error).",
		}, []string{"kind", "result"}),
		salesSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vendorpos_sales_synced_total",
			Help: "Sales acknowledged by the remote service.",
		}),
		queueItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorpos_queue_items_total",
			Help: "Queued mutations pushed, by result (ok|error).",
		}, []string{"result"}),
		pullRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorpos_pull_records_total",
			Help: "Records applied from pulls, by table.",
		}, []string{"table"}),
		pendingSales: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vendorpos_pending_sales",
			Help: "Sales waiting to be pushed.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vendorpos_queue_depth",
			Help: "Rows in the local sync queue.",
		}),
	}
	registry.MustRegister(m.cycles, m.salesSynced, m.queueItems, m.pullRecords, m.pendingSales, m.queueDepth)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

func (m *Sync) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Sync) Cycle(kind, result string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(kind, result).Inc()
}

func (m *Sync) SalesSynced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.salesSynced.Add(float64(n))
}

func (m *Sync) QueueItems(ok, failed int) {
	if m == nil {
		return
	}
	m.queueItems.WithLabelValues("ok").Add(float64(ok))
	m.queueItems.WithLabelValues("error").Add(float64(failed))
}

func (m *Sync) PullRecords(table string, n int) {
	if m == nil {
		return
	}
	m.pullRecords.WithLabelValues(table).Add(float64(n))
}

func (m *Sync) Pending(sales, queue int) {
	if m == nil {
		return
	}
	m.pendingSales.Set(float64(sales))
	m.queueDepth.Set(float64(queue))
}
