// Package metrics 廚房服務的 Prometheus 指標
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kitchen"

// 煮食結果標籤
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeBusy     = "busy"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Recorder 指標記錄器；nil Recorder 的所有方法皆為 no-op
type Recorder struct {
	registry *prometheus.Registry

	cooks            *prometheus.CounterVec
	cookDuration     prometheus.Histogram
	inventoryUpdated prometheus.Counter
	itemsAdded       *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New 建立獨立 registry 的記錄器
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		cooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cook_total",
			Help:      "Cook transactions by outcome.",
		}, []string{"outcome"}),
		cookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cook_duration_seconds",
			Help:      "Cook transaction latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		inventoryUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_rows_updated_total",
			Help:      "Inventory rows decremented by cook transactions.",
		}),
		itemsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shopping_items_added_total",
			Help:      "Shopping list items created, by source path.",
		}, []string{"path"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		r.cooks,
		r.cookDuration,
		r.inventoryUpdated,
		r.itemsAdded,
		r.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveCook 記錄一次煮食交易
func (r *Recorder) ObserveCook(outcome string, inventoryUpdated, missingAdded int, d time.Duration) {
	if r == nil {
		return
	}
	r.cooks.WithLabelValues(outcome).Inc()
	r.cookDuration.Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		r.inventoryUpdated.Add(float64(inventoryUpdated))
		r.itemsAdded.WithLabelValues("cook").Add(float64(missingAdded))
	}
}

// ObserveReconcile 記錄補齊缺少食材新增的項目數
func (r *Recorder) ObserveReconcile(added int) {
	if r == nil {
		return
	}
	r.itemsAdded.WithLabelValues("reconcile").Add(float64(added))
}

// ObserveRequest 記錄 HTTP 請求
func (r *Recorder) ObserveRequest(method, route, status string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, status).Inc()
}

// Gatherer 供測試讀取指標
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler /metrics 端點
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
