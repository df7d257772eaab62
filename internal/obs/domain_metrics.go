package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteRequestsTotal counts price comparison outcomes.
	QuoteRequestsTotal *prometheus.CounterVec
	// QuoteCacheTotal counts quote cache lookups by hit/miss/error.
	QuoteCacheTotal *prometheus.CounterVec
	// QuoteSuppliersSkipped counts suppliers dropped from a comparison because their price reference was invalid.
	QuoteSuppliersSkipped prometheus.Counter
	// AlertsCreatedTotal counts price alert subscriptions by outcome.
	AlertsCreatedTotal *prometheus.CounterVec
	// AlertEvaluationsTotal counts worker alert evaluations by outcome.
	AlertEvaluationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_requests_total",
			Help:      "Count of price comparison requests by outcome.",
		}, []string{"result"})
		QuoteCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_cache_total",
			Help:      "Count of quote cache lookups by outcome.",
		}, []string{"result"})
		QuoteSuppliersSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_suppliers_skipped_total",
			Help:      "Suppliers left out of comparisons because of an invalid price reference.",
		})
		AlertsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Count of price alert subscriptions by outcome.",
		}, []string{"result"})
		AlertEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_evaluations_total",
			Help:      "Count of price alert evaluations by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, QuoteRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteCacheTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteSuppliersSkipped, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				QuoteSuppliersSkipped = v
			}
		})
		mustRegisterCollector(reg, AlertsCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AlertsCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, AlertEvaluationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AlertEvaluationsTotal = v
			}
		})
	})
}

// Inc increments counter for label when the collector has been registered.
func Inc(counter *prometheus.CounterVec, label string) {
	if counter == nil {
		return
	}
	counter.WithLabelValues(label).Inc()
}
