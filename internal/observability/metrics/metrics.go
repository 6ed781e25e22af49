package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	checkoutDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_checkout_duration_seconds",
		Help:    "Duration of checkout attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Count of orders placed successfully",
	})

	ordersCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_cancelled_total",
		Help: "Count of order cancellations by actor role",
	}, []string{"role"})

	stockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_stock_conflicts_total",
		Help: "Count of checkouts rejected for insufficient stock",
	})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_logins_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveCheckout records the duration of a checkout attempt with a result label.
func ObserveCheckout(result string, duration time.Duration) {
	checkoutDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveOrderCreated increments the placed-order counter.
func ObserveOrderCreated() {
	ordersCreated.Inc()
}

// ObserveOrderCancelled increments the cancellation counter for the acting role.
func ObserveOrderCancelled(role string) {
	ordersCancelled.WithLabelValues(role).Inc()
}

// ObserveStockConflict increments the insufficient-stock counter.
func ObserveStockConflict() {
	stockConflicts.Inc()
}

// ObserveLogin increments the login counter for the given result.
func ObserveLogin(result string) {
	logins.WithLabelValues(result).Inc()
}
