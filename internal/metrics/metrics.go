package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of gateway round-trips.",
		},
		[]string{"action", "outcome"},
	)
	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of gateway round-trips in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	gatewayRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_requests_in_flight",
			Help: "Current number of gateway round-trips being awaited.",
		},
	)
)

func init() {
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		slog.Debug("ProcessCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}

	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		slog.Debug("GoCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}
}

// ObserveGateway records one completed round-trip. The action label is the
// logical operation (fetch_cart, create_order, ...), not the URL path, so
// per-order identifiers never explode the label set.
func ObserveGateway(action string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	gatewayRequestsTotal.WithLabelValues(action, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

func GatewayInFlight() func() {
	gatewayRequestsInFlight.Inc()

	return gatewayRequestsInFlight.Dec
}

// http.Handler for the Prometheus /metrics endpoint
func Handler() http.Handler {

	return promhttp.Handler()
}
