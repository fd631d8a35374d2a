package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentu_operations_accepted_total",
		Help: "Operations appended to the ledger, by kind",
	}, []string{"op"})

	operationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentu_operations_rejected_total",
		Help: "Operations rejected, by kind and error code",
	}, []string{"op", "code"})

	applyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mentu_apply_duration_seconds",
		Help:    "Time to lock, validate and append one operation",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentu_http_requests_total",
		Help: "HTTP requests served, by method and status",
	}, []string{"method", "status"})

	subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mentu_ws_subscribers",
		Help: "Open websocket ledger subscriptions",
	})
)
