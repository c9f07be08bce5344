// Package metrics объявляет метрики Prometheus портала и sandbox.
// Все метрики регистрируются в стандартном реестре и отдаются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests считает запросы портала к REST-бэкенду по эндпоинту и исходу.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speakup",
		Subsystem: "apiclient",
		Name:      "requests_total",
		Help:      "Requests sent to the platform API by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// APIDuration - длительность запросов к REST-бэкенду.
	APIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "speakup",
		Subsystem: "apiclient",
		Name:      "request_duration_seconds",
		Help:      "Platform API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// GuardDecisions считает решения охранника маршрутов портала.
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speakup",
		Subsystem: "portal",
		Name:      "guard_decisions_total",
		Help:      "Route guard decisions by outcome.",
	}, []string{"decision"})

	// BookingTransitions считает переходы бронирований в sandbox.
	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speakup",
		Subsystem: "sandbox",
		Name:      "booking_transitions_total",
		Help:      "Booking status transitions by event and result.",
	}, []string{"event", "result"})
)
