package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	ingressRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rsvpctl",
			Subsystem: "ingress",
			Name:      "requests_total",
			Help:      "Ingress requests by agent, route and status.",
		},
		[]string{"agent", "route", "status"},
	)
	ingressDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rsvpctl",
			Subsystem: "ingress",
			Name:      "request_duration_seconds",
			Help:      "Ingress request duration in seconds, long polls included.",
			Buckets:   []float64{.005, .025, .1, .5, 1, 5, 10, 30, 60},
		},
		[]string{"agent", "route"},
	)
	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rsvpctl",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Canister gateway requests by kind, method and outcome.",
		},
		[]string{"kind", "method", "outcome"},
	)
	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rsvpctl",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Canister gateway request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "method"},
	)
	agentMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rsvpctl",
			Subsystem: "agent",
			Name:      "messages_total",
			Help:      "Agent messages dispatched by type and result.",
		},
		[]string{"type", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ingressRequests, ingressDuration, gatewayRequests, gatewayDuration, agentMessages)
	})
}

func RecordIngressRequest(agent, route string, status int, duration time.Duration) {
	RegisterMetrics()
	ingressRequests.WithLabelValues(agent, route, strconv.Itoa(status)).Inc()
	ingressDuration.WithLabelValues(agent, route).Observe(duration.Seconds())
}

// RecordGatewayRequest counts one canister call or query. outcome is a short
// label such as "ok", "http_error" or "rejected".
func RecordGatewayRequest(kind, method, outcome string, duration time.Duration) {
	RegisterMetrics()
	gatewayRequests.WithLabelValues(kind, method, outcome).Inc()
	gatewayDuration.WithLabelValues(kind, method).Observe(duration.Seconds())
}

func RecordAgentMessage(msgType string, success bool) {
	RegisterMetrics()
	result := "ok"
	if !success {
		result = "error"
	}
	agentMessages.WithLabelValues(msgType, result).Inc()
}
