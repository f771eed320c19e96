// Package metrics exposes Prometheus collectors for flows, gateway calls,
// dispatched actions and token writes.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "transferdesk"

// Metrics owns a private registry so tests and embedded consoles never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	flows           *prometheus.CounterVec
	flowDuration    *prometheus.HistogramVec
	flowsInFlight   prometheus.Gauge
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	actions         *prometheus.CounterVec
	tokenWrites     *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_total",
			Help:      "Finished flow instances by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		flowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_seconds",
			Help:      "Flow instance duration by trigger.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"trigger"}),
		flowsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flows_in_flight",
			Help:      "Flow instances currently running.",
		}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "API round trips by method, endpoint and status code.",
		}, []string{"method", "endpoint", "code"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "API round trip latency by method and endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions applied to the store by type.",
		}, []string{"type"}),
		tokenWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_writes_total",
			Help:      "Token storage writes by operation and slot.",
		}, []string{"op", "slot"}),
	}
	m.registry.MustRegister(
		m.flows, m.flowDuration, m.flowsInFlight,
		m.gatewayCalls, m.gatewayDuration,
		m.actions, m.tokenWrites,
		collectors.NewGoCollector(),
	)
	return m
}

// Hooks returns flow hooks feeding these metrics.
func (m *Metrics) Hooks() domain.FlowHooks {
	return domain.FlowHooks{
		OnFlowStart: func(context.Context, *domain.FlowEvent) {
			m.flowsInFlight.Inc()
		},
		OnFlowEnd:     m.ObserveFlow,
		OnGatewayCall: m.ObserveGateway,
		OnAction:      m.ObserveAction,
	}
}

// ObserveFlow records a finished flow.
func (m *Metrics) ObserveFlow(_ context.Context, e *domain.FlowEvent) {
	m.flowsInFlight.Dec()
	outcome := string(e.Outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	m.flows.WithLabelValues(string(e.Trigger), outcome).Inc()
	m.flowDuration.WithLabelValues(string(e.Trigger)).Observe(e.Duration.Seconds())
}

// ObserveGateway records an API round trip.
func (m *Metrics) ObserveGateway(_ context.Context, e *domain.GatewayEvent) {
	endpoint := Endpoint(e.Endpoint)
	m.gatewayCalls.WithLabelValues(e.Method, endpoint, strconv.Itoa(e.StatusCode)).Inc()
	m.gatewayDuration.WithLabelValues(e.Method, endpoint).Observe(e.Duration.Seconds())
}

// ObserveAction records an applied action.
func (m *Metrics) ObserveAction(_ context.Context, a *domain.Action) {
	m.actions.WithLabelValues(string(a.Type)).Inc()
}

// ObserveTokenWrite matches session.WithWriteHook.
func (m *Metrics) ObserveTokenWrite(op string, slot ports.TokenSlot) {
	m.tokenWrites.WithLabelValues(op, string(slot)).Inc()
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Endpoint collapses numeric path segments so entity ids do not explode
// label cardinality: "/transfer_account/5/" becomes "/transfer_account/:id/".
func Endpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseUint(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
