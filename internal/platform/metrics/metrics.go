// Package metrics collects the engine's operational counters and exposes
// them over the Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every engine metric behind one Prometheus registry so
// tests can run isolated instances.
type Registry struct {
	registry *prometheus.Registry

	rpcRequests     *prometheus.CounterVec
	onboardings     *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	feesCharged     *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	registryChanges *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	m := &Registry{
		registry: r,
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classify",
			Name:      "rpc_requests_total",
			Help:      "RPC requests by method and outcome.",
		}, []string{"method", "outcome"}),
		onboardings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classify",
			Name:      "onboardings_total",
			Help:      "Onboarding attempts by asset type and outcome.",
		}, []string{"asset_type", "outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classify",
			Name:      "verifications_total",
			Help:      "Verification decisions by asset type and result.",
		}, []string{"asset_type", "result"}),
		feesCharged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classify",
			Name:      "fees_charged_total",
			Help:      "Total onboarding fees charged, by denom.",
		}, []string{"denom"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classify",
			Name:      "upstream_errors_total",
			Help:      "Failures reported by injected collaborators, by source.",
		}, []string{"source"}),
		registryChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classify",
			Name:      "registry_changes_total",
			Help:      "Asset definition registry mutations by operation.",
		}, []string{"operation"}),
	}
	r.MustRegister(
		m.rpcRequests,
		m.onboardings,
		m.verifications,
		m.feesCharged,
		m.upstreamErrors,
		m.registryChanges,
	)
	return m
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) ObserveRPC(method, outcome string) {
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
}

func (m *Registry) ObserveOnboarding(assetType, outcome string) {
	m.onboardings.WithLabelValues(assetType, outcome).Inc()
}

func (m *Registry) ObserveVerification(assetType string, success bool) {
	result := "denied"
	if success {
		result = "approved"
	}
	m.verifications.WithLabelValues(assetType, result).Inc()
}

func (m *Registry) ObserveFees(denom string, amount uint64) {
	m.feesCharged.WithLabelValues(denom).Add(float64(amount))
}

func (m *Registry) ObserveUpstreamError(source string) {
	m.upstreamErrors.WithLabelValues(source).Inc()
}

func (m *Registry) ObserveRegistryChange(operation string) {
	m.registryChanges.WithLabelValues(operation).Inc()
}
