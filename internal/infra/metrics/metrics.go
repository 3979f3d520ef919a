package metrics

import (
	"net/http"

	"provisiond/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "provisiond"

// Recorder implements usecase.Metrics on a private Prometheus registry.
type Recorder struct {
	registry      *prometheus.Registry
	admissions    *prometheus.CounterVec
	auditEntries  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Rate limiter decisions by tier and result.",
		}, []string{"tier", "result"}),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Audit entries recorded by action and level.",
		}, []string{"action", "level"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Identity provider calls by operation and result.",
		}, []string{"operation", "result"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.admissions,
		r.auditEntries,
		r.registrations,
		r.providerCalls,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ObserveAdmission(tier domain.RateLimitTier, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	r.admissions.WithLabelValues(string(tier), result).Inc()
}

func (r *Recorder) ObserveAudit(action domain.AuditAction, level domain.AuditLevel) {
	r.auditEntries.WithLabelValues(string(action), string(level)).Inc()
}

func (r *Recorder) ObserveRegistration(outcome string) {
	r.registrations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveProviderCall(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.providerCalls.WithLabelValues(operation, result).Inc()
}
