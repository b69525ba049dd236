package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CalculationsTotal counts totals calculations by tax mode and outcome.
	CalculationsTotal *prometheus.CounterVec
	// ValidationFailuresTotal counts rejected requests by offending field.
	ValidationFailuresTotal *prometheus.CounterVec
	// PolicyClampsTotal counts non-fatal policy clamps by warning flag.
	PolicyClampsTotal *prometheus.CounterVec
	// AuthDecisionsTotal counts gate decisions by matched signal.
	AuthDecisionsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Count of totals calculations by tax mode and outcome.",
		}, []string{"mode", "result"})
		ValidationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Count of validation violations by offending field.",
		}, []string{"field"})
		PolicyClampsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_clamps_total",
			Help:      "Count of non-fatal policy clamps surfaced as warnings.",
		}, []string{"flag"})
		AuthDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Count of authentication gate decisions by matched signal.",
		}, []string{"signal", "result"})

		mustRegisterCollector(reg, CalculationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CalculationsTotal = v
			}
		})
		mustRegisterCollector(reg, ValidationFailuresTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ValidationFailuresTotal = v
			}
		})
		mustRegisterCollector(reg, PolicyClampsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PolicyClampsTotal = v
			}
		})
		mustRegisterCollector(reg, AuthDecisionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AuthDecisionsTotal = v
			}
		})
	})
}

// RecordCalculation increments the calculation counter when metrics are registered.
func RecordCalculation(mode, result string) {
	if CalculationsTotal != nil {
		CalculationsTotal.WithLabelValues(mode, result).Inc()
	}
}

// RecordValidationFailure increments the validation failure counter for a field.
func RecordValidationFailure(field string) {
	if ValidationFailuresTotal != nil {
		ValidationFailuresTotal.WithLabelValues(field).Inc()
	}
}

// RecordPolicyClamp increments the clamp counter for a warning flag.
func RecordPolicyClamp(flag string) {
	if PolicyClampsTotal != nil {
		PolicyClampsTotal.WithLabelValues(flag).Inc()
	}
}

// RecordAuthDecision increments the gate decision counter.
func RecordAuthDecision(signal, result string) {
	if AuthDecisionsTotal != nil {
		AuthDecisionsTotal.WithLabelValues(signal, result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
