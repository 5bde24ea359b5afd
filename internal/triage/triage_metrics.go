package triage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/triageline/internal/classify"
)

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	ClassificationsTotal *prometheus.CounterVec
	InvalidInputsTotal   *prometheus.CounterVec
	RiskScore            prometheus.Histogram
	AdmissionsTotal      *prometheus.CounterVec
	DischargesTotal      prometheus.Counter
	NotificationsTotal   *prometheus.CounterVec
	EventsTotal          *prometheus.CounterVec
	AdvisoriesTotal      *prometheus.CounterVec
	AdvisoryDuration     *prometheus.HistogramVec
	LLMCallsTotal        prometheus.Counter
	LLMTokensIn          prometheus.Counter
	LLMTokensOut         prometheus.Counter
	LLMDuration          prometheus.Histogram
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triageline_classifications_total",
			Help: "Total successful classifications by priority.",
		}, []string{"priority"}),
		InvalidInputsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triageline_invalid_inputs_total",
			Help: "Total classifications rejected for invalid input, by field.",
		}, []string{"field"}),
		RiskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triageline_risk_score",
			Help:    "Distribution of computed risk scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 .. 100
		}),
		AdmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triageline_admissions_total",
			Help: "Total patients admitted by priority.",
		}, []string{"priority"}),
		DischargesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triageline_discharges_total",
			Help: "Total patients discharged from the queue.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triageline_notifications_total",
			Help: "Total high-acuity notifications by outcome.",
		}, []string{"outcome"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triageline_events_published_total",
			Help: "Total lifecycle events published by type and outcome.",
		}, []string{"type", "outcome"}),
		AdvisoriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triageline_advisories_total",
			Help: "Total advisory runs by final status.",
		}, []string{"status"}),
		AdvisoryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triageline_advisory_duration_seconds",
			Help:    "Duration of advisory runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}, []string{"status", "model"}),
		LLMCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triageline_llm_calls_total",
			Help: "Total LLM provider calls.",
		}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triageline_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triageline_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triageline_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
	}

	reg.MustRegister(
		m.ClassificationsTotal,
		m.InvalidInputsTotal,
		m.RiskScore,
		m.AdmissionsTotal,
		m.DischargesTotal,
		m.NotificationsTotal,
		m.EventsTotal,
		m.AdvisoriesTotal,
		m.AdvisoryDuration,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
	)

	return m
}

// ServiceHooks returns hooks that update the service-level metrics.
func (m *Metrics) ServiceHooks() ServiceHooks {
	return ServiceHooks{
		OnClassify: func(p classify.Priority, riskScore int) {
			m.ClassificationsTotal.WithLabelValues(p.String()).Inc()
			m.RiskScore.Observe(float64(riskScore))
		},
		OnInvalidInput: func(field string) {
			m.InvalidInputsTotal.WithLabelValues(field).Inc()
		},
		OnAdmit: func(p classify.Priority) {
			m.AdmissionsTotal.WithLabelValues(p.String()).Inc()
		},
		OnDischarge: func() {
			m.DischargesTotal.Inc()
		},
		OnNotify: func(err error) {
			m.NotificationsTotal.WithLabelValues(outcome(err)).Inc()
		},
		OnPublish: func(t EventType, err error) {
			m.EventsTotal.WithLabelValues(string(t), outcome(err)).Inc()
		},
	}
}

// AdvisorHooks returns hooks that update the advisory and LLM metrics.
func (m *Metrics) AdvisorHooks() AdvisorHooks {
	return AdvisorHooks{
		OnLLMCall: func(inputTokens, outputTokens int, duration float64) {
			m.LLMCallsTotal.Inc()
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
			m.LLMDuration.Observe(duration)
		},
		OnComplete: func(status Status, model string, duration float64) {
			m.AdvisoriesTotal.WithLabelValues(string(status)).Inc()
			m.AdvisoryDuration.WithLabelValues(string(status), model).Observe(duration)
		},
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
