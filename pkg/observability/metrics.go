// Package observability provides Prometheus metrics for verbal environments
// and the experiment runner.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// ENVIRONMENT METRICS
// =============================================================================

var (
	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verbalgym_steps_total",
			Help: "Total number of verbal environment steps",
		},
		[]string{"env", "feedback"}, // feedback: present, absent
	)

	resetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verbalgym_resets_total",
			Help: "Total number of verbal environment resets",
		},
		[]string{"env"},
	)

	contractViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verbalgym_contract_violations_total",
			Help: "Observation contract violations detected by the wrapper",
		},
		[]string{"env", "phase"}, // phase: reset, step
	)

	feedbackResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verbalgym_feedback_resolutions_total",
			Help: "Effective feedback dialect resolutions",
		},
		[]string{"declared", "effective"},
	)
)

// =============================================================================
// EXPERIMENT METRICS
// =============================================================================

var (
	episodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verbalgym_episodes_total",
			Help: "Total number of evaluated episodes",
		},
		[]string{"env", "agent", "status"}, // status: success, error
	)

	episodeReturn = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verbalgym_episode_return",
			Help:    "Undiscounted return per episode",
			Buckets: []float64{0, 0.5, 1, 2, 5, 10, 20, 50},
		},
		[]string{"env", "agent"},
	)
)

// =============================================================================
// PARAPHRASE METRICS
// =============================================================================

var (
	paraphraseCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verbalgym_paraphrase_calls_total",
			Help: "LLM paraphrase calls",
		},
		[]string{"provider", "status"}, // status: success, error
	)

	paraphraseDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verbalgym_paraphrase_duration_seconds",
			Help:    "LLM paraphrase call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordStep records one completed wrapper step.
func RecordStep(env string, feedbackPresent bool) {
	label := "absent"
	if feedbackPresent {
		label = "present"
	}
	stepsTotal.WithLabelValues(env, label).Inc()
}

// RecordReset records one completed wrapper reset.
func RecordReset(env string) {
	resetsTotal.WithLabelValues(env).Inc()
}

// RecordContractViolation records an envelope rejected at reset or step.
func RecordContractViolation(env string, phase string) {
	contractViolationsTotal.WithLabelValues(env, phase).Inc()
}

// RecordFeedbackResolution records the effective dialect set chosen for a declared type.
func RecordFeedbackResolution(declared string, effective string) {
	feedbackResolutionsTotal.WithLabelValues(declared, effective).Inc()
}

// RecordEpisode records the outcome of one evaluated episode.
func RecordEpisode(env string, agent string, status string, ret float64) {
	episodesTotal.WithLabelValues(env, agent, status).Inc()
	if status == "success" {
		episodeReturn.WithLabelValues(env, agent).Observe(ret)
	}
}

// RecordParaphraseCall records an LLM paraphrase call.
func RecordParaphraseCall(provider string, status string, durationMS int) {
	paraphraseCallsTotal.WithLabelValues(provider, status).Inc()
	paraphraseDurationSeconds.WithLabelValues(provider).Observe(float64(durationMS) / 1000.0)
}
