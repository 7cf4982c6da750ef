package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

// RetrievalMetrics records one observation per Retrieve call.
type RetrievalMetrics struct {
	service string

	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	variants *prometheus.HistogramVec
	fused    *prometheus.HistogramVec
}

func NewRetrievalMetrics(service string, registerer prometheus.Registerer) *RetrievalMetrics {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Retrieval calls by outcome.",
		},
		[]string{"service", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval duration including query expansion.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	variants := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "query_variants",
			Help:      "Query variants searched per retrieval.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"service"},
	)
	fused := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "fused_chunks",
			Help:      "Chunks returned after rank fusion.",
			Buckets:   []float64{0, 1, 2, 4, 6, 8, 12, 16},
		},
		[]string{"service"},
	)

	if registerer != nil {
		registerer.MustRegister(total, duration, variants, fused)
	}

	return &RetrievalMetrics{
		service:  service,
		total:    total,
		duration: duration,
		variants: variants,
		fused:    fused,
	}
}

func (m *RetrievalMetrics) ObserveRetrieval(variants, fused int, degraded bool, duration time.Duration, err error) {
	outcome := retrievalOutcome(degraded, err)
	m.total.WithLabelValues(m.service, outcome).Inc()
	m.duration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.variants.WithLabelValues(m.service).Observe(float64(variants))
	m.fused.WithLabelValues(m.service).Observe(float64(fused))
}

func retrievalOutcome(degraded bool, err error) string {
	switch {
	case err == nil && degraded:
		return "degraded"
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrQueryGeneration):
		return "query_generation_error"
	case errors.As(err, new(*domain.SearchError)):
		return "search_error"
	case domain.IsKind(err, domain.ErrRetrieval):
		return "search_error"
	default:
		return "error"
	}
}
