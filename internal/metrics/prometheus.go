package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ModelCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langextract_model_calls_total",
			Help: "Total model gateway calls by outcome",
		},
		[]string{"model", "status"},
	)

	ModelCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "langextract_model_call_duration_seconds",
			Help:    "Model gateway call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	ModelRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langextract_model_retries_total",
			Help: "Total retried model gateway calls",
		},
		[]string{"model"},
	)

	ChunksPerExtraction = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "langextract_chunks_per_extraction",
			Help:    "Number of windows sent to the model per extraction",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
		},
	)

	AgreementScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "langextract_agreement_score",
			Help:    "Entity agreement between the two consensus models",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langextract_requests_total",
			Help: "Total extraction and consensus requests",
		},
		[]string{"kind", "status"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "langextract_cache_hits_total",
			Help: "Total result cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "langextract_cache_misses_total",
			Help: "Total result cache misses",
		},
	)

	EntitiesExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "langextract_entities_extracted_total",
			Help: "Total entities returned to callers",
		},
		[]string{"domain"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ModelCalls,
			ModelCallDuration,
			ModelRetries,
			ChunksPerExtraction,
			AgreementScore,
			RequestsTotal,
			CacheHits,
			CacheMisses,
			EntitiesExtracted,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
