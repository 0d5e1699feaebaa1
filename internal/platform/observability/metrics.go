package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_ingest_cycles_total",
		Help: "Ingestion cycles by outcome",
	}, []string{"outcome"})

	IngestCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheepai_ingest_cycle_duration_seconds",
		Help:    "Duration of a full ingestion cycle",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
	})

	IngestCyclesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sheepai_ingest_cycles_dropped_total",
		Help: "Schedule triggers dropped because a cycle was already running",
	})

	IngestCycleState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sheepai_ingest_cycle_state",
		Help: "Current cycle state (0 idle, 1 extracting, 2 deduplicating, 3 enriching, 4 persisting, 5 notifying)",
	})

	ArticlesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_articles_total",
		Help: "Articles seen by the pipeline by stage",
	}, []string{"stage"})

	SourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_source_requests_total",
		Help: "Source HTTP requests by kind and status",
	}, []string{"kind", "status"})

	EnrichmentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_enrichment_outcomes_total",
		Help: "Enrichment results by parse variant",
	}, []string{"variant"})

	CredibilityAssessments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_credibility_assessments_total",
		Help: "Credibility assessments by mode",
	}, []string{"mode"})

	CredibilityScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheepai_credibility_score",
		Help:    "Distribution of credibility scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_llm_requests_total",
		Help: "Completion requests by provider and status",
	}, []string{"provider", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sheepai_llm_request_duration_seconds",
		Help:    "Duration of completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	LLMFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_llm_fallbacks_total",
		Help: "Completion requests served by a fallback provider",
	}, []string{"from", "to"})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_embedding_requests_total",
		Help: "Embedding requests by provider and status",
	}, []string{"provider", "status"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheepai_notifications_total",
		Help: "Notification dispatches by status",
	}, []string{"status"})

	NotificationAverageRelevance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheepai_notification_average_relevance",
		Help:    "Average relevance of articles in a dispatched notification",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
)

// Label values shared across packages.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)
