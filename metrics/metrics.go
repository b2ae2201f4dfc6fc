// Package metrics exposes bracket engine counters to Prometheus.
package metrics

import (
	"time"

	"github.com/Dosada05/volley-tournament/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "volley_tournament"

type Recorder interface {
	BracketGenerated(format models.TournamentFormat, matches int, took time.Duration)
	ResultSubmitted(kind models.MatchKind)
	// MatchesReset counts downstream matches whose stale result was cleared by a cascade.
	MatchesReset(n int)
	ByesAdvanced(n int)
	JoinRequestHandled(status models.JoinRequestStatus)
}

type prometheusRecorder struct {
	bracketsGenerated   *prometheus.CounterVec
	bracketMatches      prometheus.Histogram
	generationDuration  prometheus.Histogram
	resultsSubmitted    *prometheus.CounterVec
	matchesReset        prometheus.Counter
	byesAdvanced        prometheus.Counter
	joinRequestsHandled *prometheus.CounterVec
}

func NewPrometheusRecorder(reg prometheus.Registerer) Recorder {
	factory := promauto.With(reg)
	return &prometheusRecorder{
		bracketsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brackets_generated_total",
			Help:      "Number of bracket structures generated, by tournament format.",
		}, []string{"format"}),
		bracketMatches: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bracket_matches",
			Help:      "Number of matches in a generated bracket.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		generationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bracket_generation_duration_seconds",
			Help:      "Time spent generating and persisting a bracket.",
			Buckets:   prometheus.DefBuckets,
		}),
		resultsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_results_submitted_total",
			Help:      "Number of decided match results committed, by match kind.",
		}, []string{"kind"}),
		matchesReset: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_reset_total",
			Help:      "Number of downstream match results cleared by cascading resets.",
		}),
		byesAdvanced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "byes_advanced_total",
			Help:      "Number of teams advanced without playing.",
		}),
		joinRequestsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_requests_handled_total",
			Help:      "Number of join requests accepted or rejected.",
		}, []string{"status"}),
	}
}

func (r *prometheusRecorder) BracketGenerated(format models.TournamentFormat, matches int, took time.Duration) {
	r.bracketsGenerated.WithLabelValues(string(format)).Inc()
	r.bracketMatches.Observe(float64(matches))
	r.generationDuration.Observe(took.Seconds())
}

func (r *prometheusRecorder) ResultSubmitted(kind models.MatchKind) {
	r.resultsSubmitted.WithLabelValues(string(kind)).Inc()
}

func (r *prometheusRecorder) MatchesReset(n int) {
	if n > 0 {
		r.matchesReset.Add(float64(n))
	}
}

func (r *prometheusRecorder) ByesAdvanced(n int) {
	if n > 0 {
		r.byesAdvanced.Add(float64(n))
	}
}

func (r *prometheusRecorder) JoinRequestHandled(status models.JoinRequestStatus) {
	r.joinRequestsHandled.WithLabelValues(string(status)).Inc()
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) BracketGenerated(models.TournamentFormat, int, time.Duration) {}
func (NoopRecorder) ResultSubmitted(models.MatchKind) {}
func (NoopRecorder) MatchesReset(int) {}
func (NoopRecorder) ByesAdvanced(int) {}
func (NoopRecorder) JoinRequestHandled(models.JoinRequestStatus) {}
