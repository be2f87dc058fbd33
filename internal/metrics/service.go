package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		ProfilesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_profiles_created_total",
			Help: "The total number of player profiles created on first sign-in.",
		}),
		MatchesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_matches_recorded_total",
			Help: "The total number of matches committed to the ledger.",
		}),
		MatchesPending: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_matches_pending_total",
			Help: "The total number of match records queued after a failed write.",
		}),
		MatchesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_matches_discarded_total",
			Help: "The total number of pending match records given up after repeated failures.",
		}),
		LikesToggled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_chat_likes_toggled_total",
			Help: "The total number of like toggles.",
		}),
		ChangesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_changes_published_total",
			Help: "The total number of live changes published to subscribers.",
		}),
		ChangesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_changes_dropped_total",
			Help: "The total number of live changes dropped for slow subscribers.",
		}),
		SnapshotRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_snapshot_refreshes_total",
			Help: "The total number of periodic chat snapshot refreshes.",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mahjong_request_duration_seconds",
			Help:    "The duration of HTTP API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mahjong_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mahjong_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.ProfilesCreated,
		s.MatchesRecorded,
		s.MatchesPending,
		s.MatchesDiscarded,
		s.LikesToggled,
		s.ChangesPublished,
		s.ChangesDropped,
		s.SnapshotRefreshes,
		s.RequestDuration,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncProfilesCreated()   { s.ProfilesCreated.Inc() }
func (s *Service) IncMatchesRecorded()   { s.MatchesRecorded.Inc() }
func (s *Service) IncMatchesPending()    { s.MatchesPending.Inc() }
func (s *Service) IncMatchesDiscarded()  { s.MatchesDiscarded.Inc() }
func (s *Service) IncLikesToggled()      { s.LikesToggled.Inc() }
func (s *Service) IncChangesPublished()  { s.ChangesPublished.Inc() }
func (s *Service) IncChangesDropped()    { s.ChangesDropped.Inc() }
func (s *Service) IncSnapshotRefreshes() { s.SnapshotRefreshes.Inc() }

func (s *Service) ObserveRequestDuration(duration float64) {
	s.RequestDuration.Observe(duration)
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
