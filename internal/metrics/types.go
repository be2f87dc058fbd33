package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	ProfilesCreated    prometheus.Counter
	MatchesRecorded    prometheus.Counter
	MatchesPending     prometheus.Counter
	MatchesDiscarded   prometheus.Counter
	LikesToggled       prometheus.Counter
	ChangesPublished   prometheus.Counter
	ChangesDropped     prometheus.Counter
	SnapshotRefreshes  prometheus.Counter
	RequestDuration    prometheus.Histogram
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
