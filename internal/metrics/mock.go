package metrics

import "sync"

var _ Metrics = (*Mock)(nil)

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                sync.Mutex
	profilesCreated   int
	matchesRecorded   int
	matchesPending    int
	matchesDiscarded  int
	likesToggled      int
	changesPublished  int
	changesDropped    int
	snapshotRefreshes int
	requestDurations  []float64
	slackNotifSent    int
	slackNotifFailed  int
	startupTime       float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		requestDurations: make([]float64, 0),
	}
}

func (m *Mock) inc(counter *int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

func (m *Mock) get(counter *int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *counter
}

func (m *Mock) IncProfilesCreated()   { m.inc(&m.profilesCreated) }
func (m *Mock) IncMatchesRecorded()   { m.inc(&m.matchesRecorded) }
func (m *Mock) IncMatchesPending()    { m.inc(&m.matchesPending) }
func (m *Mock) IncMatchesDiscarded()  { m.inc(&m.matchesDiscarded) }
func (m *Mock) IncLikesToggled()      { m.inc(&m.likesToggled) }
func (m *Mock) IncChangesPublished()  { m.inc(&m.changesPublished) }
func (m *Mock) IncChangesDropped()    { m.inc(&m.changesDropped) }
func (m *Mock) IncSnapshotRefreshes() { m.inc(&m.snapshotRefreshes) }
func (m *Mock) IncSlackNotifSent()    { m.inc(&m.slackNotifSent) }
func (m *Mock) IncSlackNotifFailed()  { m.inc(&m.slackNotifFailed) }

func (m *Mock) ObserveRequestDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestDurations = append(m.requestDurations, duration)
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// ProfilesCreated returns the number of times IncProfilesCreated was called.
func (m *Mock) ProfilesCreated() int { return m.get(&m.profilesCreated) }

// MatchesRecorded returns the number of times IncMatchesRecorded was called.
func (m *Mock) MatchesRecorded() int { return m.get(&m.matchesRecorded) }

// MatchesPending returns the number of times IncMatchesPending was called.
func (m *Mock) MatchesPending() int { return m.get(&m.matchesPending) }

// MatchesDiscarded returns the number of times IncMatchesDiscarded was called.
func (m *Mock) MatchesDiscarded() int { return m.get(&m.matchesDiscarded) }

// LikesToggled returns the number of times IncLikesToggled was called.
func (m *Mock) LikesToggled() int { return m.get(&m.likesToggled) }

// ChangesPublished returns the number of times IncChangesPublished was called.
func (m *Mock) ChangesPublished() int { return m.get(&m.changesPublished) }

// ChangesDropped returns the number of times IncChangesDropped was called.
func (m *Mock) ChangesDropped() int { return m.get(&m.changesDropped) }

// SnapshotRefreshes returns the number of times IncSnapshotRefreshes was called.
func (m *Mock) SnapshotRefreshes() int { return m.get(&m.snapshotRefreshes) }

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int { return m.get(&m.slackNotifSent) }

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int { return m.get(&m.slackNotifFailed) }

// StartupTime returns the last value passed to SetStartupTime.
func (m *Mock) StartupTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startupTime
}
