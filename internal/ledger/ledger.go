package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
)

// New creates the match ledger. announcer may be nil.
func New(store Store, names NameResolver, announcer Announcer, broker livequery.Broker, m metrics.Metrics, maxAttempts int) Ledger {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &service{
		store:       store,
		names:       names,
		announcer:   announcer,
		broker:      broker,
		metrics:     m,
		maxAttempts: maxAttempts,
	}
}

// RecordMatch writes the match and its score entries in one transaction.
// When the write fails the request is queued and reported as pending.
func (s *service) RecordMatch(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m, err := s.commit(ctx, req)
	if err != nil {
		rec := s.enqueue(req, err)
		log.Warn("Match write failed, queued as pending", "error", err, "pendingID", rec.ID)
		return &RecordResult{Status: StatusPending, PendingID: rec.ID}, nil
	}
	return &RecordResult{Status: StatusConfirmed, Match: m}, nil
}

func (s *service) commit(ctx context.Context, req RecordRequest) (*Match, error) {
	m := Match{
		ID:          uuid.NewString(),
		Date:        req.Date,
		PlayerCount: req.PlayerCount,
		GameType:    req.GameType,
		CreatedAt:   time.Now().UTC(),
	}
	entries := make([]ScoreEntry, 0, len(req.Scores))
	for _, sc := range req.Scores {
		entries = append(entries, ScoreEntry{
			ID:       uuid.NewString(),
			MatchID:  m.ID,
			PlayerID: sc.PlayerID,
			Score:    sc.Score,
		})
	}

	if err := s.store.CreateMatch(ctx, m, entries); err != nil {
		return nil, err
	}

	log.Info("Recorded match", "matchID", m.ID, "date", m.Date, "gameType", m.GameType, "players", m.PlayerCount)
	s.metrics.IncMatchesRecorded()
	if expected := m.PlayerCount * StartingStake(len(entries)); req.ScoreSum() != expected {
		log.Warn("Match scores do not add up to the starting total", "matchID", m.ID, "sum", req.ScoreSum(), "expected", expected)
	}

	change, err := livequery.NewChange(livequery.TopicMatches, livequery.KindCreated, m.ID, "", m)
	if err != nil {
		log.Error("Failed to build match change", "error", err, "matchID", m.ID)
	} else {
		s.broker.Publish(change)
	}

	s.announce(ctx, m, entries, req.DryRun)
	return &m, nil
}

func (s *service) announce(ctx context.Context, m Match, entries []ScoreEntry, dryRun bool) {
	if s.announcer == nil {
		return
	}
	ms := MatchStandings{Match: m, Standings: ComputeStandings(entries, s.resolveNames(ctx, entries))}
	if err := s.announcer.SendStandings(ms, dryRun); err != nil {
		log.Error("Failed to announce standings", "error", err, "matchID", m.ID)
	}
}

func (s *service) resolveNames(ctx context.Context, entries []ScoreEntry) map[string]string {
	names := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, ok := names[e.PlayerID]; !ok {
			names[e.PlayerID] = s.names.ResolveName(ctx, e.PlayerID)
		}
	}
	return names
}

func (s *service) Standings(ctx context.Context, matchID string) (*MatchStandings, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ScoreEntries(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores for match %s: %w", matchID, err)
	}
	return &MatchStandings{Match: *m, Standings: ComputeStandings(entries, s.resolveNames(ctx, entries))}, nil
}

// History returns every match newest first. A match whose scores cannot be
// loaded is returned with an empty table.
func (s *service) History(ctx context.Context) ([]MatchStandings, error) {
	matches, err := s.store.ListMatches(ctx)
	if err != nil {
		return nil, err
	}
	history := make([]MatchStandings, 0, len(matches))
	for _, m := range matches {
		entries, err := s.store.ScoreEntries(ctx, m.ID)
		if err != nil {
			log.Error("Failed to load scores", "error", err, "matchID", m.ID)
			history = append(history, MatchStandings{Match: m, Standings: []Standing{}})
			continue
		}
		history = append(history, MatchStandings{Match: m, Standings: ComputeStandings(entries, s.resolveNames(ctx, entries))})
	}
	return history, nil
}

func (s *service) enqueue(req RecordRequest, cause error) *PendingRecord {
	rec := &PendingRecord{
		ID:        uuid.NewString(),
		Request:   req,
		Attempts:  1,
		LastError: cause.Error(),
		CreatedAt: time.Now().UTC(),
	}
	s.pendingMu.Lock()
	s.pending = append(s.pending, rec)
	s.pendingMu.Unlock()
	s.metrics.IncMatchesPending()
	return rec
}

// Pending returns a copy of the queued records, oldest first.
func (s *service) Pending() []PendingRecord {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	out := make([]PendingRecord, 0, len(s.pending))
	for _, rec := range s.pending {
		out = append(out, *rec)
	}
	return out
}

// ReconcilePending retries every queued record once. Records that reach
// the attempt limit are discarded.
func (s *service) ReconcilePending(ctx context.Context) ReconcileReport {
	s.pendingMu.Lock()
	queue := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	report := ReconcileReport{Confirmed: []string{}, Retrying: []string{}, Discarded: []string{}}
	var keep []*PendingRecord
	for _, rec := range queue {
		if ctx.Err() != nil {
			keep = append(keep, rec)
			report.Retrying = append(report.Retrying, rec.ID)
			continue
		}
		m, err := s.commit(ctx, rec.Request)
		if err == nil {
			log.Info("Pending match confirmed", "pendingID", rec.ID, "matchID", m.ID)
			report.Confirmed = append(report.Confirmed, rec.ID)
			continue
		}
		rec.Attempts++
		rec.LastError = err.Error()
		if rec.Attempts >= s.maxAttempts {
			log.Error("Discarding pending match after repeated failures", "error", err, "pendingID", rec.ID, "attempts", rec.Attempts)
			s.metrics.IncMatchesDiscarded()
			report.Discarded = append(report.Discarded, rec.ID)
			continue
		}
		log.Warn("Pending match still failing", "error", err, "pendingID", rec.ID, "attempts", rec.Attempts)
		keep = append(keep, rec)
		report.Retrying = append(report.Retrying, rec.ID)
	}

	if len(keep) > 0 {
		s.pendingMu.Lock()
		s.pending = append(keep, s.pending...)
		s.pendingMu.Unlock()
	}
	return report
}
