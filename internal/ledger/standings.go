package ledger

import (
	"fmt"
	"sort"
	"time"
)

// StartingStake returns the nominal starting points for a table with
// the given number of linked score entries.
func StartingStake(entries int) int {
	if entries == 4 {
		return FourPlayerStake
	}
	return ThreePlayerStake
}

// ComputeStandings builds the result table for a match. Entries are sorted by
// score descending; ties keep their input order.
func ComputeStandings(entries []ScoreEntry, names map[string]string) []Standing {
	stake := StartingStake(len(entries))
	standings := make([]Standing, 0, len(entries))
	for _, e := range entries {
		standings = append(standings, Standing{
			PlayerID:   e.PlayerID,
			PlayerName: names[e.PlayerID],
			Score:      e.Score,
			Result:     float64(e.Score-stake) / resultDivisor,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	return standings
}

// Validate checks a record request before anything is written.
func (r RecordRequest) Validate() error {
	if r.PlayerCount != 3 && r.PlayerCount != 4 {
		return fmt.Errorf("%w: player count must be 3 or 4, got %d", ErrInvalidMatch, r.PlayerCount)
	}
	if len(r.Scores) != r.PlayerCount {
		return fmt.Errorf("%w: expected %d scores, got %d", ErrInvalidMatch, r.PlayerCount, len(r.Scores))
	}
	if !r.GameType.Valid() {
		return fmt.Errorf("%w: unknown game type %q", ErrInvalidMatch, r.GameType)
	}
	if _, err := time.Parse(time.DateOnly, r.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidMatch, r.Date)
	}
	seen := make(map[string]bool, len(r.Scores))
	for i, s := range r.Scores {
		if s.PlayerID == "" {
			return fmt.Errorf("%w: score %d has no player", ErrInvalidMatch, i)
		}
		if seen[s.PlayerID] {
			return fmt.Errorf("%w: player %s appears twice", ErrInvalidMatch, s.PlayerID)
		}
		seen[s.PlayerID] = true
	}
	return nil
}

// ScoreSum returns the total of all submitted scores.
func (r RecordRequest) ScoreSum() int {
	total := 0
	for _, s := range r.Scores {
		total += s.Score
	}
	return total
}
