package engine

import (
	"fmt"
	"sort"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/google/uuid"
)

// Qualifier points per result. Round-robin stages admit draws, unlike the
// elimination bracket.
const (
	qualifierWinPoints  = 3
	qualifierDrawPoints = 1
)

// BuildQualifierRounds pairs entries for the qualifier stage using the
// circle method, truncated to the tournament's configured round count.
// With an odd entry count the entry paired against the dummy sits the
// round out (no match is created for it).
func BuildQualifierRounds(t *bracket.Tournament, entries []bracket.Entry) ([]bracket.Match, error) {
	if len(entries) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidEntryCount, len(entries))
	}

	rounds := t.QualifierMatches
	if max := len(entries) - 1; rounds > max {
		rounds = max
	}

	// Circle method: fix index 0, rotate the rest. An odd field gets a
	// dummy slot (index -1) whose pairings are dropped.
	ring := make([]int, 0, len(entries)+1)
	for i := range entries {
		ring = append(ring, i)
	}
	if len(ring)%2 != 0 {
		ring = append(ring, -1)
	}

	var matches []bracket.Match
	n := len(ring)
	for r := 1; r <= rounds; r++ {
		position := 0
		for i := 0; i < n/2; i++ {
			a, b := ring[i], ring[n-1-i]
			if a == -1 || b == -1 {
				continue
			}
			homeID := entries[a].ID
			awayID := entries[b].ID
			matches = append(matches, bracket.Match{
				ID:           uuid.New(),
				TournamentID: t.ID,
				Stage:        bracket.StageQualifier,
				Round:        r,
				Position:     position,
				HomeEntryID:  &homeID,
				AwayEntryID:  &awayID,
				Status:       bracket.MatchPending,
			})
			position++
		}

		// Rotate all but the first element.
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}

	return matches, nil
}

// ApplyQualifierResult completes a qualifier match and accrues points on
// both entries: 3 for a win, 1 each for a draw. Entries are mutated in
// place; the caller persists them with the match.
func ApplyQualifierResult(match *bracket.Match, home, away *bracket.Entry, homeScore, awayScore int) error {
	if match.Stage != bracket.StageQualifier {
		return fmt.Errorf("match %s is not a qualifier match", match.ID)
	}
	if match.Completed() {
		return fmt.Errorf("%w: %s", ErrAlreadyCompleted, match.ID)
	}
	if homeScore < 0 || awayScore < 0 {
		return fmt.Errorf("%w: %d-%d", ErrNegativeScore, homeScore, awayScore)
	}

	match.HomeScore = &homeScore
	match.AwayScore = &awayScore
	match.Status = bracket.MatchFinished

	switch {
	case homeScore > awayScore:
		match.WinnerID = match.HomeEntryID
		home.QualifierPoints += qualifierWinPoints
	case awayScore > homeScore:
		match.WinnerID = match.AwayEntryID
		away.QualifierPoints += qualifierWinPoints
	default:
		home.QualifierPoints += qualifierDrawPoints
		away.QualifierPoints += qualifierDrawPoints
	}

	home.MatchesPlayed++
	away.MatchesPlayed++
	return nil
}

// PromoteQualified selects the entries admitted to the main bracket:
// those at or above the points threshold, ordered by points descending,
// capped at MaxTeams. entries must arrive in registration order; the
// stable sort keeps that order between equal point totals (timestamps
// are only second-granular and cannot break such ties reliably).
func PromoteQualified(t *bracket.Tournament, entries []bracket.Entry) ([]bracket.Entry, error) {
	promoted := make([]bracket.Entry, 0, len(entries))
	for _, e := range entries {
		if e.QualifierPoints >= t.QualifierMinPoints {
			promoted = append(promoted, e)
		}
	}

	sort.SliceStable(promoted, func(i, j int) bool {
		return promoted[i].QualifierPoints > promoted[j].QualifierPoints
	})

	if t.MaxTeams > 0 && len(promoted) > t.MaxTeams {
		promoted = promoted[:t.MaxTeams]
	}

	if len(promoted) < 2 {
		return nil, fmt.Errorf("%w: only %d entries qualified", ErrInvalidEntryCount, len(promoted))
	}

	return promoted, nil
}
