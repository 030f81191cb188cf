package engine

import (
	"fmt"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/google/uuid"
)

// Result is the outcome of recording a match: the completed match, the
// round+1 match the winner was propagated into (nil for the final), and
// whether the bracket is now decided.
type Result struct {
	Match      *bracket.Match
	Propagated *bracket.Match
	Final      bool
}

// RecordResult completes a main-bracket match and writes the winner into
// the next round's slot. next must be the match at (round+1, position/2),
// or nil when this is the final; the caller looks it up and persists both.
//
// Equal scores are rejected unless an explicit winner override names one
// of the participants, in which case the override is trusted over the
// score comparison.
func RecordResult(match, next *bracket.Match, homeScore, awayScore int, winnerOverride *uuid.UUID) (*Result, error) {
	if match.Completed() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCompleted, match.ID)
	}
	if match.IsBye {
		return nil, fmt.Errorf("%w: %s", ErrByeMatch, match.ID)
	}
	if homeScore < 0 || awayScore < 0 {
		return nil, fmt.Errorf("%w: %d-%d", ErrNegativeScore, homeScore, awayScore)
	}
	if !match.Playable() {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntries, match.ID)
	}

	var winnerID uuid.UUID
	switch {
	case winnerOverride != nil:
		if !match.HasEntry(*winnerOverride) {
			return nil, fmt.Errorf("%w: %s", ErrWinnerNotInMatch, *winnerOverride)
		}
		winnerID = *winnerOverride
	case homeScore > awayScore:
		winnerID = *match.HomeEntryID
	case awayScore > homeScore:
		winnerID = *match.AwayEntryID
	default:
		return nil, fmt.Errorf("%w: %d-%d", ErrDrawNotSupported, homeScore, awayScore)
	}

	match.HomeScore = &homeScore
	match.AwayScore = &awayScore
	match.WinnerID = &winnerID
	match.Status = bracket.MatchFinished

	res := &Result{Match: match}
	if next == nil {
		res.Final = true
		return res, nil
	}

	id := winnerID
	if match.FeedsHomeSlot() {
		next.HomeEntryID = &id
	} else {
		next.AwayEntryID = &id
	}
	res.Propagated = next

	return res, nil
}

// ResolveWalkovers completes matches that became unplayable after a
// winner landed in m: when m's empty side is fed by an empty bye, no
// opponent can ever arrive and the present entry advances without
// playing. Resolution cascades upward through further empty-bye
// siblings. Returns the completed walkovers deepest round first and the
// still-open match the winner finally advanced into; both nil when m is
// playable or an opponent is still coming. all must contain every
// main-stage match.
func ResolveWalkovers(m *bracket.Match, all []bracket.Match) ([]*bracket.Match, *bracket.Match) {
	byCoord := func(round, position int) *bracket.Match {
		for i := range all {
			if all[i].Stage == bracket.StageMain && all[i].Round == round && all[i].Position == position {
				return &all[i]
			}
		}
		return nil
	}

	var completed []*bracket.Match
	for m != nil && m.Round > 1 && !m.Completed() && !m.Playable() {
		winner := m.HomeEntryID
		openFeeder := 2*m.Position + 1
		if winner == nil {
			winner = m.AwayEntryID
			openFeeder = 2 * m.Position
		}
		if winner == nil {
			break
		}

		feeder := byCoord(m.Round-1, openFeeder)
		if feeder == nil || !feeder.Completed() || feeder.WinnerID != nil {
			// An opponent is still coming for the other side.
			break
		}

		m.WinnerID = winner
		m.Status = bracket.MatchFinished
		m.IsBye = true
		completed = append(completed, m)

		next := byCoord(m.Round+1, m.NextPosition())
		if next != nil {
			id := *winner
			if m.FeedsHomeSlot() {
				next.HomeEntryID = &id
			} else {
				next.AwayEntryID = &id
			}
		}
		m = next
	}

	if len(completed) == 0 {
		return nil, nil
	}
	return completed, m
}

// MarkInProgress is the optional pending -> in_progress transition on
// first score entry. Completed matches are left alone.
func MarkInProgress(match *bracket.Match) {
	if match.Status == bracket.MatchPending {
		match.Status = bracket.MatchInProgress
	}
}

// ResetPlan is the compensating transaction for reopening a completed
// match. Ratings are reversed before propagation is undone, deepest
// affected round first.
type ResetPlan struct {
	// Reopened are the matches returned to pending with scores and winner
	// cleared, deepest affected round first.
	Reopened []*bracket.Match
	// ReverseRatings lists the matches whose persisted rating deltas must
	// be undone, in the same deepest-first order.
	ReverseRatings []uuid.UUID
	// ClearedSlots are downstream matches that lost an entry ref without
	// having been completed; they stay pending but must be persisted.
	ClearedSlots []*bracket.Match
}

// PlanReset computes the cascade for reopening match. all must contain
// every main-stage match of the tournament; affected matches are mutated
// in place and reported in the plan for the caller to persist.
func PlanReset(match *bracket.Match, all []bracket.Match) (*ResetPlan, error) {
	if !match.Completed() {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotCompleted, match.ID)
	}
	if match.IsBye {
		return nil, fmt.Errorf("%w: %s", ErrByeMatch, match.ID)
	}

	byCoord := func(round, position int) *bracket.Match {
		for i := range all {
			if all[i].Stage == bracket.StageMain && all[i].Round == round && all[i].Position == position {
				return &all[i]
			}
		}
		return nil
	}

	plan := &ResetPlan{}

	var reopen func(m *bracket.Match)
	reopen = func(m *bracket.Match) {
		winner := m.WinnerID
		next := byCoord(m.Round+1, m.NextPosition())

		if next != nil && winner != nil && next.HasEntry(*winner) {
			if next.Completed() {
				// The next match already played with this winner; its
				// result is invalid too and unwinds first.
				reopen(next)
			} else {
				plan.ClearedSlots = append(plan.ClearedSlots, next)
			}
			clearSlot(next, *winner)
		}

		plan.ReverseRatings = append(plan.ReverseRatings, m.ID)
		m.HomeScore = nil
		m.AwayScore = nil
		m.WinnerID = nil
		m.Status = bracket.MatchPending
		plan.Reopened = append(plan.Reopened, m)
	}

	reopen(match)
	return plan, nil
}

func clearSlot(m *bracket.Match, entryID uuid.UUID) {
	if m.HomeEntryID != nil && *m.HomeEntryID == entryID {
		m.HomeEntryID = nil
	}
	if m.AwayEntryID != nil && *m.AwayEntryID == entryID {
		m.AwayEntryID = nil
	}
}
