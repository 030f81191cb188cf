package engine

import (
	"fmt"
	"math"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/google/uuid"
)

// Builder allocates the single-elimination round/position tree from
// seeded slots. It never persists anything; the caller stores the
// returned matches.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build creates ceil(log2(len(slots))) rounds of matches. Round 1 is
// filled directly from the slots, including byes; later rounds start with
// both sides nil and are populated by result propagation. Byes
// auto-complete with the present entry as winner, cascading through any
// double-bye pairings.
//
// Rebuilding requires the caller to wipe the old match set first; Build
// refuses to run over a non-empty one.
func (b *Builder) Build(t *bracket.Tournament, slots []Slot, existing []bracket.Match) ([]bracket.Match, error) {
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: tournament %s has %d matches", ErrBracketAlreadyExists, t.ID, len(existing))
	}
	if len(slots) < 2 {
		return nil, fmt.Errorf("%w: got %d slots", ErrInvalidEntryCount, len(slots))
	}

	size := len(slots)
	totalRounds := int(math.Log2(float64(size)))

	matches := make([]bracket.Match, 0, size-1)
	for r := 1; r <= totalRounds; r++ {
		matchesInRound := size >> uint(r)
		for p := 0; p < matchesInRound; p++ {
			matches = append(matches, bracket.Match{
				ID:           uuid.New(),
				TournamentID: t.ID,
				Stage:        bracket.StageMain,
				Round:        r,
				Position:     p,
				Status:       bracket.MatchPending,
			})
		}
	}

	byCoord := func(round, position int) *bracket.Match {
		for i := range matches {
			if matches[i].Round == round && matches[i].Position == position {
				return &matches[i]
			}
		}
		return nil
	}

	for p := 0; p < size/2; p++ {
		m := byCoord(1, p)
		if e := slots[2*p].Entry; e != nil {
			id := e.ID
			m.HomeEntryID = &id
		}
		if e := slots[2*p+1].Entry; e != nil {
			id := e.ID
			m.AwayEntryID = &id
		}
	}

	// Resolve byes round by round. A match with exactly one side present
	// whose other side can never be filled finishes immediately; a match
	// with no reachable entries at all stays an empty bye so its parent
	// can resolve too.
	for r := 1; r < totalRounds; r++ {
		matchesInRound := size >> uint(r)
		for p := 0; p < matchesInRound; p++ {
			m := byCoord(r, p)
			if !isBye(m, r, byCoord) {
				continue
			}

			m.Status = bracket.MatchFinished
			m.IsBye = true
			next := byCoord(r+1, m.NextPosition())

			switch {
			case m.HomeEntryID != nil:
				m.WinnerID = m.HomeEntryID
			case m.AwayEntryID != nil:
				m.WinnerID = m.AwayEntryID
			}

			if m.WinnerID != nil {
				id := *m.WinnerID
				if m.FeedsHomeSlot() {
					next.HomeEntryID = &id
				} else {
					next.AwayEntryID = &id
				}
			}
		}
	}

	return matches, nil
}

// isBye reports whether the match at round r can never be played: one or
// both sides have no entry and no unresolved feeder match upstream.
func isBye(m *bracket.Match, r int, byCoord func(int, int) *bracket.Match) bool {
	if m.Playable() {
		return false
	}
	if r == 1 {
		return true
	}

	// A nil side in a later round is only a bye if its feeder already
	// resolved as an empty bye; otherwise a winner is still coming.
	sideOpen := func(feederPos int) bool {
		feeder := byCoord(r-1, feederPos)
		return feeder != nil && (!feeder.IsBye || feeder.WinnerID != nil) && !feeder.Completed()
	}
	if m.HomeEntryID == nil && sideOpen(2*m.Position) {
		return false
	}
	if m.AwayEntryID == nil && sideOpen(2*m.Position+1) {
		return false
	}
	return true
}
