package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchFinished   MatchStatus = "finished"
)

type Stage string

const (
	StageQualifier Stage = "qualifier"
	StageMain      Stage = "main"
)

// Match is one node of the elimination tree (or one qualifier pairing).
// Position is 0-indexed within a round: the main-bracket match at
// (round, position) is fed by the winners of (round-1, 2*position) and
// (round-1, 2*position+1).
type Match struct {
	ID           uuid.UUID `db:"id"`
	TournamentID uuid.UUID `db:"tournament_id"`

	Stage    Stage `db:"stage"`
	Round    int   `db:"round"`
	Position int   `db:"position"`

	HomeEntryID *uuid.UUID `db:"home_entry_id"`
	AwayEntryID *uuid.UUID `db:"away_entry_id"`

	HomeScore *int `db:"home_score"`
	AwayScore *int `db:"away_score"`

	WinnerID *uuid.UUID  `db:"winner_id"`
	Status   MatchStatus `db:"status"`
	IsBye    bool        `db:"is_bye"`

	CreatedAt time.Time `db:"created_at"`
}

func (m *Match) Completed() bool {
	return m.Status == MatchFinished
}

// Playable reports whether both sides are populated.
func (m *Match) Playable() bool {
	return m.HomeEntryID != nil && m.AwayEntryID != nil
}

// HasEntry reports whether the given entry occupies either side.
func (m *Match) HasEntry(entryID uuid.UUID) bool {
	if m.HomeEntryID != nil && *m.HomeEntryID == entryID {
		return true
	}
	return m.AwayEntryID != nil && *m.AwayEntryID == entryID
}

// NextPosition is the coordinate of the round+1 match this match feeds.
func (m *Match) NextPosition() int {
	return m.Position / 2
}

// FeedsHomeSlot reports which side of the next match receives this winner.
func (m *Match) FeedsHomeSlot() bool {
	return m.Position%2 == 0
}
