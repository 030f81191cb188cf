package notify

import (
	"context"

	"github.com/google/uuid"
)

// MatchCompletedEvent is the payload handed to the notification
// dispatcher when a result lands. Delivery and message formatting happen
// downstream; the engine only produces the data.
type MatchCompletedEvent struct {
	TournamentID uuid.UUID `json:"tournament_id"`
	MatchID      uuid.UUID `json:"match_id"`
	Stage        string    `json:"stage"`
	Round        int       `json:"round"`
	Position     int       `json:"position"`

	HomeEntryID   uuid.UUID `json:"home_entry_id"`
	HomeEntryName string    `json:"home_entry_name"`
	AwayEntryID   uuid.UUID `json:"away_entry_id"`
	AwayEntryName string    `json:"away_entry_name"`

	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
	// WinnerID is nil for drawn qualifier matches.
	WinnerID *uuid.UUID `json:"winner_id,omitempty"`

	TournamentDecided bool `json:"tournament_decided"`
}

// Dispatcher delivers completion events to whoever formats and sends the
// user-facing notifications.
type Dispatcher interface {
	MatchCompleted(ctx context.Context, event MatchCompletedEvent) error
}

// Noop drops every event; used in tests and NATS-less deployments.
type Noop struct{}

func (Noop) MatchCompleted(context.Context, MatchCompletedEvent) error { return nil }
