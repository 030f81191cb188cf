package bracket

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a registered participant (team or solo user) in one tournament.
// Seed and rating are set by the engine; the qualifier counters only move
// during the qualifier stage.
type Entry struct {
	ID           uuid.UUID `db:"id"`
	TournamentID uuid.UUID `db:"tournament_id"`
	UserID       *uuid.UUID `db:"user_id"`
	Name         string    `db:"name"`

	Seed   *int `db:"seed"`
	Rating int  `db:"rating"`

	QualifierPoints int `db:"qualifier_points"`
	MatchesPlayed   int `db:"matches_played"`

	CreatedAt time.Time `db:"created_at"`
}
