package bracket

import (
	"time"

	"github.com/google/uuid"
)

// Prediction is a user's guess for a specific match. Points and IsCorrect
// are computed once the match finishes; re-scoring overwrites them.
type Prediction struct {
	ID      uuid.UUID `db:"id"`
	MatchID uuid.UUID `db:"match_id"`
	UserID  uuid.UUID `db:"user_id"`

	PredictedHomeScore *int       `db:"predicted_home_score"`
	PredictedAwayScore *int       `db:"predicted_away_score"`
	PredictedWinnerID  *uuid.UUID `db:"predicted_winner_id"`

	Points    int        `db:"points"`
	IsCorrect bool       `db:"is_correct"`
	ScoredAt  *time.Time `db:"scored_at"`

	CreatedAt time.Time `db:"created_at"`
}

// RatingChange records one entry's rating movement for one match, so a
// match reset can reverse exactly what was applied.
type RatingChange struct {
	ID      uuid.UUID `db:"id"`
	MatchID uuid.UUID `db:"match_id"`
	EntryID uuid.UUID `db:"entry_id"`

	RatingBefore int `db:"rating_before"`
	RatingAfter  int `db:"rating_after"`
	Delta        int `db:"delta"`

	CreatedAt time.Time `db:"created_at"`
}
