package store

import (
	"context"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/jmoiron/sqlx"
)

// RatingStore keeps the per-match rating movement history. Resets read
// it back to reverse exactly what a completion applied.
type RatingStore struct {
	db *sqlx.DB
}

func NewRatingStore(db *sqlx.DB) *RatingStore {
	return &RatingStore{db: db}
}

func (s *RatingStore) CreateRatingChangesTx(ctx context.Context, tx *sqlx.Tx, changes []bracket.RatingChange) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO rating_changes (id, match_id, entry_id, rating_before, rating_after, delta)
        VALUES (:id, :match_id, :entry_id, :rating_before, :rating_after, :delta)`, changes)
	return err
}

func (s *RatingStore) GetRatingChangesByMatchTx(ctx context.Context, tx *sqlx.Tx, matchID string) ([]bracket.RatingChange, error) {
	var changes []bracket.RatingChange
	err := tx.SelectContext(ctx, &changes, "SELECT * FROM rating_changes WHERE match_id = ?", matchID)
	return changes, err
}

func (s *RatingStore) DeleteRatingChangesByMatchTx(ctx context.Context, tx *sqlx.Tx, matchID string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM rating_changes WHERE match_id = ?", matchID)
	return err
}

func (s *RatingStore) GetRatingChangesByEntry(ctx context.Context, entryID string) ([]bracket.RatingChange, error) {
	var changes []bracket.RatingChange
	err := s.db.SelectContext(ctx, &changes, "SELECT * FROM rating_changes WHERE entry_id = ? ORDER BY created_at ASC", entryID)
	return changes, err
}
