package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/jmoiron/sqlx"
)

type PredictionStore struct {
	db *sqlx.DB
}

func NewPredictionStore(db *sqlx.DB) *PredictionStore {
	return &PredictionStore{db: db}
}

// UpsertPrediction replaces a user's earlier guess for the same match.
func (s *PredictionStore) UpsertPrediction(ctx context.Context, tx *sqlx.Tx, p *bracket.Prediction) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO predictions (id, match_id, user_id, predicted_home_score, predicted_away_score, predicted_winner_id)
        VALUES (:id, :match_id, :user_id, :predicted_home_score, :predicted_away_score, :predicted_winner_id)
        ON CONFLICT (match_id, user_id) DO UPDATE SET
            predicted_home_score = excluded.predicted_home_score,
            predicted_away_score = excluded.predicted_away_score,
            predicted_winner_id = excluded.predicted_winner_id`, p)
	return err
}

func (s *PredictionStore) GetPredictionsByMatch(ctx context.Context, matchID string) ([]bracket.Prediction, error) {
	var predictions []bracket.Prediction
	err := s.db.SelectContext(ctx, &predictions, "SELECT * FROM predictions WHERE match_id = ? ORDER BY created_at ASC", matchID)
	return predictions, err
}

func (s *PredictionStore) GetPredictionsByMatchTx(ctx context.Context, tx *sqlx.Tx, matchID string) ([]bracket.Prediction, error) {
	var predictions []bracket.Prediction
	err := tx.SelectContext(ctx, &predictions, "SELECT * FROM predictions WHERE match_id = ? ORDER BY created_at ASC", matchID)
	return predictions, err
}

func (s *PredictionStore) GetPrediction(ctx context.Context, matchID, userID string) (*bracket.Prediction, error) {
	var p bracket.Prediction
	err := s.db.GetContext(ctx, &p, "SELECT * FROM predictions WHERE match_id = ? AND user_id = ?", matchID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &p, err
}

// SavePredictionScoreTx overwrites the computed score; re-scoring a
// match is idempotent because nothing accumulates.
func (s *PredictionStore) SavePredictionScoreTx(ctx context.Context, tx *sqlx.Tx, p *bracket.Prediction) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE predictions SET
        points = :points, is_correct = :is_correct, scored_at = :scored_at
        WHERE id = :id`, p)
	return err
}

// ClearScoresByMatchTx unscores every prediction on a match, for resets.
func (s *PredictionStore) ClearScoresByMatchTx(ctx context.Context, tx *sqlx.Tx, matchID string) error {
	_, err := tx.ExecContext(ctx, "UPDATE predictions SET points = 0, is_correct = 0, scored_at = NULL WHERE match_id = ?", matchID)
	return err
}
