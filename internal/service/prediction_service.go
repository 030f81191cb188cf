package service

import (
	"context"
	"fmt"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/arena-gg/tourney/internal/engine"
	"github.com/arena-gg/tourney/internal/middleware"
	"github.com/arena-gg/tourney/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PredictionService struct {
	db          *sqlx.DB
	store       *store.TournamentStore
	predictions *store.PredictionStore
}

func NewPredictionService(db *sqlx.DB, store *store.TournamentStore, predictions *store.PredictionStore) *PredictionService {
	return &PredictionService{db: db, store: store, predictions: predictions}
}

type PredictionInput struct {
	HomeScore *int
	AwayScore *int
	WinnerID  *uuid.UUID
}

// SubmitPrediction records or replaces the caller's guess for a match.
// The window closes the moment the match completes.
func (s *PredictionService) SubmitPrediction(ctx context.Context, matchID uuid.UUID, input PredictionInput) (uuid.UUID, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("user ID not found in the context")
	}

	if input.HomeScore == nil && input.AwayScore == nil && input.WinnerID == nil {
		return uuid.Nil, fmt.Errorf("prediction must include a score or a winner")
	}
	if (input.HomeScore != nil && *input.HomeScore < 0) || (input.AwayScore != nil && *input.AwayScore < 0) {
		return uuid.Nil, fmt.Errorf("%w: predicted scores", engine.ErrNegativeScore)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match.Completed() {
		return uuid.Nil, fmt.Errorf("%w: predictions are closed", engine.ErrAlreadyCompleted)
	}
	if match.IsBye {
		return uuid.Nil, fmt.Errorf("%w: nothing to predict", engine.ErrByeMatch)
	}
	if input.WinnerID != nil && !match.HasEntry(*input.WinnerID) {
		return uuid.Nil, fmt.Errorf("%w: %s", engine.ErrWinnerNotInMatch, *input.WinnerID)
	}

	prediction := bracket.Prediction{
		ID:                 uuid.New(),
		MatchID:            matchID,
		UserID:             userID,
		PredictedHomeScore: input.HomeScore,
		PredictedAwayScore: input.AwayScore,
		PredictedWinnerID:  input.WinnerID,
	}

	if err := s.predictions.UpsertPrediction(ctx, tx, &prediction); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save prediction: %w", err)
	}

	return prediction.ID, tx.Commit()
}

func (s *PredictionService) ListMatchPredictions(ctx context.Context, matchID uuid.UUID) ([]bracket.Prediction, error) {
	return s.predictions.GetPredictionsByMatch(ctx, matchID.String())
}
