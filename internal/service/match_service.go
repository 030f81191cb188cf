package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/arena-gg/tourney/internal/engine"
	"github.com/arena-gg/tourney/internal/notify"
	"github.com/arena-gg/tourney/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	db          *sqlx.DB
	store       *store.TournamentStore
	ratings     *store.RatingStore
	predictions *store.PredictionStore
	dispatcher  notify.Dispatcher
	kFactor     int
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, ratings *store.RatingStore, predictions *store.PredictionStore, dispatcher notify.Dispatcher, kFactor int) *MatchService {
	return &MatchService{
		db:          db,
		store:       store,
		ratings:     ratings,
		predictions: predictions,
		dispatcher:  dispatcher,
		kFactor:     kFactor,
	}
}

type MatchData struct {
	Match       *bracket.Match
	HomeEntry   *bracket.Entry
	AwayEntry   *bracket.Entry
	Predictions []bracket.Prediction
}

func (s *MatchService) GetMatchData(ctx context.Context, matchID string) (*MatchData, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var home, away *bracket.Entry
	if match.HomeEntryID != nil {
		e, err := s.store.GetEntry(ctx, match.HomeEntryID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to get home entry: %w", err)
		}
		home = e
	}
	if match.AwayEntryID != nil {
		e, err := s.store.GetEntry(ctx, match.AwayEntryID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to get away entry: %w", err)
		}
		away = e
	}

	predictions, err := s.predictions.GetPredictionsByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get predictions: %w", err)
	}

	return &MatchData{
		Match:       match,
		HomeEntry:   home,
		AwayEntry:   away,
		Predictions: predictions,
	}, nil
}

// ResultData is everything one completion produced, for the HTTP layer
// and the notification dispatcher.
type ResultData struct {
	Match         *bracket.Match
	Propagated    *bracket.Match
	Walkovers     []*bracket.Match
	Final         bool
	RatingChanges []bracket.RatingChange
	Scored        []bracket.Prediction
}

// RecordResult completes a main-bracket match inside one transaction:
// the result lands with a status compare-and-set, the winner propagates
// into round+1 with a slot compare-and-set, ratings move exactly once
// and predictions are scored. The completion event goes out only after
// the transaction commits.
func (s *MatchService) RecordResult(ctx context.Context, matchID uuid.UUID, homeScore, awayScore int, winnerOverride *uuid.UUID) (*ResultData, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match.Stage != bracket.StageMain {
		return nil, fmt.Errorf("match %s belongs to the qualifier stage", matchID)
	}

	next, err := s.store.GetMatchByCoordsTx(ctx, tx, match.TournamentID.String(), bracket.StageMain, match.Round+1, match.NextPosition())
	if err != nil {
		return nil, fmt.Errorf("failed to get next match: %w", err)
	}

	res, err := engine.RecordResult(match, next, homeScore, awayScore, winnerOverride)
	if err != nil {
		return nil, err
	}

	if err := s.store.CompleteMatchTx(ctx, tx, match); err != nil {
		if err == store.ErrStaleWrite {
			return nil, fmt.Errorf("%w: %s", engine.ErrAlreadyCompleted, matchID)
		}
		return nil, fmt.Errorf("failed to complete match: %w", err)
	}

	var walkovers []*bracket.Match
	if res.Propagated != nil {
		winnerID := match.WinnerID.String()
		if match.FeedsHomeSlot() {
			err = s.store.SetHomeSlotTx(ctx, tx, res.Propagated.ID.String(), winnerID)
		} else {
			err = s.store.SetAwaySlotTx(ctx, tx, res.Propagated.ID.String(), winnerID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to propagate winner: %w", err)
		}

		// The slot the winner landed in may face an empty bye; resolve any
		// walkover chain so the bracket never wedges on an unplayable match.
		all, err := s.store.GetMatchesTx(ctx, tx, match.TournamentID.String(), bracket.StageMain)
		if err != nil {
			return nil, fmt.Errorf("failed to load bracket: %w", err)
		}
		var received *bracket.Match
		for i := range all {
			if all[i].ID == res.Propagated.ID {
				received = &all[i]
			}
		}
		var advanced *bracket.Match
		if received != nil {
			walkovers, advanced = engine.ResolveWalkovers(received, all)
		}
		for _, w := range walkovers {
			if err := s.store.UpdateMatchTx(ctx, tx, w); err != nil {
				return nil, fmt.Errorf("failed to complete walkover %s: %w", w.ID, err)
			}
		}
		if advanced != nil {
			if err := s.store.UpdateMatchTx(ctx, tx, advanced); err != nil {
				return nil, fmt.Errorf("failed to advance walkover winner: %w", err)
			}
		}
	}

	changes, err := s.applyRatings(ctx, tx, match)
	if err != nil {
		return nil, err
	}

	scored, err := s.scorePredictions(ctx, tx, match)
	if err != nil {
		return nil, err
	}

	if res.Final {
		if err := s.store.UpdateTournamentStatusTx(ctx, tx, match.TournamentID.String(), bracket.TournamentCompleted); err != nil {
			return nil, fmt.Errorf("failed to complete tournament: %w", err)
		}
	}

	data := &ResultData{
		Match:         match,
		Propagated:    res.Propagated,
		Walkovers:     walkovers,
		Final:         res.Final,
		RatingChanges: changes,
		Scored:        scored,
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.dispatch(ctx, data)
	return data, nil
}

// StartMatch flips a pending match to in progress. Completed matches
// are rejected, matches already under way are left alone.
func (s *MatchService) StartMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match.Completed() {
		return nil, fmt.Errorf("%w: %s", engine.ErrAlreadyCompleted, matchID)
	}
	if !match.Playable() {
		return nil, fmt.Errorf("%w: %s", engine.ErrMissingEntries, matchID)
	}

	engine.MarkInProgress(match)
	if err := s.store.UpdateMatchTx(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	return match, tx.Commit()
}

// RecordQualifierResult completes a qualifier match; draws are allowed
// and only qualifier points move, not ratings.
func (s *MatchService) RecordQualifierResult(ctx context.Context, matchID uuid.UUID, homeScore, awayScore int) (*ResultData, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match.Stage != bracket.StageQualifier {
		return nil, fmt.Errorf("match %s is not a qualifier match", matchID)
	}
	if !match.Playable() {
		return nil, fmt.Errorf("%w: %s", engine.ErrMissingEntries, matchID)
	}

	home, err := s.store.GetEntryTx(ctx, tx, match.HomeEntryID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get home entry: %w", err)
	}
	away, err := s.store.GetEntryTx(ctx, tx, match.AwayEntryID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get away entry: %w", err)
	}

	if err := engine.ApplyQualifierResult(match, home, away, homeScore, awayScore); err != nil {
		return nil, err
	}

	if err := s.store.CompleteMatchTx(ctx, tx, match); err != nil {
		if err == store.ErrStaleWrite {
			return nil, fmt.Errorf("%w: %s", engine.ErrAlreadyCompleted, matchID)
		}
		return nil, fmt.Errorf("failed to complete match: %w", err)
	}

	if err := s.store.UpdateEntryTx(ctx, tx, home); err != nil {
		return nil, fmt.Errorf("failed to update home entry: %w", err)
	}
	if err := s.store.UpdateEntryTx(ctx, tx, away); err != nil {
		return nil, fmt.Errorf("failed to update away entry: %w", err)
	}

	scored, err := s.scorePredictions(ctx, tx, match)
	if err != nil {
		return nil, err
	}

	data := &ResultData{Match: match, Scored: scored}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.dispatch(ctx, data)
	return data, nil
}

// ResetMatch reopens a completed match and compensates everything its
// completion caused: downstream results unwind deepest round first,
// ratings reverse from the recorded deltas, prediction scores clear.
func (s *MatchService) ResetMatch(ctx context.Context, matchID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		return fmt.Errorf("failed to get match: %w", err)
	}
	if match.Stage != bracket.StageMain {
		return fmt.Errorf("qualifier matches cannot be reset")
	}

	all, err := s.store.GetMatchesTx(ctx, tx, match.TournamentID.String(), bracket.StageMain)
	if err != nil {
		return fmt.Errorf("failed to load bracket: %w", err)
	}

	var target *bracket.Match
	for i := range all {
		if all[i].ID == match.ID {
			target = &all[i]
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s", engine.ErrMatchNotFound, matchID)
	}

	plan, err := engine.PlanReset(target, all)
	if err != nil {
		return err
	}

	// The cascade may reopen the final even when the target is an earlier
	// round; the tournament reopens whenever the decided match is undone.
	top := maxRound(all)
	reopenedFinal := false
	for _, m := range plan.Reopened {
		if m.Round == top {
			reopenedFinal = true
		}
	}

	// Undo ratings before undoing propagation, deepest match first.
	for _, id := range plan.ReverseRatings {
		if err := s.reverseRatings(ctx, tx, id.String()); err != nil {
			return err
		}
	}

	for _, m := range plan.Reopened {
		if err := s.store.UpdateMatchTx(ctx, tx, m); err != nil {
			return fmt.Errorf("failed to reopen match %s: %w", m.ID, err)
		}
		if err := s.predictions.ClearScoresByMatchTx(ctx, tx, m.ID.String()); err != nil {
			return fmt.Errorf("failed to clear prediction scores: %w", err)
		}
	}
	for _, m := range plan.ClearedSlots {
		if err := s.store.UpdateMatchTx(ctx, tx, m); err != nil {
			return fmt.Errorf("failed to vacate slot in match %s: %w", m.ID, err)
		}
	}

	if reopenedFinal {
		if err := s.store.UpdateTournamentStatusTx(ctx, tx, match.TournamentID.String(), bracket.TournamentInProgress); err != nil {
			return fmt.Errorf("failed to reopen tournament: %w", err)
		}
	}

	return tx.Commit()
}

func (s *MatchService) applyRatings(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) ([]bracket.RatingChange, error) {
	winner, err := s.store.GetEntryTx(ctx, tx, match.WinnerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get winner: %w", err)
	}

	loserID := *match.HomeEntryID
	if loserID == *match.WinnerID {
		loserID = *match.AwayEntryID
	}
	loser, err := s.store.GetEntryTx(ctx, tx, loserID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get loser: %w", err)
	}

	update := engine.UpdateRatings(winner.Rating, loser.Rating, s.kFactor)

	changes := []bracket.RatingChange{
		{
			ID:           uuid.New(),
			MatchID:      match.ID,
			EntryID:      winner.ID,
			RatingBefore: winner.Rating,
			RatingAfter:  update.WinnerRating,
			Delta:        update.Delta,
		},
		{
			ID:           uuid.New(),
			MatchID:      match.ID,
			EntryID:      loser.ID,
			RatingBefore: loser.Rating,
			RatingAfter:  update.LoserRating,
			Delta:        -update.Delta,
		},
	}

	if err := s.store.UpdateEntryRatingTx(ctx, tx, winner.ID.String(), update.WinnerRating); err != nil {
		return nil, fmt.Errorf("failed to update winner rating: %w", err)
	}
	if err := s.store.UpdateEntryRatingTx(ctx, tx, loser.ID.String(), update.LoserRating); err != nil {
		return nil, fmt.Errorf("failed to update loser rating: %w", err)
	}
	if err := s.ratings.CreateRatingChangesTx(ctx, tx, changes); err != nil {
		return nil, fmt.Errorf("failed to record rating changes: %w", err)
	}

	return changes, nil
}

func (s *MatchService) reverseRatings(ctx context.Context, tx *sqlx.Tx, matchID string) error {
	changes, err := s.ratings.GetRatingChangesByMatchTx(ctx, tx, matchID)
	if err != nil {
		return fmt.Errorf("failed to load rating changes: %w", err)
	}

	for _, c := range changes {
		entry, err := s.store.GetEntryTx(ctx, tx, c.EntryID.String())
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}
		reversed := engine.ReverseRating(entry.Rating, c.Delta)
		if err := s.store.UpdateEntryRatingTx(ctx, tx, c.EntryID.String(), reversed); err != nil {
			return fmt.Errorf("failed to reverse rating: %w", err)
		}
	}

	return s.ratings.DeleteRatingChangesByMatchTx(ctx, tx, matchID)
}

func (s *MatchService) scorePredictions(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) ([]bracket.Prediction, error) {
	predictions, err := s.predictions.GetPredictionsByMatchTx(ctx, tx, match.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}
	if len(predictions) == 0 {
		return nil, nil
	}

	scored, err := engine.ScorePredictions(predictions, match, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	for i := range scored {
		if err := s.predictions.SavePredictionScoreTx(ctx, tx, &scored[i]); err != nil {
			return nil, fmt.Errorf("failed to save prediction score: %w", err)
		}
	}
	return scored, nil
}

func (s *MatchService) dispatch(ctx context.Context, data *ResultData) {
	m := data.Match
	if m.HomeEntryID == nil || m.AwayEntryID == nil {
		return
	}

	event := notify.MatchCompletedEvent{
		TournamentID:      m.TournamentID,
		MatchID:           m.ID,
		Stage:             string(m.Stage),
		Round:             m.Round,
		Position:          m.Position,
		HomeEntryID:       *m.HomeEntryID,
		AwayEntryID:       *m.AwayEntryID,
		WinnerID:          m.WinnerID,
		TournamentDecided: data.Final,
	}
	if m.HomeScore != nil {
		event.HomeScore = *m.HomeScore
	}
	if m.AwayScore != nil {
		event.AwayScore = *m.AwayScore
	}

	if home, err := s.store.GetEntry(ctx, m.HomeEntryID.String()); err == nil {
		event.HomeEntryName = home.Name
	}
	if away, err := s.store.GetEntry(ctx, m.AwayEntryID.String()); err == nil {
		event.AwayEntryName = away.Name
	}

	if err := s.dispatcher.MatchCompleted(ctx, event); err != nil {
		slog.Error("failed to dispatch match completion", "match", m.ID, "error", err)
	}
}

func maxRound(matches []bracket.Match) int {
	max := 0
	for _, m := range matches {
		if m.Round > max {
			max = m.Round
		}
	}
	return max
}
