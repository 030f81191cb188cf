package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/arena-gg/tourney/internal/engine"
	"github.com/arena-gg/tourney/internal/middleware"
	"github.com/arena-gg/tourney/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentService struct {
	db    *sqlx.DB
	store *store.TournamentStore
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore) *TournamentService {
	return &TournamentService{db: db, store: store}
}

type TournamentInput struct {
	Name               string
	MaxTeams           int
	TeamSize           *int
	SeedingMethod      bracket.SeedingMethod
	HasQualifier       bool
	QualifierMatches   int
	QualifierMinPoints int
	RequireRank        bool
}

type EntryInput struct {
	Name   string
	UserID *uuid.UUID
}

type TournamentData struct {
	Tournament  *bracket.Tournament
	Entries     []bracket.Entry
	Matches     []bracket.Match
	NextMatchID *uuid.UUID
}

func (s *TournamentService) GetTournamentData(ctx context.Context, id string) (*TournamentData, error) {
	tournament, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.GetEntries(ctx, id)
	if err != nil {
		return nil, err
	}

	matches, err := s.store.GetMatches(ctx, id)
	if err != nil {
		return nil, err
	}

	var nextMatchID *uuid.UUID
	for _, m := range matches {
		if m.Status != bracket.MatchFinished {
			id := m.ID
			nextMatchID = &id
			break
		}
	}

	return &TournamentData{
		Tournament:  tournament,
		Entries:     entries,
		Matches:     matches,
		NextMatchID: nextMatchID,
	}, nil
}

func (s *TournamentService) GetTournamentsForUser(ctx context.Context) ([]bracket.Tournament, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user ID not found in the context")
	}
	return s.store.GetTournamentsByOwner(ctx, userID.String())
}

func (s *TournamentService) CreateTournament(ctx context.Context, input TournamentInput) (uuid.UUID, error) {
	if input.MaxTeams < 2 {
		return uuid.Nil, fmt.Errorf("%w: max teams %d", engine.ErrInvalidEntryCount, input.MaxTeams)
	}
	if input.SeedingMethod == "" {
		input.SeedingMethod = bracket.SeedStandard
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	ownerID, _ := middleware.GetUserIDFromContext(ctx)
	tournament := bracket.Tournament{
		ID:                 uuid.New(),
		OwnerID:            ownerID,
		Name:               input.Name,
		Status:             bracket.TournamentDraft,
		MaxTeams:           input.MaxTeams,
		TeamSize:           input.TeamSize,
		SeedingMethod:      input.SeedingMethod,
		HasQualifier:       input.HasQualifier,
		QualifierMatches:   input.QualifierMatches,
		QualifierMinPoints: input.QualifierMinPoints,
		RequireRank:        input.RequireRank,
	}

	if err := s.store.CreateTournament(ctx, tx, &tournament); err != nil {
		return uuid.Nil, err
	}

	return tournament.ID, tx.Commit()
}

func (s *TournamentService) OpenRegistration(ctx context.Context, tournamentID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return err
	}
	if tournament.Status != bracket.TournamentDraft {
		return fmt.Errorf("tournament %s is not a draft", tournamentID)
	}

	if err := s.store.UpdateTournamentStatusTx(ctx, tx, tournamentID.String(), bracket.TournamentRegistration); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *TournamentService) RegisterEntry(ctx context.Context, tournamentID uuid.UUID, input EntryInput) (uuid.UUID, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return uuid.Nil, err
	}
	if !tournament.AcceptsRegistrations() {
		return uuid.Nil, fmt.Errorf("tournament %s is not accepting registrations", tournamentID)
	}
	if tournament.RequireRank && input.UserID == nil {
		return uuid.Nil, fmt.Errorf("tournament %s requires a ranked account", tournamentID)
	}

	// Qualifier tournaments accept an open field; the qualifier stage
	// cuts it down to MaxTeams later.
	if !tournament.HasQualifier {
		count, err := s.store.CountEntries(ctx, tx, tournamentID.String())
		if err != nil {
			return uuid.Nil, err
		}
		if count >= tournament.MaxTeams {
			return uuid.Nil, fmt.Errorf("tournament %s is full", tournamentID)
		}
	}

	entry := bracket.Entry{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		UserID:       input.UserID,
		Name:         input.Name,
		Rating:       1000,
	}

	if err := s.store.CreateEntry(ctx, tx, &entry); err != nil {
		return uuid.Nil, err
	}

	return entry.ID, tx.Commit()
}

// StartTournament closes registration and builds the first stage: the
// qualifier rounds when configured, the main bracket otherwise.
func (s *TournamentService) StartTournament(ctx context.Context, tournamentID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return err
	}
	if tournament.Status != bracket.TournamentRegistration {
		return fmt.Errorf("tournament %s is not in registration", tournamentID)
	}

	count, err := s.store.CountMatches(ctx, tx, tournamentID.String())
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: tournament %s", engine.ErrBracketAlreadyExists, tournamentID)
	}

	entries, err := s.store.GetEntriesTx(ctx, tx, tournamentID.String())
	if err != nil {
		return err
	}

	if tournament.HasQualifier {
		matches, err := engine.BuildQualifierRounds(tournament, entries)
		if err != nil {
			return err
		}
		if err := s.store.CreateMatches(ctx, tx, matches); err != nil {
			return err
		}
	} else {
		if err := s.buildMainBracket(ctx, tx, tournament, entries); err != nil {
			return err
		}
	}

	if err := s.store.UpdateTournamentStatusTx(ctx, tx, tournamentID.String(), bracket.TournamentInProgress); err != nil {
		return err
	}
	return tx.Commit()
}

// CompleteQualifier promotes the qualified entries and builds the main
// bracket. Every qualifier match must be finished first.
func (s *TournamentService) CompleteQualifier(ctx context.Context, tournamentID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return err
	}
	if !tournament.HasQualifier {
		return fmt.Errorf("tournament %s has no qualifier stage", tournamentID)
	}

	qualifierMatches, err := s.store.GetMatchesTx(ctx, tx, tournamentID.String(), bracket.StageQualifier)
	if err != nil {
		return err
	}
	for _, m := range qualifierMatches {
		if !m.Completed() {
			return fmt.Errorf("qualifier match %s is still open", m.ID)
		}
	}

	mainMatches, err := s.store.GetMatchesTx(ctx, tx, tournamentID.String(), bracket.StageMain)
	if err != nil {
		return err
	}
	if len(mainMatches) > 0 {
		return fmt.Errorf("%w: tournament %s", engine.ErrBracketAlreadyExists, tournamentID)
	}

	entries, err := s.store.GetEntriesTx(ctx, tx, tournamentID.String())
	if err != nil {
		return err
	}

	promoted, err := engine.PromoteQualified(tournament, entries)
	if err != nil {
		return err
	}

	if err := s.buildMainBracket(ctx, tx, tournament, promoted); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *TournamentService) buildMainBracket(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament, entries []bracket.Entry) error {
	seeder := engine.NewSeeder(rand.New(rand.NewSource(time.Now().UnixNano())))
	seeded, slots, err := seeder.Seed(entries, tournament.SeedingMethod)
	if err != nil {
		return err
	}

	for i := range seeded {
		if err := s.store.UpdateEntryTx(ctx, tx, &seeded[i]); err != nil {
			return err
		}
	}

	matches, err := engine.NewBuilder().Build(tournament, slots, nil)
	if err != nil {
		return err
	}
	return s.store.CreateMatches(ctx, tx, matches)
}

// RevertToRegistration reopens a tournament: all bracket data is wiped
// and entries keep only their registration.
func (s *TournamentService) RevertToRegistration(ctx context.Context, tournamentID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID.String())
	if err != nil {
		return err
	}
	if tournament.Status == bracket.TournamentCancelled {
		return fmt.Errorf("tournament %s is cancelled", tournamentID)
	}

	if err := s.store.ClearBracketTx(ctx, tx, tournamentID.String()); err != nil {
		return err
	}
	if err := s.store.UpdateTournamentStatusTx(ctx, tx, tournamentID.String(), bracket.TournamentRegistration); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *TournamentService) CancelTournament(ctx context.Context, tournamentID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.store.UpdateTournamentStatusTx(ctx, tx, tournamentID.String(), bracket.TournamentCancelled); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *TournamentService) DeleteTournament(ctx context.Context, tournamentID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.store.DeleteTournament(ctx, tx, tournamentID.String()); err != nil {
		return err
	}
	return tx.Commit()
}
