package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/jmoiron/sqlx"
)

// ErrStaleWrite is returned when a guarded update matched no rows: the
// row was already completed or the slot already taken by a concurrent
// writer.
var ErrStaleWrite = errors.New("guarded update matched no rows")

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, owner_id, name, status, max_teams, team_size, seeding_method, has_qualifier, qualifier_matches, qualifier_min_points, require_rank)
        VALUES (:id, :owner_id, :name, :status, :max_teams, :team_size, :seeding_method, :has_qualifier, :qualifier_matches, :qualifier_min_points, :require_rank)`, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id string) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := s.db.GetContext(ctx, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	return &tournament, err
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id string) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := tx.GetContext(ctx, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	return &tournament, err
}

func (s *TournamentStore) GetTournamentsByOwner(ctx context.Context, ownerID string) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments WHERE owner_id = ? ORDER BY created_at DESC", ownerID)
	return tournaments, err
}

func (s *TournamentStore) UpdateTournamentStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status bracket.TournamentStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *TournamentStore) DeleteTournament(ctx context.Context, tx *sqlx.Tx, id string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM tournaments WHERE id = ?", id)
	return err
}

func (s *TournamentStore) CreateEntry(ctx context.Context, tx *sqlx.Tx, entry *bracket.Entry) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO entries (id, tournament_id, user_id, name, seed, rating, qualifier_points, matches_played)
        VALUES (:id, :tournament_id, :user_id, :name, :seed, :rating, :qualifier_points, :matches_played)`, entry)
	return err
}

func (s *TournamentStore) CreateEntries(ctx context.Context, tx *sqlx.Tx, entries []bracket.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO entries (id, tournament_id, user_id, name, seed, rating, qualifier_points, matches_played)
        VALUES (:id, :tournament_id, :user_id, :name, :seed, :rating, :qualifier_points, :matches_played)`, entries)
	return err
}

// Entries come back in registration order. rowid is monotonic per
// insert; created_at only has second granularity and ties.
func (s *TournamentStore) GetEntries(ctx context.Context, tournamentID string) ([]bracket.Entry, error) {
	var entries []bracket.Entry
	err := s.db.SelectContext(ctx, &entries, "SELECT * FROM entries WHERE tournament_id = ? ORDER BY rowid ASC", tournamentID)
	return entries, err
}

func (s *TournamentStore) GetEntriesTx(ctx context.Context, tx *sqlx.Tx, tournamentID string) ([]bracket.Entry, error) {
	var entries []bracket.Entry
	err := tx.SelectContext(ctx, &entries, "SELECT * FROM entries WHERE tournament_id = ? ORDER BY rowid ASC", tournamentID)
	return entries, err
}

func (s *TournamentStore) GetEntry(ctx context.Context, id string) (*bracket.Entry, error) {
	var entry bracket.Entry
	err := s.db.GetContext(ctx, &entry, "SELECT * FROM entries WHERE id = ?", id)
	return &entry, err
}

func (s *TournamentStore) GetEntryTx(ctx context.Context, tx *sqlx.Tx, id string) (*bracket.Entry, error) {
	var entry bracket.Entry
	err := tx.GetContext(ctx, &entry, "SELECT * FROM entries WHERE id = ?", id)
	return &entry, err
}

func (s *TournamentStore) CountEntries(ctx context.Context, tx *sqlx.Tx, tournamentID string) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM entries WHERE tournament_id = ?", tournamentID)
	return count, err
}

func (s *TournamentStore) UpdateEntryTx(ctx context.Context, tx *sqlx.Tx, entry *bracket.Entry) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE entries SET
        seed = :seed, rating = :rating, qualifier_points = :qualifier_points, matches_played = :matches_played
        WHERE id = :id`, entry)
	return err
}

func (s *TournamentStore) UpdateEntryRatingTx(ctx context.Context, tx *sqlx.Tx, entryID string, rating int) error {
	_, err := tx.ExecContext(ctx, "UPDATE entries SET rating = ? WHERE id = ?", rating, entryID)
	return err
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, stage, round, position, home_entry_id, away_entry_id, home_score, away_score, winner_id, status, is_bye)
        VALUES (:id, :tournament_id, :stage, :round, :position, :home_entry_id, :away_entry_id, :home_score, :away_score, :winner_id, :status, :is_bye)`, matches)
	return err
}

func (s *TournamentStore) GetMatches(ctx context.Context, tournamentID string) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY stage DESC, round ASC, position ASC", tournamentID)
	return matches, err
}

func (s *TournamentStore) GetMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID string, stage bracket.Stage) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := tx.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? AND stage = ? ORDER BY round ASC, position ASC", tournamentID, stage)
	return matches, err
}

func (s *TournamentStore) GetMatch(ctx context.Context, id string) (*bracket.Match, error) {
	var match bracket.Match
	err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	return &match, err
}

func (s *TournamentStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id string) (*bracket.Match, error) {
	var match bracket.Match
	err := tx.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	return &match, err
}

func (s *TournamentStore) GetMatchByCoordsTx(ctx context.Context, tx *sqlx.Tx, tournamentID string, stage bracket.Stage, round, position int) (*bracket.Match, error) {
	var match bracket.Match
	err := tx.GetContext(ctx, &match, "SELECT * FROM matches WHERE tournament_id = ? AND stage = ? AND round = ? AND position = ?", tournamentID, stage, round, position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &match, err
}

func (s *TournamentStore) CountMatches(ctx context.Context, tx *sqlx.Tx, tournamentID string) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM matches WHERE tournament_id = ?", tournamentID)
	return count, err
}

// CompleteMatchTx stores the result with a status compare-and-set so two
// concurrent submissions cannot both complete the same match; the loser
// of the race gets ErrStaleWrite.
func (s *TournamentStore) CompleteMatchTx(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	res, err := tx.NamedExecContext(ctx, `UPDATE matches SET
        home_score = :home_score, away_score = :away_score, winner_id = :winner_id, status = :status
        WHERE id = :id AND status != 'finished'`, match)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetHomeSlotTx writes the propagated winner into the next round's home
// slot only if it is still empty, so sibling completions cannot race on
// the shared round+1 row.
func (s *TournamentStore) SetHomeSlotTx(ctx context.Context, tx *sqlx.Tx, matchID, entryID string) error {
	res, err := tx.ExecContext(ctx, "UPDATE matches SET home_entry_id = ? WHERE id = ? AND home_entry_id IS NULL", entryID, matchID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *TournamentStore) SetAwaySlotTx(ctx context.Context, tx *sqlx.Tx, matchID, entryID string) error {
	res, err := tx.ExecContext(ctx, "UPDATE matches SET away_entry_id = ? WHERE id = ? AND away_entry_id IS NULL", entryID, matchID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateMatchTx rewrites every mutable column; reset cascades use it to
// clear scores, winner and vacated slots in one statement.
func (s *TournamentStore) UpdateMatchTx(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE matches SET
        home_entry_id = :home_entry_id, away_entry_id = :away_entry_id,
        home_score = :home_score, away_score = :away_score,
        winner_id = :winner_id, status = :status, is_bye = :is_bye
        WHERE id = :id`, match)
	return err
}

// ClearBracketTx wipes all bracket data for a tournament: matches go
// away and entries lose their seeds and qualifier counters.
func (s *TournamentStore) ClearBracketTx(ctx context.Context, tx *sqlx.Tx, tournamentID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "UPDATE entries SET seed = NULL, qualifier_points = 0, matches_played = 0 WHERE tournament_id = ?", tournamentID)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleWrite
	}
	return nil
}
