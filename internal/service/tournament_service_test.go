package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/arena-gg/tourney/internal/engine"
	"github.com/arena-gg/tourney/internal/middleware"
	"github.com/arena-gg/tourney/internal/store"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

func adminContext() context.Context {
	ctx := context.Background()
	return context.WithValue(ctx, middleware.UserIDKey, uuid.MustParse(middleware.SuperUserID))
}

// registerEntries creates a registration-open tournament with n entries.
func registerEntries(t *testing.T, ctx context.Context, s *TournamentService, input TournamentInput, n int) uuid.UUID {
	t.Helper()

	tournamentID, err := s.CreateTournament(ctx, input)
	require.NoError(t, err)
	require.NoError(t, s.OpenRegistration(ctx, tournamentID))

	for i := 0; i < n; i++ {
		_, err := s.RegisterEntry(ctx, tournamentID, EntryInput{Name: fmt.Sprintf("Entry %d", i+1)})
		require.NoError(t, err)
	}
	return tournamentID
}

func TestStartTournamentBuildsBracket(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tournamentStore := store.NewTournamentStore(db)
	tournamentService := NewTournamentService(db, tournamentStore)
	ctx := adminContext()

	testCases := []struct {
		name           string
		entries        int
		expectedCount  int
		expectedRounds int
	}{
		{"4 entries", 4, 3, 2},
		{"5 entries rounds up to 8 slots", 5, 7, 3},
		{"8 entries", 8, 7, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id := registerEntries(t, ctx, tournamentService, TournamentInput{
				Name:          "Bracket " + tc.name,
				MaxTeams:      16,
				SeedingMethod: bracket.SeedStandard,
			}, tc.entries)

			require.NoError(t, tournamentService.StartTournament(ctx, id))

			tournament, err := tournamentStore.GetTournament(ctx, id.String())
			require.NoError(t, err)
			assert.Equal(t, bracket.TournamentInProgress, tournament.Status)

			matches, err := tournamentStore.GetMatches(ctx, id.String())
			require.NoError(t, err)
			assert.Len(t, matches, tc.expectedCount)

			maxRound := 0
			for _, m := range matches {
				if m.Round > maxRound {
					maxRound = m.Round
				}
			}
			assert.Equal(t, tc.expectedRounds, maxRound)

			entries, err := tournamentStore.GetEntries(ctx, id.String())
			require.NoError(t, err)
			for _, e := range entries {
				require.NotNil(t, e.Seed, "every entry gets a seed at start")
			}
		})
	}
}

func TestStartTournamentRefusesRebuild(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tournamentService := NewTournamentService(db, store.NewTournamentStore(db))
	ctx := adminContext()

	id := registerEntries(t, ctx, tournamentService, TournamentInput{
		Name: "Rebuild", MaxTeams: 8, SeedingMethod: bracket.SeedStandard,
	}, 4)
	require.NoError(t, tournamentService.StartTournament(ctx, id))

	err := tournamentService.StartTournament(ctx, id)
	assert.Error(t, err, "second start must fail, registration is closed")
}

func TestRegisterEntryCapacity(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tournamentService := NewTournamentService(db, store.NewTournamentStore(db))
	ctx := adminContext()

	id := registerEntries(t, ctx, tournamentService, TournamentInput{
		Name: "Full House", MaxTeams: 2, SeedingMethod: bracket.SeedStandard,
	}, 2)

	_, err := tournamentService.RegisterEntry(ctx, id, EntryInput{Name: "One Too Many"})
	assert.ErrorContains(t, err, "full")
}

func TestRegisterEntryRequiresOpenRegistration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tournamentService := NewTournamentService(db, store.NewTournamentStore(db))
	ctx := adminContext()

	id, err := tournamentService.CreateTournament(ctx, TournamentInput{
		Name: "Draft Only", MaxTeams: 8, SeedingMethod: bracket.SeedStandard,
	})
	require.NoError(t, err)

	_, err = tournamentService.RegisterEntry(ctx, id, EntryInput{Name: "Early Bird"})
	assert.ErrorContains(t, err, "not accepting registrations")
}

func TestRegisterEntryRequireRank(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tournamentService := NewTournamentService(db, store.NewTournamentStore(db))
	ctx := adminContext()

	id, err := tournamentService.CreateTournament(ctx, TournamentInput{
		Name: "Ranked Only", MaxTeams: 8, SeedingMethod: bracket.SeedStandard, RequireRank: true,
	})
	require.NoError(t, err)
	require.NoError(t, tournamentService.OpenRegistration(ctx, id))

	_, err = tournamentService.RegisterEntry(ctx, id, EntryInput{Name: "Anonymous"})
	assert.ErrorContains(t, err, "ranked account")
}

func TestRevertToRegistrationWipesBracket(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tournamentStore := store.NewTournamentStore(db)
	tournamentService := NewTournamentService(db, tournamentStore)
	ctx := adminContext()

	id := registerEntries(t, ctx, tournamentService, TournamentInput{
		Name: "Revert", MaxTeams: 8, SeedingMethod: bracket.SeedStandard,
	}, 4)
	require.NoError(t, tournamentService.StartTournament(ctx, id))

	require.NoError(t, tournamentService.RevertToRegistration(ctx, id))

	tournament, err := tournamentStore.GetTournament(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentRegistration, tournament.Status)

	matches, err := tournamentStore.GetMatches(ctx, id.String())
	require.NoError(t, err)
	assert.Empty(t, matches)

	entries, err := tournamentStore.GetEntries(ctx, id.String())
	require.NoError(t, err)
	for _, e := range entries {
		assert.Nil(t, e.Seed, "seeds cleared on revert")
		assert.Zero(t, e.QualifierPoints)
	}

	// And the tournament can start again afterwards.
	require.NoError(t, tournamentService.StartTournament(ctx, id))
}

func TestQualifierFlow(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tournamentStore := store.NewTournamentStore(db)
	tournamentService := NewTournamentService(db, tournamentStore)
	matchService := newTestMatchService(db, tournamentStore)
	ctx := adminContext()

	id := registerEntries(t, ctx, tournamentService, TournamentInput{
		Name:               "Open Qualifier",
		MaxTeams:           4,
		SeedingMethod:      bracket.SeedStandard,
		HasQualifier:       true,
		QualifierMatches:   1,
		QualifierMinPoints: 3,
	}, 6)
	require.NoError(t, tournamentService.StartTournament(ctx, id))

	matches, err := tournamentStore.GetMatches(ctx, id.String())
	require.NoError(t, err)
	require.Len(t, matches, 3, "6 entries, 1 qualifier round")
	for _, m := range matches {
		assert.Equal(t, bracket.StageQualifier, m.Stage)
	}

	// Promotion blocked while qualifier matches are open.
	err = tournamentService.CompleteQualifier(ctx, id)
	assert.ErrorContains(t, err, "still open")

	for _, m := range matches {
		_, err := matchService.RecordQualifierResult(ctx, m.ID, 2, 0)
		require.NoError(t, err)
	}

	require.NoError(t, tournamentService.CompleteQualifier(ctx, id))

	// Three winners cleared the 3-point bar; the main bracket pads to 4
	// slots with one bye.
	mainMatches := 0
	all, err := tournamentStore.GetMatches(ctx, id.String())
	require.NoError(t, err)
	for _, m := range all {
		if m.Stage == bracket.StageMain {
			mainMatches++
		}
	}
	assert.Equal(t, 3, mainMatches)

	entries, err := tournamentStore.GetEntries(ctx, id.String())
	require.NoError(t, err)
	promoted := 0
	for _, e := range entries {
		if e.Seed != nil {
			promoted++
			assert.GreaterOrEqual(t, e.QualifierPoints, 3)
		}
	}
	assert.Equal(t, 3, promoted, "only qualified entries are seeded")
}

func TestQualifierPromotionThreshold(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tournamentService := NewTournamentService(db, store.NewTournamentStore(db))
	ctx := adminContext()

	id := registerEntries(t, ctx, tournamentService, TournamentInput{
		Name:               "Too Strict",
		MaxTeams:           4,
		HasQualifier:       true,
		QualifierMatches:   1,
		QualifierMinPoints: 50,
	}, 4)
	require.NoError(t, tournamentService.StartTournament(ctx, id))

	tournamentStore := store.NewTournamentStore(db)
	matchService := newTestMatchService(db, tournamentStore)
	matches, err := tournamentStore.GetMatches(ctx, id.String())
	require.NoError(t, err)
	for _, m := range matches {
		_, err := matchService.RecordQualifierResult(ctx, m.ID, 1, 0)
		require.NoError(t, err)
	}

	err = tournamentService.CompleteQualifier(ctx, id)
	assert.ErrorIs(t, err, engine.ErrInvalidEntryCount, "nobody reached the bar")
}
