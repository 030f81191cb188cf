package engine

import (
	"math/rand"
	"testing"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFor(t *testing.T, n int, method bracket.SeedingMethod) (*bracket.Tournament, []bracket.Entry, []bracket.Match) {
	t.Helper()

	tournament := &bracket.Tournament{
		ID:            uuid.New(),
		Name:          "Test",
		Status:        bracket.TournamentInProgress,
		MaxTeams:      16,
		SeedingMethod: method,
	}

	seeder := NewSeeder(rand.New(rand.NewSource(1)))
	seeded, slots, err := seeder.Seed(makeEntries(n), method)
	require.NoError(t, err)

	matches, err := NewBuilder().Build(tournament, slots, nil)
	require.NoError(t, err)

	return tournament, seeded, matches
}

func findMatch(matches []bracket.Match, round, position int) *bracket.Match {
	for i := range matches {
		if matches[i].Stage == bracket.StageMain && matches[i].Round == round && matches[i].Position == position {
			return &matches[i]
		}
	}
	return nil
}

func TestBuildMatchCount(t *testing.T) {
	testCases := []struct {
		entries int
		matches int
		rounds  int
	}{
		{2, 1, 1},
		{3, 3, 2},
		{4, 3, 2},
		{5, 7, 3},
		{8, 7, 3},
		{16, 15, 4},
	}

	for _, tc := range testCases {
		_, _, matches := buildFor(t, tc.entries, bracket.SeedStandard)
		assert.Len(t, matches, tc.matches, "%d entries", tc.entries)

		maxRound := 0
		for _, m := range matches {
			if m.Round > maxRound {
				maxRound = m.Round
			}
		}
		assert.Equal(t, tc.rounds, maxRound, "%d entries", tc.entries)
	}
}

func TestBuildRound1FromSlots(t *testing.T) {
	_, entries, matches := buildFor(t, 8, bracket.SeedStandard)

	// Seed pairings (1,8), (4,5), (2,7), (3,6) by position.
	entryBySeed := func(seed int) uuid.UUID {
		for _, e := range entries {
			if *e.Seed == seed {
				return e.ID
			}
		}
		t.Fatalf("no entry with seed %d", seed)
		return uuid.Nil
	}

	expected := [][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}}
	for p, pair := range expected {
		m := findMatch(matches, 1, p)
		require.NotNil(t, m)
		assert.Equal(t, entryBySeed(pair[0]), *m.HomeEntryID)
		assert.Equal(t, entryBySeed(pair[1]), *m.AwayEntryID)
	}

	// Later rounds start empty.
	for _, m := range matches {
		if m.Round > 1 {
			assert.Nil(t, m.HomeEntryID)
			assert.Nil(t, m.AwayEntryID)
			assert.Equal(t, bracket.MatchPending, m.Status)
		}
	}
}

func TestBuildByesAutoComplete(t *testing.T) {
	// 5 entries round up to 8 slots; the three byes resolve during build.
	_, entries, matches := buildFor(t, 5, bracket.SeedStandard)

	byes := 0
	for _, m := range matches {
		if m.Round != 1 {
			continue
		}
		if m.IsBye {
			byes++
			assert.Equal(t, bracket.MatchFinished, m.Status)
			require.NotNil(t, m.WinnerID)
			assert.Nil(t, m.HomeScore, "byes carry no score")

			// Winner already sits in the round-2 slot.
			next := findMatch(matches, 2, m.NextPosition())
			require.NotNil(t, next)
			assert.True(t, next.HasEntry(*m.WinnerID))
		}
	}
	assert.Equal(t, 3, byes)

	// Seed 1 had the bye against the phantom seed 8.
	var seedOne uuid.UUID
	for _, e := range entries {
		if *e.Seed == 1 {
			seedOne = e.ID
		}
	}
	m := findMatch(matches, 1, 0)
	assert.True(t, m.IsBye)
	assert.Equal(t, seedOne, *m.WinnerID)
}

func TestBuildDoubleByeCascade(t *testing.T) {
	// Sequential placement with 5 entries leaves slots 6-8 empty: one
	// round-1 pair has no entries at all, so its round-2 parent is a
	// walkover too.
	_, entries, matches := buildFor(t, 5, bracket.SeedSequential)

	empty := findMatch(matches, 1, 3)
	require.NotNil(t, empty)
	assert.True(t, empty.IsBye)
	assert.Nil(t, empty.WinnerID)

	// Entry 5 walks through round 2 without an opponent.
	walkover := findMatch(matches, 2, 1)
	require.NotNil(t, walkover)
	assert.True(t, walkover.IsBye)
	require.NotNil(t, walkover.WinnerID)
	assert.Equal(t, entries[4].ID, *walkover.WinnerID)

	// And lands in the final.
	final := findMatch(matches, 3, 0)
	require.NotNil(t, final)
	assert.True(t, final.HasEntry(entries[4].ID))
	assert.Equal(t, bracket.MatchPending, final.Status)
}

func TestBuildRefusesExistingBracket(t *testing.T) {
	tournament, _, matches := buildFor(t, 4, bracket.SeedStandard)

	seeder := NewSeeder(rand.New(rand.NewSource(1)))
	_, slots, err := seeder.Seed(makeEntries(4), bracket.SeedStandard)
	require.NoError(t, err)

	_, err = NewBuilder().Build(tournament, slots, matches)
	assert.ErrorIs(t, err, ErrBracketAlreadyExists)
	assert.True(t, IsInvariant(err))
}
