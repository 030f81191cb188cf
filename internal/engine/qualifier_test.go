package engine

import (
	"testing"
	"time"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qualifierTournament(rounds, minPoints, maxTeams int) *bracket.Tournament {
	return &bracket.Tournament{
		ID:                 uuid.New(),
		Name:               "Qualifier Test",
		Status:             bracket.TournamentInProgress,
		MaxTeams:           maxTeams,
		HasQualifier:       true,
		QualifierMatches:   rounds,
		QualifierMinPoints: minPoints,
	}
}

func TestBuildQualifierRounds(t *testing.T) {
	tournament := qualifierTournament(3, 0, 8)
	entries := makeEntries(4)

	matches, err := BuildQualifierRounds(tournament, entries)
	require.NoError(t, err)

	// 4 entries, 3 rounds, 2 pairings per round.
	require.Len(t, matches, 6)

	played := make(map[uuid.UUID]int)
	seen := make(map[[2]uuid.UUID]bool)
	for _, m := range matches {
		assert.Equal(t, bracket.StageQualifier, m.Stage)
		assert.Equal(t, bracket.MatchPending, m.Status)
		require.NotNil(t, m.HomeEntryID)
		require.NotNil(t, m.AwayEntryID)

		played[*m.HomeEntryID]++
		played[*m.AwayEntryID]++

		pair := [2]uuid.UUID{*m.HomeEntryID, *m.AwayEntryID}
		if pair[1].String() < pair[0].String() {
			pair[0], pair[1] = pair[1], pair[0]
		}
		assert.False(t, seen[pair], "round robin never repeats a pairing")
		seen[pair] = true
	}

	for id, count := range played {
		assert.Equal(t, 3, count, "entry %s plays once per round", id)
	}
}

func TestBuildQualifierRoundsOddField(t *testing.T) {
	tournament := qualifierTournament(2, 0, 8)
	entries := makeEntries(5)

	matches, err := BuildQualifierRounds(tournament, entries)
	require.NoError(t, err)

	// One entry sits out each round: 2 pairings per round.
	assert.Len(t, matches, 4)
}

func TestBuildQualifierRoundsClampsToFieldSize(t *testing.T) {
	// 4 entries support at most 3 distinct round-robin rounds.
	tournament := qualifierTournament(10, 0, 8)
	matches, err := BuildQualifierRounds(tournament, makeEntries(4))
	require.NoError(t, err)
	assert.Len(t, matches, 6)
}

func TestApplyQualifierResult(t *testing.T) {
	tournament := qualifierTournament(1, 0, 8)
	entries := makeEntries(2)
	matches, err := BuildQualifierRounds(tournament, entries)
	require.NoError(t, err)
	m := &matches[0]

	home, away := &entries[0], &entries[1]
	require.NoError(t, ApplyQualifierResult(m, home, away, 2, 1))

	assert.Equal(t, bracket.MatchFinished, m.Status)
	assert.Equal(t, home.ID, *m.WinnerID)
	assert.Equal(t, 3, home.QualifierPoints)
	assert.Equal(t, 0, away.QualifierPoints)
	assert.Equal(t, 1, home.MatchesPlayed)
	assert.Equal(t, 1, away.MatchesPlayed)

	assert.ErrorIs(t, ApplyQualifierResult(m, home, away, 2, 1), ErrAlreadyCompleted)
}

func TestApplyQualifierResultDraw(t *testing.T) {
	tournament := qualifierTournament(1, 0, 8)
	entries := makeEntries(2)
	matches, err := BuildQualifierRounds(tournament, entries)
	require.NoError(t, err)

	home, away := &entries[0], &entries[1]
	require.NoError(t, ApplyQualifierResult(&matches[0], home, away, 1, 1))

	assert.Nil(t, matches[0].WinnerID)
	assert.Equal(t, 1, home.QualifierPoints)
	assert.Equal(t, 1, away.QualifierPoints)
}

func TestPromoteQualified(t *testing.T) {
	tournament := qualifierTournament(3, 4, 2)

	// Input arrives in registration order. Timestamps are second-granular
	// and identical here; they must not influence the tie-break.
	entries := makeEntries(4)
	for i := range entries {
		entries[i].CreatedAt = time.Unix(100, 0)
	}
	entries[0].QualifierPoints = 6
	entries[1].QualifierPoints = 9
	entries[2].QualifierPoints = 6
	entries[3].QualifierPoints = 3

	promoted, err := PromoteQualified(tournament, entries)
	require.NoError(t, err)

	// Threshold drops entry 4; MaxTeams=2 keeps the top two, with the
	// earlier registration winning the 6-point tie.
	require.Len(t, promoted, 2)
	assert.Equal(t, entries[1].ID, promoted[0].ID)
	assert.Equal(t, entries[0].ID, promoted[1].ID)
}

func TestPromoteQualifiedTooFew(t *testing.T) {
	tournament := qualifierTournament(3, 100, 8)
	_, err := PromoteQualified(tournament, makeEntries(4))
	assert.ErrorIs(t, err, ErrInvalidEntryCount)
}
