package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateRatingsEqualOpponents(t *testing.T) {
	u := UpdateRatings(1000, 1000, 32)

	// Expected score is 0.5, so the winner takes half the K-factor.
	assert.Equal(t, 16, u.Delta)
	assert.Equal(t, 1016, u.WinnerRating)
	assert.Equal(t, 984, u.LoserRating)
}

func TestUpdateRatingsConservation(t *testing.T) {
	testCases := []struct {
		winner, loser, k int
	}{
		{1000, 1000, 32},
		{1200, 800, 32},
		{800, 1200, 32},
		{1500, 1500, 24},
		{1000, 1399, 40},
	}

	for _, tc := range testCases {
		u := UpdateRatings(tc.winner, tc.loser, tc.k)
		gain := u.WinnerRating - tc.winner
		loss := tc.loser - u.LoserRating
		assert.Equal(t, gain, loss, "deltas must cancel for %+v", tc)
		assert.Equal(t, u.Delta, gain)
		assert.GreaterOrEqual(t, u.Delta, 0)
		assert.LessOrEqual(t, u.Delta, tc.k)
	}
}

func TestUpdateRatingsUpsetPaysMore(t *testing.T) {
	expectedWin := UpdateRatings(1200, 800, 32)
	upset := UpdateRatings(800, 1200, 32)

	assert.Greater(t, upset.Delta, expectedWin.Delta)
}

func TestReverseRating(t *testing.T) {
	u := UpdateRatings(1000, 1000, 32)
	assert.Equal(t, 1000, ReverseRating(u.WinnerRating, u.Delta))
	assert.Equal(t, 1000, ReverseRating(u.LoserRating, -u.Delta))
}
