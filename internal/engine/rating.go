package engine

import "math"

// RatingUpdate is one match's worth of ELO movement. The winner gains
// Delta, the loser loses it, so the pair always sums to zero.
type RatingUpdate struct {
	WinnerRating int
	LoserRating  int
	Delta        int
}

// UpdateRatings applies the ELO expected-score formula. The K-factor is
// caller-supplied configuration, never package state, and the update is
// applied exactly once per completed non-bye match (the persistence layer
// guards against re-application with a status compare-and-set).
func UpdateRatings(winnerRating, loserRating, kFactor int) RatingUpdate {
	expected := 1.0 / (1.0 + math.Pow(10, float64(loserRating-winnerRating)/400.0))
	delta := int(math.Round(float64(kFactor) * (1.0 - expected)))

	return RatingUpdate{
		WinnerRating: winnerRating + delta,
		LoserRating:  loserRating - delta,
		Delta:        delta,
	}
}

// ReverseRating undoes a previously applied update, for match resets.
func ReverseRating(current, delta int) int {
	return current - delta
}
