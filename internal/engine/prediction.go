package engine

import (
	"fmt"
	"time"

	"github.com/arena-gg/tourney/internal/bracket"
)

// Prediction point values: an exact scoreline beats a winner-only call.
const (
	ExactScorePoints    = 10
	CorrectWinnerPoints = 3
)

// ScorePredictions evaluates predictions against a completed match and
// returns them with Points/IsCorrect overwritten. Re-running on the same
// match yields the same output; nothing accumulates. Bye matches have no
// scorable outcome.
func ScorePredictions(predictions []bracket.Prediction, match *bracket.Match, now time.Time) ([]bracket.Prediction, error) {
	if !match.Completed() {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotCompleted, match.ID)
	}
	if match.IsBye {
		return nil, fmt.Errorf("%w: %s", ErrByeMatch, match.ID)
	}

	scored := make([]bracket.Prediction, len(predictions))
	for i, p := range predictions {
		p.Points = 0
		p.IsCorrect = false

		switch {
		case exactScore(&p, match):
			p.Points = ExactScorePoints
			p.IsCorrect = true
		case correctWinner(&p, match):
			p.Points = CorrectWinnerPoints
			p.IsCorrect = true
		}

		t := now
		p.ScoredAt = &t
		scored[i] = p
	}

	return scored, nil
}

func exactScore(p *bracket.Prediction, m *bracket.Match) bool {
	if p.PredictedHomeScore == nil || p.PredictedAwayScore == nil {
		return false
	}
	if m.HomeScore == nil || m.AwayScore == nil {
		return false
	}
	return *p.PredictedHomeScore == *m.HomeScore && *p.PredictedAwayScore == *m.AwayScore
}

func correctWinner(p *bracket.Prediction, m *bracket.Match) bool {
	if p.PredictedWinnerID == nil || m.WinnerID == nil {
		return false
	}
	return *p.PredictedWinnerID == *m.WinnerID
}
