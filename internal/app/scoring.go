package app

import (
	"math"
	"time"
)

// Scorer maps an answer to points. A correct answer earns Base plus up to
// MaxBonus, scaled linearly by the share of time left on the clock.
type Scorer struct {
	Base     int
	MaxBonus int
}

// DefaultScorer awards 50 to 100 points per correct answer.
func DefaultScorer() Scorer {
	return Scorer{Base: 50, MaxBonus: 50}
}

// Score is pure: identical inputs always produce the same points.
func (s Scorer) Score(remaining, limit time.Duration, correct bool) int {
	if !correct {
		return 0
	}
	ratio := 0.0
	if limit > 0 {
		ratio = float64(remaining) / float64(limit)
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return s.Base + int(math.Round(float64(s.MaxBonus)*ratio))
}
