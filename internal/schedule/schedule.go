// Package schedule computes when a reviewed card should come up again. It is
// used by review clients before they submit a score; the server stores the
// result as given.
package schedule

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Rating is the user's response to a card review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// Difficulty bounds as submitted with a score.
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// RatingFor maps a score to a rating. An incorrect answer is Again; a correct
// one is Hard, Good or Easy depending on the reported difficulty.
func RatingFor(correct bool, difficulty int) Rating {
	switch {
	case !correct:
		return Again
	case difficulty >= 7:
		return Hard
	case difficulty <= 2:
		return Easy
	default:
		return Good
	}
}

// Params holds the parameters of the stability formula.
type Params struct {
	A                float64 // scales the overall memory increase
	B                float64 // difficulty exponent
	C                float64 // stability exponent
	D                float64 // retention effect scaler
	DesiredRetention float64 // e.g. 0.9 for 90%
	EasyBonus        float64 // multiplies stability after an Easy rating
}

// DefaultParams returns the parameters used by the CLI.
func DefaultParams() *Params {
	return &Params{
		A:                0.2,
		B:                0.5,
		C:                0.1,
		D:                4.0,
		DesiredRetention: 0.9,
		EasyBonus:        1.3,
	}
}

// CardState is the memory state of a card, in days of stability.
type CardState struct {
	Stability  float64
	Difficulty float64
}

// StateOf derives the state of a review from its current schedule: the
// stability is the interval it was last scheduled with.
func StateOf(lastReview *int64, nextReview int64, difficulty int) CardState {
	var stability float64
	if lastReview != nil && nextReview > *lastReview {
		stability = float64(nextReview-*lastReview) / day.Seconds()
	}
	return CardState{Stability: stability, Difficulty: clampDifficulty(float64(difficulty))}
}

// NextState calculates the next stability and difficulty for a rating.
func (p *Params) NextState(current CardState, rating Rating) CardState {
	if rating == Again {
		return CardState{
			Stability:  1,
			Difficulty: clampDifficulty(current.Difficulty + 0.5),
		}
	}

	stability := p.newStability(current.Stability, current.Difficulty)
	difficulty := current.Difficulty
	switch rating {
	case Hard:
		difficulty = clampDifficulty(difficulty + 0.1)
	case Easy:
		stability *= p.EasyBonus
	}
	return CardState{Stability: stability, Difficulty: difficulty}
}

// newStability applies the stability formula for a successful review:
// S' = S * (1 + a * D^(-b) * S^c * (e^(d * (1-R)) - 1))
func (p *Params) newStability(stability, difficulty float64) float64 {
	if stability < 1 {
		stability = 1
	}
	if difficulty < 1 {
		difficulty = 1
	}

	factor := p.A * math.Pow(difficulty, -p.B) * math.Pow(stability, p.C)
	multiplier := math.Exp(p.D*(1-p.DesiredRetention)) - 1
	return stability * (1 + factor*multiplier)
}

// NextDue returns the time a card with the given stability is due again,
// rounded to whole days and never sooner than one day.
func NextDue(now time.Time, stability float64) time.Time {
	days := math.Max(1, math.Round(stability))
	return now.Add(time.Duration(days) * day)
}

// Plan is a computed schedule ready to be submitted with a score.
type Plan struct {
	Rating     Rating
	LastReview int64
	NextReview int64
}

// Next computes the schedule of a review answered at now.
func (p *Params) Next(now time.Time, lastReview *int64, nextReview int64, correct bool, difficulty int) Plan {
	rating := RatingFor(correct, difficulty)
	state := p.NextState(StateOf(lastReview, nextReview, difficulty), rating)
	return Plan{
		Rating:     rating,
		LastReview: now.Unix(),
		NextReview: NextDue(now, state.Stability).Unix(),
	}
}

func clampDifficulty(d float64) float64 {
	return math.Max(MinDifficulty, math.Min(MaxDifficulty, d))
}
