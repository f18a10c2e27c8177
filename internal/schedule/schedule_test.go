package schedule

import (
	"math"
	"testing"
	"time"
)

func TestNewStability(t *testing.T) {
	params := DefaultParams()

	// S' = 10 * (1 + 0.2 * 5^(-0.5) * 10^0.1 * (e^0.4 - 1)) = 10.55
	expected := 10.55
	got := params.newStability(10, 5)

	if math.Abs(got-expected) > 0.01 {
		t.Errorf("Expected new stability to be around %.2f, but got %.2f", expected, got)
	}
}

func TestNextState(t *testing.T) {
	params := DefaultParams()
	initial := CardState{Stability: 10, Difficulty: 5}

	t.Run("Review with Again", func(t *testing.T) {
		state := params.NextState(initial, Again)
		if state.Stability != 1 {
			t.Errorf("Expected stability to be reset to 1, but got %.2f", state.Stability)
		}
		if state.Difficulty <= initial.Difficulty {
			t.Errorf("Expected difficulty to increase, but got %.2f", state.Difficulty)
		}
	})

	t.Run("Review with Good", func(t *testing.T) {
		state := params.NextState(initial, Good)
		if state.Stability <= initial.Stability {
			t.Errorf("Expected stability to increase, but got %.2f", state.Stability)
		}
		if state.Difficulty != initial.Difficulty {
			t.Errorf("Expected difficulty to stay at %.2f, but got %.2f", initial.Difficulty, state.Difficulty)
		}
	})

	t.Run("Review with Hard", func(t *testing.T) {
		state := params.NextState(initial, Hard)
		if state.Difficulty <= initial.Difficulty {
			t.Errorf("Expected difficulty to increase for Hard, but got %.2f", state.Difficulty)
		}
	})

	t.Run("Review with Easy", func(t *testing.T) {
		good := params.NextState(initial, Good)
		easy := params.NextState(initial, Easy)
		if easy.Stability <= good.Stability {
			t.Errorf("Expected Easy stability %.2f to exceed Good stability %.2f", easy.Stability, good.Stability)
		}
	})

	t.Run("Difficulty is capped", func(t *testing.T) {
		state := params.NextState(CardState{Stability: 3, Difficulty: MaxDifficulty}, Again)
		if state.Difficulty != MaxDifficulty {
			t.Errorf("Expected difficulty to stay at %d, but got %.2f", MaxDifficulty, state.Difficulty)
		}
	})
}

func TestRatingFor(t *testing.T) {
	testCases := []struct {
		correct    bool
		difficulty int
		want       Rating
	}{
		{false, 1, Again},
		{false, 10, Again},
		{true, 1, Easy},
		{true, 2, Easy},
		{true, 5, Good},
		{true, 7, Hard},
		{true, 10, Hard},
	}
	for _, tc := range testCases {
		if got := RatingFor(tc.correct, tc.difficulty); got != tc.want {
			t.Errorf("RatingFor(%t, %d): expected %d, but got %d", tc.correct, tc.difficulty, tc.want, got)
		}
	}
}

func TestStateOf(t *testing.T) {
	last := int64(1_000)
	state := StateOf(&last, last+int64(3*day.Seconds()), 4)
	if state.Stability != 3 {
		t.Errorf("Expected stability of 3 days, but got %.2f", state.Stability)
	}
	if state.Difficulty != 4 {
		t.Errorf("Expected difficulty 4, but got %.2f", state.Difficulty)
	}

	state = StateOf(nil, 5_000, 0)
	if state.Stability != 0 {
		t.Errorf("Expected zero stability for a card never reviewed, but got %.2f", state.Stability)
	}
	if state.Difficulty != MinDifficulty {
		t.Errorf("Expected difficulty to be clamped to %d, but got %.2f", MinDifficulty, state.Difficulty)
	}
}

func TestNextDue(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	if got, want := NextDue(now, 15.5), now.Add(16*day); !got.Equal(want) {
		t.Errorf("Expected due date %v, but got %v", want, got)
	}
	if got, want := NextDue(now, 0.2), now.Add(day); !got.Equal(want) {
		t.Errorf("Expected at least one day, but got %v", got)
	}
}

func TestNext(t *testing.T) {
	params := DefaultParams()
	now := time.Unix(1_700_000_000, 0)

	t.Run("First review answered correctly", func(t *testing.T) {
		plan := params.Next(now, nil, now.Unix(), true, 5)
		if plan.LastReview != now.Unix() {
			t.Errorf("Expected last review %d, but got %d", now.Unix(), plan.LastReview)
		}
		if plan.NextReview != now.Add(day).Unix() {
			t.Errorf("Expected next review one day out, but got %d", plan.NextReview)
		}
	})

	t.Run("Interval grows on success", func(t *testing.T) {
		last := now.Add(-10 * day).Unix()
		plan := params.Next(now, &last, now.Unix(), true, 5)
		if plan.NextReview <= now.Add(10*day).Unix() {
			t.Errorf("Expected interval longer than 10 days, but next review is %d", plan.NextReview)
		}
	})

	t.Run("Failure resets to one day", func(t *testing.T) {
		last := now.Add(-10 * day).Unix()
		plan := params.Next(now, &last, now.Unix(), false, 5)
		if plan.Rating != Again {
			t.Errorf("Expected rating Again, but got %d", plan.Rating)
		}
		if plan.NextReview != now.Add(day).Unix() {
			t.Errorf("Expected next review one day out, but got %d", plan.NextReview)
		}
	})
}
