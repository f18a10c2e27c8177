// Package review serves due questions and records review outcomes.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/knolcards/internal/domain"
	"github.com/conorfennell/knolcards/internal/storage"
	"github.com/go-playground/validator/v10"
)

// ErrReviewNotFound is returned when a score references an unknown review.
var ErrReviewNotFound = errors.New("review not found")

// Store is the persistence the engine needs.
type Store interface {
	DueReviews(ctx context.Context, now int64) ([]domain.DueQuestion, error)
	ListReviews(ctx context.Context) ([]domain.ReviewOverview, error)
	UpdateReviewSchedule(ctx context.Context, id, cardID string, lastReview, nextReview int64) error
	InsertScore(ctx context.Context, s *domain.Score) error
	ScoresByCardID(ctx context.Context, cardID string) ([]domain.Score, error)
}

// ScoreRequest is a review outcome as submitted by a client. The client
// computes the schedule; the engine stores it as given. Every field must be
// present; a zero value is only accepted when it was sent.
type ScoreRequest struct {
	ID         string `json:"id" validate:"required"`
	CardID     string `json:"cardId" validate:"required"`
	LastReview *int64 `json:"lastReview" validate:"required"`
	NextReview *int64 `json:"nextReview" validate:"required"`
	ScoreValue *bool  `json:"scoreValue" validate:"required"`
	Difficulty *int   `json:"difficulty" validate:"required"`
}

// NewScoreRequest builds a complete request.
func NewScoreRequest(id, cardID string, lastReview, nextReview int64, correct bool, difficulty int) ScoreRequest {
	return ScoreRequest{
		ID:         id,
		CardID:     cardID,
		LastReview: &lastReview,
		NextReview: &nextReview,
		ScoreValue: &correct,
		Difficulty: &difficulty,
	}
}

// InputError wraps a request that failed validation.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid score request: %v", e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ScoreError is returned when the score could not be appended. The review
// schedule was already updated and is left as is.
type ScoreError struct {
	ReviewID      string
	ReviewUpdated bool
	Err           error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("failed to record score for review %s (schedule updated: %t): %v", e.ReviewID, e.ReviewUpdated, e.Err)
}

func (e *ScoreError) Unwrap() error {
	return e.Err
}

// Engine reads and updates review state.
type Engine struct {
	store    Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewEngine creates a review engine.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ListDue returns the questions whose next review is strictly before now.
func (e *Engine) ListDue(ctx context.Context, now time.Time) ([]domain.DueQuestion, error) {
	due, err := e.store.DueReviews(ctx, now.Unix())
	if err != nil {
		return nil, err
	}
	if due == nil {
		due = []domain.DueQuestion{}
	}
	e.logger.Debug("Listed due questions", "now", now.Unix(), "count", len(due))
	return due, nil
}

// RecordScore stores the schedule computed by the client and appends a score
// for the card. The review must belong to the card; otherwise nothing is
// written and ErrReviewNotFound is returned.
func (e *Engine) RecordScore(ctx context.Context, req ScoreRequest) error {
	if err := e.validate.Struct(req); err != nil {
		return &InputError{Err: err}
	}

	if err := e.store.UpdateReviewSchedule(ctx, req.ID, req.CardID, *req.LastReview, *req.NextReview); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s for card %s", ErrReviewNotFound, req.ID, req.CardID)
		}
		return err
	}

	score := domain.Score{
		CardID:     req.CardID,
		Correct:    *req.ScoreValue,
		Difficulty: *req.Difficulty,
	}
	if err := e.store.InsertScore(ctx, &score); err != nil {
		e.logger.Error("Score not recorded after schedule update",
			"review_id", req.ID,
			"card_id", req.CardID,
			"error", err,
		)
		return &ScoreError{ReviewID: req.ID, ReviewUpdated: true, Err: err}
	}

	e.logger.Info("Score recorded",
		"review_id", req.ID,
		"card_id", req.CardID,
		"correct", score.Correct,
		"difficulty", score.Difficulty,
		"next_review", *req.NextReview,
	)
	return nil
}

// Overview lists every review with its note name and question.
func (e *Engine) Overview(ctx context.Context) ([]domain.ReviewOverview, error) {
	reviews, err := e.store.ListReviews(ctx)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []domain.ReviewOverview{}
	}
	return reviews, nil
}

// History returns the scores of a card, oldest first.
func (e *Engine) History(ctx context.Context, cardID string) ([]domain.Score, error) {
	scores, err := e.store.ScoresByCardID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if scores == nil {
		scores = []domain.Score{}
	}
	return scores, nil
}
