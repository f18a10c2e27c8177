package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/knolcards/internal/domain"
	"github.com/google/uuid"
)

// DueReviews retrieves reviews whose next_review is strictly before now,
// joined with their card and note.
func (db *DB) DueReviews(ctx context.Context, now int64) ([]domain.DueQuestion, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.id, c.id, n.name, c.front, c.options, c.back, r.last_review
		FROM review r
		JOIN card c ON c.id = r.card_id
		JOIN note n ON n.id = c.note_id
		WHERE r.next_review < ?
		ORDER BY r.next_review, r.id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due reviews: %w", err)
	}
	defer rows.Close()

	var due []domain.DueQuestion
	for rows.Next() {
		var (
			q    domain.DueQuestion
			last sql.NullInt64
		)
		if err := rows.Scan(
			&q.ID,
			&q.CardID,
			&q.NoteName,
			&q.Question,
			&q.Options,
			&q.Answer,
			&last,
		); err != nil {
			return nil, fmt.Errorf("failed to scan due review row: %w", err)
		}
		q.LastReview = nullableInt(last)
		due = append(due, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due review rows: %w", err)
	}
	return due, nil
}

// ListReviews retrieves every review with its question and note name.
func (db *DB) ListReviews(ctx context.Context) ([]domain.ReviewOverview, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.id, n.name, c.front, r.last_review, r.next_review
		FROM review r
		JOIN card c ON c.id = r.card_id
		JOIN note n ON n.id = c.note_id
		ORDER BY r.next_review, r.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.ReviewOverview
	for rows.Next() {
		var (
			r    domain.ReviewOverview
			last sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.NoteName, &r.Question, &last, &r.NextReview); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		r.LastReview = nullableInt(last)
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review rows: %w", err)
	}
	return reviews, nil
}

// FindReview retrieves a review by id.
func (db *DB) FindReview(ctx context.Context, id string) (*domain.Review, error) {
	var (
		r    domain.Review
		last sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, card_id, last_review, next_review
		FROM review WHERE id = ?
	`, id).Scan(&r.ID, &r.CardID, &last, &r.NextReview)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Review not found
		}
		return nil, fmt.Errorf("failed to find review %s: %w", id, err)
	}
	r.LastReview = nullableInt(last)
	return &r, nil
}

// UpdateReviewSchedule sets the last and next review times of a review of
// the given card. It returns ErrNotFound when no review of that card has the
// given id.
func (db *DB) UpdateReviewSchedule(ctx context.Context, id, cardID string, lastReview, nextReview int64) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE review
		SET last_review = ?, next_review = ?
		WHERE id = ? AND card_id = ?
	`, lastReview, nextReview, id, cardID)
	if err != nil {
		return fmt.Errorf("failed to update review %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update review %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("review %s of card %s: %w", id, cardID, ErrNotFound)
	}
	return nil
}

// InsertScore appends a score for a card and fills in its ID and timestamps.
func (db *DB) InsertScore(ctx context.Context, s *domain.Score) error {
	now := db.unixNow()
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO score (id, card_id, score, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		id,
		s.CardID,
		s.Correct,
		s.Difficulty,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert score for card %s: %w", s.CardID, err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// ScoresByCardID retrieves the score history of a card, oldest first.
func (db *DB) ScoresByCardID(ctx context.Context, cardID string) ([]domain.Score, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, card_id, score, difficulty, created_at, updated_at
		FROM score WHERE card_id = ?
		ORDER BY created_at, rowid
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores for card %s: %w", cardID, err)
	}
	defer rows.Close()

	var scores []domain.Score
	for rows.Next() {
		var s domain.Score
		if err := rows.Scan(&s.ID, &s.CardID, &s.Correct, &s.Difficulty, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score row for card %s: %w", cardID, err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate score rows for card %s: %w", cardID, err)
	}
	return scores, nil
}
