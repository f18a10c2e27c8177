package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/knolcards/internal/domain"
	"github.com/google/uuid"
)

// CreateCard inserts a card and its first review in one transaction. The
// review is due from the moment the card is created. The card's ID and
// timestamps are filled in, and the new review id is returned.
func (db *DB) CreateCard(ctx context.Context, card *domain.Card) (string, error) {
	now := db.unixNow()
	cardID := uuid.NewString()
	reviewID := uuid.NewString()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO card (id, note_id, front, back, type, options, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			cardID,
			card.NoteID,
			card.Front,
			card.Back,
			card.Type,
			card.Options,
			now,
			now,
		); err != nil {
			return fmt.Errorf("failed to insert card for note %s: %w", card.NoteID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO review (id, card_id, next_review)
			VALUES (?, ?, ?)
		`, reviewID, cardID, now); err != nil {
			return fmt.Errorf("failed to insert review for card %s: %w", cardID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	card.ID = cardID
	card.CreatedAt = now
	card.UpdatedAt = now
	return reviewID, nil
}

// CardsByNoteID retrieves all cards generated from a note.
func (db *DB) CardsByNoteID(ctx context.Context, noteID string) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, note_id, front, back, type, options, created_at, updated_at
		FROM card WHERE note_id = ?
		ORDER BY created_at, id
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for note %s: %w", noteID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(
			&c.ID,
			&c.NoteID,
			&c.Front,
			&c.Back,
			&c.Type,
			&c.Options,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card row for note %s: %w", noteID, err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card rows for note %s: %w", noteID, err)
	}
	return cards, nil
}
