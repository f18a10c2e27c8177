package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/knolcards/internal/domain"
	"github.com/conorfennell/knolcards/internal/knol"
	"github.com/google/uuid"
)

const noteColumns = `id, name, content, content_hash, created_at, updated_at`

func scanNote(scan func(dest ...any) error) (domain.Note, error) {
	var (
		n       domain.Note
		content sql.NullString
		hash    sql.NullString
	)
	if err := scan(&n.ID, &n.Name, &content, &hash, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return domain.Note{}, err
	}
	if content.Valid {
		c := content.String
		n.Content = &c
	}
	n.ContentHash = hash.String
	return n, nil
}

// FindNoteByName retrieves a note by its unique name.
func (db *DB) FindNoteByName(ctx context.Context, name string) (*domain.Note, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+noteColumns+`
		FROM note WHERE name = ?
	`, name)

	n, err := scanNote(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Note not found
		}
		return nil, fmt.Errorf("failed to find note by name %s: %w", name, err)
	}
	return &n, nil
}

// UpsertNote inserts a note, or overwrites the content of the note with the
// same name. It returns the id of the note either way.
func (db *DB) UpsertNote(ctx context.Context, name string, content *string) (string, error) {
	now := db.unixNow()
	var hash sql.NullString
	if content != nil {
		hash = sql.NullString{String: knol.Fingerprint(content), Valid: true}
	}

	var id string
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO note (id, name, content, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			content = excluded.content,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		RETURNING id
	`,
		uuid.NewString(),
		name,
		content,
		hash,
		now,
		now,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert note %s: %w", name, err)
	}
	return id, nil
}

// NotesByIDs retrieves all notes matching the given ids in one query.
func (db *DB) NotesByIDs(ctx context.Context, ids []string) ([]domain.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM note WHERE id IN (`+placeholders(len(ids))+`)
		ORDER BY name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes by ids: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		n, err := scanNote(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate note rows: %w", err)
	}
	return notes, nil
}

// DeleteNoteCards removes every card of a note together with the cards'
// scores and reviews. Scores do not cascade, so the order is score, review,
// card, all in one transaction. It returns the number of cards deleted.
func (db *DB) DeleteNoteCards(ctx context.Context, noteID string) (int64, error) {
	var deleted int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM score
			WHERE card_id IN (SELECT id FROM card WHERE note_id = ?)
		`, noteID); err != nil {
			return fmt.Errorf("failed to delete scores for note %s: %w", noteID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM review
			WHERE card_id IN (SELECT id FROM card WHERE note_id = ?)
		`, noteID); err != nil {
			return fmt.Errorf("failed to delete reviews for note %s: %w", noteID, err)
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM card
			WHERE note_id = ?
		`, noteID)
		if err != nil {
			return fmt.Errorf("failed to delete cards for note %s: %w", noteID, err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
