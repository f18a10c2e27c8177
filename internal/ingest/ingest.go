// Package ingest stores uploaded notes, replacing the generated cards of a
// note when it is re-uploaded for update.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/conorfennell/knolcards/internal/domain"
	"github.com/conorfennell/knolcards/internal/knol"
	"github.com/go-playground/validator/v10"
)

// Item is one note of an upload batch.
type Item struct {
	Name    string  `json:"name" validate:"required"`
	Content *string `json:"content"`
	// Upload is sent by clients alongside Update; it does not change how the
	// item is stored.
	Upload bool `json:"upload"`
	Update bool `json:"update"`
}

// NoteRef identifies a stored note.
type NoteRef struct {
	ID string `json:"id"`
}

// CheckResult reports whether a note name is already stored and, if so,
// whether the submitted content differs from the stored content.
type CheckResult struct {
	Name     string `json:"name"`
	Uploaded bool   `json:"uploaded"`
	Changed  bool   `json:"changed"`
}

// InputError reports a batch that was rejected before anything was written.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid batch: %v", e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Store is the persistence the service needs.
type Store interface {
	FindNoteByName(ctx context.Context, name string) (*domain.Note, error)
	DeleteNoteCards(ctx context.Context, noteID string) (int64, error)
	UpsertNote(ctx context.Context, name string, content *string) (string, error)
}

// Service handles note uploads.
type Service struct {
	store    Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates an ingestion service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// DecodeBatch decodes and validates a JSON encoded list of items.
func (s *Service) DecodeBatch(payload string) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, &InputError{Err: err}
	}
	if err := s.Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

// Validate checks every item of a batch.
func (s *Service) Validate(items []Item) error {
	for i, item := range items {
		if err := s.validate.Struct(item); err != nil {
			return &InputError{Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return nil
}

// SubmitBatch stores the items in order. An item with Update set first loses
// every card of the existing note with that name (with the cards' reviews and
// scores). Each note is then inserted, or its content overwritten.
//
// The batch is validated up front. A store failure stops the loop: the refs
// of items already stored are returned together with the error, and those
// items stay stored.
func (s *Service) SubmitBatch(ctx context.Context, items []Item) ([]NoteRef, error) {
	if err := s.Validate(items); err != nil {
		return nil, err
	}

	refs := make([]NoteRef, 0, len(items))
	for _, item := range items {
		id, err := s.submit(ctx, item)
		if err != nil {
			s.logger.Error("Failed to store note", "name", item.Name, "stored", len(refs), "error", err)
			return refs, err
		}
		refs = append(refs, NoteRef{ID: id})
	}
	return refs, nil
}

func (s *Service) submit(ctx context.Context, item Item) (string, error) {
	if item.Update {
		existing, err := s.store.FindNoteByName(ctx, item.Name)
		if err != nil {
			return "", err
		}
		if existing != nil {
			deleted, err := s.store.DeleteNoteCards(ctx, existing.ID)
			if err != nil {
				return "", err
			}
			s.logger.Info("Replacing note", "name", item.Name, "id", existing.ID, "cards_deleted", deleted)
		}
	}

	id, err := s.store.UpsertNote(ctx, item.Name, item.Content)
	if err != nil {
		return "", err
	}
	s.logger.Info("Note stored", "name", item.Name, "id", id)
	return id, nil
}

// CheckBatch reports, per item, whether a note with that name is stored. It
// never writes.
func (s *Service) CheckBatch(ctx context.Context, items []Item) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(items))
	for _, item := range items {
		note, err := s.store.FindNoteByName(ctx, item.Name)
		if err != nil {
			return nil, err
		}
		res := CheckResult{Name: item.Name, Uploaded: note != nil}
		if note != nil {
			res.Changed = note.ContentHash != knol.Fingerprint(item.Content)
		}
		results = append(results, res)
	}
	return results, nil
}
