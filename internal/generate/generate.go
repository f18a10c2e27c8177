// Package generate turns stored notes into cards by asking the completion
// service for questions and persisting what comes back.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/conorfennell/knolcards/internal/domain"
	"github.com/conorfennell/knolcards/internal/parser"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoNoteIDs is returned when Generate is called without ids.
	ErrNoNoteIDs = errors.New("no note ids provided")
	// ErrNoNotesFound is returned when none of the ids match a note.
	ErrNoNotesFound = errors.New("no notes found for the provided ids")
	// ErrEmptyResponse marks a note whose completion came back empty.
	ErrEmptyResponse = errors.New("empty completion response")
)

// Completer produces raw question text for a note.
type Completer interface {
	Complete(ctx context.Context, content string) (string, error)
}

// Store is the persistence the orchestrator needs.
type Store interface {
	NotesByIDs(ctx context.Context, ids []string) ([]domain.Note, error)
	CreateCard(ctx context.Context, card *domain.Card) (string, error)
}

// Config bounds how notes are processed.
type Config struct {
	// Concurrency caps the number of notes talking to the completion service
	// at once.
	Concurrency int
	// Timeout applies to every completion call; zero disables it.
	Timeout time.Duration
	// Attempts is the number of completion calls per note before giving up.
	Attempts int
	// RetryDelay is multiplied by the attempt number between attempts.
	RetryDelay time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		Timeout:     2 * time.Minute,
		Attempts:    1,
		RetryDelay:  time.Second,
	}
}

// Stage names where a note failed.
const (
	StageCompletion = "completion"
	StageParse      = "parse"
)

// NoteFailure describes a note that produced no cards.
type NoteFailure struct {
	NoteID   string `json:"noteId"`
	NoteName string `json:"noteName"`
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// Result is the outcome of a generation batch. Cards holds the persisted
// cards; Failures the notes that were skipped because of their completion or
// its parsing.
type Result struct {
	Notes    int                    `json:"notes"`
	Cards    []domain.GeneratedCard `json:"cards"`
	Failures []NoteFailure          `json:"failures,omitempty"`
}

// PersistError is returned when a card could not be stored. Cards persisted
// before it stay committed and are reported in the accompanying Result.
type PersistError struct {
	NoteID string
	Front  string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist card for note %s: %v", e.NoteID, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Orchestrator runs generation batches.
type Orchestrator struct {
	store     Store
	completer Completer
	cfg       Config
	logger    *slog.Logger
}

// New creates an orchestrator. Zero or negative limits fall back to one.
func New(store Store, completer Completer, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	return &Orchestrator{
		store:     store,
		completer: completer,
		cfg:       cfg,
		logger:    logger,
	}
}

// DecodeNoteRefs reads a list of {id} references, given either as a JSON
// list or as a JSON string holding that list.
func DecodeNoteRefs(raw []byte) ([]string, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = []byte(encoded)
	}

	var refs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("invalid note references: %w", err)
	}

	ids := make([]string, 0, len(refs))
	for i, ref := range refs {
		if ref.ID == "" {
			return nil, fmt.Errorf("invalid note references: item %d has no id", i)
		}
		ids = append(ids, ref.ID)
	}
	if len(ids) == 0 {
		return nil, ErrNoNoteIDs
	}
	return ids, nil
}

type outcome struct {
	cards   []domain.GeneratedCard
	failure *NoteFailure
}

// Generate creates cards for the given notes.
//
// Notes are processed independently: a note without content is skipped, and
// a failed or unparseable completion only drops that note. The generated
// cards are then persisted one by one, each with its review; the first store
// failure ends the batch with a *PersistError.
func (o *Orchestrator) Generate(ctx context.Context, noteIDs []string) (*Result, error) {
	if len(noteIDs) == 0 {
		return nil, ErrNoNoteIDs
	}

	notes, err := o.store.NotesByIDs(ctx, noteIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	if len(notes) == 0 {
		return nil, ErrNoNotesFound
	}
	o.logger.Info("Generating questions", "requested", len(noteIDs), "found", len(notes))

	outcomes := make([]outcome, len(notes))
	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, note := range notes {
		g.Go(func() error {
			outcomes[i] = o.processNote(ctx, note)
			return nil
		})
	}
	g.Wait()

	result := &Result{Notes: len(notes), Cards: []domain.GeneratedCard{}}
	var pending []domain.GeneratedCard
	for _, oc := range outcomes {
		if oc.failure != nil {
			result.Failures = append(result.Failures, *oc.failure)
		}
		pending = append(pending, oc.cards...)
	}
	o.logger.Info("Generated questions", "questions", len(pending), "failed_notes", len(result.Failures))

	for _, gen := range pending {
		card := domain.Card{
			NoteID:  gen.NoteID,
			Front:   gen.Front,
			Back:    gen.Back,
			Type:    gen.Type,
			Options: gen.Options,
		}
		reviewID, err := o.store.CreateCard(ctx, &card)
		if err != nil {
			o.logger.Error("Failed to insert question",
				"note_id", gen.NoteID,
				"front", gen.Front,
				"persisted", len(result.Cards),
				"error", err,
			)
			return result, &PersistError{NoteID: gen.NoteID, Front: gen.Front, Err: err}
		}
		gen.CardID = card.ID
		gen.ReviewID = reviewID
		result.Cards = append(result.Cards, gen)
	}

	o.logger.Info("Generation complete", "cards", len(result.Cards))
	return result, nil
}

func (o *Orchestrator) processNote(ctx context.Context, note domain.Note) outcome {
	logger := o.logger.With("note_id", note.ID, "note_name", note.Name)
	if !note.HasContent() {
		logger.Debug("Note has no content, skipping")
		return outcome{}
	}

	fail := func(stage string, err error) outcome {
		return outcome{failure: &NoteFailure{
			NoteID:   note.ID,
			NoteName: note.Name,
			Stage:    stage,
			Reason:   err.Error(),
			Err:      err,
		}}
	}

	raw, err := o.complete(ctx, logger, *note.Content)
	if err != nil {
		logger.Error("Error generating questions", "error", err)
		return fail(StageCompletion, err)
	}
	if strings.TrimSpace(raw) == "" {
		logger.Error("No response from completion service")
		return fail(StageCompletion, ErrEmptyResponse)
	}
	logger.Debug("Completion response", "preview", parser.Preview(raw))

	records, err := parser.Parse(raw)
	if err != nil {
		logger.Error("Error parsing questions", "error", err, "raw", raw)
		return fail(StageParse, err)
	}

	cards := make([]domain.GeneratedCard, 0, len(records))
	for _, rec := range records {
		cards = append(cards, domain.GeneratedCard{NoteID: note.ID, QuestionRecord: rec})
	}
	logger.Info("Note processed", "questions", len(cards))
	return outcome{cards: cards}
}

// complete calls the completion service, bounding every call by the
// configured timeout and retrying with a linear backoff.
func (o *Orchestrator) complete(ctx context.Context, logger *slog.Logger, content string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(o.cfg.RetryDelay * time.Duration(attempt-1)):
			}
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if o.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		}
		raw, err := o.completer.Complete(callCtx, content)
		cancel()
		if err == nil {
			return raw, nil
		}

		lastErr = err
		logger.Warn("Completion attempt failed", "attempt", attempt, "of", o.cfg.Attempts, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}
