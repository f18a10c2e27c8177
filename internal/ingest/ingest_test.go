package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/conorfennell/knolcards/internal/domain"
	"github.com/conorfennell/knolcards/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func openStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "knolcards.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// failingStore fails UpsertNote for one name.
type failingStore struct {
	Store
	failOn string
}

var errStoreDown = errors.New("store down")

func (f *failingStore) UpsertNote(ctx context.Context, name string, content *string) (string, error) {
	if name == f.failOn {
		return "", errStoreDown
	}
	return f.Store.UpsertNote(ctx, name, content)
}

func TestDecodeBatch(t *testing.T) {
	svc := NewService(openStore(t), discardLogger())

	items, err := svc.DecodeBatch(`[
		{"name":"chap1","content":"cells","upload":true,"update":false},
		{"name":"chap2","content":null,"upload":true,"update":true}
	]`)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "chap1", items[0].Name)
	assert.Equal(t, "cells", *items[0].Content)
	assert.True(t, items[1].Update)
	assert.Nil(t, items[1].Content)
}

func TestDecodeBatch_Invalid(t *testing.T) {
	svc := NewService(openStore(t), discardLogger())

	testCases := []struct {
		name    string
		payload string
	}{
		{"Not JSON", `[{"name":`},
		{"Object instead of list", `{"name":"chap1"}`},
		{"Missing name", `[{"name":"chap1"},{"content":"x"}]`},
		{"Wrong field type", `[{"name":"chap1","update":"yes"}]`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.DecodeBatch(tc.payload)
			var inputErr *InputError
			assert.True(t, errors.As(err, &inputErr), "got %v", err)
		})
	}
}

func TestSubmitBatch_CreatesNotes(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	svc := NewService(db, discardLogger())

	refs, err := svc.SubmitBatch(ctx, []Item{
		{Name: "chap1", Content: strPtr("..."), Upload: true},
		{Name: "chap2", Content: strPtr("more"), Upload: true},
	})
	require.NoError(t, err)
	require.Len(t, refs, 2)

	note, err := db.FindNoteByName(ctx, "chap1")
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, refs[0].ID, note.ID)
}

func TestSubmitBatch_InvalidItemWritesNothing(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	svc := NewService(db, discardLogger())

	_, err := svc.SubmitBatch(ctx, []Item{
		{Name: "chap1", Content: strPtr("...")},
		{Name: "", Content: strPtr("nameless")},
	})
	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))

	note, err := db.FindNoteByName(ctx, "chap1")
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestSubmitBatch_ReuploadWithUpdateReplacesCards(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	svc := NewService(db, discardLogger())

	refs, err := svc.SubmitBatch(ctx, []Item{{Name: "chap1", Content: strPtr("v1")}})
	require.NoError(t, err)
	noteID := refs[0].ID

	card := domain.Card{NoteID: noteID, Front: "Q1", Back: "A1", Type: "mc"}
	reviewID, err := db.CreateCard(ctx, &card)
	require.NoError(t, err)
	require.NoError(t, db.UpdateReviewSchedule(ctx, reviewID, card.ID, 10, 20))
	require.NoError(t, db.InsertScore(ctx, &domain.Score{CardID: card.ID, Correct: true, Difficulty: 2}))

	refs, err = svc.SubmitBatch(ctx, []Item{{Name: "chap1", Content: strPtr("v2"), Update: true}})
	require.NoError(t, err)
	assert.Equal(t, noteID, refs[0].ID)

	note, err := db.FindNoteByName(ctx, "chap1")
	require.NoError(t, err)
	assert.Equal(t, "v2", *note.Content)

	cards, err := db.CardsByNoteID(ctx, noteID)
	require.NoError(t, err)
	assert.Empty(t, cards)
	scores, err := db.ScoresByCardID(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, scores)
	review, err := db.FindReview(ctx, reviewID)
	require.NoError(t, err)
	assert.Nil(t, review)
}

func TestSubmitBatch_ReuploadWithoutUpdateKeepsCards(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	svc := NewService(db, discardLogger())

	refs, err := svc.SubmitBatch(ctx, []Item{{Name: "chap1", Content: strPtr("v1")}})
	require.NoError(t, err)
	card := domain.Card{NoteID: refs[0].ID, Front: "Q1", Back: "A1", Type: "mc"}
	_, err = db.CreateCard(ctx, &card)
	require.NoError(t, err)

	_, err = svc.SubmitBatch(ctx, []Item{{Name: "chap1", Content: strPtr("v2")}})
	require.NoError(t, err)

	cards, err := db.CardsByNoteID(ctx, refs[0].ID)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestSubmitBatch_StopsAtFirstStoreFailure(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	svc := NewService(&failingStore{Store: db, failOn: "chap2"}, discardLogger())

	refs, err := svc.SubmitBatch(ctx, []Item{
		{Name: "chap1", Content: strPtr("a")},
		{Name: "chap2", Content: strPtr("b")},
		{Name: "chap3", Content: strPtr("c")},
	})
	require.ErrorIs(t, err, errStoreDown)
	require.Len(t, refs, 1)

	first, err := db.FindNoteByName(ctx, "chap1")
	require.NoError(t, err)
	assert.NotNil(t, first, "items before the failure stay stored")
	third, err := db.FindNoteByName(ctx, "chap3")
	require.NoError(t, err)
	assert.Nil(t, third, "items after the failure are not attempted")
}

func TestCheckBatch(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	svc := NewService(db, discardLogger())

	_, err := svc.SubmitBatch(ctx, []Item{{Name: "chap1", Content: strPtr("cells divide")}})
	require.NoError(t, err)

	results, err := svc.CheckBatch(ctx, []Item{
		{Name: "chap1", Content: strPtr("cells divide\r\n")},
		{Name: "chap1", Content: strPtr("cells grow")},
		{Name: "chap9", Content: strPtr("new")},
	})
	require.NoError(t, err)
	assert.Equal(t, []CheckResult{
		{Name: "chap1", Uploaded: true, Changed: false},
		{Name: "chap1", Uploaded: true, Changed: true},
		{Name: "chap9", Uploaded: false, Changed: false},
	}, results)

	note, err := db.FindNoteByName(ctx, "chap9")
	require.NoError(t, err)
	assert.Nil(t, note, "check must not write")
}
