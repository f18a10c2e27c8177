package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Card is one generated quiz item derived from a note.
type Card struct {
	ID        string  `json:"id"`
	NoteID    string  `json:"noteId"`
	Front     string  `json:"front"`
	Back      string  `json:"back"`
	Type      string  `json:"type"`
	Options   Options `json:"options"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// QuestionRecord is a single entry of a completion response after decoding.
// Unknown fields in the response are ignored.
type QuestionRecord struct {
	Question QuestionNumber `json:"question"`
	Front    string         `json:"front"`
	Back     string         `json:"back"`
	Type     string         `json:"type"`
	Options  Options        `json:"options"`
}

// GeneratedCard is a question record tagged with the note it came from.
// CardID and ReviewID are set once the card has been persisted.
type GeneratedCard struct {
	CardID   string `json:"cardId,omitempty"`
	ReviewID string `json:"reviewId,omitempty"`
	NoteID   string `json:"noteId"`
	QuestionRecord
}

// QuestionNumber is the position a completion gives a question. It accepts
// any JSON number, or a string holding one, and encodes as a number.
type QuestionNumber float64

func (n *QuestionNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = QuestionNumber(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("question is not a number: %s", data)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("question is not a number: %q", s)
	}
	*n = QuestionNumber(f)
	return nil
}
