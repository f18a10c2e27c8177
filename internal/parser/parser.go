// Package parser decodes completion responses into question records.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/conorfennell/knolcards/internal/domain"
)

// rawPreviewLen bounds how much of a bad response ends up in error messages.
const rawPreviewLen = 200

var (
	openingFence = regexp.MustCompile("(?i)^```(?:json)?[ \t]*\r?\n?")
	closingFence = regexp.MustCompile("\\s*```$")
)

// ErrNotAList is wrapped by a ParseError when the response decodes but is
// not a list of objects.
var ErrNotAList = errors.New("response is not a list of question objects")

// ParseError reports a completion response that could not be decoded. Raw is
// the full response text as received.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse questions: %v (raw: %q)", e.Err, Preview(e.Raw))
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Preview truncates raw text for logs and error messages.
func Preview(raw string) string {
	r := []rune(raw)
	if len(r) <= rawPreviewLen {
		return raw
	}
	return string(r[:rawPreviewLen]) + "..."
}

// StripFences removes a surrounding markdown code fence, optionally tagged
// json, from a trimmed response. Text without an opening fence is returned
// trimmed but otherwise untouched.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = openingFence.ReplaceAllString(cleaned, "")
	cleaned = closingFence.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// Parse decodes a completion response into question records. The top level
// must be a JSON list and every element an object; fields that are not part
// of a question record are ignored.
func Parse(raw string) ([]domain.QuestionRecord, error) {
	cleaned := []byte(StripFences(raw))

	if len(cleaned) == 0 || cleaned[0] != '[' {
		return nil, &ParseError{Raw: raw, Err: ErrNotAList}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(cleaned, &elems); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	records := make([]domain.QuestionRecord, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d: %w", i, ErrNotAList)}
		}
		var rec domain.QuestionRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		records = append(records, rec)
	}
	return records, nil
}
