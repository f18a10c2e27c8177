package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/conorfennell/knolcards/internal/domain"
)

const payload = `[{"question":1,"front":"Q1","back":"A1","type":"mc","options":[{"option":"a","value":"1"}]}]`

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
		expectedType  string
	}{
		{
			name:          "Bare payload",
			input:         payload,
			expectedCards: 1,
			expectedFront: "Q1",
			expectedBack:  "A1",
			expectedType:  "mc",
		},
		{
			name:          "Fenced with json tag",
			input:         "```json\n" + payload + "\n```",
			expectedCards: 1,
			expectedFront: "Q1",
			expectedBack:  "A1",
			expectedType:  "mc",
		},
		{
			name:          "Bare fence",
			input:         "```\n" + payload + "\n```",
			expectedCards: 1,
			expectedFront: "Q1",
			expectedBack:  "A1",
			expectedType:  "mc",
		},
		{
			name:          "Fence with surrounding whitespace",
			input:         "\n\n  ```JSON\r\n" + payload + "\r\n```  \n",
			expectedCards: 1,
			expectedFront: "Q1",
			expectedBack:  "A1",
			expectedType:  "mc",
		},
		{
			name:          "Fence on the same line",
			input:         "```json" + payload + "```",
			expectedCards: 1,
			expectedFront: "Q1",
			expectedBack:  "A1",
			expectedType:  "mc",
		},
		{
			name:          "Extra fields are ignored",
			input:         `[{"question":2,"front":"F","back":"B","type":"open","hint":"ignored","source":{"page":3}}]`,
			expectedCards: 1,
			expectedFront: "F",
			expectedBack:  "B",
			expectedType:  "open",
		},
		{
			name:          "Fractional question number",
			input:         `[{"question":1.0,"front":"Q1","back":"A1","type":"mc"}]`,
			expectedCards: 1,
			expectedFront: "Q1",
			expectedBack:  "A1",
			expectedType:  "mc",
		},
		{
			name:          "Question number as string",
			input:         `[{"question":"1","front":"Q1","back":"A1","type":"mc"}]`,
			expectedCards: 1,
			expectedFront: "Q1",
			expectedBack:  "A1",
			expectedType:  "mc",
		},
		{
			name:          "Empty list",
			input:         "[]",
			expectedCards: 0,
		},
		{
			name: "Multiple questions",
			input: `[
  {"question":1,"front":"Q1","back":"A1","type":"mc","options":[]},
  {"question":2,"front":"Q2","back":"A2","type":"mc","options":[]}
]`,
			expectedCards: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(records) != tc.expectedCards {
				t.Fatalf("Expected %d records, but got %d", tc.expectedCards, len(records))
			}

			if tc.expectedCards == 1 {
				rec := records[0]
				if rec.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, rec.Front)
				}
				if rec.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, rec.Back)
				}
				if rec.Type != tc.expectedType {
					t.Errorf("Expected Type to be '%s', but got '%s'", tc.expectedType, rec.Type)
				}
			}
		})
	}
}

func TestParse_FencedMatchesUnwrapped(t *testing.T) {
	bare, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	for _, wrapped := range []string{"```json\n" + payload + "\n```", "```\n" + payload + "\n```"} {
		got, err := Parse(wrapped)
		if err != nil {
			t.Fatalf("Parse() returned an unexpected error: %v", err)
		}
		if len(got) != len(bare) || got[0].Front != bare[0].Front || got[0].Question != bare[0].Question {
			t.Errorf("Expected %+v, but got %+v", bare, got)
		}
		if got[0].Options.Kind != domain.OptionsList || got[0].Options.List[0] != bare[0].Options.List[0] {
			t.Errorf("Expected options %+v, but got %+v", bare[0].Options, got[0].Options)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		notAList bool
	}{
		{name: "Invalid JSON", input: `[{"front": "Q1",]`},
		{name: "Truncated list", input: "```json\n[{\"front\":\"Q1\"}\n```"},
		{name: "Object at top level", input: `{"front":"Q1","back":"A1"}`, notAList: true},
		{name: "Null", input: `null`, notAList: true},
		{name: "Prose", input: `Sure! Here are your questions.`, notAList: true},
		{name: "Empty response", input: "   ", notAList: true},
		{name: "List of strings", input: `["Q1","Q2"]`, notAList: true},
		{name: "Wrong field type", input: `[{"question":"one","front":"Q1"}]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Parse(tc.input)
			if err == nil {
				t.Fatalf("Expected an error, but got %d records", len(records))
			}
			if records != nil {
				t.Errorf("Expected no records on error, but got %v", records)
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected a *ParseError, but got %T", err)
			}
			if perr.Raw != tc.input {
				t.Errorf("Expected Raw to hold the full response, but got '%s'", perr.Raw)
			}
			if tc.notAList && !errors.Is(err, ErrNotAList) {
				t.Errorf("Expected ErrNotAList, but got %v", err)
			}
		})
	}
}

func TestParseError_TruncatesRaw(t *testing.T) {
	raw := strings.Repeat("x", 1000)
	err := &ParseError{Raw: raw, Err: ErrNotAList}

	if len(err.Error()) > 300 {
		t.Errorf("Expected a truncated message, but got %d bytes", len(err.Error()))
	}
	if len(err.Raw) != 1000 {
		t.Errorf("Expected Raw to stay complete, but got %d bytes", len(err.Raw))
	}
}

func TestParse_QuestionNumber(t *testing.T) {
	testCases := []struct {
		question string
		expected domain.QuestionNumber
	}{
		{`1`, 1},
		{`1.0`, 1},
		{`2.5`, 2.5},
		{`"3"`, 3},
		{`" 4 "`, 4},
		{`null`, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.question, func(t *testing.T) {
			records, err := Parse(`[{"question":` + tc.question + `,"front":"Q","back":"A","type":"mc"}]`)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}
			if records[0].Question != tc.expected {
				t.Errorf("Expected question %v, but got %v", tc.expected, records[0].Question)
			}
		})
	}
}
