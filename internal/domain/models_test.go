package domain

import (
	"errors"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	cases := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"valid", Question{Text: "2+2?", Options: []string{"3", "4"}, Answer: "4"}, true},
		{"empty text", Question{Text: " ", Options: []string{"3", "4"}, Answer: "4"}, false},
		{"one option", Question{Text: "2+2?", Options: []string{"4"}, Answer: "4"}, false},
		{"answer not an option", Question{Text: "2+2?", Options: []string{"3", "5"}, Answer: "4"}, false},
		{"empty option", Question{Text: "2+2?", Options: []string{"", "4"}, Answer: "4"}, false},
		{"duplicate option", Question{Text: "2+2?", Options: []string{"4", "4"}, Answer: "4"}, false},
		{"sentinel option", Question{Text: "2+2?", Options: []string{SkippedAnswer, "4"}, Answer: "4"}, false},
	}

	for _, tc := range cases {
		err := tc.q.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			if !errors.Is(err, ErrInvalidQuestion) {
				t.Fatalf("%s: expected ErrInvalidQuestion, got %v", tc.name, err)
			}
		}
	}
}

func TestSkippedAnswerNeverMatchesValidatedOptions(t *testing.T) {
	q := Question{Text: "2+2?", Options: []string{"3", "4"}, Answer: "4"}
	if err := q.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if q.HasOption(SkippedAnswer) {
		t.Fatalf("sentinel must not be a real option")
	}
}
