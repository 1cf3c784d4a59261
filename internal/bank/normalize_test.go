package bank

import (
	"reflect"
	"testing"
)

func TestNormalizeKeyFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantText    string
		wantOptions []string
		wantCorrect int
	}{
		{
			name:        "canonical keys",
			raw:         `[{"question": "What is 2+2?", "options": ["3", "4", "5"], "correct": 1}]`,
			wantText:    "What is 2+2?",
			wantOptions: []string{"3", "4", "5"},
			wantCorrect: 1,
		},
		{
			name:        "alternate prompt and option keys",
			raw:         `[{"stem": "Pick one", "choices": ["a", "b"], "answer": 0}]`,
			wantText:    "Pick one",
			wantOptions: []string{"a", "b"},
			wantCorrect: 0,
		},
		{
			name:        "letter designator",
			raw:         `[{"q": "Color?", "options": ["red", "green", "blue"], "key": "C"}]`,
			wantText:    "Color?",
			wantOptions: []string{"red", "green", "blue"},
			wantCorrect: 2,
		},
		{
			name:        "lowercase padded letter designator",
			raw:         `[{"q": "Color?", "options": ["red", "green"], "correct": " b "}]`,
			wantText:    "Color?",
			wantOptions: []string{"red", "green"},
			wantCorrect: 1,
		},
		{
			name:        "exact text designator",
			raw:         `[{"prompt": "Dose?", "answers": ["10mg", "20mg"], "CorrectAnswer": "20mg"}]`,
			wantText:    "Dose?",
			wantOptions: []string{"10mg", "20mg"},
			wantCorrect: 1,
		},
		{
			name:        "single letter option fields",
			raw:         `[{"question": "Pick", "A": "first", "B": "second", "C": "third", "correct": "B"}]`,
			wantText:    "Pick",
			wantOptions: []string{"first", "second", "third"},
			wantCorrect: 1,
		},
		{
			name:        "missing designator defaults to first option",
			raw:         `[{"question": "Ordered bank", "options": ["right", "wrong"]}]`,
			wantText:    "Ordered bank",
			wantOptions: []string{"right", "wrong"},
			wantCorrect: 0,
		},
		{
			name:        "numeric options stringified",
			raw:         `[{"question": "Count?", "options": [1, 2.5, true], "correct": 0}]`,
			wantText:    "Count?",
			wantOptions: []string{"1", "2.5", "true"},
			wantCorrect: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions, report, err := Normalize([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if len(questions) != 1 {
				t.Fatalf("Normalize() kept %d questions, want 1 (report: %s)", len(questions), report)
			}
			q := questions[0]
			if q.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", q.Text, tt.wantText)
			}
			if !reflect.DeepEqual(q.Options, tt.wantOptions) {
				t.Errorf("Options = %v, want %v", q.Options, tt.wantOptions)
			}
			if q.CorrectIndex != tt.wantCorrect {
				t.Errorf("CorrectIndex = %d, want %d", q.CorrectIndex, tt.wantCorrect)
			}
		})
	}
}

func TestNormalizeWrapperShapes(t *testing.T) {
	record := `{"question": "Q", "options": ["x", "y"], "correct": 0}`
	shapes := map[string]string{
		"bare array":       `[` + record + `]`,
		"questions object": `{"questions": [` + record + `]}`,
		"items object":     `{"items": [` + record + `]}`,
	}

	for name, raw := range shapes {
		t.Run(name, func(t *testing.T) {
			questions, _, err := Normalize([]byte(raw))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if len(questions) != 1 {
				t.Errorf("kept %d questions, want 1", len(questions))
			}
		})
	}
}

func TestNormalizeDropsBadRecords(t *testing.T) {
	raw := `[
		{"question": "Good one", "options": ["a", "b"], "correct": 1},
		{"options": ["a", "b"], "correct": 0},
		{"question": "No options here", "correct": 0},
		{"question": "Out of range index", "options": ["a", "b"], "correct": 9},
		{"question": "Letter beyond options", "options": ["a", "b"], "correct": "Z"},
		{"question": "Unmatched text", "options": ["a", "b"], "correct": "zz"},
		{"question": "Also good", "options": ["x", "y"], "answer": "y"}
	]`

	questions, report, err := Normalize([]byte(raw))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if len(questions) != 2 {
		t.Fatalf("kept %d questions, want 2", len(questions))
	}
	if report.Total != 7 || report.Kept != 2 {
		t.Errorf("report total=%d kept=%d, want total=7 kept=2", report.Total, report.Kept)
	}
	if got := report.Dropped[ReasonNoPrompt]; got != 1 {
		t.Errorf("dropped for no prompt = %d, want 1", got)
	}
	if got := report.Dropped[ReasonNoOptions]; got != 1 {
		t.Errorf("dropped for no options = %d, want 1", got)
	}
	if got := report.Dropped[ReasonAmbiguousKey]; got != 3 {
		t.Errorf("dropped for ambiguous key = %d, want 3", got)
	}

	if questions[0].Text != "Good one" || questions[1].Text != "Also good" {
		t.Errorf("kept questions out of order: %q, %q", questions[0].Text, questions[1].Text)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := []byte(`[
		{"question": "Q1", "A": "x", "B": "y", "C": "z", "correct": "B"},
		{"question": "Q2", "options": ["a", "b"], "answer": 1, "rationale": "because"}
	]`)

	first, _, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, _, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Normalize() is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if first[1].Rationale != "because" {
		t.Errorf("Rationale = %q, want %q", first[1].Rationale, "because")
	}
}

func TestNormalizeRejectsMalformedJSON(t *testing.T) {
	if _, _, err := Normalize([]byte(`{not json`)); err == nil {
		t.Error("Normalize() accepted malformed JSON, want error")
	}
}
