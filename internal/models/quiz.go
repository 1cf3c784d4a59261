package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type RunState string

const (
	RunInProgress RunState = "in_progress"
	RunCompleted  RunState = "completed"
)

// ── Core Structs ───────────────────────────────────────

// Question is the canonical form every bank record is normalized into.
// Immutable once built: CorrectIndex is always a valid index into Options.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Rationale    string   `json:"rationale,omitempty"`
}

// Run is one quiz attempt: a shuffled, length-capped pool of questions
// plus the grading state accumulated while working through it. A Run is
// single-owner — exactly one session mutates it, through the run engine.
type Run struct {
	ModuleName      string        `json:"module_name"`
	Length          int           `json:"length"`
	Pool            []Question    `json:"pool"`
	CurrentIndex    int           `json:"current_index"`
	FirstTryCorrect int           `json:"first_try_correct"`
	AnsweredOnce    bool          `json:"answered_once"`
	Review          []ReviewEntry `json:"review"`
}

// ReviewEntry is a snapshot taken when a question is graded; it is never
// mutated afterwards and is replayed verbatim in the end-of-run summary.
type ReviewEntry struct {
	QuestionNumber int    `json:"question_number"`
	QuestionText   string `json:"question_text"`
	CorrectAnswer  string `json:"correct_answer"`
	UserAnswer     string `json:"user_answer"`
}

// ── Request Types ─────────────────────────────────────

// RunLength is the requested number of questions for a run. Browsers send
// it as the string "full", a numeric string, or a bare number; zero is the
// sentinel for "use the whole shuffled pool".
type RunLength int

const FullRun RunLength = 0

func (l *RunLength) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			return fmt.Errorf("run length must not be negative")
		}
		*l = RunLength(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("run length must be a number or \"full\"")
	}
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "full" {
		*l = FullRun
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid run length %q", s)
	}
	*l = RunLength(n)
	return nil
}

type StartRunRequest struct {
	Module string    `json:"module"`
	Length RunLength `json:"length"`
}

type SubmitAnswerRequest struct {
	Selected []int `json:"selected"`
}

// ── Response Types ────────────────────────────────────

// QuestionView is a question as served to the browser: the answer key and
// rationale are stripped until the question has been graded.
type QuestionView struct {
	Number  int      `json:"number"`
	Total   int      `json:"total"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type GradingResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	CorrectText   string `json:"correct_text"`
	Rationale     string `json:"rationale,omitempty"`
}

type Summary struct {
	FirstTryCorrect int           `json:"first_try_correct"`
	Total           int           `json:"total"`
	Percent         int           `json:"percent"`
	Review          []ReviewEntry `json:"review"`
}

type RunView struct {
	Module            string        `json:"module"`
	State             RunState      `json:"state"`
	Position          string        `json:"position"`
	MasteryPercent    int           `json:"mastery_percent"`
	RemainingToMaster int           `json:"remaining_to_master"`
	Answered          bool          `json:"answered"`
	Question          *QuestionView `json:"question,omitempty"`
	Summary           *Summary      `json:"summary,omitempty"`
}

type ModulesResponse struct {
	Modules  []string `json:"modules"`
	Fallback bool     `json:"fallback"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
