package bank

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/selfquiz/backend/internal/models"
)

// Question banks arrive in whatever shape their authors exported: a bare
// array, or an object wrapping the array, with per-record keys that vary
// freely. Normalize resolves each record against an ordered list of
// fallback rules and emits canonical models.Question values.

type DropReason string

const (
	ReasonNoPrompt     DropReason = "no_prompt"
	ReasonNoOptions    DropReason = "no_options"
	ReasonAmbiguousKey DropReason = "ambiguous_answer_key"
)

// Report summarizes a normalization pass for operator logs.
type Report struct {
	Total   int
	Kept    int
	Dropped map[DropReason]int
}

func (r *Report) drop(reason DropReason) {
	if r.Dropped == nil {
		r.Dropped = make(map[DropReason]int)
	}
	r.Dropped[reason]++
}

func (r *Report) String() string {
	return fmt.Sprintf("total=%d kept=%d dropped=%d", r.Total, r.Kept, r.Total-r.Kept)
}

var (
	promptKeys    = []string{"question", "q", "prompt", "stem", "text", "Question", "title"}
	optionKeys    = []string{"options", "choices", "answers", "Options"}
	answerKeys    = []string{"correct", "answer", "key", "correctIndex", "CorrectAnswer"}
	rationaleKeys = []string{"rationale", "explanation", "reason", "why"}
)

// Normalize converts raw bank JSON into canonical questions. The input may
// be a bare array of records or an object carrying the array under a
// "questions" or "items" field. Records that yield no prompt text, no
// options, or an unresolvable answer designator are dropped and counted in
// the report. Output order follows input order; the function is pure and
// deterministic.
func Normalize(raw []byte) ([]models.Question, *Report, error) {
	records, err := extractRecords(raw)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Total: len(records)}
	questions := make([]models.Question, 0, len(records))

	for _, rec := range records {
		q, reason := normalizeRecord(rec)
		if reason != "" {
			report.drop(reason)
			continue
		}
		questions = append(questions, q)
	}

	report.Kept = len(questions)
	return questions, report, nil
}

func extractRecords(raw []byte) ([]map[string]any, error) {
	var bare []map[string]any
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Questions []map[string]any `json:"questions"`
		Items     []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parse bank: %w", err)
	}
	if wrapped.Questions != nil {
		return wrapped.Questions, nil
	}
	return wrapped.Items, nil
}

func normalizeRecord(rec map[string]any) (models.Question, DropReason) {
	text := firstString(rec, promptKeys)
	if text == "" {
		return models.Question{}, ReasonNoPrompt
	}

	options := resolveOptions(rec)
	if len(options) == 0 {
		return models.Question{}, ReasonNoOptions
	}

	correctIdx, ok := resolveCorrectIndex(rec, options)
	if !ok {
		return models.Question{}, ReasonAmbiguousKey
	}

	return models.Question{
		Text:         text,
		Options:      options,
		CorrectIndex: correctIdx,
		Rationale:    firstString(rec, rationaleKeys),
	}, ""
}

// resolveOptions takes the first options-like key holding an array. Some
// banks store the choices as single-letter fields instead ({A: "...",
// B: "..."}); those are collected in alphabetical key order.
func resolveOptions(rec map[string]any) []string {
	for _, key := range optionKeys {
		if arr, ok := rec[key].([]any); ok {
			options := make([]string, len(arr))
			for i, v := range arr {
				options[i] = stringify(v)
			}
			return options
		}
	}

	var letterKeys []string
	for key := range rec {
		if len(key) == 1 {
			c := key[0]
			if (c >= 'A' && c <= 'H') || (c >= 'a' && c <= 'h') {
				letterKeys = append(letterKeys, key)
			}
		}
	}
	if len(letterKeys) == 0 {
		return nil
	}
	sort.Slice(letterKeys, func(i, j int) bool {
		return strings.ToUpper(letterKeys[i]) < strings.ToUpper(letterKeys[j])
	})

	options := make([]string, len(letterKeys))
	for i, key := range letterKeys {
		options[i] = stringify(rec[key])
	}
	return options
}

// resolveCorrectIndex interprets the answer designator in priority order:
// a number is a zero-based index, a single letter maps to its alphabet
// position, and anything else is matched by exact trimmed equality against
// the option texts. A record with no designator defaults to index 0 —
// such banks rely on option order to carry the answer. A designator that
// is present but resolves to nothing is reported as ambiguous rather than
// silently accepted.
func resolveCorrectIndex(rec map[string]any, options []string) (int, bool) {
	var designator any
	found := false
	for _, key := range answerKeys {
		if v, ok := rec[key]; ok && v != nil {
			designator = v
			found = true
			break
		}
	}
	if !found {
		return 0, true
	}

	switch v := designator.(type) {
	case float64:
		idx := int(v)
		if idx >= 0 && idx < len(options) {
			return idx, true
		}
	case string:
		s := strings.TrimSpace(v)
		if len(s) == 1 {
			c := strings.ToUpper(s)[0]
			if c >= 'A' && c <= 'Z' {
				idx := int(c - 'A')
				if idx < len(options) {
					return idx, true
				}
				return 0, false
			}
		}
		for i, opt := range options {
			if strings.TrimSpace(opt) == s {
				return i, true
			}
		}
	}
	return 0, false
}

func firstString(rec map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := rec[key]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
