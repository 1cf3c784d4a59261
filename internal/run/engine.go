package run

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/selfquiz/backend/internal/models"
)

var (
	ErrEmptyBank        = errors.New("bank has no usable questions")
	ErrAlreadyGraded    = errors.New("current question already graded")
	ErrRunCompleted     = errors.New("run already completed")
	ErrInvalidSelection = errors.New("selected option out of range")
)

// FullPool requests a run over the entire shuffled bank.
const FullPool = 0

// NoAnswerLabel is recorded in the review when a question was submitted
// with nothing selected.
const NoAnswerLabel = "(no answer)"

// Engine owns the lifecycle of a Run: pool selection at start, grading,
// and advancement. It holds no run state itself — the Run is passed into
// every operation, and the caller persists it after each mutation.
type Engine struct {
	rng *rand.Rand
}

func NewEngine() *Engine {
	return &Engine{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewEngineWithSeed pins the shuffle order; used in tests.
func NewEngineWithSeed(seed int64) *Engine {
	return &Engine{rng: rand.New(rand.NewSource(seed))}
}

// Start creates a Run over a uniformly shuffled copy of the bank, capped
// at the requested length (FullPool means the whole bank). The pool is
// fixed for the lifetime of the Run; it is never re-shuffled mid-run.
func (e *Engine) Start(moduleName string, questions []models.Question, requested int) (*models.Run, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyBank
	}

	pool := make([]models.Question, len(questions))
	copy(pool, questions)
	e.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	length := len(pool)
	if requested > FullPool && requested < length {
		length = requested
	}

	return &models.Run{
		ModuleName:   moduleName,
		Length:       length,
		Pool:         pool[:length],
		CurrentIndex: 0,
		Review:       []models.ReviewEntry{},
	}, nil
}

// SubmitAnswer grades the current question against the selected option
// indices. The answer is correct iff exactly one option was selected and
// it is the correct one; empty, multiple, or wrong selections all grade
// incorrect. First-try credit is awarded at most once per question, and a
// re-submit before Advance is rejected so the review stays one entry per
// question.
func (e *Engine) SubmitAnswer(r *models.Run, selected []int) (*models.GradingResult, error) {
	if r.CurrentIndex >= r.Length {
		return nil, ErrRunCompleted
	}
	if r.AnsweredOnce {
		return nil, ErrAlreadyGraded
	}

	q := r.Pool[r.CurrentIndex]
	selected = dedupeSorted(selected)
	for _, idx := range selected {
		if idx < 0 || idx >= len(q.Options) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSelection, idx)
		}
	}

	correct := len(selected) == 1 && selected[0] == q.CorrectIndex
	if correct && !r.AnsweredOnce {
		r.FirstTryCorrect++
	}

	r.Review = append(r.Review, models.ReviewEntry{
		QuestionNumber: r.CurrentIndex + 1,
		QuestionText:   q.Text,
		CorrectAnswer:  OptionLabel(q.CorrectIndex, q.Options[q.CorrectIndex]),
		UserAnswer:     userAnswerLabel(q, selected),
	})
	r.AnsweredOnce = true

	return &models.GradingResult{
		Correct:       correct,
		CorrectAnswer: OptionLabel(q.CorrectIndex, q.Options[q.CorrectIndex]),
		CorrectText:   q.Options[q.CorrectIndex],
		Rationale:     q.Rationale,
	}, nil
}

// Advance moves to the next question, or into the terminal completed
// state when the pool is exhausted. A completed Run accepts no further
// mutation; the caller starts a new Run to play again.
func (e *Engine) Advance(r *models.Run) (models.RunState, error) {
	if r.CurrentIndex >= r.Length {
		return models.RunCompleted, ErrRunCompleted
	}
	r.CurrentIndex++
	r.AnsweredOnce = false
	return State(r), nil
}

func userAnswerLabel(q models.Question, selected []int) string {
	if len(selected) == 0 {
		return NoAnswerLabel
	}
	labels := make([]string, len(selected))
	for i, idx := range selected {
		labels[i] = OptionLabel(idx, q.Options[idx])
	}
	return strings.Join(labels, ", ")
}

func dedupeSorted(selected []int) []int {
	if len(selected) < 2 {
		return selected
	}
	out := make([]int, len(selected))
	copy(out, selected)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
