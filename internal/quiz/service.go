package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/selfquiz/backend/internal/bank"
	"github.com/selfquiz/backend/internal/models"
	"github.com/selfquiz/backend/internal/run"
	"github.com/selfquiz/backend/internal/session"
)

var (
	// ErrInvalidBank means the bank fetched fine but normalization kept
	// zero usable questions — no quiz can start over it.
	ErrInvalidBank = errors.New("bank contains no usable questions")
	// ErrNoActiveRun means the session has no run in progress.
	ErrNoActiveRun = errors.New("no active run")
	// ErrNothingToResume means no valid persisted run exists for the session.
	ErrNothingToResume = errors.New("nothing to resume")
)

// Service maps session-scoped user intents onto the run engine. It owns
// the "current run" pointer for each session — the engine itself holds no
// state — and mirrors every mutation into the persistence adapter.
type Service struct {
	source   bank.Source
	engine   *run.Engine
	sessions *session.Adapter

	mu     sync.Mutex
	active map[string]*models.Run
	locks  map[string]*sync.Mutex
}

func NewService(source bank.Source, engine *run.Engine, sessions *session.Adapter) *Service {
	return &Service{
		source:   source,
		engine:   engine,
		sessions: sessions,
		active:   make(map[string]*models.Run),
		locks:    make(map[string]*sync.Mutex),
	}
}

// lock serializes engine calls per session, so two overlapping starts (or
// a start racing an answer) cannot interleave on the same run.
func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Service) runFor(sessionID string) (*models.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.active[sessionID]
	return r, ok
}

func (s *Service) setRun(sessionID string, r *models.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		delete(s.active, sessionID)
		return
	}
	s.active[sessionID] = r
}

// Modules returns the module list, substituting the built-in fallback
// when the manifest cannot be read.
func (s *Service) Modules(ctx context.Context) *models.ModulesResponse {
	modules, err := s.source.Modules(ctx)
	if err != nil || len(modules) == 0 {
		if err != nil {
			log.Printf("WARN: [quiz] module manifest unavailable, using fallback list: %v", err)
		}
		return &models.ModulesResponse{Modules: bank.FallbackModules, Fallback: true}
	}
	return &models.ModulesResponse{Modules: modules}
}

// Start fetches and normalizes the requested bank, then begins a new run
// for the session, replacing any previous one.
func (s *Service) Start(ctx context.Context, sessionID, module string, length models.RunLength) (*models.RunView, error) {
	defer s.lock(sessionID)()

	raw, err := s.source.Bank(ctx, module)
	if err != nil {
		return nil, err
	}

	questions, report, err := bank.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", bank.ErrBankUnavailable, module, err)
	}
	log.Printf("[quiz] normalized bank %s: %s", module, report)
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBank, module)
	}

	r, err := s.engine.Start(module, questions, int(length))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBank, module)
	}

	s.setRun(sessionID, r)
	s.sessions.Save(ctx, sessionID, r)
	return s.view(r), nil
}

// Current returns the session's run as the browser should see it.
func (s *Service) Current(sessionID string) (*models.RunView, error) {
	r, ok := s.runFor(sessionID)
	if !ok {
		return nil, ErrNoActiveRun
	}
	return s.view(r), nil
}

// Answer grades the current question and persists the updated run.
func (s *Service) Answer(ctx context.Context, sessionID string, selected []int) (*models.GradingResult, error) {
	defer s.lock(sessionID)()

	r, ok := s.runFor(sessionID)
	if !ok {
		return nil, ErrNoActiveRun
	}

	result, err := s.engine.SubmitAnswer(r, selected)
	if err != nil {
		return nil, err
	}

	s.sessions.Save(ctx, sessionID, r)
	return result, nil
}

// Next advances the run. Completion is terminal: the persisted copy is
// cleared (a completed run is not resumable) and the summary is returned
// in the final view.
func (s *Service) Next(ctx context.Context, sessionID string) (*models.RunView, error) {
	defer s.lock(sessionID)()

	r, ok := s.runFor(sessionID)
	if !ok {
		return nil, ErrNoActiveRun
	}

	state, err := s.engine.Advance(r)
	if err != nil {
		return nil, err
	}

	if state == models.RunCompleted {
		view := s.view(r)
		s.setRun(sessionID, nil)
		s.sessions.Clear(ctx, sessionID)
		return view, nil
	}

	s.sessions.Save(ctx, sessionID, r)
	return s.view(r), nil
}

// Resume reinstates the persisted run for the session, if a structurally
// valid one exists.
func (s *Service) Resume(ctx context.Context, sessionID string) (*models.RunView, error) {
	defer s.lock(sessionID)()

	r, ok := s.sessions.Load(ctx, sessionID)
	if !ok {
		return nil, ErrNothingToResume
	}

	s.setRun(sessionID, r)
	return s.view(r), nil
}

// Reset discards both the in-memory and the persisted run.
func (s *Service) Reset(ctx context.Context, sessionID string) {
	defer s.lock(sessionID)()

	s.setRun(sessionID, nil)
	s.sessions.Clear(ctx, sessionID)
}

// view projects a Run into its browser-facing shape. The answer key stays
// server-side; a completed run carries the summary instead of a question.
func (s *Service) view(r *models.Run) *models.RunView {
	view := &models.RunView{
		Module:            r.ModuleName,
		State:             run.State(r),
		Position:          run.PositionLabel(r),
		MasteryPercent:    run.MasteryPercent(r),
		RemainingToMaster: run.RemainingToMaster(r),
		Answered:          r.AnsweredOnce,
	}

	if view.State == models.RunCompleted {
		view.Summary = run.Summary(r)
		return view
	}

	q := r.Pool[r.CurrentIndex]
	view.Question = &models.QuestionView{
		Number:  r.CurrentIndex + 1,
		Total:   r.Length,
		Text:    q.Text,
		Options: q.Options,
	}
	return view
}
