package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/selfquiz/backend/internal/models"
)

// stateKey is the fixed identifier under which the one resumable run per
// session lives.
const stateKey = "quiz_state_v1"

// Adapter serializes a Run to the store after every mutation and
// reconstructs it on resume. Persistence is best-effort: a save or clear
// failure degrades to in-memory-only operation, it never fails the quiz.
type Adapter struct {
	store Store
}

func NewAdapter(store Store) *Adapter {
	return &Adapter{store: store}
}

func keyFor(sessionID string) string {
	return "quiz:" + sessionID + ":" + stateKey
}

// Save snapshots the full Run. Errors are logged and swallowed.
func (a *Adapter) Save(ctx context.Context, sessionID string, r *models.Run) {
	data, err := json.Marshal(r)
	if err != nil {
		log.Printf("WARN: [session] marshal run: %v", err)
		return
	}
	if err := a.store.Set(ctx, keyFor(sessionID), data); err != nil {
		log.Printf("WARN: [session] save run: %v", err)
	}
}

// Load returns the persisted Run for the session, or absent if there is
// none or the payload fails structural validation. A corrupt snapshot is
// treated the same as no snapshot — resume is simply unavailable.
func (a *Adapter) Load(ctx context.Context, sessionID string) (*models.Run, bool) {
	data, err := a.store.Get(ctx, keyFor(sessionID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("WARN: [session] load run: %v", err)
		}
		return nil, false
	}

	var r models.Run
	if err := json.Unmarshal(data, &r); err != nil {
		log.Printf("WARN: [session] discarding unparsable run state: %v", err)
		return nil, false
	}
	if !validRun(&r) {
		log.Printf("WARN: [session] discarding structurally invalid run state")
		return nil, false
	}
	return &r, true
}

// Clear removes the persisted copy. Errors are logged and swallowed.
func (a *Adapter) Clear(ctx context.Context, sessionID string) {
	if err := a.store.Delete(ctx, keyFor(sessionID)); err != nil {
		log.Printf("WARN: [session] clear run: %v", err)
	}
}

// validRun guards against resuming into a corrupt state: the pool must be
// present and every counter must be consistent with it.
func validRun(r *models.Run) bool {
	if len(r.Pool) == 0 || r.Length != len(r.Pool) {
		return false
	}
	if r.CurrentIndex < 0 || r.CurrentIndex > r.Length {
		return false
	}
	if r.FirstTryCorrect < 0 || r.FirstTryCorrect > r.Length {
		return false
	}
	if len(r.Review) > r.Length {
		return false
	}
	for _, q := range r.Pool {
		if q.Text == "" || len(q.Options) == 0 {
			return false
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return false
		}
	}
	return true
}
