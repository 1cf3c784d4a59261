package run

import (
	"fmt"
	"math"
	"strconv"

	"github.com/selfquiz/backend/internal/models"
)

// Derived metrics are recomputed from the Run on demand; nothing here is
// stored alongside its source fields.

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// OptionLabel renders an option as shown to the user, e.g. "B. 40mg".
// Indices beyond the alphabet fall back to a 1-based number.
func OptionLabel(idx int, text string) string {
	if idx >= 0 && idx < len(letters) {
		return fmt.Sprintf("%c. %s", letters[idx], text)
	}
	return strconv.Itoa(idx+1) + ". " + text
}

func State(r *models.Run) models.RunState {
	if r.CurrentIndex >= r.Length {
		return models.RunCompleted
	}
	return models.RunInProgress
}

// MasteryPercent is the share of the run answered correctly on the first
// try, rounded to a whole percent.
func MasteryPercent(r *models.Run) int {
	if r.Length == 0 {
		return 0
	}
	return int(math.Round(float64(r.FirstTryCorrect) / float64(r.Length) * 100))
}

func RemainingToMaster(r *models.Run) int {
	remaining := r.Length - r.FirstTryCorrect
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PositionLabel renders the "Question: N / M" counter; on a completed run
// it sticks at M / M rather than overflowing.
func PositionLabel(r *models.Run) string {
	pos := r.CurrentIndex + 1
	if pos > r.Length {
		pos = r.Length
	}
	return fmt.Sprintf("%d / %d", pos, r.Length)
}

func Summary(r *models.Run) *models.Summary {
	return &models.Summary{
		FirstTryCorrect: r.FirstTryCorrect,
		Total:           r.Length,
		Percent:         MasteryPercent(r),
		Review:          r.Review,
	}
}
