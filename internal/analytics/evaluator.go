package analytics

import (
	"time"

	"github.com/dukerupert/habitual/internal/model"
)

// DefaultSuccessThreshold is the number of completed habits that makes a day
// a success day when neither configuration nor the user overrides it.
const DefaultSuccessThreshold = 5

// CompletionCounter reports how many of a user's habits were done on a day.
type CompletionCounter interface {
	CompletionCount(userID int64, day time.Time) (int, error)
}

// DaySuccess is the evaluation of one user-day.
type DaySuccess struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Threshold int    `json:"threshold"`
	Success   bool   `json:"success"`
}

// Evaluator decides whether a day counts as a success day.
type Evaluator struct {
	counts    CompletionCounter
	threshold int
}

func NewEvaluator(counts CompletionCounter, threshold int) (*Evaluator, error) {
	if threshold < 1 {
		return nil, invalidArgf("threshold must be at least 1, got %d", threshold)
	}
	return &Evaluator{counts: counts, threshold: threshold}, nil
}

func (e *Evaluator) Threshold() int {
	return e.threshold
}

// Evaluate returns the completion count for day and whether it reaches the
// threshold. Storage errors are returned unchanged.
func (e *Evaluator) Evaluate(userID int64, day time.Time) (DaySuccess, error) {
	day = model.Day(day)
	n, err := e.counts.CompletionCount(userID, day)
	if err != nil {
		return DaySuccess{}, err
	}
	return DaySuccess{
		Date:      model.FormatDate(day),
		Count:     n,
		Threshold: e.threshold,
		Success:   n >= e.threshold,
	}, nil
}
