package analytics

import (
	"time"

	"github.com/dukerupert/habitual/internal/model"
)

const oneDay = 24 * time.Hour

type Streak struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// CalculateStreak computes the current and best runs of consecutive days.
// days must be ascending and free of duplicates; anything else is rejected
// with ErrInvalidArgument. The current streak is non-zero only when the last
// run ends exactly on today.
func CalculateStreak(days []time.Time, today time.Time) (Streak, error) {
	if len(days) == 0 {
		return Streak{}, nil
	}
	today = model.Day(today)

	run, best := 1, 1
	prev := model.Day(days[0])
	for _, d := range days[1:] {
		d = model.Day(d)
		gap := d.Sub(prev)
		if gap <= 0 {
			return Streak{}, invalidArgf("success days out of order at %s", model.FormatDate(d))
		}
		if gap == oneDay {
			run++
		} else {
			run = 1
		}
		best = max(best, run)
		prev = d
	}

	var current int
	if prev.Equal(today) {
		current = run
	}
	return Streak{Current: current, Best: best}, nil
}
