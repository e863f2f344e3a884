package analytics

import (
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/dukerupert/habitual/internal/model"
)

// fakeLog is an in-memory event log keyed by user then YYYY-MM-DD.
type fakeLog struct {
	counts map[int64]map[string]int
	notes  map[int64]map[string]string
	err    error
	calls  int

	// afterRead, if set, runs once after the next read has taken its
	// snapshot. It stands in for a write landing mid-computation.
	afterRead func()
}

func newFakeLog() *fakeLog {
	return &fakeLog{
		counts: make(map[int64]map[string]int),
		notes:  make(map[int64]map[string]string),
	}
}

func (f *fakeLog) set(userID int64, date string, count int) {
	if f.counts[userID] == nil {
		f.counts[userID] = make(map[string]int)
	}
	f.counts[userID][date] = count
}

func (f *fakeLog) setNote(userID int64, date, text string) {
	if f.notes[userID] == nil {
		f.notes[userID] = make(map[string]string)
	}
	f.notes[userID][date] = text
}

func (f *fakeLog) CompletionCount(userID int64, day time.Time) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	n := f.counts[userID][model.FormatDate(day)]
	f.fireAfterRead()
	return n, nil
}

func (f *fakeLog) fireAfterRead() {
	if hook := f.afterRead; hook != nil {
		f.afterRead = nil
		hook()
	}
}

func (f *fakeLog) SuccessDays(userID int64, threshold int) ([]time.Time, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var keys []string
	for k, n := range f.counts[userID] {
		if n >= threshold {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	days, err := parseDays(keys)
	if err != nil {
		return nil, err
	}
	f.fireAfterRead()
	return days, nil
}

func (f *fakeLog) Note(userID int64, day time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.notes[userID][model.FormatDate(day)], nil
}

// rangeNotes adds batched note loading to a fakeLog.
type rangeNotes struct {
	*fakeLog
	rangeCalls int
	noteCalls  int
}

func (r *rangeNotes) Note(userID int64, day time.Time) (string, error) {
	r.noteCalls++
	return r.fakeLog.Note(userID, day)
}

func (r *rangeNotes) ListRange(userID int64, from, to time.Time) (map[string]string, error) {
	r.rangeCalls++
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]string)
	for k, v := range r.notes[userID] {
		d := mustDate(k)
		if !d.Before(from) && !d.After(to) {
			out[k] = v
		}
	}
	return out, nil
}

type fakeThresholds map[int64]int

func (f fakeThresholds) SuccessThreshold(userID int64) (int, bool, error) {
	v, ok := f[userID]
	return v, ok, nil
}

var errStorage = errors.New("storage unreachable")

func mustDate(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func parseDays(values []string) ([]time.Time, error) {
	days := make([]time.Time, 0, len(values))
	for _, v := range values {
		d, err := model.ParseDate(v)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
