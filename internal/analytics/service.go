package analytics

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/habitual/internal/model"
)

// EventLog is the read side of the completion log.
type EventLog interface {
	CompletionCounter
	SuccessDays(userID int64, threshold int) ([]time.Time, error)
}

// ThresholdSource returns a per-user threshold override, if one is set.
type ThresholdSource interface {
	SuccessThreshold(userID int64) (int, bool, error)
}

type Config struct {
	SuccessThreshold int
	WindowDays       int
	Location         *time.Location
}

// Service derives streaks and heatmaps from the event log on every call,
// optionally through a Cache.
type Service struct {
	log        EventLog
	notes      NoteReader
	thresholds ThresholdSource
	cfg        Config
	cache      *Cache
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(log EventLog, notes NoteReader, thresholds ThresholdSource, cfg Config, cache *Cache, logger *slog.Logger) (*Service, error) {
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = DefaultSuccessThreshold
	}
	if cfg.SuccessThreshold < 1 {
		return nil, invalidArgf("success threshold must be at least 1, got %d", cfg.SuccessThreshold)
	}
	if cfg.WindowDays == 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.WindowDays < 1 || cfg.WindowDays > MaxWindowDays {
		return nil, invalidArgf("window must be between 1 and %d days, got %d", MaxWindowDays, cfg.WindowDays)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		log:        log,
		notes:      notes,
		thresholds: thresholds,
		cfg:        cfg,
		cache:      cache,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// SetClock overrides the time source used to determine today.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the current time in the configured location.
func (s *Service) Now() time.Time {
	return s.now().In(s.cfg.Location)
}

// Today returns the current calendar day in the configured location.
func (s *Service) Today() time.Time {
	return model.Day(s.Now())
}

// Threshold resolves the success threshold for userID.
func (s *Service) Threshold(userID int64) (int, error) {
	if s.thresholds != nil {
		v, ok, err := s.thresholds.SuccessThreshold(userID)
		if err != nil {
			return 0, err
		}
		if ok {
			return v, nil
		}
	}
	return s.cfg.SuccessThreshold, nil
}

func (s *Service) evaluator(userID int64) (*Evaluator, error) {
	threshold, err := s.Threshold(userID)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(s.log, threshold)
}

// Day evaluates a single day for userID.
func (s *Service) Day(userID int64, day time.Time) (DaySuccess, error) {
	e, err := s.evaluator(userID)
	if err != nil {
		return DaySuccess{}, err
	}
	return e.Evaluate(userID, day)
}

// Streaks computes the user's current and best streaks as of today.
func (s *Service) Streaks(userID int64) (Streak, error) {
	today := s.Today()
	key := cacheKey{userID: userID, asOf: model.FormatDate(today), kind: "streak"}
	gen := s.cache.generation(userID)
	if v, ok := s.cache.get(key); ok {
		return v.(Streak), nil
	}

	threshold, err := s.Threshold(userID)
	if err != nil {
		return Streak{}, err
	}
	days, err := s.log.SuccessDays(userID, threshold)
	if err != nil {
		return Streak{}, err
	}
	st, err := CalculateStreak(days, today)
	if err != nil {
		return Streak{}, err
	}

	s.logger.Debug("computed streak", "user_id", userID, "success_days", len(days), "current", st.Current, "best", st.Best)
	s.cache.add(key, st, gen)
	return st, nil
}

// Heatmap builds the per-day activity map for the trailing window days.
// A window of zero uses the configured default.
func (s *Service) Heatmap(userID int64, window int) (Heatmap, error) {
	if window == 0 {
		window = s.cfg.WindowDays
	}
	today := s.Today()
	key := cacheKey{userID: userID, asOf: model.FormatDate(today), kind: fmt.Sprintf("heatmap:%d", window)}
	gen := s.cache.generation(userID)
	if v, ok := s.cache.get(key); ok {
		return v.(Heatmap), nil
	}

	e, err := s.evaluator(userID)
	if err != nil {
		return Heatmap{}, err
	}
	hm, err := BuildHeatmap(e, s.notes, userID, today, window)
	if err != nil {
		return Heatmap{}, err
	}

	s.cache.add(key, hm, gen)
	return hm, nil
}

// Invalidate must be called after any write to userID's log, notes or
// threshold.
func (s *Service) Invalidate(userID int64) {
	s.cache.InvalidateUser(userID)
}
