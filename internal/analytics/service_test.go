package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, log *fakeLog, thresholds ThresholdSource, cacheSize int) *Service {
	t.Helper()
	cache, err := NewCache(cacheSize)
	require.NoError(t, err)
	svc, err := NewService(log, log, thresholds, Config{SuccessThreshold: 5, WindowDays: 7, Location: time.UTC}, cache, discardLogger())
	require.NoError(t, err)
	svc.SetClock(func() time.Time { return time.Date(2026, 2, 15, 18, 30, 0, 0, time.UTC) })
	return svc
}

func TestServiceStreaks(t *testing.T) {
	log := newFakeLog()
	log.set(1, "2026-02-13", 5)
	log.set(1, "2026-02-14", 6)
	log.set(1, "2026-02-15", 5)
	log.set(1, "2026-02-10", 4)

	svc := newTestService(t, log, nil, 0)

	st, err := svc.Streaks(1)
	require.NoError(t, err)
	assert.Equal(t, Streak{Current: 3, Best: 3}, st)

	st, err = svc.Streaks(2)
	require.NoError(t, err)
	assert.Equal(t, Streak{}, st, "user without history")
}

func TestServiceNoGraceDay(t *testing.T) {
	log := newFakeLog()
	for d := 5; d <= 14; d++ {
		log.set(1, time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), 5)
	}
	svc := newTestService(t, log, nil, 0)

	st, err := svc.Streaks(1)
	require.NoError(t, err)
	assert.Equal(t, Streak{Current: 0, Best: 10}, st)
}

func TestServiceUserIsolation(t *testing.T) {
	log := newFakeLog()
	log.set(1, "2026-02-15", 5)
	log.set(2, "2026-02-15", 2)
	log.set(2, "2026-02-14", 5)

	svc := newTestService(t, log, nil, 0)

	a, err := svc.Streaks(1)
	require.NoError(t, err)
	b, err := svc.Streaks(2)
	require.NoError(t, err)
	assert.Equal(t, Streak{Current: 1, Best: 1}, a)
	assert.Equal(t, Streak{Current: 0, Best: 1}, b)

	hmA, err := svc.Heatmap(1, 0)
	require.NoError(t, err)
	hmB, err := svc.Heatmap(2, 0)
	require.NoError(t, err)
	assert.Equal(t, ColorGreen, hmA.Cells[0].Color)
	assert.Equal(t, ColorYellow, hmB.Cells[0].Color)
	assert.Equal(t, ColorRed, hmA.Cells[1].Color)
	assert.Equal(t, ColorGreen, hmB.Cells[1].Color)
}

func TestServicePerUserThreshold(t *testing.T) {
	log := newFakeLog()
	log.set(1, "2026-02-15", 2)
	log.set(2, "2026-02-15", 2)

	svc := newTestService(t, log, fakeThresholds{1: 2}, 0)

	th, err := svc.Threshold(1)
	require.NoError(t, err)
	assert.Equal(t, 2, th)
	th, err = svc.Threshold(2)
	require.NoError(t, err)
	assert.Equal(t, 5, th)

	ds, err := svc.Day(1, mustDate("2026-02-15"))
	require.NoError(t, err)
	assert.True(t, ds.Success)
	ds, err = svc.Day(2, mustDate("2026-02-15"))
	require.NoError(t, err)
	assert.False(t, ds.Success)

	st, _ := svc.Streaks(1)
	assert.Equal(t, 1, st.Current)
	st, _ = svc.Streaks(2)
	assert.Equal(t, 0, st.Best)
}

func TestServiceHeatmapDefaultWindow(t *testing.T) {
	svc := newTestService(t, newFakeLog(), nil, 0)

	hm, err := svc.Heatmap(1, 0)
	require.NoError(t, err)
	assert.Len(t, hm.Cells, 7)
	assert.Equal(t, "2026-02-15", hm.End)

	_, err = svc.Heatmap(1, MaxWindowDays+1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestServiceTodayUsesLocation(t *testing.T) {
	log := newFakeLog()
	loc := time.FixedZone("UTC-8", -8*3600)
	svc, err := NewService(log, log, nil, Config{Location: loc}, nil, discardLogger())
	require.NoError(t, err)
	// 03:00 UTC on the 16th is still the 15th eight hours west.
	svc.SetClock(func() time.Time { return time.Date(2026, 2, 16, 3, 0, 0, 0, time.UTC) })

	assert.Equal(t, mustDate("2026-02-15"), svc.Today())
	hm, err := svc.Heatmap(1, 0)
	require.NoError(t, err)
	assert.Len(t, hm.Cells, DefaultWindowDays)
	th, _ := svc.Threshold(1)
	assert.Equal(t, DefaultSuccessThreshold, th)
}

func TestNewServiceRejectsConfig(t *testing.T) {
	_, err := NewService(newFakeLog(), newFakeLog(), nil, Config{SuccessThreshold: -1}, nil, discardLogger())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewService(newFakeLog(), newFakeLog(), nil, Config{WindowDays: MaxWindowDays + 1}, nil, discardLogger())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestServiceCacheReadThrough(t *testing.T) {
	log := newFakeLog()
	log.set(1, "2026-02-15", 5)
	log.set(2, "2026-02-15", 5)
	svc := newTestService(t, log, nil, 16)

	first, err := svc.Streaks(1)
	require.NoError(t, err)
	svc.Streaks(2)
	calls := log.calls

	// Cached: a new completion is not visible until invalidated.
	log.set(1, "2026-02-14", 5)
	again, err := svc.Streaks(1)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, calls, log.calls, "cache hit must not query the log")

	svc.Invalidate(1)
	assert.Equal(t, 1, svc.cache.Len(), "only user 1 entries are dropped")

	fresh, err := svc.Streaks(1)
	require.NoError(t, err)
	assert.Equal(t, Streak{Current: 2, Best: 2}, fresh)
}

func TestServiceCacheDropsStreakRacingWrite(t *testing.T) {
	log := newFakeLog()
	log.set(1, "2026-02-14", 5)
	svc := newTestService(t, log, nil, 16)

	// A toggle commits for today while the streak is being computed from
	// the older success days.
	log.afterRead = func() {
		log.set(1, "2026-02-15", 5)
		svc.Invalidate(1)
	}
	st, err := svc.Streaks(1)
	require.NoError(t, err)
	assert.Equal(t, Streak{Current: 0, Best: 1}, st, "computed from the pre-write snapshot")
	assert.Equal(t, 0, svc.cache.Len(), "a result that raced a write must not be cached")

	st, err = svc.Streaks(1)
	require.NoError(t, err)
	assert.Equal(t, Streak{Current: 2, Best: 2}, st)
}

func TestServiceCacheDropsHeatmapRacingWrite(t *testing.T) {
	log := newFakeLog()
	svc := newTestService(t, log, nil, 16)

	log.afterRead = func() {
		log.set(1, "2026-02-15", 5)
		svc.Invalidate(1)
	}
	hm, err := svc.Heatmap(1, 3)
	require.NoError(t, err)
	assert.Equal(t, ColorRed, hm.Cells[0].Color)

	hm, err = svc.Heatmap(1, 3)
	require.NoError(t, err)
	assert.Equal(t, ColorGreen, hm.Cells[0].Color)
}

func TestServiceCacheKeepsOtherUsersAcrossInvalidate(t *testing.T) {
	log := newFakeLog()
	log.set(2, "2026-02-15", 5)
	svc := newTestService(t, log, nil, 16)

	log.afterRead = func() { svc.Invalidate(1) }
	_, err := svc.Streaks(2)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.cache.Len(), "invalidating user 1 does not affect user 2")
}

func TestServiceCacheKeyedByDay(t *testing.T) {
	log := newFakeLog()
	log.set(1, "2026-02-15", 5)
	svc := newTestService(t, log, nil, 16)

	st, _ := svc.Streaks(1)
	assert.Equal(t, 1, st.Current)

	svc.SetClock(func() time.Time { return time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC) })
	st, _ = svc.Streaks(1)
	assert.Equal(t, 0, st.Current, "a new day must not reuse yesterday's entry")
}

func TestServicePropagatesStorageError(t *testing.T) {
	log := newFakeLog()
	log.err = errStorage
	svc := newTestService(t, log, nil, 0)

	_, err := svc.Streaks(1)
	assert.ErrorIs(t, err, errStorage)
	_, err = svc.Heatmap(1, 0)
	assert.ErrorIs(t, err, errStorage)
}

func TestNilCacheIsDisabled(t *testing.T) {
	c, err := NewCache(0)
	require.NoError(t, err)
	assert.Nil(t, c)
	c.InvalidateUser(1)
	assert.Equal(t, 0, c.Len())
}
