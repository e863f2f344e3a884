package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/auth"
	"github.com/dukerupert/habitual/internal/model"
)

type StatsHandler struct {
	analytics *analytics.Service
	logger    *slog.Logger
}

func NewStatsHandler(svc *analytics.Service, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{analytics: svc, logger: logger}
}

func (h *StatsHandler) Streak(w http.ResponseWriter, r *http.Request) {
	st, err := h.analytics.Streaks(auth.UserID(r.Context()))
	if err != nil {
		writeAnalyticsError(w, h.logger, err, "failed to compute streak")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Heatmap accepts an optional ?days= window.
func (h *StatsHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	window := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		if n == 0 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		window = n
	}

	hm, err := h.analytics.Heatmap(auth.UserID(r.Context()), window)
	if err != nil {
		writeAnalyticsError(w, h.logger, err, "failed to build heatmap")
		return
	}
	writeJSON(w, http.StatusOK, hm)
}

// Day evaluates a single calendar day.
func (h *StatsHandler) Day(w http.ResponseWriter, r *http.Request) {
	day, err := model.ParseDate(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := h.analytics.Day(auth.UserID(r.Context()), day)
	if err != nil {
		writeAnalyticsError(w, h.logger, err, "failed to evaluate day")
		return
	}
	writeJSON(w, http.StatusOK, ds)
}
