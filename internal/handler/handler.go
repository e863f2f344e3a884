package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/model"
	"github.com/dukerupert/habitual/internal/websocket"
)

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseDay parses a YYYY-MM-DD value, defaulting to today when empty.
func parseDay(value string, today time.Time) (time.Time, error) {
	if value == "" {
		return today, nil
	}
	return model.ParseDate(value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAnalyticsError maps invalid input to 400 and logs anything else as an
// internal failure.
func writeAnalyticsError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	if errors.Is(err, analytics.ErrInvalidArgument) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

// notifier fans a write out to the analytics cache and the user's live
// connections.
type notifier struct {
	analytics *analytics.Service
	hub       *websocket.Hub
}

func (n notifier) changed(userID int64, msg websocket.Message) {
	n.analytics.Invalidate(userID)
	if n.hub != nil {
		n.hub.Broadcast(userID, msg)
	}
}
