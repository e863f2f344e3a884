package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/auth"
	"github.com/dukerupert/habitual/internal/model"
	"github.com/dukerupert/habitual/internal/store"
	"github.com/dukerupert/habitual/internal/websocket"
)

const maxHabitNameLen = 200

type HabitHandler struct {
	habitStore *store.HabitStore
	noteStore  *store.NoteStore
	analytics  *analytics.Service
	notify     notifier
	logger     *slog.Logger
}

func NewHabitHandler(hs *store.HabitStore, ns *store.NoteStore, svc *analytics.Service, hub *websocket.Hub, logger *slog.Logger) *HabitHandler {
	return &HabitHandler{
		habitStore: hs,
		noteStore:  ns,
		analytics:  svc,
		notify:     notifier{analytics: svc, hub: hub},
		logger:     logger,
	}
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	habits, err := h.habitStore.List(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list habits", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list habits")
		return
	}
	if habits == nil {
		habits = []model.Habit{}
	}
	writeJSON(w, http.StatusOK, habits)
}

type createHabitRequest struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Name) > maxHabitNameLen {
		writeError(w, http.StatusBadRequest, "name is too long")
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = model.DifficultyMedium
	}
	if !model.ValidDifficulty(req.Difficulty) {
		writeError(w, http.StatusBadRequest, "difficulty must be easy, medium or hard")
		return
	}

	userID := auth.UserID(r.Context())
	habit, err := h.habitStore.Create(userID, req.Name, req.Difficulty)
	if err != nil {
		h.logger.Error("create habit", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create habit")
		return
	}

	h.notify.changed(userID, websocket.NewMessage("habit", "created", habit.ID, nil))
	writeJSON(w, http.StatusCreated, habit)
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	deleted, err := h.habitStore.Delete(userID, id)
	if err != nil {
		h.logger.Error("delete habit", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete habit")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}

	h.notify.changed(userID, websocket.NewMessage("habit", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips a habit's completion for today, or for ?day= when given.
func (h *HabitHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	today := h.analytics.Today()
	day, err := parseDay(r.URL.Query().Get("day"), today)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if day.After(today) {
		writeError(w, http.StatusBadRequest, "cannot complete a habit in the future")
		return
	}

	userID := auth.UserID(r.Context())
	res, err := h.habitStore.ToggleCompletion(userID, id, day)
	if err != nil {
		h.logger.Error("toggle completion", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle habit")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}

	h.notify.changed(userID, websocket.NewMessage("completion", "toggled", id, map[string]any{
		"day":       res.Day,
		"completed": res.Completed,
	}))
	writeJSON(w, http.StatusOK, res)
}

func (h *HabitHandler) habitDay(w http.ResponseWriter, r *http.Request) (int64, time.Time, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, time.Time{}, false
	}
	day, err := model.ParseDate(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, time.Time{}, false
	}
	return id, day, true
}

// GetCompletion returns the log entry for a habit on a day. A day with no
// entry is reported as not done.
func (h *HabitHandler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	id, day, ok := h.habitDay(w, r)
	if !ok {
		return
	}

	userID := auth.UserID(r.Context())
	habit, err := h.habitStore.GetByID(userID, id)
	if err != nil {
		h.logger.Error("get habit", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load completion")
		return
	}
	if habit == nil {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}

	e, err := h.habitStore.GetCompletion(userID, id, day)
	if err != nil {
		h.logger.Error("get completion", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load completion")
		return
	}
	if e == nil {
		e = &model.CompletionEvent{HabitID: id, Day: model.FormatDate(day)}
	}
	writeJSON(w, http.StatusOK, e)
}

type setCompletionRequest struct {
	Done *bool `json:"done"`
}

// SetCompletion records an explicit done or not-done status for a day.
func (h *HabitHandler) SetCompletion(w http.ResponseWriter, r *http.Request) {
	id, day, ok := h.habitDay(w, r)
	if !ok {
		return
	}
	if day.After(h.analytics.Today()) {
		writeError(w, http.StatusBadRequest, "cannot complete a habit in the future")
		return
	}

	var req setCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Done == nil {
		writeError(w, http.StatusBadRequest, "done is required")
		return
	}

	userID := auth.UserID(r.Context())
	e, err := h.habitStore.SetCompletion(userID, id, day, *req.Done)
	if err != nil {
		h.logger.Error("set completion", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set completion")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}

	h.notify.changed(userID, websocket.NewMessage("completion", "set", id, map[string]any{
		"day":       e.Day,
		"completed": e.Status,
	}))
	writeJSON(w, http.StatusOK, e)
}

type todayResponse struct {
	Date      string                  `json:"date"`
	Habits    []model.HabitWithStatus `json:"habits"`
	Completed int                     `json:"completed"`
	Threshold int                     `json:"threshold"`
	Success   bool                    `json:"success"`
	Note      string                  `json:"note"`
}

// Today returns the habits with today's completion state, the day's
// evaluation and its note.
func (h *HabitHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	today := h.analytics.Today()

	habits, err := h.habitStore.ListWithStatus(userID, today)
	if err != nil {
		h.logger.Error("list habits with status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load today")
		return
	}
	if habits == nil {
		habits = []model.HabitWithStatus{}
	}

	ds, err := h.analytics.Day(userID, today)
	if err != nil {
		writeAnalyticsError(w, h.logger, err, "failed to load today")
		return
	}

	note, err := h.noteStore.Note(userID, today)
	if err != nil {
		h.logger.Error("get note", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load today")
		return
	}

	writeJSON(w, http.StatusOK, todayResponse{
		Date:      ds.Date,
		Habits:    habits,
		Completed: ds.Count,
		Threshold: ds.Threshold,
		Success:   ds.Success,
		Note:      note,
	})
}
