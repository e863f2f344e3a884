package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/auth"
	"github.com/dukerupert/habitual/internal/model"
	"github.com/dukerupert/habitual/internal/store"
	"github.com/dukerupert/habitual/internal/websocket"
)

const maxNoteLen = 10000

type NoteHandler struct {
	noteStore *store.NoteStore
	notify    notifier
	logger    *slog.Logger
}

func NewNoteHandler(ns *store.NoteStore, svc *analytics.Service, hub *websocket.Hub, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		noteStore: ns,
		notify:    notifier{analytics: svc, hub: hub},
		logger:    logger,
	}
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	day, err := model.ParseDate(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := auth.UserID(r.Context())
	note, err := h.noteStore.Get(userID, day)
	if err != nil {
		h.logger.Error("get note", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get note")
		return
	}
	if note == nil {
		note = &model.DailyNote{UserID: userID, Day: model.FormatDate(day)}
	}
	writeJSON(w, http.StatusOK, note)
}

type saveNoteRequest struct {
	Content string `json:"content"`
}

func (h *NoteHandler) Save(w http.ResponseWriter, r *http.Request) {
	day, err := model.ParseDate(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req saveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Content) > maxNoteLen {
		writeError(w, http.StatusBadRequest, "note is too long")
		return
	}

	userID := auth.UserID(r.Context())
	note, err := h.noteStore.Save(userID, day, req.Content)
	if err != nil {
		h.logger.Error("save note", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save note")
		return
	}

	h.notify.changed(userID, websocket.NewMessage("note", "saved", 0, map[string]any{"day": note.Day}))
	writeJSON(w, http.StatusOK, note)
}
