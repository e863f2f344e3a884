package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/auth"
	"github.com/dukerupert/habitual/internal/store"
	"github.com/dukerupert/habitual/internal/websocket"
)

const maxThreshold = 1000

type SettingsHandler struct {
	userStore *store.UserStore
	analytics *analytics.Service
	notify    notifier
	logger    *slog.Logger
}

func NewSettingsHandler(us *store.UserStore, svc *analytics.Service, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		userStore: us,
		analytics: svc,
		notify:    notifier{analytics: svc, hub: hub},
		logger:    logger,
	}
}

type thresholdResponse struct {
	Threshold int  `json:"threshold"`
	Custom    bool `json:"custom"`
}

func (h *SettingsHandler) GetThreshold(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	_, custom, err := h.userStore.SuccessThreshold(userID)
	if err != nil {
		h.logger.Error("get threshold", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get threshold")
		return
	}
	threshold, err := h.analytics.Threshold(userID)
	if err != nil {
		h.logger.Error("resolve threshold", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get threshold")
		return
	}
	writeJSON(w, http.StatusOK, thresholdResponse{Threshold: threshold, Custom: custom})
}

// UpdateThreshold sets the user's threshold; a null value restores the
// configured default.
func (h *SettingsHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold *int `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Threshold != nil && (*req.Threshold < 1 || *req.Threshold > maxThreshold) {
		writeError(w, http.StatusBadRequest, "threshold must be between 1 and 1000")
		return
	}

	userID := auth.UserID(r.Context())
	user, err := h.userStore.SetSuccessThreshold(userID, req.Threshold)
	if err != nil {
		h.logger.Error("set threshold", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update threshold")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	h.notify.changed(userID, websocket.NewMessage("settings", "updated", 0, nil))
	h.GetThreshold(w, r)
}
