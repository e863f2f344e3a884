package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/handler"
	"github.com/dukerupert/habitual/internal/middleware"
	"github.com/dukerupert/habitual/internal/push"
	"github.com/dukerupert/habitual/internal/store"
	ws "github.com/dukerupert/habitual/internal/websocket"
)

// Options configures a Server.
type Options struct {
	Analytics          analytics.Config
	AnalyticsCacheSize int
	CookieSecure       bool
	LoginRateLimit     int
	Push               push.Config
	ReminderHour       int
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	analytics    *analytics.Service
	authH        *handler.AuthHandler
	habitH       *handler.HabitHandler
	noteH        *handler.NoteHandler
	statsH       *handler.StatsHandler
	settingsH    *handler.SettingsHandler
	pushH        *handler.PushHandler
	reminder     *push.Reminder
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	habitStore := store.NewHabitStore(db)
	noteStore := store.NewNoteStore(db)

	cache, err := analytics.NewCache(opts.AnalyticsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("analytics cache: %w", err)
	}
	svc, err := analytics.NewService(habitStore, noteStore, userStore, opts.Analytics, cache, logger.With("component", "analytics"))
	if err != nil {
		return nil, fmt.Errorf("analytics service: %w", err)
	}

	limit := opts.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}

	// Push notification service + reminder
	var pushH *handler.PushHandler
	var reminder *push.Reminder
	if opts.Push.Enabled() {
		pushStore := store.NewPushStore(db)
		pushSvc := push.NewService(opts.Push)
		pushH = handler.NewPushHandler(pushStore, pushSvc, pushSvc.VAPIDPublicKey(), logger.With("component", "push_handler"))
		reminder = push.NewReminder(pushSvc, pushStore, svc, opts.ReminderHour, logger.With("component", "push"))
	}

	return &Server{
		db:           db,
		hub:          hub,
		analytics:    svc,
		authH:        handler.NewAuthHandler(userStore, sessionStore, opts.CookieSecure, logger.With("component", "auth")),
		habitH:       handler.NewHabitHandler(habitStore, noteStore, svc, hub, logger.With("component", "habit")),
		noteH:        handler.NewNoteHandler(noteStore, svc, hub, logger.With("component", "note")),
		statsH:       handler.NewStatsHandler(svc, logger.With("component", "stats")),
		settingsH:    handler.NewSettingsHandler(userStore, svc, hub, logger.With("component", "settings")),
		pushH:        pushH,
		reminder:     reminder,
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(limit, time.Minute),
		logger:       logger,
	}, nil
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Reminder returns the push reminder, or nil when push is disabled.
func (s *Server) Reminder() *push.Reminder {
	return s.reminder
}

// Analytics returns the analytics service.
func (s *Server) Analytics() *analytics.Service {
	return s.analytics
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.Handle("POST /login", s.rateLimiter.Limit(http.HandlerFunc(s.authH.Login)))
	outerMux.Handle("POST /register", s.rateLimiter.Limit(http.HandlerFunc(s.authH.Register)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	mux.HandleFunc("GET /api/today", s.habitH.Today)
	mux.HandleFunc("GET /api/habits", s.habitH.List)
	mux.HandleFunc("POST /api/habits", s.habitH.Create)
	mux.HandleFunc("DELETE /api/habits/{id}", s.habitH.Delete)
	mux.HandleFunc("POST /api/habits/{id}/toggle", s.habitH.Toggle)
	mux.HandleFunc("GET /api/habits/{id}/days/{day}", s.habitH.GetCompletion)
	mux.HandleFunc("PUT /api/habits/{id}/days/{day}", s.habitH.SetCompletion)

	mux.HandleFunc("GET /api/notes/{day}", s.noteH.Get)
	mux.HandleFunc("PUT /api/notes/{day}", s.noteH.Save)

	mux.HandleFunc("GET /api/days/{day}", s.statsH.Day)
	mux.HandleFunc("GET /api/stats/streak", s.statsH.Streak)
	mux.HandleFunc("GET /api/stats/heatmap", s.statsH.Heatmap)

	mux.HandleFunc("GET /api/settings/threshold", s.settingsH.GetThreshold)
	mux.HandleFunc("PUT /api/settings/threshold", s.settingsH.UpdateThreshold)

	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
