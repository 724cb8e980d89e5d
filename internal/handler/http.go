package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/scoreboard-live/internal/board"
	"github.com/scoreboard-live/internal/service"
	"github.com/scoreboard-live/internal/websocket"
)

// sessionHeader carries the caller-generated session id used by the PIN cache.
const sessionHeader = "X-Session-ID"

// Handler provides HTTP handlers for the scoreboard API
type Handler struct {
	service *service.BoardService
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.BoardService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BoardResponse is the outward board shape. The pin itself never leaves the
// server; clients only learn whether one is set.
type BoardResponse struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Data            board.ScoreboardData `json:"data"`
	PinProtected    bool                 `json:"pin_protected"`
	BackgroundColor string               `json:"background_color,omitempty"`
	CreatedAt       string               `json:"created_at,omitempty"`
	TimerSeconds    int                  `json:"timer_seconds,omitempty"`
}

func toBoardResponse(sb board.Scoreboard) BoardResponse {
	return BoardResponse{
		ID:              sb.ID,
		Title:           sb.Title,
		Data:            sb.Data,
		PinProtected:    sb.Pin != "",
		BackgroundColor: sb.BackgroundColor,
		CreatedAt:       sb.CreatedAt,
		TimerSeconds:    sb.TimerSeconds,
	}
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/boards", func(r chi.Router) {
			r.Post("/", h.CreateBoard)
			r.Get("/", h.ListBoards)

			r.Route("/{boardID}", func(r chi.Router) {
				r.Get("/", h.GetBoard)
				r.Delete("/", h.DeleteBoard)
				r.Get("/standings", h.GetStandings)
				r.Post("/verify-pin", h.VerifyPin)

				r.Put("/title", h.UpdateTitle)
				r.Put("/pin", h.UpdatePin)
				r.Put("/background", h.UpdateBackgroundColor)
				r.Put("/data", h.ReplaceData)
				r.Put("/logo", h.UpdateLogo)
				r.Put("/increment-buttons", h.UpdateIncrementButtons)

				r.Post("/participants", h.AddParticipant)
				r.Put("/participants/{participantID}", h.RenameParticipant)
				r.Delete("/participants/{participantID}", h.RemoveParticipant)

				r.Post("/activities", h.AddActivity)
				r.Put("/activities/{activityID}", h.RenameActivity)
				r.Delete("/activities/{activityID}", h.RemoveActivity)

				r.Post("/activities/{activityID}/subgames", h.AddSubGame)
				r.Put("/activities/{activityID}/subgames/{subGameID}", h.RenameSubGame)
				r.Delete("/activities/{activityID}/subgames/{subGameID}", h.RemoveSubGame)

				r.Post("/scores", h.AdjustScore)
			})
		})

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, X-Session-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps domain errors to HTTP statuses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case board.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, board.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, board.ErrInternalError)
	}
}

// requireAccess enforces the PIN gate on mutating endpoints. Unrestricted
// boards always pass; restricted ones need a session that already presented
// the PIN.
func (h *Handler) requireAccess(w http.ResponseWriter, r *http.Request, boardID string) bool {
	ok, err := h.service.CheckAccess(r.Context(), boardID, r.Header.Get(sessionHeader))
	if err != nil {
		h.writeServiceError(w, err)
		return false
	}
	if !ok {
		h.writeError(w, http.StatusForbidden, board.ErrPinRejected)
		return false
	}
	return true
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// CreateBoard creates a new seeded board
func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	sb, err := h.service.CreateBoard(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    toBoardResponse(sb),
	})
}

// ListBoards returns summaries of all boards
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListBoards(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, summaries)
}

// GetBoard returns one board
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	sb, err := h.service.GetBoard(r.Context(), boardID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, toBoardResponse(sb))
}

// DeleteBoard deletes a board
func (h *Handler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	if err := h.service.DeleteBoard(r.Context(), boardID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// GetStandings returns the derived leaderboard for a board
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	sb, err := h.service.GetBoard(r.Context(), boardID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, sb.Data.RankedParticipants())
}

// VerifyPin checks a submitted PIN and authorizes the session on success
func (h *Handler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return
	}

	ok, err := h.service.VerifyPin(r.Context(), boardID, r.Header.Get(sessionHeader), req.Pin)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !ok {
		// Reported inline; no lockout, no rate limiting.
		h.writeError(w, http.StatusForbidden, board.ErrPinRejected)
		return
	}
	h.writeSuccess(w, map[string]bool{"authorized": true})
}

// UpdateTitle replaces a board's title
func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return
	}
	if err := h.service.UpdateTitle(r.Context(), boardID, req.Title); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "updated"})
}

// UpdatePin replaces a board's pin; empty removes the restriction
func (h *Handler) UpdatePin(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return
	}
	if err := h.service.UpdatePin(r.Context(), boardID, r.Header.Get(sessionHeader), req.Pin); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "updated"})
}

// UpdateBackgroundColor replaces a board's background color
func (h *Handler) UpdateBackgroundColor(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	var req struct {
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return
	}
	if err := h.service.UpdateBackgroundColor(r.Context(), boardID, req.Color); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "updated"})
}

// ReplaceData replaces the whole board document. The payload is normalized
// before it is stored, like every externally-sourced document.
func (h *Handler) ReplaceData(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	var req struct {
		Data any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return
	}
	data := board.ParseData(req.Data, "")
	if err := h.service.ReplaceData(r.Context(), boardID, data); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, data)
}

// UpdateLogo replaces the board logo
func (h *Handler) UpdateLogo(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	var req struct {
		Logo string `json:"logo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.SetLogo(req.Logo), nil
	})
}

// UpdateIncrementButtons replaces the controller's quick-increment values
func (h *Handler) UpdateIncrementButtons(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	var req struct {
		Values []float64 `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.SetIncrementButtons(req.Values), nil
	})
}

// AddParticipant appends a participant with a default name
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.AddParticipant(), nil
	})
}

// RenameParticipant renames a participant
func (h *Handler) RenameParticipant(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	participantID := chi.URLParam(r, "participantID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.RenameParticipant(participantID, name)
	})
}

// RemoveParticipant removes a participant
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	participantID := chi.URLParam(r, "participantID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.RemoveParticipant(participantID)
	})
}

// AddActivity appends a direct-scored activity
func (h *Handler) AddActivity(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.AddActivity(), nil
	})
}

// RenameActivity renames an activity
func (h *Handler) RenameActivity(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	activityID := chi.URLParam(r, "activityID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.RenameActivity(activityID, name)
	})
}

// RemoveActivity removes an activity
func (h *Handler) RemoveActivity(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	activityID := chi.URLParam(r, "activityID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.RemoveActivity(activityID)
	})
}

// AddSubGame appends a sub-game to an activity
func (h *Handler) AddSubGame(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	activityID := chi.URLParam(r, "activityID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.AddSubGame(activityID)
	})
}

// RenameSubGame renames a sub-game
func (h *Handler) RenameSubGame(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	activityID := chi.URLParam(r, "activityID")
	subGameID := chi.URLParam(r, "subGameID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.RenameSubGame(activityID, subGameID, name)
	})
}

// RemoveSubGame removes a sub-game
func (h *Handler) RemoveSubGame(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	activityID := chi.URLParam(r, "activityID")
	subGameID := chi.URLParam(r, "subGameID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	h.applyTransform(w, r, boardID, func(d board.ScoreboardData) (board.ScoreboardData, error) {
		return d.RemoveSubGame(activityID, subGameID)
	})
}

// AdjustScore applies a delta or absolute score value
func (h *Handler) AdjustScore(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	if !h.requireAccess(w, r, boardID) {
		return
	}
	var adj service.ScoreAdjustment
	if err := json.NewDecoder(r.Body).Decode(&adj); err != nil {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return
	}
	adj.BoardID = boardID
	if err := h.service.ApplyScoreAdjustment(r.Context(), adj); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "applied"})
}

// applyTransform runs a document transform and responds with the new document
func (h *Handler) applyTransform(w http.ResponseWriter, r *http.Request, boardID string, transform func(board.ScoreboardData) (board.ScoreboardData, error)) {
	next, err := h.service.Apply(r.Context(), boardID, transform)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeSuccess(w, next)
}

// decodeName reads the common {"name": ...} request body
func (h *Handler) decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.writeError(w, http.StatusBadRequest, board.ErrInvalidRequest)
		return "", false
	}
	return req.Name, true
}
