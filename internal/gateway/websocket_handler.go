package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/engine"
	"github.com/cluegrid/cluegrid/internal/game"
)

// WebSocketHandler handles WebSocket upgrade requests for game connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	engine            *engine.Engine
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, eng *engine.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		engine:            eng,
	}
}

// HandleGameConnection handles WebSocket connections for a specific game.
// The player joins (or reconnects to) the session before the upgrade so the
// first frames the client receives already reflect their membership.
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	gameIDStr := r.URL.Query().Get("game_id")
	if gameIDStr == "" {
		http.Error(w, "game_id is required", http.StatusBadRequest)
		return
	}
	gameID, err := uuid.Parse(gameIDStr)
	if err != nil {
		http.Error(w, "invalid game_id format", http.StatusBadRequest)
		return
	}

	playerIDStr := r.URL.Query().Get("player_id")
	if playerIDStr == "" {
		http.Error(w, "player_id is required", http.StatusBadRequest)
		return
	}
	playerID, err := uuid.Parse(playerIDStr)
	if err != nil {
		http.Error(w, "invalid player_id format", http.StatusBadRequest)
		return
	}

	// In production the name would come from an authenticated profile.
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "anonymous"
	}

	session, err := h.engine.Attach(r.Context(), gameID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("game_id", gameID.String()).
			Msg("game not found for WebSocket connection")
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	if err := session.Join(&game.Player{
		ID:        playerID,
		Name:      name,
		FontStyle: r.URL.Query().Get("font_style"),
	}); err != nil {
		http.Error(w, "failed to join game", http.StatusInternalServerError)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, playerID, gameID); err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID.String()).
			Str("player_id", playerID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleGameState serves the current full game snapshot, used by clients to
// resynchronize after a reconnect.
func (h *WebSocketHandler) HandleGameState(w http.ResponseWriter, r *http.Request) {
	gameIDStr := r.URL.Query().Get("game_id")
	gameID, err := uuid.Parse(gameIDStr)
	if err != nil {
		http.Error(w, "invalid game_id format", http.StatusBadRequest)
		return
	}

	snapshot, err := h.engine.Snapshot(gameID)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snapshot)
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/game", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("/games/state", h.HandleGameState)
}
