package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/engine"
	"github.com/cluegrid/cluegrid/internal/game"
)

// RoomStore is the slice of persistence the room endpoints need.
type RoomStore interface {
	SaveRoom(ctx context.Context, room *game.Room) error
	LoadRoom(ctx context.Context, id uuid.UUID) (*game.Room, error)
	LoadRoomByCode(ctx context.Context, code string) (*game.Room, error)
	LoadPlayer(ctx context.Context, id uuid.UUID) (*game.Player, error)
	SavePlayer(ctx context.Context, p *game.Player) error
}

// RoomHandler serves the pre-game HTTP surface: create a room, join by code,
// start a game from a room.
type RoomHandler struct {
	store    RoomStore
	engine   *engine.Engine
	settings game.GameSettings
	rng      *rand.Rand
}

// NewRoomHandler creates the room HTTP handler. New games launch with the
// given settings.
func NewRoomHandler(store RoomStore, eng *engine.Engine, settings game.GameSettings) *RoomHandler {
	return &RoomHandler{
		store:    store,
		engine:   eng,
		settings: settings,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (h *RoomHandler) newRoomCode() string {
	code := make([]byte, 4)
	for i := range code {
		code[i] = roomCodeAlphabet[h.rng.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}

type createRoomRequest struct {
	HostID   string `json:"host_id"`
	HostName string `json:"host_name"`
}

type joinRoomRequest struct {
	Code       string `json:"code"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type startGameRequest struct {
	RoomID string `json:"room_id"`
	HostID string `json:"host_id"`
}

// HandleCreateRoom creates a room with a fresh join code.
func (h *RoomHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	hostID, err := uuid.Parse(req.HostID)
	if err != nil {
		http.Error(w, "invalid host_id", http.StatusBadRequest)
		return
	}

	room := &game.Room{
		ID:        uuid.New(),
		Code:      h.newRoomCode(),
		HostID:    hostID,
		PlayerIDs: []uuid.UUID{hostID},
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.SaveRoom(r.Context(), room); err != nil {
		log.Error().Err(err).Msg("failed to save room")
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}
	if err := h.store.SavePlayer(r.Context(), &game.Player{ID: hostID, Name: req.HostName}); err != nil {
		log.Error().Err(err).Msg("failed to save host player")
	}

	writeJSON(w, http.StatusCreated, room)
}

// HandleJoinRoom adds a player to a room, looked up by its join code.
func (h *RoomHandler) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		http.Error(w, "invalid player_id", http.StatusBadRequest)
		return
	}

	room, err := h.store.LoadRoomByCode(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("code", req.Code).Msg("failed to load room")
		http.Error(w, "failed to join room", http.StatusInternalServerError)
		return
	}

	joined := false
	for _, id := range room.PlayerIDs {
		if id == playerID {
			joined = true
			break
		}
	}
	if !joined {
		room.PlayerIDs = append(room.PlayerIDs, playerID)
		if err := h.store.SaveRoom(r.Context(), room); err != nil {
			log.Error().Err(err).Msg("failed to save room")
			http.Error(w, "failed to join room", http.StatusInternalServerError)
			return
		}
	}
	if err := h.store.SavePlayer(r.Context(), &game.Player{ID: playerID, Name: req.PlayerName}); err != nil {
		log.Error().Err(err).Msg("failed to save player")
	}

	// A room that already launched tells the joiner where to connect.
	writeJSON(w, http.StatusOK, room)
}

// HandleStartGame builds a game for the room and registers its live session.
func (h *RoomHandler) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		http.Error(w, "invalid room_id", http.StatusBadRequest)
		return
	}
	hostID, err := uuid.Parse(req.HostID)
	if err != nil {
		http.Error(w, "invalid host_id", http.StatusBadRequest)
		return
	}

	room, err := h.store.LoadRoom(r.Context(), roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if room.HostID != hostID {
		http.Error(w, "only the host can start a game", http.StatusForbidden)
		return
	}
	if room.GameID != nil {
		http.Error(w, "room already has a game", http.StatusConflict)
		return
	}

	players := make([]*game.Player, 0, len(room.PlayerIDs))
	for _, id := range room.PlayerIDs {
		p, err := h.store.LoadPlayer(r.Context(), id)
		if err != nil {
			log.Warn().Err(err).Str("player_id", id.String()).Msg("room player missing, skipping")
			continue
		}
		players = append(players, p)
	}

	g, err := h.engine.CreateGame(r.Context(), room, players, h.settings)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to create game")
		http.Error(w, "failed to create game", http.StatusInternalServerError)
		return
	}

	room.GameID = &g.ID
	if err := h.store.SaveRoom(r.Context(), room); err != nil {
		log.Error().Err(err).Msg("failed to link game to room")
	}

	writeJSON(w, http.StatusCreated, map[string]string{"game_id": g.ID.String()})
}

// RegisterRoutes registers room routes with an HTTP mux
func (h *RoomHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/rooms", h.HandleCreateRoom)
	mux.HandleFunc("/rooms/join", h.HandleJoinRoom)
	mux.HandleFunc("/rooms/start", h.HandleStartGame)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
