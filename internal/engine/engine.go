// Package engine implements the authoritative game state machine. Each live
// game is owned by a single Session actor; every player action and timer fire
// for that game serializes through the session, so state invariants never
// observe interleaved partial updates.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/events"
	"github.com/cluegrid/cluegrid/internal/game"
)

// Publisher fans emitted events out to session participants. Delivery is
// at-least-once and must never gate gameplay.
type Publisher interface {
	Publish(ctx context.Context, event *events.GameEvent) error
}

// GameDelta is the partial-field update journalled after each mutation.
// Values are copied out under the session lock so the journal writer never
// races the live state.
type GameDelta struct {
	GameID          uuid.UUID      `json:"game_id"`
	Status          game.GameStatus `json:"status"`
	CurrentRound    int            `json:"current_round"`
	Scores          map[string]int `json:"scores"`
	PlayerInControl *string        `json:"player_in_control,omitempty"`
	ActiveClueID    *string        `json:"active_clue_id,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Store is the persistence gateway the engine depends on. Durability is
// best-effort: write failures are retried by the gateway and never roll back
// in-memory state.
type Store interface {
	LoadGame(ctx context.Context, id uuid.UUID) (*game.Game, error)
	SaveGame(ctx context.Context, g *game.Game) error
	ApplyGameDelta(ctx context.Context, delta GameDelta) error
	SavePlayer(ctx context.Context, p *game.Player) error
}

// Catalog supplies categories at round-construction time, outside the hot
// state-machine path.
type Catalog interface {
	FetchRandomCategories(ctx context.Context, count, cluesPerCategory int) ([]game.CatalogCategory, error)
}

// Engine owns the per-game sessions. Games run fully in parallel with no
// shared mutable state between them.
type Engine struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	store     Store
	publisher Publisher
	catalog   Catalog
	clock     clockwork.Clock
}

// NewEngine creates an engine with no live sessions.
func NewEngine(store Store, publisher Publisher, catalog Catalog, clk clockwork.Clock) *Engine {
	return &Engine{
		sessions:  make(map[uuid.UUID]*Session),
		store:     store,
		publisher: publisher,
		catalog:   catalog,
		clock:     clk,
	}
}

// CreateGame builds the boards for a new match, persists the initial
// snapshot and registers a live session for it.
func (e *Engine) CreateGame(ctx context.Context, room *game.Room, players []*game.Player, settings game.GameSettings) (*game.Game, error) {
	builder := game.NewBoardBuilder(settings)

	var rounds []*game.Round
	for _, kind := range settings.RoundOrder {
		count := settings.CategoriesPerRound
		clues := settings.CluesPerCategory
		if kind == game.RoundFinal {
			count, clues = 1, 1
		}
		cats, err := e.catalog.FetchRandomCategories(ctx, count, clues)
		if err != nil {
			return nil, fmt.Errorf("fetch categories for %s round: %w", kind, err)
		}
		round, err := builder.BuildRound(kind, cats)
		if err != nil {
			return nil, fmt.Errorf("build %s round: %w", kind, err)
		}
		rounds = append(rounds, round)
	}

	g := &game.Game{
		ID:           uuid.New(),
		RoomID:       room.ID,
		HostID:       room.HostID,
		Status:       game.GameStatusLobby,
		Settings:     settings,
		Rounds:       rounds,
		Players:      make(map[uuid.UUID]*game.Player),
		ReadyForNext: make(map[uuid.UUID]bool),
		CreatedAt:    time.Now().UTC(),
	}
	for _, p := range players {
		p.Score = 0
		g.Players[p.ID] = p
	}

	if err := e.store.SaveGame(ctx, g); err != nil {
		return nil, fmt.Errorf("save new game: %w", err)
	}

	session := newSession(g, e.store, e.publisher, e.clock)
	e.mu.Lock()
	e.sessions[g.ID] = session
	e.mu.Unlock()

	log.Info().
		Str("game_id", g.ID.String()).
		Str("room_id", room.ID.String()).
		Int("players", len(players)).
		Msg("game created")
	return g, nil
}

// Attach loads a persisted game and registers a live session for it, used
// when a server restart interrupts a match.
func (e *Engine) Attach(ctx context.Context, gameID uuid.UUID) (*Session, error) {
	e.mu.RLock()
	if s, ok := e.sessions[gameID]; ok {
		e.mu.RUnlock()
		return s, nil
	}
	e.mu.RUnlock()

	g, err := e.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}

	session := newSession(g, e.store, e.publisher, e.clock)
	e.mu.Lock()
	e.sessions[gameID] = session
	e.mu.Unlock()

	log.Info().Str("game_id", gameID.String()).Msg("game session attached")
	return session, nil
}

// Session returns the live session for a game id.
func (e *Engine) Session(gameID uuid.UUID) (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[gameID]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	return s, nil
}

// Remove drops a session from the registry once its game is over.
func (e *Engine) Remove(gameID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[gameID]; ok {
		s.shutdown()
		delete(e.sessions, gameID)
	}
}

// Snapshot returns a JSON projection of a game's current state.
func (e *Engine) Snapshot(gameID uuid.UUID) (json.RawMessage, error) {
	s, err := e.Session(gameID)
	if err != nil {
		return nil, err
	}
	return s.Snapshot()
}
