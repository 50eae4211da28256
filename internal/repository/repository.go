// Package repository is the persistence gateway: durable load/save of game,
// player and room records plus the best-effort delta journal. The engine
// depends only on the narrow interfaces, never on the storage engine.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cluegrid/cluegrid/internal/game"
)

// Repository stores full snapshots as JSONB documents keyed by id.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a snapshot repository over a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadGame fetches a game snapshot.
func (r *Repository) LoadGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	var state []byte
	err := r.pool.QueryRow(ctx,
		`SELECT state FROM games WHERE id = $1`, id,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}

	var g game.Game
	if err := json.Unmarshal(state, &g); err != nil {
		return nil, fmt.Errorf("decode game snapshot: %w", err)
	}
	return &g, nil
}

// SaveGame upserts a game snapshot.
func (r *Repository) SaveGame(ctx context.Context, g *game.Game) error {
	state, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO games (id, room_id, status, state, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE SET status = $3, state = $4, updated_at = now()`,
		g.ID, g.RoomID, string(g.Status), state,
	)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

// LoadPlayer fetches a player record.
func (r *Repository) LoadPlayer(ctx context.Context, id uuid.UUID) (*game.Player, error) {
	var state []byte
	err := r.pool.QueryRow(ctx,
		`SELECT state FROM players WHERE id = $1`, id,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}

	var p game.Player
	if err := json.Unmarshal(state, &p); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return &p, nil
}

// SavePlayer upserts a player record.
func (r *Repository) SavePlayer(ctx context.Context, p *game.Player) error {
	state, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode player: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO players (id, name, state, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE SET name = $2, state = $3, updated_at = now()`,
		p.ID, p.Name, state,
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

// LoadRoom fetches a room record.
func (r *Repository) LoadRoom(ctx context.Context, id uuid.UUID) (*game.Room, error) {
	var state []byte
	err := r.pool.QueryRow(ctx,
		`SELECT state FROM rooms WHERE id = $1`, id,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}

	var room game.Room
	if err := json.Unmarshal(state, &room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}

// LoadRoomByCode fetches a room by its join code.
func (r *Repository) LoadRoomByCode(ctx context.Context, code string) (*game.Room, error) {
	var state []byte
	err := r.pool.QueryRow(ctx,
		`SELECT state FROM rooms WHERE code = $1`, code,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room by code: %w", err)
	}

	var room game.Room
	if err := json.Unmarshal(state, &room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}

// SaveRoom upserts a room record.
func (r *Repository) SaveRoom(ctx context.Context, room *game.Room) error {
	state, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO rooms (id, code, state, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE SET code = $2, state = $3, updated_at = now()`,
		room.ID, room.Code, state,
	)
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}
