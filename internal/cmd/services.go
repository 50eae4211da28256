package main

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/cluegrid/cluegrid/internal/catalog"
	"github.com/cluegrid/cluegrid/internal/engine"
	"github.com/cluegrid/cluegrid/internal/game"
	"github.com/cluegrid/cluegrid/internal/gateway"
	"github.com/cluegrid/cluegrid/internal/publish"
	"github.com/cluegrid/cluegrid/internal/repository"
)

// Services holds the wired application components.
type Services struct {
	Store     *repository.Gateway
	Publisher *publish.JetStreamPublisher
	Engine    *engine.Engine
	Gateway   *gateway.Service
	Rooms     *gateway.RoomHandler
}

func setupServices(cfg *Config, pool *pgxpool.Pool, db *sql.DB, settings game.GameSettings) (*Services, error) {
	// Wire up the dependency chain:
	// repository → store gateway → engine → websocket gateway.

	repo := repository.NewRepository(pool)
	deltas := repository.NewDeltaWriter(db, repository.DefaultDeltaConfig())
	store := repository.NewGateway(repo, deltas)

	pubCfg := publish.DefaultJetStreamConfig()
	pubCfg.URL = cfg.natsURL
	publisher, err := publish.NewJetStreamPublisher(pubCfg)
	if err != nil {
		return nil, fmt.Errorf("setup publisher: %w", err)
	}

	clueCatalog := catalog.NewClient(cfg.catalogURL)

	eng := engine.NewEngine(store, publisher, clueCatalog, clockwork.NewRealClock())

	gwCfg := gateway.DefaultConfig()
	gwCfg.JetStreamConfig.URL = cfg.natsURL
	gw, err := gateway.NewService(gwCfg, eng)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("setup gateway: %w", err)
	}

	rooms := gateway.NewRoomHandler(repo, eng, settings)

	return &Services{
		Store:     store,
		Publisher: publisher,
		Engine:    eng,
		Gateway:   gw,
		Rooms:     rooms,
	}, nil
}
