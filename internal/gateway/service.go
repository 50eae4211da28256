package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/engine"
)

// Service is the realtime gateway: WebSocket connections in, game events out.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	engine            *engine.Engine
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a new gateway service wired to the game engine.
func NewService(config Config, eng *engine.Engine) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	connectionManager.SetDispatcher(NewActionDispatcher(eng))

	wsHandler := NewWebSocketHandler(connectionManager, eng)

	eventConsumer, err := NewEventConsumer(connectionManager, config.JetStreamConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		eventConsumer:     eventConsumer,
		engine:            eng,
	}

	// A dropped socket marks the player disconnected unless they hold
	// another live connection to the same game.
	connectionManager.SetDisconnectHandler(func(conn *Connection) {
		if connectionManager.PlayerConnected(conn.GameID, conn.PlayerID) {
			return
		}
		session, err := eng.Session(conn.GameID)
		if err != nil {
			return
		}
		if err := session.Leave(conn.PlayerID); err != nil {
			log.Debug().
				Err(err).
				Str("game_id", conn.GameID.String()).
				Str("player_id", conn.PlayerID.String()).
				Msg("leave on disconnect failed")
		}
	})

	return s, nil
}

// Start begins the gateway service
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service
func (s *Service) Stop() error {
	if err := s.eventConsumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event consumer")
	}

	// Connection manager stops when its context is cancelled.
	log.Info().Msg("gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "game_gateway"
	stats["status"] = "running"
	return stats
}
