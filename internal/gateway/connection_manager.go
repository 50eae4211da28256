// Package gateway is the realtime edge of the game server: it upgrades
// client WebSockets, feeds their actions into the engine, and fans published
// game events back out to every connection in the game.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/events"
)

// ConnectionManager manages WebSocket connections for game events
type ConnectionManager struct {
	// Connection pools organized by game ID
	gameConnections map[uuid.UUID]map[*Connection]bool
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Event broadcasting
	broadcastCh chan BroadcastMessage

	// Inbound client actions are handed to the dispatcher; connection
	// teardown is reported so the engine can mark the player disconnected.
	dispatcher   MessageDispatcher
	onDisconnect func(conn *Connection)
}

// MessageDispatcher routes a raw client message to the game engine.
type MessageDispatcher interface {
	Dispatch(gameID, playerID uuid.UUID, raw []byte) error
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID       string
	PlayerID uuid.UUID
	GameID   uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	GameID   uuid.UUID
	Event    *events.GameEvent
	PlayerID string // Optional: if set, only send to this player
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	cm := &ConnectionManager{
		gameConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000), // Buffer for high throughput
	}

	return cm
}

// SetDispatcher wires the inbound action dispatcher. Must be called before
// the first upgrade.
func (cm *ConnectionManager) SetDispatcher(d MessageDispatcher) {
	cm.dispatcher = d
}

// SetDisconnectHandler wires the connection-closed callback.
func (cm *ConnectionManager) SetDisconnectHandler(fn func(conn *Connection)) {
	cm.onDisconnect = fn
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID, gameID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	// Create connection object
	connection := &Connection{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		GameID:      gameID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	// Register the connection
	cm.registerConnection(connection)

	// Start connection handlers
	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player_id", playerID.String()).
		Str("game_id", gameID.String()).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.gameConnections[conn.GameID] == nil {
		cm.gameConnections[conn.GameID] = make(map[*Connection]bool)
	}
	cm.gameConnections[conn.GameID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_id", conn.GameID.String()).
		Int("total_connections", len(cm.gameConnections[conn.GameID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	removed := false
	if connections, exists := cm.gameConnections[conn.GameID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)
			removed = true

			// Clean up empty game connection pools
			if len(connections) == 0 {
				delete(cm.gameConnections, conn.GameID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("player_id", conn.PlayerID.String()).
				Str("game_id", conn.GameID.String()).
				Msg("connection unregistered")
		}
	}
	cm.mu.Unlock()

	if removed && cm.onDisconnect != nil {
		cm.onDisconnect(conn)
	}
}

// BroadcastToGame sends an event to all connections for a specific game
func (cm *ConnectionManager) BroadcastToGame(gameID uuid.UUID, event *events.GameEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{GameID: gameID, Event: event}:
	default:
		log.Warn().Str("game_id", gameID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToPlayer sends an event to a specific player in a game
func (cm *ConnectionManager) BroadcastToPlayer(gameID uuid.UUID, playerID string, event *events.GameEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{GameID: gameID, Event: event, PlayerID: playerID}:
	default:
		log.Warn().
			Str("game_id", gameID.String()).
			Str("player_id", playerID).
			Msg("broadcast channel full, dropping player message")
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.gameConnections[message.GameID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Create a snapshot of connections to avoid holding lock during broadcast
	var targetConnections []*Connection
	for conn := range connections {
		// Filter by player if specified
		if message.PlayerID != "" && conn.PlayerID.String() != message.PlayerID {
			continue
		}
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	// Marshal the event once
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Send to all target connections
	for _, conn := range targetConnections {
		select {
		case conn.Send <- eventData:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Str("player_id", conn.PlayerID.String()).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("game_id", message.GameID.String()).
		Int("connections", len(targetConnections)).
		Msg("event broadcasted")
}

// PlayerConnected reports whether the player still has at least one open
// connection to the game. Used to distinguish a closed tab from a real leave
// when a player keeps several connections.
func (cm *ConnectionManager) PlayerConnected(gameID, playerID uuid.UUID) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for conn := range cm.gameConnections[gameID] {
		if conn.PlayerID == playerID {
			return true
		}
	}
	return false
}

// HasConnections reports whether any client is still attached to the game.
func (cm *ConnectionManager) HasConnections(gameID uuid.UUID) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.gameConnections[gameID]) > 0
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	totalConnections := 0
	gameCounts := make(map[string]int)

	for gameID, connections := range cm.gameConnections {
		count := len(connections)
		totalConnections += count
		gameCounts[gameID.String()] = count
	}

	return map[string]interface{}{
		"total_connections": totalConnections,
		"active_games":      len(cm.gameConnections),
		"game_connections":  gameCounts,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage hands a client action to the dispatcher. Rejections
// surface to clients as ERROR_OCCURRED events from the engine, so dispatch
// errors are only logged here.
func (c *Connection) handleClientMessage(message []byte) {
	if c.Manager.dispatcher == nil {
		return
	}
	if err := c.Manager.dispatcher.Dispatch(c.GameID, c.PlayerID, message); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("player_id", c.PlayerID.String()).
			Msg("client action rejected")
	}
}
