// Package events defines the domain event taxonomy shared by the engine and
// the gateway.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameEvent is the envelope for every broadcast event.
type GameEvent struct {
	ID        string          `json:"id"`
	GameID    string          `json:"game_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType identifies a domain event.
type EventType string

const (
	EventPlayerSelectedClue      EventType = "PLAYER_SELECTED_CLUE"
	EventPlayerBuzzed            EventType = "PLAYER_BUZZED"
	EventPlayerAnswered          EventType = "PLAYER_ANSWERED"
	EventPlayerWagered           EventType = "PLAYER_WAGERED"
	EventPlayerVotedToSkipClue   EventType = "PLAYER_VOTED_TO_SKIP_CLUE"
	EventPlayerMarkedInvalid     EventType = "PLAYER_MARKED_CLUE_AS_INVALID"
	EventBuzzingPeriodEnded      EventType = "BUZZING_PERIOD_ENDED"
	EventResponsePeriodEnded     EventType = "RESPONSE_PERIOD_ENDED"
	EventWaitingPeriodEnded      EventType = "WAITING_PERIOD_ENDED"
	EventRoundStarted            EventType = "ROUND_STARTED"
	EventRoundEnded              EventType = "ROUND_ENDED"
	EventHostOverrodeDecision    EventType = "HOST_OVERRODE_SERVER_DECISION"
	EventHostKickedPlayer        EventType = "HOST_KICKED_PLAYER"
	EventHostAbandonedGame       EventType = "HOST_ABANDONED_GAME"
	EventGameFinished            EventType = "GAME_FINISHED"
	EventPlayerJoined            EventType = "PLAYER_JOINED"
	EventPlayerLeft              EventType = "PLAYER_LEFT"
	EventPlayerWentSpectating    EventType = "PLAYER_WENT_SPECTATING"
	EventPlayerStoppedSpectating EventType = "PLAYER_STOPPED_SPECTATING"
	EventErrorOccurred           EventType = "ERROR_OCCURRED"
)

// New wraps a payload into an envelope, marshalling the payload to JSON.
// Marshal failures return an envelope with empty data; payload structs are
// plain data and do not fail in practice.
func New(gameID uuid.UUID, eventType EventType, payload any) *GameEvent {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return &GameEvent{
		ID:        uuid.New().String(),
		GameID:    gameID.String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
