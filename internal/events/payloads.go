package events

import (
	"encoding/json"
	"time"
)

// SelectedCluePayload is the payload for a PLAYER_SELECTED_CLUE event.
type SelectedCluePayload struct {
	PlayerID    string    `json:"player_id"`
	CategoryID  string    `json:"category_id"`
	ClueID      string    `json:"clue_id"`
	Question    string    `json:"question"`
	Value       int       `json:"value"`
	DailyDouble bool      `json:"daily_double"`
	SelectedAt  time.Time `json:"selected_at"`
}

// BuzzedPayload is the payload for a PLAYER_BUZZED event.
type BuzzedPayload struct {
	PlayerID string    `json:"player_id"`
	ClueID   string    `json:"clue_id"`
	BuzzedAt time.Time `json:"buzzed_at"`
}

// AnsweredPayload is the payload for a PLAYER_ANSWERED event.
type AnsweredPayload struct {
	PlayerID   string    `json:"player_id"`
	ClueID     string    `json:"clue_id"`
	Answer     string    `json:"answer"`
	Correct    bool      `json:"correct"`
	ScoreDelta int       `json:"score_delta"`
	NewScore   int       `json:"new_score"`
	AnsweredAt time.Time `json:"answered_at"`
}

// WageredPayload is the payload for a PLAYER_WAGERED event. Final-round
// wager amounts stay hidden until the round resolves.
type WageredPayload struct {
	PlayerID string `json:"player_id"`
	ClueID   string `json:"clue_id"`
	Amount   int    `json:"amount,omitempty"`
	Hidden   bool   `json:"hidden"`
}

// VotePayload is the payload for skip and invalid vote events.
type VotePayload struct {
	PlayerID  string `json:"player_id"`
	ClueID    string `json:"clue_id"`
	Votes     int    `json:"votes"`
	Quorum    int    `json:"quorum"`
	Dismissed bool   `json:"dismissed"`
}

// PeriodEndedPayload is the payload for buzzing/response/waiting period ends.
type PeriodEndedPayload struct {
	ClueID    string `json:"clue_id"`
	PlayerID  string `json:"player_id,omitempty"`
	Answer    string `json:"answer,omitempty"`
	Dismissed bool   `json:"dismissed"`
}

// RoundPayload is the payload for ROUND_STARTED and ROUND_ENDED events.
type RoundPayload struct {
	Round           int            `json:"round"`
	Kind            string         `json:"kind"`
	PlayerInControl string         `json:"player_in_control,omitempty"`
	Scores          map[string]int `json:"scores"`
}

// OverridePayload is the payload for HOST_OVERRODE_SERVER_DECISION.
type OverridePayload struct {
	PlayerID   string `json:"player_id"`
	ClueID     string `json:"clue_id"`
	Correct    bool   `json:"correct"`
	ScoreDelta int    `json:"score_delta"`
	NewScore   int    `json:"new_score"`
}

// PlayerPayload is the payload for join/leave/kick/spectate lifecycle events.
type PlayerPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name,omitempty"`
}

// GameFinishedPayload is the payload for GAME_FINISHED.
type GameFinishedPayload struct {
	Scores     map[string]int `json:"scores"`
	WinnerID   string         `json:"winner_id,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
}

// ErrorPayload carries a structured rejection back to the originating caller.
type ErrorPayload struct {
	PlayerID string            `json:"player_id"`
	Kind     string            `json:"kind"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Context  map[string]string `json:"context,omitempty"`
}

// ParsePayload decodes the envelope data into the payload type for its event.
func ParsePayload(event *GameEvent) (any, error) {
	var payload any
	switch event.Type {
	case EventPlayerSelectedClue:
		payload = &SelectedCluePayload{}
	case EventPlayerBuzzed:
		payload = &BuzzedPayload{}
	case EventPlayerAnswered:
		payload = &AnsweredPayload{}
	case EventPlayerWagered:
		payload = &WageredPayload{}
	case EventPlayerVotedToSkipClue, EventPlayerMarkedInvalid:
		payload = &VotePayload{}
	case EventBuzzingPeriodEnded, EventResponsePeriodEnded, EventWaitingPeriodEnded:
		payload = &PeriodEndedPayload{}
	case EventRoundStarted, EventRoundEnded:
		payload = &RoundPayload{}
	case EventHostOverrodeDecision:
		payload = &OverridePayload{}
	case EventHostKickedPlayer, EventPlayerJoined, EventPlayerLeft,
		EventPlayerWentSpectating, EventPlayerStoppedSpectating:
		payload = &PlayerPayload{}
	case EventHostAbandonedGame, EventGameFinished:
		payload = &GameFinishedPayload{}
	case EventErrorOccurred:
		payload = &ErrorPayload{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(event.Data, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
