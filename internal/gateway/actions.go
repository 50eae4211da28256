package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cluegrid/cluegrid/internal/engine"
)

// ActionType identifies a client-initiated game action.
type ActionType string

const (
	ActionStartGame     ActionType = "START_GAME"
	ActionSelectClue    ActionType = "SELECT_CLUE"
	ActionBuzzIn        ActionType = "BUZZ_IN"
	ActionSubmitAnswer  ActionType = "SUBMIT_ANSWER"
	ActionSubmitWager   ActionType = "SUBMIT_WAGER"
	ActionVoteToSkip    ActionType = "VOTE_TO_SKIP"
	ActionMarkInvalid   ActionType = "MARK_INVALID"
	ActionMarkReady     ActionType = "MARK_READY"
	ActionAdvanceRound  ActionType = "ADVANCE_ROUND"
	ActionSetSpectating ActionType = "SET_SPECTATING"
	ActionHostOverride  ActionType = "HOST_OVERRIDE"
	ActionKickPlayer    ActionType = "KICK_PLAYER"
	ActionAbandonGame   ActionType = "ABANDON_GAME"
)

// ClientMessage is the envelope every inbound WebSocket message uses.
type ClientMessage struct {
	Action ActionType      `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type selectCluePayload struct {
	CategoryID string `json:"category_id"`
	ClueID     string `json:"clue_id"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type wagerPayload struct {
	Amount int `json:"amount"`
}

type spectatingPayload struct {
	Spectating bool `json:"spectating"`
}

type overridePayload struct {
	PlayerID string `json:"player_id"`
	Correct  bool   `json:"correct"`
}

type targetPlayerPayload struct {
	PlayerID string `json:"player_id"`
}

// ActionDispatcher decodes client messages and applies them to the owning
// game session.
type ActionDispatcher struct {
	engine *engine.Engine
}

// NewActionDispatcher creates a dispatcher over the game engine.
func NewActionDispatcher(eng *engine.Engine) *ActionDispatcher {
	return &ActionDispatcher{engine: eng}
}

// Dispatch decodes one client message and invokes the matching session
// operation. The session serializes everything internally, so Dispatch is
// safe to call from any connection goroutine.
func (d *ActionDispatcher) Dispatch(gameID, playerID uuid.UUID, raw []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode client message: %w", err)
	}

	session, err := d.engine.Session(gameID)
	if err != nil {
		return err
	}

	switch msg.Action {
	case ActionStartGame:
		return session.Start(playerID)

	case ActionSelectClue:
		var p selectCluePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Action, err)
		}
		categoryID, err := uuid.Parse(p.CategoryID)
		if err != nil {
			return fmt.Errorf("parse category_id: %w", err)
		}
		clueID, err := uuid.Parse(p.ClueID)
		if err != nil {
			return fmt.Errorf("parse clue_id: %w", err)
		}
		return session.SelectClue(playerID, categoryID, clueID)

	case ActionBuzzIn:
		var p selectCluePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Action, err)
		}
		categoryID, err := uuid.Parse(p.CategoryID)
		if err != nil {
			return fmt.Errorf("parse category_id: %w", err)
		}
		clueID, err := uuid.Parse(p.ClueID)
		if err != nil {
			return fmt.Errorf("parse clue_id: %w", err)
		}
		return session.BuzzIn(playerID, categoryID, clueID)

	case ActionSubmitAnswer:
		var p answerPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Action, err)
		}
		return session.SubmitAnswer(playerID, p.Answer)

	case ActionSubmitWager:
		var p wagerPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Action, err)
		}
		return session.SubmitWager(playerID, p.Amount)

	case ActionVoteToSkip:
		return session.VoteToSkip(playerID)

	case ActionMarkInvalid:
		return session.MarkInvalid(playerID)

	case ActionMarkReady:
		return session.MarkReady(playerID)

	case ActionAdvanceRound:
		return session.AdvanceRound(playerID)

	case ActionSetSpectating:
		var p spectatingPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Action, err)
		}
		return session.SetSpectating(playerID, p.Spectating)

	case ActionHostOverride:
		var p overridePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Action, err)
		}
		target, err := uuid.Parse(p.PlayerID)
		if err != nil {
			return fmt.Errorf("parse player_id: %w", err)
		}
		return session.HostOverride(playerID, target, p.Correct)

	case ActionKickPlayer:
		var p targetPlayerPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Action, err)
		}
		target, err := uuid.Parse(p.PlayerID)
		if err != nil {
			return fmt.Errorf("parse player_id: %w", err)
		}
		return session.KickPlayer(playerID, target)

	case ActionAbandonGame:
		return session.Abandon(playerID)

	default:
		return fmt.Errorf("unknown action: %s", msg.Action)
	}
}
