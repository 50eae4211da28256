package game

import (
	"time"

	"github.com/google/uuid"
)

// RoundKind defines which board round a game is in.
type RoundKind string

const (
	RoundSingle    RoundKind = "SINGLE"
	RoundDouble    RoundKind = "DOUBLE"
	RoundQuadruple RoundKind = "QUADRUPLE"
	RoundFinal     RoundKind = "FINAL"
)

// Multiplier returns the clue value and daily-double multiplier for the round.
func (k RoundKind) Multiplier() int {
	switch k {
	case RoundDouble:
		return 2
	case RoundQuadruple:
		return 4
	default:
		return 1
	}
}

// GameStatus defines the lifecycle status of a game.
type GameStatus string

const (
	GameStatusLobby      GameStatus = "LOBBY"
	GameStatusInProgress GameStatus = "IN_PROGRESS"
	GameStatusFinished   GameStatus = "FINISHED"
	GameStatusAbandoned  GameStatus = "ABANDONED"
)

// GameSettings holds JSONB configuration for games.
type GameSettings struct {
	RoundOrder         []RoundKind `json:"round_order"`
	CategoriesPerRound int         `json:"categories_per_round"`
	CluesPerCategory   int         `json:"clues_per_category"`
	BaseClueValue      int         `json:"base_clue_value"`
	DailyDoublesBase   int         `json:"daily_doubles_base"`
	MinWager           int         `json:"min_wager"`
	BuzzWindowSec      int         `json:"buzz_window_sec"`
	ResponseWindowSec  int         `json:"response_window_sec"`
	WagerWindowSec     int         `json:"wager_window_sec"`
}

// DefaultSettings returns the standard board shape and timing windows.
func DefaultSettings() GameSettings {
	return GameSettings{
		RoundOrder:         []RoundKind{RoundSingle, RoundDouble, RoundFinal},
		CategoriesPerRound: 6,
		CluesPerCategory:   5,
		BaseClueValue:      200,
		DailyDoublesBase:   1,
		MinWager:           5,
		BuzzWindowSec:      10,
		ResponseWindowSec:  10,
		WagerWindowSec:     30,
	}
}

// Clue is a single board cell. The core fields are immutable after round
// construction; the trailing sets only exist while the clue is active and are
// discarded when it is dismissed.
type Clue struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Answer     string    `json:"answer"`
	Question   string    `json:"question"`
	Value      int       `json:"value"`
	Played     bool      `json:"played"`

	PlayersAttempted      map[uuid.UUID]bool `json:"-"`
	PlayersMarkingInvalid map[uuid.UUID]bool `json:"-"`
	PlayersVotingToSkip   map[uuid.UUID]bool `json:"-"`
}

// ResetActiveSets initializes the per-activation vote and attempt sets.
func (c *Clue) ResetActiveSets() {
	c.PlayersAttempted = make(map[uuid.UUID]bool)
	c.PlayersMarkingInvalid = make(map[uuid.UUID]bool)
	c.PlayersVotingToSkip = make(map[uuid.UUID]bool)
}

// ClearActiveSets discards the per-activation sets once the clue is dismissed.
func (c *Clue) ClearActiveSets() {
	c.PlayersAttempted = nil
	c.PlayersMarkingInvalid = nil
	c.PlayersVotingToSkip = nil
}

// Category is an ordered list of clues under one title.
type Category struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Clues []*Clue   `json:"clues"`
}

// Round is one board: a fixed set of categories plus the clue ids chosen as
// daily doubles at construction time.
type Round struct {
	Kind         RoundKind          `json:"kind"`
	Categories   []*Category        `json:"categories"`
	DailyDoubles map[uuid.UUID]bool `json:"daily_doubles"`
	Abandoned    bool               `json:"abandoned"`
}

// FindClue looks up a clue by category and clue id.
func (r *Round) FindClue(categoryID, clueID uuid.UUID) *Clue {
	for _, cat := range r.Categories {
		if cat.ID != categoryID {
			continue
		}
		for _, clue := range cat.Clues {
			if clue.ID == clueID {
				return clue
			}
		}
	}
	return nil
}

// Complete reports whether every clue has been played or the round was
// abandoned. A final round has a single clue and follows the same rule.
func (r *Round) Complete() bool {
	if r.Abandoned {
		return true
	}
	for _, cat := range r.Categories {
		for _, clue := range cat.Clues {
			if !clue.Played {
				return false
			}
		}
	}
	return true
}

// IsDailyDouble reports whether the clue id was placed as a daily double.
func (r *Round) IsDailyDouble(clueID uuid.UUID) bool {
	return r.DailyDoubles[clueID]
}

// PlayerStats tracks cumulative lifetime statistics for a player.
type PlayerStats struct {
	GamesPlayed          int `json:"games_played"`
	GamesWon             int `json:"games_won"`
	CluesAnswered        int `json:"clues_answered"`
	CluesCorrect         int `json:"clues_correct"`
	DailyDoublesAnswered int `json:"daily_doubles_answered"`
	DailyDoublesCorrect  int `json:"daily_doubles_correct"`
	FinalRoundsAnswered  int `json:"final_rounds_answered"`
	FinalRoundsCorrect   int `json:"final_rounds_correct"`
	HighestGameScore     int `json:"highest_game_score"`
}

// Player is a registered participant. The engine only mutates Score and
// Stats increments; registration and deletion happen elsewhere.
type Player struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	FontStyle  string      `json:"font_style"`
	Score      int         `json:"score"`
	Spectating bool        `json:"spectating"`
	Connected  bool        `json:"connected"`
	Stats      PlayerStats `json:"stats"`
}

// FinalAnswer records one player's final-round submission and judgement.
type FinalAnswer struct {
	Answer  string `json:"answer"`
	Correct bool   `json:"correct"`
	Judged  bool   `json:"judged"`
}

// WagerState is active only during a daily double or the final round.
type WagerState struct {
	ClueID uuid.UUID `json:"clue_id"`

	// Daily double: the single player who must wager before the question is
	// revealed. Unset for the final round.
	PendingPlayer *uuid.UUID `json:"pending_player,omitempty"`

	// Final round: wagers keyed by eligible player. Eligibility is fixed at
	// the round boundary snapshot.
	Eligible map[uuid.UUID]bool `json:"eligible,omitempty"`
	Wagers   map[uuid.UUID]int  `json:"wagers,omitempty"`

	// Final round: answers recorded as they arrive after the reveal.
	Answers map[uuid.UUID]*FinalAnswer `json:"answers,omitempty"`

	Revealed bool `json:"revealed"`
}

// AllWagered reports whether every eligible final-round player has wagered.
func (w *WagerState) AllWagered() bool {
	for id := range w.Eligible {
		if _, ok := w.Wagers[id]; !ok {
			return false
		}
	}
	return true
}

// AllAnswered reports whether every eligible final-round player has answered.
func (w *WagerState) AllAnswered() bool {
	for id := range w.Eligible {
		if _, ok := w.Answers[id]; !ok {
			return false
		}
	}
	return true
}

// Game is the authoritative state for one match. It is owned exclusively by
// the engine session for its id; nothing else mutates it.
type Game struct {
	ID              uuid.UUID             `json:"id"`
	RoomID          uuid.UUID             `json:"room_id"`
	HostID          uuid.UUID             `json:"host_id"`
	Status          GameStatus            `json:"status"`
	Settings        GameSettings          `json:"settings"`
	Rounds          []*Round              `json:"rounds"`
	CurrentRound    int                   `json:"current_round"`
	Players         map[uuid.UUID]*Player `json:"players"`
	PlayerInControl *uuid.UUID            `json:"player_in_control,omitempty"`
	ActiveClueID    *uuid.UUID            `json:"active_clue_id,omitempty"`
	PlayerAnswering *uuid.UUID            `json:"player_answering,omitempty"`
	Wager           *WagerState           `json:"wager,omitempty"`
	ReadyForNext    map[uuid.UUID]bool    `json:"ready_for_next"`
	CreatedAt       time.Time             `json:"created_at"`
	FinishedAt      *time.Time            `json:"finished_at,omitempty"`
}

// Round returns the current round, or nil if the game has no rounds yet.
func (g *Game) Round() *Round {
	if g.CurrentRound < 0 || g.CurrentRound >= len(g.Rounds) {
		return nil
	}
	return g.Rounds[g.CurrentRound]
}

// ActiveClue returns the active clue, or nil when no clue is live.
func (g *Game) ActiveClue() *Clue {
	if g.ActiveClueID == nil {
		return nil
	}
	r := g.Round()
	if r == nil {
		return nil
	}
	for _, cat := range r.Categories {
		for _, clue := range cat.Clues {
			if clue.ID == *g.ActiveClueID {
				return clue
			}
		}
	}
	return nil
}

// InFinalRound reports whether the current round is the final round.
func (g *Game) InFinalRound() bool {
	r := g.Round()
	return r != nil && r.Kind == RoundFinal
}

// ContendingPlayers returns connected, non-spectating players. These are the
// players counted toward skip and invalid quorums and buzz exhaustion.
func (g *Game) ContendingPlayers() []*Player {
	var out []*Player
	for _, p := range g.Players {
		if p.Connected && !p.Spectating {
			out = append(out, p)
		}
	}
	return out
}

// WagerRange returns the accepted [min, max] wager for a player. Normal
// rounds floor at the configured minimum and cap at the greater of the
// player's score and the round default maximum. The final round allows
// [0, score].
func (g *Game) WagerRange(playerID uuid.UUID) (int, int) {
	p := g.Players[playerID]
	if p == nil {
		return 0, 0
	}
	if g.InFinalRound() {
		if p.Score <= 0 {
			return 0, 0
		}
		return 0, p.Score
	}
	r := g.Round()
	roundMax := g.Settings.BaseClueValue * g.Settings.CluesPerCategory
	if r != nil {
		roundMax *= r.Kind.Multiplier()
	}
	max := roundMax
	if p.Score > max {
		max = p.Score
	}
	return g.Settings.MinWager, max
}

// Room groups players into a joinable session. Administration of rooms is
// outside the engine; it only reads the host and roster.
type Room struct {
	ID        uuid.UUID   `json:"id"`
	Code      string      `json:"code"`
	HostID    uuid.UUID   `json:"host_id"`
	PlayerIDs []uuid.UUID `json:"player_ids"`
	GameID    *uuid.UUID  `json:"game_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
